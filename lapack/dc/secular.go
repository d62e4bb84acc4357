// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

import "math"

// dlamchE is the machine epsilon. It is the largest relative spacing such
// that 1+dlamchE is rounded to 1.
const dlamchE = 0x1p-53

// maxIters caps the iteration count of the secular root solvers. Together
// with the monotone bracket shrinkage enforced on every step it bounds the
// work of a single root search.
const maxIters = 50

// Evaluation modes for secEval.
const (
	secFull    = iota // evaluate the full secular function
	secSkipOne        // exclude the k-th pole from the sums
	secSkipTwo        // exclude the k-th and (k+1)-th poles from the sums
)

// secEval evaluates the secular function
//
//	f(x) = p + Σ_i z[i]²/(d[i] - x)
//
// and its derivative at the point origin+cor, where d holds the poles
// already shifted by origin. The evaluation is split into the partial sums g
// (poles below the excluded index) and h (poles above it) so that callers
// can rebuild the excluded terms with full relative accuracy.
//
// When modif is true the poles in d are shifted in place by cor, so that on
// return d[i] holds d[i]-cor and the distances pole-to-iterate stay accurate
// as the iterate is refined. This is the classical guard against
// catastrophic cancellation near a root that is very close to a pole.
//
// The returned er accumulates the running magnitudes of the partial sums and
// is the raw material for the convergence error bound maintained by the
// solvers.
func secEval(mode, k, dd int, d, z []float64, p, cor float64, modif bool) (fx, fdx, gx, gdx, hx, hdx, er float64) {
	var gout, hout int
	switch mode {
	case secFull:
		gout = k + 1
		hout = k
	case secSkipOne:
		if modif {
			d[k] -= cor
		}
		gout = k
		hout = k
	default:
		if modif {
			d[k] -= cor
			d[k+1] -= cor
		}
		gout = k
		hout = k + 1
	}

	for i := 0; i < gout; i++ {
		tmp := d[i] - cor
		if modif {
			d[i] = tmp
		}
		zz := z[i]
		tmp = zz / tmp
		gx += zz * tmp
		gdx += tmp * tmp
		er += gx
	}
	er = math.Abs(er)

	for i := dd - 1; i > hout; i-- {
		tmp := d[i] - cor
		if modif {
			d[i] = tmp
		}
		zz := z[i]
		tmp = zz / tmp
		hx += zz * tmp
		hdx += tmp * tmp
		er += hx
	}

	fx = p + gx + hx
	fdx = gdx + hdx
	return fx, fdx, gx, gdx, hx, hdx, er
}

// secSolve computes the root of the secular equation that lies strictly
// between the poles d[k] and d[k+1]. d holds the dd poles of the reduced
// (non-deflated) system in ascending order, z the corresponding rank-1
// components, and p > 0 the perturbation scalar.
//
// The root is bracketed in the half of the interval selected by the sign of
// the secular function at the midpoint, and refined by rational
// interpolation: either a fixed-weight two-pole model or a locally
// reweighted model, whichever behaved better on the previous step. Any step
// that would not move toward the root is replaced by a Newton step, and any
// step that would leave the current bracket is replaced by bisection, so the
// bracket shrinks monotonically and termination within maxIters is
// guaranteed.
//
// On return d has been shifted in place so that d[i] holds the distance from
// the i-th pole to the computed root. secSolve reports whether the root
// converged to the requested tolerance; a false report still leaves the best
// available iterate in x.
func secSolve(dd int, d, z []float64, p float64, k int, tol float64) (x float64, converged bool) {
	k1 := k + 1
	dk := d[k]
	dk1 := d[k1]
	x = (dk + dk1) / 2
	tau := dk1 - dk
	pinv := 1 / p

	// Locate the root relative to the interval midpoint and pick the
	// nearer pole as origin.
	cc, _, _, _, _, _, _ := secEval(secSkipTwo, k, dd, d, z, pinv, x, false)
	gdx := z[k] * z[k]
	hdx := z[k1] * z[k1]
	fx := cc + 2*(hdx-gdx)/tau

	var (
		lowb, uppb float64
		up         bool
		kk         int
	)
	var aa, bb, eta float64
	if fx > 0 {
		// Root in (d[k], midpoint): origin d[k], tau in (0, uppb).
		lowb = 0
		uppb = tau / 2
		up = true
		kk = k
		aa = cc*tau + gdx + hdx
		bb = gdx * tau
		eta = math.Sqrt(math.Abs(aa*aa - 4*bb*cc))
		if aa > 0 {
			tau = 2 * bb / (aa + eta)
		} else {
			tau = (aa - eta) / (2 * cc)
		}
		x = dk + tau
	} else {
		// Root in (midpoint, d[k+1]): origin d[k+1], tau in (lowb, 0).
		lowb = -tau / 2
		uppb = 0
		up = false
		kk = k1
		aa = cc*tau - gdx - hdx
		bb = hdx * tau
		eta = math.Sqrt(math.Abs(aa*aa + 4*bb*cc))
		if aa < 0 {
			tau = 2 * bb / (aa - eta)
		} else {
			tau = -(aa + eta) / (2 * cc)
		}
		x = dk1 + tau
	}

	// Shift the poles to the origin, then to the initial guess, and
	// restore the excluded pole's contribution explicitly.
	origin := dk1
	if up {
		origin = dk
	}
	secEval(secFull, kk, dd, d, z, pinv, origin, true)
	fx, fdx, gx, gdx, hx, hdx, er := secEval(secSkipOne, kk, dd, d, z, pinv, tau, true)
	bb = z[kk]
	aa = bb / d[kk]
	fdx += aa * aa
	bb *= aa
	fx += bb

	er += 8*(hx-gx) + 2*pinv + 3*math.Abs(bb) + math.Abs(tau)*fdx

	if math.Abs(fx) <= tol*er {
		return x, true
	}

	if fx <= 0 {
		lowb = math.Max(lowb, tau)
	} else {
		uppb = math.Min(uppb, tau)
	}

	// First step correction with the fixed-weight method.
	ddk := d[k]
	ddk1 := d[k1]
	if up {
		cc = fx - ddk1*fdx - (dk-dk1)*z[k]*z[k]/ddk/ddk
	} else {
		cc = fx - ddk*fdx - (dk1-dk)*z[k1]*z[k1]/ddk1/ddk1
	}
	aa = (ddk+ddk1)*fx - ddk*ddk1*fdx
	bb = ddk * ddk1 * fx
	if cc == 0 {
		if aa == 0 {
			if up {
				aa = z[k]*z[k] + ddk1*ddk1*(gdx+hdx)
			} else {
				aa = z[k1]*z[k1] + ddk*ddk*(gdx+hdx)
			}
		}
		eta = bb / aa
	} else {
		eta = math.Sqrt(math.Abs(aa*aa - 4*bb*cc))
		if aa <= 0 {
			eta = (aa - eta) / (2 * cc)
		} else {
			eta = 2 * bb / (aa + eta)
		}
	}

	// The correction must move toward the root (eta*fx < 0), otherwise
	// fall back to a Newton step.
	if fx*eta >= 0 {
		eta = -fx / fdx
	}
	// The correction must stay within the bracket, otherwise bisect.
	if tau+eta > uppb || tau+eta < lowb {
		if fx < 0 {
			eta = (uppb - tau) / 2
		} else {
			eta = (lowb - tau) / 2
		}
	}

	tau += eta
	x = origin + tau

	oldfx := fx
	fx, fdx, gx, gdx, hx, hdx, er = secEval(secSkipOne, kk, dd, d, z, pinv, eta, true)
	bb = z[kk]
	aa = bb / d[kk]
	fdx += aa * aa
	bb *= aa
	fx += bb

	er += 8*(hx-gx) + 2*pinv + 3*math.Abs(bb) + math.Abs(tau)*fdx

	// Choose between the fixed-weight method and plain interpolation for
	// subsequent steps based on how this first step behaved.
	cc = 1
	if up {
		cc = -1
	}
	fixed := cc*fx > math.Abs(oldfx)/10

	for i := 1; i < maxIters; i++ {
		if math.Abs(fx) <= tol*er {
			return x, true
		}

		if fx <= 0 {
			lowb = math.Max(lowb, tau)
		} else {
			uppb = math.Min(uppb, tau)
		}

		ddk = d[k]
		ddk1 = d[k1]
		if fixed {
			if up {
				cc = fx - ddk1*fdx - (dk-dk1)*z[k]*z[k]/ddk/ddk
			} else {
				cc = fx - ddk*fdx - (dk1-dk)*z[k1]*z[k1]/ddk1/ddk1
			}
		} else {
			if up {
				gdx += aa * aa
			} else {
				hdx += aa * aa
			}
			cc = fx - ddk*gdx - ddk1*hdx
		}
		aa = (ddk+ddk1)*fx - ddk*ddk1*fdx
		bb = ddk * ddk1 * fx
		if cc == 0 {
			if aa == 0 {
				if fixed {
					if up {
						aa = z[k]*z[k] + ddk1*ddk1*(gdx+hdx)
					} else {
						aa = z[k1]*z[k1] + ddk*ddk*(gdx+hdx)
					}
				} else {
					aa = ddk*ddk*gdx + ddk1*ddk1*hdx
				}
			}
			eta = bb / aa
		} else {
			eta = math.Sqrt(math.Abs(aa*aa - 4*bb*cc))
			if aa <= 0 {
				eta = (aa - eta) / (2 * cc)
			} else {
				eta = 2 * bb / (aa + eta)
			}
		}

		if fx*eta >= 0 {
			eta = -fx / fdx
		}
		if tau+eta > uppb || tau+eta < lowb {
			if fx < 0 {
				eta = (uppb - tau) / 2
			} else {
				eta = (lowb - tau) / 2
			}
		}

		tau += eta
		x = origin + tau

		oldfx = fx
		fx, fdx, gx, gdx, hx, hdx, er = secEval(secSkipOne, kk, dd, d, z, pinv, eta, true)
		bb = z[kk]
		aa = bb / d[kk]
		fdx += aa * aa
		bb *= aa
		fx += bb

		er += 8*(hx-gx) + 2*pinv + 3*math.Abs(bb) + math.Abs(tau)*fdx

		if fx*oldfx > 0 && math.Abs(fx) > math.Abs(oldfx)/10 {
			fixed = !fixed
		}
	}

	return x, false
}

// secSolveLast computes the root of the secular equation that lies above the
// largest pole d[dd-1]. The interval is unbounded above, so the bracketing
// and the interpolation model differ from the interior case: the root is
// known to lie in (d[dd-1], d[dd-1]+p), with p > 0 the perturbation scalar.
// dd must be at least 2.
//
// The in-place pole shifting, step validation and bisection fallback follow
// secSolve. On return d holds the distances from the poles to the computed
// root.
func secSolveLast(dd int, d, z []float64, p float64, tol float64) (x float64, converged bool) {
	k := dd - 1
	km1 := dd - 2
	dk := d[k]
	dkm1 := d[km1]
	x = dk + p/2
	pinv := 1 / p

	// Locate the root relative to the midpoint of (d[dd-1], d[dd-1]+p).
	cc, _, _, _, _, _, _ := secEval(secSkipTwo, km1, dd, d, z, pinv, x, false)
	gdx := z[km1] * z[km1]
	hdx := z[k] * z[k]
	fx := cc + gdx/(dkm1-x) - 2*hdx*pinv

	var lowb, uppb float64
	var aa, bb, eta, tau float64
	if fx > 0 {
		lowb = 0
		uppb = p / 2
		tau = dk - dkm1
		aa = -cc*tau + gdx + hdx
		bb = hdx * tau
		eta = math.Sqrt(aa*aa + 4*bb*cc)
		if aa < 0 {
			tau = 2 * bb / (eta - aa)
		} else {
			tau = (aa + eta) / (2 * cc)
		}
	} else {
		lowb = p / 2
		uppb = p
		eta = gdx/(dk-dkm1+p) + hdx/p
		if cc <= eta {
			tau = p
		} else {
			tau = dk - dkm1
			aa = -cc*tau + gdx + hdx
			bb = hdx * tau
			eta = math.Sqrt(aa*aa + 4*bb*cc)
			if aa < 0 {
				tau = 2 * bb / (eta - aa)
			} else {
				tau = (aa + eta) / (2 * cc)
			}
		}
	}
	x = dk + tau

	// Shift the poles to the origin d[dd-1], then to the initial guess.
	var gx, hx, er float64
	secEval(secFull, km1, dd, d, z, pinv, dk, true)
	fx, _, gx, gdx, hx, hdx, er = secEval(secFull, km1, dd, d, z, pinv, tau, true)

	er += math.Abs(tau)*(hdx+gdx) - 8*(hx+gx) - hx + pinv

	if math.Abs(fx) <= tol*er {
		return x, true
	}

	if fx <= 0 {
		lowb = math.Max(lowb, tau)
	} else {
		uppb = math.Min(uppb, tau)
	}

	// First step correction with the fixed-weight method.
	ddk := d[k]
	ddkm1 := d[km1]
	cc = math.Abs(fx - ddkm1*gdx - ddk*hdx)
	aa = (ddk+ddkm1)*fx - ddk*ddkm1*(gdx+hdx)
	bb = ddk * ddkm1 * fx
	if cc == 0 {
		eta = uppb - tau
	} else {
		eta = math.Sqrt(math.Abs(aa*aa - 4*bb*cc))
		if aa >= 0 {
			eta = (aa + eta) / (2 * cc)
		} else {
			eta = 2 * bb / (aa - eta)
		}
	}

	if fx*eta > 0 {
		eta = -fx / (gdx + hdx)
	}
	if tau+eta > uppb || tau+eta < lowb {
		if fx < 0 {
			eta = (uppb - tau) / 2
		} else {
			eta = (lowb - tau) / 2
		}
	}

	tau += eta
	x = dk + tau

	fx, _, gx, gdx, hx, hdx, er = secEval(secFull, km1, dd, d, z, pinv, eta, true)

	er += math.Abs(tau)*(hdx+gdx) - 8*(hx+gx) - hx + pinv

	for i := 1; i < maxIters; i++ {
		if math.Abs(fx) <= tol*er {
			return x, true
		}

		if fx <= 0 {
			lowb = math.Max(lowb, tau)
		} else {
			uppb = math.Min(uppb, tau)
		}

		ddk = d[k]
		ddkm1 = d[km1]
		cc = fx - ddkm1*gdx - ddk*hdx
		aa = (ddk+ddkm1)*fx - ddk*ddkm1*(gdx+hdx)
		bb = ddk * ddkm1 * fx
		eta = math.Sqrt(math.Abs(aa*aa - 4*bb*cc))
		if aa >= 0 {
			eta = (aa + eta) / (2 * cc)
		} else {
			eta = 2 * bb / (aa - eta)
		}

		if fx*eta > 0 {
			eta = -fx / (gdx + hdx)
		}
		if tau+eta > uppb || tau+eta < lowb {
			if fx < 0 {
				eta = (uppb - tau) / 2
			} else {
				eta = (lowb - tau) / 2
			}
		}

		tau += eta
		x = dk + tau

		fx, _, gx, gdx, hx, hdx, er = secEval(secFull, km1, dd, d, z, pinv, eta, true)

		er += math.Abs(tau)*(hdx+gdx) - 8*(hx+gx) - hx + pinv
	}

	return x, false
}
