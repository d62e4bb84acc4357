// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

import (
	"math"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
)

// poleSorter orders the compacted secular system ascending by pole value,
// carrying the rank-1 components and the permutation back to in-node
// positions.
type poleSorter struct {
	poles, z []float64
	per      []int
}

func (s poleSorter) Len() int           { return len(s.poles) }
func (s poleSorter) Less(i, j int) bool { return s.poles[i] < s.poles[j] }
func (s poleSorter) Swap(i, j int) {
	s.poles[i], s.poles[j] = s.poles[j], s.poles[i]
	s.z[i], s.z[j] = s.z[j], s.z[i]
	s.per[i], s.per[j] = s.per[j], s.per[i]
}

// solveBlock runs the leaf-solve and merge phases for one split block of a
// problem of size n. q is the n×n accumulator of tridiagonal eigenvectors;
// z, evs, active and per are per-instance scratch of length n, of which only
// the block's index range is touched, so disjoint blocks may run
// concurrently. It returns the number of eigenvalues that failed to converge.
func (s *Solver) solveBlock(n int, d, e, q []float64, ldq int, z, evs []float64, active []bool, per []int, t *mergeTree) int {
	direct := s.direct()
	workers := s.workers()

	// Solve phase: every leaf is independent.
	var nfail atomic.Int64
	var g errgroup.Group
	g.SetLimit(workers)
	for _, leaf := range t.leaves {
		g.Go(func() error {
			work := make([]float64, max(1, 2*leaf.size-2))
			ok := direct.Dsteqr(lapack.EVTridiag, leaf.size,
				d[leaf.off:leaf.off+leaf.size], e[leaf.off:],
				q[leaf.off*ldq+leaf.off:], ldq, work)
			if !ok {
				nfail.Add(int64(leaf.size))
			}
			return nil
		})
	}
	g.Wait()

	// Merge phase: levels are strictly sequential, since a node at level
	// k+1 reads eigenvector columns written by two sibling nodes at level
	// k. Nodes within a level write disjoint column ranges and run
	// concurrently without locks.
	for k := 0; k < t.levels; k++ {
		nodes := t.nodes[k]
		if len(nodes) == 1 {
			nfail.Add(int64(s.mergeNode(n, d, e, q, ldq, nodes[0], z, evs, active, per, workers)))
			continue
		}
		var lg errgroup.Group
		lg.SetLimit(workers)
		for _, node := range nodes {
			lg.Go(func() error {
				nfail.Add(int64(s.mergeNode(n, d, e, q, ldq, node, z, evs, active, per, 1)))
				return nil
			})
		}
		lg.Wait()
	}
	return int(nfail.Load())
}

// mergeNode combines the spectra of the two solved children of node into
// the spectrum of their union via a rank-one perturbation. On entry the
// diagonal range d[off:off+size] holds the children's eigenvalues and the
// corresponding columns of q their eigenvectors; on return they hold the
// merged eigenpairs. Deflated positions are left untouched. workers bounds
// the concurrent secular root solves; it returns the number of roots that
// failed to converge.
func (s *Solver) mergeNode(n int, d, e, q []float64, ldq int, node treeNode, z, evs []float64, active []bool, per []int, workers int) int {
	in := node.off
	sz := node.size
	mid := node.mid

	// Rank-1 update: rho is twice the junction off-diagonal, and z holds
	// the boundary eigenvector rows of the two children scaled by 1/√2.
	rho := 2 * e[mid-1]
	for j := in; j < mid; j++ {
		z[j] = q[(mid-1)*ldq+j] / math.Sqrt2
	}
	for j := mid; j < in+sz; j++ {
		z[j] = q[mid*ldq+j] / math.Sqrt2
	}

	// Deflation tolerance over every element participating in this merge.
	var maxd, maxz float64
	for j := in; j < in+sz; j++ {
		maxd = math.Max(maxd, math.Abs(d[j]))
		maxz = math.Max(maxz, math.Abs(z[j]))
	}
	tol := 8 * dlamchE * math.Max(maxd, maxz)

	// Deflate. The scan is sequential: each decision depends on the
	// cumulative deflation state of the positions before it.
	bi := blas64.Implementation()
	for i := in; i < in+sz; i++ {
		g := z[i]
		if math.Abs(rho*g) <= tol {
			active[i] = false
			continue
		}
		active[i] = true
		for j := in; j < i; j++ {
			if !active[j] || math.Abs(d[j]-d[i]) > tol {
				continue
			}
			// d[i] duplicates an earlier active pole: a Givens rotation
			// folds z[i] into z[j], and the transposed rotation applied to
			// the eigenvector columns preserves the product q·z.
			cs, sn, r := lapackImpl.Dlartg(z[j], g)
			z[j] = r
			z[i] = 0
			active[i] = false
			bi.Drot(n, q[j:], ldq, q[i:], ldq, cs, sn)
			break
		}
	}

	// Assemble the reduced secular system: compact the active poles and
	// rank-1 components, normalized so the perturbation scalar is
	// positive, and sort ascending by pole carrying the permutation.
	dd := 0
	for i := 0; i < sz; i++ {
		if !active[in+i] {
			continue
		}
		per[in+dd] = i
		z[in+dd] = z[in+i]
		dd++
	}
	if dd == 0 {
		// Both children's spectra survive unchanged.
		return 0
	}
	poles := make([]float64, dd)
	for i := 0; i < dd; i++ {
		p := d[in+per[in+i]]
		if rho < 0 {
			p = -p
		}
		poles[i] = p
	}
	zz := z[in : in+dd]
	pp := per[in : in+dd]
	sort.Stable(poleSorter{poles: poles, z: zz, per: pp})

	inv := make([]int, sz)
	for i, p := range pp {
		inv[p] = i
	}

	actives := make([]int, 0, dd)
	for j := 0; j < sz; j++ {
		if active[in+j] {
			actives = append(actives, j)
		}
	}

	for i := in; i < in+sz; i++ {
		evs[i] = d[i]
	}

	prho := math.Abs(rho)

	// Solve the secular equation for every active position. Each solve
	// works on its own copy of the poles, shifted in place so that on
	// return shifted[j*dd+i] holds pole_i − λ_j with full relative
	// accuracy.
	shifted := make([]float64, sz*dd)
	solve := func(j int) bool {
		w := shifted[j*dd : (j+1)*dd]
		copy(w, poles)
		if dd == 1 {
			// Everything else deflated: the single root is explicit,
			// λ = pole + ρz².
			t := prho * zz[0] * zz[0]
			lam := w[0] + t
			w[0] = -t
			if rho < 0 {
				lam = -lam
			}
			evs[in+j] = lam
			return true
		}
		var (
			x  float64
			ok bool
		)
		if cc := inv[j]; cc == dd-1 {
			x, ok = secSolveLast(dd, w, zz, prho, dlamchE)
		} else {
			x, ok = secSolve(dd, w, zz, prho, cc, dlamchE)
		}
		if rho < 0 {
			x = -x
		}
		evs[in+j] = x
		return ok
	}

	var fail int
	if workers > 1 && dd >= 16 {
		var nfail atomic.Int64
		var g errgroup.Group
		g.SetLimit(workers)
		for _, j := range actives {
			g.Go(func() error {
				if !solve(j) {
					nfail.Add(1)
				}
				return nil
			})
		}
		g.Wait()
		fail = int(nfail.Load())
	} else {
		for _, j := range actives {
			if !solve(j) {
				fail++
			}
		}
	}

	// Rescale z from the explicit product formula using the per-root
	// shifted pole copies, restoring the original signs. This recovers the
	// component magnitudes the computed roots are exactly consistent with.
	for i := 0; i < dd; i++ {
		pi := pp[i]
		v := 1.0
		for _, j := range actives {
			val := shifted[j*dd+i]
			if j == pi {
				v *= val
				continue
			}
			den := d[in+pi] - d[in+j]
			if rho < 0 {
				v *= -val / den
			} else {
				v *= val / den
			}
		}
		v = math.Sqrt(-v)
		if zz[i] < 0 {
			v = -v
		}
		zz[i] = v
	}

	// Compute the eigenvector for every active target: v = z ⊘ (D−λ)
	// normalized, then the new column is the local basis times v. The
	// products read the pre-merge columns of q, so they are buffered and
	// written back only after every column is formed.
	vecs := make([]float64, sz*sz)
	for _, j := range actives {
		w := shifted[j*dd : (j+1)*dd]
		var nrm float64
		for i := range w {
			w[i] = zz[i] / w[i]
			nrm += w[i] * w[i]
		}
		nrm = math.Sqrt(nrm)
		for r := 0; r < sz; r++ {
			var sum float64
			row := q[(in+r)*ldq+in:]
			for k := 0; k < dd; k++ {
				sum += row[pp[k]] * w[k]
			}
			vecs[j*sz+r] = sum / nrm
		}
	}

	// Write back the merged eigenpairs.
	for _, j := range actives {
		d[in+j] = evs[in+j]
		for r := 0; r < sz; r++ {
			q[(in+r)*ldq+in+j] = vecs[j*sz+r]
		}
	}
	return fail
}
