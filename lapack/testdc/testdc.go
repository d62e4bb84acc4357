// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package testdc provides shared helpers for testing implementations of the
// divide-and-conquer tridiagonal eigensolver.
package testdc

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/lapack"
	lapackgonum "gonum.org/v1/gonum/lapack/gonum"
)

// Stedcer computes the eigendecomposition of a symmetric tridiagonal matrix
// in place, returning 0 on success.
type Stedcer interface {
	Stedc(compz lapack.EVComp, n int, d, e, c []float64, ldc int) int
}

// RandomTridiag returns a random symmetric tridiagonal matrix with standard
// normal entries.
func RandomTridiag(n int, rnd *rand.Rand) (d, e []float64) {
	d = make([]float64, n)
	e = make([]float64, max(0, n-1))
	for i := range d {
		d[i] = rnd.NormFloat64()
	}
	for i := range e {
		e[i] = rnd.NormFloat64()
	}
	return d, e
}

// RandomDominantTridiag returns a random diagonally dominant symmetric
// tridiagonal matrix: off-diagonals in (-1, 1) and diagonal entries whose
// magnitude exceeds the sum of their neighbors.
func RandomDominantTridiag(n int, rnd *rand.Rand) (d, e []float64) {
	d = make([]float64, n)
	e = make([]float64, max(0, n-1))
	for i := range e {
		e[i] = 2*rnd.Float64() - 1
	}
	for i := range d {
		var s float64
		if i > 0 {
			s += math.Abs(e[i-1])
		}
		if i < n-1 {
			s += math.Abs(e[i])
		}
		d[i] = (s + 1 + rnd.Float64()) * float64(2*rnd.IntN(2)-1)
	}
	return d, e
}

// OrthogonalityResidual returns the largest absolute deviation of cᵀc from
// the identity, where c is n×n with row stride ldc.
func OrthogonalityResidual(n int, c []float64, ldc int) float64 {
	var resid float64
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var dot float64
			for k := 0; k < n; k++ {
				dot += c[k*ldc+i] * c[k*ldc+j]
			}
			if i == j {
				dot -= 1
			}
			resid = math.Max(resid, math.Abs(dot))
		}
	}
	return resid
}

// ReconstructionResidual returns the largest absolute entry of
// c·diag(eig)·cᵀ − T, where T is the symmetric tridiagonal matrix with
// diagonal d and sub-diagonal e.
func ReconstructionResidual(n int, d, e, eig, c []float64, ldc int) float64 {
	var resid float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var sum float64
			for k := 0; k < n; k++ {
				sum += c[i*ldc+k] * eig[k] * c[j*ldc+k]
			}
			var want float64
			switch {
			case i == j:
				want = d[i]
			case i == j+1:
				want = e[j]
			case j == i+1:
				want = e[i]
			}
			resid = math.Max(resid, math.Abs(sum-want))
		}
	}
	return resid
}

// TNorm returns the maximum absolute entry of the tridiagonal matrix given
// by d and e, a cheap stand-in for its norm in residual scaling.
func TNorm(d, e []float64) float64 {
	var norm float64
	for _, v := range d {
		norm = math.Max(norm, math.Abs(v))
	}
	for _, v := range e {
		norm = math.Max(norm, math.Abs(v))
	}
	return norm
}

// StedcTest exercises an eigensolver on random matrices of a range of sizes
// and verifies the computed decompositions: eigenvalues ascending and
// matching an independent QR-iteration reference, eigenvectors orthonormal,
// and the original matrix reconstructed from the eigenpairs.
//
// Intermediate merge products are not observable from outside a solver, but
// a final matrix that is orthonormal and reconstructs T can only arise from
// orthonormal intermediate factors, so the two final checks cover the inner
// merge levels transitively.
func StedcTest(t *testing.T, impl Stedcer) {
	rnd := rand.New(rand.NewPCG(1, 1))
	ref := lapackgonum.Implementation{}

	for _, n := range []int{1, 2, 3, 4, 5, 8, 13, 16, 33, 50, 100, 201} {
		for trial := 0; trial < 3; trial++ {
			d, e := RandomTridiag(n, rnd)
			dGot := make([]float64, n)
			copy(dGot, d)
			eGot := make([]float64, len(e))
			copy(eGot, e)
			c := make([]float64, n*n)

			info := impl.Stedc(lapack.EVTridiag, n, dGot, eGot, c, n)
			if info != 0 {
				t.Errorf("n=%d trial=%d: info=%d, want 0", n, trial, info)
			}

			// Eigenvalues must be in ascending order.
			if !sortedAscending(dGot) {
				t.Errorf("n=%d trial=%d: eigenvalues not ascending", n, trial)
			}

			// Compare against the QR-iteration reference.
			dWant := make([]float64, n)
			copy(dWant, d)
			eWant := make([]float64, len(e))
			copy(eWant, e)
			cRef := make([]float64, n*n)
			work := make([]float64, max(1, 2*n-2))
			if !ref.Dsteqr(lapack.EVTridiag, n, dWant, eWant, cRef, n, work) {
				t.Fatalf("n=%d trial=%d: reference solver failed", n, trial)
			}
			tol := 1e-12 * math.Max(1, TNorm(d, e)) * float64(n)
			if !floats.EqualApprox(dGot, dWant, tol) {
				t.Errorf("n=%d trial=%d: eigenvalues mismatch reference", n, trial)
			}

			// Eigenvector matrix must be orthonormal to O(n·eps).
			orthTol := 1e-13 * float64(n)
			if resid := OrthogonalityResidual(n, c, n); resid > orthTol {
				t.Errorf("n=%d trial=%d: orthogonality residual %v exceeds %v", n, trial, resid, orthTol)
			}

			// The eigenpairs must reconstruct T.
			reconTol := 1e-13 * float64(n) * math.Max(1, TNorm(d, e))
			if resid := ReconstructionResidual(n, d, e, dGot, c, n); resid > reconTol {
				t.Errorf("n=%d trial=%d: reconstruction residual %v exceeds %v", n, trial, resid, reconTol)
			}
		}
	}
}

func sortedAscending(s []float64) bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}
