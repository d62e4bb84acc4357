// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/lapack"
	lapackgonum "gonum.org/v1/gonum/lapack/gonum"

	"github.com/jamestjsp/stedc/lapack/dc"
	"github.com/jamestjsp/stedc/lapack/testdc"
)

func TestStedc(t *testing.T) {
	testdc.StedcTest(t, &dc.Solver{})
}

func TestStedcForcedDC(t *testing.T) {
	// A tiny crossover forces the divide-and-conquer path for every size
	// that can be divided at all.
	testdc.StedcTest(t, &dc.Solver{MinDCSize: 3})
}

func TestStedcSerial(t *testing.T) {
	testdc.StedcTest(t, &dc.Solver{MinDCSize: 3, Workers: 1})
}

func TestStedcQuickReturn(t *testing.T) {
	var s dc.Solver

	// n = 0: success, no writes.
	if info := s.Stedc(lapack.EVTridiag, 0, nil, nil, nil, 1); info != 0 {
		t.Errorf("n=0: info=%d", info)
	}

	// n = 1: the diagonal value is the eigenvalue and the eigenvector
	// matrix is the 1×1 identity. No root solving is involved.
	d := []float64{2.5}
	c := []float64{-3}
	if info := s.Stedc(lapack.EVTridiag, 1, d, nil, c, 1); info != 0 {
		t.Errorf("n=1: info=%d", info)
	}
	if d[0] != 2.5 || c[0] != 1 {
		t.Errorf("n=1: d=%v c=%v, want 2.5 and 1", d[0], c[0])
	}
}

func TestStedcDiagonal(t *testing.T) {
	// All off-diagonals exactly zero: the matrix splits into 1×1 blocks,
	// no merge is ever performed, and the input is already the answer.
	s := dc.Solver{MinDCSize: 3}
	d := []float64{4, 4, 4, 4}
	e := []float64{0, 0, 0}
	c := make([]float64, 16)
	if info := s.Stedc(lapack.EVTridiag, 4, d, e, c, 4); info != 0 {
		t.Fatalf("info=%d", info)
	}
	for i := range d {
		if d[i] != 4 {
			t.Errorf("d[%d]=%v, want 4", i, d[i])
		}
	}
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			want := 0.0
			if i == j {
				want = 1
			}
			if c[i*4+j] != want {
				t.Errorf("c[%d,%d]=%v, want %v", i, j, c[i*4+j], want)
			}
		}
	}
}

func TestStedc2x2(t *testing.T) {
	// Eigenvalues of [1 1; 1 3] are the roots of (1-λ)(3-λ)-1 = 0,
	// that is 2 ± √2.
	var s dc.Solver
	d := []float64{1, 3}
	e := []float64{1}
	c := make([]float64, 4)
	if info := s.Stedc(lapack.EVTridiag, 2, d, e, c, 2); info != 0 {
		t.Fatalf("info=%d", info)
	}
	want := []float64{2 - math.Sqrt2, 2 + math.Sqrt2}
	if !floats.EqualApprox(d, want, 1e-14) {
		t.Errorf("eigenvalues %v, want %v", d, want)
	}
	if resid := testdc.OrthogonalityResidual(2, c, 2); resid > 1e-14 {
		t.Errorf("orthogonality residual %v", resid)
	}
}

func TestStedcEigenvaluesOnly(t *testing.T) {
	rnd := rand.New(rand.NewPCG(5, 5))
	var s dc.Solver
	ref := lapackgonum.Implementation{}
	for _, n := range []int{1, 2, 10, 64} {
		d, e := testdc.RandomTridiag(n, rnd)
		dGot := make([]float64, n)
		copy(dGot, d)
		eGot := make([]float64, len(e))
		copy(eGot, e)
		if info := s.Stedc(lapack.EVCompNone, n, dGot, eGot, nil, 1); info != 0 {
			t.Fatalf("n=%d: info=%d", n, info)
		}

		dWant := make([]float64, n)
		copy(dWant, d)
		eWant := make([]float64, len(e))
		copy(eWant, e)
		cRef := make([]float64, n*n)
		work := make([]float64, max(1, 2*n-2))
		if !ref.Dsteqr(lapack.EVTridiag, n, dWant, eWant, cRef, max(1, n), work) {
			t.Fatalf("n=%d: reference failed", n)
		}
		if !floats.EqualApprox(dGot, dWant, 1e-12*float64(n)) {
			t.Errorf("n=%d: eigenvalues mismatch", n)
		}
	}
}

func TestStedcAgainstDirect(t *testing.T) {
	// A 200×200 diagonally dominant matrix through the full
	// divide-and-conquer path must agree with an independent direct solve
	// to 1e-10 relative error on every eigenvalue, with no convergence
	// failures.
	rnd := rand.New(rand.NewPCG(6, 6))
	const n = 200
	d, e := testdc.RandomDominantTridiag(n, rnd)

	dGot := make([]float64, n)
	copy(dGot, d)
	eGot := make([]float64, n-1)
	copy(eGot, e)
	c := make([]float64, n*n)
	var s dc.Solver
	if info := s.Stedc(lapack.EVTridiag, n, dGot, eGot, c, n); info != 0 {
		t.Fatalf("info=%d, want 0", info)
	}

	dWant := make([]float64, n)
	copy(dWant, d)
	eWant := make([]float64, n-1)
	copy(eWant, e)
	cRef := make([]float64, n*n)
	work := make([]float64, 2*n-2)
	ref := lapackgonum.Implementation{}
	if !ref.Dsteqr(lapack.EVTridiag, n, dWant, eWant, cRef, n, work) {
		t.Fatal("reference failed")
	}
	for i := range dGot {
		if math.Abs(dGot[i]-dWant[i]) > 1e-10*math.Max(1, math.Abs(dWant[i])) {
			t.Errorf("eigenvalue %d: got %v, want %v", i, dGot[i], dWant[i])
		}
	}
	if resid := testdc.OrthogonalityResidual(n, c, n); resid > 1e-13*n {
		t.Errorf("orthogonality residual %v", resid)
	}
}

func TestStedcOriginalBasis(t *testing.T) {
	// With compz == lapack.EVOrig the result must equal the entry basis
	// times the tridiagonal eigenvectors.
	rnd := rand.New(rand.NewPCG(7, 7))
	const n = 40
	s := dc.Solver{MinDCSize: 3}

	// An orthogonal basis: the eigenvectors of some other tridiagonal.
	db, eb := testdc.RandomTridiag(n, rnd)
	basis := make([]float64, n*n)
	if info := s.Stedc(lapack.EVTridiag, n, db, eb, basis, n); info != 0 {
		t.Fatalf("basis solve: info=%d", info)
	}

	d, e := testdc.RandomTridiag(n, rnd)

	d1 := make([]float64, n)
	copy(d1, d)
	e1 := make([]float64, n-1)
	copy(e1, e)
	q := make([]float64, n*n)
	if info := s.Stedc(lapack.EVTridiag, n, d1, e1, q, n); info != 0 {
		t.Fatalf("tridiagonal solve: info=%d", info)
	}

	d2 := make([]float64, n)
	copy(d2, d)
	e2 := make([]float64, n-1)
	copy(e2, e)
	c := make([]float64, n*n)
	copy(c, basis)
	if info := s.Stedc(lapack.EVOrig, n, d2, e2, c, n); info != 0 {
		t.Fatalf("original-basis solve: info=%d", info)
	}

	if !floats.EqualApprox(d1, d2, 1e-13*float64(n)) {
		t.Error("eigenvalues differ between jobs")
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			var want float64
			for k := 0; k < n; k++ {
				want += basis[i*n+k] * q[k*n+j]
			}
			if math.Abs(c[i*n+j]-want) > 1e-12*float64(n) {
				t.Fatalf("c[%d,%d]=%v, want %v", i, j, c[i*n+j], want)
			}
		}
	}
}

func TestStedcRepeatedEigenvalues(t *testing.T) {
	// A symmetric arrangement makes the two children of the merge produce
	// identical spectra, so every secular system is built under heavy
	// duplicate deflation. The multiplicities must survive.
	s := dc.Solver{MinDCSize: 3}
	d := []float64{5, 5, 5, 5}
	e := []float64{0.1, 0.05, 0.1}
	dGot := make([]float64, 4)
	copy(dGot, d)
	eGot := make([]float64, 3)
	copy(eGot, e)
	c := make([]float64, 16)
	if info := s.Stedc(lapack.EVTridiag, 4, dGot, eGot, c, 4); info != 0 {
		t.Fatalf("info=%d", info)
	}

	dWant := []float64{5, 5, 5, 5}
	eWant := []float64{0.1, 0.05, 0.1}
	cRef := make([]float64, 16)
	work := make([]float64, 6)
	if !(lapackgonum.Implementation{}).Dsteqr(lapack.EVTridiag, 4, dWant, eWant, cRef, 4, work) {
		t.Fatal("reference failed")
	}
	if !floats.EqualApprox(dGot, dWant, 1e-13) {
		t.Errorf("eigenvalues %v, want %v", dGot, dWant)
	}
	if resid := testdc.OrthogonalityResidual(4, c, 4); resid > 1e-14 {
		t.Errorf("orthogonality residual %v", resid)
	}
	if resid := testdc.ReconstructionResidual(4, d, e, dGot, c, 4); resid > 1e-13 {
		t.Errorf("reconstruction residual %v", resid)
	}
}

func TestStedcDuplicatePoleDeflation(t *testing.T) {
	// Mirror-symmetric halves: the two leaves have identical spectra, so
	// the merge folds each duplicate pole into its twin by a Givens
	// rotation. The rotated columns must still reproduce T, not just stay
	// orthonormal.
	s := dc.Solver{MinDCSize: 3}
	d := []float64{1, 2.001, 2.001, 1}
	e := []float64{0.5, 0.001, 0.5}
	dGot := make([]float64, 4)
	copy(dGot, d)
	eGot := make([]float64, 3)
	copy(eGot, e)
	c := make([]float64, 16)
	if info := s.Stedc(lapack.EVTridiag, 4, dGot, eGot, c, 4); info != 0 {
		t.Fatalf("info=%d", info)
	}
	for i := 1; i < 4; i++ {
		if dGot[i] < dGot[i-1] {
			t.Fatalf("eigenvalues not ascending: %v", dGot)
		}
	}
	if resid := testdc.OrthogonalityResidual(4, c, 4); resid > 1e-14 {
		t.Errorf("orthogonality residual %v", resid)
	}
	if resid := testdc.ReconstructionResidual(4, d, e, dGot, c, 4); resid > 1e-13 {
		t.Errorf("reconstruction residual %v", resid)
	}
}

func TestStedcFullDeflation(t *testing.T) {
	// The junction coupling is far below the deflation tolerance but above
	// the split threshold: every position of the merge deflates and the
	// children's spectra pass through unchanged.
	s := dc.Solver{MinDCSize: 3}
	d := []float64{5, 4, 6, 3}
	e := []float64{0.5, 2e-15, 0.5}
	dGot := make([]float64, 4)
	copy(dGot, d)
	eGot := make([]float64, 3)
	copy(eGot, e)
	c := make([]float64, 16)
	if info := s.Stedc(lapack.EVTridiag, 4, dGot, eGot, c, 4); info != 0 {
		t.Fatalf("info=%d", info)
	}
	for i := 1; i < 4; i++ {
		if dGot[i] < dGot[i-1] {
			t.Fatalf("eigenvalues not ascending: %v", dGot)
		}
	}
	if resid := testdc.OrthogonalityResidual(4, c, 4); resid > 1e-14 {
		t.Errorf("orthogonality residual %v", resid)
	}
	if resid := testdc.ReconstructionResidual(4, d, e, dGot, c, 4); resid > 1e-13 {
		t.Errorf("reconstruction residual %v", resid)
	}
}

func TestStedcHighMultiplicity(t *testing.T) {
	// Near-multiple of the identity: all eigenvalues equal to working
	// precision, multiplicity preserved.
	s := dc.Solver{MinDCSize: 3}
	const n = 5
	d := make([]float64, n)
	e := make([]float64, n-1)
	for i := range d {
		d[i] = 2
	}
	for i := range e {
		e[i] = 1e-13
	}
	c := make([]float64, n*n)
	if info := s.Stedc(lapack.EVTridiag, n, d, e, c, n); info != 0 {
		t.Fatalf("info=%d", info)
	}
	for i := range d {
		if math.Abs(d[i]-2) > 1e-12 {
			t.Errorf("eigenvalue %d = %v, want 2 within 1e-12", i, d[i])
		}
	}
	if resid := testdc.OrthogonalityResidual(n, c, n); resid > 1e-13 {
		t.Errorf("orthogonality residual %v", resid)
	}
}
