// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/lapack"
	lapackgonum "gonum.org/v1/gonum/lapack/gonum"
)

// lapackImpl provides the small LAPACK building blocks (Givens rotation
// generation and the default direct solvers).
var lapackImpl lapackgonum.Implementation

// minDCSize is the default crossover: problems below this size are handed
// to the direct solver without dividing.
const minDCSize = 32

// DirectSolver is the classical iterative tridiagonal eigensolver used for
// the tree leaves and for problems too small to be worth dividing. It is
// satisfied by gonum.org/v1/gonum/lapack/gonum.Implementation.
type DirectSolver interface {
	// Dsteqr computes the eigenpairs of a symmetric tridiagonal matrix
	// using the implicit QL or QR method.
	Dsteqr(compz lapack.EVComp, n int, d, e, z []float64, ldz int, work []float64) (ok bool)
	// Dsterf computes only the eigenvalues using the
	// Pal-Walker-Kahan variant of the QL or QR method.
	Dsterf(n int, d, e []float64) (ok bool)
}

// Solver computes all eigenvalues, and optionally eigenvectors, of symmetric
// tridiagonal matrices by the divide-and-conquer method. The zero value is
// ready to use.
type Solver struct {
	// Direct is the solver used for tree leaves and for small problems.
	// If nil, the gonum implementation is used.
	Direct DirectSolver

	// MinDCSize is the size below which a problem bypasses the
	// divide-and-conquer machinery entirely. If zero, a default of 32 is
	// used.
	MinDCSize int

	// Workers bounds the number of concurrently processed units of work
	// (batch instances, split blocks, leaves, merge nodes). If zero,
	// GOMAXPROCS is used.
	Workers int
}

func (s *Solver) direct() DirectSolver {
	if s.Direct != nil {
		return s.Direct
	}
	return lapackImpl
}

func (s *Solver) minDC() int {
	if s.MinDCSize > 0 {
		return s.MinDCSize
	}
	return minDCSize
}

func (s *Solver) workers() int {
	if s.Workers > 0 {
		return s.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// Stedc computes the eigenvalues and, optionally, the eigenvectors of the
// n×n symmetric tridiagonal matrix T with diagonal d and sub-diagonal e.
//
// compz selects the job:
//   - lapack.EVCompNone: eigenvalues only; c is not referenced.
//   - lapack.EVTridiag: c is overwritten with the orthonormal eigenvectors
//     of T.
//   - lapack.EVOrig: on entry c contains the orthogonal basis used to reduce
//     the original matrix to T; on return it is overwritten with the
//     eigenvectors of the original matrix.
//
// On return d holds the eigenvalues in ascending order and e is destroyed.
// c must have dimensions n×n with stride ldc when eigenvectors are
// requested.
//
// The returned info is 0 on success. A positive value is the number of
// eigenvalues whose secular-equation root search did not converge to full
// precision (or n if the direct solver failed); the remaining eigenpairs
// are still valid and the affected ones are the best available
// approximations. No failure aborts the computation.
func (s *Solver) Stedc(compz lapack.EVComp, n int, d, e, c []float64, ldc int) (info int) {
	switch {
	case compz != lapack.EVCompNone && compz != lapack.EVTridiag && compz != lapack.EVOrig:
		panic(badEVComp)
	case n < 0:
		panic(nLT0)
	case compz != lapack.EVCompNone && ldc < max(1, n):
		panic(badLdC)
	}

	// Quick return.
	if n == 0 {
		return 0
	}

	switch {
	case len(d) < n:
		panic(shortD)
	case len(e) < n-1:
		panic(shortE)
	case compz != lapack.EVCompNone && len(c) < (n-1)*ldc+n:
		panic(shortC)
	}

	if n == 1 {
		if compz != lapack.EVCompNone {
			c[0] = 1
		}
		return 0
	}

	// Without eigenvectors the classical solver is already optimal.
	if compz == lapack.EVCompNone {
		if !s.direct().Dsterf(n, d, e) {
			return n
		}
		return 0
	}

	// Small problems are not worth dividing.
	if n < s.minDC() {
		work := make([]float64, max(1, 2*n-2))
		if !s.direct().Dsteqr(compz, n, d, e, c, ldc, work) {
			return n
		}
		return 0
	}

	return s.divideAndConquer(compz, n, d, e, c, ldc)
}

// divideAndConquer runs the split, divide, leaf-solve, merge and sort phases
// for one instance with eigenvectors requested.
func (s *Solver) divideAndConquer(compz lapack.EVComp, n int, d, e, c []float64, ldc int) (info int) {
	// q accumulates the eigenvectors of the tridiagonal problem; the
	// caller's basis is applied in a single multiply at the end.
	q := make([]float64, n*n)
	for i := 0; i < n; i++ {
		q[i*n+i] = 1
	}

	// Split phase, then divide each independent block. Both are cheap
	// single passes; the division also fixes the merge-tree shape for the
	// rest of the computation.
	bounds := splitBlocks(n, d, e)
	trees := make([]*mergeTree, len(bounds)-1)
	for b := range trees {
		trees[b] = newMergeTree(d, e, bounds[b], bounds[b+1])
	}

	// Scratch shared by all split blocks: every block touches only its own
	// index range.
	z := make([]float64, n)
	evs := make([]float64, n)
	active := make([]bool, n)
	per := make([]int, n)

	var nfail int
	if len(trees) == 1 {
		nfail = s.solveBlock(n, d, e, q, n, z, evs, active, per, trees[0])
	} else {
		var g errgroup.Group
		g.SetLimit(s.workers())
		fails := make([]int, len(trees))
		for b, t := range trees {
			g.Go(func() error {
				fails[b] = s.solveBlock(n, d, e, q, n, z, evs, active, per, t)
				return nil
			})
		}
		g.Wait()
		for _, f := range fails {
			nfail += f
		}
	}

	// Back-transform into the caller's basis and sort.
	if compz == lapack.EVOrig {
		bi := blas64.Implementation()
		tmp := make([]float64, n*n)
		bi.Dgemm(blas.NoTrans, blas.NoTrans, n, n, n, 1, c, ldc, q, n, 0, tmp, n)
		for i := 0; i < n; i++ {
			copy(c[i*ldc:i*ldc+n], tmp[i*n:i*n+n])
		}
	} else {
		for i := 0; i < n; i++ {
			copy(c[i*ldc:i*ldc+n], q[i*n:i*n+n])
		}
	}
	sortEigen(n, d, c, ldc)
	return nfail
}

// StedcBatch solves a batch of independent n×n symmetric tridiagonal
// eigenproblems in parallel. Instance b has diagonal d[b*strideD:], sub-
// diagonal e[b*strideE:] and, when eigenvectors are requested, the n×n
// matrix c[b*strideC:] with row stride ldc. compz has the same meaning as
// in Stedc.
//
// info must have length batch; info[b] receives the per-instance status in
// the convention of Stedc. Instances never interact and may complete in any
// order. The returned error is non-nil only if ctx is cancelled; instances
// already processed retain their results and instances skipped because of
// the cancellation have info[b] set to -1.
func (s *Solver) StedcBatch(ctx context.Context, compz lapack.EVComp, n, batch int, d []float64, strideD int, e []float64, strideE int, c []float64, ldc, strideC int, info []int) error {
	switch {
	case compz != lapack.EVCompNone && compz != lapack.EVTridiag && compz != lapack.EVOrig:
		panic(badEVComp)
	case n < 0:
		panic(nLT0)
	case batch < 0:
		panic(batchLT0)
	case strideD < n:
		panic(badStrideD)
	case strideE < max(0, n-1):
		panic(badStrideE)
	case compz != lapack.EVCompNone && ldc < max(1, n):
		panic(badLdC)
	case compz != lapack.EVCompNone && strideC < (max(1, n)-1)*ldc+n:
		panic(badStrideC)
	}
	if batch == 0 {
		return nil
	}
	switch {
	case len(info) < batch:
		panic(shortInfo)
	case len(d) < (batch-1)*strideD+n:
		panic(shortD)
	case n > 1 && len(e) < (batch-1)*strideE+n-1:
		panic(shortE)
	case compz != lapack.EVCompNone && n > 0 && len(c) < (batch-1)*strideC+(n-1)*ldc+n:
		panic(shortC)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers())
	for b := 0; b < batch; b++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				info[b] = -1
				return err
			}
			var eb, cb []float64
			if n > 1 {
				eb = e[b*strideE:]
			}
			if compz != lapack.EVCompNone && n > 0 {
				cb = c[b*strideC:]
			}
			info[b] = s.Stedc(compz, n, d[b*strideD:], eb, cb, ldc)
			return nil
		})
	}
	return g.Wait()
}
