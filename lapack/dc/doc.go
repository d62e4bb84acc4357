// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dc provides a divide-and-conquer eigensolver for symmetric
// tridiagonal matrices, optionally batched across independent problem
// instances.
//
// The matrix is given by its diagonal d and sub-diagonal e, typically the
// output of a prior reduction to tridiagonal form. The solver partitions the
// matrix into independent blocks wherever an off-diagonal element is
// negligible, artificially divides each block into a binary tree of small
// sub-blocks, solves the sub-blocks with a direct method, and then merges
// sibling spectra level by level, each merge being a rank-one perturbation
// whose eigenvalues are the roots of a secular equation. Deflation removes
// negligible or duplicate contributions before any root is solved for, so
// later merges work with a reduced secular system.
//
// All matrices use row-major storage with an explicit leading dimension,
// following the convention of gonum.org/v1/gonum/lapack.
package dc
