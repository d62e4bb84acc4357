// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

import "gonum.org/v1/gonum/blas/blas64"

// sortEigen orders the eigenvalues in d ascending by selection sort,
// swapping the corresponding columns of c in lockstep. It runs once per
// instance after all merges; sorting an already ordered spectrum performs
// no swaps.
func sortEigen(n int, d, c []float64, ldc int) {
	bi := blas64.Implementation()
	for i := 1; i < n; i++ {
		l := i - 1
		m := l
		p := d[l]
		for j := i; j < n; j++ {
			if d[j] < p {
				m = j
				p = d[j]
			}
		}
		if m == l {
			continue
		}
		d[m] = d[l]
		d[l] = p
		if c != nil {
			bi.Dswap(n, c[l:], ldc, c[m:], ldc)
		}
	}
}
