// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

import "math"

// splitBlocks scans the tridiagonal matrix given by d and e and returns the
// boundaries of its independent blocks: bounds[b] is the first index of
// block b and bounds[len(bounds)-1] == n. An off-diagonal element e[j] is
// treated as zero when
//
//	|e[j]| < eps·sqrt(|d[j]|)·sqrt(|d[j+1]|)
//
// in which case the matrix decouples at j and the two sides can be solved
// independently.
func splitBlocks(n int, d, e []float64) []int {
	bounds := make([]int, 1, 8)
	for j := 0; j < n-1; j++ {
		tol := dlamchE * math.Sqrt(math.Abs(d[j])) * math.Sqrt(math.Abs(d[j+1]))
		if math.Abs(e[j]) < tol {
			bounds = append(bounds, j+1)
		}
	}
	return append(bounds, n)
}
