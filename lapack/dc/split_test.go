// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

import (
	"math/rand/v2"
	"testing"
)

func TestSplitBlocksZeroOffDiag(t *testing.T) {
	// Every off-diagonal negligible: n independent 1×1 blocks.
	d := []float64{4, 4, 4, 4}
	e := []float64{0, 0, 0}
	bounds := splitBlocks(4, d, e)
	want := []int{0, 1, 2, 3, 4}
	if len(bounds) != len(want) {
		t.Fatalf("got %d boundaries, want %d", len(bounds), len(want))
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("bounds[%d]=%d, want %d", i, bounds[i], want[i])
		}
	}
}

func TestSplitBlocksCoupled(t *testing.T) {
	// No negligible off-diagonal: a single block.
	rnd := rand.New(rand.NewPCG(1, 1))
	n := 20
	d := make([]float64, n)
	e := make([]float64, n-1)
	for i := range d {
		d[i] = 1 + rnd.Float64()
	}
	for i := range e {
		e[i] = 0.5 + rnd.Float64()
	}
	bounds := splitBlocks(n, d, e)
	if len(bounds) != 2 || bounds[0] != 0 || bounds[1] != n {
		t.Errorf("got boundaries %v, want [0 %d]", bounds, n)
	}
}

func TestSplitBlocksMixed(t *testing.T) {
	d := []float64{2, 2, 2, 2, 2, 2}
	e := []float64{1, 0, 1, 1e-300, 1}
	bounds := splitBlocks(6, d, e)
	want := []int{0, 2, 4, 6}
	if len(bounds) != len(want) {
		t.Fatalf("got boundaries %v, want %v", bounds, want)
	}
	for i := range want {
		if bounds[i] != want[i] {
			t.Errorf("bounds[%d]=%d, want %d", i, bounds[i], want[i])
		}
	}
}
