// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

// numLevels returns the depth of the merge tree used for a split block of
// size n, so that the block is divided into 2^levels leaves. The thresholds
// keep every leaf non-empty and the leaf count at or below 256.
func numLevels(n int) int {
	switch {
	case n <= 2:
		return 0
	case n <= 4:
		return 1
	case n <= 32:
		return 2
	case n <= 232:
		return 4
	case n <= 295:
		return 5
	case n <= 1946:
		return 7
	default:
		return 8
	}
}

// treeNode is one node of a merge tree: a contiguous sub-range of a split
// block. For internal nodes mid is the index of the first row of the lower
// child, the junction where the rank-1 update couples the two children.
type treeNode struct {
	off  int
	size int
	mid  int
}

// mergeTree is the static division of one split block. The node set and
// shape are fixed once the divide phase has run: leaves holds the 2^levels
// direct-solve units in order, and nodes[k] holds the merge nodes of level k
// (level 0 joins pairs of leaves), indexed by node id.
type mergeTree struct {
	levels int
	leaves []treeNode
	nodes  [][]treeNode
}

// newMergeTree divides the split block d[start:end] into 2^levels leaves of
// nearly equal size and records the node arena for every merge level. At
// each junction the off-diagonal magnitude is subtracted from both adjacent
// diagonal entries, decoupling the two artificial sub-blocks; the rank-1
// update applied during the merge phase restores the coupling exactly.
func newMergeTree(d, e []float64, start, end int) *mergeTree {
	bs := end - start
	levels := numLevels(bs)
	blks := 1 << levels

	// Repeatedly halve the sizes; for odd sizes the second half gets the
	// extra element.
	ns := make([]int, blks)
	ns[0] = bs
	for i := 0; i < levels; i++ {
		for j := 1 << i; j > 0; j-- {
			t := ns[j-1]
			half := t / 2
			ns[2*j-1] = t - half
			ns[2*j-2] = half
		}
	}

	t := &mergeTree{
		levels: levels,
		leaves: make([]treeNode, blks),
	}
	p := start
	for i, sz := range ns {
		t.leaves[i] = treeNode{off: p, size: sz}
		p += sz
		if i < blks-1 {
			// Decouple the sub-blocks on either side of the junction.
			off := e[p-1]
			d[p] -= off
			d[p-1] -= off
		}
	}

	t.nodes = make([][]treeNode, levels)
	for k := 0; k < levels; k++ {
		width := 1 << (k + 1)
		t.nodes[k] = make([]treeNode, blks/width)
		for m := range t.nodes[k] {
			first := t.leaves[m*width]
			var sz int
			for i := 0; i < width; i++ {
				sz += t.leaves[m*width+i].size
			}
			t.nodes[k][m] = treeNode{
				off:  first.off,
				size: sz,
				mid:  t.leaves[m*width+width/2].off,
			}
		}
	}
	return t
}
