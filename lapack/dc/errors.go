// Copyright ©2026 The Stedc Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dc

const (
	nLT0     = "dc: n < 0"
	batchLT0 = "dc: batch < 0"

	badEVComp  = "dc: bad EVComp"
	badLdC     = "dc: bad leading dimension of C"
	badStrideD = "dc: bad stride of D"
	badStrideE = "dc: bad stride of E"
	badStrideC = "dc: bad stride of C"

	shortD    = "dc: insufficient length of d"
	shortE    = "dc: insufficient length of e"
	shortC    = "dc: insufficient length of c"
	shortInfo = "dc: insufficient length of info"
)
