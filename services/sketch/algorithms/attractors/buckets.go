// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package attractors

import (
	"math/big"

	"github.com/AleutianAI/BNSketch/services/sketch/symbolic"
)

// BucketTable sorts colors by attractor count: index i holds exactly the
// colors with i attractors found so far. Buckets are pairwise disjoint and
// their union never changes.
type BucketTable []symbolic.ColorSet

// NewBucketTable starts with every color at count zero.
func NewBucketTable(colors symbolic.ColorSet) BucketTable {
	return BucketTable{colors}
}

// ProcessComponent increments the count of every color in component.
//
// Description:
//
//	Walks a snapshot of the table from the highest index down and moves
//	bucket[i] ∩ component to i+1, appending a new bucket when i is the
//	top. Using the snapshot keeps a color from moving twice in one call.
//	The receiver is left untouched.
func (t BucketTable) ProcessComponent(component symbolic.ColorSet) BucketTable {
	out := append(BucketTable(nil), t...)
	for i := len(t) - 1; i >= 0; i-- {
		moved := t[i].Intersect(component)
		if moved.IsEmpty() {
			continue
		}
		if i == len(out)-1 {
			out = append(out, moved)
		} else {
			out[i+1] = out[i+1].Union(moved)
		}
		out[i] = out[i].Minus(moved)
	}
	return out
}

// Range returns the union of buckets lo..hi inclusive. Indices outside the
// table are ignored. The table must not be empty.
func (t BucketTable) Range(lo, hi int) symbolic.ColorSet {
	out := t[0].Minus(t[0])
	for i := lo; i <= hi && i < len(t); i++ {
		if i >= 0 {
			out = out.Union(t[i])
		}
	}
	return out
}

// Union returns the union of all buckets.
func (t BucketTable) Union() symbolic.ColorSet {
	return t.Range(0, len(t)-1)
}

// Counts returns the cardinality of every bucket.
func (t BucketTable) Counts() []*big.Int {
	out := make([]*big.Int, len(t))
	for i, c := range t {
		out[i] = c.Cardinality()
	}
	return out
}
