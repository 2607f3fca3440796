// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

// cooPerm sorts triplet indexes into row-major, column-ascending order
// with two stable counting passes. Duplicates stay adjacent in
// insertion order so builders can merge them in a single sweep.
func cooPerm(rows, cols int, rs, cs []int) []int {
	n := len(rs)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	if n <= 1 {
		return perm
	}

	w := rows
	if cols > w {
		w = cols
	}
	tmp := make([]int, n)
	cnt := make([]int, w+1)

	for _, c := range cs {
		cnt[c+1]++
	}
	for k := 0; k < cols; k++ {
		cnt[k+1] += cnt[k]
	}
	for _, i := range perm {
		c := cs[i]
		tmp[cnt[c]] = i
		cnt[c]++
	}

	for i := range cnt {
		cnt[i] = 0
	}
	for _, r := range rs {
		cnt[r+1]++
	}
	for k := 0; k < rows; k++ {
		cnt[k+1] += cnt[k]
	}
	for _, i := range tmp {
		r := rs[i]
		perm[cnt[r]] = i
		cnt[r]++
	}
	return perm
}
