// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"math"
	"slices"
)

// Matrix is a real matrix in compressed sparse row form.
// Entries within a row are ordered by column, and entries summing to exact
// zero are dropped whenever a matrix is compiled from triplets.
// Instances are immutable: operations return new matrices which may share
// index storage with their operands.
type Matrix struct {
	rows, cols int
	rowPtr     []int
	colInd     []int
	values     []float64
}

// Builder accumulates (row, col, value) triplets and compiles them
// into a canonical Matrix. Duplicate positions are summed.
type Builder struct {
	rows, cols int
	rs, cs     []int
	vs         []float64
}

// NewBuilder creates a triplet builder for a rows×cols matrix.
func NewBuilder(rows, cols int) *Builder {
	if rows < 0 || cols < 0 {
		panic("bad matrix shape")
	}
	return &Builder{rows: rows, cols: cols}
}

// Add appends one triplet.
func (b *Builder) Add(r, c int, v float64) {
	if uint(r) >= uint(b.rows) || uint(c) >= uint(b.cols) {
		panic("entry out of range")
	}
	b.rs = append(b.rs, r)
	b.cs = append(b.cs, c)
	b.vs = append(b.vs, v)
}

// AddMatrix appends every entry of m with rows and columns
// shifted by the given offsets.
func (b *Builder) AddMatrix(r0, c0 int, m *Matrix) {
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			b.Add(r0+r, c0+m.colInd[i], m.values[i])
		}
	}
}

// Build compiles the accumulated triplets into a Matrix.
// The builder content is left untouched and may keep growing.
func (b *Builder) Build() *Matrix {
	perm := cooPerm(b.rows, b.cols, b.rs, b.cs)
	n := len(perm)
	mc := make([]int, 0, n)
	mr := make([]int, 0, n)
	mv := make([]float64, 0, n)
	for k := 0; k < n; {
		i := perm[k]
		r, c, v := b.rs[i], b.cs[i], b.vs[i]
		for k++; k < n; k++ {
			j := perm[k]
			if b.rs[j] != r || b.cs[j] != c {
				break
			}
			v += b.vs[j]
		}
		if v != zero {
			mr = append(mr, r)
			mc = append(mc, c)
			mv = append(mv, v)
		}
	}
	rowPtr := make([]int, b.rows+1)
	for _, r := range mr {
		rowPtr[r+1]++
	}
	for k := 0; k < b.rows; k++ {
		rowPtr[k+1] += rowPtr[k]
	}
	return &Matrix{rows: b.rows, cols: b.cols, rowPtr: rowPtr, colInd: mc, values: mv}
}

// Dims returns the row and column counts.
func (m *Matrix) Dims() (rows, cols int) { return m.rows, m.cols }

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int { return len(m.values) }

// At returns the entry at (r, c), zero when the position is not stored.
func (m *Matrix) At(r, c int) float64 {
	if uint(r) >= uint(m.rows) || uint(c) >= uint(m.cols) {
		panic("bound check error")
	}
	lo, hi := m.rowPtr[r], m.rowPtr[r+1]
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if m.colInd[mid] < c {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < m.rowPtr[r+1] && m.colInd[lo] == c {
		return m.values[lo]
	}
	return zero
}

// Row returns the column indexes and values of row r.
// Both slices alias internal storage and must not be modified.
func (m *Matrix) Row(r int) (cols []int, values []float64) {
	if uint(r) >= uint(m.rows) {
		panic("bound check error")
	}
	lo, hi := m.rowPtr[r], m.rowPtr[r+1]
	return m.colInd[lo:hi], m.values[lo:hi]
}

// MulVec computes y = M·x.
func (m *Matrix) MulVec(x, y []float64) {
	if len(x) != m.cols || len(y) != m.rows {
		panic("dimension not match")
	}
	for r := 0; r < m.rows; r++ {
		var s float64
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			s += m.values[i] * x[m.colInd[i]]
		}
		y[r] = s
	}
}

// TransMulVec computes y = Mᵀ·x.
func (m *Matrix) TransMulVec(x, y []float64) {
	if len(x) != m.rows || len(y) != m.cols {
		panic("dimension not match")
	}
	dzero(y)
	for r := 0; r < m.rows; r++ {
		v := x[r]
		if v == zero {
			continue
		}
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			y[m.colInd[i]] += m.values[i] * v
		}
	}
}

// Transpose returns Mᵀ.
func (m *Matrix) Transpose() *Matrix {
	rowPtr := make([]int, m.cols+1)
	for _, c := range m.colInd {
		rowPtr[c+1]++
	}
	for k := 0; k < m.cols; k++ {
		rowPtr[k+1] += rowPtr[k]
	}
	next := slices.Repeat(rowPtr[:m.cols], 1)
	colInd := make([]int, len(m.colInd))
	values := make([]float64, len(m.values))
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			c := m.colInd[i]
			p := next[c]
			next[c]++
			colInd[p] = r
			values[p] = m.values[i]
		}
	}
	return &Matrix{rows: m.cols, cols: m.rows, rowPtr: rowPtr, colInd: colInd, values: values}
}

// Scale returns a·M.
func (m *Matrix) Scale(a float64) *Matrix {
	if a == zero {
		return &Matrix{rows: m.rows, cols: m.cols, rowPtr: make([]int, m.rows+1)}
	}
	v := slices.Repeat(m.values, 1)
	dscal(len(v), a, v, 1)
	return &Matrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: v}
}

// RowScale returns diag(d)·M. The weight vector d must have one entry per row.
func (m *Matrix) RowScale(d []float64) *Matrix {
	if len(d) != m.rows {
		panic("dimension not match")
	}
	v := slices.Repeat(m.values, 1)
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			v[i] *= d[r]
		}
	}
	return &Matrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: v}
}

// Pattern returns a matrix with the same stored positions
// and every value replaced by v.
func (m *Matrix) Pattern(v float64) *Matrix {
	if v == zero {
		panic("zero pattern value")
	}
	values := make([]float64, len(m.values))
	for i := range values {
		values[i] = v
	}
	return &Matrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: values}
}

// Sum returns the elementwise sum of the given matrices.
// The result pattern is the union of the operand patterns.
func Sum(ms ...*Matrix) *Matrix {
	if len(ms) == 0 {
		panic("empty sum")
	}
	rows, cols := ms[0].rows, ms[0].cols
	b := NewBuilder(rows, cols)
	for _, m := range ms {
		if m.rows != rows || m.cols != cols {
			panic("dimension not match")
		}
		b.AddMatrix(0, 0, m)
	}
	return b.Build()
}

// MaxAbsDiff returns the largest absolute elementwise difference between
// a and b over the union of their patterns, with the position it occurs at.
// The position is (-1, -1) when both matrices are empty.
func MaxAbsDiff(a, b *Matrix) (diff float64, row, col int) {
	if a.rows != b.rows || a.cols != b.cols {
		panic("dimension not match")
	}
	row, col = -1, -1
	for r := 0; r < a.rows; r++ {
		ia, ea := a.rowPtr[r], a.rowPtr[r+1]
		ib, eb := b.rowPtr[r], b.rowPtr[r+1]
		for ia < ea || ib < eb {
			var c int
			var d float64
			switch {
			case ib >= eb || (ia < ea && a.colInd[ia] < b.colInd[ib]):
				c, d = a.colInd[ia], a.values[ia]
				ia++
			case ia >= ea || b.colInd[ib] < a.colInd[ia]:
				c, d = b.colInd[ib], -b.values[ib]
				ib++
			default:
				c, d = a.colInd[ia], a.values[ia]-b.values[ib]
				ia++
				ib++
			}
			if ad := math.Abs(d); ad > diff {
				diff, row, col = ad, r, c
			}
		}
	}
	return
}
