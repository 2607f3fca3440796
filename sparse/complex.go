// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "slices"

// CMatrix is a complex matrix in compressed sparse row form.
// It follows the same storage and immutability rules as Matrix.
type CMatrix struct {
	rows, cols int
	rowPtr     []int
	colInd     []int
	values     []complex128
}

// CBuilder accumulates complex (row, col, value) triplets and compiles
// them into a canonical CMatrix. Duplicate positions are summed.
type CBuilder struct {
	rows, cols int
	rs, cs     []int
	vs         []complex128
}

// NewCBuilder creates a triplet builder for a rows×cols complex matrix.
func NewCBuilder(rows, cols int) *CBuilder {
	if rows < 0 || cols < 0 {
		panic("bad matrix shape")
	}
	return &CBuilder{rows: rows, cols: cols}
}

// Add appends one triplet.
func (b *CBuilder) Add(r, c int, v complex128) {
	if uint(r) >= uint(b.rows) || uint(c) >= uint(b.cols) {
		panic("entry out of range")
	}
	b.rs = append(b.rs, r)
	b.cs = append(b.cs, c)
	b.vs = append(b.vs, v)
}

// Build compiles the accumulated triplets into a CMatrix.
func (b *CBuilder) Build() *CMatrix {
	perm := cooPerm(b.rows, b.cols, b.rs, b.cs)
	n := len(perm)
	mr := make([]int, 0, n)
	mc := make([]int, 0, n)
	mv := make([]complex128, 0, n)
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
	return &CMatrix{rows: b.rows, cols: b.cols, rowPtr: rowPtr, colInd: mc, values: mv}
}

// Complex embeds M into a complex matrix with zero imaginary parts.
func (m *Matrix) Complex() *CMatrix {
	values := make([]complex128, len(m.values))
	for i, v := range m.values {
		values[i] = complex(v, 0)
	}
	return &CMatrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: values}
}

// CDiag returns the n×n diagonal matrix diag(d) with n = len(d).
func CDiag(d []complex128) *CMatrix {
	b := NewCBuilder(len(d), len(d))
	for i, v := range d {
		if v != zero {
			b.Add(i, i, v)
		}
	}
	return b.Build()
}

// Dims returns the row and column counts.
func (m *CMatrix) Dims() (rows, cols int) { return m.rows, m.cols }

// NNZ returns the number of stored entries.
func (m *CMatrix) NNZ() int { return len(m.values) }

// At returns the entry at (r, c), zero when the position is not stored.
func (m *CMatrix) At(r, c int) complex128 {
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
func (m *CMatrix) Row(r int) (cols []int, values []complex128) {
	if uint(r) >= uint(m.rows) {
		panic("bound check error")
	}
	lo, hi := m.rowPtr[r], m.rowPtr[r+1]
	return m.colInd[lo:hi], m.values[lo:hi]
}

// MulVec computes y = M·x.
func (m *CMatrix) MulVec(x, y []complex128) {
	if len(x) != m.cols || len(y) != m.rows {
		panic("dimension not match")
	}
	for r := 0; r < m.rows; r++ {
		var s complex128
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			s += m.values[i] * x[m.colInd[i]]
		}
		y[r] = s
	}
}

// TransMulVec computes y = Mᵀ·x without conjugation.
func (m *CMatrix) TransMulVec(x, y []complex128) {
	if len(x) != m.rows || len(y) != m.cols {
		panic("dimension not match")
	}
	zzero(y)
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

// Transpose returns Mᵀ without conjugation.
func (m *CMatrix) Transpose() *CMatrix {
	rowPtr, colInd, values := m.scatterTrans(false)
	return &CMatrix{rows: m.cols, cols: m.rows, rowPtr: rowPtr, colInd: colInd, values: values}
}

// ConjTranspose returns the conjugate transpose Mᴴ.
func (m *CMatrix) ConjTranspose() *CMatrix {
	rowPtr, colInd, values := m.scatterTrans(true)
	return &CMatrix{rows: m.cols, cols: m.rows, rowPtr: rowPtr, colInd: colInd, values: values}
}

func (m *CMatrix) scatterTrans(conj bool) (rowPtr, colInd []int, values []complex128) {
	rowPtr = make([]int, m.cols+1)
	for _, c := range m.colInd {
		rowPtr[c+1]++
	}
	for k := 0; k < m.cols; k++ {
		rowPtr[k+1] += rowPtr[k]
	}
	next := slices.Repeat(rowPtr[:m.cols], 1)
	colInd = make([]int, len(m.colInd))
	values = make([]complex128, len(m.values))
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			c := m.colInd[i]
			p := next[c]
			next[c]++
			colInd[p] = r
			if v := m.values[i]; conj {
				values[p] = complex(real(v), -imag(v))
			} else {
				values[p] = v
			}
		}
	}
	return
}

// Conj returns the elementwise conjugate of M.
func (m *CMatrix) Conj() *CMatrix {
	values := make([]complex128, len(m.values))
	for i, v := range m.values {
		values[i] = complex(real(v), -imag(v))
	}
	return &CMatrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: values}
}

// Scale returns z·M.
func (m *CMatrix) Scale(z complex128) *CMatrix {
	if z == zero {
		return &CMatrix{rows: m.rows, cols: m.cols, rowPtr: make([]int, m.rows+1)}
	}
	v := slices.Repeat(m.values, 1)
	zscal(len(v), z, v)
	return &CMatrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: v}
}

// RowScale returns diag(d)·M. The weight vector d must have one entry per row.
func (m *CMatrix) RowScale(d []complex128) *CMatrix {
	if len(d) != m.rows {
		panic("dimension not match")
	}
	v := slices.Repeat(m.values, 1)
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			v[i] *= d[r]
		}
	}
	return &CMatrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: v}
}

// ColScale returns M·diag(d). The weight vector d must have one entry per column.
func (m *CMatrix) ColScale(d []complex128) *CMatrix {
	if len(d) != m.cols {
		panic("dimension not match")
	}
	v := slices.Repeat(m.values, 1)
	for i, c := range m.colInd {
		v[i] *= d[c]
	}
	return &CMatrix{rows: m.rows, cols: m.cols, rowPtr: m.rowPtr, colInd: m.colInd, values: v}
}

// Real returns the real part of M with exact zeros dropped.
func (m *CMatrix) Real() *Matrix {
	return m.part(real)
}

// Imag returns the imaginary part of M with exact zeros dropped.
func (m *CMatrix) Imag() *Matrix {
	return m.part(imag)
}

func (m *CMatrix) part(take func(complex128) float64) *Matrix {
	rowPtr := make([]int, m.rows+1)
	colInd := make([]int, 0, len(m.colInd))
	values := make([]float64, 0, len(m.values))
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			if v := take(m.values[i]); v != zero {
				colInd = append(colInd, m.colInd[i])
				values = append(values, v)
			}
		}
		rowPtr[r+1] = len(values)
	}
	return &Matrix{rows: m.rows, cols: m.cols, rowPtr: rowPtr, colInd: colInd, values: values}
}

// SelectRows returns the submatrix made of the given rows, in order.
// The same row may be picked more than once.
func (m *CMatrix) SelectRows(rows []int) *CMatrix {
	rowPtr := make([]int, len(rows)+1)
	nnz := 0
	for k, r := range rows {
		if uint(r) >= uint(m.rows) {
			panic("bound check error")
		}
		nnz += m.rowPtr[r+1] - m.rowPtr[r]
		rowPtr[k+1] = nnz
	}
	colInd := make([]int, 0, nnz)
	values := make([]complex128, 0, nnz)
	for _, r := range rows {
		lo, hi := m.rowPtr[r], m.rowPtr[r+1]
		colInd = append(colInd, m.colInd[lo:hi]...)
		values = append(values, m.values[lo:hi]...)
	}
	return &CMatrix{rows: len(rows), cols: m.cols, rowPtr: rowPtr, colInd: colInd, values: values}
}

// CSum returns the elementwise sum of the given matrices.
// The result pattern is the union of the operand patterns.
func CSum(ms ...*CMatrix) *CMatrix {
	if len(ms) == 0 {
		panic("empty sum")
	}
	rows, cols := ms[0].rows, ms[0].cols
	b := NewCBuilder(rows, cols)
	for _, m := range ms {
		if m.rows != rows || m.cols != cols {
			panic("dimension not match")
		}
		for r := 0; r < m.rows; r++ {
			for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
				b.Add(r, m.colInd[i], m.values[i])
			}
		}
	}
	return b.Build()
}
