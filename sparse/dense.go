// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import "gonum.org/v1/gonum/mat"

// Dense expands M into a gonum dense matrix.
// Panics when either dimension is zero.
func (m *Matrix) Dense() *mat.Dense {
	d := mat.NewDense(m.rows, m.cols, nil)
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			d.Set(r, m.colInd[i], m.values[i])
		}
	}
	return d
}

// Dense expands M into a gonum dense complex matrix.
// Panics when either dimension is zero.
func (m *CMatrix) Dense() *mat.CDense {
	d := mat.NewCDense(m.rows, m.cols, nil)
	for r := 0; r < m.rows; r++ {
		for i := m.rowPtr[r]; i < m.rowPtr[r+1]; i++ {
			d.Set(r, m.colInd[i], m.values[i])
		}
	}
	return d
}
