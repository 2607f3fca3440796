// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sparse

import (
	"math/cmplx"
	"testing"
)

func TestCBuilderCompile(t *testing.T) {

	b := NewCBuilder(2, 3)
	b.Add(1, 2, 1+2i)
	b.Add(0, 0, 3-1i)
	b.Add(1, 2, -1+1i)   // duplicate, summed to 3i
	b.Add(0, 1, 2+2i)
	b.Add(0, 1, -2-2i)   // cancels to exact zero

	m := b.Build()
	if m.NNZ() != 2 {
		t.Fatalf("nnz = %d, want 2", m.NNZ())
	}
	if m.At(0, 0) != 3-1i || m.At(1, 2) != 3i || m.At(0, 1) != 0 {
		t.Fatal("compile values error")
	}
}

func TestCMatrixVecOps(t *testing.T) {

	b := NewCBuilder(2, 2)
	b.Add(0, 0, 1+1i)
	b.Add(0, 1, 2)
	b.Add(1, 0, -1i)
	m := b.Build()

	x := []complex128{1i, 2}
	y := make([]complex128, 2)
	m.MulVec(x, y)
	if y[0] != (1i*(1+1i))+4 || y[1] != -1i*1i {
		t.Fatalf("mulvec = %v", y)
	}

	yt := make([]complex128, 2)
	m.TransMulVec([]complex128{1, 1i}, yt)
	if yt[0] != (1+1i)+(-1i*1i) || yt[1] != 2 {
		t.Fatalf("transmulvec = %v", yt)
	}
}

func TestCMatrixConjTrans(t *testing.T) {

	b := NewCBuilder(2, 3)
	b.Add(0, 2, 1+2i)
	b.Add(1, 0, 3-4i)
	b.Add(1, 2, -5i)
	m := b.Build()

	ct := m.ConjTranspose()
	if r, c := ct.Dims(); r != 3 || c != 2 {
		t.Fatalf("ctrans dims = (%d,%d)", r, c)
	}
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			want := cmplx.Conj(m.At(r, c))
			if ct.At(c, r) != want {
				t.Fatalf("ctrans mismatch at (%d,%d)", r, c)
			}
		}
	}

	tr := m.Transpose()
	cj := m.Conj()
	for r := 0; r < 2; r++ {
		for c := 0; c < 3; c++ {
			if tr.At(c, r) != m.At(r, c) || cj.At(r, c) != cmplx.Conj(m.At(r, c)) {
				t.Fatalf("trans/conj mismatch at (%d,%d)", r, c)
			}
		}
	}
}

func TestCMatrixScaling(t *testing.T) {

	b := NewCBuilder(2, 2)
	b.Add(0, 0, 2)
	b.Add(0, 1, 1+1i)
	b.Add(1, 1, -3i)
	m := b.Build()

	s := m.Scale(1i)
	if s.At(0, 0) != 2i || s.At(0, 1) != -1+1i || s.At(1, 1) != 3 {
		t.Fatal("scale error")
	}

	rs := m.RowScale([]complex128{1i, 2})
	if rs.At(0, 0) != 2i || rs.At(0, 1) != -1+1i || rs.At(1, 1) != -6i {
		t.Fatal("row scale error")
	}

	cs := m.ColScale([]complex128{2, 1i})
	if cs.At(0, 0) != 4 || cs.At(0, 1) != -1+1i || cs.At(1, 1) != 3 {
		t.Fatal("col scale error")
	}
}

func TestCMatrixParts(t *testing.T) {

	b := NewCBuilder(2, 2)
	b.Add(0, 0, 3)    // pure real, dropped from Imag
	b.Add(0, 1, 2i)   // pure imaginary, dropped from Real
	b.Add(1, 1, 1-1i)
	m := b.Build()

	re := m.Real()
	if re.NNZ() != 2 || re.At(0, 0) != 3 || re.At(1, 1) != 1 || re.At(0, 1) != 0 {
		t.Fatal("real part error")
	}
	im := m.Imag()
	if im.NNZ() != 2 || im.At(0, 1) != 2 || im.At(1, 1) != -1 || im.At(0, 0) != 0 {
		t.Fatal("imag part error")
	}
}

func TestCDiagSum(t *testing.T) {

	d := CDiag([]complex128{1 + 1i, 0, 2})
	if d.NNZ() != 2 {
		t.Fatalf("diag nnz = %d, want 2", d.NNZ())
	}
	if r, c := d.Dims(); r != 3 || c != 3 {
		t.Fatalf("diag dims = (%d,%d)", r, c)
	}

	b := NewCBuilder(3, 3)
	b.Add(0, 0, -1-1i)
	b.Add(0, 2, 5)
	m := b.Build()

	s := CSum(d, m)
	if s.At(0, 0) != 0 || s.At(0, 2) != 5 || s.At(2, 2) != 2 {
		t.Fatal("sum values error")
	}
	if s.NNZ() != 2 {
		t.Fatalf("sum nnz = %d, want 2", s.NNZ())
	}
}
