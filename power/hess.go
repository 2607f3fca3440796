// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package power

import (
	"math/cmplx"

	"github.com/curioloop/acopf/sparse"
)

// invAbs returns the phasor scaling diag(1 ⊘ |𝐕|) as a vector.
func invAbs(v []complex128) []complex128 {
	g := make([]complex128, len(v))
	for i, vi := range v {
		g[i] = complex(one/cmplx.Abs(vi), zero)
	}
	return g
}

// BusInjHess computes the second partial derivatives of the complex bus
// power injections contracted with a multiplier vector 𝛌:
//   - 𝐇𝚊𝚊 = ∂/∂𝐕𝚊 ((∂𝐒/∂𝐕𝚊)ᵀ·𝛌)   𝐇𝚊𝚟 = ∂/∂𝐕𝚖 ((∂𝐒/∂𝐕𝚊)ᵀ·𝛌)
//   - 𝐇𝚟𝚊 = ∂/∂𝐕𝚊 ((∂𝐒/∂𝐕𝚖)ᵀ·𝛌)   𝐇𝚟𝚟 = ∂/∂𝐕𝚖 ((∂𝐒/∂𝐕𝚖)ᵀ·𝛌)
func BusInjHess(ybus *sparse.CMatrix, v, lam []complex128) (haa, hav, hva, hvv *sparse.CMatrix) {
	nb := len(v)
	if r, c := ybus.Dims(); r != nb || c != nb || len(lam) != nb {
		panic("dimension not match")
	}

	ibus := make([]complex128, nb)
	ybus.MulVec(v, ibus)

	lamV := make([]complex128, nb)
	conjV := make([]complex128, nb)
	for i := range v {
		lamV[i] = lam[i] * v[i]
		conjV[i] = cmplx.Conj(v[i])
	}

	c := ybus.ColScale(v).Conj().RowScale(lamV)
	d := ybus.ConjTranspose().ColScale(v)

	dlam := make([]complex128, nb)
	d.MulVec(lam, dlam)
	for i := range dlam {
		dlam[i] = -dlam[i]
	}
	e := sparse.CSum(d.ColScale(lam), sparse.CDiag(dlam)).RowScale(conjV)

	fd := make([]complex128, nb)
	for i := range fd {
		fd[i] = -lamV[i] * cmplx.Conj(ibus[i])
	}
	f := sparse.CSum(c, sparse.CDiag(fd))

	g := invAbs(v)
	jg := make([]complex128, nb)
	for i := range jg {
		jg[i] = 1i * g[i]
	}

	haa = sparse.CSum(e, f)
	hva = sparse.CSum(e, f.Scale(-one)).RowScale(jg)
	hav = hva.Transpose()
	hvv = sparse.CSum(c, c.Transpose()).RowScale(g).ColScale(g)
	return
}

// FlowHess computes the second partial derivatives of the complex branch
// power flows contracted with a multiplier vector 𝛌. The block layout
// matches BusInjHess. The metered side of every branch is given in side.
func FlowHess(ybr *sparse.CMatrix, side []int, v, lam []complex128) (haa, hav, hva, hvv *sparse.CMatrix) {
	nb := len(v)
	nl, c := ybr.Dims()
	if c != nb || len(side) != nl || len(lam) != nl {
		panic("dimension not match")
	}

	// A = 𝐘𝚋𝚛ᴴ·diag(𝛌)·C𝚜 accumulated straight from the admittance triplets:
	// column l of 𝐘𝚋𝚛ᴴ lands on the metered-side bus column of branch l.
	ab := sparse.NewCBuilder(nb, nb)
	for l := 0; l < nl; l++ {
		cols, vals := ybr.Row(l)
		for k, i := range cols {
			ab.Add(i, side[l], cmplx.Conj(vals[k])*lam[l])
		}
	}
	a := ab.Build()

	conjV := make([]complex128, nb)
	for i, vi := range v {
		conjV[i] = cmplx.Conj(vi)
	}

	b := a.RowScale(conjV).ColScale(v)
	bt := b.Transpose()
	f := sparse.CSum(b, bt)

	av := make([]complex128, nb)
	a.MulVec(v, av)
	atc := make([]complex128, nb)
	a.TransMulVec(conjV, atc)

	dd := make([]complex128, nb)
	ed := make([]complex128, nb)
	for i := range dd {
		dd[i] = -av[i] * conjV[i]
		ed[i] = atc[i] * v[i]
	}

	g := invAbs(v)
	jg := make([]complex128, nb)
	for i := range jg {
		jg[i] = 1i * g[i]
	}

	negE := make([]complex128, nb)
	for i := range negE {
		negE[i] = -ed[i]
	}

	haa = sparse.CSum(f, sparse.CDiag(dd), sparse.CDiag(negE))
	hva = sparse.CSum(b, bt.Scale(-one), sparse.CDiag(dd), sparse.CDiag(ed)).RowScale(jg)
	hav = hva.Transpose()
	hvv = f.RowScale(g).ColScale(g)
	return
}

// CurrentHess computes the second partial derivatives of the complex branch
// currents contracted with a multiplier vector 𝛌. The magnitude block is
// structurally zero since 𝐈𝚋𝚛 is linear in 𝐕.
func CurrentHess(ybr *sparse.CMatrix, v, lam []complex128) (haa, hav, hva, hvv *sparse.CMatrix) {
	nb := len(v)
	nl, c := ybr.Dims()
	if c != nb || len(lam) != nl {
		panic("dimension not match")
	}

	yl := make([]complex128, nb)
	ybr.TransMulVec(lam, yl)
	hd := make([]complex128, nb)
	for i := range hd {
		hd[i] = -yl[i] * v[i]
	}

	haa = sparse.CDiag(hd)
	hva = haa.ColScale(invAbs(v)).Scale(-1i)
	hav = hva
	hvv = sparse.NewCBuilder(nb, nb).Build()
	return
}

// MagSqrHess transforms flow Hessian blocks into the Hessian of the squared
// flow magnitude contracted with a real multiplier vector 𝛍. The flow blocks
// must have been contracted with conj(𝐅) ⊙ 𝛍 beforehand, and the first
// derivative matrices must belong to the same flow quantity:
//
//	𝐇 = 2·ℜ(𝐒 + (∂𝐅/∂𝐱)ᵀ·diag(𝛍)·conj(∂𝐅/∂𝐲))
func MagSqrHess(saa, sav, sva, svv, dva, dvm *sparse.CMatrix, mu []float64) (haa, hav, hva, hvv *sparse.Matrix) {
	if r, _ := dva.Dims(); r != len(mu) {
		panic("dimension not match")
	}
	if r, _ := dvm.Dims(); r != len(mu) {
		panic("dimension not match")
	}
	haa = sparse.CSum(saa, outerProd(dva, dva, mu)).Real().Scale(two)
	hav = sparse.CSum(sav, outerProd(dva, dvm, mu)).Real().Scale(two)
	hva = sparse.CSum(sva, outerProd(dvm, dva, mu)).Real().Scale(two)
	hvv = sparse.CSum(svv, outerProd(dvm, dvm, mu)).Real().Scale(two)
	return
}

// outerProd computes 𝐏ᵀ·diag(𝛍)·conj(𝐐) by scattering the outer products
// of the sparse branch rows. Branch rows touch very few buses, so the
// accumulation stays linear in the branch count.
func outerProd(p, q *sparse.CMatrix, mu []float64) *sparse.CMatrix {
	pr, pc := p.Dims()
	qr, qc := q.Dims()
	if pr != qr || pr != len(mu) {
		panic("dimension not match")
	}
	out := sparse.NewCBuilder(pc, qc)
	for l, m := range mu {
		if m == zero {
			continue
		}
		pcols, pvals := p.Row(l)
		qcols, qvals := q.Row(l)
		for i, ca := range pcols {
			w := complex(m, zero) * pvals[i]
			for j, cb := range qcols {
				out.Add(ca, cb, w*cmplx.Conj(qvals[j]))
			}
		}
	}
	return out.Build()
}
