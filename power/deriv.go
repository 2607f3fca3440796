// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package power

import (
	"math/cmplx"

	"github.com/curioloop/acopf/sparse"
)

// vnorm returns the unit phasors 𝐕 ⊘ |𝐕|.
func vnorm(v []complex128) []complex128 {
	n := make([]complex128, len(v))
	for i, vi := range v {
		n[i] = vi / complex(cmplx.Abs(vi), zero)
	}
	return n
}

// jscale returns the rotated phasors 𝒋·𝐕.
func jscale(v []complex128) []complex128 {
	j := make([]complex128, len(v))
	for i, vi := range v {
		j[i] = 1i * vi
	}
	return j
}

// BusInjDerivs computes the partial derivatives of the complex bus power
// injections 𝐒 = diag(𝐕)·conj(𝐘·𝐕) with respect to voltage angle and magnitude:
//   - ∂𝐒/∂𝐕𝚊 = 𝒋·diag(𝐕)·conj(diag(𝐈) - 𝐘·diag(𝐕))
//   - ∂𝐒/∂𝐕𝚖 = diag(𝐕)·conj(𝐘·diag(𝐕⊘|𝐕|)) + conj(diag(𝐈))·diag(𝐕⊘|𝐕|)
//
// The bus current vector 𝐈 = 𝐘·𝐕 is returned alongside.
func BusInjDerivs(ybus *sparse.CMatrix, v []complex128) (dva, dvm *sparse.CMatrix, ibus []complex128) {
	nb := len(v)
	if r, c := ybus.Dims(); r != nb || c != nb {
		panic("dimension not match")
	}

	ibus = make([]complex128, nb)
	ybus.MulVec(v, ibus)
	norm := vnorm(v)

	dva = sparse.CSum(sparse.CDiag(ibus), ybus.ColScale(v).Scale(-one)).Conj().RowScale(jscale(v))

	diag := make([]complex128, nb)
	for i := range diag {
		diag[i] = cmplx.Conj(ibus[i]) * norm[i]
	}
	dvm = sparse.CSum(ybus.ColScale(norm).Conj().RowScale(v), sparse.CDiag(diag))
	return
}

// FlowDerivs computes the partial derivatives of the complex branch power
// flows 𝐒𝚋𝚛 = diag(𝐕𝚜)·conj(𝐘𝚋𝚛·𝐕) with respect to voltage angle and magnitude,
// where 𝐕𝚜 holds the voltage at the metered side of every branch:
//   - ∂𝐒𝚋𝚛/∂𝐕𝚊 = 𝒋·(conj(diag(𝐈𝚋𝚛))·𝐂𝐕 - diag(𝐕𝚜)·conj(𝐘𝚋𝚛·diag(𝐕)))
//   - ∂𝐒𝚋𝚛/∂𝐕𝚖 = diag(𝐕𝚜)·conj(𝐘𝚋𝚛·diag(𝐕⊘|𝐕|)) + conj(diag(𝐈𝚋𝚛))·𝐂𝐕𝚗
//
// 𝐂𝐕 and 𝐂𝐕𝚗 spread the metered-side voltage and unit phasor over the bus
// incidence of each branch. The flow vector is returned alongside.
func FlowDerivs(ybr *sparse.CMatrix, side []int, v []complex128) (dva, dvm *sparse.CMatrix, flow []complex128) {
	nb := len(v)
	nl, c := ybr.Dims()
	if c != nb || len(side) != nl {
		panic("dimension not match")
	}

	cur := make([]complex128, nl)
	ybr.MulVec(v, cur)
	norm := vnorm(v)

	flow = make([]complex128, nl)
	vs := make([]complex128, nl)
	for l, b := range side {
		vs[l] = v[b]
		flow[l] = v[b] * cmplx.Conj(cur[l])
	}

	cv := sparse.NewCBuilder(nl, nb)
	cvn := sparse.NewCBuilder(nl, nb)
	for l, b := range side {
		ci := cmplx.Conj(cur[l])
		cv.Add(l, b, ci*v[b])
		cvn.Add(l, b, ci*norm[b])
	}

	dva = sparse.CSum(cv.Build(), ybr.ColScale(v).Conj().RowScale(vs).Scale(-one)).Scale(1i)
	dvm = sparse.CSum(ybr.ColScale(norm).Conj().RowScale(vs), cvn.Build())
	return
}

// CurrentDerivs computes the partial derivatives of the complex branch
// currents 𝐈𝚋𝚛 = 𝐘𝚋𝚛·𝐕 with respect to voltage angle and magnitude:
//   - ∂𝐈𝚋𝚛/∂𝐕𝚊 = 𝐘𝚋𝚛·𝒋·diag(𝐕)
//   - ∂𝐈𝚋𝚛/∂𝐕𝚖 = 𝐘𝚋𝚛·diag(𝐕⊘|𝐕|)
func CurrentDerivs(ybr *sparse.CMatrix, v []complex128) (dva, dvm *sparse.CMatrix, cur []complex128) {
	if _, c := ybr.Dims(); c != len(v) {
		panic("dimension not match")
	}
	nl, _ := ybr.Dims()
	cur = make([]complex128, nl)
	ybr.MulVec(v, cur)
	dva = ybr.ColScale(jscale(v))
	dvm = ybr.ColScale(vnorm(v))
	return
}

// MagSqrDerivs transforms flow derivatives into derivatives of the squared
// flow magnitude |𝐅|² = 𝐅 ⊙ conj(𝐅):
//
//	∂|𝐅|²/∂𝐱 = 2·(diag(ℜ𝐅)·ℜ(∂𝐅/∂𝐱) + diag(ℑ𝐅)·ℑ(∂𝐅/∂𝐱))
func MagSqrDerivs(dva, dvm *sparse.CMatrix, flow []complex128) (ava, avm *sparse.Matrix) {
	nl := len(flow)
	if r, _ := dva.Dims(); r != nl {
		panic("dimension not match")
	}
	if r, _ := dvm.Dims(); r != nl {
		panic("dimension not match")
	}
	wr := make([]float64, nl)
	wi := make([]float64, nl)
	for l, f := range flow {
		wr[l] = two * real(f)
		wi[l] = two * imag(f)
	}
	ava = sparse.Sum(dva.Real().RowScale(wr), dva.Imag().RowScale(wi))
	avm = sparse.Sum(dvm.Real().RowScale(wr), dvm.Imag().RowScale(wi))
	return
}
