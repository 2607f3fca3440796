// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opf

import (
	"math/cmplx"

	"github.com/curioloop/acopf/netmod"
	"github.com/curioloop/acopf/power"
	"github.com/curioloop/acopf/sparse"
)

// Hessian evaluates the Hessian of the Lagrangian at a state vector
//
//	𝐋ₓₓ = σ·∂²𝒇 + Σᵢ 𝛌ᵢ·∂²𝒈ᵢ + Σⱼ 𝛍ⱼ·∂²𝒉ⱼ
//
// with the cost multiplier σ and the constraint multipliers 𝛌, 𝛍.
// The result covers the whole partition and is symmetric up to roundoff.
// When a sparsity template is configured its entries are added elementwise,
// which keeps the stored pattern stable across optimizer iterations.
func (e *Evaluator) Hessian(x []float64, lam Multipliers, costMult float64) *sparse.Matrix {

	m := e.Model
	nb := len(m.Buses)
	nl2 := len(m.Flows.From)
	if len(lam.EqNonlin) != 2*nb || len(lam.IneqNonlin) != 2*nl2 {
		panic("multiplier dimension not match model")
	}

	va, vm, _, _ := m.State(x)
	v := power.Voltage(va, vm)

	d2f := m.CostHess(x).Scale(costMult)
	d2g := e.balanceHess(v, lam.EqNonlin)

	n := m.Part.N()
	d2h := sparse.NewBuilder(n, n).Build()
	if nl2 > 0 {
		flows := m.Flows
		hf := e.flowHess(flows.Yf, flows.From, v, lam.IneqNonlin[:nl2])
		ht := e.flowHess(flows.Yt, flows.To, v, lam.IneqNonlin[nl2:])
		d2h = sparse.Sum(hf, ht)
	}

	e.guardMat("balance", d2g, m.ConstraintHess(x, lam.EqNonlin, true))
	e.guardMat("flow", d2h, m.ConstraintHess(x, lam.IneqNonlin, false))

	parts := []*sparse.Matrix{d2f, d2g, d2h}
	if e.Pattern != nil {
		parts = append(parts, e.Pattern)
	}
	lxx := sparse.Sum(parts...)

	if e.Check.Enabled {
		e.checkHess("cost", checkCostTol, m.CostHess(x), x, func(xx, yy []float64) {
			_, df := m.CostDerivs(xx)
			copy(yy, df)
		})
		e.checkHess("balance", checkEqTol, d2g, x, func(xx, yy []float64) {
			_, dj := m.Constraints(xx, true, true)
			dj.TransMulVec(lam.EqNonlin, yy)
		})
		if nl2 > 0 {
			e.checkHess("flow", checkIneqTol, d2h, x, func(xx, yy []float64) {
				_, dj := m.Constraints(xx, false, true)
				dj.TransMulVec(lam.IneqNonlin, yy)
			})
		}
	}
	return lxx
}

// padHess spreads the four voltage blocks of a Hessian
// over the whole partition.
func (e *Evaluator) padHess(haa, hav, hva, hvv *sparse.Matrix) *sparse.Matrix {
	m := e.Model
	n := m.Part.N()
	vaf, _ := m.Part.Range(netmod.Va)
	vmf, _ := m.Part.Range(netmod.Vm)
	ab := sparse.NewBuilder(n, n)
	ab.AddMatrix(vaf-1, vaf-1, haa)
	ab.AddMatrix(vaf-1, vmf-1, hav)
	ab.AddMatrix(vmf-1, vaf-1, hva)
	ab.AddMatrix(vmf-1, vmf-1, hvv)
	return ab.Build()
}

// balanceHess contracts the power balance second derivatives with 𝛌.
// The real multipliers weigh the active rows and the imaginary parts
// the reactive rows, with the voltage dependent load curvature on the
// magnitude diagonal.
func (e *Evaluator) balanceHess(v []complex128, lam []float64) *sparse.Matrix {

	m := e.Model
	nb := len(m.Buses)

	lamP := make([]complex128, nb)
	lamQ := make([]complex128, nb)
	for i := 0; i < nb; i++ {
		lamP[i] = complex(lam[i], 0)
		lamQ[i] = complex(lam[nb+i], 0)
	}
	paa, pav, pva, pvv := power.BusInjHess(m.Adm.Ybus, v, lamP)
	qaa, qav, qva, qvv := power.BusInjHess(m.Adm.Ybus, v, lamQ)

	haa := sparse.Sum(paa.Real(), qaa.Imag())
	hav := sparse.Sum(pav.Real(), qav.Imag())
	hva := sparse.Sum(pva.Real(), qva.Imag())
	hvv := sparse.Sum(pvv.Real(), qvv.Imag())

	if d2 := m.Injection(m.Gens).SbusHess(); d2 != nil {
		db := sparse.NewBuilder(nb, nb)
		for i, d := range d2 {
			db.Add(i, i, -(lam[i]*real(d) + lam[nb+i]*imag(d)))
		}
		hvv = sparse.Sum(hvv, db.Build())
	}
	return e.padHess(haa, hav, hva, hvv)
}

// flowHess contracts one side of the branch limit second derivatives with 𝛍.
// The contraction vector follows the model limit mode.
func (e *Evaluator) flowHess(ybr *sparse.CMatrix, side []int, v []complex128, mu []float64) *sparse.Matrix {

	m := e.Model
	nl2 := len(side)

	var haa, hav, hva, hvv *sparse.Matrix
	w := make([]complex128, nl2)
	switch m.Mode {
	case netmod.LimCurrent:
		dva, dvm, cur := power.CurrentDerivs(ybr, v)
		for l := range w {
			w[l] = cmplx.Conj(cur[l]) * complex(mu[l], 0)
		}
		saa, sav, sva, svv := power.CurrentHess(ybr, v, w)
		haa, hav, hva, hvv = power.MagSqrHess(saa, sav, sva, svv, dva, dvm, mu)
	case netmod.LimActive:
		for l := range w {
			w[l] = complex(mu[l], 0)
		}
		saa, sav, sva, svv := power.FlowHess(ybr, side, v, w)
		haa, hav, hva, hvv = saa.Real(), sav.Real(), sva.Real(), svv.Real()
	case netmod.LimActiveSqr:
		dva, dvm, flow := power.FlowDerivs(ybr, side, v)
		rf := make([]complex128, nl2)
		for l := range rf {
			rf[l] = complex(real(flow[l]), 0)
			w[l] = rf[l] * complex(mu[l], 0)
		}
		saa, sav, sva, svv := power.FlowHess(ybr, side, v, w)
		haa, hav, hva, hvv = power.MagSqrHess(saa, sav, sva, svv,
			dva.Real().Complex(), dvm.Real().Complex(), mu)
	default:
		dva, dvm, flow := power.FlowDerivs(ybr, side, v)
		for l := range w {
			w[l] = cmplx.Conj(flow[l]) * complex(mu[l], 0)
		}
		saa, sav, sva, svv := power.FlowHess(ybr, side, v, w)
		haa, hav, hva, hvv = power.MagSqrHess(saa, sav, sva, svv, dva, dvm, mu)
	}
	return e.padHess(haa, hav, hva, hvv)
}
