// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"math/cmplx"

	"github.com/curioloop/acopf/power"
	"github.com/curioloop/acopf/sparse"
)

// padHess spreads the four voltage blocks of a Hessian
// over the whole partition.
func (m *Model) padHess(haa, hav, hva, hvv *sparse.Matrix) *sparse.Matrix {
	n := m.Part.N()
	vaf, _ := m.Part.Range(Va)
	vmf, _ := m.Part.Range(Vm)
	ab := sparse.NewBuilder(n, n)
	ab.AddMatrix(vaf-1, vaf-1, haa)
	ab.AddMatrix(vaf-1, vmf-1, hav)
	ab.AddMatrix(vmf-1, vaf-1, hva)
	ab.AddMatrix(vmf-1, vmf-1, hvv)
	return ab.Build()
}

// balanceConstraint builds the power balance set
//
//	𝒈(𝐱) = [ℜ(𝐦𝐢𝐬); ℑ(𝐦𝐢𝐬)], 𝐦𝐢𝐬 = 𝐕 ⊙ conj(𝐘ᵇᵘˢ·𝐕) − 𝐒ᵇᵘˢ(𝐕𝚖, 𝐏𝚐, 𝐐𝚐)
//
// over the assembled model.
func balanceConstraint(m *Model) Constraint {

	nb := len(m.Buses)
	ybus := m.Adm.Ybus

	eval := func(x []float64, jac bool) ([]float64, *sparse.Matrix) {
		va, vm, pg, qg := m.State(x)
		v := power.Voltage(va, vm)
		inj := m.Injection(m.DerivedGens(pg, qg))
		sbus, dsd := inj.Sbus(vm)

		ibus := make([]complex128, nb)
		ybus.MulVec(v, ibus)
		g := make([]float64, 2*nb)
		for i := 0; i < nb; i++ {
			mis := v[i]*cmplx.Conj(ibus[i]) - sbus[i]
			g[i], g[nb+i] = real(mis), imag(mis)
		}
		if !jac {
			return g, nil
		}

		dva, dvm, _ := power.BusInjDerivs(ybus, v)
		for i := range dsd {
			dsd[i] = -dsd[i]
		}
		dvm = sparse.CSum(dvm, sparse.CDiag(dsd))

		vaf, _ := m.Part.Range(Va)
		vmf, _ := m.Part.Range(Vm)
		pgf, _ := m.Part.Range(Pg)
		qgf, _ := m.Part.Range(Qg)

		ab := sparse.NewBuilder(2*nb, m.Part.N())
		ab.AddMatrix(0, vaf-1, dva.Real())
		ab.AddMatrix(0, vmf-1, dvm.Real())
		ab.AddMatrix(nb, vaf-1, dva.Imag())
		ab.AddMatrix(nb, vmf-1, dvm.Imag())
		for k, u := range m.Gens {
			ab.Add(u.Bus, pgf-1+k, -1)
			ab.Add(nb+u.Bus, qgf-1+k, -1)
		}
		return g, ab.Build()
	}

	hess := func(x, lam []float64) *sparse.Matrix {
		va, vm, _, _ := m.State(x)
		v := power.Voltage(va, vm)

		lamP := make([]complex128, nb)
		lamQ := make([]complex128, nb)
		for i := 0; i < nb; i++ {
			lamP[i] = complex(lam[i], 0)
			lamQ[i] = complex(lam[nb+i], 0)
		}
		paa, pav, pva, pvv := power.BusInjHess(ybus, v, lamP)
		qaa, qav, qva, qvv := power.BusInjHess(ybus, v, lamQ)

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
		return m.padHess(haa, hav, hva, hvv)
	}

	return Constraint{Name: "balance", Size: 2 * nb, Eval: eval, Hess: hess}
}

// flowConstraint builds one side of the branch limit set over the monitored
// branches. The constraint form follows the model limit mode:
//
//	S : |𝐒𝚋𝚛|² − rating²
//	P : ℜ(𝐒𝚋𝚛) − rating
//	2 : ℜ(𝐒𝚋𝚛)² − rating²
//	I : |𝐈𝚋𝚛|² − rating²
//
// Unrated branches carry an infinite rating and can never bind.
func flowConstraint(m *Model, toSide bool) Constraint {

	name, ybr, side := "flowf", m.Flows.Yf, m.Flows.From
	if toSide {
		name, ybr, side = "flowt", m.Flows.Yt, m.Flows.To
	}
	nl2 := len(side)
	lim := m.Flows.Limit

	eval := func(x []float64, jac bool) ([]float64, *sparse.Matrix) {
		va, vm, _, _ := m.State(x)
		v := power.Voltage(va, vm)

		cur := make([]complex128, nl2)
		ybr.MulVec(v, cur)
		flow := cur
		if m.Mode != LimCurrent {
			flow = make([]complex128, nl2)
			for l, b := range side {
				flow[l] = v[b] * cmplx.Conj(cur[l])
			}
		}

		h := make([]float64, nl2)
		for l, f := range flow {
			switch m.Mode {
			case LimActive:
				h[l] = real(f) - lim[l]
			case LimActiveSqr:
				h[l] = real(f)*real(f) - lim[l]*lim[l]
			default:
				h[l] = real(f)*real(f) + imag(f)*imag(f) - lim[l]*lim[l]
			}
		}
		if !jac {
			return h, nil
		}

		var ava, avm *sparse.Matrix
		switch m.Mode {
		case LimCurrent:
			dva, dvm, cur := power.CurrentDerivs(ybr, v)
			ava, avm = power.MagSqrDerivs(dva, dvm, cur)
		case LimActive:
			dva, dvm, _ := power.FlowDerivs(ybr, side, v)
			ava, avm = dva.Real(), dvm.Real()
		case LimActiveSqr:
			dva, dvm, flow := power.FlowDerivs(ybr, side, v)
			rf := make([]complex128, nl2)
			for l := range rf {
				rf[l] = complex(real(flow[l]), 0)
			}
			ava, avm = power.MagSqrDerivs(dva.Real().Complex(), dvm.Real().Complex(), rf)
		default:
			dva, dvm, flow := power.FlowDerivs(ybr, side, v)
			ava, avm = power.MagSqrDerivs(dva, dvm, flow)
		}

		vaf, _ := m.Part.Range(Va)
		vmf, _ := m.Part.Range(Vm)
		ab := sparse.NewBuilder(nl2, m.Part.N())
		ab.AddMatrix(0, vaf-1, ava)
		ab.AddMatrix(0, vmf-1, avm)
		return h, ab.Build()
	}

	hess := func(x, mu []float64) *sparse.Matrix {
		va, vm, _, _ := m.State(x)
		v := power.Voltage(va, vm)

		var haa, hav, hva, hvv *sparse.Matrix
		w := make([]complex128, nl2)
		switch m.Mode {
		case LimCurrent:
			dva, dvm, cur := power.CurrentDerivs(ybr, v)
			for l := range w {
				w[l] = cmplx.Conj(cur[l]) * complex(mu[l], 0)
			}
			saa, sav, sva, svv := power.CurrentHess(ybr, v, w)
			haa, hav, hva, hvv = power.MagSqrHess(saa, sav, sva, svv, dva, dvm, mu)
		case LimActive:
			for l := range w {
				w[l] = complex(mu[l], 0)
			}
			saa, sav, sva, svv := power.FlowHess(ybr, side, v, w)
			haa, hav, hva, hvv = saa.Real(), sav.Real(), sva.Real(), svv.Real()
		case LimActiveSqr:
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
		return m.padHess(haa, hav, hva, hvv)
	}

	return Constraint{Name: name, Size: nl2, Eval: eval, Hess: hess}
}
