// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opf

import (
	"math/cmplx"

	"go.uber.org/zap"

	"github.com/curioloop/acopf/netmod"
	"github.com/curioloop/acopf/power"
	"github.com/curioloop/acopf/sparse"
)

// Multipliers carries the Lagrange multipliers of one optimizer iteration.
type Multipliers struct {
	EqNonlin   []float64 // one per power balance row (2·nb)
	IneqNonlin []float64 // one per branch limit row (2·nl2)
}

// CheckConfig enables the finite difference diagnostic. It is a development
// aid: analytic derivatives are recomputed by central differences after each
// evaluation and compared against fixed thresholds. Findings are logged and
// never alter the returned values.
type CheckConfig struct {
	Enabled bool
	Step    float64 // perturbation width δ (default 1e-7)
	Workers int     // concurrent difference columns
}

// Evaluator computes the nonlinear constraints 𝒈(𝐱), 𝒉(𝐱), their Jacobians
// and the Lagrangian Hessian 𝐋ₓₓ of an assembled model on behalf of an
// interior point optimizer.
//
// Every hand-assembled quantity is recomputed through the model constraint
// registry and both derivations must agree exactly. The two code paths are
// algebraically identical by construction, so any nonzero difference is an
// implementation defect: it is logged and aborts the evaluation.
//
// An evaluator is stateless and safe for concurrent use.
type Evaluator struct {
	Model *netmod.Model
	// Optional Hessian sparsity template: its entries are added elementwise
	// so the returned pattern is stable across iterations. The template must
	// be symmetric and sized to the partition.
	Pattern *sparse.Matrix
	Check   CheckConfig
	Log     *zap.Logger
}

func (e *Evaluator) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

// Constraints evaluates the constraints at a state vector:
//   - 𝒈(𝐱) = [ℜ(𝐦𝐢𝐬); ℑ(𝐦𝐢𝐬)] with 𝐦𝐢𝐬 = 𝐕 ⊙ conj(𝐘ᵇᵘˢ·𝐕) − 𝐒ᵇᵘˢ
//   - 𝒉(𝐱) = [𝒉ᶠ; 𝒉ᵗ] branch limits over the monitored branches
func (e *Evaluator) Constraints(x []float64) (g, h []float64) {
	g, h, _, _ = e.eval(x, false)
	return
}

// ConstraintsJac evaluates the constraints and their Jacobians. The returned
// matrices are transposed: one row per state variable, one column per
// constraint.
func (e *Evaluator) ConstraintsJac(x []float64) (g, h []float64, dg, dh *sparse.Matrix) {
	g, h, dg, dh = e.eval(x, true)
	dg = dg.Transpose()
	dh = dh.Transpose()
	return
}

func (e *Evaluator) eval(x []float64, jac bool) (g, h []float64, dg, dh *sparse.Matrix) {

	m := e.Model
	va, vm, pg, qg := m.State(x)
	gens := m.DerivedGens(pg, qg)
	v := power.Voltage(va, vm)
	inj := m.Injection(gens)
	sbus, dsd := inj.Sbus(vm)

	nb := len(m.Buses)
	ibus := make([]complex128, nb)
	m.Adm.Ybus.MulVec(v, ibus)
	g = make([]float64, 2*nb)
	for i := 0; i < nb; i++ {
		mis := v[i]*cmplx.Conj(ibus[i]) - sbus[i]
		g[i], g[nb+i] = real(mis), imag(mis)
	}

	flows := m.Flows
	nl2 := len(flows.From)
	h = make([]float64, 2*nl2)
	if nl2 > 0 {
		flowVals(m.Mode, flows.Yf, flows.From, flows.Limit, v, h[:nl2])
		flowVals(m.Mode, flows.Yt, flows.To, flows.Limit, v, h[nl2:])
	}

	gm, dgm := m.Constraints(x, true, jac)
	hm, dhm := m.Constraints(x, false, jac)
	e.guardVec("balance", g, gm)
	e.guardVec("flow", h, hm)
	if !jac {
		return
	}

	n := m.Part.N()
	vaf, _ := m.Part.Range(netmod.Va)
	vmf, _ := m.Part.Range(netmod.Vm)
	pgf, _ := m.Part.Range(netmod.Pg)
	qgf, _ := m.Part.Range(netmod.Qg)

	dva, dvm, _ := power.BusInjDerivs(m.Adm.Ybus, v)
	for i := range dsd {
		dsd[i] = -dsd[i]
	}
	dvm = sparse.CSum(dvm, sparse.CDiag(dsd))

	gb := sparse.NewBuilder(2*nb, n)
	gb.AddMatrix(0, vaf-1, dva.Real())
	gb.AddMatrix(0, vmf-1, dvm.Real())
	gb.AddMatrix(nb, vaf-1, dva.Imag())
	gb.AddMatrix(nb, vmf-1, dvm.Imag())
	for k, u := range m.Gens {
		gb.Add(u.Bus, pgf-1+k, -1)
		gb.Add(nb+u.Bus, qgf-1+k, -1)
	}
	dg = gb.Build()

	hb := sparse.NewBuilder(2*nl2, n)
	if nl2 > 0 {
		ava, avm := flowJac(m.Mode, flows.Yf, flows.From, v)
		hb.AddMatrix(0, vaf-1, ava)
		hb.AddMatrix(0, vmf-1, avm)
		ava, avm = flowJac(m.Mode, flows.Yt, flows.To, v)
		hb.AddMatrix(nl2, vaf-1, ava)
		hb.AddMatrix(nl2, vmf-1, avm)
	}
	dh = hb.Build()

	e.guardMat("balance", dg, dgm)
	e.guardMat("flow", dh, dhm)

	if e.Check.Enabled {
		e.checkJac("balance", checkEqTol, dg, x, true)
		if nl2 > 0 {
			e.checkJac("flow", checkIneqTol, dh, x, false)
		}
	}
	return
}

// flowVals fills one side of the branch limit vector.
// Unrated branches carry an infinite limit, their entry never binds.
func flowVals(mode netmod.FlowLim, ybr *sparse.CMatrix, side []int, lim []float64, v []complex128, h []float64) {

	nl2 := len(side)
	cur := make([]complex128, nl2)
	ybr.MulVec(v, cur)
	flow := cur
	if mode != netmod.LimCurrent {
		flow = make([]complex128, nl2)
		for l, b := range side {
			flow[l] = v[b] * cmplx.Conj(cur[l])
		}
	}
	for l, f := range flow {
		switch mode {
		case netmod.LimActive:
			h[l] = real(f) - lim[l]
		case netmod.LimActiveSqr:
			h[l] = real(f)*real(f) - lim[l]*lim[l]
		default:
			h[l] = real(f)*real(f) + imag(f)*imag(f) - lim[l]*lim[l]
		}
	}
}

// flowJac assembles one side of the limit Jacobian voltage blocks.
func flowJac(mode netmod.FlowLim, ybr *sparse.CMatrix, side []int, v []complex128) (ava, avm *sparse.Matrix) {

	switch mode {
	case netmod.LimCurrent:
		dva, dvm, cur := power.CurrentDerivs(ybr, v)
		ava, avm = power.MagSqrDerivs(dva, dvm, cur)
	case netmod.LimActive:
		dva, dvm, _ := power.FlowDerivs(ybr, side, v)
		ava, avm = dva.Real(), dvm.Real()
	case netmod.LimActiveSqr:
		dva, dvm, flow := power.FlowDerivs(ybr, side, v)
		rf := make([]complex128, len(flow))
		for l := range rf {
			rf[l] = complex(real(flow[l]), 0)
		}
		ava, avm = power.MagSqrDerivs(dva.Real().Complex(), dvm.Real().Complex(), rf)
	default:
		dva, dvm, flow := power.FlowDerivs(ybr, side, v)
		ava, avm = power.MagSqrDerivs(dva, dvm, flow)
	}
	return
}

// guardVec asserts exact agreement of the two constraint value derivations.
func (e *Evaluator) guardVec(name string, direct, model []float64) {
	if len(direct) != len(model) {
		panic("dimension not match")
	}
	for i := range direct {
		if direct[i] != model[i] {
			e.logger().Error("constraint paths diverged",
				zap.String("set", name), zap.Int("index", i),
				zap.Float64("direct", direct[i]), zap.Float64("model", model[i]))
			panic("constraint paths diverged")
		}
	}
}

// guardMat asserts exact agreement of the two derivative derivations over
// the union of their patterns.
func (e *Evaluator) guardMat(name string, direct, model *sparse.Matrix) {
	if d, r, c := sparse.MaxAbsDiff(direct, model); d != 0 {
		e.logger().Error("constraint paths diverged",
			zap.String("set", name), zap.Int("row", r), zap.Int("col", c),
			zap.Float64("diff", d))
		panic("constraint paths diverged")
	}
}
