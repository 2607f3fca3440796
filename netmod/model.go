// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"errors"
	"slices"

	"github.com/curioloop/acopf/power"
	"github.com/curioloop/acopf/sparse"
)

// FlowLim selects the algebraic form of the branch limit constraints.
type FlowLim int

const (
	LimApparent  FlowLim = iota // |𝐒ᵇʳ|² − rating²
	LimActive                   // ℜ(𝐒ᵇʳ) − rating
	LimActiveSqr                // ℜ(𝐒ᵇʳ)² − rating²
	LimCurrent                  // |𝐈ᵇʳ|² − rating²
)

// String returns the single letter option code of the limit form.
func (f FlowLim) String() string {
	switch f {
	case LimApparent:
		return "S"
	case LimActive:
		return "P"
	case LimActiveSqr:
		return "2"
	case LimCurrent:
		return "I"
	}
	return "?"
}

// ParseFlowLim maps an option code to the limit form it selects.
func ParseFlowLim(s string) (FlowLim, error) {
	switch s {
	case "S":
		return LimApparent, nil
	case "P":
		return LimActive, nil
	case "2":
		return LimActiveSqr, nil
	case "I":
		return LimCurrent, nil
	}
	return 0, errors.New("unknown flow limit form " + s)
}

// ConstraintFn evaluates one constraint set at 𝐱:
//   - 𝒄(𝐱) : ℝⁿ → ℝᵐ
//   - 𝒄′(𝐱) : ℝⁿ → ℝᵐˣⁿ, computed only when jac is set
type ConstraintFn func(x []float64, jac bool) (vals []float64, djac *sparse.Matrix)

// HessianFn evaluates the multiplier contraction Σₖ 𝛌ₖ·∂²𝒄ₖ/∂𝐱² ∈ ℝⁿˣⁿ
// of one constraint set.
type HessianFn func(x, lam []float64) *sparse.Matrix

// Constraint is one named set of nonlinear constraints over the state vector.
type Constraint struct {
	Name string
	Size int
	Eval ConstraintFn
	Hess HessianFn
}

// FlowSet is the monitored branch subset prepared for limit evaluation.
// Matrix rows and slice entries follow the monitored branch order.
type FlowSet struct {
	Yf, Yt   *sparse.CMatrix // monitored rows of the branch admittances
	From, To []int           // monitored endpoint buses
	Limit    []float64       // rating in p.u., +Inf for unrated branches
}

// Model is an assembled network model ready for constraint evaluation.
// The tables are private copies of the case and stay read-only after
// assembly. The generator table keeps the in-service units only.
//
// A model is immutable and safe for concurrent evaluation.
type Model struct {
	Base     float64 // per-unit power base (MVA)
	Buses    []Bus
	Gens     []Gen
	Branches []Branch
	Adm      *Admittance
	Part     *Partition
	Mode     FlowLim
	Load     power.ZIP
	Flows    FlowSet

	// Registered constraint sets, stacked in order by the
	// generic evaluators below.
	EqCons  []Constraint
	NeqCons []Constraint

	pd, qd []float64 // bus demand (MW, MVAr)
}

// State splits 𝐱 into the standard voltage and dispatch blocks.
// The returned slices alias x and must be treated as read-only.
func (m *Model) State(x []float64) (va, vm, pg, qg []float64) {
	if len(x) != m.Part.N() {
		panic("x dimension not match model")
	}
	va = m.Part.Slice(x, Va)
	vm = m.Part.Slice(x, Vm)
	pg = m.Part.Slice(x, Pg)
	qg = m.Part.Slice(x, Qg)
	return
}

// DerivedGens returns a fresh copy of the generator table with the dispatch
// columns overwritten from per-unit state slices. The model table is never
// mutated.
func (m *Model) DerivedGens(pg, qg []float64) []Gen {
	if len(pg) != len(m.Gens) || len(qg) != len(m.Gens) {
		panic("dimension not match")
	}
	gens := slices.Repeat(m.Gens, 1)
	for k := range gens {
		gens[k].Pg = pg[k] * m.Base
		gens[k].Qg = qg[k] * m.Base
	}
	return gens
}

// Injection bundles the net injection inputs for a generator table.
func (m *Model) Injection(gens []Gen) power.Injection {
	bus := make([]int, len(gens))
	pg := make([]float64, len(gens))
	qg := make([]float64, len(gens))
	for k, g := range gens {
		bus[k], pg[k], qg[k] = g.Bus, g.Pg, g.Qg
	}
	return power.Injection{
		BaseMVA: m.Base,
		Pd:      m.pd,
		Qd:      m.qd,
		GenBus:  bus,
		Pg:      pg,
		Qg:      qg,
		Load:    m.Load,
	}
}

// Constraints evaluates the registered sets of one class, stacking values
// and Jacobians in registration order. The Jacobian rows follow the stacked
// constraints and the columns cover the whole partition.
func (m *Model) Constraints(x []float64, eq, jac bool) (vals []float64, djac *sparse.Matrix) {

	sets := m.NeqCons
	if eq {
		sets = m.EqCons
	}

	size := 0
	for _, c := range sets {
		size += c.Size
	}

	vals = make([]float64, 0, size)
	var ab *sparse.Builder
	if jac {
		ab = sparse.NewBuilder(size, m.Part.N())
	}
	for _, c := range sets {
		cv, cj := c.Eval(x, jac)
		if len(cv) != c.Size {
			panic("constraint size not match " + c.Name)
		}
		if jac {
			ab.AddMatrix(len(vals), 0, cj)
		}
		vals = append(vals, cv...)
	}
	if jac {
		djac = ab.Build()
	}
	return
}

// ConstraintHess contracts the registered sets of one class with a
// multiplier vector: Σₖ 𝛌ₖ·∂²𝒄ₖ/∂𝐱². The result is symmetric and covers
// the whole partition.
func (m *Model) ConstraintHess(x, lam []float64, eq bool) *sparse.Matrix {

	sets := m.NeqCons
	if eq {
		sets = m.EqCons
	}

	size := 0
	for _, c := range sets {
		size += c.Size
	}
	if len(lam) != size {
		panic("lambda dimension not match model")
	}

	n := m.Part.N()
	if len(sets) == 0 {
		return sparse.NewBuilder(n, n).Build()
	}

	parts := make([]*sparse.Matrix, len(sets))
	off := 0
	for k, c := range sets {
		parts[k] = c.Hess(x, lam[off:off+c.Size])
		off += c.Size
	}
	return sparse.Sum(parts...)
}
