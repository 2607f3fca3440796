// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opf

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/curioloop/acopf/cases"
	"github.com/curioloop/acopf/netmod"
	"github.com/curioloop/acopf/power"
	"github.com/curioloop/acopf/sparse"
)

var limModes = []netmod.FlowLim{
	netmod.LimApparent, netmod.LimActive, netmod.LimActiveSqr, netmod.LimCurrent,
}

func stateVec(m *netmod.Model, va, vm, pg, qg []float64) []float64 {
	x := make([]float64, m.Part.N())
	copy(m.Part.Slice(x, netmod.Va), va)
	copy(m.Part.Slice(x, netmod.Vm), vm)
	copy(m.Part.Slice(x, netmod.Pg), pg)
	copy(m.Part.Slice(x, netmod.Qg), qg)
	return x
}

func case3State(m *netmod.Model) []float64 {
	return stateVec(m,
		[]float64{0, -0.02, 0.03}, []float64{1, 0.98, 1.02},
		[]float64{0.8, 0.6}, []float64{0.1, -0.05})
}

// TestLosslessExchange transfers exactly the rated power of a pure reactance
// line. With the angle spread chosen so that 1 − cos θ = 0.00125 the apparent
// flow satisfies |S|² = 200·(1 − cos θ)/base² = rating², and dispatching the
// units to carry the line flow plus the local load zeroes the mismatch.
func TestLosslessExchange(t *testing.T) {

	theta := math.Acos(1 - 0.00125)
	cs, adm := cases.Case2()

	v := []complex128{cmplx.Rect(1, 0), cmplx.Rect(1, -theta)}
	ibus := make([]complex128, 2)
	adm.Ybus.MulVec(v, ibus)
	s0 := v[0] * cmplx.Conj(ibus[0])
	s1 := v[1] * cmplx.Conj(ibus[1])
	pg := []float64{real(s0), real(s1) + 0.5}
	qg := []float64{imag(s0), imag(s1) + 0.1}

	for _, mode := range limModes {
		t.Run(mode.String(), func(t *testing.T) {
			m, err := netmod.Assemble(cs, adm, netmod.WithFlowLimit(mode))
			require.NoError(t, err)
			ev := &Evaluator{Model: m}
			x := stateVec(m, []float64{0, -theta}, []float64{1, 1}, pg, qg)

			g, h := ev.Constraints(x)
			require.Len(t, g, 4)
			require.Len(t, h, 2)
			for i, gi := range g {
				require.InDelta(t, 0, gi, 1e-12, "mismatch %d", i)
			}

			switch mode {
			case netmod.LimActive:
				// the active form compares against the plain rating
				require.InDelta(t, 10*math.Sin(theta)-0.5, h[0], 1e-12)
				require.Negative(t, h[0])
			case netmod.LimActiveSqr:
				p := 10 * math.Sin(theta)
				require.InDelta(t, p*p-0.25, h[0], 1e-12)
				require.Negative(t, h[0])
			default:
				// apparent power and current meet the rating at both ends
				require.InDelta(t, 0, h[0], 1e-9)
				require.InDelta(t, 0, h[1], 1e-9)
			}
		})
	}
}

// TestJacobianOrientation pins the returned orientation: one row per state
// variable, one column per constraint, generators entering their host bus
// with coefficient −1.
func TestJacobianOrientation(t *testing.T) {

	cs, adm := cases.Case3()
	m, err := netmod.Assemble(cs, adm)
	require.NoError(t, err)
	ev := &Evaluator{Model: m}
	x := case3State(m)

	g, h, dg, dh := ev.ConstraintsJac(x)
	require.Len(t, g, 6)
	require.Len(t, h, 2)

	r, c := dg.Dims()
	require.Equal(t, 10, r)
	require.Equal(t, 6, c)
	r, c = dh.Dims()
	require.Equal(t, 10, r)
	require.Equal(t, 2, c)

	pgf, _ := m.Part.Range(netmod.Pg)
	qgf, _ := m.Part.Range(netmod.Qg)
	require.Equal(t, -1.0, dg.At(pgf-1, 0))
	require.Equal(t, -1.0, dg.At(pgf-1+1, 2))
	require.Equal(t, -1.0, dg.At(qgf-1, 3))
	require.Equal(t, -1.0, dg.At(qgf-1+1, 5))

	// branch limits never touch the dispatch blocks
	for r := pgf - 1; r < m.Part.N(); r++ {
		for c := 0; c < 2; c++ {
			require.Zero(t, dh.At(r, c))
		}
	}

	g2, h2 := ev.Constraints(x)
	require.Empty(t, cmp.Diff(g, g2))
	require.Empty(t, cmp.Diff(h, h2))
}

// TestUnratedMonitored lists every branch explicitly: the unrated rows carry
// an infinite limit and evaluate to −Inf while their derivatives stay finite.
func TestUnratedMonitored(t *testing.T) {

	cs, adm := cases.Case3()
	m, err := netmod.Assemble(cs, adm, netmod.WithMonitored([]int{0, 1, 2}))
	require.NoError(t, err)
	ev := &Evaluator{Model: m}
	x := case3State(m)

	_, h, _, dh := ev.ConstraintsJac(x)
	require.Len(t, h, 6)
	for _, l := range []int{0, 1, 3, 4} {
		require.True(t, math.IsInf(h[l], -1), "row %d", l)
	}
	for _, l := range []int{2, 5} {
		require.False(t, math.IsInf(h[l], 0), "row %d", l)
	}

	rows, _ := dh.Dims()
	for r := 0; r < rows; r++ {
		_, vals := dh.Row(r)
		for _, dv := range vals {
			require.False(t, math.IsInf(dv, 0) || math.IsNaN(dv))
		}
	}
}

// TestPathDivergencePanics skews one derivation by the smallest visible
// amount: the cross check demands exact agreement and must abort.
func TestPathDivergencePanics(t *testing.T) {

	cs, adm := cases.Case2()
	x2 := []float64{0, -0.01, 1, 0.99, 0.4, 0.1, 0.05, -0.02}

	t.Run("values", func(t *testing.T) {
		m, err := netmod.Assemble(cs, adm)
		require.NoError(t, err)
		ev := &Evaluator{Model: m}

		orig := m.EqCons[0].Eval
		m.EqCons[0].Eval = func(x []float64, jac bool) ([]float64, *sparse.Matrix) {
			vals, dj := orig(x, jac)
			vals[0] += 1e-12
			return vals, dj
		}
		require.PanicsWithValue(t, "constraint paths diverged", func() { ev.Constraints(x2) })
	})

	t.Run("jacobian", func(t *testing.T) {
		m, err := netmod.Assemble(cs, adm)
		require.NoError(t, err)
		ev := &Evaluator{Model: m}

		orig := m.NeqCons[0].Eval
		m.NeqCons[0].Eval = func(x []float64, jac bool) ([]float64, *sparse.Matrix) {
			vals, dj := orig(x, jac)
			if dj != nil {
				dj = dj.Scale(1 + 1e-15)
			}
			return vals, dj
		}
		require.NotPanics(t, func() { ev.Constraints(x2) })
		require.PanicsWithValue(t, "constraint paths diverged", func() { ev.ConstraintsJac(x2) })
	})
}

// TestDifferenceDiagnostic runs the optional check on a voltage dependent
// model: every comparison must land below its threshold.
func TestDifferenceDiagnostic(t *testing.T) {

	core, logs := observer.New(zap.InfoLevel)
	zip := power.ZIP{P: [3]float64{0.2, 0.3, 0.5}, Q: [3]float64{0.4, 0.35, 0.25}}

	cs, adm := cases.Case3()
	m, err := netmod.Assemble(cs, adm, netmod.WithLoadModel(zip))
	require.NoError(t, err)
	ev := &Evaluator{
		Model: m,
		Check: CheckConfig{Enabled: true, Workers: 2},
		Log:   zap.New(core),
	}
	x := case3State(m)

	ev.ConstraintsJac(x)
	ev.Hessian(x, Multipliers{
		EqNonlin:   []float64{0.1, -0.5, 0.3, 0.2, -0.1, 0.4},
		IneqNonlin: []float64{0.9, -0.3},
	}, 1)

	require.Zero(t, logs.FilterMessage("difference check exceeded").Len())
	require.Equal(t, 5, logs.FilterMessage("difference check passed").Len())
}
