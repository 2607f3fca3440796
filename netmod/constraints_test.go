// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curioloop/acopf/numdiff"
	"github.com/curioloop/acopf/power"
	"github.com/curioloop/acopf/sparse"
)

var testZIP = power.ZIP{
	P: [3]float64{0.2, 0.3, 0.5},
	Q: [3]float64{0.4, 0.35, 0.25},
}

func fdJacCheck(t *testing.T, m *Model, x []float64, eq bool, tol float64) {
	t.Helper()

	vals, jac := m.Constraints(x, eq, true)
	fd := numdiff.JacSpec{Workers: 2}.Jacobian(func(x, y []float64) {
		v, _ := m.Constraints(x, eq, false)
		copy(y, v)
	}, x, len(vals))

	rows, cols := jac.Dims()
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if d := math.Abs(jac.At(i, j) - fd.At(i, j)); d > tol {
				t.Fatalf("jacobian error %g at (%d,%d)", d, i, j)
			}
		}
	}
}

func fdHessCheck(t *testing.T, m *Model, x, lam []float64, eq bool, tol float64) {
	t.Helper()

	hess := m.ConstraintHess(x, lam, eq)
	fd := numdiff.HessSpec{Workers: 2}.Hessian(func(x, g []float64) {
		_, jac := m.Constraints(x, eq, true)
		jac.TransMulVec(lam, g)
	}, x)

	n := m.Part.N()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if d := math.Abs(hess.At(i, j) - fd.At(i, j)); d > tol {
				t.Fatalf("hessian error %g at (%d,%d)", d, i, j)
			}
			if d := math.Abs(hess.At(i, j) - hess.At(j, i)); d > 1e-9 {
				t.Fatalf("hessian asymmetric by %g at (%d,%d)", d, i, j)
			}
		}
	}
}

func TestBalanceConstraints(t *testing.T) {

	cs, adm := testCase()
	m, err := Assemble(cs, adm)
	require.NoError(t, err)

	x := testX(m)
	g, dg := m.Constraints(x, true, true)
	require.Len(t, g, 6)

	// each unit enters its host bus mismatch with coefficient −1
	pgf, _ := m.Part.Range(Pg)
	qgf, _ := m.Part.Range(Qg)
	require.Equal(t, -1.0, dg.At(0, pgf-1))
	require.Equal(t, -1.0, dg.At(2, pgf-1+1))
	require.Equal(t, -1.0, dg.At(3, qgf-1))
	require.Equal(t, -1.0, dg.At(5, qgf-1+1))

	fdJacCheck(t, m, x, true, 1e-6)
}

func TestBalanceConstraintsZIP(t *testing.T) {

	cs, adm := testCase()
	m, err := Assemble(cs, adm, WithLoadModel(testZIP))
	require.NoError(t, err)

	x := testX(m)
	g, _ := m.Constraints(x, true, false)
	require.Len(t, g, 6)
	fdJacCheck(t, m, x, true, 1e-6)
}

func TestFlowConstraints(t *testing.T) {

	cs, adm := testCase()
	for _, mode := range []FlowLim{LimApparent, LimActive, LimActiveSqr, LimCurrent} {
		t.Run(mode.String(), func(t *testing.T) {
			m, err := Assemble(cs, adm, WithFlowLimit(mode))
			require.NoError(t, err)

			x := testX(m)
			h, _ := m.Constraints(x, false, false)
			require.Len(t, h, 4)
			fdJacCheck(t, m, x, false, 1e-6)
		})
	}
}

func TestFlowLimitForms(t *testing.T) {

	cs, adm := testCase()
	x := []float64{0, -0.02, 0.03, 1.0, 0.98, 1.02, 0.5, 0.2, 0.1, -0.05}

	eval := func(mode FlowLim) []float64 {
		m, err := Assemble(cs, adm, WithFlowLimit(mode))
		require.NoError(t, err)
		h, _ := m.Constraints(x, false, false)
		return h
	}

	hs := eval(LimApparent)
	hp := eval(LimActive)
	h2 := eval(LimActiveSqr)

	lim := []float64{0.6, 0.4, 0.6, 0.4}
	for l := range lim {
		// |S|² dominates ℜ(S)² and the linear form carries the plain flow
		require.GreaterOrEqual(t, hs[l], h2[l])
		p := hp[l] + lim[l]
		require.InDelta(t, h2[l], p*p-lim[l]*lim[l], 1e-12)
	}
}

func TestConstraintHess(t *testing.T) {

	cs, adm := testCase()
	lam := []float64{0.1, -0.5, 0.3, 0.2, -0.1, 0.4}
	mu := []float64{0.9, -0.3, 0.2, 0.7}

	t.Run("balance", func(t *testing.T) {
		m, err := Assemble(cs, adm)
		require.NoError(t, err)
		fdHessCheck(t, m, testX(m), lam, true, 1e-5)
	})

	t.Run("balanceZIP", func(t *testing.T) {
		m, err := Assemble(cs, adm, WithLoadModel(testZIP))
		require.NoError(t, err)
		fdHessCheck(t, m, testX(m), lam, true, 1e-5)
	})

	for _, mode := range []FlowLim{LimApparent, LimActive, LimActiveSqr, LimCurrent} {
		t.Run("flow"+mode.String(), func(t *testing.T) {
			m, err := Assemble(cs, adm, WithFlowLimit(mode))
			require.NoError(t, err)
			fdHessCheck(t, m, testX(m), mu, false, 1e-5)
		})
	}
}

func TestConstraintHessEmpty(t *testing.T) {

	cs, adm := testCase()
	m, err := Assemble(cs, adm, WithMonitored(nil))
	require.NoError(t, err)

	hess := m.ConstraintHess(testX(m), nil, false)
	r, c := hess.Dims()
	require.Equal(t, []int{10, 10}, []int{r, c})
	require.Equal(t, 0, hess.NNZ())
}

func TestCustomConstraint(t *testing.T) {

	cs, adm := testCase()
	m, err := Assemble(cs, adm)
	require.NoError(t, err)
	n := m.Part.N()

	// registry sets are generic, append a box-style set on the first angle
	m.NeqCons = append(m.NeqCons, Constraint{
		Name: "box", Size: 1,
		Eval: func(x []float64, jac bool) ([]float64, *sparse.Matrix) {
			vals := []float64{x[0] * x[0]}
			if !jac {
				return vals, nil
			}
			ab := sparse.NewBuilder(1, n)
			ab.Add(0, 0, 2*x[0])
			return vals, ab.Build()
		},
		Hess: func(x, lam []float64) *sparse.Matrix {
			ab := sparse.NewBuilder(n, n)
			ab.Add(0, 0, 2*lam[0])
			return ab.Build()
		},
	})

	x := testX(m)
	x[0] = 0.04
	h, dh := m.Constraints(x, false, true)
	require.Len(t, h, 5)
	require.InDelta(t, 0.0016, h[4], 1e-15)
	require.InDelta(t, 0.08, dh.At(4, 0), 1e-15)

	mu := []float64{0, 0, 0, 0, 3}
	hess := m.ConstraintHess(x, mu, false)
	require.InDelta(t, 6.0, hess.At(0, 0), 1e-15)
}
