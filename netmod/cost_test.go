// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/curioloop/acopf/numdiff"
)

func TestPolyVal(t *testing.T) {

	require.Equal(t, 0.0, polyVal(nil, 3))
	require.Equal(t, 7.0, polyVal([]float64{7}, 2))
	// 2t² − 3t + 1 at t = 4
	require.Equal(t, 21.0, polyVal([]float64{2, -3, 1}, 4))

	require.Nil(t, polyDer([]float64{7}))
	require.Equal(t, []float64{4, -3}, polyDer([]float64{2, -3, 1}))
}

func TestCost(t *testing.T) {

	cs, adm := testCase()
	m, err := Assemble(cs, adm)
	require.NoError(t, err)

	x := testX(m)
	f := m.Cost(x)

	// unit 1: 0.01·50² + 40·50 + 100, unit 2: 0.02·20² + 30·20 + 50 + 2·(−5)
	require.InDelta(t, 2773.0, f, 1e-9)

	fd, df := m.CostDerivs(x)
	require.Equal(t, f, fd)
	require.Len(t, df, m.Part.N())

	pgf, _ := m.Part.Range(Pg)
	qgf, _ := m.Part.Range(Qg)
	require.InDelta(t, 4100.0, df[pgf-1], 1e-9)
	require.InDelta(t, 3080.0, df[pgf-1+1], 1e-9)
	require.Equal(t, 0.0, df[qgf-1])
	require.InDelta(t, 200.0, df[qgf-1+1], 1e-9)

	d2f := m.CostHess(x)
	require.Equal(t, 2, d2f.NNZ()) // the linear reactive cost carries no curvature
	require.InDelta(t, 200.0, d2f.At(pgf-1, pgf-1), 1e-9)
	require.InDelta(t, 400.0, d2f.At(pgf-1+1, pgf-1+1), 1e-9)
}

func TestCostDiff(t *testing.T) {

	cs, adm := testCase()
	m, err := Assemble(cs, adm)
	require.NoError(t, err)
	x := testX(m)

	_, df := m.CostDerivs(x)
	fd := numdiff.JacSpec{}.Jacobian(func(x, y []float64) {
		y[0] = m.Cost(x)
	}, x, 1)
	for j := range df {
		if d := math.Abs(df[j] - fd.At(0, j)); d > 1e-4 {
			t.Fatalf("gradient error %g at %d", d, j)
		}
	}

	d2f := m.CostHess(x)
	hess := numdiff.HessSpec{Step: 1e-5}.Hessian(func(x, g []float64) {
		_, df := m.CostDerivs(x)
		copy(g, df)
	}, x)
	for i := range df {
		for j := range df {
			if d := math.Abs(d2f.At(i, j) - hess.At(i, j)); d > 1e-4 {
				t.Fatalf("curvature error %g at (%d,%d)", d, i, j)
			}
		}
	}
}
