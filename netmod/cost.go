// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"github.com/curioloop/acopf/sparse"
)

// polyVal evaluates a polynomial with descending coefficients
// by the Horner scheme. An empty polynomial is zero.
func polyVal(c []float64, t float64) (v float64) {
	for _, a := range c {
		v = v*t + a
	}
	return
}

// polyDer returns the descending coefficients of the derivative.
func polyDer(c []float64) []float64 {
	n := len(c) - 1
	if n <= 0 {
		return nil
	}
	d := make([]float64, n)
	for k := 0; k < n; k++ {
		d[k] = c[k] * float64(n-k)
	}
	return d
}

// Cost evaluates the polynomial generation cost 𝒇(𝐱) at the physical
// dispatch of the in-service units. Units without coefficients are free.
func (m *Model) Cost(x []float64) (f float64) {
	_, _, pg, qg := m.State(x)
	for k, g := range m.Gens {
		f += polyVal(g.Cost, pg[k]*m.Base)
		if g.QCost != nil {
			f += polyVal(g.QCost, qg[k]*m.Base)
		}
	}
	return
}

// CostDerivs evaluates the cost 𝒇(𝐱) and its gradient 𝒇′(𝐱) over the
// whole partition. Only the dispatch blocks carry nonzero entries.
func (m *Model) CostDerivs(x []float64) (f float64, df []float64) {

	_, _, pg, qg := m.State(x)
	df = make([]float64, m.Part.N())
	pf, _ := m.Part.Range(Pg)
	qf, _ := m.Part.Range(Qg)

	for k, g := range m.Gens {
		f += polyVal(g.Cost, pg[k]*m.Base)
		df[pf-1+k] = polyVal(polyDer(g.Cost), pg[k]*m.Base) * m.Base
		if g.QCost != nil {
			f += polyVal(g.QCost, qg[k]*m.Base)
			df[qf-1+k] = polyVal(polyDer(g.QCost), qg[k]*m.Base) * m.Base
		}
	}
	return
}

// CostHess evaluates the second derivative 𝒇″(𝐱), a diagonal matrix over
// the whole partition.
func (m *Model) CostHess(x []float64) *sparse.Matrix {

	_, _, pg, qg := m.State(x)
	n := m.Part.N()
	pf, _ := m.Part.Range(Pg)
	qf, _ := m.Part.Range(Qg)

	ab := sparse.NewBuilder(n, n)
	for k, g := range m.Gens {
		d2 := polyVal(polyDer(polyDer(g.Cost)), pg[k]*m.Base) * m.Base * m.Base
		ab.Add(pf-1+k, pf-1+k, d2)
		if g.QCost != nil {
			d2 = polyVal(polyDer(polyDer(g.QCost)), qg[k]*m.Base) * m.Base * m.Base
			ab.Add(qf-1+k, qf-1+k, d2)
		}
	}
	return ab.Build()
}
