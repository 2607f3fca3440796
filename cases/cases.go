// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package cases provides small built-in reference networks.
// Each constructor returns fresh tables together with the literal
// admittance matrices of the network, so callers may mutate freely.
package cases

import (
	"github.com/curioloop/acopf/netmod"
	"github.com/curioloop/acopf/sparse"
)

// Names lists the built-in network identifiers accepted by Get.
func Names() []string { return []string{"case2", "case3"} }

// Get returns the built-in network with the given identifier,
// or nil tables when the identifier is unknown.
func Get(name string) (*netmod.Case, *netmod.Admittance) {
	switch name {
	case "case2":
		return Case2()
	case "case3":
		return Case3()
	}
	return nil, nil
}

// Case2 is a two bus exchange over a single lossless line.
//
// The line is a pure reactance x = 0.1 p.u. rated at 50 MVA, so the
// transfer obeys P = 10·sin(θ) and the apparent flow at either end is
// |S|² = 200·(1 − cos θ) with a flat voltage profile. The receiving
// generator may absorb, its active range extends below zero.
func Case2() (*netmod.Case, *netmod.Admittance) {

	cs := &netmod.Case{
		BaseMVA: 100,
		Buses: []netmod.Bus{
			{},
			{Pd: 50, Qd: 10},
		},
		Gens: []netmod.Gen{
			{Bus: 0, Pg: 50, PMin: 0, PMax: 200, QMin: -100, QMax: 100,
				InService: true, Cost: []float64{0.02, 20, 0}},
			{Bus: 1, Pg: 0, PMin: -200, PMax: 200, QMin: -100, QMax: 100,
				InService: true, Cost: []float64{0.01, 30, 0}},
		},
		Branches: []netmod.Branch{
			{From: 0, To: 1, RateA: 50, InService: true},
		},
	}

	// Series admittance of the x = 0.1 p.u. line.
	y := complex(0, -10)

	yb := sparse.NewCBuilder(2, 2)
	yb.Add(0, 0, y)
	yb.Add(0, 1, -y)
	yb.Add(1, 0, -y)
	yb.Add(1, 1, y)

	fb := sparse.NewCBuilder(1, 2)
	fb.Add(0, 0, y)
	fb.Add(0, 1, -y)

	tb := sparse.NewCBuilder(1, 2)
	tb.Add(0, 0, -y)
	tb.Add(0, 1, y)

	adm := &netmod.Admittance{Ybus: yb.Build(), Yf: fb.Build(), Yt: tb.Build()}
	return cs, adm
}

// Case3 is a three bus meshed network with resistive losses and shunt
// charging. Two generators serve two loads, with a reactive price on
// the second unit, and the branch closing the mesh carries the only
// flow rating.
func Case3() (*netmod.Case, *netmod.Admittance) {

	cs := &netmod.Case{
		BaseMVA: 100,
		Buses: []netmod.Bus{
			{},
			{Pd: 90, Qd: 30},
			{Pd: 42, Qd: 16},
		},
		Gens: []netmod.Gen{
			{Bus: 0, Pg: 80, PMin: 10, PMax: 250, QMin: -100, QMax: 100,
				InService: true, Cost: []float64{0.011, 5, 150}},
			{Bus: 2, Pg: 60, PMin: 10, PMax: 300, QMin: -100, QMax: 100,
				InService: true, Cost: []float64{0.005, 1.2, 600}, QCost: []float64{4, 0}},
		},
		Branches: []netmod.Branch{
			{From: 0, To: 1, InService: true},
			{From: 0, To: 2, InService: true},
			{From: 1, To: 2, RateA: 40, InService: true},
		},
	}

	// Series admittances and half charging susceptances per branch.
	ys1 := 1 / complex(0.02, 0.06)
	ys2 := 1 / complex(0.08, 0.24)
	ys3 := 1 / complex(0.06, 0.18)
	bc1 := complex(0, 0.03)
	bc2 := complex(0, 0.025)
	bc3 := complex(0, 0.02)

	yb := sparse.NewCBuilder(3, 3)
	yb.Add(0, 0, ys1+bc1+ys2+bc2)
	yb.Add(0, 1, -ys1)
	yb.Add(0, 2, -ys2)
	yb.Add(1, 0, -ys1)
	yb.Add(1, 1, ys1+bc1+ys3+bc3)
	yb.Add(1, 2, -ys3)
	yb.Add(2, 0, -ys2)
	yb.Add(2, 1, -ys3)
	yb.Add(2, 2, ys2+bc2+ys3+bc3)

	fb := sparse.NewCBuilder(3, 3)
	fb.Add(0, 0, ys1+bc1)
	fb.Add(0, 1, -ys1)
	fb.Add(1, 0, ys2+bc2)
	fb.Add(1, 2, -ys2)
	fb.Add(2, 1, ys3+bc3)
	fb.Add(2, 2, -ys3)

	tb := sparse.NewCBuilder(3, 3)
	tb.Add(0, 0, -ys1)
	tb.Add(0, 1, ys1+bc1)
	tb.Add(1, 0, -ys2)
	tb.Add(1, 2, ys2+bc2)
	tb.Add(2, 1, -ys3)
	tb.Add(2, 2, ys3+bc3)

	adm := &netmod.Admittance{Ybus: yb.Build(), Yf: fb.Build(), Yt: tb.Build()}
	return cs, adm
}
