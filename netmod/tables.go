// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"github.com/curioloop/acopf/sparse"
)

// Bus holds the static record of a single network bus.
// Demand is given in physical units and converted to per-unit
// against the case base where it is consumed.
type Bus struct {
	Pd float64 // Active power demand (MW)
	Qd float64 // Reactive power demand (MVAr)
}

// Gen holds the record of a single generating unit.
// Dispatch and limits are in physical units (MW, MVAr).
// Cost coefficients are polynomial in descending power,
// evaluated on the physical dispatch.
type Gen struct {
	Bus       int       // Index of the host bus
	Pg, Qg    float64   // Active/reactive dispatch (MW, MVAr)
	PMin      float64   // Minimum active output (MW)
	PMax      float64   // Maximum active output (MW)
	QMin      float64   // Minimum reactive output (MVAr)
	QMax      float64   // Maximum reactive output (MVAr)
	InService bool      // Out-of-service units never contribute
	Cost      []float64 // Active dispatch cost polynomial ($/h over MW)
	QCost     []float64 // Optional reactive cost polynomial (nil for none)
}

// Branch holds the record of a single transmission branch.
// The electrical parameters live in the case admittance matrices,
// whose branch rows follow the order of this table.
type Branch struct {
	From, To  int     // Endpoint bus indexes
	RateA     float64 // Long-term flow rating (MVA), 0 means unlimited
	InService bool    // Out-of-service branches carry no limit
}

// Case bundles the tabular description of a network.
type Case struct {
	BaseMVA  float64 // Per-unit power base (MVA)
	Buses    []Bus
	Gens     []Gen
	Branches []Branch
}

// Admittance holds the complex network matrices of a case:
//   - 𝐘ᵇᵘˢ : bus injection currents 𝐈 = 𝐘ᵇᵘˢ·𝐕
//   - 𝐘ᶠ, 𝐘ᵗ : branch end currents 𝐈ᶠ = 𝐘ᶠ·𝐕 and 𝐈ᵗ = 𝐘ᵗ·𝐕
//
// Rows of 𝐘ᶠ and 𝐘ᵗ follow the case branch table.
// The matrices are supplied literally by the case and
// never rebuilt from branch parameters.
type Admittance struct {
	Ybus *sparse.CMatrix
	Yf   *sparse.CMatrix
	Yt   *sparse.CMatrix
}
