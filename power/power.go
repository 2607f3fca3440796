// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package power

import (
	"math/cmplx"
)

const (
	zero = 0.0
	one  = 1.0
	two  = 2.0
)

// Voltage assembles the complex bus voltages 𝐕 = 𝐕𝚖 ⊙ 𝒆^(𝒋·𝐕𝚊)
// from polar coordinates.
func Voltage(va, vm []float64) []complex128 {
	if len(va) != len(vm) {
		panic("dimension not match")
	}
	v := make([]complex128, len(va))
	for i := range v {
		v[i] = cmplx.Rect(vm[i], va[i])
	}
	return v
}

// ZIP weights the constant power, constant current and constant impedance
// fractions of the active and reactive load model. The three weights of a
// fraction sum to one. The zero value means constant power load.
type ZIP struct {
	P, Q [3]float64
}

func (z ZIP) weights() (pw, qw [3]float64) {
	pw, qw = z.P, z.Q
	if pw == [3]float64{} {
		pw = [3]float64{one, zero, zero}
	}
	if qw == [3]float64{} {
		qw = [3]float64{one, zero, zero}
	}
	return
}

// Injection collects the physical-unit inputs of the net bus power injection.
// Loads are per bus, generation vectors hold the in-service units only.
type Injection struct {
	BaseMVA float64
	Pd, Qd  []float64 // bus load, MW and MVAr
	GenBus  []int     // bus index of each unit
	Pg, Qg  []float64 // unit output, MW and MVAr
	Load    ZIP
}

// Sbus computes the net injected complex power in p.u. at every bus and its
// diagonal partial derivative with respect to the voltage magnitudes.
// The derivative is zero everywhere for constant power loads.
func (inj *Injection) Sbus(vm []float64) (sbus, dvm []complex128) {
	nb := len(inj.Pd)
	ng := len(inj.GenBus)
	if len(inj.Qd) != nb || len(vm) != nb {
		panic("dimension not match")
	}
	if len(inj.Pg) != ng || len(inj.Qg) != ng {
		panic("dimension not match")
	}

	pw, qw := inj.Load.weights()
	base := inj.BaseMVA
	sbus = make([]complex128, nb)
	dvm = make([]complex128, nb)
	for i := 0; i < nb; i++ {
		m := vm[i]
		p := inj.Pd[i] * (pw[0] + pw[1]*m + pw[2]*m*m) / base
		q := inj.Qd[i] * (qw[0] + qw[1]*m + qw[2]*m*m) / base
		sbus[i] = -complex(p, q)
		dp := inj.Pd[i] * (pw[1] + two*pw[2]*m) / base
		dq := inj.Qd[i] * (qw[1] + two*qw[2]*m) / base
		dvm[i] = -complex(dp, dq)
	}
	for k, b := range inj.GenBus {
		sbus[b] += complex(inj.Pg[k]/base, inj.Qg[k]/base)
	}
	return
}

// SbusHess returns the diagonal second derivative ∂²𝐒ᵇᵘˢ/∂𝐕𝚖² of the net
// injection. Only the constant impedance load fraction contributes, so the
// result is constant over 𝐕𝚖 and nil for loads without that fraction.
func (inj *Injection) SbusHess() []complex128 {
	pw, qw := inj.Load.weights()
	if pw[2] == zero && qw[2] == zero {
		return nil
	}
	base := inj.BaseMVA
	d2 := make([]complex128, len(inj.Pd))
	for i := range d2 {
		dp := two * pw[2] * inj.Pd[i] / base
		dq := two * qw[2] * inj.Qd[i] / base
		d2[i] = -complex(dp, dq)
	}
	return d2
}
