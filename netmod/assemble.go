// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package netmod

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/curioloop/acopf/power"
)

// Ratings at or above this value are treated as unlimited.
const rateInf = 1e10

// Option adjusts the model assembly.
type Option func(*options)

type options struct {
	mode      FlowLim
	load      power.ZIP
	monitored []int
	defMon    bool
	extra     []Block
	log       *zap.Logger
}

// WithFlowLimit selects the branch limit form (default apparent power).
func WithFlowLimit(mode FlowLim) Option {
	return func(o *options) { o.mode = mode }
}

// WithLoadModel sets the voltage dependence of the bus loads.
func WithLoadModel(zip power.ZIP) Option {
	return func(o *options) { o.load = zip }
}

// WithMonitored overrides the monitored branch rows. The default monitors
// every in-service branch with a positive finite rating.
func WithMonitored(rows []int) Option {
	return func(o *options) { o.monitored, o.defMon = rows, false }
}

// WithBlocks appends extra variable blocks after the standard four.
func WithBlocks(blocks ...Block) Option {
	return func(o *options) { o.extra = blocks }
}

// WithLogger sets the assembly logger.
func WithLogger(log *zap.Logger) Option {
	return func(o *options) { o.log = log }
}

// Assemble validates a case against its admittance model and builds the
// evaluation model: private table copies, the variable partition, the
// monitored flow subset and the registered power balance and branch limit
// constraint sets.
func Assemble(cs *Case, adm *Admittance, opts ...Option) (m *Model, err error) {

	opt := options{mode: LimApparent, defMon: true}
	for _, o := range opts {
		o(&opt)
	}
	log := opt.log
	if log == nil {
		log = zap.NewNop()
	}

	if cs == nil || adm == nil {
		return nil, errors.New("case and admittance are required")
	}
	nb, nl := len(cs.Buses), len(cs.Branches)

	switch {
	case nb == 0:
		err = errors.New("network has no bus")
	case cs.BaseMVA <= 0:
		err = errors.New("power base must greater than 0")
	case adm.Ybus == nil || adm.Yf == nil || adm.Yt == nil:
		err = errors.New("admittance matrices are required")
	case opt.mode < LimApparent || opt.mode > LimCurrent:
		err = errors.New("unknown flow limit form")
	}
	if err != nil {
		return nil, err
	}

	if r, c := adm.Ybus.Dims(); r != nb || c != nb {
		err = errors.New("Ybus dimension not match bus number")
	} else if r, c = adm.Yf.Dims(); r != nl || c != nb {
		err = errors.New("Yf dimension not match branch number")
	} else if r, c = adm.Yt.Dims(); r != nl || c != nb {
		err = errors.New("Yt dimension not match branch number")
	}
	if err != nil {
		return nil, err
	}

	gens := make([]Gen, 0, len(cs.Gens))
	for k, g := range cs.Gens {
		switch {
		case g.Bus < 0 || g.Bus >= nb:
			err = errors.New(fmt.Sprintf("generator bus error at %d", k))
		case g.PMin > g.PMax || g.QMin > g.QMax:
			err = errors.New(fmt.Sprintf("generator limit error at %d", k))
		}
		if err != nil {
			return nil, err
		}
		if g.InService {
			if g.Cost != nil {
				g.Cost = slices.Repeat(g.Cost, 1)
			}
			if g.QCost != nil {
				g.QCost = slices.Repeat(g.QCost, 1)
			}
			gens = append(gens, g)
		}
	}
	if len(gens) == 0 {
		return nil, errors.New("network has no generator in service")
	}

	for l, b := range cs.Branches {
		if b.From < 0 || b.From >= nb || b.To < 0 || b.To >= nb {
			return nil, errors.New(fmt.Sprintf("branch endpoint error at %d", l))
		}
	}

	branches := slices.Repeat(cs.Branches, 1)
	il := slices.Repeat(opt.monitored, 1)
	if opt.defMon {
		for l, b := range branches {
			if b.InService && b.RateA > 0 && b.RateA < rateInf {
				il = append(il, l)
			}
		}
	} else {
		for k, l := range il {
			switch {
			case l < 0 || l >= nl:
				err = errors.New(fmt.Sprintf("monitored branch error at %d", k))
			case !branches[l].InService:
				err = errors.New(fmt.Sprintf("monitored branch %d out of service", l))
			}
			if err != nil {
				return nil, err
			}
		}
	}

	flows := FlowSet{
		Yf:    adm.Yf.SelectRows(il),
		Yt:    adm.Yt.SelectRows(il),
		From:  make([]int, len(il)),
		To:    make([]int, len(il)),
		Limit: make([]float64, len(il)),
	}
	for k, l := range il {
		flows.From[k], flows.To[k] = branches[l].From, branches[l].To
		if r := branches[l].RateA; r > 0 && r < rateInf {
			flows.Limit[k] = r / cs.BaseMVA
		} else {
			flows.Limit[k] = math.Inf(1)
		}
	}

	blocks := append([]Block{
		{Va, nb}, {Vm, nb}, {Pg, len(gens)}, {Qg, len(gens)},
	}, opt.extra...)
	part, err := NewPartition(blocks...)
	if err != nil {
		return nil, err
	}

	buses := slices.Repeat(cs.Buses, 1)
	pd := make([]float64, nb)
	qd := make([]float64, nb)
	for i, b := range buses {
		pd[i], qd[i] = b.Pd, b.Qd
	}

	m = &Model{
		Base:     cs.BaseMVA,
		Buses:    buses,
		Gens:     gens,
		Branches: branches,
		Adm:      adm,
		Part:     part,
		Mode:     opt.mode,
		Load:     opt.load,
		Flows:    flows,
		pd:       pd,
		qd:       qd,
	}
	m.EqCons = []Constraint{balanceConstraint(m)}
	if len(il) > 0 {
		m.NeqCons = []Constraint{flowConstraint(m, false), flowConstraint(m, true)}
	}

	log.Debug("model assembled",
		zap.Int("buses", nb), zap.Int("branches", nl),
		zap.Int("gens", len(gens)), zap.Int("monitored", len(il)),
		zap.Stringer("limit", opt.mode), zap.Int("vars", part.N()))
	return m, nil
}
