// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Opfcheck evaluates the AC optimal power flow constraint and Hessian
// oracles on the built-in reference networks and prints a short report,
// optionally cross checking the analytic derivatives by finite differences.
package main

import (
	"fmt"
	"math"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/curioloop/acopf/cases"
	"github.com/curioloop/acopf/netmod"
	"github.com/curioloop/acopf/opf"
	"github.com/curioloop/acopf/sparse"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "opfcheck:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "opfcheck",
		Short:        "Exercise the AC optimal power flow evaluation oracles",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("case", "case3", "built-in network (case2|case3)")
	pf.String("limit", "S", "branch limit form (S|P|2|I)")
	pf.Float64("perturb", 0, "voltage angle spread in radians")
	pf.Float64("sigma", 1, "cost multiplier of the Hessian")
	pf.Bool("check", false, "run the finite difference diagnostic")
	pf.Float64("step", 0, "diagnostic step width (0 for the default)")
	pf.Int("workers", 0, "diagnostic worker bound")
	pf.String("log-level", "info", "log level (debug|info|warn|error)")
	pf.Bool("dev", false, "development logger encoding")

	root.AddCommand(newEvalCmd(), newHessCmd())
	return root
}

// session bundles the assembled model and evaluation state of one run.
type session struct {
	cfg *Config
	log *zap.Logger
	m   *netmod.Model
	ev  *opf.Evaluator
	x   []float64
}

func newSession(flags *pflag.FlagSet) (*session, error) {

	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, err
	}
	log, err := buildLogger(cfg)
	if err != nil {
		return nil, err
	}

	cs, adm := cases.Get(cfg.Case)
	if cs == nil {
		return nil, fmt.Errorf("unknown case %q, pick one of %v", cfg.Case, cases.Names())
	}
	mode, err := netmod.ParseFlowLim(cfg.Limit)
	if err != nil {
		return nil, err
	}
	m, err := netmod.Assemble(cs, adm,
		netmod.WithFlowLimit(mode), netmod.WithLogger(log))
	if err != nil {
		return nil, fmt.Errorf("assemble %s: %w", cfg.Case, err)
	}

	ev := &opf.Evaluator{
		Model: m,
		Log:   log,
		Check: opf.CheckConfig{Enabled: cfg.Check, Step: cfg.Step, Workers: cfg.Workers},
	}
	return &session{cfg: cfg, log: log, m: m, ev: ev, x: startState(m, cfg.Perturb)}, nil
}

// startState builds a flat voltage profile with the case dispatch,
// spreading the bus angles by the perturbation magnitude.
func startState(m *netmod.Model, perturb float64) []float64 {
	x := make([]float64, m.Part.N())
	va := m.Part.Slice(x, netmod.Va)
	vm := m.Part.Slice(x, netmod.Vm)
	for i := range vm {
		va[i] = -perturb * float64(i)
		vm[i] = 1
	}
	pg := m.Part.Slice(x, netmod.Pg)
	qg := m.Part.Slice(x, netmod.Qg)
	for k, g := range m.Gens {
		pg[k], qg[k] = g.Pg/m.Base, g.Qg/m.Base
	}
	return x
}

func newEvalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the constraints and their Jacobians",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			defer func() { _ = s.log.Sync() }()

			g, h, dg, dh := s.ev.ConstraintsJac(s.x)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "case %s limit %s vars %d\n", s.cfg.Case, s.m.Mode, s.m.Part.N())

			var worstG float64
			for _, v := range g {
				worstG = math.Max(worstG, math.Abs(v))
			}
			fmt.Fprintf(out, "balance rows %d max |g| %.6e\n", len(g), worstG)

			if len(h) > 0 {
				worstH, binding := math.Inf(-1), 0
				for _, v := range h {
					worstH = math.Max(worstH, v)
					if v >= 0 {
						binding++
					}
				}
				fmt.Fprintf(out, "limit rows %d worst h %.6e binding %d\n", len(h), worstH, binding)
			} else {
				fmt.Fprintln(out, "no branch limits monitored")
			}

			r, c := dg.Dims()
			fmt.Fprintf(out, "dg %dx%d nnz %d\n", r, c, dg.NNZ())
			r, c = dh.Dims()
			fmt.Fprintf(out, "dh %dx%d nnz %d\n", r, c, dh.NNZ())
			return nil
		},
	}
}

func newHessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hess",
		Short: "Evaluate the Lagrangian Hessian with unit multipliers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := newSession(cmd.Root().PersistentFlags())
			if err != nil {
				return err
			}
			defer func() { _ = s.log.Sync() }()

			ones := func(n int) []float64 {
				v := make([]float64, n)
				for i := range v {
					v[i] = 1
				}
				return v
			}
			lam := opf.Multipliers{
				EqNonlin:   ones(2 * len(s.m.Buses)),
				IneqNonlin: ones(2 * len(s.m.Flows.From)),
			}
			lxx := s.ev.Hessian(s.x, lam, s.cfg.Sigma)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "case %s limit %s sigma %g\n", s.cfg.Case, s.m.Mode, s.cfg.Sigma)
			r, c := lxx.Dims()
			sym, _, _ := sparse.MaxAbsDiff(lxx, lxx.Transpose())
			fmt.Fprintf(out, "lxx %dx%d nnz %d asym %.3e\n", r, c, lxx.NNZ(), sym)
			return nil
		},
	}
}
