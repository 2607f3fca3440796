// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package opf

import (
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/curioloop/acopf/numdiff"
	"github.com/curioloop/acopf/sparse"
)

// Diagnostic thresholds on the scale guarded relative error
// |analytic − difference| / max(1, |analytic|).
const (
	checkCostTol = 1e-6
	checkEqTol   = 1e-5
	checkIneqTol = 1e-6
)

// checkJac compares an analytic constraint Jacobian against central
// differences of the constraint values.
func (e *Evaluator) checkJac(name string, tol float64, jac *sparse.Matrix, x []float64, eq bool) {
	m := e.Model
	rows, _ := jac.Dims()
	fd := numdiff.JacSpec{Step: e.Check.Step, Workers: e.Check.Workers}.
		Jacobian(func(xx, yy []float64) {
			vals, _ := m.Constraints(xx, eq, false)
			copy(yy, vals)
		}, x, rows)
	e.reportDiff("jacobian "+name, tol, jac, fd)
}

// checkHess compares an analytic multiplier contraction against central
// differences of the contracted constraint gradient.
func (e *Evaluator) checkHess(name string, tol float64, hess *sparse.Matrix, x []float64, grad func(xx, yy []float64)) {
	fd := numdiff.HessSpec{Step: e.Check.Step, Workers: e.Check.Workers}.
		Hessian(grad, x)
	e.reportDiff("hessian "+name, tol, hess, fd)
}

// reportDiff logs the worst relative error between an analytic sparse matrix
// and its dense difference estimate. Unrated limit rows evaluate to −Inf and
// difference to NaN, such entries carry no information and are skipped.
func (e *Evaluator) reportDiff(target string, tol float64, an *sparse.Matrix, fd *mat.Dense) {

	rows, cols := an.Dims()
	var worst float64
	wr, wc := -1, -1
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			d := fd.At(r, c)
			if math.IsNaN(d) || math.IsInf(d, 0) {
				continue
			}
			a := an.At(r, c)
			if rel := math.Abs(a-d) / math.Max(1, math.Abs(a)); rel > worst {
				worst, wr, wc = rel, r, c
			}
		}
	}

	log := e.logger()
	if worst > tol {
		log.Warn("difference check exceeded",
			zap.String("target", target), zap.Float64("error", worst),
			zap.Float64("tol", tol), zap.Int("row", wr), zap.Int("col", wc))
	} else {
		log.Info("difference check passed",
			zap.String("target", target), zap.Float64("error", worst))
	}
}
