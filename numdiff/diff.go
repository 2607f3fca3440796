package numdiff

import (
	"slices"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

// Default perturbation width.
const defStep = 1e-7

// JacSpec approximates Jacobian matrices by fixed-step central differences.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
type JacSpec struct {
	// Fixed perturbation width δ (default 1e-7).
	Step float64
	// Workers bounds the concurrent column evaluations.
	// Columns are evaluated serially when Workers ≤ 1.
	Workers int
}

// Jacobian approximates 𝐉ᵢⱼ = ∂𝒇ᵢ/∂𝐱ⱼ of a function 𝒇 : ℝⁿ → ℝᵐ by the
// central difference of each column:
//
//	𝐉·𝒆ⱼ ≈ (𝒇(𝐱+½δ·𝒆ⱼ) − 𝒇(𝐱−½δ·𝒆ⱼ)) / δ
//
// The function is called with an n-vector argument and stores its value
// into an m-vector. Every evaluation works on a private copy of x, so fn
// may be called concurrently.
func (js JacSpec) Jacobian(fn func(x, y []float64), x []float64, m int) *mat.Dense {

	n := len(x)
	step := js.Step
	if step <= 0 {
		step = defStep
	}

	jac := mat.NewDense(m, n, nil)

	grp := new(errgroup.Group)
	grp.SetLimit(max(1, js.Workers))
	for j := 0; j < n; j++ {
		grp.Go(func() error {
			xj := slices.Repeat(x, 1)
			yp := make([]float64, m)
			ym := make([]float64, m)
			xj[j] = x[j] + step/2
			fn(xj, yp)
			xj[j] = x[j] - step/2
			fn(xj, ym)
			for i := 0; i < m; i++ {
				jac.Set(i, j, (yp[i]-ym[i])/step)
			}
			return nil
		})
	}
	_ = grp.Wait()
	return jac
}

// HessSpec approximates symmetric Hessian matrices from a gradient closure.
type HessSpec struct {
	// Fixed perturbation width δ (default 1e-7).
	Step float64
	// Workers bounds the concurrent column evaluations.
	Workers int
}

// Hessian approximates 𝐇ᵢⱼ = ∂²𝒇/∂𝐱ᵢ∂𝐱ⱼ by central differences of the
// gradient 𝒇′ : ℝⁿ → ℝⁿ and symmetrizes the result as (𝐇 + 𝐇ᵀ)/2.
func (hs HessSpec) Hessian(grad func(x, g []float64), x []float64) *mat.Dense {

	n := len(x)
	h := JacSpec(hs).Jacobian(grad, x, n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			v := (h.At(i, j) + h.At(j, i)) / 2
			h.Set(i, j, v)
			h.Set(j, i, v)
		}
	}
	return h
}
