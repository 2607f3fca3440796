package numdiff

import (
	"math"
	"testing"

	"go.uber.org/goleak"
	"gonum.org/v1/gonum/mat"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testFn(x, y []float64) {
	y[0] = x[0]*x[0]*x[1] + x[2]
	y[1] = math.Sin(x[0]) + x[1]*x[2]
}

func testJac(x []float64) *mat.Dense {
	return mat.NewDense(2, 3, []float64{
		2 * x[0] * x[1], x[0] * x[0], 1,
		math.Cos(x[0]), x[2], x[1],
	})
}

func TestJacobian(t *testing.T) {

	x := []float64{1.2, -0.7, 0.4}
	jac := JacSpec{}.Jacobian(testFn, x, 2)
	want := testJac(x)

	for i := 0; i < 2; i++ {
		for j := 0; j < 3; j++ {
			if d := math.Abs(jac.At(i, j) - want.At(i, j)); d > 1e-6 {
				t.Fatalf("jacobian error %g at (%d,%d)", d, i, j)
			}
		}
	}
	if x[0] != 1.2 || x[1] != -0.7 || x[2] != 0.4 {
		t.Fatalf("x mutated: %v", x)
	}
}

func TestJacobianParallel(t *testing.T) {

	x := []float64{0.3, 1.1, -2.5}
	serial := JacSpec{}.Jacobian(testFn, x, 2)
	parallel := JacSpec{Workers: 4}.Jacobian(testFn, x, 2)

	if !mat.Equal(serial, parallel) {
		t.Fatal("parallel evaluation diverged from serial")
	}
}

func TestJacobianStep(t *testing.T) {

	cube := func(x, y []float64) { y[0] = x[0] * x[0] * x[0] }

	// the truncation error of the central difference on t³ is exactly δ²/4
	jac := JacSpec{Step: 0.6}.Jacobian(cube, []float64{1}, 1)
	want := 3.0 + 0.6*0.6/4
	if d := math.Abs(jac.At(0, 0) - want); d > 1e-12 {
		t.Fatalf("step not honored: %g", d)
	}
}

func TestHessian(t *testing.T) {

	grad := func(x, g []float64) {
		g[0] = 3*x[0]*x[0] + x[1]*x[1]
		g[1] = 2 * x[0] * x[1]
	}

	x := []float64{0.8, -0.5}
	hess := HessSpec{Workers: 2}.Hessian(grad, x)
	want := mat.NewDense(2, 2, []float64{
		6 * x[0], 2 * x[1],
		2 * x[1], 2 * x[0],
	})

	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			if d := math.Abs(hess.At(i, j) - want.At(i, j)); d > 1e-6 {
				t.Fatalf("hessian error %g at (%d,%d)", d, i, j)
			}
			if hess.At(i, j) != hess.At(j, i) {
				t.Fatal("hessian not symmetric")
			}
		}
	}
}
