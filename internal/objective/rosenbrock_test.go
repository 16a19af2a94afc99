package objective

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/functions"
)

// countingUniform records how many draws were taken.
type countingUniform struct {
	rand  *rand.Rand
	draws int
}

func (u *countingUniform) Uniform(low, high float64) float64 {
	u.draws++
	return low + (high-low)*u.rand.Float64()
}

func newRosenbrock(t *testing.T, n int) *Rosenbrock {
	t.Helper()
	r, err := NewRosenbrock(n)
	if err != nil {
		t.Fatalf("NewRosenbrock(%d) failed: %v", n, err)
	}
	return r
}

func randomPoint(rnd *rand.Rand, n int) []float64 {
	x := make([]float64, n)
	for i := range x {
		x[i] = 4*rnd.Float64() - 2
	}
	return x
}

func TestNewRosenbrock(t *testing.T) {
	r := newRosenbrock(t, DefaultRosenbrockDimensions)
	if r.NumberOfVariables() != 23 {
		t.Errorf("Expected 23 variables, got %d", r.NumberOfVariables())
	}
	if r.Name() != "Rosenbrock" {
		t.Errorf("Expected name Rosenbrock, got %q", r.Name())
	}
	want := CanProposeStartingPoint | HasFirstDerivative | HasSecondDerivative
	if r.Features() != want {
		t.Errorf("Expected features %v, got %v", want, r.Features())
	}
	if r.Alpha() != DefaultRosenbrockAlpha {
		t.Errorf("Expected default alpha %g, got %g", DefaultRosenbrockAlpha, r.Alpha())
	}
}

func TestNewRosenbrock_TooFewDimensions(t *testing.T) {
	for _, n := range []int{-1, 0, 1} {
		_, err := NewRosenbrock(n)
		if !errors.Is(err, ErrDimension) {
			t.Errorf("NewRosenbrock(%d): expected ErrDimension, got %v", n, err)
		}
	}
}

func TestRosenbrockKnownValues(t *testing.T) {
	r := newRosenbrock(t, 2)

	tests := []struct {
		x    []float64
		want float64
	}{
		{[]float64{1, 1}, 0},
		{[]float64{0, 0}, 1},
		{[]float64{-1, 1}, 4},
		{[]float64{2, 4}, 1},
		{[]float64{0, 1}, 101},
	}
	for _, tt := range tests {
		got, err := r.Eval(tt.x)
		if err != nil {
			t.Fatalf("Eval(%v) failed: %v", tt.x, err)
		}
		if got != tt.want {
			t.Errorf("Eval(%v) = %g, want %g", tt.x, got, tt.want)
		}
	}
}

func TestRosenbrockMinimum(t *testing.T) {
	for _, n := range []int{2, 3, 5, 23} {
		r := newRosenbrock(t, n)
		x := make([]float64, n)
		for i := range x {
			x[i] = 1
		}

		var d SecondOrderDerivative
		v, err := r.EvalSecondDerivative(x, &d)
		if err != nil {
			t.Fatalf("n=%d: EvalSecondDerivative failed: %v", n, err)
		}
		if v != 0 {
			t.Errorf("n=%d: value at minimum = %g, want 0", n, v)
		}
		for i, g := range d.Gradient {
			if g != 0 {
				t.Errorf("n=%d: gradient[%d] = %g at minimum, want 0", n, i, g)
			}
		}
	}
}

func TestRosenbrockMatchesGonum(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	ref := functions.ExtendedRosenbrock{}
	for _, n := range []int{2, 3, 8} {
		r := newRosenbrock(t, n)
		for trial := 0; trial < 10; trial++ {
			x := randomPoint(rnd, n)

			var d FirstOrderDerivative
			v, err := r.EvalDerivative(x, &d)
			if err != nil {
				t.Fatalf("EvalDerivative failed: %v", err)
			}
			if want := ref.Func(x); !scalar.EqualWithinAbsOrRel(v, want, 1e-12, 1e-12) {
				t.Errorf("n=%d value = %g, gonum = %g", n, v, want)
			}
			want := make([]float64, n)
			ref.Grad(want, x)
			if !floats.EqualApprox(d.Gradient, want, 1e-10) {
				t.Errorf("n=%d gradient = %v, gonum = %v", n, d.Gradient, want)
			}
		}
	}
}

func TestRosenbrockValueConsistency(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	r := newRosenbrock(t, 6)
	for trial := 0; trial < 20; trial++ {
		x := randomPoint(rnd, 6)

		v0, _ := r.Eval(x)
		var d1 FirstOrderDerivative
		v1, _ := r.EvalDerivative(x, &d1)
		var d2 SecondOrderDerivative
		v2, _ := r.EvalSecondDerivative(x, &d2)

		if v0 != v1 || v0 != v2 {
			t.Fatalf("values disagree at %v: %g, %g, %g", x, v0, v1, v2)
		}
		for i := range d1.Gradient {
			if d1.Gradient[i] != d2.Gradient[i] {
				t.Fatalf("gradients disagree at index %d: %g vs %g", i, d1.Gradient[i], d2.Gradient[i])
			}
		}
	}
}

func TestRosenbrockHessianStructure(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	for _, n := range []int{2, 3, 7} {
		r := newRosenbrock(t, n)
		x := randomPoint(rnd, n)

		var d SecondOrderDerivative
		if _, err := r.EvalSecondDerivative(x, &d); err != nil {
			t.Fatalf("EvalSecondDerivative failed: %v", err)
		}
		rows, cols := d.Hessian.Dims()
		if rows != n || cols != n {
			t.Fatalf("Hessian is %dx%d, want %dx%d", rows, cols, n, n)
		}
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				hij := d.Hessian.At(i, j)
				if hij != d.Hessian.At(j, i) {
					t.Errorf("n=%d: H[%d][%d]=%g but H[%d][%d]=%g", n, i, j, hij, j, i, d.Hessian.At(j, i))
				}
				if abs(i-j) > 1 && hij != 0 {
					t.Errorf("n=%d: H[%d][%d]=%g outside band", n, i, j, hij)
				}
				if abs(i-j) == 1 && hij == 0 && x[min(i, j)] != 0 {
					t.Errorf("n=%d: off-diagonal H[%d][%d] not populated", n, i, j)
				}
			}
		}
		if d.Hessian.At(n-1, n-1) != 200 {
			t.Errorf("n=%d: H[n-1][n-1] = %g, want 200", n, d.Hessian.At(n-1, n-1))
		}
	}
}

func TestRosenbrockHessianReusesAndClears(t *testing.T) {
	r := newRosenbrock(t, 4)
	dirty := mat.NewDense(4, 4, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			dirty.Set(i, j, 99)
		}
	}
	d := SecondOrderDerivative{Gradient: make([]float64, 4), Hessian: dirty}
	if _, err := r.EvalSecondDerivative([]float64{0.5, 0.5, 0.5, 0.5}, &d); err != nil {
		t.Fatalf("EvalSecondDerivative failed: %v", err)
	}
	if d.Hessian != dirty {
		t.Error("Expected Hessian storage to be reused")
	}
	if d.Hessian.At(0, 3) != 0 || d.Hessian.At(3, 0) != 0 {
		t.Error("Entries outside the band were not cleared")
	}
}

func TestRosenbrockFiniteDifference(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for _, n := range []int{2, 4, 9} {
		r := newRosenbrock(t, n)
		f := func(x []float64) float64 {
			v, _ := r.Eval(x)
			return v
		}
		for trial := 0; trial < 5; trial++ {
			x := randomPoint(rnd, n)
			floats.Scale(0.5, x)

			var d SecondOrderDerivative
			if _, err := r.EvalSecondDerivative(x, &d); err != nil {
				t.Fatalf("EvalSecondDerivative failed: %v", err)
			}

			grad := fd.Gradient(nil, f, x, &fd.Settings{Formula: fd.Central, Step: 1e-5})
			for i := range grad {
				if !scalar.EqualWithinAbsOrRel(d.Gradient[i], grad[i], 1e-4, 1e-4) {
					t.Errorf("n=%d gradient[%d] = %g, finite difference %g", n, i, d.Gradient[i], grad[i])
				}
			}

			hess := mat.NewSymDense(n, nil)
			fd.Hessian(hess, f, x, &fd.Settings{Formula: fd.Central, Step: 1e-4})
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					if !scalar.EqualWithinAbsOrRel(d.Hessian.At(i, j), hess.At(i, j), 1e-2, 1e-4) {
						t.Errorf("n=%d H[%d][%d] = %g, finite difference %g", n, i, j, d.Hessian.At(i, j), hess.At(i, j))
					}
				}
			}
		}
	}
}

func TestRosenbrockDimensionMismatch(t *testing.T) {
	r := newRosenbrock(t, 3)
	bad := [][]float64{nil, {1}, {1, 1}, {1, 1, 1, 1}}
	for _, x := range bad {
		if _, err := r.Eval(x); !errors.Is(err, ErrDimension) {
			t.Errorf("Eval(%v): expected ErrDimension, got %v", x, err)
		}
		if _, err := r.EvalDerivative(x, &FirstOrderDerivative{}); !errors.Is(err, ErrDimension) {
			t.Errorf("EvalDerivative(%v): expected ErrDimension, got %v", x, err)
		}
		if _, err := r.EvalSecondDerivative(x, &SecondOrderDerivative{}); !errors.Is(err, ErrDimension) {
			t.Errorf("EvalSecondDerivative(%v): expected ErrDimension, got %v", x, err)
		}
	}
}

func TestRosenbrockDoesNotMutateInput(t *testing.T) {
	r := newRosenbrock(t, 3)
	x := []float64{0.3, -0.7, 1.2}
	orig := append([]float64(nil), x...)

	var d SecondOrderDerivative
	r.EvalSecondDerivative(x, &d)

	if !floats.Equal(x, orig) {
		t.Errorf("input changed from %v to %v", orig, x)
	}
}

func TestProposeStartingPoint(t *testing.T) {
	r := newRosenbrock(t, 11)
	u := &countingUniform{rand: rand.New(rand.NewSource(5))}

	x := r.ProposeStartingPoint(u)
	if len(x) != 11 {
		t.Fatalf("Expected 11 coordinates, got %d", len(x))
	}
	if u.draws != 11 {
		t.Errorf("Expected 11 draws from the source, got %d", u.draws)
	}
	for i, v := range x {
		if v < 0 || v >= 1 {
			t.Errorf("coordinate %d = %f outside [0, 1)", i, v)
		}
	}
}

func TestProposeStartingPointDeterministic(t *testing.T) {
	r := newRosenbrock(t, 5)
	a := r.ProposeStartingPoint(&countingUniform{rand: rand.New(rand.NewSource(9))})
	b := r.ProposeStartingPoint(&countingUniform{rand: rand.New(rand.NewSource(9))})
	if !floats.Equal(a, b) {
		t.Errorf("same seed gave %v and %v", a, b)
	}
}

type mapOptions map[string]float64

func (m mapOptions) Float64(key string, def float64) float64 {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}

func TestRosenbrockConfigure(t *testing.T) {
	r := newRosenbrock(t, 2)
	before, _ := r.Eval([]float64{0.2, 0.9})

	if err := r.Configure(mapOptions{"alpha": 0.5}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if r.Alpha() != 0.5 {
		t.Errorf("Expected alpha 0.5, got %g", r.Alpha())
	}

	// alpha does not enter the formula
	after, _ := r.Eval([]float64{0.2, 0.9})
	if before != after {
		t.Errorf("value changed after configuring alpha: %g -> %g", before, after)
	}

	if err := r.Configure(mapOptions{}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if r.Alpha() != DefaultRosenbrockAlpha {
		t.Errorf("Expected default alpha, got %g", r.Alpha())
	}
}

func abs(i int) int {
	return int(math.Abs(float64(i)))
}
