package trajectory

import (
	"errors"
	"fmt"
	"iter"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trajectory.report/internal/kinematics"
)

var (
	// ErrDegenerateFit is returned when the samples cannot determine a parabola.
	ErrDegenerateFit = errors.New("degenerate trajectory fit")
	// ErrNoRealRange is returned when the fitted parabola never returns to y = 0
	// at a non-negative x.
	ErrNoRealRange = errors.New("fitted trajectory has no real non-negative root")
)

// MinSamples is the smallest sample count Fit accepts.
const MinSamples = 3

// collinearTolerance bounds the straight-line residual, relative to the
// y spread, under which samples are treated as collinear.
const collinearTolerance = 1e-9

// Fitted is an immutable parabola y = A x² + B x + C.
type Fitted struct {
	A        float64 `json:"a"`
	B        float64 `json:"b"`
	C        float64 `json:"c"`
	RSquared float64 `json:"r_squared"`
	Samples  int     `json:"samples"`
}

// Gravity returns the gravity-equivalent curvature term -2A.
func (f Fitted) Gravity() float64 { return -2 * f.A }

// InitialVelocityX returns the slope at x = 0.
func (f Fitted) InitialVelocityX() float64 { return f.B }

// Eval returns y at x.
func (f Fitted) Eval(x float64) float64 { return (f.A*x+f.B)*x + f.C }

// Range returns the larger non-negative root of the parabola.
func (f Fitted) Range() (float64, error) {
	if f.A == 0 {
		if f.B == 0 {
			return 0, fmt.Errorf("%w: constant curve", ErrNoRealRange)
		}
		if r := -f.C / f.B; r >= 0 {
			return r, nil
		}
		return 0, ErrNoRealRange
	}
	disc := f.B*f.B - 4*f.A*f.C
	if disc < 0 {
		return 0, fmt.Errorf("%w: discriminant %.6g", ErrNoRealRange, disc)
	}
	sq := math.Sqrt(disc)
	r1 := (-f.B + sq) / (2 * f.A)
	r2 := (-f.B - sq) / (2 * f.A)
	best := math.Max(r1, r2)
	if best < 0 {
		return 0, fmt.Errorf("%w: roots %.6g and %.6g", ErrNoRealRange, r1, r2)
	}
	return best, nil
}

// Curve samples the fitted parabola at n evenly spaced x values in
// [from, to]. The sequence can be ranged over more than once.
func (f Fitted) Curve(from, to float64, n int) iter.Seq[Point] {
	return func(yield func(Point) bool) {
		if n < 2 {
			return
		}
		xs := make([]float64, n)
		floats.Span(xs, from, to)
		for _, x := range xs {
			if !yield(Point{X: x, Y: f.Eval(x)}) {
				return
			}
		}
	}
}

// Fit computes the least-squares parabola through samples.
func Fit(samples []kinematics.TrajectorySample) (Fitted, error) {
	n := len(samples)
	if n < MinSamples {
		return Fitted{}, fmt.Errorf("%w: %d samples, need %d", ErrDegenerateFit, n, MinSamples)
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	distinct := make(map[float64]struct{}, n)
	for i, s := range samples {
		if math.IsNaN(s.X) || math.IsNaN(s.Y) || math.IsInf(s.X, 0) || math.IsInf(s.Y, 0) {
			return Fitted{}, fmt.Errorf("%w: sample %d is not finite", ErrDegenerateFit, i)
		}
		xs[i], ys[i] = s.X, s.Y
		distinct[s.X] = struct{}{}
	}
	if len(distinct) < MinSamples {
		return Fitted{}, fmt.Errorf("%w: %d distinct x values", ErrDegenerateFit, len(distinct))
	}
	if collinear(xs, ys) {
		return Fitted{}, fmt.Errorf("%w: samples are collinear", ErrDegenerateFit)
	}

	design := mat.NewDense(n, 3, nil)
	for i, x := range xs {
		design.Set(i, 0, x*x)
		design.Set(i, 1, x)
		design.Set(i, 2, 1)
	}
	var qr mat.QR
	qr.Factorize(design)
	var coef mat.VecDense
	if err := qr.SolveVecTo(&coef, false, mat.NewVecDense(n, ys)); err != nil {
		return Fitted{}, fmt.Errorf("%w: %v", ErrDegenerateFit, err)
	}

	f := Fitted{A: coef.AtVec(0), B: coef.AtVec(1), C: coef.AtVec(2), Samples: n}
	est := make([]float64, n)
	for i, x := range xs {
		est[i] = f.Eval(x)
	}
	f.RSquared = stat.RSquaredFrom(est, ys, nil)
	return f, nil
}

// collinear reports whether every point lies on the least-squares line.
func collinear(xs, ys []float64) bool {
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	spread := math.Max(1, floats.Max(ys)-floats.Min(ys))
	for i, x := range xs {
		if math.Abs(ys[i]-(alpha+beta*x)) > collinearTolerance*spread {
			return false
		}
	}
	return true
}
