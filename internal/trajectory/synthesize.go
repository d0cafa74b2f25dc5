package trajectory

import (
	"errors"
	"fmt"
	"iter"
	"math"
)

// ErrInvalidLaunch is returned for launch parameters that do not describe a
// forward, upward projectile.
var ErrInvalidLaunch = errors.New("invalid launch parameters")

// Launch defaults.
const (
	DefaultAngleDegrees = 45.0
	DefaultGravity      = 9.8
	DefaultSamples      = 500
)

// Point is a sample of a trajectory. T is zero for fitted curves.
type Point struct {
	T float64 `json:"t"`
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Launch describes an ideal projectile. Zero AngleDegrees, Gravity and
// Samples take the defaults. A positive HorizontalRange ends the path when
// that horizontal distance is covered instead of at the landing time.
type Launch struct {
	Speed           float64 // m/s
	AngleDegrees    float64
	Gravity         float64 // m/s², positive downwards
	HorizontalRange float64 // m, optional
	Samples         int
}

// Path is a synthesized trajectory. It is a value and can be iterated any
// number of times.
type Path struct {
	vx, vy   float64
	gravity  float64
	duration float64
	samples  int
}

// Synthesize validates l and returns its path.
func Synthesize(l Launch) (Path, error) {
	if l.AngleDegrees == 0 {
		l.AngleDegrees = DefaultAngleDegrees
	}
	if l.Gravity == 0 {
		l.Gravity = DefaultGravity
	}
	if l.Samples == 0 {
		l.Samples = DefaultSamples
	}
	switch {
	case !(l.Speed > 0) || math.IsInf(l.Speed, 0):
		return Path{}, fmt.Errorf("%w: speed %v", ErrInvalidLaunch, l.Speed)
	case !(l.Gravity > 0) || math.IsInf(l.Gravity, 0):
		return Path{}, fmt.Errorf("%w: gravity %v", ErrInvalidLaunch, l.Gravity)
	case !(l.AngleDegrees > 0 && l.AngleDegrees < 90):
		return Path{}, fmt.Errorf("%w: angle %v degrees", ErrInvalidLaunch, l.AngleDegrees)
	case l.Samples < 2:
		return Path{}, fmt.Errorf("%w: %d samples", ErrInvalidLaunch, l.Samples)
	case l.HorizontalRange < 0 || math.IsNaN(l.HorizontalRange) || math.IsInf(l.HorizontalRange, 0):
		return Path{}, fmt.Errorf("%w: horizontal range %v", ErrInvalidLaunch, l.HorizontalRange)
	}

	theta := l.AngleDegrees * math.Pi / 180
	p := Path{
		vx:      l.Speed * math.Cos(theta),
		vy:      l.Speed * math.Sin(theta),
		gravity: l.Gravity,
		samples: l.Samples,
	}
	if l.HorizontalRange > 0 {
		p.duration = l.HorizontalRange / p.vx
	} else {
		p.duration = 2 * p.vy / l.Gravity
	}
	return p, nil
}

// Duration returns the total time covered by the path in seconds.
func (p Path) Duration() float64 { return p.duration }

// Len returns the number of points Points yields.
func (p Path) Len() int { return p.samples }

// At returns the position at time t.
func (p Path) At(t float64) Point {
	return Point{T: t, X: p.vx * t, Y: p.vy*t - 0.5*p.gravity*t*t}
}

// Apex returns the highest point of the full flight.
func (p Path) Apex() Point {
	return p.At(p.vy / p.gravity)
}

// Points yields Len() points evenly spaced in time from 0 to Duration().
func (p Path) Points() iter.Seq[Point] {
	return func(yield func(Point) bool) {
		last := p.samples - 1
		for i := 0; i <= last; i++ {
			t := p.duration * float64(i) / float64(last)
			if !yield(p.At(t)) {
				return
			}
		}
	}
}
