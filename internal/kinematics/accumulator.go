// Package kinematics accumulates per-frame detections into distance,
// velocity, acceleration and height series.
//
// Internally everything is kept in pixels and seconds; the scale factor is
// applied when values are reported. Series are append-only.
package kinematics

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/trajectory.report/internal/calibration"
	"github.com/banshee-data/trajectory.report/internal/motion"
)

// ErrInvalidFrameRate is returned when the frame interval is not positive.
var ErrInvalidFrameRate = errors.New("frame interval must be positive")

// Axis selects how the horizontal coordinate of a TrajectorySample is measured.
type Axis string

const (
	// AxisHorizontal uses |x - x0|, the displacement from the first detection.
	AxisHorizontal Axis = "horizontal"
	// AxisPath uses the cumulative distance travelled along the path.
	AxisPath Axis = "path"
)

// PositionSample is the centroid observed in one frame.
type PositionSample struct {
	FrameIndex int `json:"frame_index"`
	X          int `json:"x"`
	Y          int `json:"y"`
}

// TrajectorySample is a point of the observed trajectory in meters, with Y
// growing upwards from the bottom of the frame.
type TrajectorySample struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Accumulator owns the kinematic state of one tracking session.
// It is not safe for concurrent use.
type Accumulator struct {
	frameHeight int
	scale       calibration.ScaleFactor
	axis        Axis

	positions     []PositionSample
	velocities    []float64 // px/s
	accelerations []float64 // px/s², signed
	trajectory    []TrajectorySample

	totalDistance float64 // px
	absAccelSum   float64 // px/s²
	lastFrame     int

	maxHeight   float64 // m
	maxVelocity float64 // px/s
	maxAccel    float64 // px/s², absolute
}

// NewAccumulator returns an empty accumulator for frames of the given height.
func NewAccumulator(frameHeight int, scale calibration.ScaleFactor, axis Axis) *Accumulator {
	if axis == "" {
		axis = AxisHorizontal
	}
	return &Accumulator{
		frameHeight: frameHeight,
		scale:       scale,
		axis:        axis,
		lastFrame:   -1,
	}
}

// Observe folds one frame's detection into the state. A nil detection only
// advances the frame index.
func (a *Accumulator) Observe(det *motion.Detection, frameIndex int, intervalSeconds float64) error {
	if !(intervalSeconds > 0) || math.IsInf(intervalSeconds, 0) {
		return fmt.Errorf("%w: got %v", ErrInvalidFrameRate, intervalSeconds)
	}
	a.lastFrame = frameIndex
	if det == nil {
		return nil
	}

	cur := PositionSample{FrameIndex: frameIndex, X: det.Centroid.X, Y: det.Centroid.Y}
	if n := len(a.positions); n > 0 {
		prev := a.positions[n-1]
		step := math.Hypot(float64(cur.X-prev.X), float64(cur.Y-prev.Y))
		a.totalDistance += step

		v := step / intervalSeconds
		a.velocities = append(a.velocities, v)
		a.maxVelocity = math.Max(a.maxVelocity, v)

		if m := len(a.velocities); m >= 2 {
			acc := (a.velocities[m-1] - a.velocities[m-2]) / intervalSeconds
			a.accelerations = append(a.accelerations, acc)
			a.absAccelSum += math.Abs(acc)
			a.maxAccel = math.Max(a.maxAccel, math.Abs(acc))
		}
	}
	a.positions = append(a.positions, cur)

	height := a.heightMeters(cur.Y)
	a.maxHeight = math.Max(a.maxHeight, height)
	a.trajectory = append(a.trajectory, TrajectorySample{X: a.horizontalMeters(cur), Y: height})
	return nil
}

func (a *Accumulator) heightMeters(y int) float64 {
	return a.scale.Meters(float64(a.frameHeight - y))
}

func (a *Accumulator) horizontalMeters(cur PositionSample) float64 {
	if a.axis == AxisPath {
		return a.scale.Meters(a.totalDistance)
	}
	return a.scale.Meters(math.Abs(float64(cur.X - a.positions[0].X)))
}

// Positions returns a copy of the observed centroids.
func (a *Accumulator) Positions() []PositionSample {
	return append([]PositionSample(nil), a.positions...)
}

// Velocities returns a copy of the step speeds in px/s.
func (a *Accumulator) Velocities() []float64 {
	return append([]float64(nil), a.velocities...)
}

// Accelerations returns a copy of the signed accelerations in px/s².
func (a *Accumulator) Accelerations() []float64 {
	return append([]float64(nil), a.accelerations...)
}

// TrajectorySamples returns a copy of the observed trajectory in meters.
func (a *Accumulator) TrajectorySamples() []TrajectorySample {
	return append([]TrajectorySample(nil), a.trajectory...)
}

// Scale returns the session scale factor.
func (a *Accumulator) Scale() calibration.ScaleFactor { return a.scale }

// TotalDistancePixels returns the cumulative path length in pixels.
func (a *Accumulator) TotalDistancePixels() float64 { return a.totalDistance }

// MeanVelocityMps returns the mean step speed in m/s, or 0 with no steps.
func (a *Accumulator) MeanVelocityMps() float64 {
	if len(a.velocities) == 0 {
		return 0
	}
	return a.scale.Meters(stat.Mean(a.velocities, nil))
}

// MeanAbsAccelerationMps2 returns the mean acceleration magnitude in m/s².
func (a *Accumulator) MeanAbsAccelerationMps2() float64 {
	if len(a.accelerations) == 0 {
		return 0
	}
	return a.scale.Meters(a.absAccelSum / float64(len(a.accelerations)))
}

// HorizontalSpanMeters returns the horizontal extent of the observed
// trajectory, or 0 with fewer than two samples.
func (a *Accumulator) HorizontalSpanMeters() float64 {
	if len(a.trajectory) < 2 {
		return 0
	}
	xs := make([]float64, len(a.trajectory))
	for i, s := range a.trajectory {
		xs[i] = s.X
	}
	return floats.Max(xs) - floats.Min(xs)
}

// Snapshot is a point-in-time projection of the accumulator in SI units.
type Snapshot struct {
	FrameIndex          int     `json:"frame_index"`
	Detections          int     `json:"detections"`
	DistanceMeters      float64 `json:"distance_m"`
	VelocityMps         float64 `json:"velocity_mps"`
	AccelerationMps2    float64 `json:"acceleration_mps2"`
	HeightMeters        float64 `json:"height_m"`
	MaxHeightMeters     float64 `json:"max_height_m"`
	MaxVelocityMps      float64 `json:"max_velocity_mps"`
	MaxAccelerationMps2 float64 `json:"max_acceleration_mps2"`
}

// Snapshot reports the current state. It does not modify the accumulator.
func (a *Accumulator) Snapshot() Snapshot {
	s := Snapshot{
		FrameIndex:          a.lastFrame,
		Detections:          len(a.positions),
		DistanceMeters:      a.scale.Meters(a.totalDistance),
		VelocityMps:         a.MeanVelocityMps(),
		AccelerationMps2:    a.MeanAbsAccelerationMps2(),
		MaxHeightMeters:     a.maxHeight,
		MaxVelocityMps:      a.scale.Meters(a.maxVelocity),
		MaxAccelerationMps2: a.scale.Meters(a.maxAccel),
	}
	if n := len(a.positions); n > 0 {
		s.HeightMeters = a.heightMeters(a.positions[n-1].Y)
	}
	return s
}
