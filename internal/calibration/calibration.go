// Package calibration converts pixel measurements into meters.
package calibration

import (
	"errors"
	"fmt"
	"image"
	"math"
	"strconv"
	"strings"
)

// ErrCalibrationFailed is returned when no usable scale can be derived.
var ErrCalibrationFailed = errors.New("calibration failed")

// DefaultReferenceMeters is the real-world length between the two reference
// points when none is configured.
const DefaultReferenceMeters = 1.5

// ScaleFactor is meters per pixel. It is positive and fixed for a session.
type ScaleFactor float64

// Meters converts a pixel length to meters.
func (s ScaleFactor) Meters(pixels float64) float64 {
	return pixels * float64(s)
}

// Provider yields the session scale, possibly by inspecting a reference frame.
type Provider interface {
	Calibrate(ref image.Image) (ScaleFactor, error)
}

// Fixed is a scale supplied directly, for example from a previous session.
type Fixed ScaleFactor

// Calibrate implements Provider.
func (f Fixed) Calibrate(image.Image) (ScaleFactor, error) {
	if !(f > 0) || math.IsInf(float64(f), 0) {
		return 0, fmt.Errorf("%w: scale must be positive, got %v", ErrCalibrationFailed, float64(f))
	}
	return ScaleFactor(f), nil
}

// TwoPoint derives the scale from two image points known to lie
// ReferenceMeters apart. Only the first two points are used.
type TwoPoint struct {
	Points          []image.Point
	ReferenceMeters float64
}

// Calibrate implements Provider. When ref is non-nil both points must lie
// inside its bounds.
func (c TwoPoint) Calibrate(ref image.Image) (ScaleFactor, error) {
	if len(c.Points) < 2 {
		return 0, fmt.Errorf("%w: need two reference points, got %d", ErrCalibrationFailed, len(c.Points))
	}
	p1, p2 := c.Points[0], c.Points[1]
	if ref != nil {
		b := ref.Bounds()
		if !p1.In(b) || !p2.In(b) {
			return 0, fmt.Errorf("%w: reference points %v %v outside frame %v", ErrCalibrationFailed, p1, p2, b)
		}
	}
	pixels := PixelDistance(p1, p2)
	if pixels == 0 {
		return 0, fmt.Errorf("%w: reference points coincide at %v", ErrCalibrationFailed, p1)
	}
	meters := c.ReferenceMeters
	if meters == 0 {
		meters = DefaultReferenceMeters
	}
	if !(meters > 0) || math.IsInf(meters, 0) {
		return 0, fmt.Errorf("%w: reference distance must be positive, got %v", ErrCalibrationFailed, meters)
	}
	return ScaleFactor(meters / pixels), nil
}

// PixelDistance is the euclidean distance between two points in pixels.
func PixelDistance(a, b image.Point) float64 {
	return math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
}

// ParsePoints parses "x1,y1,x2,y2[,...]" into points. An empty string yields
// no points.
func ParsePoints(s string) ([]image.Point, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("reference points need x,y pairs, got %d values", len(fields))
	}
	pts := make([]image.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			return nil, fmt.Errorf("parse x of point %d: %w", i/2+1, err)
		}
		y, err := strconv.Atoi(strings.TrimSpace(fields[i+1]))
		if err != nil {
			return nil, fmt.Errorf("parse y of point %d: %w", i/2+1, err)
		}
		pts = append(pts, image.Pt(x, y))
	}
	return pts, nil
}
