package calibration

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTwoPoint_Calibrate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		points []image.Point
		meters float64
		want   float64
	}{
		{"horizontal 150px at default 1.5m", []image.Point{{10, 10}, {160, 10}}, 0, 0.01},
		{"3-4-5 triangle", []image.Point{{0, 0}, {30, 40}}, 1.0, 0.02},
		{"extra points ignored", []image.Point{{0, 0}, {0, 100}, {999, 999}}, 2.0, 0.02},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := TwoPoint{Points: tt.points, ReferenceMeters: tt.meters}.Calibrate(nil)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, float64(s), 1e-12)
		})
	}
}

func TestTwoPoint_Failures(t *testing.T) {
	t.Parallel()
	frame := image.NewGray(image.Rect(0, 0, 100, 100))
	tests := []struct {
		name string
		cal  TwoPoint
		ref  image.Image
	}{
		{"no points", TwoPoint{}, nil},
		{"one point", TwoPoint{Points: []image.Point{{1, 1}}}, nil},
		{"coincident", TwoPoint{Points: []image.Point{{5, 5}, {5, 5}}}, nil},
		{"negative reference", TwoPoint{Points: []image.Point{{0, 0}, {10, 0}}, ReferenceMeters: -1}, nil},
		{"NaN reference", TwoPoint{Points: []image.Point{{0, 0}, {10, 0}}, ReferenceMeters: math.NaN()}, nil},
		{"infinite reference", TwoPoint{Points: []image.Point{{0, 0}, {10, 0}}, ReferenceMeters: math.Inf(1)}, nil},
		{"outside frame", TwoPoint{Points: []image.Point{{0, 0}, {150, 0}}}, frame},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.cal.Calibrate(tt.ref)
			assert.ErrorIs(t, err, ErrCalibrationFailed)
		})
	}
}

func TestFixed(t *testing.T) {
	t.Parallel()
	s, err := Fixed(0.005).Calibrate(nil)
	require.NoError(t, err)
	assert.Equal(t, ScaleFactor(0.005), s)
	assert.InDelta(t, 0.5, s.Meters(100), 1e-12)

	for _, bad := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := Fixed(bad).Calibrate(nil)
		assert.ErrorIs(t, err, ErrCalibrationFailed, "scale %v", bad)
	}
}

func TestParsePoints(t *testing.T) {
	t.Parallel()
	pts, err := ParsePoints(" 10, 20 ,30,40 ")
	require.NoError(t, err)
	assert.Equal(t, []image.Point{{10, 20}, {30, 40}}, pts)

	pts, err = ParsePoints("")
	require.NoError(t, err)
	assert.Empty(t, pts)

	_, err = ParsePoints("1,2,3")
	assert.Error(t, err)
	_, err = ParsePoints("1,a")
	assert.Error(t, err)
}
