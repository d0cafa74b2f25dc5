package main

import (
	"bytes"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajectory.report/internal/calibration"
	"github.com/banshee-data/trajectory.report/internal/config"
	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/testutil"
	"github.com/banshee-data/trajectory.report/internal/units"
)

func TestFlagDefaults(t *testing.T) {
	assert.Equal(t, 0.0, *fps)
	assert.Equal(t, 0.0, *scale)
	assert.False(t, *realtime)
	assert.Empty(t, *listen)
	assert.Empty(t, *dbPath)
	assert.False(t, *showVersion)
}

func TestSetupLogging(t *testing.T) {
	var buf bytes.Buffer
	setupLogging(&buf, false, true)
	defer monitoring.SetLogWriters(nil, nil, nil)

	monitoring.Opsf("ops line")
	monitoring.Diagf("diag line")
	monitoring.Tracef("trace line")

	assert.Contains(t, buf.String(), "ops line")
	assert.NotContains(t, buf.String(), "diag line")
	assert.Contains(t, buf.String(), "trace line")
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, config.DetectorNative, cfg.GetDetector())

	path := filepath.Join(t.TempDir(), "tracker.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"report_units": "mph", "refit_every_frames": 0}`), 0o644))
	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, units.MPH, cfg.GetReportUnits())
	assert.Equal(t, 0, cfg.GetRefitEveryFrames())

	_, err = loadConfig(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCalibrationProvider(t *testing.T) {
	cfg := config.EmptyTrackerConfig()

	p, err := calibrationProvider(cfg, 0.02, "1,2,3,4", 0)
	require.NoError(t, err)
	assert.Equal(t, calibration.Fixed(0.02), p)

	p, err = calibrationProvider(cfg, 0, "0,0,150,0", 0)
	require.NoError(t, err)
	s, err := p.Calibrate(nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.01, float64(s), 1e-12, "default 1.5 m reference")

	p, err = calibrationProvider(cfg, 0, "0,0,0,30", 3)
	require.NoError(t, err)
	s, err = p.Calibrate(nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, float64(s), 1e-12)

	_, err = calibrationProvider(cfg, 0, "", 0)
	assert.ErrorIs(t, err, calibration.ErrCalibrationFailed)

	_, err = calibrationProvider(cfg, 0, "1,2,3", 0)
	assert.Error(t, err)
}

func TestOpenSource(t *testing.T) {
	dir := t.TempDir()
	for i, name := range []string{"f000.png", "f001.png"} {
		frame := testutil.FrameWithRect(16, 16, image.Rect(i, i, i+4, i+4), 255)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), testutil.EncodePNG(t, frame), 0o644))
	}

	src, name, err := openSource("", dir, 0, 25)
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, dir, name)
	interval, err := src.FrameInterval()
	require.NoError(t, err)
	assert.InDelta(t, 0.04, interval, 1e-12, "config frame rate applies")

	src2, _, err := openSource("", dir, 50, 25)
	require.NoError(t, err)
	defer src2.Close()
	interval, err = src2.FrameInterval()
	require.NoError(t, err)
	assert.InDelta(t, 0.02, interval, 1e-12)

	_, _, err = openSource("", "", 0, 30)
	assert.Error(t, err)
	_, _, err = openSource("a.mp4", dir, 0, 30)
	assert.Error(t, err)
	_, _, err = openSource(filepath.Join(dir, "missing.mp4"), "", 0, 30)
	assert.Error(t, err)
}

func TestDetectorParams(t *testing.T) {
	p := detectorParams(config.DefaultTrackerConfig())
	assert.Equal(t, uint8(10), p.Threshold)
	assert.Equal(t, 20, p.MinAreaPixels)
	assert.Equal(t, 3, p.KernelSize)
	assert.True(t, p.KernelDisk)
}

func TestLaunchDefaults(t *testing.T) {
	l := launchDefaults(config.EmptyTrackerConfig())
	assert.Equal(t, 45.0, l.AngleDegrees)
	assert.Equal(t, 9.8, l.Gravity)
	assert.Equal(t, 500, l.Samples)
	assert.Zero(t, l.Speed)
}

func TestBuildSinks(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	latest := report.NewLatest()

	sinks, err := buildSinks(mfs, units.MPS, "", "", nil)
	require.NoError(t, err)
	assert.Len(t, sinks, 1)

	sinks, err = buildSinks(mfs, units.MPS, "out/plot.png", "out/chart.html", latest)
	require.NoError(t, err)
	assert.Len(t, sinks, 4)
	require.NoError(t, sinks.Close())
	assert.False(t, latest.Status().Running)

	_, err = buildSinks(mfs, units.MPS, "plot.bmp", "", nil)
	assert.Error(t, err)
	_, err = buildSinks(mfs, units.MPS, "", "chart.txt", nil)
	assert.Error(t, err)
}
