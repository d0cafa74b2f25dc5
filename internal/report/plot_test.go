package report

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/kinematics"
)

func TestPlotFormat(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{"out.png", "png", false},
		{"dir/out.SVG", "svg", false},
		{"out.pdf", "pdf", false},
		{"out.html", "", true},
		{"out", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := PlotFormat(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWritePlot_PNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlot(&buf, testTrajectory(t), "png"))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Greater(t, img.Bounds().Dx(), 0)
}

func TestWritePlot_ObservedOnly(t *testing.T) {
	var buf bytes.Buffer
	tr := Trajectory{Observed: []kinematics.TrajectorySample{{X: 0, Y: 1}, {X: 1, Y: 2}}}
	require.NoError(t, WritePlot(&buf, tr, "svg"))
	assert.Contains(t, buf.String(), "<svg")
}

func TestPlotSink_WritesOnClose(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	sink, err := NewPlotSink(mfs, "out/trajectory.png")
	require.NoError(t, err)

	sink.Report(kinematics.Snapshot{})
	sink.ReportTrajectory(Trajectory{FrameIndex: 1})
	sink.ReportTrajectory(testTrajectory(t))
	require.NoError(t, sink.Close())

	data, err := mfs.ReadFile("out/trajectory.png")
	require.NoError(t, err)
	_, err = png.Decode(bytes.NewReader(data))
	assert.NoError(t, err)
}

func TestPlotSink_NothingReported(t *testing.T) {
	mfs := fsutil.NewMemoryFileSystem()
	sink, err := NewPlotSink(mfs, "trajectory.png")
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	_, err = mfs.Stat("trajectory.png")
	assert.Error(t, err)
}

func TestNewPlotSink_BadFormat(t *testing.T) {
	_, err := NewPlotSink(fsutil.NewMemoryFileSystem(), "trajectory.gif")
	assert.Error(t, err)
}
