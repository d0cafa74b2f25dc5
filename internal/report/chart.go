package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
)

func scatterData(xs, ys []float64) []opts.ScatterData {
	data := make([]opts.ScatterData, len(xs))
	for i := range xs {
		data[i] = opts.ScatterData{Value: []interface{}{xs[i], ys[i]}}
	}
	return data
}

// RenderChart writes an interactive HTML chart of t.
func RenderChart(w io.Writer, t Trajectory) error {
	subtitle := fmt.Sprintf("frame=%d samples=%d", t.FrameIndex, len(t.Observed))
	if t.Fit != nil {
		subtitle += fmt.Sprintf(" g=%.2fm/s² r²=%.3f", t.Fit.Gravity(), t.Fit.RSquared)
	} else if t.FitError != "" {
		subtitle += " fit: " + t.FitError
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Trajectory", Theme: "dark", Width: "900px", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{Title: "Projectile trajectory", Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "10"}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "x (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "value", Name: "height (m)", NameLocation: "middle", NameGap: 30}),
	)

	xs := make([]float64, len(t.Observed))
	ys := make([]float64, len(t.Observed))
	for i, s := range t.Observed {
		xs[i], ys[i] = s.X, s.Y
	}
	scatter.AddSeries("observed", scatterData(xs, ys), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 8}))

	xs, ys = xs[:0:0], ys[:0:0]
	for p := range t.FittedCurve(curvePoints) {
		xs, ys = append(xs, p.X), append(ys, p.Y)
	}
	if len(xs) > 0 {
		scatter.AddSeries("fitted", scatterData(xs, ys), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	}

	xs, ys = xs[:0:0], ys[:0:0]
	for p := range t.SynthesizedPath() {
		xs, ys = append(xs, p.X), append(ys, p.Y)
	}
	if len(xs) > 0 {
		scatter.AddSeries("synthesized", scatterData(xs, ys), charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 2}))
	}

	return scatter.Render(w)
}

// ChartSink renders the last reported trajectory to an HTML file on Close.
type ChartSink struct {
	fs   fsutil.FileSystem
	path string
	last *Trajectory
}

// NewChartSink returns a ChartSink writing path through fs.
func NewChartSink(fs fsutil.FileSystem, path string) *ChartSink {
	return &ChartSink{fs: fs, path: path}
}

func (c *ChartSink) Report(kinematics.Snapshot) {}

func (c *ChartSink) ReportTrajectory(t Trajectory) { c.last = &t }

// Close writes the chart. Nothing is written if no trajectory was reported.
func (c *ChartSink) Close() error {
	if c.last == nil {
		monitoring.Diagf("no trajectory to chart; skipping %s", c.path)
		return nil
	}
	if dir := filepath.Dir(c.path); dir != "." {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create chart directory: %w", err)
		}
	}
	f, err := c.fs.Create(c.path)
	if err != nil {
		return fmt.Errorf("create chart file: %w", err)
	}
	if err := RenderChart(f, *c.last); err != nil {
		f.Close()
		return fmt.Errorf("render chart: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart file: %w", err)
	}
	monitoring.Opsf("wrote trajectory chart to %s", c.path)
	return nil
}
