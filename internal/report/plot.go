package report

import (
	"fmt"
	"image/color"
	"io"
	"iter"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/trajectory.report/internal/fsutil"
	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/trajectory"
)

// curvePoints is the number of points drawn for the fitted parabola.
const curvePoints = 200

var (
	observedColor = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	fittedColor   = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	pathColor     = color.RGBA{R: 44, G: 160, B: 44, A: 255}
)

// PlotFormat returns the gonum/plot output format for path from its extension.
func PlotFormat(path string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "png", "svg", "pdf", "eps", "jpg", "jpeg", "tif", "tiff":
		return ext, nil
	default:
		return "", fmt.Errorf("unsupported plot format %q", ext)
	}
}

func pointXYs(seq iter.Seq[trajectory.Point]) plotter.XYs {
	var xys plotter.XYs
	for p := range seq {
		xys = append(xys, plotter.XY{X: p.X, Y: p.Y})
	}
	return xys
}

// WritePlot renders the observed samples, the fitted parabola and the
// synthesized path of t to w in the given gonum/plot format.
func WritePlot(w io.Writer, t Trajectory, format string) error {
	p := plot.New()
	p.Title.Text = "Projectile trajectory"
	if t.Fit != nil {
		p.Title.Text = fmt.Sprintf("Projectile trajectory (g=%.2f m/s², r²=%.3f)", t.Fit.Gravity(), t.Fit.RSquared)
	}
	p.X.Label.Text = "x (m)"
	p.Y.Label.Text = "height (m)"

	if len(t.Observed) > 0 {
		obs := make(plotter.XYs, len(t.Observed))
		for i, s := range t.Observed {
			obs[i] = plotter.XY{X: s.X, Y: s.Y}
		}
		scatter, err := plotter.NewScatter(obs)
		if err != nil {
			return fmt.Errorf("observed samples: %w", err)
		}
		scatter.GlyphStyle.Color = observedColor
		scatter.GlyphStyle.Radius = vg.Points(2)
		p.Add(scatter)
		p.Legend.Add("observed", scatter)
	}

	if fitted := pointXYs(t.FittedCurve(curvePoints)); len(fitted) > 0 {
		line, err := plotter.NewLine(fitted)
		if err != nil {
			return fmt.Errorf("fitted curve: %w", err)
		}
		line.Color = fittedColor
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add("fitted", line)
	}

	if path := pointXYs(t.SynthesizedPath()); len(path) > 0 {
		line, err := plotter.NewLine(path)
		if err != nil {
			return fmt.Errorf("synthesized path: %w", err)
		}
		line.Color = pathColor
		line.Width = vg.Points(1)
		line.Dashes = []vg.Length{vg.Points(4), vg.Points(2)}
		p.Add(line)
		p.Legend.Add("synthesized", line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, format)
	if err != nil {
		return fmt.Errorf("create %s writer: %w", format, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write plot: %w", err)
	}
	return nil
}

// PlotSink renders the last reported trajectory to a file on Close.
type PlotSink struct {
	fs     fsutil.FileSystem
	path   string
	format string
	last   *Trajectory
}

// NewPlotSink returns a PlotSink writing path through fs. The format comes
// from the file extension.
func NewPlotSink(fs fsutil.FileSystem, path string) (*PlotSink, error) {
	format, err := PlotFormat(path)
	if err != nil {
		return nil, err
	}
	return &PlotSink{fs: fs, path: path, format: format}, nil
}

func (p *PlotSink) Report(kinematics.Snapshot) {}

func (p *PlotSink) ReportTrajectory(t Trajectory) { p.last = &t }

// Close writes the plot. Nothing is written if no trajectory was reported.
func (p *PlotSink) Close() error {
	if p.last == nil {
		monitoring.Diagf("no trajectory to plot; skipping %s", p.path)
		return nil
	}
	if dir := filepath.Dir(p.path); dir != "." {
		if err := p.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create plot directory: %w", err)
		}
	}
	f, err := p.fs.Create(p.path)
	if err != nil {
		return fmt.Errorf("create plot file: %w", err)
	}
	if err := WritePlot(f, *p.last, p.format); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close plot file: %w", err)
	}
	monitoring.Opsf("wrote trajectory plot to %s", p.path)
	return nil
}
