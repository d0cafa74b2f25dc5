// Package report delivers tracking snapshots and trajectory estimates to
// their consumers: the log streams, static plot and chart files, and the
// live HTTP server.
package report

import (
	"errors"
	"iter"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/trajectory"
)

// Trajectory is the trajectory estimate at one point of a session. Either
// Fit or FitError is set. Path is the analytic synthesis, from the fit when it
// was usable and from the mean velocity otherwise.
type Trajectory struct {
	FrameIndex  int                           `json:"frame_index"`
	Observed    []kinematics.TrajectorySample `json:"observed"`
	Fit         *trajectory.Fitted            `json:"fit,omitempty"`
	RangeMeters *float64                      `json:"range_m,omitempty"`
	FitError    string                        `json:"fit_error,omitempty"`
	Launch      *trajectory.Launch            `json:"launch,omitempty"`
	Path        *trajectory.Path              `json:"-"`
}

// fitSpan returns the x interval the fitted curve is drawn over: from the
// first observation to the furthest of the last observation and the range.
func (t Trajectory) fitSpan() (from, to float64, ok bool) {
	if t.Fit == nil || len(t.Observed) == 0 {
		return 0, 0, false
	}
	xs := make([]float64, len(t.Observed))
	for i, s := range t.Observed {
		xs[i] = s.X
	}
	from, to = floats.Min(xs), floats.Max(xs)
	if t.RangeMeters != nil && *t.RangeMeters > to {
		to = *t.RangeMeters
	}
	return from, to, to > from
}

// FittedCurve yields n points of the fitted parabola, or nothing without a fit.
func (t Trajectory) FittedCurve(n int) iter.Seq[trajectory.Point] {
	from, to, ok := t.fitSpan()
	if !ok {
		return func(func(trajectory.Point) bool) {}
	}
	return t.Fit.Curve(from, to, n)
}

// SynthesizedPath yields the points of the synthesized path, if any.
func (t Trajectory) SynthesizedPath() iter.Seq[trajectory.Point] {
	if t.Path == nil {
		return func(func(trajectory.Point) bool) {}
	}
	return t.Path.Points()
}

// Sink consumes the output of a tracking session. Report is called once per
// processed frame and ReportTrajectory after every fit attempt. Close is
// called once when the session ends.
type Sink interface {
	Report(kinematics.Snapshot)
	ReportTrajectory(Trajectory)
	Close() error
}

// Multi fans out to several sinks.
type Multi []Sink

func (m Multi) Report(s kinematics.Snapshot) {
	for _, sink := range m {
		sink.Report(s)
	}
}

func (m Multi) ReportTrajectory(t Trajectory) {
	for _, sink := range m {
		sink.ReportTrajectory(t)
	}
}

// Close closes every sink and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, sink := range m {
		if err := sink.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Status is the latest published state of a session.
type Status struct {
	Running    bool                `json:"running"`
	Snapshot   kinematics.Snapshot `json:"snapshot"`
	Trajectory *Trajectory         `json:"trajectory,omitempty"`
}

// Latest is a Sink that keeps the most recent snapshot and trajectory for
// concurrent readers such as the HTTP server.
type Latest struct {
	mu     sync.RWMutex
	status Status
}

// NewLatest returns a holder for a running session with no observations.
func NewLatest() *Latest {
	return &Latest{status: Status{Running: true, Snapshot: kinematics.Snapshot{FrameIndex: -1}}}
}

func (l *Latest) Report(s kinematics.Snapshot) {
	l.mu.Lock()
	l.status.Snapshot = s
	l.mu.Unlock()
}

func (l *Latest) ReportTrajectory(t Trajectory) {
	// Observed is owned by the caller.
	t.Observed = append([]kinematics.TrajectorySample(nil), t.Observed...)
	l.mu.Lock()
	l.status.Trajectory = &t
	l.mu.Unlock()
}

// Close marks the session finished. The last state stays readable.
func (l *Latest) Close() error {
	l.mu.Lock()
	l.status.Running = false
	l.mu.Unlock()
	return nil
}

// Status returns a copy of the latest state.
func (l *Latest) Status() Status {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.status
}
