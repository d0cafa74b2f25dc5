package report

import (
	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/units"
)

// LogSink writes snapshots to the trace stream, fits to the diag stream and a
// session summary to the ops stream. Speeds and distances are converted to
// the configured units.
type LogSink struct {
	units string
	last  kinematics.Snapshot
	fit   *Trajectory
}

// NewLogSink returns a LogSink reporting in unit. Unknown units fall back to m/s.
func NewLogSink(unit string) *LogSink {
	if !units.IsValid(unit) {
		unit = units.MPS
	}
	return &LogSink{units: unit, last: kinematics.Snapshot{FrameIndex: -1}}
}

func (l *LogSink) Report(s kinematics.Snapshot) {
	l.last = s
	monitoring.Tracef("frame=%d detections=%d distance=%.3f%s velocity=%.3f%s accel=%.3fm/s² height=%.3fm",
		s.FrameIndex, s.Detections,
		units.ConvertDistance(s.DistanceMeters, l.units), units.DistanceLabel(l.units),
		units.ConvertSpeed(s.VelocityMps, l.units), units.SpeedLabel(l.units),
		s.AccelerationMps2, s.HeightMeters)
}

func (l *LogSink) ReportTrajectory(t Trajectory) {
	l.fit = &t
	if t.Fit == nil {
		monitoring.Diagf("frame=%d fit unavailable (%s); synthesizing from mean velocity", t.FrameIndex, t.FitError)
		return
	}
	f := t.Fit
	monitoring.Diagf("frame=%d fit y=%.4fx²%+.4fx%+.4f r²=%.4f n=%d g=%.3fm/s² vx0=%.3f",
		t.FrameIndex, f.A, f.B, f.C, f.RSquared, f.Samples, f.Gravity(), f.InitialVelocityX())
	if t.RangeMeters != nil {
		monitoring.Diagf("frame=%d range=%.3f%s", t.FrameIndex,
			units.ConvertDistance(*t.RangeMeters, l.units), units.DistanceLabel(l.units))
	}
}

// Close logs the final summary.
func (l *LogSink) Close() error {
	s := l.last
	monitoring.Opsf("summary: frames=%d detections=%d distance=%.3f%s mean velocity=%.3f%s mean |accel|=%.3fm/s²",
		s.FrameIndex+1, s.Detections,
		units.ConvertDistance(s.DistanceMeters, l.units), units.DistanceLabel(l.units),
		units.ConvertSpeed(s.VelocityMps, l.units), units.SpeedLabel(l.units),
		s.AccelerationMps2)
	monitoring.Opsf("summary: max height=%.3fm max velocity=%.3f%s max |accel|=%.3fm/s²",
		s.MaxHeightMeters,
		units.ConvertSpeed(s.MaxVelocityMps, l.units), units.SpeedLabel(l.units),
		s.MaxAccelerationMps2)
	if l.fit == nil {
		return nil
	}
	if f := l.fit.Fit; f != nil {
		monitoring.Opsf("summary: fitted gravity=%.3fm/s² initial vx=%.3f r²=%.4f", f.Gravity(), f.InitialVelocityX(), f.RSquared)
	} else {
		monitoring.Opsf("summary: no fit (%s)", l.fit.FitError)
	}
	if l.fit.RangeMeters != nil {
		monitoring.Opsf("summary: range=%.3f%s", units.ConvertDistance(*l.fit.RangeMeters, l.units), units.DistanceLabel(l.units))
	}
	return nil
}
