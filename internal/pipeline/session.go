// Package pipeline runs a tracking session: it reads frames from a source,
// detects the moving object, accumulates kinematics, refits the trajectory
// and publishes the results to the report sinks and the session store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/banshee-data/trajectory.report/internal/calibration"
	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/motion"
	"github.com/banshee-data/trajectory.report/internal/report"
	"github.com/banshee-data/trajectory.report/internal/timeutil"
	"github.com/banshee-data/trajectory.report/internal/trajectory"
	"github.com/banshee-data/trajectory.report/internal/video"
)

// ErrEmptySource is returned when the source has no frames at all.
var ErrEmptySource = errors.New("frame source has no frames")

// Config wires the collaborators of a session.
type Config struct {
	Detector    motion.Detector
	Calibration calibration.Provider
	Sink        report.Sink

	Axis kinematics.Axis
	// RefitEvery is the refit cadence in frames; 0 fits only at the end.
	RefitEvery int
	// Launch holds the synthesis defaults. Speed and HorizontalRange are
	// filled in from the observations.
	Launch trajectory.Launch

	// Store, when set, receives the session record and its samples.
	Store        *db.DB
	SourceName   string
	DetectorName string

	// Clock paces frames at the source rate when set.
	Clock timeutil.Clock
}

// Result is the final state of a session.
type Result struct {
	SessionID  string
	Frames     int
	Snapshot   kinematics.Snapshot
	Trajectory report.Trajectory
}

// Session runs one pass over a frame source.
type Session struct {
	cfg Config

	acc       *kinematics.Accumulator
	gravity   float64 // last usable fitted gravity, m/s²
	sessionID string
	persisted int
	fps       float64
	frameSize image.Point
}

// NewSession validates cfg and returns a session ready to Run.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Detector == nil {
		return nil, errors.New("pipeline: detector is required")
	}
	if cfg.Calibration == nil {
		return nil, errors.New("pipeline: calibration provider is required")
	}
	if cfg.RefitEvery < 0 {
		return nil, fmt.Errorf("pipeline: refit cadence must be non-negative, got %d", cfg.RefitEvery)
	}
	if cfg.Sink == nil {
		cfg.Sink = report.Multi{}
	}
	if cfg.Axis == "" {
		cfg.Axis = kinematics.AxisHorizontal
	}
	return &Session{cfg: cfg}, nil
}

// Run processes src until it is exhausted or ctx is cancelled. The source is
// closed and the sinks are closed before Run returns. End of stream is a
// normal termination; cancellation still reports the final estimate and
// returns ctx.Err().
func (s *Session) Run(ctx context.Context, src video.FrameSource) (res Result, err error) {
	defer func() {
		if cerr := src.Close(); cerr != nil {
			monitoring.Opsf("close frame source: %v", cerr)
		}
	}()
	defer func() {
		if cerr := s.cfg.Sink.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close sinks: %w", cerr)
		}
	}()

	interval, err := src.FrameInterval()
	if err != nil {
		return Result{}, err
	}
	s.fps = 1 / interval

	prev, err := src.Next()
	if errors.Is(err, io.EOF) {
		return Result{}, ErrEmptySource
	}
	if err != nil {
		return Result{}, fmt.Errorf("read frame 0: %w", err)
	}
	s.frameSize = prev.Bounds().Size()

	scale, err := s.cfg.Calibration.Calibrate(prev)
	if err != nil {
		return Result{}, err
	}
	monitoring.Diagf("calibrated scale %.6g m/px on %dx%d frames at %.3g fps", float64(scale), s.frameSize.X, s.frameSize.Y, s.fps)

	s.acc = kinematics.NewAccumulator(s.frameSize.Y, scale, s.cfg.Axis)
	if err := s.startStore(float64(scale)); err != nil {
		return Result{}, err
	}

	// Frame 0 has no predecessor to difference against.
	if err := s.acc.Observe(nil, 0, interval); err != nil {
		return Result{}, err
	}
	s.cfg.Sink.Report(s.acc.Snapshot())

	var tick <-chan time.Time
	if s.cfg.Clock != nil {
		ticker := s.cfg.Clock.NewTicker(time.Duration(interval * float64(time.Second)))
		defer ticker.Stop()
		tick = ticker.C()
	}

	frames := 1
	runErr := s.loop(ctx, src, prev, interval, tick, &frames)

	res, finishErr := s.finish(frames)
	if runErr != nil {
		return res, runErr
	}
	return res, finishErr
}

func (s *Session) loop(ctx context.Context, src video.FrameSource, prev *image.Gray, interval float64, tick <-chan time.Time, frames *int) error {
	for idx := 1; ; idx++ {
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		cur, err := src.Next()
		if errors.Is(err, io.EOF) {
			monitoring.Diagf("end of stream after %d frames", *frames)
			return nil
		}
		if err != nil {
			monitoring.Opsf("read frame %d: %v", idx, err)
			return fmt.Errorf("read frame %d: %w", idx, err)
		}
		*frames++

		det, err := s.cfg.Detector.Detect(prev, cur)
		if err != nil {
			return fmt.Errorf("detect frame %d: %w", idx, err)
		}
		if det != nil {
			monitoring.Tracef("frame=%d box=%v centroid=%v area=%d", idx, det.Box, det.Centroid, det.AreaPixels)
		}
		if err := s.acc.Observe(det, idx, interval); err != nil {
			return err
		}
		s.cfg.Sink.Report(s.acc.Snapshot())

		if s.cfg.RefitEvery > 0 && idx%s.cfg.RefitEvery == 0 {
			s.cfg.Sink.ReportTrajectory(s.estimate(idx))
			if err := s.persistSamples(); err != nil {
				return err
			}
		}
		prev = cur
	}
}

// estimate fits the samples gathered so far and synthesizes the analytic
// path. A failed fit leaves FitError set and the path built from the mean
// velocity with the last usable gravity.
func (s *Session) estimate(frameIndex int) report.Trajectory {
	samples := s.acc.TrajectorySamples()
	t := report.Trajectory{FrameIndex: frameIndex, Observed: samples}

	launch := s.cfg.Launch
	launch.Speed = s.acc.MeanVelocityMps()
	launch.HorizontalRange = 0

	fit, err := trajectory.Fit(samples)
	if err != nil {
		t.FitError = err.Error()
		monitoring.Diagf("frame=%d fit failed: %v", frameIndex, err)
	} else {
		t.Fit = &fit
		if g := fit.Gravity(); g > 0 && !math.IsInf(g, 0) {
			s.gravity = g
		}
		if r, err := fit.Range(); err == nil {
			t.RangeMeters = &r
			launch.HorizontalRange = r
		} else {
			monitoring.Diagf("frame=%d range unavailable: %v", frameIndex, err)
		}
	}
	if s.gravity > 0 {
		launch.Gravity = s.gravity
	}

	if path, err := trajectory.Synthesize(launch); err == nil {
		t.Launch = &launch
		t.Path = &path
	} else {
		monitoring.Diagf("frame=%d no synthesized path: %v", frameIndex, err)
	}
	return t
}

func (s *Session) finish(frames int) (Result, error) {
	last := frames - 1
	t := s.estimate(last)
	s.cfg.Sink.ReportTrajectory(t)

	res := Result{
		SessionID:  s.sessionID,
		Frames:     frames,
		Snapshot:   s.acc.Snapshot(),
		Trajectory: t,
	}
	if s.cfg.Store == nil {
		return res, nil
	}

	if err := s.persistSamples(); err != nil {
		return res, err
	}
	sum := db.Summary{
		Frames:      frames,
		Snapshot:    res.Snapshot,
		Fit:         t.Fit,
		RangeMeters: t.RangeMeters,
		FitError:    t.FitError,
	}
	if err := s.cfg.Store.FinishSession(s.sessionID, time.Now(), sum); err != nil {
		return res, fmt.Errorf("finish session: %w", err)
	}
	monitoring.Opsf("session %s stored (%d frames, %d detections)", s.sessionID, frames, res.Snapshot.Detections)
	return res, nil
}

func (s *Session) startStore(scale float64) error {
	if s.cfg.Store == nil {
		return nil
	}
	rec := &db.Session{
		Source:      s.cfg.SourceName,
		Detector:    s.cfg.DetectorName,
		FrameRate:   s.fps,
		FrameWidth:  s.frameSize.X,
		FrameHeight: s.frameSize.Y,
		Scale:       scale,
		Axis:        string(s.cfg.Axis),
	}
	if err := s.cfg.Store.CreateSession(rec); err != nil {
		return err
	}
	s.sessionID = rec.ID
	return nil
}

// persistSamples writes the samples observed since the last call.
func (s *Session) persistSamples() error {
	if s.cfg.Store == nil {
		return nil
	}
	positions := s.acc.Positions()
	if len(positions) == s.persisted {
		return nil
	}
	traj := s.acc.TrajectorySamples()
	batch := make([]db.Sample, 0, len(positions)-s.persisted)
	for i := s.persisted; i < len(positions); i++ {
		batch = append(batch, db.Sample{
			FrameIndex: positions[i].FrameIndex,
			CentroidX:  positions[i].X,
			CentroidY:  positions[i].Y,
			XMeters:    traj[i].X,
			YMeters:    traj[i].Y,
		})
	}
	if err := s.cfg.Store.RecordSamples(s.sessionID, batch); err != nil {
		monitoring.Opsf("record samples: %v", err)
		return err
	}
	s.persisted = len(positions)
	return nil
}
