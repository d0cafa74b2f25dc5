package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/trajectory.report/internal/kinematics"
	"github.com/banshee-data/trajectory.report/internal/trajectory"
)

// ErrSessionNotFound is returned when a session id has no row.
var ErrSessionNotFound = errors.New("session not found")

// Session is one tracking run over a frame source.
type Session struct {
	ID          string     `json:"session_id"`
	Source      string     `json:"source"`
	Detector    string     `json:"detector"`
	FrameRate   float64    `json:"frame_rate"`
	FrameWidth  int        `json:"frame_width"`
	FrameHeight int        `json:"frame_height"`
	Scale       float64    `json:"scale_m_per_px"`
	Axis        string     `json:"trajectory_axis"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Summary     *Summary   `json:"summary,omitempty"`
}

// Summary is written once a session ends.
type Summary struct {
	Frames      int                 `json:"frames"`
	Snapshot    kinematics.Snapshot `json:"snapshot"`
	Fit         *trajectory.Fitted  `json:"fit,omitempty"`
	RangeMeters *float64            `json:"range_m,omitempty"`
	FitError    string              `json:"fit_error,omitempty"`
}

// Sample is one stored trajectory point.
type Sample struct {
	FrameIndex int     `json:"frame_index"`
	CentroidX  int     `json:"centroid_x"`
	CentroidY  int     `json:"centroid_y"`
	XMeters    float64 `json:"x_m"`
	YMeters    float64 `json:"y_m"`
}

// CreateSession inserts s. An empty ID is replaced by a new UUID and a zero
// StartedAt by the current time.
func (db *DB) CreateSession(s *Session) error {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	if s.StartedAt.IsZero() {
		s.StartedAt = time.Now()
	}
	_, err := db.Exec(`
		INSERT INTO tracking_sessions (
			session_id, source, detector, frame_rate, frame_width, frame_height,
			scale_m_per_px, trajectory_axis, started_at_ns
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Source, s.Detector, s.FrameRate, s.FrameWidth, s.FrameHeight,
		s.Scale, s.Axis, s.StartedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// RecordSamples stores samples for a session in one transaction. Samples
// already stored for a frame are replaced.
func (db *DB) RecordSamples(sessionID string, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin samples: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT OR REPLACE INTO trajectory_samples (
			session_id, frame_index, centroid_x, centroid_y, x_m, y_m
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare samples: %w", err)
	}
	defer stmt.Close()

	for _, s := range samples {
		if _, err := stmt.Exec(sessionID, s.FrameIndex, s.CentroidX, s.CentroidY, s.XMeters, s.YMeters); err != nil {
			return fmt.Errorf("insert sample %d: %w", s.FrameIndex, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit samples: %w", err)
	}
	return nil
}

// FinishSession records the end time and summary of a session.
func (db *DB) FinishSession(sessionID string, finishedAt time.Time, sum Summary) error {
	snap := sum.Snapshot
	var a, b, c, r2 sql.NullFloat64
	if sum.Fit != nil {
		a = sql.NullFloat64{Float64: sum.Fit.A, Valid: true}
		b = sql.NullFloat64{Float64: sum.Fit.B, Valid: true}
		c = sql.NullFloat64{Float64: sum.Fit.C, Valid: true}
		r2 = sql.NullFloat64{Float64: sum.Fit.RSquared, Valid: true}
	}
	res, err := db.Exec(`
		UPDATE tracking_sessions SET
			finished_at_ns = ?, frames = ?, detections = ?,
			distance_m = ?, velocity_mps = ?, acceleration_mps2 = ?, height_m = ?,
			max_height_m = ?, max_velocity_mps = ?, max_acceleration_mps2 = ?,
			fit_a = ?, fit_b = ?, fit_c = ?, fit_r_squared = ?, range_m = ?, fit_error = ?
		WHERE session_id = ?`,
		finishedAt.UnixNano(), sum.Frames, snap.Detections,
		snap.DistanceMeters, snap.VelocityMps, snap.AccelerationMps2, snap.HeightMeters,
		snap.MaxHeightMeters, snap.MaxVelocityMps, snap.MaxAccelerationMps2,
		a, b, c, r2, nullFloat64(sum.RangeMeters), nullString(sum.FitError),
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("finish session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return nil
}

const sessionColumns = `
	session_id, source, detector, frame_rate, frame_width, frame_height,
	scale_m_per_px, trajectory_axis, started_at_ns, finished_at_ns, frames, detections,
	distance_m, velocity_mps, acceleration_mps2, height_m,
	max_height_m, max_velocity_mps, max_acceleration_mps2,
	fit_a, fit_b, fit_c, fit_r_squared, range_m, fit_error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var s Session
	var startedNs int64
	var finishedNs sql.NullInt64
	var frames, detections int
	var dist, vel, acc, height, maxH, maxV, maxA sql.NullFloat64
	var a, b, c, r2, rangeM sql.NullFloat64
	var fitErr sql.NullString

	err := row.Scan(
		&s.ID, &s.Source, &s.Detector, &s.FrameRate, &s.FrameWidth, &s.FrameHeight,
		&s.Scale, &s.Axis, &startedNs, &finishedNs, &frames, &detections,
		&dist, &vel, &acc, &height, &maxH, &maxV, &maxA,
		&a, &b, &c, &r2, &rangeM, &fitErr,
	)
	if err != nil {
		return nil, err
	}
	s.StartedAt = time.Unix(0, startedNs)
	if !finishedNs.Valid {
		return &s, nil
	}

	finished := time.Unix(0, finishedNs.Int64)
	s.FinishedAt = &finished
	sum := &Summary{
		Frames: frames,
		Snapshot: kinematics.Snapshot{
			FrameIndex:          frames - 1,
			Detections:          detections,
			DistanceMeters:      dist.Float64,
			VelocityMps:         vel.Float64,
			AccelerationMps2:    acc.Float64,
			HeightMeters:        height.Float64,
			MaxHeightMeters:     maxH.Float64,
			MaxVelocityMps:      maxV.Float64,
			MaxAccelerationMps2: maxA.Float64,
		},
		FitError: fitErr.String,
	}
	if a.Valid && b.Valid && c.Valid {
		sum.Fit = &trajectory.Fitted{A: a.Float64, B: b.Float64, C: c.Float64, RSquared: r2.Float64, Samples: detections}
	}
	if rangeM.Valid {
		v := rangeM.Float64
		sum.RangeMeters = &v
	}
	s.Summary = sum
	return &s, nil
}

// GetSession retrieves a session by ID.
func (db *DB) GetSession(sessionID string) (*Session, error) {
	row := db.QueryRow(`SELECT `+sessionColumns+` FROM tracking_sessions WHERE session_id = ?`, sessionID)
	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return s, nil
}

// ListSessions returns the most recent sessions first. limit <= 0 means 50.
func (db *DB) ListSessions(limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(`SELECT `+sessionColumns+` FROM tracking_sessions ORDER BY started_at_ns DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

// Samples returns the stored samples of a session ordered by frame.
func (db *DB) Samples(sessionID string) ([]Sample, error) {
	rows, err := db.Query(`
		SELECT frame_index, centroid_x, centroid_y, x_m, y_m
		FROM trajectory_samples WHERE session_id = ? ORDER BY frame_index`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var s Sample
		if err := rows.Scan(&s.FrameIndex, &s.CentroidX, &s.CentroidY, &s.XMeters, &s.YMeters); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
