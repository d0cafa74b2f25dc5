package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/trajectory.report/internal/db"
	"github.com/banshee-data/trajectory.report/internal/monitoring"
	"github.com/banshee-data/trajectory.report/internal/units"
)

// ServerConfig configures the live HTTP server.
type ServerConfig struct {
	Address string
	Latest  *Latest
	// DB enables the session endpoints and the /debug/ admin surface.
	DB        *db.DB
	BackupDir string
	Units     string
}

// Server exposes the state of the running session over HTTP.
type Server struct {
	address string
	latest  *Latest
	db      *db.DB
	units   string
	server  *http.Server
}

// NewServer builds the server and its routes.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Latest == nil {
		cfg.Latest = NewLatest()
	}
	if !units.IsValid(cfg.Units) {
		cfg.Units = units.MPS
	}
	if cfg.BackupDir == "" {
		cfg.BackupDir = "."
	}
	s := &Server{
		address: cfg.Address,
		latest:  cfg.Latest,
		db:      cfg.DB,
		units:   cfg.Units,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/trajectory", s.handleTrajectory)
	mux.HandleFunc("/chart", s.handleChart)
	if s.db != nil {
		mux.HandleFunc("GET /api/sessions", s.handleSessions)
		mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)
		mux.HandleFunc("GET /api/sessions/{id}/samples", s.handleSessionSamples)
		if err := s.db.AttachAdminRoutes(mux, cfg.BackupDir); err != nil {
			return nil, err
		}
	}

	s.server = &http.Server{
		Addr:    s.address,
		Handler: loggingMiddleware(mux),
	}
	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Start serves until ctx is cancelled, then shuts down gracefully. It returns
// early with an error if the listener fails.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		monitoring.Opsf("starting HTTP server on %s", s.address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	monitoring.Opsf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		monitoring.Opsf("HTTP server shutdown error: %v", err)
		if err := s.server.Close(); err != nil {
			monitoring.Opsf("HTTP server force close error: %v", err)
		}
	}
	monitoring.Diagf("HTTP server routine stopped")
	return nil
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		monitoring.Tracef("[%d] %s %s %.3fms", lrw.statusCode, r.Method, r.RequestURI,
			float64(time.Since(start).Nanoseconds())/1e6)
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		monitoring.Diagf("failed to encode json response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"running": s.latest.Status().Running,
	})
}

// displayValues are the snapshot speeds and distance in the requested units.
type displayValues struct {
	Units         string  `json:"units"`
	Distance      float64 `json:"distance"`
	Velocity      float64 `json:"velocity"`
	MaxVelocity   float64 `json:"max_velocity"`
	DistanceLabel string  `json:"distance_label"`
	VelocityLabel string  `json:"velocity_label"`
	Range         float64 `json:"range,omitempty"`
}

// handleStatus returns the latest snapshot and fit.
// Query params:
//
//	units (optional, one of mps, mph, kmph, kph; default from config)
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	unit := s.units
	if q := r.URL.Query().Get("units"); q != "" {
		if !units.IsValid(q) {
			writeJSONError(w, http.StatusBadRequest, "invalid units; must be one of "+units.GetValidUnitsString())
			return
		}
		unit = q
	}

	st := s.latest.Status()
	disp := displayValues{
		Units:         unit,
		Distance:      units.ConvertDistance(st.Snapshot.DistanceMeters, unit),
		Velocity:      units.ConvertSpeed(st.Snapshot.VelocityMps, unit),
		MaxVelocity:   units.ConvertSpeed(st.Snapshot.MaxVelocityMps, unit),
		DistanceLabel: units.DistanceLabel(unit),
		VelocityLabel: units.SpeedLabel(unit),
	}
	if st.Trajectory != nil && st.Trajectory.RangeMeters != nil {
		disp.Range = units.ConvertDistance(*st.Trajectory.RangeMeters, unit)
	}

	writeJSON(w, http.StatusOK, struct {
		Status
		Display displayValues `json:"display"`
	}{st, disp})
}

func (s *Server) handleTrajectory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	st := s.latest.Status()
	if st.Trajectory == nil {
		writeJSONError(w, http.StatusNotFound, "no trajectory yet")
		return
	}
	writeJSON(w, http.StatusOK, st.Trajectory)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	st := s.latest.Status()
	t := Trajectory{FrameIndex: st.Snapshot.FrameIndex}
	if st.Trajectory != nil {
		t = *st.Trajectory
	}
	var buf bytes.Buffer
	if err := RenderChart(&buf, t); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to render chart: "+err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleSessions lists stored sessions, most recent first.
// Query params:
//
//	limit (optional, default 50)
func (s *Server) handleSessions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n < 1 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	sessions, err := s.db.ListSessions(limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	session, err := s.db.GetSession(r.PathValue("id"))
	if errors.Is(err, db.ErrSessionNotFound) {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (s *Server) handleSessionSamples(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetSession(id); err != nil {
		if errors.Is(err, db.ErrSessionNotFound) {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	samples, err := s.db.Samples(id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if samples == nil {
		samples = []db.Sample{}
	}
	writeJSON(w, http.StatusOK, samples)
}
