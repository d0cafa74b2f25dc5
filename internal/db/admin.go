package db

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"
)

// AttachAdminRoutes mounts the debug surface on mux: a tailsql console over
// the session database, a JSON session listing and an on-demand backup.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux, backupDir string) error {
	debug := tsweb.Debugger(mux)
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://trajectory.db", db.DB, &tailsql.DBOptions{
		Label: "Trajectory sessions",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("sessions", "Recent tracking sessions (JSON)", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		sessions, err := db.ListSessions(limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sessions)
	}))

	debug.Handle("backup", "Write a backup of the session database", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path, err := db.Backup(backupDir, time.Now())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		fmt.Fprintf(w, "backup written to %s\n", path)
	}))
	return nil
}

// Backup writes a consistent copy of the database into dir and returns its path.
func (db *DB) Backup(dir string, now time.Time) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("trajectory-backup-%d.db", now.Unix()))
	if _, err := db.Exec("VACUUM INTO ?", path); err != nil {
		return "", fmt.Errorf("backup database: %w", err)
	}
	return path, nil
}
