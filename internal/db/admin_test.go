package db

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackup(t *testing.T) {
	db := newTestDB(t)
	s := testSession()
	require.NoError(t, db.CreateSession(s))

	dir := t.TempDir()
	path, err := db.Backup(dir, time.Unix(1_700_000_000, 0))
	require.NoError(t, err)
	assert.Contains(t, path, "trajectory-backup-1700000000.db")

	_, err = os.Stat(path)
	require.NoError(t, err)

	copyDB, err := OpenDB(path)
	require.NoError(t, err)
	defer copyDB.Close()
	got, err := copyDB.GetSession(s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Source, got.Source)
}

func TestAttachAdminRoutes_Sessions(t *testing.T) {
	db := newTestDB(t)
	s := testSession()
	require.NoError(t, db.CreateSession(s))

	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux, t.TempDir()))

	// tsweb.Debugger only serves loopback requests.
	req := httptest.NewRequest(http.MethodGet, "/debug/sessions", nil)
	req.RemoteAddr = "127.0.0.1:12345"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []Session
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, s.ID, sessions[0].ID)
}
