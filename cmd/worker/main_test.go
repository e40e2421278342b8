package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moodquiz/backend/internal/localstore"
	"github.com/moodquiz/backend/internal/models"
)

func withArgs(t *testing.T, args ...string) {
	t.Helper()
	saved := os.Args
	os.Args = append([]string{"worker"}, args...)
	t.Cleanup(func() { os.Args = saved })
}

func TestRunFailsOnBadConfig(t *testing.T) {
	withArgs(t, "-once")
	t.Setenv("LOCAL_STORE", "tape")
	assert.Equal(t, 1, run())
}

func TestRunOnceKeepsLocalDataWhenRemoteDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "kiosk.db")
	storage, err := localstore.OpenSQLite(path)
	require.NoError(t, err)
	_, err = localstore.New(storage, nil).AddUser(context.Background(), models.NewUser{Name: "Ana"})
	require.NoError(t, err)
	require.NoError(t, storage.Close())

	withArgs(t, "-once")
	t.Setenv("API_BASE_URL", srv.URL)
	t.Setenv("LOCAL_STORE", "sqlite")
	t.Setenv("LOCAL_SQLITE_PATH", path)
	t.Setenv("CLIENT_HEALTH_TIMEOUT_MS", "200")
	assert.Equal(t, 0, run())

	// The remote was down, so the user is still pending.
	storage, err = localstore.OpenSQLite(path)
	require.NoError(t, err)
	defer storage.Close()
	users, err := localstore.New(storage, nil).Users(context.Background())
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
