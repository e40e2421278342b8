package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LOCAL_STORE", "")
	t.Setenv("SYNC_MODE", "")
	t.Setenv("API_BASE_URL", "http://api.local:9000/")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://api.local:9000", cfg.Client.APIBaseURL)
	assert.Equal(t, 3*time.Second, cfg.Client.WriteTimeout)
	assert.Equal(t, 5*time.Second, cfg.Client.ReadTimeout)
	assert.Equal(t, 2*time.Second, cfg.Client.HealthTimeout)
	assert.Equal(t, "sqlite", cfg.Client.LocalStore)
	assert.Equal(t, "records", cfg.Client.SyncMode)
	assert.Equal(t, 1, cfg.Quiz.ScoreMin)
	assert.Equal(t, 5, cfg.Quiz.ScoreMax)
}

func TestLoadRejectsUnknownLocalStore(t *testing.T) {
	t.Setenv("LOCAL_STORE", "floppy")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsInvertedScoreRange(t *testing.T) {
	t.Setenv("SCORE_MIN", "5")
	t.Setenv("SCORE_MAX", "1")
	_, err := Load()
	require.Error(t, err)
}

func TestDSNPrefersURL(t *testing.T) {
	c := DatabaseConfig{URL: "postgres://x", Host: "h"}
	assert.Equal(t, "postgres://x", c.DSN())

	c = DatabaseConfig{User: "u", Password: "p", Host: "h", Port: "1", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:1/d?sslmode=disable", c.DSN())
}
