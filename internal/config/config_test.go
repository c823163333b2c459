package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultSpondAPIURL, cfg.SpondAPIURL)
	assert.Equal(t, "gb", cfg.Geocoding.Country)
	assert.Equal(t, 10*time.Second, cfg.Geocoding.Timeout)
	assert.Equal(t, "UTC", cfg.Timezone)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveAndReload(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.SpondUsername = "coach@example.com"
	cfg.SpondPassword = "secret"
	require.NoError(t, cfg.Set("group_id", "G1"))
	require.NoError(t, cfg.Set("host_ids", "A, B,,C"))
	require.NoError(t, cfg.Set("google_maps_api_key", "k"))
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "G1", got.GroupID)
	assert.Equal(t, []string{"A", "B", "C"}, got.HostIDs)
	assert.Equal(t, "k", got.Geocoding.GoogleAPIKey)

	u, p, err := got.Credentials()
	require.NoError(t, err)
	assert.Equal(t, "coach@example.com", u)
	assert.Equal(t, "secret", p)
}

func TestSetRejectsUnknownKeyAndBadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Set("password", "x"))
	assert.Error(t, cfg.Set("timezone", "Mars/Olympus"))
	assert.NoError(t, cfg.Set("timezone", "Europe/London"))
}

func TestCredentialsAndGroupRequired(t *testing.T) {
	cfg := DefaultConfig()
	_, _, err := cfg.Credentials()
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = cfg.RequireGroup("")
	assert.ErrorIs(t, err, ErrMissingGroup)

	gid, err := cfg.RequireGroup("override")
	require.NoError(t, err)
	assert.Equal(t, "override", gid)
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	env := map[string]string{
		"FOT_GROUP_ID":            "ENVGROUP",
		"FOT_HOST_IDS":            "H1,H2",
		"FOT_GOOGLE_MAPS_API_KEY": "envkey",
		"FOT_TIMEZONE":            "",
	}
	applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "ENVGROUP", cfg.GroupID)
	assert.Equal(t, []string{"H1", "H2"}, cfg.HostIDs)
	assert.Equal(t, "envkey", cfg.Geocoding.GoogleAPIKey)
	assert.Equal(t, "UTC", cfg.Timezone)
}
