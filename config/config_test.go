package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linvo/internal/auth"
	"linvo/storage"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.RecentLimit)
	assert.Equal(t, storage.DefaultKey, cfg.StorageKey)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linvo.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"store_backend":"sqlite","recent_limit":12,"listen_addr":":9000"}`), 0o644))

	t.Setenv("LINVO_RECENT_LIMIT", "20")
	t.Setenv("LINVO_REQUEST_TIMEOUT", "3s")
	t.Setenv("LINVO_FETCH_DURATIONS", "true")
	t.Setenv("LINVO_REQUESTS_PER_SECOND", "2.5")

	cfg, err := load([]string{filepath.Join(dir, "missing.json"), path})
	require.NoError(t, err)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, 20, cfg.RecentLimit, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.FetchDurations)
	assert.Equal(t, 2.5, cfg.RequestsPerSecond)
}

func TestLoad_NoFile(t *testing.T) {
	cfg, err := load([]string{filepath.Join(t.TempDir(), "none.json")})
	require.NoError(t, err)
	assert.Equal(t, BackendFile, cfg.StoreBackend)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		file string
		env  map[string]string
	}{
		{"bad json", `{"recent_limit":`, nil},
		{"bad int", "", map[string]string{"LINVO_MAX_RETRIES": "many"}},
		{"bad duration", "", map[string]string{"LINVO_TOKEN_TTL": "soon"}},
		{"bad backend", "", map[string]string{"LINVO_STORE_BACKEND": "s3"}},
		{"limit too high", "", map[string]string{"LINVO_RECENT_LIMIT": "51"}},
		{"reserve above quota", "", map[string]string{"LINVO_DAILY_QUOTA": "100", "LINVO_QUOTA_RESERVE": "100"}},
		{"short secret", "", map[string]string{"LINVO_TOKEN_SECRET": "short"}},
		{"bad level", "", map[string]string{"LINVO_LOG_LEVEL": "loud"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var paths []string
			if tt.file != "" {
				path := filepath.Join(t.TempDir(), "linvo.json")
				require.NoError(t, os.WriteFile(path, []byte(tt.file), 0o644))
				paths = append(paths, path)
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := load(paths)
			assert.Error(t, err)
		})
	}
}

func TestValidate_Backoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxBackoff = cfg.InitialBackoff / 2
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.BackoffMultiplier = 1
	assert.Error(t, cfg.Validate())
}

func TestResolvedStorePath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	cfg := DefaultConfig()
	assert.Equal(t, filepath.Join("/data", "linvo", "linvo.json"), cfg.ResolvedStorePath())

	cfg.StoreBackend = BackendSQLite
	assert.Equal(t, filepath.Join("/data", "linvo", "linvo.db"), cfg.ResolvedStorePath())

	cfg.StorePath = "/tmp/state.db"
	assert.Equal(t, "/tmp/state.db", cfg.ResolvedStorePath())
}

func TestOpenBackend(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend string
		name    string
	}{
		{BackendMemory, "memory"},
		{BackendFile, "file"},
		{BackendSQLite, "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.StoreBackend = tt.backend
			cfg.StorePath = filepath.Join(dir, "state-"+tt.backend)
			b, err := cfg.OpenBackend()
			require.NoError(t, err)
			defer b.Close()
			assert.Equal(t, tt.name, b.Name())
		})
	}
}

func TestVerifier(t *testing.T) {
	cfg := DefaultConfig()
	v, err := cfg.Verifier()
	require.NoError(t, err)
	assert.Nil(t, v)

	cfg.ParentPIN = "1234"
	v, err = cfg.Verifier()
	require.NoError(t, err)
	assert.NoError(t, v.Verify("1234"))

	hash, err := auth.HashPIN("9999")
	require.NoError(t, err)
	cfg.ParentPINHash = hash
	v, err = cfg.Verifier()
	require.NoError(t, err)
	assert.NoError(t, v.Verify("9999"), "hash takes precedence")
	assert.ErrorIs(t, v.Verify("1234"), auth.ErrInvalidPIN)

	cfg.ParentPINHash = "garbage"
	_, err = cfg.Verifier()
	assert.Error(t, err)
}

func TestTokenSecretBytes(t *testing.T) {
	cfg := DefaultConfig()
	a, err := cfg.TokenSecretBytes()
	require.NoError(t, err)
	assert.Len(t, a, 32)

	cfg.TokenSecret = "0123456789abcdef"
	b, err := cfg.TokenSecretBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef"), b)
}
