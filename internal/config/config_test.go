package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TREATYLENS_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, int64(52428800), cfg.Server.MaxUploadBytes)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 5, cfg.History.LookbackYears)
	assert.Equal(t, 1.5, cfg.Analysis.ReferencePerMille)
	assert.Equal(t, 1e9, cfg.Analysis.TIVPlausibleMin)
	assert.Equal(t, DefaultRateFallbacks, cfg.Rates.Fallbacks)
	assert.True(t, cfg.Server.RateLimit.Enabled)
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
analysis:
  reference_per_mille: 2.5
rates:
  fallbacks:
    COP: 4500
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TREATYLENS_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 2.5, cfg.Analysis.ReferencePerMille)
	assert.Equal(t, 4500.0, cfg.Rates.Fallbacks["COP"])
}

func TestLoad_EnvWinsOverFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 9090\n"), 0o644))
	t.Setenv("TREATYLENS_CONFIG_FILE", path)
	t.Setenv("TREATYLENS_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg := &Config{}
		cfg.Server.Port = 8080
		cfg.History.LookbackYears = 5
		cfg.History.QueryTimeout = 30 * time.Second
		cfg.Analysis.ReferencePerMille = 1.5
		cfg.Logging.Output = "stdout"
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().validate())
	})
	t.Run("bad port", func(t *testing.T) {
		cfg := base()
		cfg.Server.Port = -1
		assert.Error(t, cfg.validate())
	})
	t.Run("bad lookback", func(t *testing.T) {
		cfg := base()
		cfg.History.LookbackYears = 0
		assert.Error(t, cfg.validate())
	})
	t.Run("bad reference rate", func(t *testing.T) {
		cfg := base()
		cfg.Analysis.ReferencePerMille = -2
		assert.Error(t, cfg.validate())
	})
	t.Run("bad log output", func(t *testing.T) {
		cfg := base()
		cfg.Logging.Output = "syslog"
		assert.Error(t, cfg.validate())
	})
}
