package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost", s.ClickHouse.Host)
	assert.Equal(t, 9000, s.ClickHouse.Port)
	assert.Equal(t, "3", s.Tier)
	assert.Equal(t, "output", s.Output.Dir)
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yml")
	content := `
clickhouse:
  host: ch.internal
  port: 9440
  database: prices
  user: cpi
  password: secret
windows:
  base_start: "2025-01-01"
  base_end: "2025-12-31"
  analysis_start: "2025-01-01"
  analysis_end: "2026-12-31"
tier: "2"
output:
  dir: /var/lib/cpi/out
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ch.internal", s.ClickHouse.Host)
	assert.Equal(t, 9440, s.ClickHouse.Port)
	assert.Equal(t, "2", s.Tier)
	assert.Equal(t, "/var/lib/cpi/out", s.Output.Dir)

	params, err := s.Params()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), params.BaseWindow.Start)
	assert.Equal(t, time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), params.AnalysisWindow.End)
	assert.Equal(t, "2", params.Tier)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLICKHOUSE_HOST", "env-host")
	t.Setenv("CLICKHOUSE_PORT", "1234")

	s, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)
	assert.Equal(t, "env-host", s.ClickHouse.Host)
	assert.Equal(t, 1234, s.ClickHouse.Port)
}

func TestParamsRejectsInvalidWindows(t *testing.T) {
	s := Default()
	s.Windows.BaseEnd = "2024-01-01" // precedes base start
	_, err := s.Params()
	require.Error(t, err)

	s = Default()
	s.Windows.AnalysisStart = "not-a-date"
	_, err = s.Params()
	require.Error(t, err)
}
