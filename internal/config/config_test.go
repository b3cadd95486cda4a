package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, 7, cfg.Schedule.HorizonDays)
	require.Equal(t, 2, cfg.Schedule.ProtectedDays)
	require.InDelta(t, 0.9, cfg.Schedule.SlackFactor, 1e-9)
	require.Equal(t, "greedy-2opt", cfg.Sequencer.Algorithm)
}

func TestLoadFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: 9090
schedule:
  horizon_days: 14
  slack_factor: 0.8
`), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Port)
	require.Equal(t, 14, cfg.Schedule.HorizonDays)
	require.InDelta(t, 0.8, cfg.Schedule.SlackFactor, 1e-9)
	// untouched keys keep their defaults
	require.Equal(t, 2, cfg.Schedule.ProtectedDays)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PANEPLAN_PORT", "7000")
	t.Setenv("PANEPLAN_SCHEDULE_PROTECTED_DAYS", "3")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Port)
	require.Equal(t, 3, cfg.Schedule.ProtectedDays)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("PANEPLAN_SCHEDULE_SLACK_FACTOR", "1.5")
	_, err := Load("")
	require.Error(t, err)
}

func TestLoadMissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
