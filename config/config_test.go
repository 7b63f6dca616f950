package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
simulation:
  name: winter-study
  steps: 7
  window_steps: 24
  resolution_minutes: 60
  start: "2024-01-01T00:00:00Z"
solver:
  wall_clock_limit_seconds: 120
  relative_gap_tolerance: 0.01
results:
  directory: /tmp/results
logging:
  level: debug
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "winter-study", cfg.Simulation.Name)
	require.Equal(t, 7, cfg.Simulation.Steps)
	require.Equal(t, 120, cfg.Solver.WallClockLimitSeconds)
	require.Equal(t, 0.01, cfg.Solver.RelativeGapTolerance)
	require.Equal(t, "/tmp/results", cfg.Results.Directory)
	require.Equal(t, "debug", cfg.Logging.Level)

	w := cfg.Simulation.Window()
	require.True(t, w.Start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.Equal(t, 24, w.Steps)
	require.Equal(t, time.Hour, w.Resolution)

	opts := cfg.Solver.Options()
	require.Equal(t, 2*time.Minute, opts.WallClockLimit)
}

func TestLoadJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{
  "simulation": {"name": "run", "steps": 2, "start": "2024-06-01T00:00:00Z"}
}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.Simulation.Steps)
	// Unset fields fall back to defaults.
	require.Equal(t, 24, cfg.Simulation.WindowSteps)
	require.Equal(t, 60, cfg.Simulation.ResolutionMinutes)
	require.Equal(t, 300, cfg.Solver.WallClockLimitSeconds)
	require.Equal(t, "results", cfg.Results.Directory)
	require.Equal(t, "info", cfg.Logging.Level)
}

func TestEnvOverride(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
simulation:
  steps: 2
  start: "2024-01-01T00:00:00Z"
solver:
  wall_clock_limit_seconds: 120
`)
	t.Setenv("PC_SOLVER__WALL_CLOCK_LIMIT_SECONDS", "45")
	t.Setenv("PC_SIMULATION__NAME", "from-env")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 45, cfg.Solver.WallClockLimitSeconds)
	require.Equal(t, "from-env", cfg.Simulation.Name)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing start", "simulation:\n  steps: 2\n"},
		{"bad start", "simulation:\n  steps: 2\n  start: yesterday\n"},
		{"negative steps", "simulation:\n  steps: -1\n  start: \"2024-01-01T00:00:00Z\"\n"},
		{"negative gap", "simulation:\n  start: \"2024-01-01T00:00:00Z\"\nsolver:\n  relative_gap_tolerance: -0.5\n"},
		{"bad log level", "simulation:\n  start: \"2024-01-01T00:00:00Z\"\nlogging:\n  level: shouting\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, "config.yaml", tc.content)
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}

func TestLoadRejectsUnknownFormat(t *testing.T) {
	path := writeConfig(t, "config.toml", "simulation = {}")
	_, err := Load(path)
	require.Error(t, err)
}
