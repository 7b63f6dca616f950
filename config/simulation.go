package config

import (
	"fmt"
	"time"

	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/solver"
)

// SimulationConfig defines the rolling-horizon run parameters.
type SimulationConfig struct {
	// Name labels the run in the results store.
	Name string `json:"name"`
	// Steps is the number of rolling-horizon windows to execute.
	Steps int `json:"steps"`
	// WindowSteps is the number of timesteps per window.
	WindowSteps int `json:"window_steps"`
	// ResolutionMinutes is the timestep length.
	ResolutionMinutes int `json:"resolution_minutes"`
	// Start anchors the first window, RFC 3339.
	Start string `json:"start"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "simulation"
	}
	if c.Steps == 0 {
		c.Steps = 1
	}
	if c.WindowSteps == 0 {
		c.WindowSteps = 24
	}
	if c.ResolutionMinutes == 0 {
		c.ResolutionMinutes = 60
	}
}

// Validate checks mandatory fields.
func (c SimulationConfig) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("simulation steps must be positive")
	}
	if c.WindowSteps <= 0 {
		return fmt.Errorf("window steps must be positive")
	}
	if c.ResolutionMinutes <= 0 {
		return fmt.Errorf("resolution must be positive")
	}
	if c.Start == "" {
		return fmt.Errorf("simulation start is required")
	}
	if _, err := time.Parse(time.RFC3339, c.Start); err != nil {
		return fmt.Errorf("simulation start: %w", err)
	}
	return nil
}

// Window returns the step-0 window spec.
func (c SimulationConfig) Window() model.WindowSpec {
	start, _ := time.Parse(time.RFC3339, c.Start)
	return model.WindowSpec{
		Start:      start,
		Steps:      c.WindowSteps,
		Resolution: time.Duration(c.ResolutionMinutes) * time.Minute,
	}
}

// SolverConfig defines the optimizer stopping criteria.
type SolverConfig struct {
	// WallClockLimitSeconds bounds each step's solve. Zero disables.
	WallClockLimitSeconds int `json:"wall_clock_limit_seconds"`
	// RelativeGapTolerance stops the search at this proved gap.
	RelativeGapTolerance float64 `json:"relative_gap_tolerance"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.WallClockLimitSeconds == 0 {
		c.WallClockLimitSeconds = 300
	}
}

// Validate checks bounds.
func (c SolverConfig) Validate() error {
	if c.WallClockLimitSeconds < 0 {
		return fmt.Errorf("wall clock limit must not be negative")
	}
	if c.RelativeGapTolerance < 0 {
		return fmt.Errorf("gap tolerance must not be negative")
	}
	return nil
}

// Options returns the solver options.
func (c SolverConfig) Options() solver.Options {
	return solver.Options{
		WallClockLimit:       time.Duration(c.WallClockLimitSeconds) * time.Second,
		RelativeGapTolerance: c.RelativeGapTolerance,
	}
}

// ResultsConfig locates the results store.
type ResultsConfig struct {
	// Directory is the base directory holding one subdirectory per run.
	Directory string `json:"directory"`
}

// SetDefaults applies sane defaults.
func (c *ResultsConfig) SetDefaults() {
	if c.Directory == "" {
		c.Directory = "results"
	}
}

// Validate checks mandatory fields.
func (c ResultsConfig) Validate() error {
	if c.Directory == "" {
		return fmt.Errorf("results directory is required")
	}
	return nil
}
