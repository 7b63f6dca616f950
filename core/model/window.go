package model

import (
	"fmt"
	"time"
)

// WindowSpec identifies one optimization window: a start timestamp, a
// number of steps and the resolution between them.
type WindowSpec struct {
	Start      time.Time
	Steps      int
	Resolution time.Duration
}

// Validate checks the window is well formed.
func (w WindowSpec) Validate() error {
	if w.Steps <= 0 {
		return fmt.Errorf("window steps must be positive")
	}
	if w.Resolution <= 0 {
		return fmt.Errorf("window resolution must be positive")
	}
	if w.Start.IsZero() {
		return fmt.Errorf("window start is required")
	}
	return nil
}

// End returns the timestamp one resolution past the last step.
func (w WindowSpec) End() time.Time {
	return w.Start.Add(time.Duration(w.Steps) * w.Resolution)
}

// Timestamps lists the timestamp of every step in order.
func (w WindowSpec) Timestamps() []time.Time {
	ts := make([]time.Time, w.Steps)
	for i := 0; i < w.Steps; i++ {
		ts[i] = w.Start.Add(time.Duration(i) * w.Resolution)
	}
	return ts
}

// Advance returns the window shifted forward by its own full length,
// producing the adjacent next rolling-horizon window.
func (w WindowSpec) Advance() WindowSpec {
	return WindowSpec{Start: w.End(), Steps: w.Steps, Resolution: w.Resolution}
}

// StepHours is the duration of one step expressed in hours, used to
// convert between power and energy.
func (w WindowSpec) StepHours() float64 {
	return w.Resolution.Hours()
}
