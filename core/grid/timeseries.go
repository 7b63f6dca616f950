package grid

import (
	"fmt"
	"time"

	"github.com/gridworks/prodcost/core/model"
)

// TimeSeries resolves values over a requested window. Implementations
// must return exactly one value per step or an error; partial coverage
// is never truncated silently.
type TimeSeries interface {
	// Window resolves the realized values for every step of the spec.
	Window(spec model.WindowSpec) ([]float64, error)
	// Resolution reports the native sample spacing of the series.
	Resolution() time.Duration
}

// SingleTimeSeries is one continuous sequence of samples spanning the
// full horizon at a fixed resolution.
type SingleTimeSeries struct {
	start      time.Time
	resolution time.Duration
	values     []float64
}

// NewSingleTimeSeries builds a continuous series anchored at start.
func NewSingleTimeSeries(start time.Time, resolution time.Duration, values []float64) (*SingleTimeSeries, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("series resolution must be positive")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("series must contain at least one value")
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	return &SingleTimeSeries{start: start, resolution: resolution, values: cp}, nil
}

// Resolution implements TimeSeries.
func (s *SingleTimeSeries) Resolution() time.Duration { return s.resolution }

// Window implements TimeSeries. The requested window must align with the
// sample grid and lie fully inside the stored horizon.
func (s *SingleTimeSeries) Window(spec model.WindowSpec) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Resolution != s.resolution {
		return nil, fmt.Errorf("%w: requested resolution %s, series resolution %s",
			model.ErrWindowDataMissing, spec.Resolution, s.resolution)
	}
	offset := spec.Start.Sub(s.start)
	if offset < 0 || offset%s.resolution != 0 {
		return nil, fmt.Errorf("%w: window start %s not on series grid anchored at %s",
			model.ErrWindowDataMissing, spec.Start.Format(time.RFC3339), s.start.Format(time.RFC3339))
	}
	first := int(offset / s.resolution)
	if first+spec.Steps > len(s.values) {
		return nil, fmt.Errorf("%w: window needs samples [%d,%d), series holds %d",
			model.ErrWindowDataMissing, first, first+spec.Steps, len(s.values))
	}
	out := make([]float64, spec.Steps)
	copy(out, s.values[first:first+spec.Steps])
	return out, nil
}

// Deterministic is a collection of overlapping forecast windows, each a
// fixed-length value sequence anchored at its issue time.
type Deterministic struct {
	resolution time.Duration
	length     int
	windows    map[time.Time][]float64
}

// NewDeterministic builds an empty forecast collection with the given
// per-window length and resolution.
func NewDeterministic(resolution time.Duration, length int) (*Deterministic, error) {
	if resolution <= 0 {
		return nil, fmt.Errorf("forecast resolution must be positive")
	}
	if length <= 0 {
		return nil, fmt.Errorf("forecast window length must be positive")
	}
	return &Deterministic{
		resolution: resolution,
		length:     length,
		windows:    make(map[time.Time][]float64),
	}, nil
}

// AddWindow registers the forecast issued at anchor. The value count
// must match the collection's window length.
func (d *Deterministic) AddWindow(anchor time.Time, values []float64) error {
	if len(values) != d.length {
		return fmt.Errorf("forecast window at %s has %d values, want %d",
			anchor.Format(time.RFC3339), len(values), d.length)
	}
	cp := make([]float64, len(values))
	copy(cp, values)
	d.windows[anchor.UTC()] = cp
	return nil
}

// Resolution implements TimeSeries.
func (d *Deterministic) Resolution() time.Duration { return d.resolution }

// Window implements TimeSeries. The spec must match a stored anchor
// exactly and fit within one forecast window; gaps are an error.
func (d *Deterministic) Window(spec model.WindowSpec) ([]float64, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	if spec.Resolution != d.resolution {
		return nil, fmt.Errorf("%w: requested resolution %s, forecast resolution %s",
			model.ErrWindowDataMissing, spec.Resolution, d.resolution)
	}
	w, ok := d.windows[spec.Start.UTC()]
	if !ok {
		return nil, fmt.Errorf("%w: no forecast window anchored at %s",
			model.ErrWindowDataMissing, spec.Start.Format(time.RFC3339))
	}
	if spec.Steps > len(w) {
		return nil, fmt.Errorf("%w: window wants %d steps, forecast holds %d",
			model.ErrWindowDataMissing, spec.Steps, len(w))
	}
	out := make([]float64, spec.Steps)
	copy(out, w[:spec.Steps])
	return out, nil
}
