package grid

import (
	"errors"
	"testing"
	"time"

	"github.com/gridworks/prodcost/core/model"
)

var anchor = time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

func TestSingleTimeSeriesWindow(t *testing.T) {
	ts, err := NewSingleTimeSeries(anchor, time.Hour, []float64{1, 2, 3, 4, 5, 6})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	got, err := ts.Window(model.WindowSpec{Start: anchor.Add(2 * time.Hour), Steps: 3, Resolution: time.Hour})
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	want := []float64{3, 4, 5}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("step %d: got %v want %v", i, got[i], v)
		}
	}
}

func TestSingleTimeSeriesMissingCoverage(t *testing.T) {
	ts, _ := NewSingleTimeSeries(anchor, time.Hour, []float64{1, 2, 3})
	cases := []model.WindowSpec{
		{Start: anchor.Add(2 * time.Hour), Steps: 2, Resolution: time.Hour},  // overruns the horizon
		{Start: anchor.Add(-time.Hour), Steps: 1, Resolution: time.Hour},     // before the anchor
		{Start: anchor.Add(30 * time.Minute), Steps: 1, Resolution: time.Hour}, // off the grid
		{Start: anchor, Steps: 2, Resolution: 30 * time.Minute},              // wrong resolution
	}
	for i, spec := range cases {
		if _, err := ts.Window(spec); !errors.Is(err, model.ErrWindowDataMissing) {
			t.Fatalf("case %d: expected ErrWindowDataMissing, got %v", i, err)
		}
	}
}

func TestDeterministicForecastWindows(t *testing.T) {
	d, err := NewDeterministic(time.Hour, 4)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := d.AddWindow(anchor, []float64{1, 2, 3, 4}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := d.AddWindow(anchor.Add(2*time.Hour), []float64{30, 40, 50, 60}); err != nil {
		t.Fatalf("add overlapping: %v", err)
	}

	got, err := d.Window(model.WindowSpec{Start: anchor.Add(2 * time.Hour), Steps: 2, Resolution: time.Hour})
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	if got[0] != 30 || got[1] != 40 {
		t.Fatalf("got %v", got)
	}

	if _, err := d.Window(model.WindowSpec{Start: anchor.Add(time.Hour), Steps: 2, Resolution: time.Hour}); !errors.Is(err, model.ErrWindowDataMissing) {
		t.Fatalf("expected ErrWindowDataMissing for unanchored window, got %v", err)
	}
	if _, err := d.Window(model.WindowSpec{Start: anchor, Steps: 5, Resolution: time.Hour}); !errors.Is(err, model.ErrWindowDataMissing) {
		t.Fatalf("expected ErrWindowDataMissing for long window, got %v", err)
	}
	if err := d.AddWindow(anchor, []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
