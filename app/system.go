package app

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gridworks/prodcost/core/grid"
	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/core/template"
)

// systemFile is the on-disk description of a grid system: components,
// their attached series and the formulation choices per category.
type systemFile struct {
	Name       string            `json:"name"`
	SystemBase float64           `json:"system_base_mva"`
	Components []componentFile   `json:"components"`
	Series     []seriesFile      `json:"series"`
	Template   []formulationFile `json:"template"`
}

type componentFile struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Bus         string  `json:"bus"`
	Available   *bool   `json:"available"`
	MaxPowerMW  float64 `json:"max_power_mw"`
	MinPowerMW  float64 `json:"min_power_mw"`
	RampMWPerHr float64 `json:"ramp_mw_per_hour"`
	MinUpHours  float64 `json:"min_up_hours"`
	MinDownHrs  float64 `json:"min_down_hours"`
	BaseMVA     float64 `json:"base_mva"`
	VariableUSD float64 `json:"variable_cost"`
	NoLoadUSD   float64 `json:"no_load_cost"`
	StartupUSD  float64 `json:"startup_cost"`

	EnergyCapacityMWh float64 `json:"energy_capacity_mwh"`
	Efficiency        float64 `json:"efficiency"`
	InitialEnergyMWh  float64 `json:"initial_energy_mwh"`
}

// seriesFile describes one attached time series. Kind selects the
// representation: "single" (the default) carries one contiguous value
// run, "forecast" carries per-anchor window values resolved at lookup
// time.
type seriesFile struct {
	Component         string               `json:"component"`
	Name              string               `json:"name"`
	Kind              string               `json:"kind"`
	Start             time.Time            `json:"start"`
	ResolutionMinutes int                  `json:"resolution_minutes"`
	Values            []float64            `json:"values"`
	WindowLength      int                  `json:"window_length"`
	Windows           []forecastWindowFile `json:"windows"`
}

type forecastWindowFile struct {
	Anchor time.Time `json:"anchor"`
	Values []float64 `json:"values"`
}

type formulationFile struct {
	Category   string             `json:"category"`
	Variant    string             `json:"variant"`
	Parameters map[string]float64 `json:"parameters"`
}

// LoadSystem reads a grid system description and returns the populated
// grid model and formulation template.
func LoadSystem(path string) (*grid.Model, *template.Template, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read system file: %w", err)
	}
	var sf systemFile
	if err := json.Unmarshal(raw, &sf); err != nil {
		return nil, nil, fmt.Errorf("parse system file: %w", err)
	}
	name := sf.Name
	if name == "" {
		name = "system"
	}
	g := grid.NewModel(name)
	if sf.SystemBase > 0 {
		if err := g.SetUnitContext(model.UnitContext{Base: model.NaturalUnits, SystemBaseMVA: sf.SystemBase}); err != nil {
			return nil, nil, err
		}
	}

	for _, cf := range sf.Components {
		cat, err := model.ParseCategory(cf.Category)
		if err != nil {
			return nil, nil, fmt.Errorf("component %s: %w", cf.Name, err)
		}
		available := true
		if cf.Available != nil {
			available = *cf.Available
		}
		c := model.Component{
			Name:      cf.Name,
			Category:  cat,
			Bus:       cf.Bus,
			Available: available,
			Ratings: model.Ratings{
				MaxActivePowerMW: cf.MaxPowerMW,
				MinActivePowerMW: cf.MinPowerMW,
				RampLimitMWPerHr: cf.RampMWPerHr,
				MinUpHours:       cf.MinUpHours,
				MinDownHours:     cf.MinDownHrs,
				BaseMVA:          cf.BaseMVA,
				VariableCost:     cf.VariableUSD,
				NoLoadCost:       cf.NoLoadUSD,
				StartupCost:      cf.StartupUSD,
			},
			Storage: model.StorageRatings{
				EnergyCapacityMWh: cf.EnergyCapacityMWh,
				Efficiency:        cf.Efficiency,
				InitialEnergyMWh:  cf.InitialEnergyMWh,
			},
		}
		if err := g.AddComponent(c); err != nil {
			return nil, nil, err
		}
	}

	for _, s := range sf.Series {
		ts, err := buildSeries(s)
		if err != nil {
			return nil, nil, fmt.Errorf("series %s/%s: %w", s.Component, s.Name, err)
		}
		if err := g.AttachTimeSeries(s.Component, s.Name, ts); err != nil {
			return nil, nil, err
		}
	}

	tmpl := template.New()
	for _, f := range sf.Template {
		cat, err := model.ParseCategory(f.Category)
		if err != nil {
			return nil, nil, fmt.Errorf("template entry: %w", err)
		}
		if err := tmpl.Set(cat, template.Variant(f.Variant), f.Parameters); err != nil {
			return nil, nil, err
		}
	}
	return g, tmpl, nil
}

func buildSeries(s seriesFile) (grid.TimeSeries, error) {
	resolution := time.Duration(s.ResolutionMinutes) * time.Minute
	switch s.Kind {
	case "", "single":
		return grid.NewSingleTimeSeries(s.Start, resolution, s.Values)
	case "forecast":
		ts, err := grid.NewDeterministic(resolution, s.WindowLength)
		if err != nil {
			return nil, err
		}
		for _, w := range s.Windows {
			if err := ts.AddWindow(w.Anchor, w.Values); err != nil {
				return nil, err
			}
		}
		return ts, nil
	default:
		return nil, fmt.Errorf("unknown series kind %q", s.Kind)
	}
}
