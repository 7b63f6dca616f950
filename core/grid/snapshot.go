package grid

import (
	"fmt"

	"github.com/gridworks/prodcost/core/model"
)

// Snapshot is an immutable view of a grid model taken at a point in
// time. It carries the unit context that was active when it was taken;
// every numeric accessor converts through that context.
type Snapshot struct {
	name       string
	units      model.UnitContext
	components map[model.Category][]model.Component
	series     map[string]map[string]TimeSeries
}

// Name returns the originating model name.
func (s *Snapshot) Name() string { return s.name }

// UnitContext returns the frozen unit context.
func (s *Snapshot) UnitContext() model.UnitContext { return s.units }

// Components returns the snapshot's components of a category, sorted by
// name. The returned slice must not be mutated.
func (s *Snapshot) Components(cat model.Category) []model.Component {
	return s.components[cat]
}

// Component looks up one component by category and name.
func (s *Snapshot) Component(cat model.Category, name string) (model.Component, error) {
	for _, c := range s.components[cat] {
		if c.Name == name {
			return c, nil
		}
	}
	return model.Component{}, fmt.Errorf("no component %s/%s in snapshot", cat, name)
}

// Categories lists every category that has at least one component.
func (s *Snapshot) Categories() []model.Category {
	cats := make([]model.Category, 0, len(s.components))
	for cat, list := range s.components {
		if len(list) > 0 {
			cats = append(cats, cat)
		}
	}
	return cats
}

// TimeSeries resolves a component's series over a window. Values are
// returned in the snapshot's unit base, like every other numeric
// accessor.
func (s *Snapshot) TimeSeries(component, seriesName string, spec model.WindowSpec) ([]float64, error) {
	ts, ok := s.series[component][seriesName]
	if !ok {
		return nil, fmt.Errorf("%w: component %s has no series %s",
			model.ErrWindowDataMissing, component, seriesName)
	}
	vals, err := ts.Window(spec)
	if err != nil {
		return nil, err
	}
	if s.units.Base != model.NaturalUnits {
		base := s.deviceBase(component)
		for i, v := range vals {
			vals[i] = s.units.FromNatural(v, base)
		}
	}
	return vals, nil
}

func (s *Snapshot) deviceBase(component string) float64 {
	for _, list := range s.components {
		for _, c := range list {
			if c.Name == component {
				return c.Ratings.BaseMVA
			}
		}
	}
	return 0
}

// MaxActivePower returns a component's upper dispatch limit expressed in
// the snapshot's unit base.
func (s *Snapshot) MaxActivePower(c model.Component) float64 {
	return s.units.FromNatural(c.Ratings.MaxActivePowerMW, c.Ratings.BaseMVA)
}

// MinActivePower returns a component's lower stable level expressed in
// the snapshot's unit base.
func (s *Snapshot) MinActivePower(c model.Component) float64 {
	return s.units.FromNatural(c.Ratings.MinActivePowerMW, c.Ratings.BaseMVA)
}

// RampLimit returns a component's per-hour ramp limit expressed in the
// snapshot's unit base.
func (s *Snapshot) RampLimit(c model.Component) float64 {
	return s.units.FromNatural(c.Ratings.RampLimitMWPerHr, c.Ratings.BaseMVA)
}

// EnergyCapacity returns a storage component's energy capacity expressed
// in the snapshot's unit base.
func (s *Snapshot) EnergyCapacity(c model.Component) float64 {
	return s.units.FromNatural(c.Storage.EnergyCapacityMWh, c.Ratings.BaseMVA)
}

// InitialEnergy returns a storage component's initial stored energy
// expressed in the snapshot's unit base.
func (s *Snapshot) InitialEnergy(c model.Component) float64 {
	return s.units.FromNatural(c.Storage.InitialEnergyMWh, c.Ratings.BaseMVA)
}
