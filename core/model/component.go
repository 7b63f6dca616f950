package model

import (
	"fmt"
	"strings"
)

// Category classifies a grid component for formulation selection.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryThermal
	CategoryRenewableDispatch
	CategoryStorage
	CategoryLoad
	CategoryBus
)

// String returns a human-readable representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryThermal:
		return "Thermal"
	case CategoryRenewableDispatch:
		return "RenewableDispatch"
	case CategoryStorage:
		return "Storage"
	case CategoryLoad:
		return "Load"
	case CategoryBus:
		return "Bus"
	default:
		return "unknown"
	}
}

// ParseCategory maps a case-insensitive name to a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(s) {
	case "thermal":
		return CategoryThermal, nil
	case "renewabledispatch", "renewable":
		return CategoryRenewableDispatch, nil
	case "storage":
		return CategoryStorage, nil
	case "load":
		return CategoryLoad, nil
	case "bus":
		return CategoryBus, nil
	default:
		return CategoryUnknown, fmt.Errorf("unknown category %q", s)
	}
}

// Ratings holds the static operating limits and cost data of a component.
// All power quantities are stored in natural units (MW); accessors on a
// snapshot convert according to its unit context.
type Ratings struct {
	MaxActivePowerMW float64 // upper dispatch limit
	MinActivePowerMW float64 // lower stable level when committed
	RampLimitMWPerHr float64 // symmetric up/down ramp limit, 0 means unconstrained
	MinUpHours       float64 // minimum time online after a start
	MinDownHours     float64 // minimum time offline after a stop
	BaseMVA          float64 // device base for per-unit conversion

	VariableCost float64 // $/MWh produced
	NoLoadCost   float64 // $/h while committed
	StartupCost  float64 // $ per start
}

// StorageRatings extends Ratings for energy-limited devices.
type StorageRatings struct {
	EnergyCapacityMWh float64
	Efficiency        float64 // one-way efficiency in (0, 1]
	InitialEnergyMWh  float64
}

// Component is one grid device: a thermal unit, a renewable unit, a
// storage unit, a load or a bus. Time-varying data lives in the grid
// model's time-series store, referenced here by series name.
type Component struct {
	Name      string
	Category  Category
	Bus       string
	Available bool
	Ratings   Ratings
	Storage   StorageRatings

	// TimeSeriesNames binds logical series roles (e.g. "max_active_power")
	// to the names under which they are attached in the grid model.
	TimeSeriesNames map[string]string
}

// Validate checks that the component definition is sound.
func (c Component) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("component name is required")
	}
	if c.Category == CategoryUnknown {
		return fmt.Errorf("component %s: category is required", c.Name)
	}
	if c.Ratings.MaxActivePowerMW < 0 {
		return fmt.Errorf("component %s: negative max active power", c.Name)
	}
	if c.Ratings.MinActivePowerMW > c.Ratings.MaxActivePowerMW {
		return fmt.Errorf("component %s: min active power above max", c.Name)
	}
	if c.Category == CategoryStorage {
		if c.Storage.EnergyCapacityMWh <= 0 {
			return fmt.Errorf("component %s: storage capacity must be positive", c.Name)
		}
		if c.Storage.Efficiency <= 0 || c.Storage.Efficiency > 1 {
			return fmt.Errorf("component %s: efficiency must be in (0,1]", c.Name)
		}
	}
	return nil
}

// SeriesName resolves the attached series name for a logical role,
// falling back to the role itself when no binding exists.
func (c Component) SeriesName(role string) string {
	if c.TimeSeriesNames != nil {
		if n, ok := c.TimeSeriesNames[role]; ok {
			return n
		}
	}
	return role
}
