package model

import "fmt"

// UnitBase selects the normalization convention for numeric power
// quantities exposed by a grid snapshot.
type UnitBase int

const (
	// NaturalUnits expresses quantities in MW/MWh as stored.
	NaturalUnits UnitBase = iota
	// DeviceBase expresses quantities per unit of the component's BaseMVA.
	DeviceBase
	// SystemBase expresses quantities per unit of the system base MVA.
	SystemBase
)

// String returns a human-readable representation of the unit base.
func (b UnitBase) String() string {
	switch b {
	case NaturalUnits:
		return "natural"
	case DeviceBase:
		return "device_base"
	case SystemBase:
		return "system_base"
	default:
		return "unknown"
	}
}

// UnitContext carries the unit base applied to every numeric accessor of
// one grid snapshot. It is immutable: changing the base of a live model
// produces a new context, and snapshots keep the context they were taken
// with. This replaces any hidden global unit state.
type UnitContext struct {
	Base          UnitBase
	SystemBaseMVA float64
}

// Validate checks that the context is usable for conversion.
func (u UnitContext) Validate() error {
	if u.Base == SystemBase && u.SystemBaseMVA <= 0 {
		return fmt.Errorf("system base MVA must be positive for system_base context")
	}
	return nil
}

// FromNatural converts a natural-unit (MW) quantity into the context's
// base for a device with the given BaseMVA.
func (u UnitContext) FromNatural(valueMW, deviceBaseMVA float64) float64 {
	switch u.Base {
	case DeviceBase:
		if deviceBaseMVA == 0 {
			return valueMW
		}
		return valueMW / deviceBaseMVA
	case SystemBase:
		if u.SystemBaseMVA == 0 {
			return valueMW
		}
		return valueMW / u.SystemBaseMVA
	default:
		return valueMW
	}
}

// ToNatural converts a quantity expressed in the context's base back to
// natural units (MW) for a device with the given BaseMVA.
func (u UnitContext) ToNatural(value, deviceBaseMVA float64) float64 {
	switch u.Base {
	case DeviceBase:
		if deviceBaseMVA == 0 {
			return value
		}
		return value * deviceBaseMVA
	case SystemBase:
		if u.SystemBaseMVA == 0 {
			return value
		}
		return value * u.SystemBaseMVA
	default:
		return value
	}
}
