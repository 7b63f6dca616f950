package model

import "sort"

// ConditionKind names the piece of state an initial condition carries.
type ConditionKind int

const (
	ConditionOnStatus ConditionKind = iota
	ConditionActivePower
	ConditionUpTimeHours
	ConditionDownTimeHours
	ConditionStateOfCharge
)

// String returns a human-readable representation of the condition kind.
func (k ConditionKind) String() string {
	switch k {
	case ConditionOnStatus:
		return "on_status"
	case ConditionActivePower:
		return "active_power"
	case ConditionUpTimeHours:
		return "up_time_hours"
	case ConditionDownTimeHours:
		return "down_time_hours"
	case ConditionStateOfCharge:
		return "state_of_charge"
	default:
		return "unknown"
	}
}

// InitialCondition is a named value attached to one component that must
// be supplied when building the next window's decision model.
type InitialCondition struct {
	Component string
	Kind      ConditionKind
	Value     float64
}

// InitialConditionSet holds the conditions seeding one window, keyed by
// component and kind.
type InitialConditionSet struct {
	conditions map[string]map[ConditionKind]float64
}

// NewInitialConditionSet returns an empty set.
func NewInitialConditionSet() *InitialConditionSet {
	return &InitialConditionSet{conditions: make(map[string]map[ConditionKind]float64)}
}

// Set records the value for a component/kind pair, overwriting any
// previous value.
func (s *InitialConditionSet) Set(component string, kind ConditionKind, value float64) {
	m, ok := s.conditions[component]
	if !ok {
		m = make(map[ConditionKind]float64)
		s.conditions[component] = m
	}
	m[kind] = value
}

// Get returns the value for a component/kind pair.
func (s *InitialConditionSet) Get(component string, kind ConditionKind) (float64, bool) {
	if s == nil {
		return 0, false
	}
	m, ok := s.conditions[component]
	if !ok {
		return 0, false
	}
	v, ok := m[kind]
	return v, ok
}

// Len reports the number of stored conditions.
func (s *InitialConditionSet) Len() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, m := range s.conditions {
		n += len(m)
	}
	return n
}

// List returns all conditions sorted by component name then kind, so two
// sets holding the same values always enumerate identically.
func (s *InitialConditionSet) List() []InitialCondition {
	if s == nil {
		return nil
	}
	out := make([]InitialCondition, 0, s.Len())
	for comp, m := range s.conditions {
		for kind, v := range m {
			out = append(out, InitialCondition{Component: comp, Kind: kind, Value: v})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Component != out[j].Component {
			return out[i].Component < out[j].Component
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
