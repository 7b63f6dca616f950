// Package template maps component categories to the mathematical
// formulation variant used when building a decision model. Templates
// have value semantics: a clone is fully independent and models built
// from a template never observe later mutations.
package template

import (
	"fmt"
	"sort"

	"github.com/gridworks/prodcost/core/model"
)

// Variant tags one formulation choice for a component category.
type Variant string

const (
	ThermalBasicDispatch         Variant = "thermal_basic_dispatch"
	ThermalUnitCommitment        Variant = "thermal_unit_commitment"
	RenewableFixedDispatch       Variant = "renewable_fixed_dispatch"
	RenewableCurtailableDispatch Variant = "renewable_curtailable_dispatch"
	StorageEnergyBalance         Variant = "storage_energy_balance"
)

// validVariants maps each variant to the category it formulates.
var validVariants = map[Variant]model.Category{
	ThermalBasicDispatch:         model.CategoryThermal,
	ThermalUnitCommitment:        model.CategoryThermal,
	RenewableFixedDispatch:       model.CategoryRenewableDispatch,
	RenewableCurtailableDispatch: model.CategoryRenewableDispatch,
	StorageEnergyBalance:         model.CategoryStorage,
}

// Parameters carries variant-specific tuning values, e.g. a curtailment
// penalty for curtailable renewables.
type Parameters map[string]float64

// Entry is one category's chosen formulation.
type Entry struct {
	Variant    Variant
	Parameters Parameters
}

// Template maps component categories to formulation entries. Categories
// without an entry are excluded from the optimization, never defaulted.
type Template struct {
	entries map[model.Category]Entry
}

// New returns an empty template.
func New() *Template {
	return &Template{entries: make(map[model.Category]Entry)}
}

// Set registers or overwrites the variant for a category. Whether the
// category actually has components is checked lazily at build time,
// since templates are assembled before being bound to data.
func (t *Template) Set(cat model.Category, v Variant, params Parameters) error {
	want, ok := validVariants[v]
	if !ok {
		return fmt.Errorf("unknown formulation variant %q", v)
	}
	if want != cat {
		return fmt.Errorf("variant %s formulates %s, not %s", v, want, cat)
	}
	var cp Parameters
	if params != nil {
		cp = make(Parameters, len(params))
		for k, val := range params {
			cp[k] = val
		}
	}
	t.entries[cat] = Entry{Variant: v, Parameters: cp}
	return nil
}

// Get returns the entry for a category.
func (t *Template) Get(cat model.Category) (Entry, bool) {
	e, ok := t.entries[cat]
	return e, ok
}

// Categories lists mapped categories in deterministic order.
func (t *Template) Categories() []model.Category {
	cats := make([]model.Category, 0, len(t.entries))
	for c := range t.entries {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// Clone produces an independent copy. Mutating the clone never alters
// decision models built from the original, and vice versa.
func (t *Template) Clone() *Template {
	out := New()
	for cat, e := range t.entries {
		var cp Parameters
		if e.Parameters != nil {
			cp = make(Parameters, len(e.Parameters))
			for k, v := range e.Parameters {
				cp[k] = v
			}
		}
		out.entries[cat] = Entry{Variant: e.Variant, Parameters: cp}
	}
	return out
}

// Param reads a parameter with a fallback default.
func (e Entry) Param(name string, def float64) float64 {
	if e.Parameters == nil {
		return def
	}
	if v, ok := e.Parameters[name]; ok {
		return v
	}
	return def
}
