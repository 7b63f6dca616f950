package grid

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gridworks/prodcost/core/model"
	"github.com/gridworks/prodcost/infra/logger"
)

// Model is the live, mutable grid data model: components, their
// attached time series and the current unit context. All access is
// mutex-guarded; decision models never read the live model directly,
// they read immutable snapshots.
type Model struct {
	mu         sync.RWMutex
	name       string
	components map[model.Category]map[string]*model.Component
	series     map[string]map[string]TimeSeries // component -> series name
	units      model.UnitContext
	log        logger.Logger
}

// NewModel returns an empty grid model in natural units.
func NewModel(name string) *Model {
	return &Model{
		name:       name,
		components: make(map[model.Category]map[string]*model.Component),
		series:     make(map[string]map[string]TimeSeries),
		units:      model.UnitContext{Base: model.NaturalUnits},
		log:        logger.New("grid-model"),
	}
}

// Name returns the model name.
func (g *Model) Name() string { return g.name }

// AddComponent registers a component. Names must be unique within a
// category.
func (g *Model) AddComponent(c model.Component) error {
	if err := c.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	byName, ok := g.components[c.Category]
	if !ok {
		byName = make(map[string]*model.Component)
		g.components[c.Category] = byName
	}
	if _, exists := byName[c.Name]; exists {
		return fmt.Errorf("component %s/%s already exists", c.Category, c.Name)
	}
	cp := c
	byName[c.Name] = &cp
	return nil
}

// GetComponents returns the components of a category sorted by name.
func (g *Model) GetComponents(cat model.Category) []model.Component {
	g.mu.RLock()
	defer g.mu.RUnlock()
	byName := g.components[cat]
	out := make([]model.Component, 0, len(byName))
	for _, c := range byName {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// GetComponent looks up one component by category and name.
func (g *Model) GetComponent(cat model.Category, name string) (model.Component, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	c, ok := g.components[cat][name]
	if !ok {
		return model.Component{}, fmt.Errorf("no component %s/%s", cat, name)
	}
	return *c, nil
}

// AttachTimeSeries binds a series to a component under the given name.
func (g *Model) AttachTimeSeries(component string, seriesName string, ts TimeSeries) error {
	if ts == nil {
		return fmt.Errorf("nil time series for %s/%s", component, seriesName)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	byName, ok := g.series[component]
	if !ok {
		byName = make(map[string]TimeSeries)
		g.series[component] = byName
	}
	byName[seriesName] = ts
	return nil
}

// GetTimeSeries resolves a component's series over a window.
func (g *Model) GetTimeSeries(component, seriesName string, spec model.WindowSpec) ([]float64, error) {
	g.mu.RLock()
	ts, ok := g.series[component][seriesName]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: component %s has no series %s",
			model.ErrWindowDataMissing, component, seriesName)
	}
	return ts.Window(spec)
}

// SetAvailable toggles a component's availability flag. The change is
// visible only to snapshots taken afterwards.
func (g *Model) SetAvailable(cat model.Category, name string, available bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.components[cat][name]
	if !ok {
		return fmt.Errorf("no component %s/%s", cat, name)
	}
	c.Available = available
	g.log.Debugw("availability changed", map[string]any{
		"component": name, "category": cat.String(), "available": available,
	})
	return nil
}

// SetUnitContext switches the unit base for the whole model atomically.
func (g *Model) SetUnitContext(u model.UnitContext) error {
	if err := u.Validate(); err != nil {
		return err
	}
	g.mu.Lock()
	g.units = u
	g.mu.Unlock()
	return nil
}

// UnitContext returns the current unit context.
func (g *Model) UnitContext() model.UnitContext {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.units
}

// Snapshot produces an immutable deep copy of the model's components and
// series bindings, frozen at the current unit context. Later mutations
// of the live model never reach an existing snapshot.
func (g *Model) Snapshot() *Snapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	snap := &Snapshot{
		name:       g.name,
		units:      g.units,
		components: make(map[model.Category][]model.Component, len(g.components)),
		series:     make(map[string]map[string]TimeSeries, len(g.series)),
	}
	for cat, byName := range g.components {
		list := make([]model.Component, 0, len(byName))
		for _, c := range byName {
			cp := *c
			if c.TimeSeriesNames != nil {
				cp.TimeSeriesNames = make(map[string]string, len(c.TimeSeriesNames))
				for k, v := range c.TimeSeriesNames {
					cp.TimeSeriesNames[k] = v
				}
			}
			list = append(list, cp)
		}
		sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
		snap.components[cat] = list
	}
	// Series objects are append-only after attachment, sharing them
	// between snapshots is safe.
	for comp, byName := range g.series {
		m := make(map[string]TimeSeries, len(byName))
		for k, v := range byName {
			m[k] = v
		}
		snap.series[comp] = m
	}
	return snap
}
