// Package results persists per-step simulation outputs on the local
// filesystem: one directory per named run holding a manifest and an
// append-only JSONL step log.
package results

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gridworks/prodcost/core/analytics"
	"github.com/gridworks/prodcost/core/model"
)

const (
	manifestFile = "manifest.json"
	stepsFile    = "steps.jsonl"
)

type manifest struct {
	RunName string    `json:"run_name"`
	RunID   string    `json:"run_id"`
	Created time.Time `json:"created"`
}

// Store writes one run's step results. It is bound to a single run
// identity at creation; a run directory is never shared between runs.
type Store struct {
	mu    sync.Mutex
	dir   string
	runID string
	name  string
}

// NewStore creates the run directory and manifest. It fails if the run
// directory already exists, so results of distinct runs are never
// merged silently.
func NewStore(baseDir, runName, runID string) (*Store, error) {
	if runName == "" || runID == "" {
		return nil, fmt.Errorf("results store requires a run name and id")
	}
	dir := filepath.Join(baseDir, runName)
	if _, err := os.Stat(dir); err == nil {
		return nil, fmt.Errorf("run directory %s already exists", dir)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	m := manifest{RunName: runName, RunID: runID, Created: time.Now().UTC()}
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), raw, 0o644); err != nil {
		return nil, err
	}
	return &Store{dir: dir, runID: runID, name: runName}, nil
}

// Persist implements the orchestrator's results sink: it appends the
// step record to the run's JSONL log.
func (s *Store) Persist(step int, table *model.ResultsTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := analytics.StepRecord{
		Step:              step,
		RunID:             s.runID,
		WindowStart:       table.Window.Start,
		WindowSteps:       table.Window.Steps,
		ResolutionSeconds: int(table.Window.Resolution.Seconds()),
		Results:           table,
	}
	f, err := os.OpenFile(filepath.Join(s.dir, stepsFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(rec)
}

// Dir returns the run directory.
func (s *Store) Dir() string { return s.dir }

// LoadAll scans a results directory and returns every persisted run's
// collection keyed by run name, steps sorted in execution order.
func LoadAll(baseDir string) (map[string]analytics.Collection, error) {
	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, err
	}
	out := make(map[string]analytics.Collection)
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		c, err := loadRun(filepath.Join(baseDir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", e.Name(), err)
		}
		out[c.Name] = c
	}
	return out, nil
}

func loadRun(dir string) (analytics.Collection, error) {
	var c analytics.Collection
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return c, err
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return c, err
	}
	c.Name = m.RunName
	c.RunID = m.RunID

	f, err := os.Open(filepath.Join(dir, stepsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil // run created but no step persisted
		}
		return c, err
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		var rec analytics.StepRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return c, fmt.Errorf("corrupt step record: %w", err)
		}
		if rec.RunID != m.RunID {
			return c, fmt.Errorf("step %d belongs to run %s, manifest says %s", rec.Step, rec.RunID, m.RunID)
		}
		if rec.Results != nil {
			rec.Results.Window = model.WindowSpec{
				Start:      rec.WindowStart,
				Steps:      rec.WindowSteps,
				Resolution: time.Duration(rec.ResolutionSeconds) * time.Second,
			}
		}
		c.Steps = append(c.Steps, rec)
	}
	if err := scanner.Err(); err != nil {
		return c, err
	}
	sort.Slice(c.Steps, func(i, j int) bool { return c.Steps[i].Step < c.Steps[j].Step })
	return c, nil
}
