package simulation

import "github.com/gridworks/prodcost/core/model"

// StepBuilt is published after a step's decision model is assembled.
type StepBuilt struct {
	Run   string
	Step  int
	Stats model.BuildStats
}

// StepSolved is published after a step's solve succeeds and its results
// are persisted.
type StepSolved struct {
	Run   string
	Step  int
	Stats model.SolveStats
}

// StepFailed is published when a build or solve halts the run. BestBound
// carries the best feasible objective bound found before the failure,
// when one exists.
type StepFailed struct {
	Run       string
	Step      int
	Err       error
	BestBound float64
}

// RunCompleted is published once every step has been solved and
// persisted.
type RunCompleted struct {
	Run       string
	Steps     int
	TotalCost float64
}
