package milp

import (
	"context"
	"time"
)

// Status is the termination status reported by a solving engine.
type Status int

const (
	StatusOptimal Status = iota
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Result is the outcome of a solve call. Values is nil when no assignment is
// known (infeasible, unbounded, or a timeout before the first incumbent).
type Result struct {
	Status    Status
	Values    []float64
	Objective float64
	// Gap is the relative optimality gap of the incumbent. Zero for
	// proven-optimal results.
	Gap float64
	// Nodes and LPIterations describe the search effort.
	Nodes        int
	LPIterations int
}

// HasAssignment reports whether the result carries a usable variable
// assignment.
func (r Result) HasAssignment() bool {
	return len(r.Values) > 0
}

// Solver is the contract every engine implements. Calls are synchronous; the
// engine must respect the time budget and the context, returning
// StatusTimedOut with the best-known incumbent (or none) rather than blocking.
// Engines never inspect anything beyond the Model abstraction, so they are
// interchangeable behind this interface.
type Solver interface {
	Solve(ctx context.Context, m *Model, budget time.Duration, gapTol float64) Result
}
