package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"railnav/internal/milp"
)

// InfeasibleModelError means the solver proved global infeasibility. No
// recovery is attempted: with this formulation it signals a structural
// problem in the inputs, such as insufficient capacity out of an origin.
type InfeasibleModelError struct {
	Detail string
}

func (e *InfeasibleModelError) Error() string {
	if e.Detail == "" {
		return "optimization model is infeasible"
	}
	return "optimization model is infeasible: " + e.Detail
}

// SolverTimeoutError means the time budget elapsed before any feasible
// incumbent was found. When a timeout leaves a best-known assignment, Solve
// returns that assignment (validated, status preserved) instead of this
// error, and the caller decides whether to accept it or retry with a larger
// budget.
type SolverTimeoutError struct {
	Budget time.Duration
}

func (e *SolverTimeoutError) Error() string {
	return fmt.Sprintf("solver exceeded time budget %s with no feasible assignment", e.Budget)
}

// ErrUnbounded should be unreachable for this formulation: flows are capped
// by capacity and binaries by their bounds. Reported rather than swallowed.
var ErrUnbounded = errors.New("optimization model is unbounded")

// Solve runs the engine over the compiled model and validates the outcome,
// mapping termination statuses onto the error taxonomy. The call blocks for
// at most the budget; cancellation is cooperative via ctx. Timeouts are
// surfaced verbatim, never retried here.
func (m *Model) Solve(ctx context.Context, s milp.Solver, budget time.Duration, gapTol float64) (*Solution, error) {
	res := s.Solve(ctx, m.MILP, budget, gapTol)
	switch res.Status {
	case milp.StatusInfeasible:
		return nil, &InfeasibleModelError{}
	case milp.StatusUnbounded:
		return nil, ErrUnbounded
	case milp.StatusTimedOut:
		if !res.HasAssignment() {
			return nil, &SolverTimeoutError{Budget: budget}
		}
	}
	return m.Validate(res)
}
