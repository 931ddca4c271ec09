package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"railnav/internal/milp"
)

func TestSolvePipeline(t *testing.T) {
	m := twoYardModel(t, 100)
	sol, err := m.Solve(context.Background(), milp.NewBranchBound(), time.Minute, 0)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if !sol.Satisfied[0] {
		t.Fatal("demand should be satisfied")
	}
	if sol.Status != milp.StatusOptimal {
		t.Fatalf("status = %v, want optimal", sol.Status)
	}
}

func TestSolveTimeoutWithoutIncumbent(t *testing.T) {
	m := twoYardModel(t, 100)
	_, err := m.Solve(context.Background(), milp.NewBranchBound(), time.Nanosecond, 0)
	var tErr *SolverTimeoutError
	if !errors.As(err, &tErr) {
		t.Fatalf("err = %v, want SolverTimeoutError", err)
	}
}

// stubSolver returns a canned result, standing in for a swapped-in engine.
type stubSolver struct {
	res milp.Result
}

func (s stubSolver) Solve(context.Context, *milp.Model, time.Duration, float64) milp.Result {
	return s.res
}

func TestSolveMapsInfeasible(t *testing.T) {
	m := twoYardModel(t, 100)
	_, err := m.Solve(context.Background(), stubSolver{milp.Result{Status: milp.StatusInfeasible}}, 0, 0)
	var iErr *InfeasibleModelError
	if !errors.As(err, &iErr) {
		t.Fatalf("err = %v, want InfeasibleModelError", err)
	}
}

func TestSolveMapsUnbounded(t *testing.T) {
	m := twoYardModel(t, 100)
	_, err := m.Solve(context.Background(), stubSolver{milp.Result{Status: milp.StatusUnbounded}}, 0, 0)
	if !errors.Is(err, ErrUnbounded) {
		t.Fatalf("err = %v, want ErrUnbounded", err)
	}
}

func TestSolveValidatesTimedOutIncumbent(t *testing.T) {
	// A best-known assignment returned on timeout still passes through
	// the validator before being trusted.
	m := twoYardModel(t, 100)
	res := assignment(m, 50, 1)
	res.Status = milp.StatusTimedOut
	sol, err := m.Solve(context.Background(), stubSolver{res}, 0, 0)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if sol.Status != milp.StatusTimedOut {
		t.Fatalf("status = %v, want timed_out", sol.Status)
	}

	// And a bogus incumbent is rejected, not silently accepted.
	bad := assignment(m, 30, 1)
	bad.Status = milp.StatusTimedOut
	if _, err := m.Solve(context.Background(), stubSolver{bad}, 0, 0); err == nil {
		t.Fatal("invalid timed-out incumbent must fail validation")
	}
}
