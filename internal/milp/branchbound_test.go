package milp

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestBranchBoundKnapsack(t *testing.T) {
	// max 5a+4b+3c s.t. 2a+3b+c <= 4, binaries. Optimum is a+c = 8.
	m := NewModel()
	a := m.AddBinary("a")
	b := m.AddBinary("b")
	c := m.AddBinary("c")
	m.SetObjectiveCoef(a, -5)
	m.SetObjectiveCoef(b, -4)
	m.SetObjectiveCoef(c, -3)
	m.AddConstraint("w", []Term{{a, 2}, {b, 3}, {c, 1}}, LessEq, 4)

	res := NewBranchBound().Solve(context.Background(), m, 0, 0)
	if res.Status != StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}
	if math.Abs(res.Objective-(-8)) > 1e-6 {
		t.Fatalf("objective = %v, want -8", res.Objective)
	}
	if math.Abs(res.Values[a]-1) > intTol || math.Abs(res.Values[b]) > intTol || math.Abs(res.Values[c]-1) > intTol {
		t.Fatalf("assignment = %v, want a=1 b=0 c=1", res.Values)
	}
}

func TestBranchBoundMixed(t *testing.T) {
	// min x + 10*(1-z) s.t. x >= 3*z, continuous x and binary z.
	// Taking z=1 costs 3; z=0 costs 10. Optimum x=3, z=1.
	m := NewModel()
	x := m.AddVar(0, Inf(), "x")
	z := m.AddBinary("z")
	m.SetObjectiveCoef(x, 1)
	m.SetObjectiveCoef(z, -10)
	m.AddObjectiveOffset(10)
	m.AddConstraint("link", []Term{{x, 1}, {z, -3}}, GreaterEq, 0)

	res := NewBranchBound().Solve(context.Background(), m, 0, 0)
	if res.Status != StatusOptimal {
		t.Fatalf("status = %v, want optimal", res.Status)
	}
	if math.Abs(res.Objective-3) > 1e-6 {
		t.Fatalf("objective = %v, want 3", res.Objective)
	}
	if math.Abs(res.Values[z]-1) > intTol {
		t.Fatalf("z = %v, want 1", res.Values[z])
	}
}

func TestBranchBoundInfeasible(t *testing.T) {
	m := NewModel()
	a := m.AddBinary("a")
	b := m.AddBinary("b")
	m.AddConstraint("sum", []Term{{a, 1}, {b, 1}}, GreaterEq, 3)

	res := NewBranchBound().Solve(context.Background(), m, 0, 0)
	if res.Status != StatusInfeasible {
		t.Fatalf("status = %v, want infeasible", res.Status)
	}
	if res.HasAssignment() {
		t.Fatalf("infeasible result should carry no assignment")
	}
}

func TestBranchBoundUnbounded(t *testing.T) {
	m := NewModel()
	x := m.AddVar(0, Inf(), "x")
	m.SetObjectiveCoef(x, -1)

	res := NewBranchBound().Solve(context.Background(), m, 0, 0)
	if res.Status != StatusUnbounded {
		t.Fatalf("status = %v, want unbounded", res.Status)
	}
}

func TestBranchBoundDeadline(t *testing.T) {
	m := NewModel()
	a := m.AddBinary("a")
	m.SetObjectiveCoef(a, -1)

	res := NewBranchBound().Solve(context.Background(), m, time.Nanosecond, 0)
	if res.Status != StatusTimedOut {
		t.Fatalf("status = %v, want timed_out", res.Status)
	}
}

func TestBranchBoundCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewModel()
	m.AddBinary("a")

	res := NewBranchBound().Solve(ctx, m, 0, 0)
	if res.Status != StatusTimedOut {
		t.Fatalf("status = %v, want timed_out", res.Status)
	}
}

func TestBranchBoundDeterministic(t *testing.T) {
	build := func() *Model {
		m := NewModel()
		a := m.AddBinary("a")
		b := m.AddBinary("b")
		x := m.AddVar(0, Inf(), "x")
		m.SetObjectiveCoef(a, -2)
		m.SetObjectiveCoef(b, -3)
		m.SetObjectiveCoef(x, 1)
		m.AddConstraint("w", []Term{{a, 1}, {b, 1}, {x, 1}}, LessEq, 2)
		return m
	}
	r1 := NewBranchBound().Solve(context.Background(), build(), 0, 0)
	r2 := NewBranchBound().Solve(context.Background(), build(), 0, 0)
	if r1.Objective != r2.Objective || r1.Nodes != r2.Nodes {
		t.Fatalf("non-deterministic solve: %+v vs %+v", r1, r2)
	}
}
