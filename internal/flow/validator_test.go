package flow

import (
	"errors"
	"testing"

	"railnav/internal/milp"
	"railnav/internal/network"
)

func twoYardModel(t *testing.T, capacity float64) *Model {
	t.Helper()
	n := mustNetwork(t,
		[]network.Yard{{ID: "A", Status: network.StatusActive}, {ID: "B", Status: network.StatusActive}},
		[]network.Edge{{From: "A", To: "B", Capacity: capacity, BaseCost: 10}},
	)
	m, err := Build(n, []Demand{{Origin: "A", Destination: "B", Quantity: 50, Commodity: network.Coal, Weight: 1}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return m
}

// assignment builds a raw result with flow f and binary z for the two-yard
// single-demand model.
func assignment(m *Model, f, z float64) milp.Result {
	vals := make([]float64, m.MILP.NumVars())
	vals[m.FlowVar(0, 0)] = f
	vals[m.SatVar(0)] = z
	return milp.Result{Status: milp.StatusOptimal, Values: vals, Objective: 10 * f}
}

func TestValidateAcceptsNearIntegerBinary(t *testing.T) {
	m := twoYardModel(t, 100)
	// Solver slack on the binary is tolerated and rounded.
	sol, err := m.Validate(assignment(m, 50, 0.999997))
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !sol.Satisfied[0] {
		t.Fatal("z=0.999997 should round to satisfied")
	}
}

func TestValidateRejectsFractionalBinary(t *testing.T) {
	m := twoYardModel(t, 100)
	_, err := m.Validate(assignment(m, 25, 0.5))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Kind != "binary" {
		t.Fatalf("err = %v, want binary ValidationError", err)
	}
}

func TestValidateRejectsPhantomFlow(t *testing.T) {
	// Flow without the binary set violates coupling (and balance).
	m := twoYardModel(t, 100)
	_, err := m.Validate(assignment(m, 30, 0))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestValidateRejectsPartialFulfilment(t *testing.T) {
	// z=1 requires the full 50 units.
	m := twoYardModel(t, 100)
	_, err := m.Validate(assignment(m, 30, 1))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Kind != "balance" {
		t.Fatalf("err = %v, want balance ValidationError", err)
	}
}

func TestValidateRejectsOverCapacity(t *testing.T) {
	m := twoYardModel(t, 40)
	_, err := m.Validate(assignment(m, 50, 1))
	var vErr *ValidationError
	if !errors.As(err, &vErr) || vErr.Kind != "capacity" {
		t.Fatalf("err = %v, want capacity ValidationError", err)
	}
}

func TestValidateStatuses(t *testing.T) {
	m := twoYardModel(t, 100)
	if _, err := m.Validate(milp.Result{Status: milp.StatusInfeasible}); err == nil {
		t.Fatal("infeasible result must not validate")
	}
	if _, err := m.Validate(milp.Result{Status: milp.StatusTimedOut}); err == nil {
		t.Fatal("timeout without assignment must not validate")
	}
	// A timeout that carries a feasible incumbent is still usable.
	res := assignment(m, 50, 1)
	res.Status = milp.StatusTimedOut
	sol, err := m.Validate(res)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sol.Status != milp.StatusTimedOut {
		t.Fatalf("status = %v, want timed_out preserved", sol.Status)
	}
}
