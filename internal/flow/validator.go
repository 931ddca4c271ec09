package flow

import (
	"fmt"
	"math"

	"railnav/internal/milp"
)

const (
	// validateTol is the absolute tolerance for re-checking balance,
	// capacity, and coupling constraints.
	validateTol = 1e-6
	// binaryTol is how far a solver-returned binary may sit from 0 or 1
	// before the assignment is rejected outright.
	binaryTol = 1e-4
)

// ValidationError reports a constraint violated beyond tolerance by a
// solver-returned assignment. Always fatal: it means a solver/model mismatch
// or a tolerance misconfiguration, never something to downgrade to a warning.
type ValidationError struct {
	Kind   string // balance, capacity, coupling, binary, status
	Demand int    // -1 when not demand-specific
	Edge   int    // -1 when not edge-specific
	Yard   string
	Detail string
}

func (e *ValidationError) Error() string {
	msg := "solution validation failed: " + e.Kind
	if e.Demand >= 0 {
		msg += fmt.Sprintf(" demand=%d", e.Demand)
	}
	if e.Edge >= 0 {
		msg += fmt.Sprintf(" edge=%d", e.Edge)
	}
	if e.Yard != "" {
		msg += " yard=" + e.Yard
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// Validate re-checks a solver result from first principles against the
// network and demands, never trusting the engine's self-reported
// feasibility. On success it returns the rounded, immutable Solution.
func (m *Model) Validate(res milp.Result) (*Solution, error) {
	switch res.Status {
	case milp.StatusOptimal, milp.StatusFeasible:
	case milp.StatusTimedOut:
		if !res.HasAssignment() {
			return nil, &ValidationError{Kind: "status", Demand: -1, Edge: -1, Detail: "timed out with no assignment"}
		}
	default:
		return nil, &ValidationError{Kind: "status", Demand: -1, Edge: -1, Detail: "no assignment for status " + res.Status.String()}
	}

	net := m.Net
	nd := len(m.Demands)
	sol := &Solution{
		Flows:        make([][]float64, net.NumEdges()),
		Satisfied:    make([]bool, nd),
		Status:       res.Status,
		Objective:    res.Objective,
		Gap:          res.Gap,
		Nodes:        res.Nodes,
		LPIterations: res.LPIterations,
		model:        m,
	}
	for e := range sol.Flows {
		sol.Flows[e] = make([]float64, nd)
		for d := 0; d < nd; d++ {
			sol.Flows[e][d] = res.Values[m.FlowVar(e, d)]
		}
	}

	// Round the binaries first; a value far from both 0 and 1 is already
	// a failure.
	for d := 0; d < nd; d++ {
		z := res.Values[m.SatVar(d)]
		if math.Abs(z) > binaryTol && math.Abs(z-1) > binaryTol {
			return nil, &ValidationError{Kind: "binary", Demand: d, Edge: -1,
				Detail: fmt.Sprintf("z=%v not within %v of 0 or 1", z, binaryTol)}
		}
		sol.Satisfied[d] = z >= 0.5
	}

	// Balance rows per demand per yard.
	for d, dem := range m.Demands {
		want := 0.0
		if sol.Satisfied[d] {
			want = dem.Quantity
		}
		for _, yard := range net.YardIDs() {
			in, out := 0.0, 0.0
			for _, e := range net.InEdges(yard) {
				in += sol.Flows[e][d]
			}
			for _, e := range net.OutEdges(yard) {
				out += sol.Flows[e][d]
			}
			var gap float64
			switch yard {
			case dem.Origin:
				gap = (out - in) - want
			case dem.Destination:
				gap = (in - out) - want
			default:
				gap = in - out
			}
			if math.Abs(gap) > validateTol {
				return nil, &ValidationError{Kind: "balance", Demand: d, Edge: -1, Yard: yard,
					Detail: fmt.Sprintf("imbalance %v exceeds %v", gap, validateTol)}
			}
		}
	}

	// Shared capacity per edge.
	for e := 0; e < net.NumEdges(); e++ {
		total := 0.0
		for d := 0; d < nd; d++ {
			if sol.Flows[e][d] < -validateTol {
				return nil, &ValidationError{Kind: "capacity", Demand: d, Edge: e,
					Detail: fmt.Sprintf("negative flow %v", sol.Flows[e][d])}
			}
			total += sol.Flows[e][d]
		}
		if total > net.Edge(e).Capacity+validateTol {
			return nil, &ValidationError{Kind: "capacity", Demand: -1, Edge: e,
				Detail: fmt.Sprintf("flow %v exceeds capacity %v", total, net.Edge(e).Capacity)}
		}
	}

	// Coupling after rounding: an unsatisfied demand may carry no flow at
	// all, a satisfied one at most its quantity out of any yard.
	for d, dem := range m.Demands {
		limit := 0.0
		if sol.Satisfied[d] {
			limit = dem.Quantity
		}
		for _, yard := range net.YardIDs() {
			out := 0.0
			for _, e := range net.OutEdges(yard) {
				out += sol.Flows[e][d]
			}
			if out > limit+validateTol {
				return nil, &ValidationError{Kind: "coupling", Demand: d, Edge: -1, Yard: yard,
					Detail: fmt.Sprintf("outflow %v exceeds %v after rounding z", out, limit)}
			}
		}
	}

	return sol, nil
}
