package flow

import (
	"fmt"

	"railnav/internal/milp"
	"railnav/internal/network"
)

// Model is the compiled optimization model for one (network, demand set)
// pair: the MILP plus the index maps needed to interpret its variables.
// Immutable once built.
//
// Flow variables exist only over (real-edge-index, demand-index) pairs, so a
// flow on a non-existent edge is not a representable state.
type Model struct {
	Net     *network.Network
	Demands []Demand

	MILP *milp.Model
	// Unroutable marks demands whose destination is unreachable from the
	// origin. The constraints force z=0 for them anyway; the flag tells
	// "structurally impossible" apart from "solver chose not to".
	Unroutable []bool
	// BigM is the derived penalty constant, strictly larger than the
	// worst-case routing cost of any single demand over the smallest
	// priority weight.
	BigM float64

	nDemands int
	satBase  int
}

// FlowVar returns the MILP variable index of y[edge e, demand d].
func (m *Model) FlowVar(e, d int) int { return e*m.nDemands + d }

// SatVar returns the MILP variable index of z[demand d].
func (m *Model) SatVar(d int) int { return m.satBase + d }

// Build compiles the network and demand set into an optimization model.
// Deterministic and side-effect-free: identical inputs produce structurally
// identical models, variable for variable and constraint for constraint.
func Build(n *network.Network, demands []Demand) (*Model, error) {
	if err := ValidateDemands(n, demands); err != nil {
		return nil, err
	}

	m := &Model{
		Net:        n,
		Demands:    append([]Demand(nil), demands...),
		MILP:       milp.NewModel(),
		Unroutable: make([]bool, len(demands)),
		nDemands:   len(demands),
	}
	m.BigM = DeriveBigM(n, demands)

	// Flow variables in edge-major order, then the satisfaction binaries.
	for e := 0; e < n.NumEdges(); e++ {
		edge := n.Edge(e)
		for d := range demands {
			m.MILP.AddVar(0, milp.Inf(), fmt.Sprintf("y[%s->%s,%d]", edge.From, edge.To, d))
		}
	}
	m.satBase = m.MILP.NumVars()
	for d := range demands {
		m.MILP.AddBinary(fmt.Sprintf("z[%d]", d))
	}

	for d, dem := range demands {
		m.Unroutable[d] = !n.Reachable(dem.Origin, dem.Destination)
		m.addBalanceConstraints(d, dem)
		m.addCouplingConstraints(d, dem)
	}
	m.addCapacityConstraints()
	m.setObjective()
	return m, nil
}

// addBalanceConstraints emits origin, destination, and transit balance rows
// for one demand, summing only over edges actually incident to each yard.
func (m *Model) addBalanceConstraints(d int, dem Demand) {
	net := m.Net
	for _, yard := range net.YardIDs() {
		out := net.OutEdges(yard)
		in := net.InEdges(yard)
		// A transit yard with no incident edges contributes a trivial
		// 0=0 row; skip it. Origin and destination rows are always
		// emitted: with no incident edges they reduce to -qty*z = 0,
		// which is exactly what forces z=0 for an isolated endpoint.
		if len(out) == 0 && len(in) == 0 && yard != dem.Origin && yard != dem.Destination {
			continue
		}
		terms := make([]milp.Term, 0, len(out)+len(in)+1)
		switch yard {
		case dem.Origin:
			// outflow - inflow = quantity * z
			for _, e := range out {
				terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: 1})
			}
			for _, e := range in {
				terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: -1})
			}
			terms = append(terms, milp.Term{Var: m.SatVar(d), Coef: -dem.Quantity})
			m.MILP.AddConstraint(fmt.Sprintf("origin[%d]", d), terms, milp.Equal, 0)
		case dem.Destination:
			// inflow - outflow = quantity * z
			for _, e := range in {
				terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: 1})
			}
			for _, e := range out {
				terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: -1})
			}
			terms = append(terms, milp.Term{Var: m.SatVar(d), Coef: -dem.Quantity})
			m.MILP.AddConstraint(fmt.Sprintf("dest[%d]", d), terms, milp.Equal, 0)
		default:
			// transit: inflow = outflow, independent of z
			for _, e := range in {
				terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: 1})
			}
			for _, e := range out {
				terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: -1})
			}
			m.MILP.AddConstraint(fmt.Sprintf("transit[%d,%s]", d, yard), terms, milp.Equal, 0)
		}
	}
}

// addCouplingConstraints caps the demand's outflow at every yard by
// quantity*z. With z=0 this forbids any flow at all, including circulation
// cycles the balance rows alone would tolerate.
func (m *Model) addCouplingConstraints(d int, dem Demand) {
	for _, yard := range m.Net.YardIDs() {
		out := m.Net.OutEdges(yard)
		if len(out) == 0 {
			continue
		}
		terms := make([]milp.Term, 0, len(out)+1)
		for _, e := range out {
			terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: 1})
		}
		terms = append(terms, milp.Term{Var: m.SatVar(d), Coef: -dem.Quantity})
		m.MILP.AddConstraint(fmt.Sprintf("couple[%d,%s]", d, yard), terms, milp.LessEq, 0)
	}
}

// addCapacityConstraints shares each edge's capacity across all demands.
func (m *Model) addCapacityConstraints() {
	for e := 0; e < m.Net.NumEdges(); e++ {
		edge := m.Net.Edge(e)
		terms := make([]milp.Term, 0, len(m.Demands))
		for d := range m.Demands {
			terms = append(terms, milp.Term{Var: m.FlowVar(e, d), Coef: 1})
		}
		m.MILP.AddConstraint(fmt.Sprintf("cap[%s->%s]", edge.From, edge.To), terms, milp.LessEq, edge.Capacity)
	}
}

// setObjective minimizes routing cost plus BigM-scaled weighted penalties for
// unmet demands: sum(effCost*y) + M*sum(w*(1-z)).
func (m *Model) setObjective() {
	for e := 0; e < m.Net.NumEdges(); e++ {
		for d, dem := range m.Demands {
			m.MILP.SetObjectiveCoef(m.FlowVar(e, d), m.Net.EffectiveCost(e, dem.Commodity))
		}
	}
	for d, dem := range m.Demands {
		m.MILP.SetObjectiveCoef(m.SatVar(d), -m.BigM*dem.Weight)
		m.MILP.AddObjectiveOffset(m.BigM * dem.Weight)
	}
}

// DeriveBigM computes the penalty constant from the instance itself, never a
// hardcoded value: any single demand's routing cost is bounded by its
// quantity times the sum of worst-case edge costs, and the penalty must beat
// that even for the smallest priority weight. Baseline comparators use the
// same constant so their objectives are directly comparable.
func DeriveBigM(n *network.Network, demands []Demand) float64 {
	maxQty, minWeight := 0.0, 0.0
	for _, d := range demands {
		if d.Quantity > maxQty {
			maxQty = d.Quantity
		}
		if minWeight == 0 || d.Weight < minWeight {
			minWeight = d.Weight
		}
	}
	costSum := 0.0
	for e := 0; e < n.NumEdges(); e++ {
		costSum += n.Edge(e).BaseCost * network.MaxMultiplier()
	}
	if minWeight == 0 {
		return 1
	}
	return maxQty*costSum/minWeight + 1
}
