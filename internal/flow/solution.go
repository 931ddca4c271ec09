package flow

import "railnav/internal/milp"

// Solution is a validated assignment: resolved flows per (edge, demand),
// rounded satisfaction decisions, and the solver's termination report.
// Produced once per solve by Validate; immutable afterwards.
type Solution struct {
	// Flows is indexed [edge][demand].
	Flows     [][]float64
	Satisfied []bool
	Status    milp.Status
	Objective float64
	Gap       float64
	// Nodes and LPIterations report solver effort, for observability.
	Nodes        int
	LPIterations int

	model *Model
}

// Path is one simple routed path carrying part of a demand.
type Path struct {
	Yards  []string
	Edges  []int
	Amount float64
}

// Paths decomposes demand d's flow assignment into simple origin-to-
// destination paths. When several equal decompositions exist the edge arena
// order breaks the tie, so the result is deterministic.
func (s *Solution) Paths(d int) []Path {
	if !s.Satisfied[d] {
		return nil
	}
	net := s.model.Net
	dem := s.model.Demands[d]
	residual := make([]float64, net.NumEdges())
	for e := range residual {
		residual[e] = s.Flows[e][d]
	}

	var paths []Path
	maxHops := net.NumEdges() + 1
	for {
		yards := []string{dem.Origin}
		var edges []int
		amount := 0.0
		cur := dem.Origin
		for cur != dem.Destination && len(edges) < maxHops {
			next := -1
			for _, e := range net.OutEdges(cur) {
				if residual[e] > validateTol {
					next = e
					break
				}
			}
			if next < 0 {
				break
			}
			if amount == 0 || residual[next] < amount {
				amount = residual[next]
			}
			edges = append(edges, next)
			cur = net.Edge(next).To
			yards = append(yards, cur)
		}
		if cur != dem.Destination || len(edges) == 0 || amount <= validateTol {
			break
		}
		for _, e := range edges {
			residual[e] -= amount
		}
		paths = append(paths, Path{Yards: yards, Edges: edges, Amount: amount})
	}
	return paths
}

// RoutingCost is the transportation cost of the assignment, excluding
// penalty terms.
func (s *Solution) RoutingCost() float64 {
	net := s.model.Net
	total := 0.0
	for e := 0; e < net.NumEdges(); e++ {
		for d, dem := range s.model.Demands {
			total += net.EffectiveCost(e, dem.Commodity) * s.Flows[e][d]
		}
	}
	return total
}
