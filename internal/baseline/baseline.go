package baseline

import (
	"sort"
	"sync"

	"railnav/internal/flow"
	"railnav/internal/network"
)

// DemandResult is one demand's outcome under a baseline policy.
type DemandResult struct {
	Index     int     `json:"index"`
	Satisfied bool    `json:"satisfied"`
	Edges     []int   `json:"edges,omitempty"`
	Cost      float64 `json:"cost"`
}

// Report aggregates a baseline run. Objective uses the same big-M weighted
// penalty as the optimizer so the two are directly comparable.
type Report struct {
	Policy        string         `json:"policy"`
	Results       []DemandResult `json:"results"`
	Satisfied     int            `json:"satisfied"`
	RoutingCost   float64        `json:"routingCost"`
	Objective     float64        `json:"objective"`
	// ViolatedEdges lists edges whose combined load would exceed
	// capacity if all greedy paths ran simultaneously, and
	// ViolatedDemands counts the routed demands touching one of those
	// edges. Greedy only.
	ViolatedEdges   []int `json:"violatedEdges,omitempty"`
	ViolatedDemands int   `json:"violatedDemands,omitempty"`
}

// Greedy routes every demand independently along its cheapest path by
// commodity-weighted cost, ignoring other demands entirely, then reports
// which edges would be overloaded if all paths ran at once. Demands are
// processed by a worker pool; each computation is read-only on the network,
// so no ordering or locking is needed beyond collecting results.
func Greedy(n *network.Network, demands []flow.Demand, workers int) Report {
	if workers <= 0 {
		workers = 4
	}
	results := make([]DemandResult, len(demands))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for d := range jobs {
				dem := demands[d]
				edges, unit, ok := shortestPath(n, dem.Origin, dem.Destination, dem.Commodity, nil, 0)
				r := DemandResult{Index: d}
				if ok {
					r.Satisfied = true
					r.Edges = edges
					r.Cost = unit * dem.Quantity
				}
				results[d] = r
			}
		}()
	}
	for d := range demands {
		jobs <- d
	}
	close(jobs)
	wg.Wait()

	rep := Report{Policy: "greedy", Results: results}
	load := make([]float64, n.NumEdges())
	for d, r := range results {
		if !r.Satisfied {
			continue
		}
		rep.Satisfied++
		rep.RoutingCost += r.Cost
		for _, e := range r.Edges {
			load[e] += demands[d].Quantity
		}
	}
	violated := make(map[int]bool)
	for e := 0; e < n.NumEdges(); e++ {
		if load[e] > n.Edge(e).Capacity {
			rep.ViolatedEdges = append(rep.ViolatedEdges, e)
			violated[e] = true
		}
	}
	for _, r := range results {
		for _, e := range r.Edges {
			if violated[e] {
				rep.ViolatedDemands++
				break
			}
		}
	}
	rep.Objective = rep.RoutingCost + penalty(demands, results, flow.DeriveBigM(n, demands))
	return rep
}

// FCFS processes demands in priority-weight order (arrival order breaking
// ties), reserving capacity along each demand's cheapest feasible path.
// Demands that cannot be fully routed on the residual network are left
// unsatisfied; there is no partial routing.
func FCFS(n *network.Network, demands []flow.Demand) Report {
	order := make([]int, len(demands))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return demands[order[a]].Weight > demands[order[b]].Weight
	})

	residual := make([]float64, n.NumEdges())
	for e := 0; e < n.NumEdges(); e++ {
		residual[e] = n.Edge(e).Capacity
	}

	results := make([]DemandResult, len(demands))
	rep := Report{Policy: "fcfs"}
	for _, d := range order {
		dem := demands[d]
		edges, unit, ok := shortestPath(n, dem.Origin, dem.Destination, dem.Commodity, residual, dem.Quantity)
		r := DemandResult{Index: d}
		if ok {
			r.Satisfied = true
			r.Edges = edges
			r.Cost = unit * dem.Quantity
			for _, e := range edges {
				residual[e] -= dem.Quantity
			}
			rep.Satisfied++
			rep.RoutingCost += r.Cost
		}
		results[d] = r
	}
	rep.Results = results
	rep.Objective = rep.RoutingCost + penalty(demands, results, flow.DeriveBigM(n, demands))
	return rep
}

func penalty(demands []flow.Demand, results []DemandResult, bigM float64) float64 {
	total := 0.0
	for d, r := range results {
		if !r.Satisfied {
			total += bigM * demands[d].Weight
		}
	}
	return total
}
