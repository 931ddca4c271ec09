package api

import (
	"fmt"

	"railnav/internal/config"
	"railnav/internal/flow"
	"railnav/internal/model"
	"railnav/internal/network"
)

func validateSolveRequest(req *model.SolveRequest) error {
	if (req.NetworkID == "") == (req.Network == nil) {
		return fmt.Errorf("exactly one of networkId and network must be set")
	}
	if len(req.Demands) == 0 {
		return fmt.Errorf("demands must not be empty")
	}
	if req.TimeBudgetMs < 0 {
		return fmt.Errorf("timeBudgetMs must be >= 0")
	}
	if req.GapTolerance < 0 || req.GapTolerance >= 1 {
		return fmt.Errorf("gapTolerance must be in [0,1)")
	}
	for i, d := range req.Demands {
		if d.Priority != "" && d.Priority != "high" && d.Priority != "medium" && d.Priority != "low" {
			return fmt.Errorf("demand %d: invalid priority %q (allowed: high, medium, low)", i, d.Priority)
		}
		if d.Weight < 0 {
			return fmt.Errorf("demand %d: weight must be >= 0", i)
		}
	}
	return nil
}

// buildNetwork compiles a submitted definition into the immutable graph.
// Yard and edge problems surface as MalformedNetworkError from the
// constructor, untouched.
func buildNetwork(in model.NetworkIn) (*network.Network, error) {
	yards := make([]network.Yard, len(in.Yards))
	for i, y := range in.Yards {
		yards[i] = network.Yard{ID: y.ID, Lat: y.Lat, Lon: y.Lon, Status: y.Status}
	}
	edges := make([]network.Edge, len(in.Edges))
	for i, e := range in.Edges {
		edges[i] = network.Edge{From: e.From, To: e.To, Capacity: e.Capacity, BaseCost: e.BaseCost, DistanceMi: e.DistanceMi}
	}
	return network.New(yards, edges)
}

// toDemands maps wire demands onto the solver's demand set. Tier weights
// come from configuration unless the record carries an explicit weight.
// Commodity strings are case-insensitive; a bad one is reported with its
// index so the caller can fix the record.
func toDemands(in []model.DemandIn, cfg config.Config) ([]flow.Demand, error) {
	out := make([]flow.Demand, len(in))
	for i, d := range in {
		c, err := network.ParseCommodity(d.Commodity)
		if err != nil {
			return nil, fmt.Errorf("demand %d: %w", i, err)
		}
		tier := d.Priority
		if tier == "" {
			tier = "high"
		}
		w := d.Weight
		if w == 0 {
			w = cfg.TierWeight(tier)
		}
		out[i] = flow.Demand{
			Origin:      d.Origin,
			Destination: d.Destination,
			Quantity:    d.Quantity,
			Commodity:   c,
			Weight:      w,
			Tier:        tier,
		}
	}
	return out, nil
}
