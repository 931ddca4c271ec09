// Package model holds the wire types of the railnav API.
package model

// NetworkIn is the full network definition as submitted.
type NetworkIn struct {
	Name  string   `json:"name,omitempty"`
	Yards []YardIn `json:"yards"`
	Edges []EdgeIn `json:"edges"`
}

type YardIn struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat,omitempty"`
	Lon    float64 `json:"lon,omitempty"`
	Status string  `json:"status"`
}

type EdgeIn struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	Capacity   float64 `json:"capacity"`
	BaseCost   float64 `json:"baseCost"`
	DistanceMi float64 `json:"distanceMi,omitempty"`
}

// NetworkOut is the catalog view of a stored network.
type NetworkOut struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Yards     int    `json:"yards"`
	Edges     int    `json:"edges"`
	CreatedAt string `json:"createdAt"`
}

// DemandIn is one shipment record. Weight overrides the priority-tier
// mapping when set. DeadlineHours is accepted and echoed back but does not
// constrain routing; static flows carry no timing.
type DemandIn struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	Quantity      float64 `json:"quantity"`
	Commodity     string  `json:"commodity"`
	Priority      string  `json:"priority,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
	DeadlineHours int     `json:"deadlineHours,omitempty"`
}

// SolveRequest asks for one build-solve-validate run. Exactly one of
// NetworkID and Network must be set.
type SolveRequest struct {
	NetworkID string     `json:"networkId,omitempty"`
	Network   *NetworkIn `json:"network,omitempty"`
	Demands   []DemandIn `json:"demands"`
	// TimeBudgetMs bounds the solver call; zero uses the configured
	// default.
	TimeBudgetMs int `json:"timeBudgetMs,omitempty"`
	// GapTolerance is the relative optimality gap at which the solver
	// may stop with a feasible-but-unproven result.
	GapTolerance float64 `json:"gapTolerance,omitempty"`
	// Baselines also runs the comparator policies on the same inputs.
	Baselines bool `json:"baselines,omitempty"`
}

type PathOut struct {
	Yards  []string `json:"yards"`
	Amount float64  `json:"amount"`
}

type DemandOut struct {
	Index      int       `json:"index"`
	Satisfied  bool      `json:"satisfied"`
	Unroutable bool      `json:"unroutable,omitempty"`
	Paths      []PathOut `json:"paths,omitempty"`
}

// EdgeLoadOut reports one edge's utilization in a solution.
type EdgeLoadOut struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	Flow        float64 `json:"flow"`
	Capacity    float64 `json:"capacity"`
	Utilization float64 `json:"utilization"`
}

// TierOut is the satisfaction rate of one priority tier.
type TierOut struct {
	Satisfied int     `json:"satisfied"`
	Total     int     `json:"total"`
	Rate      float64 `json:"rate"`
}

// SolveOut is the stored, validated result of a solve.
type SolveOut struct {
	ID               string             `json:"id"`
	NetworkID        string             `json:"networkId,omitempty"`
	Status           string             `json:"status"`
	Objective        float64            `json:"objective"`
	Gap              float64            `json:"gap,omitempty"`
	RoutingCost      float64            `json:"routingCost"`
	SatisfactionRate float64            `json:"satisfactionRate"`
	Demands          []DemandOut        `json:"demands"`
	EdgeLoads        []EdgeLoadOut      `json:"edgeLoads"`
	Tiers            map[string]TierOut `json:"tiers,omitempty"`
	Baselines        []BaselineOut      `json:"baselines,omitempty"`
	ElapsedMs        int64              `json:"elapsedMs"`
	CreatedAt        string             `json:"createdAt"`
}

// BaselineOut summarizes one comparator policy run.
type BaselineOut struct {
	Policy          string  `json:"policy"`
	Satisfied       int     `json:"satisfied"`
	Total           int     `json:"total"`
	RoutingCost     float64 `json:"routingCost"`
	Objective       float64 `json:"objective"`
	ViolatedEdges   int     `json:"violatedEdges"`
	ViolatedDemands int     `json:"violatedDemands"`
}

// SubscriptionRequest registers a webhook endpoint for solve events.
type SubscriptionRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret"`
}

type Subscription struct {
	ID     string   `json:"id"`
	URL    string   `json:"url"`
	Events []string `json:"events"`
	Secret string   `json:"secret,omitempty"`
}
