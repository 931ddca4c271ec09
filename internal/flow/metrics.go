package flow

// TierStat is the satisfaction breakdown for one priority tier.
type TierStat struct {
	Satisfied int     `json:"satisfied"`
	Total     int     `json:"total"`
	Rate      float64 `json:"rate"`
}

// Metrics summarizes a validated solution.
type Metrics struct {
	SatisfiedCount   int                 `json:"satisfiedCount"`
	TotalDemands     int                 `json:"totalDemands"`
	SatisfactionRate float64             `json:"satisfactionRate"`
	RoutingCost      float64             `json:"routingCost"`
	Objective        float64             `json:"objective"`
	EdgeUtilization  []float64           `json:"edgeUtilization"`
	TierSatisfaction map[string]TierStat `json:"tierSatisfaction"`
	Unroutable       int                 `json:"unroutable"`
}

// ComputeMetrics derives the reporting metrics of a validated solution.
func (s *Solution) ComputeMetrics() Metrics {
	net := s.model.Net
	m := Metrics{
		TotalDemands:     len(s.model.Demands),
		RoutingCost:      s.RoutingCost(),
		Objective:        s.Objective,
		EdgeUtilization:  make([]float64, net.NumEdges()),
		TierSatisfaction: map[string]TierStat{},
	}
	for d, dem := range s.model.Demands {
		tier := dem.Tier
		if tier == "" {
			tier = "default"
		}
		st := m.TierSatisfaction[tier]
		st.Total++
		if s.Satisfied[d] {
			st.Satisfied++
			m.SatisfiedCount++
		}
		st.Rate = float64(st.Satisfied) / float64(st.Total)
		m.TierSatisfaction[tier] = st
		if s.model.Unroutable[d] {
			m.Unroutable++
		}
	}
	if m.TotalDemands > 0 {
		m.SatisfactionRate = float64(m.SatisfiedCount) / float64(m.TotalDemands)
	}
	for e := 0; e < net.NumEdges(); e++ {
		total := 0.0
		for d := range s.model.Demands {
			total += s.Flows[e][d]
		}
		m.EdgeUtilization[e] = total / net.Edge(e).Capacity
	}
	return m
}
