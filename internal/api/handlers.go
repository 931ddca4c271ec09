package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"railnav/internal/baseline"
	"railnav/internal/flow"
	"railnav/internal/metrics"
	"railnav/internal/model"
	"railnav/internal/webhooks"
)

// NetworksHandler handles POST/GET /v1/networks
func (s *Server) NetworksHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var in model.NetworkIn
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		// compile once up front so a bad definition never lands in the store
		if _, err := buildNetwork(in); err != nil {
			writeSolveError(w, err, r.URL.Path)
			return
		}
		out, err := s.Store.CreateNetwork(r.Context(), in)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create network failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, out)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := parseLimit(r)
		items, next, err := s.Store.ListNetworks(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List networks failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// NetworkByIDHandler handles GET/DELETE /v1/networks/{id}
func (s *Server) NetworkByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/networks/")
	if id == "" || strings.Contains(id, "/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	switch r.Method {
	case http.MethodGet:
		net, err := s.Store.GetNetwork(r.Context(), id)
		if err != nil {
			writeSolveError(w, err, r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "network": net})
	case http.MethodDelete:
		if err := s.Store.DeleteNetwork(r.Context(), id); err != nil {
			writeSolveError(w, err, r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SolveHandler handles POST /v1/solve: build the model, run the solver
// within the time budget, validate, persist, and fan out events.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}

	in, err := s.resolveNetwork(r.Context(), &req)
	if err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	net, err := buildNetwork(in)
	if err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	demands, err := toDemands(req.Demands, s.Cfg)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid demands", err.Error(), r.URL.Path)
		return
	}

	budget := s.Cfg.TimeBudget()
	if req.TimeBudgetMs > 0 {
		budget = time.Duration(req.TimeBudgetMs) * time.Millisecond
	}
	gap := s.Cfg.Solver.GapTolerance
	if req.GapTolerance > 0 {
		gap = req.GapTolerance
	}

	solveID := "slv_" + uuid.NewString()
	start := time.Now()
	m, err := flow.Build(net, demands)
	if err != nil {
		s.solveFailed(r.Context(), solveID, req.NetworkID, err)
		writeSolveError(w, err, r.URL.Path)
		return
	}
	sol, err := m.Solve(r.Context(), s.Solver, budget, gap)
	if err != nil {
		s.solveFailed(r.Context(), solveID, req.NetworkID, err)
		writeSolveError(w, err, r.URL.Path)
		return
	}
	elapsed := time.Since(start)
	metrics.Solves.WithLabelValues(sol.Status.String()).Inc()
	metrics.SolveDuration.Observe(elapsed.Seconds())
	metrics.SolveNodes.Observe(float64(sol.Nodes))

	out := s.buildSolveOut(solveID, req.NetworkID, m, sol, elapsed)
	if req.Baselines {
		out.Baselines = []model.BaselineOut{
			toBaselineOut(baseline.Greedy(net, demands, s.Cfg.Solver.WorkerPoolSize), len(demands)),
			toBaselineOut(baseline.FCFS(net, demands), len(demands)),
		}
	}
	if err := s.Store.SaveSolve(r.Context(), out); err != nil {
		writeProblem(w, http.StatusInternalServerError, "Save solve failed", err.Error(), r.URL.Path)
		return
	}

	data := map[string]any{
		"solveId":          out.ID,
		"networkId":        out.NetworkID,
		"status":           out.Status,
		"objective":        out.Objective,
		"satisfactionRate": out.SatisfactionRate,
	}
	s.Pub.Emit(r.Context(), webhooks.EventSolveCompleted, data)
	s.Broker.Publish(out.ID, SolveEvent{Type: webhooks.EventSolveCompleted, Data: data})

	writeJSON(w, http.StatusOK, out)
}

// resolveNetwork returns the definition to solve over: the stored one when
// the request names an ID, the inline one otherwise.
func (s *Server) resolveNetwork(ctx context.Context, req *model.SolveRequest) (model.NetworkIn, error) {
	if req.NetworkID != "" {
		return s.Store.GetNetwork(ctx, req.NetworkID)
	}
	return *req.Network, nil
}

func (s *Server) solveFailed(ctx context.Context, solveID, networkID string, err error) {
	var valErr *flow.ValidationError
	switch {
	case errors.As(err, &valErr):
		metrics.Solves.WithLabelValues("error").Inc()
		metrics.ValidationFailures.WithLabelValues(valErr.Kind).Inc()
	case errors.As(err, new(*flow.InfeasibleModelError)):
		metrics.Solves.WithLabelValues("infeasible").Inc()
	case errors.As(err, new(*flow.SolverTimeoutError)):
		metrics.Solves.WithLabelValues("timed_out").Inc()
	case errors.Is(err, flow.ErrUnbounded):
		metrics.Solves.WithLabelValues("unbounded").Inc()
	default:
		metrics.Solves.WithLabelValues("error").Inc()
	}
	data := map[string]any{"solveId": solveID, "networkId": networkID, "error": err.Error()}
	s.Pub.Emit(ctx, webhooks.EventSolveFailed, data)
	s.Broker.Publish(solveID, SolveEvent{Type: webhooks.EventSolveFailed, Data: data})
}

func (s *Server) buildSolveOut(id, networkID string, m *flow.Model, sol *flow.Solution, elapsed time.Duration) model.SolveOut {
	met := sol.ComputeMetrics()
	net := m.Net

	demands := make([]model.DemandOut, len(m.Demands))
	for d := range m.Demands {
		do := model.DemandOut{Index: d, Satisfied: sol.Satisfied[d], Unroutable: m.Unroutable[d]}
		for _, p := range sol.Paths(d) {
			do.Paths = append(do.Paths, model.PathOut{Yards: p.Yards, Amount: p.Amount})
		}
		demands[d] = do
	}

	loads := make([]model.EdgeLoadOut, net.NumEdges())
	for e := 0; e < net.NumEdges(); e++ {
		total := 0.0
		for d := range sol.Flows[e] {
			total += sol.Flows[e][d]
		}
		edge := net.Edge(e)
		loads[e] = model.EdgeLoadOut{
			From:        edge.From,
			To:          edge.To,
			Flow:        total,
			Capacity:    edge.Capacity,
			Utilization: met.EdgeUtilization[e],
		}
	}

	tiers := make(map[string]model.TierOut, len(met.TierSatisfaction))
	for tier, st := range met.TierSatisfaction {
		tiers[tier] = model.TierOut{Satisfied: st.Satisfied, Total: st.Total, Rate: st.Rate}
	}

	return model.SolveOut{
		ID:               id,
		NetworkID:        networkID,
		Status:           sol.Status.String(),
		Objective:        sol.Objective,
		Gap:              sol.Gap,
		RoutingCost:      met.RoutingCost,
		SatisfactionRate: met.SatisfactionRate,
		Demands:          demands,
		EdgeLoads:        loads,
		Tiers:            tiers,
		ElapsedMs:        elapsed.Milliseconds(),
		CreatedAt:        time.Now().UTC().Format(time.RFC3339),
	}
}

func toBaselineOut(rep baseline.Report, total int) model.BaselineOut {
	return model.BaselineOut{
		Policy:          rep.Policy,
		Satisfied:       rep.Satisfied,
		Total:           total,
		RoutingCost:     rep.RoutingCost,
		Objective:       rep.Objective,
		ViolatedEdges:   len(rep.ViolatedEdges),
		ViolatedDemands: rep.ViolatedDemands,
	}
}

// SolvesIndexHandler handles GET /v1/solves
func (s *Server) SolvesIndexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solves" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	networkID := r.URL.Query().Get("networkId")
	cursor := r.URL.Query().Get("cursor")
	limit := parseLimit(r)
	items, next, err := s.Store.ListSolves(r.Context(), networkID, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List solves failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// SolveByIDHandler handles GET /v1/solves/{id} and the event stream at
// /v1/solves/{id}/events
func (s *Server) SolveByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/solves/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 1 && parts[1] == "events" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.StreamSolveHandler(w, r, id)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	sol, err := s.Store.GetSolve(r.Context(), id)
	if err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, sol)
}

// BaselinesHandler handles POST /v1/baselines: run the comparator policies
// without the optimizer.
func (s *Server) BaselinesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req model.SolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid baselines request", err.Error(), r.URL.Path)
		return
	}
	in, err := s.resolveNetwork(r.Context(), &req)
	if err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	net, err := buildNetwork(in)
	if err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	demands, err := toDemands(req.Demands, s.Cfg)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid demands", err.Error(), r.URL.Path)
		return
	}
	if err := flow.ValidateDemands(net, demands); err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	out := []model.BaselineOut{
		toBaselineOut(baseline.Greedy(net, demands, s.Cfg.Solver.WorkerPoolSize), len(demands)),
		toBaselineOut(baseline.FCFS(net, demands), len(demands)),
	}
	writeJSON(w, http.StatusOK, map[string]any{"baselines": out})
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if req.URL == "" || len(req.Events) == 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", "url and events are required", r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := parseLimit(r)
		items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List subscriptions failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// WebhookDeliveriesHandler handles GET /v1/admin/webhook-deliveries
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/admin/webhook-deliveries" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := parseLimit(r)
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), status, cursor, limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// WebhookDeliveryRetryHandler handles POST /v1/admin/webhook-deliveries/{id}/retry
func (s *Server) WebhookDeliveryRetryHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/") || !strings.HasSuffix(r.URL.Path, "/retry") {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/admin/webhook-deliveries/"), "/retry")
	if err := s.Store.RetryWebhookDelivery(r.Context(), id); err != nil {
		writeSolveError(w, err, r.URL.Path)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": 1})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using the Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func parseLimit(r *http.Request) int {
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		fmt.Sscanf(v, "%d", &limit)
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return limit
}
