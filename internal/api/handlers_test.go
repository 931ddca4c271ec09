package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"railnav/internal/config"
	"railnav/internal/model"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(config.Default())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return s
}

// testNetwork is a small diamond: A -> B -> D and A -> C -> D, with a
// direct A -> D edge that is cheap but tight on capacity.
func testNetwork() model.NetworkIn {
	return model.NetworkIn{
		Name: "diamond",
		Yards: []model.YardIn{
			{ID: "A", Status: "active"},
			{ID: "B", Status: "active"},
			{ID: "C", Status: "active"},
			{ID: "D", Status: "active"},
		},
		Edges: []model.EdgeIn{
			{From: "A", To: "B", Capacity: 100, BaseCost: 2},
			{From: "B", To: "D", Capacity: 100, BaseCost: 2},
			{From: "A", To: "C", Capacity: 100, BaseCost: 3},
			{From: "C", To: "D", Capacity: 100, BaseCost: 3},
			{From: "A", To: "D", Capacity: 10, BaseCost: 1},
		},
	}
}

func postJSON(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	h(rr, req)
	return rr
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != 200 {
		t.Fatalf("health: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rr.Code != 200 {
		t.Fatalf("ready: got %d", rr.Code)
	}
}

func TestNetworksCreateListDelete(t *testing.T) {
	s := newTestServer(t)

	rr := postJSON(t, s.NetworksHandler, "/v1/networks", testNetwork())
	if rr.Code != http.StatusCreated {
		t.Fatalf("create network: got %d: %s", rr.Code, rr.Body.String())
	}
	var created model.NetworkOut
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.Yards != 4 || created.Edges != 5 {
		t.Fatalf("catalog counts: %+v", created)
	}

	rr = httptest.NewRecorder()
	s.NetworksHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/networks?limit=5", nil))
	if rr.Code != 200 {
		t.Fatalf("list networks: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.NetworkByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/networks/"+created.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("get network: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.NetworkByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/networks/"+created.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete network: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.NetworkByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/networks/"+created.ID, nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted network: got %d", rr.Code)
	}
}

func TestNetworkCreateRejectsMalformed(t *testing.T) {
	s := newTestServer(t)
	bad := model.NetworkIn{
		Yards: []model.YardIn{{ID: "A", Status: "active"}},
		Edges: []model.EdgeIn{{From: "A", To: "Z", Capacity: 1, BaseCost: 1}},
	}
	rr := postJSON(t, s.NetworksHandler, "/v1/networks", bad)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed network: got %d", rr.Code)
	}
}

func TestSolveInlineNetwork(t *testing.T) {
	s := newTestServer(t)
	net := testNetwork()
	req := model.SolveRequest{
		Network: &net,
		Demands: []model.DemandIn{
			{Origin: "A", Destination: "D", Quantity: 10, Commodity: "coal", Priority: "high"},
			{Origin: "A", Destination: "D", Quantity: 20, Commodity: "coal", Priority: "low"},
		},
		Baselines: true,
	}
	rr := postJSON(t, s.SolveHandler, "/v1/solve", req)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d: %s", rr.Code, rr.Body.String())
	}
	var out model.SolveOut
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != "optimal" {
		t.Fatalf("status: got %s", out.Status)
	}
	if out.SatisfactionRate != 1 {
		t.Fatalf("satisfaction rate: got %v", out.SatisfactionRate)
	}
	if len(out.Demands) != 2 {
		t.Fatalf("demands: got %d", len(out.Demands))
	}
	for _, d := range out.Demands {
		if !d.Satisfied || len(d.Paths) == 0 {
			t.Fatalf("demand %d not routed: %+v", d.Index, d)
		}
	}
	// the tight direct edge must never carry more than its capacity
	for _, l := range out.EdgeLoads {
		if l.Flow > l.Capacity+1e-6 {
			t.Fatalf("edge %s->%s overloaded: %+v", l.From, l.To, l)
		}
	}
	if len(out.Baselines) != 2 {
		t.Fatalf("baselines: got %d", len(out.Baselines))
	}
	// the optimizer never does worse than a baseline on the same inputs
	for _, b := range out.Baselines {
		if b.Satisfied == b.Total && out.Objective > b.Objective+1e-6 {
			t.Fatalf("optimizer objective %v worse than %s %v", out.Objective, b.Policy, b.Objective)
		}
	}

	// the solve is persisted and fetchable
	rr = httptest.NewRecorder()
	s.SolveByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves/"+out.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("get solve: got %d", rr.Code)
	}
}

func TestSolveStoredNetwork(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.NetworksHandler, "/v1/networks", testNetwork())
	if rr.Code != http.StatusCreated {
		t.Fatalf("create network: got %d", rr.Code)
	}
	var created model.NetworkOut
	_ = json.Unmarshal(rr.Body.Bytes(), &created)

	req := model.SolveRequest{
		NetworkID: created.ID,
		Demands: []model.DemandIn{
			{Origin: "A", Destination: "D", Quantity: 5, Commodity: "coal"},
		},
	}
	rr = postJSON(t, s.SolveHandler, "/v1/solve", req)
	if rr.Code != 200 {
		t.Fatalf("solve: got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	s.SolvesIndexHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/solves?networkId="+created.ID, nil))
	if rr.Code != 200 {
		t.Fatalf("list solves: got %d", rr.Code)
	}
	var idx struct {
		Items []model.SolveOut `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(idx.Items) != 1 {
		t.Fatalf("solves for network: got %d", len(idx.Items))
	}
}

func TestSolveRejectsUnknownNetwork(t *testing.T) {
	s := newTestServer(t)
	req := model.SolveRequest{
		NetworkID: "net_missing",
		Demands:   []model.DemandIn{{Origin: "A", Destination: "D", Quantity: 1, Commodity: "coal"}},
	}
	rr := postJSON(t, s.SolveHandler, "/v1/solve", req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown network: got %d", rr.Code)
	}
}

func TestSolveRejectsMalformedDemands(t *testing.T) {
	s := newTestServer(t)
	net := testNetwork()
	req := model.SolveRequest{
		Network: &net,
		Demands: []model.DemandIn{
			{Origin: "A", Destination: "D", Quantity: -3, Commodity: "coal"},
			{Origin: "A", Destination: "X", Quantity: 1, Commodity: "coal"},
		},
	}
	rr := postJSON(t, s.SolveHandler, "/v1/solve", req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed demands: got %d: %s", rr.Code, rr.Body.String())
	}
	var p Problem
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode problem: %v", err)
	}
	if len(p.Problems) != 2 {
		t.Fatalf("problem list: got %+v", p.Problems)
	}
}

func TestSolveRejectsBadCommodity(t *testing.T) {
	s := newTestServer(t)
	net := testNetwork()
	req := model.SolveRequest{
		Network: &net,
		Demands: []model.DemandIn{{Origin: "A", Destination: "D", Quantity: 1, Commodity: "antimatter"}},
	}
	rr := postJSON(t, s.SolveHandler, "/v1/solve", req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad commodity: got %d", rr.Code)
	}
}

func TestSolveRequestValidation(t *testing.T) {
	s := newTestServer(t)
	net := testNetwork()
	cases := []model.SolveRequest{
		{}, // neither network nor networkId
		{NetworkID: "n1", Network: &net, Demands: []model.DemandIn{{Origin: "A", Destination: "D", Quantity: 1, Commodity: "coal"}}},
		{Network: &net}, // no demands
		{Network: &net, Demands: []model.DemandIn{{Origin: "A", Destination: "D", Quantity: 1, Commodity: "coal", Priority: "urgent"}}},
		{Network: &net, Demands: []model.DemandIn{{Origin: "A", Destination: "D", Quantity: 1, Commodity: "coal"}}, GapTolerance: 1.5},
	}
	for i, req := range cases {
		rr := postJSON(t, s.SolveHandler, "/v1/solve", req)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("case %d: got %d", i, rr.Code)
		}
	}
}

func TestBaselinesEndpoint(t *testing.T) {
	s := newTestServer(t)
	net := testNetwork()
	req := model.SolveRequest{
		Network: &net,
		Demands: []model.DemandIn{
			{Origin: "A", Destination: "D", Quantity: 8, Commodity: "coal"},
			{Origin: "A", Destination: "D", Quantity: 8, Commodity: "chemicals", Priority: "low"},
		},
	}
	rr := postJSON(t, s.BaselinesHandler, "/v1/baselines", req)
	if rr.Code != 200 {
		t.Fatalf("baselines: got %d: %s", rr.Code, rr.Body.String())
	}
	var out struct {
		Baselines []model.BaselineOut `json:"baselines"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Baselines) != 2 {
		t.Fatalf("policies: got %d", len(out.Baselines))
	}
	for _, b := range out.Baselines {
		if b.Total != 2 {
			t.Fatalf("%s total: got %d", b.Policy, b.Total)
		}
	}
}

func TestSubscriptionsLifecycle(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", model.SubscriptionRequest{
		URL:    "https://example.test/hook",
		Events: []string{"solve.completed"},
		Secret: "s3cret",
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create subscription: got %d", rr.Code)
	}
	var sub model.Subscription
	_ = json.Unmarshal(rr.Body.Bytes(), &sub)

	rr = httptest.NewRecorder()
	s.SubscriptionsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/subscriptions", nil))
	if rr.Code != 200 {
		t.Fatalf("list subscriptions: got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	s.SubscriptionByIDHandler(rr, httptest.NewRequest(http.MethodDelete, "/v1/subscriptions/"+sub.ID, nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete subscription: got %d", rr.Code)
	}
}

func TestSolveEnqueuesWebhook(t *testing.T) {
	s := newTestServer(t)
	rr := postJSON(t, s.SubscriptionsHandler, "/v1/subscriptions", model.SubscriptionRequest{
		URL:    "https://example.test/hook",
		Events: []string{"solve.completed"},
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create subscription: got %d", rr.Code)
	}
	net := testNetwork()
	rr = postJSON(t, s.SolveHandler, "/v1/solve", model.SolveRequest{
		Network: &net,
		Demands: []model.DemandIn{{Origin: "A", Destination: "D", Quantity: 1, Commodity: "coal"}},
	})
	if rr.Code != 200 {
		t.Fatalf("solve: got %d", rr.Code)
	}
	rr = httptest.NewRecorder()
	s.WebhookDeliveriesHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/admin/webhook-deliveries", nil))
	if rr.Code != 200 {
		t.Fatalf("list deliveries: got %d", rr.Code)
	}
	var idx struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &idx); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(idx.Items) != 1 {
		t.Fatalf("deliveries: got %d", len(idx.Items))
	}
}
