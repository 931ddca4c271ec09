package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"railnav/internal/flow"
	"railnav/internal/network"
	"railnav/internal/store"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	// Problems carries the per-item reasons for malformed input sets.
	Problems []string `json:"problems,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeSolveError maps the optimization error taxonomy onto HTTP problem
// responses. Malformed input is the caller's fault; a validation failure is
// ours and reports as a 500.
func writeSolveError(w http.ResponseWriter, err error, instance string) {
	var netErr *network.MalformedNetworkError
	if errors.As(err, &netErr) {
		writeProblem(w, http.StatusBadRequest, "Malformed network", netErr.Error(), instance)
		return
	}
	var demErr *flow.MalformedDemandError
	if errors.As(err, &demErr) {
		p := Problem{Type: "about:blank", Title: "Malformed demands", Status: http.StatusBadRequest, Instance: instance}
		for _, pr := range demErr.Problems {
			p.Problems = append(p.Problems, fmt.Sprintf("demand %d: %s", pr.Index, pr.Reason))
		}
		writeJSON(w, http.StatusBadRequest, p)
		return
	}
	var infErr *flow.InfeasibleModelError
	if errors.As(err, &infErr) {
		writeProblem(w, http.StatusUnprocessableEntity, "Infeasible model", infErr.Error(), instance)
		return
	}
	var toErr *flow.SolverTimeoutError
	if errors.As(err, &toErr) {
		writeProblem(w, http.StatusGatewayTimeout, "Solver timed out", toErr.Error(), instance)
		return
	}
	var valErr *flow.ValidationError
	if errors.As(err, &valErr) {
		writeProblem(w, http.StatusInternalServerError, "Solution validation failed", valErr.Error(), instance)
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), instance)
		return
	}
	writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), instance)
}
