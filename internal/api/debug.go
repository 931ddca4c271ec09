package api

import (
	"net/http"
	"time"

	"railnav/internal/buildinfo"
)

// VersionHandler reports build metadata.
func (s *Server) VersionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, buildinfo.Info())
}

// DebugJSON dumps the effective runtime configuration for troubleshooting.
// Secrets never appear here, only presence flags.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"listen":             s.Cfg.Listen,
			"solverTimeBudgetMs": s.Cfg.Solver.TimeBudgetMs,
			"solverGapTolerance": s.Cfg.Solver.GapTolerance,
			"workerPoolSize":     s.Cfg.Solver.WorkerPoolSize,
			"rateLimit":          s.Cfg.RateLimit,
			"burst":              s.Cfg.Burst,
			"webhookMaxAttempts": s.Cfg.WebhookMaxAttempts,
			"hasDatabaseUrl":     s.Cfg.DatabaseURL != "",
			"hasRedisUrl":        s.Cfg.RedisURL != "",
		},
	})
}
