package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":8080" {
		t.Fatalf("default listen = %q", cfg.Listen)
	}
	if cfg.Solver.TimeBudgetMs != 10000 {
		t.Fatalf("default time budget = %d", cfg.Solver.TimeBudgetMs)
	}
	if w := cfg.TierWeight("medium"); w != 0.6 {
		t.Fatalf("medium tier weight = %g", w)
	}
	if w := cfg.TierWeight("unknown"); w != 1.0 {
		t.Fatalf("unknown tier should fall back to high, got %g", w)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "railnav.yaml")
	body := `
listen: ":9090"
solver:
  timeBudgetMs: 250
  gapTolerance: 0.01
tierWeights:
  high: 2.0
  medium: 1.0
  low: 0.5
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != ":9090" || cfg.Solver.TimeBudgetMs != 250 || cfg.Solver.GapTolerance != 0.01 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.TierWeight("low") != 0.5 {
		t.Fatalf("low weight = %g", cfg.TierWeight("low"))
	}
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("SOLVER_TIME_BUDGET_MS", "777")
	t.Setenv("PORT", "7777")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Solver.TimeBudgetMs != 777 {
		t.Fatalf("env budget not applied: %d", cfg.Solver.TimeBudgetMs)
	}
	if cfg.Listen != ":7777" {
		t.Fatalf("env port not applied: %q", cfg.Listen)
	}
}

func TestLoadRejectsBadWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("tierWeights:\n  high: -1\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for negative tier weight")
	}
}
