// Package config loads the service configuration from an optional YAML
// file, then applies environment overrides. Every field has a usable
// default so the server starts with no configuration at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen      string `yaml:"listen"`
	DatabaseURL string `yaml:"databaseUrl"`
	RedisURL    string `yaml:"redisUrl"`

	Solver SolverConfig `yaml:"solver"`

	// TierWeights maps priority labels to penalty weights for demands
	// that carry no explicit weight.
	TierWeights map[string]float64 `yaml:"tierWeights"`

	// RateLimit is requests per second per client; Burst tops it.
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`

	WebhookMaxAttempts int `yaml:"webhookMaxAttempts"`
}

type SolverConfig struct {
	TimeBudgetMs   int     `yaml:"timeBudgetMs"`
	GapTolerance   float64 `yaml:"gapTolerance"`
	WorkerPoolSize int     `yaml:"workerPoolSize"`
}

func Default() Config {
	return Config{
		Listen: ":8080",
		Solver: SolverConfig{
			TimeBudgetMs:   10000,
			GapTolerance:   0.0,
			WorkerPoolSize: 4,
		},
		TierWeights:        map[string]float64{"high": 1.0, "medium": 0.6, "low": 0.3},
		RateLimit:          50,
		Burst:              100,
		WebhookMaxAttempts: 10,
	}
}

// Load reads path when it exists, overlays environment variables, and
// validates the result. An empty path skips the file entirely.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, fmt.Errorf("read config: %w", err)
			}
		} else if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}
	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
	if v := os.Getenv("LISTEN"); v != "" {
		c.Listen = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.RedisURL = v
	}
	if v := os.Getenv("SOLVER_TIME_BUDGET_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Solver.TimeBudgetMs = n
		}
	}
	if v := os.Getenv("SOLVER_GAP_TOLERANCE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			c.Solver.GapTolerance = f
		}
	}
	if v := os.Getenv("WEBHOOK_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.WebhookMaxAttempts = n
		}
	}
}

func (c *Config) validate() error {
	if c.Solver.TimeBudgetMs <= 0 {
		return fmt.Errorf("solver.timeBudgetMs must be > 0, got %d", c.Solver.TimeBudgetMs)
	}
	if c.Solver.GapTolerance < 0 {
		return fmt.Errorf("solver.gapTolerance must be >= 0, got %g", c.Solver.GapTolerance)
	}
	for tier, w := range c.TierWeights {
		if w <= 0 {
			return fmt.Errorf("tierWeights.%s must be positive, got %g", tier, w)
		}
	}
	if c.RateLimit <= 0 {
		return fmt.Errorf("rateLimit must be positive, got %g", c.RateLimit)
	}
	return nil
}

// TimeBudget is the solver default as a duration.
func (c Config) TimeBudget() time.Duration {
	return time.Duration(c.Solver.TimeBudgetMs) * time.Millisecond
}

// TierWeight resolves a priority label to its penalty weight. Unknown or
// empty labels fall back to the high tier.
func (c Config) TierWeight(tier string) float64 {
	if w, ok := c.TierWeights[tier]; ok {
		return w
	}
	if w, ok := c.TierWeights["high"]; ok {
		return w
	}
	return 1.0
}
