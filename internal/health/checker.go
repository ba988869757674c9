// Package health runs periodic checks over the store and the coordinator
// and exposes the latest results to the API.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/algorand/go-deadlock"
	"github.com/sirupsen/logrus"

	"github.com/pobal-network/pobal/internal/domain"
	"github.com/pobal-network/pobal/internal/infra/metrics"
)

// Check defines a single health check with optional recovery action.
type Check struct {
	Name      string
	CheckFn   func(ctx context.Context) error
	RecoverFn func(ctx context.Context) error
}

// Status represents the result of a health check.
type Status struct {
	Name      string    `json:"name"`
	Healthy   bool      `json:"healthy"`
	Error     string    `json:"error,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}

// Store is the part of the backend the checks need.
type Store interface {
	Ping() error
	PoolBalance() (domain.Balance, error)
}

// Coordinator is the part of the engine the checks need.
type Coordinator interface {
	CheckConsistency() error
	Liabilities() (domain.Balance, error)
}

// Checker runs periodic health checks.
type Checker struct {
	mu       deadlock.RWMutex
	checks   []Check
	statuses []Status
	interval time.Duration
	log      *logrus.Entry
	now      func() time.Time
}

// NewChecker creates a checker with the sqlite, registry and treasury checks.
func NewChecker(store Store, coord Coordinator, log *logrus.Entry) *Checker {
	return &Checker{
		interval: 60 * time.Second,
		log:      log,
		now:      time.Now,
		checks: []Check{
			{
				Name:    "sqlite",
				CheckFn: func(ctx context.Context) error { return store.Ping() },
			},
			{
				Name:    "registries",
				CheckFn: func(ctx context.Context) error { return coord.CheckConsistency() },
			},
			{
				Name: "treasury",
				CheckFn: func(ctx context.Context) error {
					return checkSolvency(store, coord)
				},
			},
		},
	}
}

// AddCheck registers an extra check.
func (c *Checker) AddCheck(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks = append(c.checks, check)
}

// Run starts the health check loop. Call in a goroutine.
func (c *Checker) Run(ctx context.Context) {
	c.RunOnce(ctx)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce runs every check and records the results.
func (c *Checker) RunOnce(ctx context.Context) {
	c.mu.RLock()
	checks := append([]Check(nil), c.checks...)
	c.mu.RUnlock()

	statuses := make([]Status, len(checks))
	for i, check := range checks {
		s := Status{Name: check.Name, CheckedAt: c.now()}
		if err := check.CheckFn(ctx); err != nil {
			s.Error = err.Error()
			c.log.WithField("check", check.Name).WithError(err).Warn("health check failed")
			if check.RecoverFn != nil {
				if rerr := check.RecoverFn(ctx); rerr != nil {
					c.log.WithField("check", check.Name).WithError(rerr).Error("recovery failed")
				}
			}
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		} else {
			s.Healthy = true
			metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
		}
		statuses[i] = s
	}

	c.mu.Lock()
	c.statuses = statuses
	c.mu.Unlock()
}

// Statuses returns the latest health check results.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]Status, len(c.statuses))
	copy(result, c.statuses)
	return result
}

// IsHealthy returns true if all checks pass.
func (c *Checker) IsHealthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.statuses {
		if !s.Healthy {
			return false
		}
	}
	return true
}

// ─── Check Implementations ──────────────────────────────────────────────────

// checkSolvency fails when the pool holds less than the coordinator owes.
func checkSolvency(store Store, coord Coordinator) error {
	owed, err := coord.Liabilities()
	if err != nil {
		return fmt.Errorf("liabilities: %w", err)
	}
	pool, err := store.PoolBalance()
	if err != nil {
		return fmt.Errorf("pool balance: %w", err)
	}
	if pool < owed {
		return fmt.Errorf("pool holds %d, coordinator owes %d", pool, owed)
	}
	return nil
}
