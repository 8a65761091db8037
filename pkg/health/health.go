// Package health tracks the readiness of the portal's backing services.
package health

import (
	"context"
	"sync"
	"time"

	"ai-agent-portal/backend/pkg/logger"
	"ai-agent-portal/backend/shared/redis"
)

// Status represents the health status of a component
type Status string

const (
	// StatusUp indicates a component is working correctly
	StatusUp Status = "up"
	// StatusDown indicates a component is not working
	StatusDown Status = "down"
)

// Component is one checked dependency
type Component struct {
	Name        string    `json:"name"`
	Status      Status    `json:"status"`
	Error       string    `json:"error,omitempty"`
	LastChecked time.Time `json:"last_checked"`
}

// Check probes one dependency
type Check func() error

// Checker runs registered checks periodically and caches the results
type Checker struct {
	mu          sync.RWMutex
	checks      map[string]Check
	components  map[string]*Component
	critical    map[string]bool
	checkPeriod time.Duration
	log         *logger.Logger
}

// NewChecker creates a new health checker
func NewChecker(log *logger.Logger, checkPeriod time.Duration) *Checker {
	return &Checker{
		checks:      make(map[string]Check),
		components:  make(map[string]*Component),
		critical:    make(map[string]bool),
		checkPeriod: checkPeriod,
		log:         log,
	}
}

// Register adds a check. Critical components gate overall health.
func (c *Checker) Register(name string, critical bool, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.checks[name] = check
	c.critical[name] = critical
	c.components[name] = &Component{Name: name, Status: StatusDown}
}

// RegisterDatabase registers the database ping as a critical check
func (c *Checker) RegisterDatabase(ping func() error) {
	c.Register("database", true, ping)
}

// RegisterRedis registers the Redis ping as a non-critical check
func (c *Checker) RegisterRedis(client *redis.Client) {
	c.Register("redis", false, func() error {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		return client.Ping(ctx)
	})
}

// RunChecks executes all registered checks once
func (c *Checker) RunChecks() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for name, check := range c.checks {
		component := c.components[name]
		component.LastChecked = time.Now()

		if err := check(); err != nil {
			component.Status = StatusDown
			component.Error = err.Error()
			c.log.Error("Health check failed", "component", name, "error", err.Error())
			continue
		}
		component.Status = StatusUp
		component.Error = ""
	}
}

// Start runs the checks immediately and then on a ticker
func (c *Checker) Start() {
	go func() {
		c.RunChecks()

		ticker := time.NewTicker(c.checkPeriod)
		defer ticker.Stop()
		for range ticker.C {
			c.RunChecks()
		}
	}()
}

// GetStatus returns a copy of the latest check results
func (c *Checker) GetStatus() map[string]Component {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make(map[string]Component, len(c.components))
	for name, component := range c.components {
		result[name] = *component
	}
	return result
}

// Healthy reports whether every critical component is up
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for name, component := range c.components {
		if c.critical[name] && component.Status == StatusDown {
			return false
		}
	}
	return true
}
