package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Status is the outcome of a health check. Lower values are worse.
type Status int

const (
	StatusUnhealthy Status = iota
	StatusDegraded
	StatusHealthy
)

func (s Status) String() string {
	switch s {
	case StatusHealthy:
		return "Healthy"
	case StatusDegraded:
		return "Degraded"
	default:
		return "Unhealthy"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result is what a single check reports
type Result struct {
	Status      Status
	Description string
	Err         error
}

// Healthy returns a healthy result with an optional description.
func Healthy(description string) Result {
	return Result{Status: StatusHealthy, Description: description}
}

// Degraded returns a degraded result.
func Degraded(description string, err error) Result {
	return Result{Status: StatusDegraded, Description: description, Err: err}
}

// Unhealthy returns an unhealthy result.
func Unhealthy(description string, err error) Result {
	return Result{Status: StatusUnhealthy, Description: description, Err: err}
}

// Check is a named health check. Implementations must honor ctx cancellation.
type Check interface {
	Name() string
	Check(ctx context.Context) Result
}

type checkFunc struct {
	name string
	fn   func(ctx context.Context) Result
}

func (c checkFunc) Name() string                     { return c.name }
func (c checkFunc) Check(ctx context.Context) Result { return c.fn(ctx) }

// CheckFunc adapts a function to the Check interface
func CheckFunc(name string, fn func(ctx context.Context) Result) Check {
	return checkFunc{name: name, fn: fn}
}

// Self reports healthy whenever the process is able to run it.
func Self() Check {
	return CheckFunc("self", func(ctx context.Context) Result {
		return Healthy("process is serving")
	})
}

// Entry is the outcome of one check inside a Report
type Entry struct {
	Status      Status        `json:"status"`
	Description string        `json:"description,omitempty"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

// Report is the aggregate outcome of a registry evaluation
type Report struct {
	Status        Status           `json:"status"`
	TotalDuration time.Duration    `json:"totalDuration"`
	Entries       map[string]Entry `json:"entries"`
	Timestamp     time.Time        `json:"timestamp"`
}

// Registry holds the registered checks
type Registry struct {
	timeout time.Duration
	logger  *zap.Logger

	mu     sync.RWMutex
	checks []Check
}

// NewRegistry creates an empty registry. Each check is bounded by timeout.
func NewRegistry(timeout time.Duration, logger *zap.Logger) *Registry {
	return &Registry{
		timeout: timeout,
		logger:  logger,
	}
}

// Register adds a check. Names must be unique.
func (r *Registry) Register(check Check) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.checks {
		if existing.Name() == check.Name() {
			return fmt.Errorf("health check already registered: %s", check.Name())
		}
	}
	r.checks = append(r.checks, check)

	r.logger.Debug("health check registered", zap.String("check", check.Name()))
	return nil
}

// Names returns the registered check names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.checks))
	for i, c := range r.checks {
		names[i] = c.Name()
	}
	return names
}

// Run evaluates every registered check concurrently. An empty registry is
// healthy.
func (r *Registry) Run(ctx context.Context) *Report {
	r.mu.RLock()
	checks := make([]Check, len(r.checks))
	copy(checks, r.checks)
	r.mu.RUnlock()

	start := time.Now()
	entries := make([]Entry, len(checks))

	var wg sync.WaitGroup
	for i, check := range checks {
		wg.Add(1)
		go func(i int, check Check) {
			defer wg.Done()
			entries[i] = r.runOne(ctx, check)
		}(i, check)
	}
	wg.Wait()

	report := &Report{
		Status:    StatusHealthy,
		Entries:   make(map[string]Entry, len(checks)),
		Timestamp: start,
	}
	for i, check := range checks {
		entry := entries[i]
		report.Entries[check.Name()] = entry
		if entry.Status < report.Status {
			report.Status = entry.Status
		}
	}
	report.TotalDuration = time.Since(start)

	return report
}

// runOne runs a single check. It returns once the check finishes or its
// timeout expires, whichever comes first.
func (r *Registry) runOne(ctx context.Context, check Check) Entry {
	checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	resultCh := make(chan Result, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				resultCh <- Unhealthy("check panicked", fmt.Errorf("panic: %v", rec))
			}
		}()
		resultCh <- check.Check(checkCtx)
	}()

	var result Result
	select {
	case result = <-resultCh:
	case <-checkCtx.Done():
		result = Unhealthy("check did not complete", checkCtx.Err())
	}

	entry := Entry{
		Status:      result.Status,
		Description: result.Description,
		Duration:    time.Since(start),
	}
	if result.Err != nil {
		entry.Error = result.Err.Error()
	}

	if result.Status != StatusHealthy {
		r.logger.Warn("health check not healthy",
			zap.String("check", check.Name()),
			zap.Stringer("status", result.Status),
			zap.Error(result.Err))
	}

	return entry
}
