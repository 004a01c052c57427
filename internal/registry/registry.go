// Package registry implements §4.C: a thread-safe registry of long-lived
// services fronted by per-service circuit breakers, with pluggable health
// check plug-ins and bulk fan-out checking. Grounded on the teacher's
// internal/engine/failover.go CircuitBreaker/FailoverBrain, generalized from
// "LLM provider failover" to "arbitrary named service health" and extended
// with the explicit half-open single-probe state §4.C/§8.7 require (the
// teacher's breaker is a binary tripped/not-tripped gate with no half-open
// probe budget).
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kickai/kickai/internal/config"
	"github.com/kickai/kickai/internal/kerrors"
)

// Status is the health status recorded for a service.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusUnknown   Status = "unknown"
	StatusDisabled  Status = "disabled"
)

// ServiceHealth is the transient, registry-owned health record for a
// service, keyed by name (§3 "ServiceHealth").
type ServiceHealth struct {
	Name         string
	Status       Status
	LastCheck    time.Time
	ResponseTime time.Duration
	ErrorMessage string
	Metadata     map[string]string
}

// Checker is a health-check plug-in. The registry asks each registered
// checker, in registration order, whether it supports a given service name;
// the first match performs the check.
type Checker interface {
	Supports(name string) bool
	Check(ctx context.Context, name string, instance any) ServiceHealth
}

// breakerState is the Closed/Open/Half-Open machine for one service,
// serialized under its own lock per §9 ("the circuit breaker uses a
// separate lock per service").
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

type breaker struct {
	mu              sync.Mutex
	state           breakerState
	consecutiveFail int
	lastFailure     time.Time
	threshold       int
	recoveryTimeout time.Duration
	halfOpenProbe   bool // true while a half-open probe is in flight or has been consumed
}

func newBreaker(threshold int, recovery time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if recovery <= 0 {
		recovery = 60 * time.Second
	}
	return &breaker{threshold: threshold, recoveryTimeout: recovery}
}

// allow reports whether a call may proceed, transitioning Open->Half-Open
// when the recovery timeout has elapsed and reserving the single permitted
// half-open probe.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed:
		return nil
	case breakerOpen:
		if time.Since(b.lastFailure) >= b.recoveryTimeout {
			b.state = breakerHalfOpen
			b.halfOpenProbe = true
			return nil
		}
		return kerrors.ErrCircuitBreakerOpen
	case breakerHalfOpen:
		if b.halfOpenProbe {
			return kerrors.ErrCircuitBreakerOpen
		}
		b.halfOpenProbe = true
		return nil
	default:
		return nil
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.consecutiveFail = 0
	b.halfOpenProbe = false
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lastFailure = time.Now()
	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.halfOpenProbe = false
		return
	}
	b.consecutiveFail++
	if b.consecutiveFail >= b.threshold {
		b.state = breakerOpen
	}
}

// entry is one registered service.
type entry struct {
	def      config.ServiceDefinition
	instance any
	breaker  *breaker
	health   ServiceHealth
}

// Registry is the process-wide singleton service registry (§9: "process-wide
// singletons"). Read paths (Get, List, Stats) may run concurrently; mutating
// paths (Register) are serialized under mu, matching the spec's "reentrant
// lock for mutations, concurrent reads" policy.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*entry
	checkers []Checker

	breakerThreshold int
	breakerRecovery  time.Duration
}

// New constructs an empty Registry configured with the given circuit
// breaker defaults, applied to every service registered without its own
// override.
func New(breakerThreshold int, breakerRecovery time.Duration) *Registry {
	return &Registry{
		services:         make(map[string]*entry),
		breakerThreshold: breakerThreshold,
		breakerRecovery:  breakerRecovery,
	}
}

// RegisterChecker adds a health-check plug-in. Plug-ins are consulted in
// registration order; the first whose Supports(name) is true wins.
func (r *Registry) RegisterChecker(c Checker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, c)
}

// Register adds a service by definition and optional live instance.
// Re-registering the same name replaces the definition/instance but keeps
// the existing breaker and cached health, so an in-flight circuit state
// survives a hot-reload of service definitions (§4.D fsnotify reload).
func (r *Registry) Register(def config.ServiceDefinition, instance any) error {
	if def.Name == "" {
		return fmt.Errorf("%w: service definition has no name", kerrors.ErrServiceRegistration)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.services[def.Name]; ok {
		existing.def = def
		existing.instance = instance
		return nil
	}
	r.services[def.Name] = &entry{
		def:      def,
		instance: instance,
		breaker:  newBreaker(r.breakerThreshold, r.breakerRecovery),
		health:   ServiceHealth{Name: def.Name, Status: StatusUnknown},
	}
	return nil
}

// Get returns the live instance registered under name.
func (r *Registry) Get(name string) (any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", kerrors.ErrServiceNotFound, name)
	}
	return e.instance, nil
}

// List returns every registered service definition.
func (r *Registry) List() []config.ServiceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]config.ServiceDefinition, 0, len(r.services))
	for _, e := range r.services {
		out = append(out, e.def)
	}
	return out
}

// Check runs the health-check protocol for one service: find the first
// supporting checker, invoke it within the definition's timeout, update the
// breaker, cache and return the result.
func (r *Registry) Check(ctx context.Context, name string) (ServiceHealth, error) {
	r.mu.RLock()
	e, ok := r.services[name]
	checkers := r.checkers
	r.mu.RUnlock()
	if !ok {
		return ServiceHealth{}, fmt.Errorf("%w: %s", kerrors.ErrServiceNotFound, name)
	}

	if err := e.breaker.allow(); err != nil {
		health := ServiceHealth{Name: name, Status: StatusUnhealthy, LastCheck: time.Now(), ErrorMessage: "circuit breaker open"}
		r.storeHealth(name, health)
		return health, err
	}

	var checker Checker
	for _, c := range checkers {
		if c.Supports(name) {
			checker = c
			break
		}
	}
	if checker == nil {
		health := ServiceHealth{Name: name, Status: StatusDisabled, LastCheck: time.Now(), ErrorMessage: "no health check plug-in supports this service"}
		r.storeHealth(name, health)
		return health, nil
	}

	timeout := e.def.Timeout()
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		health ServiceHealth
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		done <- result{health: checker.Check(checkCtx, name, e.instance)}
	}()

	var health ServiceHealth
	select {
	case res := <-done:
		health = res.health
		health.ResponseTime = time.Since(start)
	case <-checkCtx.Done():
		health = ServiceHealth{
			Name:         name,
			Status:       StatusUnhealthy,
			ResponseTime: time.Since(start),
			ErrorMessage: fmt.Sprintf("Health check timeout after %ds", int(timeout.Seconds())),
		}
	}
	health.Name = name
	health.LastCheck = time.Now()

	if health.Status == StatusHealthy {
		e.breaker.recordSuccess()
	} else {
		e.breaker.recordFailure()
	}
	r.storeHealth(name, health)
	return health, nil
}

func (r *Registry) storeHealth(name string, health ServiceHealth) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.services[name]; ok {
		e.health = health
	}
}

// CheckAll fans out a concurrent health check across every registered
// service. Per-service failures become unhealthy records in the result map;
// they never propagate as an error (§4.C "Bulk check").
func (r *Registry) CheckAll(ctx context.Context) map[string]ServiceHealth {
	r.mu.RLock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	r.mu.RUnlock()

	results := make(map[string]ServiceHealth, len(names))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, name := range names {
		name := name
		wg.Add(1)
		go func() {
			defer wg.Done()
			health, err := r.Check(ctx, name)
			if err != nil && health.Status == "" {
				health = ServiceHealth{Name: name, Status: StatusUnhealthy, LastCheck: time.Now(), ErrorMessage: err.Error()}
			}
			mu.Lock()
			results[name] = health
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results
}

// Stats aggregates the cached health of every registered service.
type Stats struct {
	Total     int
	Healthy   int
	Unhealthy int
	Unknown   int
	Disabled  int
}

// Stats returns aggregated statistics over the last cached health check of
// each registered service.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var s Stats
	s.Total = len(r.services)
	for _, e := range r.services {
		switch e.health.Status {
		case StatusHealthy:
			s.Healthy++
		case StatusUnhealthy:
			s.Unhealthy++
		case StatusDisabled:
			s.Disabled++
		default:
			s.Unknown++
		}
	}
	return s
}

// LastHealth returns the most recently cached health record for a service
// without performing a new check.
func (r *Registry) LastHealth(name string) (ServiceHealth, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.services[name]
	if !ok {
		return ServiceHealth{}, false
	}
	return e.health, true
}
