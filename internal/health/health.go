// Package health implements §4.E's health-check plug-ins. Each plug-in is a
// registry.Checker that claims services by name pattern and probes the live
// instance through a small capability interface rather than attribute
// introspection — the REDESIGN FLAGS call this out directly ("duck-typed
// health checks that look for method names -> replace with a capability
// interface: each service advertises which probe it supports; checkers
// dispatch on capability tags rather than attribute introspection"), and Go
// has no duck typing to begin with, so the capability interfaces below are
// the natural rendition. Grounded on the teacher's internal/doctor/doctor.go
// []func(...) CheckResult plug-in list and CheckResult{Name,Status,Message}
// shape, generalized from six fixed checks to pattern-dispatched plug-ins.
package health

import (
	"context"
	"strings"
	"time"

	"github.com/kickai/kickai/internal/registry"
)

// Pinger is the cheapest liveness probe a service can advertise.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnectionTester is preferred over Pinger when a service has one, matching
// the store/external checker preference order in §4.E.
type ConnectionTester interface {
	TestConnection(ctx context.Context) error
}

// StatusReporter covers the "ping/status" fallback for external checkers.
type StatusReporter interface {
	Status(ctx context.Context) error
}

// CRUDCapable is satisfied by any service exposing the Store Port's basic
// document operations — used as the store checker's fallback probe when no
// Pinger/ConnectionTester is present.
type CRUDCapable interface {
	CreateDocument(ctx context.Context, coll string, data map[string]interface{}, id string) (string, error)
	GetDocument(ctx context.Context, coll, id string) (map[string]interface{}, error)
	UpdateDocument(ctx context.Context, coll, id string, patch map[string]interface{}) error
}

// DomainCRUD is satisfied by player/team service implementations that
// expose get/create/update operations over their own entity type.
type DomainCRUD interface {
	HasCRUD() bool
}

// SelfChecker lets a service opt into a fully custom health probe, matching
// the teacher's optional health_check() hook.
type SelfChecker interface {
	HealthCheck(ctx context.Context) error
}

// AgentCreator is the capability an agent/crew/router service advertises
// when it can stand up a throwaway diagnostic agent.
type AgentCreator interface {
	CreateDiagnosticAgent(ctx context.Context) error
}

// RouteProbe is the fallback capability for agent-shaped services that
// cannot create a diagnostic agent but can at least prove their routing
// table is populated.
type RouteProbe interface {
	HasRoutes() bool
}

func respTime(start time.Time) time.Duration { return time.Since(start) }

func unhealthy(name, msg string, meta map[string]string) registry.ServiceHealth {
	return registry.ServiceHealth{Name: name, Status: registry.StatusUnhealthy, ErrorMessage: msg, Metadata: meta}
}

func healthy(name string, meta map[string]string) registry.ServiceHealth {
	return registry.ServiceHealth{Name: name, Status: registry.StatusHealthy, Metadata: meta}
}

// StoreChecker claims any service whose name mentions "store" or "database".
type StoreChecker struct{}

func (StoreChecker) Supports(name string) bool {
	n := strings.ToLower(name)
	return strings.Contains(n, "store") || strings.Contains(n, "database")
}

func (StoreChecker) Check(ctx context.Context, name string, instance any) registry.ServiceHealth {
	start := time.Now()
	meta := map[string]string{"checker": "store"}

	if ct, ok := instance.(ConnectionTester); ok {
		meta["probe"] = "test_connection"
		if err := ct.TestConnection(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}
	if p, ok := instance.(Pinger); ok {
		meta["probe"] = "ping"
		if err := p.Ping(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}
	if _, ok := instance.(CRUDCapable); ok {
		meta["probe"] = "crud_presence"
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}

	meta["probe"] = "none"
	h := unhealthy(name, "store instance exposes no recognized health probe", meta)
	h.ResponseTime = respTime(start)
	return h
}

// DomainChecker claims player/team/match/attendance-shaped services.
type DomainChecker struct{}

func (DomainChecker) Supports(name string) bool {
	n := strings.ToLower(name)
	for _, kw := range []string{"player", "team", "match", "attendance", "payment"} {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

func (DomainChecker) Check(ctx context.Context, name string, instance any) registry.ServiceHealth {
	start := time.Now()
	meta := map[string]string{"checker": "domain"}

	if sc, ok := instance.(SelfChecker); ok {
		meta["probe"] = "health_check"
		if err := sc.HealthCheck(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}
	if dc, ok := instance.(DomainCRUD); ok {
		meta["probe"] = "crud_presence"
		if !dc.HasCRUD() {
			h := unhealthy(name, "service is missing required get/create/update operations", meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}

	meta["probe"] = "presence_only"
	h := healthy(name, meta)
	h.ResponseTime = respTime(start)
	return h
}

// AgentChecker claims agent/crew/router/message-shaped services.
type AgentChecker struct{}

func (AgentChecker) Supports(name string) bool {
	n := strings.ToLower(name)
	for _, kw := range []string{"agent", "crew", "router", "message"} {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

func (AgentChecker) Check(ctx context.Context, name string, instance any) registry.ServiceHealth {
	start := time.Now()
	meta := map[string]string{"checker": "agent"}

	if ac, ok := instance.(AgentCreator); ok {
		meta["probe"] = "create_diagnostic_agent"
		if err := ac.CreateDiagnosticAgent(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}
	if rp, ok := instance.(RouteProbe); ok {
		meta["probe"] = "has_routes"
		if !rp.HasRoutes() {
			h := unhealthy(name, "routing table is empty", meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}

	meta["probe"] = "presence_only"
	h := healthy(name, meta)
	h.ResponseTime = respTime(start)
	return h
}

// ExternalChecker claims telegram/firebase/llm/client/provider-shaped
// services — third-party collaborators outside this process.
type ExternalChecker struct{}

func (ExternalChecker) Supports(name string) bool {
	n := strings.ToLower(name)
	for _, kw := range []string{"telegram", "firebase", "llm", "client", "provider"} {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

func (ExternalChecker) Check(ctx context.Context, name string, instance any) registry.ServiceHealth {
	start := time.Now()
	meta := map[string]string{"checker": "external"}

	if ct, ok := instance.(ConnectionTester); ok {
		meta["probe"] = "test_connection"
		if err := ct.TestConnection(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}
	if p, ok := instance.(Pinger); ok {
		meta["probe"] = "ping"
		if err := p.Ping(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}
	if sr, ok := instance.(StatusReporter); ok {
		meta["probe"] = "status"
		if err := sr.Status(ctx); err != nil {
			h := unhealthy(name, err.Error(), meta)
			h.ResponseTime = respTime(start)
			return h
		}
		h := healthy(name, meta)
		h.ResponseTime = respTime(start)
		return h
	}

	meta["probe"] = "none"
	h := unhealthy(name, "external service exposes no recognized health probe", meta)
	h.ResponseTime = respTime(start)
	return h
}

// DefaultCheckers returns the four required plug-ins in the order §4.E
// lists them. Order matters: the registry dispatches to the first Supports
// match, and a name can in principle satisfy more than one keyword set.
func DefaultCheckers() []registry.Checker {
	return []registry.Checker{
		StoreChecker{},
		DomainChecker{},
		AgentChecker{},
		ExternalChecker{},
	}
}
