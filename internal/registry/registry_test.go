package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kickai/kickai/internal/config"
	"github.com/kickai/kickai/internal/kerrors"
)

type stubChecker struct {
	name   string
	status Status
	delay  time.Duration
}

func (c stubChecker) Supports(name string) bool { return name == c.name }

func (c stubChecker) Check(ctx context.Context, name string, instance any) ServiceHealth {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ServiceHealth{Status: StatusUnhealthy, ErrorMessage: "context cancelled"}
		}
	}
	return ServiceHealth{Status: c.status}
}

func TestGetUnknownServiceIsNotFound(t *testing.T) {
	r := New(3, time.Minute)
	_, err := r.Get("nope")
	if !errors.Is(err, kerrors.ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestRegisterThenGetRoundTrips(t *testing.T) {
	r := New(3, time.Minute)
	if err := r.Register(config.ServiceDefinition{Name: "player_service"}, "instance"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	got, err := r.Get("player_service")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "instance" {
		t.Fatalf("expected instance, got %v", got)
	}
}

func TestCheckNoSupportingCheckerIsDisabled(t *testing.T) {
	r := New(3, time.Minute)
	r.Register(config.ServiceDefinition{Name: "svc"}, nil)

	health, err := r.Check(context.Background(), "svc")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if health.Status != StatusDisabled {
		t.Fatalf("expected disabled, got %v", health.Status)
	}
}

func TestCheckTimeoutProducesUnhealthy(t *testing.T) {
	r := New(3, time.Minute)
	r.Register(config.ServiceDefinition{Name: "svc", TimeoutSeconds: 0 /* default 10s, but we expire the context short */}, nil)
	r.RegisterChecker(stubChecker{name: "svc", status: StatusHealthy, delay: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Millisecond)
	defer cancel()

	health, err := r.Check(ctx, "svc")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if health.Status != StatusUnhealthy {
		t.Fatalf("expected unhealthy on timeout, got %v", health.Status)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	r := New(3, 50*time.Millisecond)
	r.Register(config.ServiceDefinition{Name: "flaky", TimeoutSeconds: 1}, nil)
	r.RegisterChecker(stubChecker{name: "flaky", status: StatusUnhealthy})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		health, err := r.Check(ctx, "flaky")
		if err != nil {
			t.Fatalf("Check() #%d unexpected error = %v", i, err)
		}
		if health.Status != StatusUnhealthy {
			t.Fatalf("Check() #%d expected unhealthy, got %v", i, health.Status)
		}
	}

	_, err := r.Check(ctx, "flaky")
	if !errors.Is(err, kerrors.ErrCircuitBreakerOpen) {
		t.Fatalf("expected ErrCircuitBreakerOpen on 4th call, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)

	health, err := r.Check(ctx, "flaky")
	if err != nil {
		t.Fatalf("expected half-open probe to be allowed, got error %v", err)
	}
	if health.Status != StatusUnhealthy {
		t.Fatalf("expected the probe itself to still report unhealthy, got %v", health.Status)
	}
}

func TestCircuitBreakerHalfOpenSuccessCloses(t *testing.T) {
	r := New(2, 20*time.Millisecond)
	r.Register(config.ServiceDefinition{Name: "recovering", TimeoutSeconds: 1}, nil)

	status := StatusUnhealthy
	r.RegisterChecker(checkerFunc{name: "recovering", fn: func() Status { return status }})

	ctx := context.Background()
	r.Check(ctx, "recovering")
	if _, err := r.Check(ctx, "recovering"); err != nil {
		t.Fatalf("unexpected error before breaker opens: %v", err)
	}

	if _, err := r.Check(ctx, "recovering"); !errors.Is(err, kerrors.ErrCircuitBreakerOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}

	time.Sleep(30 * time.Millisecond)
	status = StatusHealthy
	health, err := r.Check(ctx, "recovering")
	if err != nil {
		t.Fatalf("expected half-open probe allowed, got %v", err)
	}
	if health.Status != StatusHealthy {
		t.Fatalf("expected healthy probe result, got %v", health.Status)
	}

	if _, err := r.Check(ctx, "recovering"); err != nil {
		t.Fatalf("expected breaker closed after successful probe, got %v", err)
	}
}

type checkerFunc struct {
	name string
	fn   func() Status
}

func (c checkerFunc) Supports(name string) bool { return name == c.name }

func (c checkerFunc) Check(ctx context.Context, name string, instance any) ServiceHealth {
	return ServiceHealth{Status: c.fn()}
}

func TestCheckAllIsolatesFailures(t *testing.T) {
	r := New(3, time.Minute)
	r.Register(config.ServiceDefinition{Name: "good"}, nil)
	r.Register(config.ServiceDefinition{Name: "bad"}, nil)
	r.RegisterChecker(stubChecker{name: "good", status: StatusHealthy})
	r.RegisterChecker(stubChecker{name: "bad", status: StatusUnhealthy})

	results := r.CheckAll(context.Background())
	if results["good"].Status != StatusHealthy {
		t.Fatalf("expected good to be healthy, got %v", results["good"].Status)
	}
	if results["bad"].Status != StatusUnhealthy {
		t.Fatalf("expected bad to be unhealthy, got %v", results["bad"].Status)
	}
}

func TestStatsAggregates(t *testing.T) {
	r := New(3, time.Minute)
	r.Register(config.ServiceDefinition{Name: "good"}, nil)
	r.Register(config.ServiceDefinition{Name: "bad"}, nil)
	r.RegisterChecker(stubChecker{name: "good", status: StatusHealthy})
	r.RegisterChecker(stubChecker{name: "bad", status: StatusUnhealthy})
	r.CheckAll(context.Background())

	stats := r.Stats()
	if stats.Total != 2 || stats.Healthy != 1 || stats.Unhealthy != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}
