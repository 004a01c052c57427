package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kickai/kickai/internal/config"
	"github.com/kickai/kickai/internal/fleet"
	"github.com/kickai/kickai/internal/registry"
	"github.com/kickai/kickai/internal/store/memstore"
	"github.com/kickai/kickai/internal/teamcache"
	"github.com/kickai/kickai/internal/validator"
)

func TestSummarizeServiceHealthFlagsOnlyCoreUnhealthy(t *testing.T) {
	results := map[string]registry.ServiceHealth{
		"document_store":  {Status: registry.StatusUnhealthy},
		"player_service":  {Status: registry.StatusHealthy},
		"external_widget": {Status: registry.StatusUnhealthy},
	}
	defs := []config.ServiceDefinition{
		{Name: "document_store", ServiceType: config.ServiceTypeCore},
		{Name: "player_service", ServiceType: config.ServiceTypeFeature},
		{Name: "external_widget", ServiceType: config.ServiceTypeExternal},
	}

	summary := summarizeServiceHealth(results, defs)
	if summary.Healthy != 1 || summary.Unhealthy != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	if len(summary.UnhealthyCoreNames) != 1 || summary.UnhealthyCoreNames[0] != "document_store" {
		t.Fatalf("expected only document_store flagged as unhealthy core, got %v", summary.UnhealthyCoreNames)
	}
}

func TestValidationFailureDescribesLastPhase(t *testing.T) {
	report := validator.Run(context.Background(), []validator.Phase{
		{Name: "one", Run: func(ctx context.Context) validator.PhaseResult { return validator.PhaseResult{Status: validator.StatusOK} }},
		{Name: "two", Run: func(ctx context.Context) validator.PhaseResult { return validator.PhaseResult{Status: validator.StatusFailed, Message: "boom"} }},
	})

	err := validationFailure(report)
	if err == nil {
		t.Fatal("expected a non-nil error")
	}
	if got := err.Error(); got != `phase "two" failed: boom` {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestValidationFailureNoPhases(t *testing.T) {
	if err := validationFailure(validator.Report{}); err == nil {
		t.Fatal("expected an error for an empty report")
	}
}

func TestLoadDotEnvDoesNotOverrideExistingVars(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("FOO=from_file\nBAR=also_from_file\n# comment\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	os.Setenv("FOO", "pre_existing")
	defer os.Unsetenv("FOO")
	defer os.Unsetenv("BAR")

	loadDotEnv(path)

	if got := os.Getenv("FOO"); got != "pre_existing" {
		t.Fatalf("expected existing FOO to survive, got %q", got)
	}
	if got := os.Getenv("BAR"); got != "also_from_file" {
		t.Fatalf("expected BAR to be set from file, got %q", got)
	}
}

func TestLoadDotEnvMissingFileIsANoOp(t *testing.T) {
	loadDotEnv(filepath.Join(t.TempDir(), "does-not-exist.env"))
}

func TestHealthEndpointReportsNoRunningWorkers(t *testing.T) {
	s := memstore.New()
	teams := teamcache.New(s, slog.Default())
	if err := teams.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager := fleet.NewManager(teams, nil, slog.Default(), time.Second)

	srv := newHealthServer(0, manager, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	srv.Handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
	if body["bot_running"] != false {
		t.Fatalf("expected bot_running=false with no workers, got %v", body["bot_running"])
	}
}

func TestHealthDetailedReportsRunningTeamList(t *testing.T) {
	s := memstore.New()
	teams := teamcache.New(s, slog.Default())
	if err := teams.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	manager := fleet.NewManager(teams, nil, slog.Default(), time.Second)

	srv := newHealthServer(0, manager, slog.Default())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/detailed", nil)
	srv.Handler.ServeHTTP(rec, req)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["running_count"] != float64(0) {
		t.Fatalf("expected running_count=0, got %v", body["running_count"])
	}
}

func TestFatalStartupWritesStructuredLineWithoutLogger(t *testing.T) {
	// Only exercised for the nil-logger branch; the logger branch delegates
	// straight to slog and needs no separate assertion here.
	fatalStartup(nil, "E_TEST", errors.New("boom"))
}
