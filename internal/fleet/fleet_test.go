package fleet

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
	"github.com/kickai/kickai/internal/store/memstore"
	"github.com/kickai/kickai/internal/teamcache"
)

func seedTeam(t *testing.T, s *memstore.Store, id string, fields map[string]interface{}) {
	t.Helper()
	doc := store.Document{}
	for k, v := range fields {
		doc[k] = v
	}
	if _, err := s.CreateDocument(context.Background(), store.CollTeams, doc, id); err != nil {
		t.Fatalf("seed team %s: %v", id, err)
	}
}

func newTestCache(t *testing.T) *teamcache.Cache {
	t.Helper()
	s := memstore.New()
	seedTeam(t, s, "COMPLETE", map[string]interface{}{
		"name": "Complete FC", "bot_token": "tok", "main_chat_id": "1", "leadership_chat_id": "2",
	})
	seedTeam(t, s, "NOTOKEN", map[string]interface{}{
		"name": "No Token FC", "main_chat_id": "3", "leadership_chat_id": "4",
	})
	seedTeam(t, s, "NOLEAD", map[string]interface{}{
		"name": "No Leadership FC", "bot_token": "tok2", "main_chat_id": "5",
	})

	cache := teamcache.New(s, slog.Default())
	if err := cache.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return cache
}

func TestLoadRefusesIncompleteTeams(t *testing.T) {
	cache := newTestCache(t)
	m := NewManager(cache, nil, nil, time.Second)

	eligible := m.Load()
	if len(eligible) != 1 || eligible[0].ID != "COMPLETE" {
		t.Fatalf("expected only COMPLETE team to be eligible, got %+v", eligible)
	}
}

func TestListRunningEmptyWithNoWorkers(t *testing.T) {
	cache := newTestCache(t)
	m := NewManager(cache, nil, nil, time.Second)

	if running := m.ListRunning(); len(running) != 0 {
		t.Fatalf("expected no running workers, got %v", running)
	}
}

func TestListRunningOnlyCountsRunningState(t *testing.T) {
	cache := newTestCache(t)
	m := NewManager(cache, nil, nil, time.Second)

	running := NewWorker("COMPLETE", "tok", nil, nil)
	running.setState(stateRunning)
	starting := NewWorker("NOTOKEN", "tok", nil, nil)
	starting.setState(stateStarting)

	m.mu.Lock()
	m.workers["COMPLETE"] = running
	m.workers["NOTOKEN"] = starting
	m.mu.Unlock()

	got := m.ListRunning()
	if len(got) != 1 || got[0] != "COMPLETE" {
		t.Fatalf("expected only COMPLETE to be running, got %v", got)
	}
}

func TestStatusUnknownTeamIsNotFound(t *testing.T) {
	cache := newTestCache(t)
	m := NewManager(cache, nil, nil, time.Second)

	_, err := m.Status("GHOST")
	if err != kerrors.ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStatusReportsFailedReason(t *testing.T) {
	cache := newTestCache(t)
	m := NewManager(cache, nil, nil, time.Second)

	m.mu.Lock()
	m.failed["COMPLETE"] = "boom"
	m.mu.Unlock()

	status, err := m.Status("COMPLETE")
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status != "failed: boom" {
		t.Fatalf("expected failed status with reason, got %q", status)
	}
}

func TestWorkerStopIsIdempotentWhenNeverStarted(t *testing.T) {
	w := NewWorker("COMPLETE", "tok", nil, nil)
	w.setState(stateStopped)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() on a never-started worker should be a no-op, got %v", err)
	}
}
