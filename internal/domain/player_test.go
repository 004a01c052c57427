package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
	"github.com/kickai/kickai/internal/store/memstore"
)

func TestAddPlayerThenApprove(t *testing.T) {
	s := memstore.New()
	svc := NewStorePlayerService(s)
	ctx := context.Background()

	p, err := svc.AddPlayer(ctx, "KTI", "+447000000001", "Jane Doe", PositionMidfielder)
	if err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}
	if p.Status != PlayerPending {
		t.Fatalf("expected pending status, got %v", p.Status)
	}

	approved, err := svc.ApprovePlayer(ctx, "KTI", p.ID)
	if err != nil {
		t.Fatalf("ApprovePlayer() error = %v", err)
	}
	if approved.Status != PlayerApproved {
		t.Fatalf("expected approved status, got %v", approved.Status)
	}

	logs, err := s.QueryDocuments(ctx, store.TeamCollection("KTI", store.EntityActivationLogs), nil, store.QueryOptions{})
	if err != nil {
		t.Fatalf("QueryDocuments() error = %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 activation log entries (add + approve), got %d", len(logs))
	}
}

func TestAddPlayerDuplicatePhoneIsConstraintViolation(t *testing.T) {
	s := memstore.New()
	svc := NewStorePlayerService(s)
	ctx := context.Background()

	if _, err := svc.AddPlayer(ctx, "KTI", "+447000000001", "Jane Doe", PositionMidfielder); err != nil {
		t.Fatalf("first AddPlayer() error = %v", err)
	}
	_, err := svc.AddPlayer(ctx, "KTI", "+447000000001", "John Smith", PositionDefender)
	if !errors.Is(err, kerrors.ErrConstraintViolation) {
		t.Fatalf("expected ErrConstraintViolation, got %v", err)
	}
}

func TestGetPlayerByTelegramIDMissingIsNotFound(t *testing.T) {
	s := memstore.New()
	svc := NewStorePlayerService(s)
	_, err := svc.GetPlayerByTelegramID(context.Background(), "KTI", 999)
	if !errors.Is(err, kerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListActivePlayersFiltersByStatus(t *testing.T) {
	s := memstore.New()
	svc := NewStorePlayerService(s)
	ctx := context.Background()
	p, _ := svc.AddPlayer(ctx, "KTI", "+1", "Player One", PositionForward)
	svc.ApprovePlayer(ctx, "KTI", p.ID)

	active, err := svc.ListActivePlayers(ctx, "KTI")
	if err != nil {
		t.Fatalf("ListActivePlayers() error = %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected 0 active players (approved, not active), got %d", len(active))
	}
}
