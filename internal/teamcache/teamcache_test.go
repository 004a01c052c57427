package teamcache

import (
	"context"
	"errors"
	"testing"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
	"github.com/kickai/kickai/internal/store/memstore"
)

func seedTeam(t *testing.T, s store.Port, id, name, token, mainChat, leadershipChat string) {
	t.Helper()
	_, err := s.CreateDocument(context.Background(), store.CollTeams, store.Document{
		"name":                 name,
		"bot_token":            token,
		"main_chat_id":         mainChat,
		"leadership_chat_id":   leadershipChat,
	}, id)
	if err != nil {
		t.Fatalf("seed team: %v", err)
	}
}

func TestInitializeThenGetTeamIsO1NoIO(t *testing.T) {
	s := memstore.New()
	seedTeam(t, s, "KTI", "KickAI Testing Inc", "111:abc", "-100111", "-100222")

	c := New(s, nil)
	if err := c.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !c.IsInitialized() {
		t.Fatal("expected IsInitialized() true after Initialize")
	}

	team, err := c.GetTeam("KTI")
	if err != nil {
		t.Fatalf("GetTeam() error = %v", err)
	}
	if team.BotToken != "111:abc" || team.MainChatID != "-100111" {
		t.Fatalf("unexpected team: %+v", team)
	}
}

func TestGetTeamNameFallsBackToID(t *testing.T) {
	s := memstore.New()
	seedTeam(t, s, "KTI", "", "", "", "")
	c := New(s, nil)
	c.Initialize(context.Background())

	if got := c.GetTeamName("KTI"); got != "KTI" {
		t.Fatalf("GetTeamName() = %q, want fallback to id", got)
	}
}

func TestGetTeamMissIsNotFound(t *testing.T) {
	s := memstore.New()
	c := New(s, nil)
	c.Initialize(context.Background())

	_, err := c.GetTeam("missing")
	if !errors.Is(err, kerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRefreshTeamReplacesEntryAtomically(t *testing.T) {
	s := memstore.New()
	seedTeam(t, s, "KTI", "Old Name", "old-token", "-1", "-2")
	c := New(s, nil)
	c.Initialize(context.Background())

	s.UpdateDocument(context.Background(), store.CollTeams, "KTI", store.Document{"name": "New Name", "bot_token": "new-token"})

	if err := c.RefreshTeam(context.Background(), "KTI"); err != nil {
		t.Fatalf("RefreshTeam() error = %v", err)
	}
	team, _ := c.GetTeam("KTI")
	if team.Name != "New Name" || team.BotToken != "new-token" {
		t.Fatalf("expected refreshed team, got %+v", team)
	}
}

func TestGetAllTeamIDs(t *testing.T) {
	s := memstore.New()
	seedTeam(t, s, "A", "Team A", "t", "-1", "-2")
	seedTeam(t, s, "B", "Team B", "t", "-3", "-4")
	c := New(s, nil)
	c.Initialize(context.Background())

	ids := c.GetAllTeamIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
}
