package sqlitestore

import (
	"context"
	"errors"
	"testing"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	id, err := s.CreateDocument(ctx, store.CollTeams, store.Document{"name": "KickAI Testing Inc"}, "KTI")
	if err != nil {
		t.Fatalf("CreateDocument() error = %v", err)
	}
	if id != "KTI" {
		t.Fatalf("expected supplied id to be used, got %q", id)
	}

	doc, err := s.GetDocument(ctx, store.CollTeams, id)
	if err != nil {
		t.Fatalf("GetDocument() error = %v", err)
	}
	if doc["name"] != "KickAI Testing Inc" {
		t.Fatalf("round trip mismatch: %+v", doc)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetDocument(context.Background(), store.CollTeams, "nope")
	if !errors.Is(err, kerrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryDocumentsFiltersByTeam(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	coll := store.TeamCollection("KTI", store.EntityPlayers)
	s.CreateDocument(ctx, coll, store.Document{"team_id": "KTI", "phone_number": "+1"}, "")
	s.CreateDocument(ctx, coll, store.Document{"team_id": "KTI", "phone_number": "+2"}, "")

	docs, err := s.QueryDocuments(ctx, coll, []store.Filter{store.Eq("phone_number", "+2")}, store.QueryOptions{})
	if err != nil {
		t.Fatalf("QueryDocuments() error = %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 doc, got %d", len(docs))
	}
}

func TestPing(t *testing.T) {
	s := openTestStore(t)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}
