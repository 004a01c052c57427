// Package domain implements the narrow, in-scope-just-enough player/team
// member/match/communication services that §1 names as external
// collaborators but that the router and tool dispatch layers need a
// concrete implementation of to be testable end to end (§8's scenarios).
// No teacher file has an equivalent domain; these are grounded on the
// Store Port's own shape (internal/store) and the activation-log/
// invite-redemption supplement carried over from original_source/.
package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

// Position enumerates valid player positions (§3).
type Position string

const (
	PositionGoalkeeper Position = "goalkeeper"
	PositionDefender   Position = "defender"
	PositionMidfielder Position = "midfielder"
	PositionForward    Position = "forward"
	PositionUtility    Position = "utility"
)

// PlayerStatus enumerates the player lifecycle (§3).
type PlayerStatus string

const (
	PlayerPending  PlayerStatus = "pending"
	PlayerApproved PlayerStatus = "approved"
	PlayerActive   PlayerStatus = "active"
	PlayerInactive PlayerStatus = "inactive"
	PlayerRejected PlayerStatus = "rejected"
)

// Player is the in-memory view of a kickai_{team_id}_players document.
type Player struct {
	ID          string
	TeamID      string
	TelegramID  int64
	PhoneNumber string
	FullName    string
	Position    Position
	Status      PlayerStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func playerFromDocument(doc store.Document) Player {
	telegramID, _ := doc["telegram_id"].(int64)
	if telegramID == 0 {
		if f, ok := doc["telegram_id"].(float64); ok {
			telegramID = int64(f)
		}
	}
	return Player{
		ID:          doc.ID(),
		TeamID:      stringField(doc, "team_id"),
		TelegramID:  telegramID,
		PhoneNumber: stringField(doc, "phone_number"),
		FullName:    stringField(doc, "full_name"),
		Position:    Position(stringField(doc, "position")),
		Status:      PlayerStatus(stringField(doc, "status")),
	}
}

func stringField(doc store.Document, key string) string {
	v, _ := doc[key].(string)
	return v
}

// PlayerService is the narrow interface the tool layer dispatches through
// (§4.J "Obtain the relevant domain service via the service registry").
type PlayerService interface {
	AddPlayer(ctx context.Context, teamID, phoneNumber, fullName string, position Position) (Player, error)
	ApprovePlayer(ctx context.Context, teamID, playerID string) (Player, error)
	RejectPlayer(ctx context.Context, teamID, playerID string) (Player, error)
	GetPlayerByTelegramID(ctx context.Context, teamID string, telegramID int64) (Player, error)
	GetPlayerByID(ctx context.Context, teamID, playerID string) (Player, error)
	ListAllPlayers(ctx context.Context, teamID string) ([]Player, error)
	ListActivePlayers(ctx context.Context, teamID string) ([]Player, error)
}

// StorePlayerService is the concrete Store Port-backed implementation.
type StorePlayerService struct {
	store store.Port
}

// NewStorePlayerService builds a PlayerService over the given Store Port.
func NewStorePlayerService(s store.Port) *StorePlayerService {
	return &StorePlayerService{store: s}
}

func (s *StorePlayerService) playersColl(teamID string) string {
	return store.TeamCollection(teamID, store.EntityPlayers)
}

func (s *StorePlayerService) activationLogColl(teamID string) string {
	return store.TeamCollection(teamID, store.EntityActivationLogs)
}

// AddPlayer enforces the at-most-one-player-per-phone-number invariant
// (§3) before writing a new pending player document.
func (s *StorePlayerService) AddPlayer(ctx context.Context, teamID, phoneNumber, fullName string, position Position) (Player, error) {
	coll := s.playersColl(teamID)

	existing, err := s.store.QueryDocuments(ctx, coll, []store.Filter{store.Eq("phone_number", phoneNumber)}, store.QueryOptions{})
	if err != nil {
		return Player{}, err
	}
	if len(existing) > 0 {
		return Player{}, fmt.Errorf("%w: a player with phone number %s already exists on this team", kerrors.ErrConstraintViolation, phoneNumber)
	}

	now := time.Now().UTC()
	doc := store.Document{
		"team_id":      teamID,
		"phone_number": phoneNumber,
		"full_name":    fullName,
		"position":     string(position),
		"status":       string(PlayerPending),
		"created_at":   now,
		"updated_at":   now,
	}
	id, err := s.store.CreateDocument(ctx, coll, doc, "")
	if err != nil {
		return Player{}, err
	}
	doc["id"] = id

	s.writeActivationLog(ctx, teamID, id, "", string(PlayerPending))
	return playerFromDocument(doc), nil
}

// ApprovePlayer transitions a pending player to approved and writes an
// activation log entry (supplemented feature, see SPEC_FULL.md).
func (s *StorePlayerService) ApprovePlayer(ctx context.Context, teamID, playerID string) (Player, error) {
	coll := s.playersColl(teamID)
	doc, err := s.store.GetDocument(ctx, coll, playerID)
	if err != nil {
		return Player{}, err
	}
	previous := stringField(doc, "status")

	patch := store.Document{"status": string(PlayerApproved), "updated_at": time.Now().UTC()}
	if err := s.store.UpdateDocument(ctx, coll, playerID, patch); err != nil {
		return Player{}, err
	}
	updated, err := s.store.GetDocument(ctx, coll, playerID)
	if err != nil {
		return Player{}, err
	}

	s.writeActivationLog(ctx, teamID, playerID, previous, string(PlayerApproved))
	return playerFromDocument(updated), nil
}

// RejectPlayer transitions a pending player to rejected and writes an
// activation log entry, the mirror path of ApprovePlayer.
func (s *StorePlayerService) RejectPlayer(ctx context.Context, teamID, playerID string) (Player, error) {
	coll := s.playersColl(teamID)
	doc, err := s.store.GetDocument(ctx, coll, playerID)
	if err != nil {
		return Player{}, err
	}
	previous := stringField(doc, "status")

	patch := store.Document{"status": string(PlayerRejected), "updated_at": time.Now().UTC()}
	if err := s.store.UpdateDocument(ctx, coll, playerID, patch); err != nil {
		return Player{}, err
	}
	updated, err := s.store.GetDocument(ctx, coll, playerID)
	if err != nil {
		return Player{}, err
	}

	s.writeActivationLog(ctx, teamID, playerID, previous, string(PlayerRejected))
	return playerFromDocument(updated), nil
}

func (s *StorePlayerService) writeActivationLog(ctx context.Context, teamID, playerID, from, to string) {
	_, _ = s.store.CreateDocument(ctx, s.activationLogColl(teamID), store.Document{
		"entity_id":  playerID,
		"entity":     "player",
		"from":       from,
		"to":         to,
		"changed_at": time.Now().UTC(),
	}, "")
}

func (s *StorePlayerService) GetPlayerByTelegramID(ctx context.Context, teamID string, telegramID int64) (Player, error) {
	docs, err := s.store.QueryDocuments(ctx, s.playersColl(teamID), []store.Filter{store.Eq("telegram_id", telegramID)}, store.QueryOptions{Limit: 1})
	if err != nil {
		return Player{}, err
	}
	if len(docs) == 0 {
		return Player{}, kerrors.ErrNotFound
	}
	return playerFromDocument(docs[0]), nil
}

func (s *StorePlayerService) GetPlayerByID(ctx context.Context, teamID, playerID string) (Player, error) {
	doc, err := s.store.GetDocument(ctx, s.playersColl(teamID), playerID)
	if err != nil {
		return Player{}, err
	}
	return playerFromDocument(doc), nil
}

func (s *StorePlayerService) ListAllPlayers(ctx context.Context, teamID string) ([]Player, error) {
	docs, err := s.store.QueryDocuments(ctx, s.playersColl(teamID), nil, store.QueryOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]Player, 0, len(docs))
	for _, d := range docs {
		out = append(out, playerFromDocument(d))
	}
	return out, nil
}

func (s *StorePlayerService) ListActivePlayers(ctx context.Context, teamID string) ([]Player, error) {
	docs, err := s.store.QueryDocuments(ctx, s.playersColl(teamID), []store.Filter{store.Eq("status", string(PlayerActive))}, store.QueryOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]Player, 0, len(docs))
	for _, d := range docs {
		out = append(out, playerFromDocument(d))
	}
	return out, nil
}

// HasCRUD satisfies internal/health's DomainCRUD capability interface.
func (s *StorePlayerService) HasCRUD() bool { return s.store != nil }
