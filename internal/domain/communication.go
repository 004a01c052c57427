package domain

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

// InviteStatus enumerates InviteLink lifecycle states (§3).
type InviteStatus string

const (
	InviteActive  InviteStatus = "active"
	InviteUsed    InviteStatus = "used"
	InviteExpired InviteStatus = "expired"
	InviteRevoked InviteStatus = "revoked"
)

// InviteLink is the in-memory view of an invite document.
type InviteLink struct {
	ID          string
	TeamID      string
	SecureToken string
	ExpiresAt   time.Time
	Status      InviteStatus
	PlayerID    string
	MemberID    string
}

// Sender is the narrow collaborator a CommunicationService uses to deliver
// text to a chat. The concrete transport (Telegram) lives in internal/fleet
// and is injected here, keeping domain free of any transport import.
type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// CommunicationService is the narrow interface the tool layer dispatches
// through for messaging commands.
type CommunicationService interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendAnnouncement(ctx context.Context, chatID int64, title, body string) error
	SendPoll(ctx context.Context, chatID int64, question string, options []string) error
	GetInviteLink(ctx context.Context, teamID string, targetPlayerID, targetMemberID string, ttl time.Duration) (InviteLink, error)
	RedeemInviteLink(ctx context.Context, teamID, token string, telegramID int64) (InviteLink, error)
}

// StoreCommunicationService is the concrete implementation, backed by the
// Store Port for invite links and a Sender for outbound delivery.
type StoreCommunicationService struct {
	store  store.Port
	sender Sender
}

func NewStoreCommunicationService(s store.Port, sender Sender) *StoreCommunicationService {
	return &StoreCommunicationService{store: s, sender: sender}
}

func (s *StoreCommunicationService) SendMessage(ctx context.Context, chatID int64, text string) error {
	if s.sender == nil {
		return kerrors.ErrServiceNotFound
	}
	return s.sender.SendText(ctx, chatID, text)
}

func (s *StoreCommunicationService) SendAnnouncement(ctx context.Context, chatID int64, title, body string) error {
	return s.SendMessage(ctx, chatID, fmt.Sprintf("📢 %s\n\n%s", title, body))
}

func (s *StoreCommunicationService) SendPoll(ctx context.Context, chatID int64, question string, options []string) error {
	text := "🗳 " + question
	for i, opt := range options {
		text += fmt.Sprintf("\n%d. %s", i+1, opt)
	}
	return s.SendMessage(ctx, chatID, text)
}

func newSecureToken() string {
	buf := make([]byte, 24)
	_, _ = rand.Read(buf)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf)
}

func (s *StoreCommunicationService) inviteColl(teamID string) string {
	return store.TeamCollection(teamID, store.EntityInviteLinks)
}

// GetInviteLink creates a single-use invite token valid for ttl, satisfying
// the ≥32-char secure_token invariant (§3).
func (s *StoreCommunicationService) GetInviteLink(ctx context.Context, teamID, targetPlayerID, targetMemberID string, ttl time.Duration) (InviteLink, error) {
	token := newSecureToken()
	doc := store.Document{
		"team_id":      teamID,
		"secure_token": token,
		"expires_at":   time.Now().UTC().Add(ttl),
		"status":       string(InviteActive),
		"player_id":    targetPlayerID,
		"member_id":    targetMemberID,
	}
	id, err := s.store.CreateDocument(ctx, s.inviteColl(teamID), doc, "")
	if err != nil {
		return InviteLink{}, err
	}
	doc["id"] = id
	return inviteFromDocument(doc), nil
}

// RedeemInviteLink is the supplemented consumption path (see SPEC_FULL.md):
// marks a matching, unexpired, active link `used` and binds telegramID.
func (s *StoreCommunicationService) RedeemInviteLink(ctx context.Context, teamID, token string, telegramID int64) (InviteLink, error) {
	coll := s.inviteColl(teamID)
	docs, err := s.store.QueryDocuments(ctx, coll, []store.Filter{store.Eq("secure_token", token)}, store.QueryOptions{Limit: 1})
	if err != nil {
		return InviteLink{}, err
	}
	if len(docs) == 0 {
		return InviteLink{}, kerrors.ErrNotFound
	}
	link := inviteFromDocument(docs[0])

	if link.Status != InviteActive {
		return InviteLink{}, fmt.Errorf("%w: invite link is %s, not active", kerrors.ErrValidation, link.Status)
	}
	if time.Now().UTC().After(link.ExpiresAt) {
		_ = s.store.UpdateDocument(ctx, coll, link.ID, store.Document{"status": string(InviteExpired)})
		return InviteLink{}, fmt.Errorf("%w: invite link has expired", kerrors.ErrValidation)
	}

	if err := s.store.UpdateDocument(ctx, coll, link.ID, store.Document{
		"status":      string(InviteUsed),
		"telegram_id": telegramID,
	}); err != nil {
		return InviteLink{}, err
	}
	link.Status = InviteUsed
	return link, nil
}

// timeField reads a time.Time value that may have round-tripped through a
// JSON-backed store (sqlitestore) as an RFC3339 string rather than surviving
// as a native time.Time (memstore).
func timeField(doc store.Document, key string) time.Time {
	if t, ok := doc[key].(time.Time); ok {
		return t
	}
	if s, ok := doc[key].(string); ok {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func inviteFromDocument(doc store.Document) InviteLink {
	expiresAt := timeField(doc, "expires_at")
	return InviteLink{
		ID:          doc.ID(),
		TeamID:      stringField(doc, "team_id"),
		SecureToken: stringField(doc, "secure_token"),
		ExpiresAt:   expiresAt,
		Status:      InviteStatus(stringField(doc, "status")),
		PlayerID:    stringField(doc, "player_id"),
		MemberID:    stringField(doc, "member_id"),
	}
}

// TestConnection satisfies internal/health's ConnectionTester capability
// interface for the communication service's external (Sender) dependency.
func (s *StoreCommunicationService) TestConnection(ctx context.Context) error {
	if s.sender == nil {
		return kerrors.ErrServiceNotFound
	}
	return nil
}
