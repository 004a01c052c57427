package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

// Role enumerates TeamMember roles (§3).
type Role string

const (
	RoleCoach             Role = "coach"
	RoleManager           Role = "manager"
	RoleAssistant         Role = "assistant"
	RoleCoordinator       Role = "coordinator"
	RoleVolunteer         Role = "volunteer"
	RoleAdmin             Role = "admin"
	RoleClubAdministrator Role = "club_administrator"
	RoleTeamManager       Role = "team_manager"
	RoleTeamMember        Role = "team_member"
)

// TeamMember is the in-memory view of a kickai_{team_id}_team_members
// document.
type TeamMember struct {
	ID         string
	TeamID     string
	TelegramID int64
	PhoneNumber string
	FullName   string
	Role       Role
	IsAdmin    bool
}

func teamMemberFromDocument(doc store.Document) TeamMember {
	telegramID, _ := doc["telegram_id"].(int64)
	if telegramID == 0 {
		if f, ok := doc["telegram_id"].(float64); ok {
			telegramID = int64(f)
		}
	}
	isAdmin, _ := doc["is_admin"].(bool)
	return TeamMember{
		ID:          doc.ID(),
		TeamID:      stringField(doc, "team_id"),
		TelegramID:  telegramID,
		PhoneNumber: stringField(doc, "phone_number"),
		FullName:    stringField(doc, "full_name"),
		Role:        Role(stringField(doc, "role")),
		IsAdmin:     isAdmin,
	}
}

// TeamMemberService is the narrow interface the tool layer dispatches
// through for team-member commands.
type TeamMemberService interface {
	RegisterTeamMember(ctx context.Context, teamID string, telegramID int64, phoneNumber, fullName string, role Role) (TeamMember, error)
	GetTeamMemberByTelegramID(ctx context.Context, teamID string, telegramID int64) (TeamMember, error)
	ListTeamMembers(ctx context.Context, teamID string) ([]TeamMember, error)
	AddRole(ctx context.Context, teamID, memberID string, role Role) (TeamMember, error)
	RemoveRole(ctx context.Context, teamID, memberID string) (TeamMember, error)
	PromoteToAdmin(ctx context.Context, teamID, memberID string) (TeamMember, error)
}

// StoreTeamMemberService is the concrete Store Port-backed implementation.
type StoreTeamMemberService struct {
	store store.Port
}

func NewStoreTeamMemberService(s store.Port) *StoreTeamMemberService {
	return &StoreTeamMemberService{store: s}
}

func (s *StoreTeamMemberService) coll(teamID string) string {
	return store.TeamCollection(teamID, store.EntityTeamMembers)
}

func (s *StoreTeamMemberService) RegisterTeamMember(ctx context.Context, teamID string, telegramID int64, phoneNumber, fullName string, role Role) (TeamMember, error) {
	coll := s.coll(teamID)

	existing, err := s.store.QueryDocuments(ctx, coll, []store.Filter{store.Eq("phone_number", phoneNumber)}, store.QueryOptions{})
	if err != nil {
		return TeamMember{}, err
	}
	if len(existing) > 0 {
		return TeamMember{}, fmt.Errorf("%w: a team member with phone number %s already exists on this team", kerrors.ErrConstraintViolation, phoneNumber)
	}

	byTelegramID, err := s.store.QueryDocuments(ctx, coll, []store.Filter{store.Eq("telegram_id", telegramID)}, store.QueryOptions{})
	if err != nil {
		return TeamMember{}, err
	}
	if len(byTelegramID) > 0 {
		return TeamMember{}, fmt.Errorf("%w: a team member with telegram id %d already exists on this team", kerrors.ErrConstraintViolation, telegramID)
	}

	doc := store.Document{
		"team_id":      teamID,
		"telegram_id":  telegramID,
		"phone_number": phoneNumber,
		"full_name":    fullName,
		"role":         string(role),
		"is_admin":     false,
		"created_at":   time.Now().UTC(),
	}
	id, err := s.store.CreateDocument(ctx, coll, doc, "")
	if err != nil {
		return TeamMember{}, err
	}
	doc["id"] = id
	return teamMemberFromDocument(doc), nil
}

func (s *StoreTeamMemberService) GetTeamMemberByTelegramID(ctx context.Context, teamID string, telegramID int64) (TeamMember, error) {
	docs, err := s.store.QueryDocuments(ctx, s.coll(teamID), []store.Filter{store.Eq("telegram_id", telegramID)}, store.QueryOptions{Limit: 1})
	if err != nil {
		return TeamMember{}, err
	}
	if len(docs) == 0 {
		return TeamMember{}, kerrors.ErrNotFound
	}
	return teamMemberFromDocument(docs[0]), nil
}

func (s *StoreTeamMemberService) ListTeamMembers(ctx context.Context, teamID string) ([]TeamMember, error) {
	docs, err := s.store.QueryDocuments(ctx, s.coll(teamID), nil, store.QueryOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]TeamMember, 0, len(docs))
	for _, d := range docs {
		out = append(out, teamMemberFromDocument(d))
	}
	return out, nil
}

func (s *StoreTeamMemberService) AddRole(ctx context.Context, teamID, memberID string, role Role) (TeamMember, error) {
	coll := s.coll(teamID)
	if err := s.store.UpdateDocument(ctx, coll, memberID, store.Document{"role": string(role)}); err != nil {
		return TeamMember{}, err
	}
	doc, err := s.store.GetDocument(ctx, coll, memberID)
	if err != nil {
		return TeamMember{}, err
	}
	return teamMemberFromDocument(doc), nil
}

func (s *StoreTeamMemberService) RemoveRole(ctx context.Context, teamID, memberID string) (TeamMember, error) {
	return s.AddRole(ctx, teamID, memberID, RoleTeamMember)
}

func (s *StoreTeamMemberService) PromoteToAdmin(ctx context.Context, teamID, memberID string) (TeamMember, error) {
	coll := s.coll(teamID)
	if err := s.store.UpdateDocument(ctx, coll, memberID, store.Document{"is_admin": true, "role": string(RoleAdmin)}); err != nil {
		return TeamMember{}, err
	}
	doc, err := s.store.GetDocument(ctx, coll, memberID)
	if err != nil {
		return TeamMember{}, err
	}
	return teamMemberFromDocument(doc), nil
}

// HasCRUD satisfies internal/health's DomainCRUD capability interface.
func (s *StoreTeamMemberService) HasCRUD() bool { return s.store != nil }
