package domain

import (
	"context"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

// AttendanceStatus enumerates a player's recorded status for one match.
type AttendanceStatus string

const (
	AttendanceAvailable   AttendanceStatus = "available"
	AttendanceUnavailable AttendanceStatus = "unavailable"
	AttendancePresent     AttendanceStatus = "present"
	AttendanceAbsent      AttendanceStatus = "absent"
)

// Attendance is one player's recorded status for one match.
type Attendance struct {
	ID       string
	TeamID   string
	MatchID  string
	PlayerID string
	Status   AttendanceStatus
	RecordedAt time.Time
}

func attendanceFromDocument(doc store.Document) Attendance {
	recordedAt, _ := doc["recorded_at"].(time.Time)
	return Attendance{
		ID:         doc.ID(),
		TeamID:     stringField(doc, "team_id"),
		MatchID:    stringField(doc, "match_id"),
		PlayerID:   stringField(doc, "player_id"),
		Status:     AttendanceStatus(stringField(doc, "status")),
		RecordedAt: recordedAt,
	}
}

// MatchService is the narrow interface the tool layer dispatches through
// for match/attendance commands.
type MatchService interface {
	RecordAttendance(ctx context.Context, teamID, matchID, playerID string, status AttendanceStatus) (Attendance, error)
	BulkRecordAttendance(ctx context.Context, teamID, matchID string, statuses map[string]AttendanceStatus) ([]Attendance, error)
	GetMatchAttendance(ctx context.Context, teamID, matchID string) ([]Attendance, error)
	GetPlayerAttendanceHistory(ctx context.Context, teamID, playerID string) ([]Attendance, error)
	GetAvailablePlayersForMatch(ctx context.Context, teamID, matchID string) ([]string, error)
	SelectSquad(ctx context.Context, teamID, matchID string, playerIDs []string, size int) ([]string, error)
}

const entityAttendance = "attendance"

// StoreMatchService is the concrete Store Port-backed implementation.
type StoreMatchService struct {
	store store.Port
}

func NewStoreMatchService(s store.Port) *StoreMatchService {
	return &StoreMatchService{store: s}
}

func (s *StoreMatchService) coll(teamID string) string {
	return store.TeamCollection(teamID, entityAttendance)
}

func (s *StoreMatchService) RecordAttendance(ctx context.Context, teamID, matchID, playerID string, status AttendanceStatus) (Attendance, error) {
	doc := store.Document{
		"team_id":     teamID,
		"match_id":    matchID,
		"player_id":   playerID,
		"status":      string(status),
		"recorded_at": time.Now().UTC(),
	}
	id, err := s.store.CreateDocument(ctx, s.coll(teamID), doc, "")
	if err != nil {
		return Attendance{}, err
	}
	doc["id"] = id
	return attendanceFromDocument(doc), nil
}

func (s *StoreMatchService) BulkRecordAttendance(ctx context.Context, teamID, matchID string, statuses map[string]AttendanceStatus) ([]Attendance, error) {
	out := make([]Attendance, 0, len(statuses))
	for playerID, status := range statuses {
		a, err := s.RecordAttendance(ctx, teamID, matchID, playerID, status)
		if err != nil {
			return out, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *StoreMatchService) GetMatchAttendance(ctx context.Context, teamID, matchID string) ([]Attendance, error) {
	docs, err := s.store.QueryDocuments(ctx, s.coll(teamID), []store.Filter{store.Eq("match_id", matchID)}, store.QueryOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]Attendance, 0, len(docs))
	for _, d := range docs {
		out = append(out, attendanceFromDocument(d))
	}
	return out, nil
}

func (s *StoreMatchService) GetPlayerAttendanceHistory(ctx context.Context, teamID, playerID string) ([]Attendance, error) {
	docs, err := s.store.QueryDocuments(ctx, s.coll(teamID), []store.Filter{store.Eq("player_id", playerID)}, store.QueryOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]Attendance, 0, len(docs))
	for _, d := range docs {
		out = append(out, attendanceFromDocument(d))
	}
	return out, nil
}

func (s *StoreMatchService) GetAvailablePlayersForMatch(ctx context.Context, teamID, matchID string) ([]string, error) {
	docs, err := s.store.QueryDocuments(ctx, s.coll(teamID), []store.Filter{
		store.Eq("match_id", matchID),
		store.Eq("status", string(AttendanceAvailable)),
	}, store.QueryOptions{})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, stringField(d, "player_id"))
	}
	return out, nil
}

// SelectSquad takes the first `size` available candidates, in the order
// supplied, as a deterministic placeholder for real squad-selection logic
// (which is explicitly out of scope per §1 — "does not implement football
// domain logic").
func (s *StoreMatchService) SelectSquad(ctx context.Context, teamID, matchID string, playerIDs []string, size int) ([]string, error) {
	if size <= 0 {
		return nil, kerrors.ErrValidation
	}
	if size > len(playerIDs) {
		size = len(playerIDs)
	}
	return playerIDs[:size], nil
}

// HasCRUD satisfies internal/health's DomainCRUD capability interface.
func (s *StoreMatchService) HasCRUD() bool { return s.store != nil }
