package tools

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/kickai/kickai/internal/config"
	"github.com/kickai/kickai/internal/domain"
	"github.com/kickai/kickai/internal/registry"
	"github.com/kickai/kickai/internal/store/memstore"
)

func baseParams(extra map[string]interface{}) Params {
	p := Params{
		"telegram_id": int64(123),
		"team_id":     "KTI",
		"chat_type":   "main",
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(3, time.Minute)
	s := memstore.New()
	if err := reg.Register(config.ServiceDefinition{Name: svcPlayer}, domain.NewStorePlayerService(s)); err != nil {
		t.Fatalf("register player service: %v", err)
	}
	if err := reg.Register(config.ServiceDefinition{Name: svcTeamMember}, domain.NewStoreTeamMemberService(s)); err != nil {
		t.Fatalf("register team member service: %v", err)
	}
	if err := reg.Register(config.ServiceDefinition{Name: svcMatch}, domain.NewStoreMatchService(s)); err != nil {
		t.Fatalf("register match service: %v", err)
	}
	if err := reg.Register(config.ServiceDefinition{Name: svcCommunication}, domain.NewStoreCommunicationService(s, nil)); err != nil {
		t.Fatalf("register communication service: %v", err)
	}
	return reg
}

func TestDispatchRejectsMissingBaseParams(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t)

	result := r.Dispatch(context.Background(), reg, "get_active_players", Params{"team_id": "KTI"})
	if !strings.HasPrefix(result, "❌") {
		t.Fatalf("expected ❌-prefixed rejection for missing telegram_id/chat_type, got %q", result)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	r := NewRegistry()
	reg := newTestRegistry(t)

	result := r.Dispatch(context.Background(), reg, "not_a_real_tool", baseParams(nil))
	if !strings.Contains(result, "unknown command") {
		t.Fatalf("expected unknown command reply, got %q", result)
	}
}

func TestDispatchServiceUnavailable(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := registry.New(3, time.Minute) // no services registered

	result := r.Dispatch(context.Background(), reg, "get_active_players", baseParams(nil))
	if !strings.Contains(result, "service unavailable") {
		t.Fatalf("expected service unavailable reply, got %q", result)
	}
}

func TestDispatchAddAndApprovePlayer(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t)
	ctx := context.Background()

	playerSvc, err := reg.Get(svcPlayer)
	if err != nil {
		t.Fatalf("Get(player_service) error = %v", err)
	}
	player, err := playerSvc.(domain.PlayerService).AddPlayer(ctx, "KTI", "+447000", "Jane Doe", domain.PositionForward)
	if err != nil {
		t.Fatalf("AddPlayer() error = %v", err)
	}

	result := r.Dispatch(ctx, reg, "approve_player", baseParams(map[string]interface{}{"player_id": player.ID}))
	if !strings.HasPrefix(result, "✅") {
		t.Fatalf("expected success reply, got %q", result)
	}

	status := r.Dispatch(ctx, reg, "get_player_status", baseParams(map[string]interface{}{"player_id": player.ID}))
	if !strings.Contains(status, "approved") {
		t.Fatalf("expected approved status in reply, got %q", status)
	}
}

func TestDispatchRegisterTeamMemberThenPromote(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t)
	ctx := context.Background()

	reply := r.Dispatch(ctx, reg, "team_member_registration", baseParams(map[string]interface{}{
		"phone_number": "+1",
		"full_name":    "Coach Carter",
	}))
	if !strings.HasPrefix(reply, "✅") {
		t.Fatalf("expected success reply, got %q", reply)
	}

	memberSvc, _ := reg.Get(svcTeamMember)
	members, err := memberSvc.(domain.TeamMemberService).ListTeamMembers(ctx, "KTI")
	if err != nil || len(members) != 1 {
		t.Fatalf("expected 1 team member, got %d (err=%v)", len(members), err)
	}

	promoted := r.Dispatch(ctx, reg, "promote_team_member_to_admin", baseParams(map[string]interface{}{"member_id": members[0].ID}))
	if !strings.Contains(promoted, "promoted to admin") {
		t.Fatalf("expected promotion confirmation, got %q", promoted)
	}
}

func TestDispatchRecordAndQueryAttendance(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t)
	ctx := context.Background()

	reply := r.Dispatch(ctx, reg, "record_attendance", baseParams(map[string]interface{}{
		"match_id":  "M1",
		"player_id": "P1",
		"status":    "available",
	}))
	if !strings.HasPrefix(reply, "✅") {
		t.Fatalf("expected success reply, got %q", reply)
	}

	reply = r.Dispatch(ctx, reg, "get_match_attendance", baseParams(map[string]interface{}{"match_id": "M1"}))
	if !strings.Contains(reply, "1 record") {
		t.Fatalf("expected 1 record in reply, got %q", reply)
	}
}

func TestDispatchSelectSquadRequiresPositiveSize(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t)

	reply := r.Dispatch(context.Background(), reg, "select_squad", baseParams(map[string]interface{}{
		"match_id":      "M1",
		"candidate_ids": []interface{}{"P1", "P2"},
		"size":          int64(0),
	}))
	if !strings.HasPrefix(reply, "❌") {
		t.Fatalf("expected schema rejection for size=0, got %q", reply)
	}
}

func TestDispatchSendAnnouncementWithoutSenderIsServiceError(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t) // communication service built with nil sender

	reply := r.Dispatch(context.Background(), reg, "send_announcement", baseParams(map[string]interface{}{
		"chat_id": int64(1),
		"title":   "Match Day",
		"body":    "Kickoff at 3pm",
	}))
	if !strings.HasPrefix(reply, "❌") {
		t.Fatalf("expected ❌ reply when no sender is wired, got %q", reply)
	}
}

func TestDispatchGetInviteLinkThenRedeem(t *testing.T) {
	r := NewRegistry()
	RegisterBuiltins(r)
	reg := newTestRegistry(t)
	ctx := context.Background()

	reply := r.Dispatch(ctx, reg, "get_invite_link", baseParams(map[string]interface{}{"player_id": "P1"}))
	if !strings.HasPrefix(reply, "✅") {
		t.Fatalf("expected success reply, got %q", reply)
	}

	commSvc, _ := reg.Get(svcCommunication)
	link, err := commSvc.(domain.CommunicationService).GetInviteLink(ctx, "KTI", "P2", "", time.Hour)
	if err != nil {
		t.Fatalf("GetInviteLink() error = %v", err)
	}

	redeemed := r.Dispatch(ctx, reg, "redeem_invite_link", baseParams(map[string]interface{}{"token": link.SecureToken}))
	if !strings.HasPrefix(redeemed, "✅") {
		t.Fatalf("expected successful redemption, got %q", redeemed)
	}
}
