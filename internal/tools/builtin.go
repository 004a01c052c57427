package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kickai/kickai/internal/domain"
	"github.com/kickai/kickai/internal/registry"
)

func lookupPlayerService(reg *registry.Registry, name string) (domain.PlayerService, string) {
	instance, err := reg.Get(name)
	if err != nil {
		return nil, ServiceUnavailable(name)
	}
	svc, ok := instance.(domain.PlayerService)
	if !ok {
		return nil, ServiceUnavailable(name)
	}
	return svc, ""
}

func lookupTeamMemberService(reg *registry.Registry, name string) (domain.TeamMemberService, string) {
	instance, err := reg.Get(name)
	if err != nil {
		return nil, ServiceUnavailable(name)
	}
	svc, ok := instance.(domain.TeamMemberService)
	if !ok {
		return nil, ServiceUnavailable(name)
	}
	return svc, ""
}

func lookupMatchService(reg *registry.Registry, name string) (domain.MatchService, string) {
	instance, err := reg.Get(name)
	if err != nil {
		return nil, ServiceUnavailable(name)
	}
	svc, ok := instance.(domain.MatchService)
	if !ok {
		return nil, ServiceUnavailable(name)
	}
	return svc, ""
}

func lookupCommunicationService(reg *registry.Registry, name string) (domain.CommunicationService, string) {
	instance, err := reg.Get(name)
	if err != nil {
		return nil, ServiceUnavailable(name)
	}
	svc, ok := instance.(domain.CommunicationService)
	if !ok {
		return nil, ServiceUnavailable(name)
	}
	return svc, ""
}

const (
	svcPlayer        = "player_service"
	svcTeamMember    = "team_member_service"
	svcMatch         = "match_service"
	svcCommunication = "communication_service"
)

// RegisterBuiltins installs the authoritative tool set named in §4.J.
func RegisterBuiltins(r *Registry) {
	registerPlayerTools(r)
	registerTeamMemberTools(r)
	registerMatchTools(r)
	registerCommunicationTools(r)
}

func registerPlayerTools(r *Registry) {
	r.Register(NewDefinition("add_player", svcPlayer, `{
		"type": "object",
		"required": ["full_name", "phone_number"],
		"properties": {
			"full_name": {"type": "string", "minLength": 1},
			"phone_number": {"type": "string", "minLength": 1},
			"position": {"type": "string"}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupPlayerService(reg, svcPlayer)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		fullName, _ := p.String("full_name")
		phone, _ := p.String("phone_number")
		position, _ := p.String("position")
		player, err := svc.AddPlayer(ctx, teamID, phone, fullName, domain.Position(position))
		if err != nil {
			return "❌ " + err.Error()
		}

		reply := fmt.Sprintf("✅ Player Added Successfully\n- Name: %s\n- Phone: %s\n- Player ID: %s\n- Status: %s", player.FullName, player.PhoneNumber, player.ID, player.Status)
		if commSvc, unavailable := lookupCommunicationService(reg, svcCommunication); unavailable == "" {
			if link, err := commSvc.GetInviteLink(ctx, teamID, player.ID, "", 72*time.Hour); err == nil {
				reply += fmt.Sprintf("\n- Invite link token: %s", link.SecureToken)
			}
		}
		return reply
	}))

	r.Register(NewDefinition("reject_player", svcPlayer, `{
		"type": "object",
		"required": ["player_id"],
		"properties": {"player_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupPlayerService(reg, svcPlayer)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		playerID, _ := p.String("player_id")
		player, err := svc.RejectPlayer(ctx, teamID, playerID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Player rejected\n- Name: %s\n- Status: %s", player.FullName, player.Status)
	}))

	r.Register(NewDefinition("approve_player", svcPlayer, `{
		"type": "object",
		"required": ["player_id"],
		"properties": {"player_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupPlayerService(reg, svcPlayer)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		playerID, _ := p.String("player_id")
		player, err := svc.ApprovePlayer(ctx, teamID, playerID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Player approved\n- Name: %s\n- Status: %s\n\nPlayer %s is now active in the squad.", player.FullName, player.Status, player.ID)
	}))

	r.Register(NewDefinition("get_my_status", svcPlayer, `{"type": "object"}`,
		func(ctx context.Context, reg *registry.Registry, p Params) string {
			svc, unavailable := lookupPlayerService(reg, svcPlayer)
			if unavailable != "" {
				return unavailable
			}
			teamID, _ := p.String("team_id")
			telegramID, _ := p.Int64("telegram_id")
			player, err := svc.GetPlayerByTelegramID(ctx, teamID, telegramID)
			if err != nil {
				return "❌ you are not registered as a player on this team"
			}
			position := string(player.Position)
			if position == "" {
				position = "Not set"
			}
			return fmt.Sprintf("Your status\n- Name: %s\n- Position: %s\n- Status: %s\n- Player ID: %s", player.FullName, position, player.Status, player.ID)
		}))

	r.Register(NewDefinition("get_player_status", svcPlayer, `{
		"type": "object",
		"required": ["player_id"],
		"properties": {"player_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupPlayerService(reg, svcPlayer)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		playerID, _ := p.String("player_id")
		player, err := svc.GetPlayerByID(ctx, teamID, playerID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("Player %s\n- Name: %s\n- Status: %s", player.ID, player.FullName, player.Status)
	}))

	r.Register(NewDefinition("get_all_players", svcPlayer, `{"type": "object"}`,
		func(ctx context.Context, reg *registry.Registry, p Params) string {
			svc, unavailable := lookupPlayerService(reg, svcPlayer)
			if unavailable != "" {
				return unavailable
			}
			teamID, _ := p.String("team_id")
			players, err := svc.ListAllPlayers(ctx, teamID)
			if err != nil {
				return "❌ " + err.Error()
			}
			return formatPlayerList("All players", players)
		}))

	r.Register(NewDefinition("get_active_players", svcPlayer, `{"type": "object"}`,
		func(ctx context.Context, reg *registry.Registry, p Params) string {
			svc, unavailable := lookupPlayerService(reg, svcPlayer)
			if unavailable != "" {
				return unavailable
			}
			teamID, _ := p.String("team_id")
			players, err := svc.ListActivePlayers(ctx, teamID)
			if err != nil {
				return "❌ " + err.Error()
			}
			return formatPlayerList("Active players", players)
		}))

	r.Register(NewDefinition("list_team_members_and_players", svcPlayer, `{"type": "object"}`,
		func(ctx context.Context, reg *registry.Registry, p Params) string {
			playerSvc, unavailable := lookupPlayerService(reg, svcPlayer)
			if unavailable != "" {
				return unavailable
			}
			memberSvc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
			if unavailable != "" {
				return unavailable
			}
			teamID, _ := p.String("team_id")
			players, err := playerSvc.ListAllPlayers(ctx, teamID)
			if err != nil {
				return "❌ " + err.Error()
			}
			members, err := memberSvc.ListTeamMembers(ctx, teamID)
			if err != nil {
				return "❌ " + err.Error()
			}
			var sb strings.Builder
			sb.WriteString(formatPlayerList("Players", players))
			sb.WriteString("\n\n")
			sb.WriteString(formatMemberList("Team members", members))
			return sb.String()
		}))
}

func formatPlayerList(title string, players []domain.Player) string {
	if len(players) == 0 {
		return fmt.Sprintf("%s\n(none)", title)
	}
	var sb strings.Builder
	sb.WriteString(title + "\n")
	for _, pl := range players {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", pl.FullName, pl.Status))
	}
	sb.WriteString(fmt.Sprintf("Total: %d", len(players)))
	return sb.String()
}

func formatMemberList(title string, members []domain.TeamMember) string {
	if len(members) == 0 {
		return fmt.Sprintf("%s\n(none)", title)
	}
	var sb strings.Builder
	sb.WriteString(title + "\n")
	for _, m := range members {
		sb.WriteString(fmt.Sprintf("- %s (%s)\n", m.FullName, m.Role))
	}
	sb.WriteString(fmt.Sprintf("Total: %d", len(members)))
	return sb.String()
}

func registerTeamMemberTools(r *Registry) {
	r.Register(NewDefinition("team_member_registration", svcTeamMember, `{
		"type": "object",
		"required": ["phone_number", "full_name"],
		"properties": {
			"phone_number": {"type": "string", "minLength": 1},
			"full_name": {"type": "string", "minLength": 1},
			"role": {"type": "string"}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		telegramID, _ := p.Int64("telegram_id")
		phone, _ := p.String("phone_number")
		name, _ := p.String("full_name")
		role, _ := p.String("role")
		if role == "" {
			role = string(domain.RoleTeamMember)
		}
		m, err := svc.RegisterTeamMember(ctx, teamID, telegramID, phone, name, domain.Role(role))
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Team member registered\n- Name: %s\n- Role: %s", m.FullName, m.Role)
	}))

	r.Register(NewDefinition("get_my_team_member_status", svcTeamMember, `{"type": "object"}`,
		func(ctx context.Context, reg *registry.Registry, p Params) string {
			svc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
			if unavailable != "" {
				return unavailable
			}
			teamID, _ := p.String("team_id")
			telegramID, _ := p.Int64("telegram_id")
			m, err := svc.GetTeamMemberByTelegramID(ctx, teamID, telegramID)
			if err != nil {
				return "❌ you are not registered as a team member on this team"
			}
			return fmt.Sprintf("Your status\n- Name: %s\n- Role: %s\n- Admin: %t", m.FullName, m.Role, m.IsAdmin)
		}))

	r.Register(NewDefinition("get_team_members", svcTeamMember, `{"type": "object"}`,
		func(ctx context.Context, reg *registry.Registry, p Params) string {
			svc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
			if unavailable != "" {
				return unavailable
			}
			teamID, _ := p.String("team_id")
			members, err := svc.ListTeamMembers(ctx, teamID)
			if err != nil {
				return "❌ " + err.Error()
			}
			return formatMemberList("Team members", members)
		}))

	r.Register(NewDefinition("add_team_member_role", svcTeamMember, `{
		"type": "object",
		"required": ["member_id", "role"],
		"properties": {
			"member_id": {"type": "string", "minLength": 1},
			"role": {"type": "string", "minLength": 1}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		memberID, _ := p.String("member_id")
		role, _ := p.String("role")
		m, err := svc.AddRole(ctx, teamID, memberID, domain.Role(role))
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Role updated\n- Name: %s\n- Role: %s", m.FullName, m.Role)
	}))

	r.Register(NewDefinition("remove_team_member_role", svcTeamMember, `{
		"type": "object",
		"required": ["member_id"],
		"properties": {"member_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		memberID, _ := p.String("member_id")
		m, err := svc.RemoveRole(ctx, teamID, memberID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Role removed\n- Name: %s\n- Role: %s", m.FullName, m.Role)
	}))

	r.Register(NewDefinition("promote_team_member_to_admin", svcTeamMember, `{
		"type": "object",
		"required": ["member_id"],
		"properties": {"member_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupTeamMemberService(reg, svcTeamMember)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		memberID, _ := p.String("member_id")
		m, err := svc.PromoteToAdmin(ctx, teamID, memberID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ %s promoted to admin", m.FullName)
	}))
}

func registerMatchTools(r *Registry) {
	r.Register(NewDefinition("record_attendance", svcMatch, `{
		"type": "object",
		"required": ["match_id", "player_id", "status"],
		"properties": {
			"match_id": {"type": "string", "minLength": 1},
			"player_id": {"type": "string", "minLength": 1},
			"status": {"type": "string", "minLength": 1}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupMatchService(reg, svcMatch)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		matchID, _ := p.String("match_id")
		playerID, _ := p.String("player_id")
		status, _ := p.String("status")
		a, err := svc.RecordAttendance(ctx, teamID, matchID, playerID, domain.AttendanceStatus(status))
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Attendance recorded\n- Match: %s\n- Status: %s", a.MatchID, a.Status)
	}))

	r.Register(NewDefinition("bulk_record_attendance", svcMatch, `{
		"type": "object",
		"required": ["match_id", "player_ids", "status"],
		"properties": {
			"match_id": {"type": "string", "minLength": 1},
			"player_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"status": {"type": "string", "minLength": 1}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupMatchService(reg, svcMatch)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		matchID, _ := p.String("match_id")
		status, _ := p.String("status")
		ids, _ := p.StringSlice("player_ids")
		statuses := make(map[string]domain.AttendanceStatus, len(ids))
		for _, id := range ids {
			statuses[id] = domain.AttendanceStatus(status)
		}
		records, err := svc.BulkRecordAttendance(ctx, teamID, matchID, statuses)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Recorded attendance for %d player(s)", len(records))
	}))

	r.Register(NewDefinition("get_match_attendance", svcMatch, `{
		"type": "object",
		"required": ["match_id"],
		"properties": {"match_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupMatchService(reg, svcMatch)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		matchID, _ := p.String("match_id")
		records, err := svc.GetMatchAttendance(ctx, teamID, matchID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("Attendance for match %s: %d record(s)", matchID, len(records))
	}))

	r.Register(NewDefinition("get_player_attendance_history", svcMatch, `{
		"type": "object",
		"required": ["player_id"],
		"properties": {"player_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupMatchService(reg, svcMatch)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		playerID, _ := p.String("player_id")
		records, err := svc.GetPlayerAttendanceHistory(ctx, teamID, playerID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("Attendance history for %s: %d record(s)", playerID, len(records))
	}))

	r.Register(NewDefinition("get_available_players_for_match", svcMatch, `{
		"type": "object",
		"required": ["match_id"],
		"properties": {"match_id": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupMatchService(reg, svcMatch)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		matchID, _ := p.String("match_id")
		ids, err := svc.GetAvailablePlayersForMatch(ctx, teamID, matchID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("Available for %s: %s", matchID, strings.Join(ids, ", "))
	}))

	r.Register(NewDefinition("select_squad", svcMatch, `{
		"type": "object",
		"required": ["match_id", "candidate_ids", "size"],
		"properties": {
			"match_id": {"type": "string", "minLength": 1},
			"candidate_ids": {"type": "array", "items": {"type": "string"}, "minItems": 1},
			"size": {"type": "integer", "exclusiveMinimum": 0}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupMatchService(reg, svcMatch)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		matchID, _ := p.String("match_id")
		candidates, _ := p.StringSlice("candidate_ids")
		size, _ := p.Int64("size")
		squad, err := svc.SelectSquad(ctx, teamID, matchID, candidates, int(size))
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Squad selected (%d): %s", len(squad), strings.Join(squad, ", "))
	}))
}

func registerCommunicationTools(r *Registry) {
	r.Register(NewDefinition("send_message", svcCommunication, `{
		"type": "object",
		"required": ["chat_id", "text"],
		"properties": {
			"chat_id": {"type": "integer"},
			"text": {"type": "string", "minLength": 1}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupCommunicationService(reg, svcCommunication)
		if unavailable != "" {
			return unavailable
		}
		chatID, _ := p.Int64("chat_id")
		text, _ := p.String("text")
		if err := svc.SendMessage(ctx, chatID, text); err != nil {
			return "❌ " + err.Error()
		}
		return "✅ message sent"
	}))

	r.Register(NewDefinition("send_telegram_message", svcCommunication, `{
		"type": "object",
		"required": ["chat_id", "text"],
		"properties": {
			"chat_id": {"type": "integer"},
			"text": {"type": "string", "minLength": 1}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupCommunicationService(reg, svcCommunication)
		if unavailable != "" {
			return unavailable
		}
		chatID, _ := p.Int64("chat_id")
		text, _ := p.String("text")
		if err := svc.SendMessage(ctx, chatID, text); err != nil {
			return "❌ " + err.Error()
		}
		return "✅ message sent"
	}))

	r.Register(NewDefinition("send_announcement", svcCommunication, `{
		"type": "object",
		"required": ["chat_id", "title", "body"],
		"properties": {
			"chat_id": {"type": "integer"},
			"title": {"type": "string", "minLength": 1},
			"body": {"type": "string", "minLength": 1}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupCommunicationService(reg, svcCommunication)
		if unavailable != "" {
			return unavailable
		}
		chatID, _ := p.Int64("chat_id")
		title, _ := p.String("title")
		body, _ := p.String("body")
		if err := svc.SendAnnouncement(ctx, chatID, title, body); err != nil {
			return "❌ " + err.Error()
		}
		return "✅ announcement sent"
	}))

	r.Register(NewDefinition("send_poll", svcCommunication, `{
		"type": "object",
		"required": ["chat_id", "question", "options"],
		"properties": {
			"chat_id": {"type": "integer"},
			"question": {"type": "string", "minLength": 1},
			"options": {"type": "array", "items": {"type": "string"}, "minItems": 2}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupCommunicationService(reg, svcCommunication)
		if unavailable != "" {
			return unavailable
		}
		chatID, _ := p.Int64("chat_id")
		question, _ := p.String("question")
		options, _ := p.StringSlice("options")
		if err := svc.SendPoll(ctx, chatID, question, options); err != nil {
			return "❌ " + err.Error()
		}
		return "✅ poll sent"
	}))

	r.Register(NewDefinition("get_invite_link", svcCommunication, `{
		"type": "object",
		"properties": {
			"player_id": {"type": "string"},
			"member_id": {"type": "string"}
		}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupCommunicationService(reg, svcCommunication)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		playerID, _ := p.String("player_id")
		memberID, _ := p.String("member_id")
		link, err := svc.GetInviteLink(ctx, teamID, playerID, memberID, 72*time.Hour)
		if err != nil {
			return "❌ " + err.Error()
		}
		return fmt.Sprintf("✅ Invite link generated\n- Token: %s\n- Expires: %s", link.SecureToken, link.ExpiresAt.Format(time.RFC3339))
	}))

	r.Register(NewDefinition("redeem_invite_link", svcCommunication, `{
		"type": "object",
		"required": ["token"],
		"properties": {"token": {"type": "string", "minLength": 1}}
	}`, func(ctx context.Context, reg *registry.Registry, p Params) string {
		svc, unavailable := lookupCommunicationService(reg, svcCommunication)
		if unavailable != "" {
			return unavailable
		}
		teamID, _ := p.String("team_id")
		telegramID, _ := p.Int64("telegram_id")
		token, _ := p.String("token")
		_, err := svc.RedeemInviteLink(ctx, teamID, token, telegramID)
		if err != nil {
			return "❌ " + err.Error()
		}
		return "✅ invite link redeemed, you are now linked to your pending registration"
	}))
}
