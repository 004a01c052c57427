// Package router implements §4.I: the agentic message router. It turns a
// single inbound chat update into a chat-classified, identity-resolved,
// permission-gated Reply — either a tool dispatch or a deterministic
// agent-unavailable fallback. The router is stateless: construct one per
// process, reuse it for every update, never stash per-update state on it.
// Grounded on the teacher's internal/channels dispatch loop shape (one
// entry function turning an inbound message into an outbound one) plus
// internal/engine's canonical Params envelope idiom, generalized from a
// single flat command space to the chat/role/permission pipeline §4.I
// specifies.
package router

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kickai/kickai/internal/domain"
	"github.com/kickai/kickai/internal/registry"
	"github.com/kickai/kickai/internal/teamcache"
	"github.com/kickai/kickai/internal/tools"
)

// ChatType is the §4.I step-1 classification of an inbound chat.
type ChatType string

const (
	ChatMain       ChatType = "main"
	ChatLeadership ChatType = "leadership"
	ChatPrivate    ChatType = "private"
)

// EffectiveRole is the §4.I step-2 identity resolution result.
type EffectiveRole string

const (
	RoleUnregistered EffectiveRole = "unregistered"
	RolePlayer       EffectiveRole = "player"
	RoleTeamMember   EffectiveRole = "team_member"
)

// RoutedMessage is the canonical envelope a bot worker builds from one
// inbound transport update (§4.H: "constructs a RoutedMessage and hands
// it to the router").
type RoutedMessage struct {
	TeamID     string
	ChatID     int64
	TelegramID int64
	Username   string
	Text       string
}

// Reply is a plain-text transport payload plus delivery metadata (§4.I
// step 6: "the router wraps tool output ... into a transport reply").
type Reply struct {
	ChatID    int64
	Text      string
	ParseMode string
}

// AgentDispatcher is the narrow collaborator the router hands
// natural-language text to when it is not a recognized command. Kept
// separate from internal/tools since the agent layer is an external
// collaborator per §1 ("does not perform LLM inference").
type AgentDispatcher interface {
	Dispatch(ctx context.Context, teamID string, telegramID int64, chatType string, text string) (string, error)
}

var commandPattern = regexp.MustCompile(`^/[a-zA-Z_][a-zA-Z0-9_]*(\s.*)?$`)

// Router is the process-wide, stateless §4.I entry point. Construct once
// and share across bot workers; it holds only references to other
// process-wide singletons (team cache, service registry, tool registry).
type Router struct {
	teams   *teamcache.Cache
	tools   *tools.Registry
	svcs    *registry.Registry
	agents  AgentDispatcher
	players domain.PlayerService
	members domain.TeamMemberService
}

// New builds a Router. agents may be nil — a nil agent layer produces the
// deterministic fallback §4.I step 5 names ("if the agent layer is
// unavailable").
func New(teams *teamcache.Cache, toolRegistry *tools.Registry, svcRegistry *registry.Registry, players domain.PlayerService, members domain.TeamMemberService, agents AgentDispatcher) *Router {
	return &Router{
		teams:   teams,
		tools:   toolRegistry,
		svcs:    svcRegistry,
		agents:  agents,
		players: players,
		members: members,
	}
}

// Route is the §4.I entry point: route(msg) → Reply.
func (r *Router) Route(ctx context.Context, msg RoutedMessage) Reply {
	chatType := r.classifyChat(msg.TeamID, msg.ChatID)
	role := r.resolveIdentity(ctx, msg.TeamID, msg.TelegramID, chatType)

	text := strings.TrimSpace(msg.Text)
	if !commandPattern.MatchString(text) {
		return r.dispatchNaturalLanguage(ctx, msg, chatType, role)
	}

	command, args := splitCommand(text)
	if command == "/help" {
		return r.reply(msg.ChatID, r.helpReply(role))
	}

	if !isAllowed(command, role, chatType) {
		return r.reply(msg.ChatID, deniedReply(command, chatType))
	}

	toolName, params, ok := r.resolveTool(command, args, msg, chatType, role)
	if !ok {
		return r.reply(msg.ChatID, fmt.Sprintf("❌ unrecognized command: %s", command))
	}

	result := r.tools.Dispatch(ctx, r.svcs, toolName, params)
	return r.reply(msg.ChatID, result)
}

func (r *Router) reply(chatID int64, text string) Reply {
	return Reply{ChatID: chatID, Text: text, ParseMode: ""}
}

// classifyChat is §4.I step 1: compare the chat id to the team's cached
// main/leadership chat ids; unknown chat ids are private.
func (r *Router) classifyChat(teamID string, chatID int64) ChatType {
	team, err := r.teams.GetTeam(teamID)
	if err != nil {
		return ChatPrivate
	}
	chatIDStr := strconv.FormatInt(chatID, 10)
	switch chatIDStr {
	case team.MainChatID:
		return ChatMain
	case team.LeadershipChatID:
		return ChatLeadership
	default:
		return ChatPrivate
	}
}

// resolveIdentity is §4.I step 2.
func (r *Router) resolveIdentity(ctx context.Context, teamID string, telegramID int64, chatType ChatType) EffectiveRole {
	_, playerErr := r.players.GetPlayerByTelegramID(ctx, teamID, telegramID)
	isPlayer := playerErr == nil

	_, memberErr := r.members.GetTeamMemberByTelegramID(ctx, teamID, telegramID)
	isMember := memberErr == nil

	if chatType == ChatMain {
		if isPlayer {
			return RolePlayer
		}
		return RoleUnregistered
	}
	// leadership or private
	if isMember {
		return RoleTeamMember
	}
	return RoleUnregistered
}

func splitCommand(text string) (command string, args string) {
	parts := strings.SplitN(text, " ", 2)
	command = parts[0]
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args
}

// command category table backing §4.I step 4's fixed authorization table.
// Commands absent from every set fall through to "registered role
// required" — deny unregistered, allow any registered role — the
// conservative default recorded as an Open Question resolution in
// DESIGN.md, consistent with invariant 5's monotonicity requirement.
var openCommands = map[string]bool{
	"/help":     true,
	"/myinfo":   true,
	"/list":     true,
	"/status":   true,
	"/register": true,
}

var leadershipOnlyCommands = map[string]bool{
	"/addplayer": true,
	"/addmember": true,
	"/approve":   true,
	"/reject":    true,
}

var selfUpdateCommands = map[string]bool{
	"/update": true,
}

func isAllowed(command string, role EffectiveRole, chatType ChatType) bool {
	if openCommands[command] {
		return true
	}
	if leadershipOnlyCommands[command] {
		return chatType == ChatLeadership && role == RoleTeamMember
	}
	if selfUpdateCommands[command] {
		if chatType == ChatMain {
			return role == RolePlayer
		}
		return role == RoleTeamMember
	}
	return role != RoleUnregistered
}

func deniedReply(command string, chatType ChatType) string {
	if chatType != ChatLeadership {
		return fmt.Sprintf("❌ %s requires leadership permission; use this command in the leadership chat", command)
	}
	return fmt.Sprintf("❌ you do not have permission to run %s", command)
}

func (r *Router) helpReply(role EffectiveRole) string {
	var sb strings.Builder
	sb.WriteString("🤖 KICKAI Help\n\n")
	switch role {
	case RoleUnregistered:
		sb.WriteString("Unregistered User\n/register, /myinfo, /list, /status\nPlease contact your team's leadership chat to be added.\n")
	case RolePlayer:
		sb.WriteString("/myinfo, /status, /list, /update\n")
	case RoleTeamMember:
		sb.WriteString("/myinfo, /status, /list, /update, /addplayer, /addmember, /approve, /reject\n")
	}
	return sb.String()
}

// resolveTool maps a recognized slash command plus its context to a tool
// name and canonical parameter envelope (§4.I step 5: "exactly the
// canonical parameters ... plus command-specific args").
func (r *Router) resolveTool(command, args string, msg RoutedMessage, chatType ChatType, role EffectiveRole) (string, tools.Params, bool) {
	base := tools.Params{
		"telegram_id": msg.TelegramID,
		"team_id":     msg.TeamID,
		"chat_type":   string(chatType),
	}
	switch command {
	case "/myinfo", "/status":
		if role == RoleTeamMember && chatType != ChatMain {
			return "get_my_team_member_status", base, true
		}
		return "get_my_status", base, true
	case "/list":
		if chatType == ChatLeadership {
			return "list_team_members_and_players", base, true
		}
		return "get_active_players", base, true
	case "/register":
		base["phone_number"], base["full_name"] = splitTwoQuoted(args)
		return "team_member_registration", base, true
	case "/addplayer":
		base["full_name"], base["phone_number"] = splitTwoQuoted(args)
		return "add_player", base, true
	case "/addmember":
		base["phone_number"], base["full_name"] = splitTwoQuoted(args)
		return "team_member_registration", base, true
	case "/approve":
		base["player_id"] = args
		return "approve_player", base, true
	case "/reject":
		base["player_id"] = args
		return "reject_player", base, true
	default:
		return "", nil, false
	}
}

// splitTwoQuoted parses `"A B" "C"`-style command arguments, stripping
// surrounding quotes. Falls back to whitespace splitting when no quotes
// are present.
func splitTwoQuoted(args string) (first, second string) {
	matches := regexp.MustCompile(`"([^"]*)"`).FindAllStringSubmatch(args, -1)
	if len(matches) >= 2 {
		return matches[0][1], matches[1][1]
	}
	parts := strings.Fields(args)
	if len(parts) >= 2 {
		return parts[0], parts[1]
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return "", ""
}

func (r *Router) dispatchNaturalLanguage(ctx context.Context, msg RoutedMessage, chatType ChatType, role EffectiveRole) Reply {
	if r.agents == nil {
		return r.reply(msg.ChatID, "🤖 I can only understand commands right now (the conversational layer is unavailable). Try /help.")
	}
	text, err := r.agents.Dispatch(ctx, msg.TeamID, msg.TelegramID, string(chatType), msg.Text)
	if err != nil {
		return r.reply(msg.ChatID, fmt.Sprintf("❌ %v", err))
	}
	return r.reply(msg.ChatID, text)
}
