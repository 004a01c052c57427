package fleet

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/router"
	"github.com/kickai/kickai/internal/teamcache"
)

// Manager owns one Worker per eligible team and fans out start/stop
// broadcasts across them (§4.H). It is a process-wide singleton,
// constructed once in cmd/kickaid and never copied.
type Manager struct {
	teams       *teamcache.Cache
	rt          *router.Router
	logger      *slog.Logger
	gracePeriod time.Duration

	mu      sync.Mutex
	workers map[string]*Worker
	failed  map[string]string // team_id -> reason
}

// NewManager builds a fleet manager over the given team cache and shared
// router, with gracePeriod bounding StopAll.
func NewManager(teams *teamcache.Cache, rt *router.Router, logger *slog.Logger, gracePeriod time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if gracePeriod <= 0 {
		gracePeriod = 10 * time.Second
	}
	return &Manager{
		teams:       teams,
		rt:          rt,
		logger:      logger,
		gracePeriod: gracePeriod,
		workers:     make(map[string]*Worker),
		failed:      make(map[string]string),
	}
}

// Load pulls every cached team and refuses to start any whose bot_token,
// main_chat_id, or leadership_chat_id is empty (§4.H step 1).
func (m *Manager) Load() []teamcache.Team {
	var eligible []teamcache.Team
	for _, id := range m.teams.GetAllTeamIDs() {
		team, err := m.teams.GetTeam(id)
		if err != nil {
			continue
		}
		if team.BotToken == "" || team.MainChatID == "" || team.LeadershipChatID == "" {
			m.logger.Warn("fleet: refusing to start team with incomplete configuration", "team_id", id)
			continue
		}
		eligible = append(eligible, team)
	}
	return eligible
}

// StartAll starts one worker per eligible team. A start failure for one
// team is recorded and does not abort the others (§4.H).
func (m *Manager) StartAll(ctx context.Context) {
	for _, team := range m.Load() {
		team := team
		w := NewWorker(team.ID, team.BotToken, m.rt, m.logger)

		m.mu.Lock()
		m.workers[team.ID] = w
		m.mu.Unlock()

		go func() {
			if err := w.Start(ctx); err != nil {
				m.logger.Error("fleet: worker exited with error", "team_id", team.ID, "error", err)
				m.mu.Lock()
				m.failed[team.ID] = err.Error()
				delete(m.workers, team.ID)
				m.mu.Unlock()
			}
		}()
	}

	m.broadcastStartup(ctx)
}

// broadcastStartup sends a short operator notice to the leadership chat
// of every running team (§4.H).
func (m *Manager) broadcastStartup(ctx context.Context) {
	m.mu.Lock()
	workers := make(map[string]*Worker, len(m.workers))
	for id, w := range m.workers {
		workers[id] = w
	}
	m.mu.Unlock()

	for id, w := range workers {
		team, err := m.teams.GetTeam(id)
		if err != nil {
			continue
		}
		chatID, err := strconv.ParseInt(team.LeadershipChatID, 10, 64)
		if err != nil {
			continue
		}
		if err := w.SendText(ctx, chatID, "🤖 KICKAI is online."); err != nil {
			m.logger.Warn("fleet: startup broadcast failed", "team_id", id, "error", err)
		}
	}
}

// StopAll signals every worker to stop, waits up to the configured grace
// period, then force-cancels and sends a shutdown notice on the way down
// (§4.H). Returns once every worker has stopped or the grace period has
// elapsed (invariant 8: list_running reaches empty within the period).
func (m *Manager) StopAll(parent context.Context) {
	m.mu.Lock()
	workers := make(map[string]*Worker, len(m.workers))
	for id, w := range m.workers {
		workers[id] = w
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, m.gracePeriod)
	defer cancel()

	for id, w := range workers {
		team, err := m.teams.GetTeam(id)
		if err == nil {
			if chatID, perr := strconv.ParseInt(team.LeadershipChatID, 10, 64); perr == nil {
				_ = w.SendText(ctx, chatID, "🤖 KICKAI is shutting down.")
			}
		}
	}

	var wg sync.WaitGroup
	for id, w := range workers {
		wg.Add(1)
		go func(id string, w *Worker) {
			defer wg.Done()
			if err := w.Stop(ctx); err != nil {
				m.logger.Warn("fleet: worker did not stop within grace period", "team_id", id, "error", err)
			}
		}(id, w)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for id := range m.workers {
		delete(m.workers, id)
	}
}

// SendText implements domain.Sender by resolving which team's worker owns
// chatID (matching it against that team's main/leadership chat) and
// delegating to that worker's bot. This lets one shared communication
// service span every team's bot instead of needing one instance per team.
func (m *Manager) SendText(ctx context.Context, chatID int64, text string) error {
	m.mu.Lock()
	workers := make(map[string]*Worker, len(m.workers))
	for id, w := range m.workers {
		workers[id] = w
	}
	m.mu.Unlock()

	chatIDStr := strconv.FormatInt(chatID, 10)
	for id, w := range workers {
		team, err := m.teams.GetTeam(id)
		if err != nil {
			continue
		}
		if team.MainChatID == chatIDStr || team.LeadershipChatID == chatIDStr {
			return w.SendText(ctx, chatID, text)
		}
	}
	return fmt.Errorf("fleet: no running worker owns chat %d", chatID)
}

// ListRunning returns the team ids with a currently running worker.
func (m *Manager) ListRunning() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.workers))
	for id, w := range m.workers {
		if w.State() == stateRunning {
			out = append(out, id)
		}
	}
	return out
}

// Status reports a team's last-known fleet state, used by the /health and
// /health/detailed endpoints.
func (m *Manager) Status(teamID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if reason, ok := m.failed[teamID]; ok {
		return fmt.Sprintf("failed: %s", reason), nil
	}
	if w, ok := m.workers[teamID]; ok {
		return string(w.State()), nil
	}
	return "", kerrors.ErrNotFound
}
