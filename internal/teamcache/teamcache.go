// Package teamcache implements §4.F: a process-wide, startup-populated
// team_id -> Team lookup with O(1) hot-path reads and no I/O once
// initialized. Grounded on the same sync.RWMutex-guarded-map idiom the
// teacher uses throughout (internal/engine/failover.go's breakers map,
// internal/registry's services map) rather than any single teacher file,
// since the teacher has no equivalent of a read-mostly startup cache.
package teamcache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kickai/kickai/internal/kerrors"
	"github.com/kickai/kickai/internal/store"
)

// Team is the cached, read-only view of one team's configuration.
type Team struct {
	ID               string
	Name             string
	BotToken         string
	MainChatID       string
	LeadershipChatID string
}

// Cache is the process-wide singleton populated once at startup (§9:
// "process-wide singletons; readers may run concurrently, writers hold
// internal locks").
type Cache struct {
	mu          sync.RWMutex
	teams       map[string]Team
	initialized bool
	store       store.Port
	logger      *slog.Logger
	warnedOnce  map[string]bool
}

// New builds an uninitialized cache backed by the given store, used both
// for the initial bulk load and for RefreshTeam.
func New(s store.Port, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		teams:      make(map[string]Team),
		store:      s,
		logger:     logger,
		warnedOnce: make(map[string]bool),
	}
}

func teamFromDocument(doc store.Document) Team {
	id := doc.ID()
	name, _ := doc["name"].(string)
	if name == "" {
		name = id
	}
	botToken, _ := doc["bot_token"].(string)
	mainChatID, _ := doc["main_chat_id"].(string)
	leadershipChatID, _ := doc["leadership_chat_id"].(string)
	return Team{
		ID:               id,
		Name:             name,
		BotToken:         botToken,
		MainChatID:       mainChatID,
		LeadershipChatID: leadershipChatID,
	}
}

// Initialize performs the one-time bulk load from the store. Calling it
// again is a no-op safeguard; use RefreshTeam for per-team reloads.
func (c *Cache) Initialize(ctx context.Context) error {
	c.mu.Lock()
	if c.initialized {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	docs, err := c.store.QueryDocuments(ctx, store.CollTeams, nil, store.QueryOptions{})
	if err != nil {
		return err
	}

	teams := make(map[string]Team, len(docs))
	for _, doc := range docs {
		t := teamFromDocument(doc)
		teams[t.ID] = t
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams = teams
	c.initialized = true
	c.logger.Info("teamcache: initialized", "teams", len(teams))
	return nil
}

// IsInitialized reports whether Initialize has completed successfully.
func (c *Cache) IsInitialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// GetTeam is the O(1), no-I/O hot-path lookup. A cache miss logs once per
// team_id per process lifetime and returns ErrNotFound so the caller can
// fall back to the store directly (the only legitimate way to tolerate
// cache failure, per §4.F).
func (c *Cache) GetTeam(teamID string) (Team, error) {
	c.mu.RLock()
	t, ok := c.teams[teamID]
	c.mu.RUnlock()
	if ok {
		return t, nil
	}

	c.mu.Lock()
	if !c.warnedOnce[teamID] {
		c.warnedOnce[teamID] = true
		c.logger.Warn("teamcache: miss, falling back to store is the caller's responsibility", "team_id", teamID)
	}
	c.mu.Unlock()
	return Team{}, kerrors.ErrNotFound
}

func (c *Cache) GetBotToken(teamID string) (string, error) {
	t, err := c.GetTeam(teamID)
	if err != nil {
		return "", err
	}
	return t.BotToken, nil
}

func (c *Cache) GetMainChatID(teamID string) (string, error) {
	t, err := c.GetTeam(teamID)
	if err != nil {
		return "", err
	}
	return t.MainChatID, nil
}

func (c *Cache) GetLeadershipChatID(teamID string) (string, error) {
	t, err := c.GetTeam(teamID)
	if err != nil {
		return "", err
	}
	return t.LeadershipChatID, nil
}

// GetTeamName falls back to team_id when the stored name is blank.
func (c *Cache) GetTeamName(teamID string) string {
	t, err := c.GetTeam(teamID)
	if err != nil || t.Name == "" {
		return teamID
	}
	return t.Name
}

// GetAllTeamIDs returns every team_id currently cached.
func (c *Cache) GetAllTeamIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.teams))
	for id := range c.teams {
		ids = append(ids, id)
	}
	return ids
}

// RefreshTeam re-reads one team document and replaces its cache entry
// atomically, the admin operation §4.F names explicitly.
func (c *Cache) RefreshTeam(ctx context.Context, teamID string) error {
	doc, err := c.store.GetDocument(ctx, store.CollTeams, teamID)
	if err != nil {
		return err
	}
	t := teamFromDocument(doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.teams[t.ID] = t
	delete(c.warnedOnce, t.ID)
	return nil
}
