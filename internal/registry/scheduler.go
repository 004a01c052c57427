package registry

import (
	"context"
	"log/slog"
	"sync"

	cronlib "github.com/robfig/cron/v3"
)

// Scheduler runs the registry's bulk health check on a fixed interval,
// generalized from the teacher's internal/cron/scheduler.go "fire due task
// schedules" loop to "fan out bulk health checks on an interval" (§4.C
// "Bulk check"). It uses robfig/cron/v3's interval-spec parsing instead of a
// bare ticker so the check cadence is expressible as a cron spec (e.g.
// "@every 60s") from config.
type Scheduler struct {
	registry *Registry
	logger   *slog.Logger
	cron     *cronlib.Cron
	entryID  cronlib.EntryID

	mu      sync.Mutex
	running bool
}

// NewScheduler builds a scheduler that calls registry.CheckAll on the given
// cron spec (e.g. "@every 60s"). An invalid spec is returned as an error so
// startup (§4.G) can fail fast rather than silently never checking.
func NewScheduler(reg *Registry, spec string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cronlib.New()
	s := &Scheduler{registry: reg, logger: logger, cron: c}

	id, err := c.AddFunc(spec, func() {
		s.tick(context.Background())
	})
	if err != nil {
		return nil, err
	}
	s.entryID = id
	return s, nil
}

// Start begins the scheduled bulk health checks in the background.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	s.logger.Info("registry: health check scheduler started")
}

// Stop halts the scheduler and waits for any in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("registry: health check scheduler stopped")
}

func (s *Scheduler) tick(ctx context.Context) {
	results := s.registry.CheckAll(ctx)
	var unhealthy int
	for _, h := range results {
		if h.Status != StatusHealthy {
			unhealthy++
		}
	}
	s.logger.Info("registry: bulk health check complete", "services", len(results), "unhealthy", unhealthy)
}
