// Command kickaid is the runtime entry point (§6): it loads settings,
// opens the store, wires the service registry and message router, starts
// one bot worker per team, and serves /health and /health/detailed until a
// shutdown signal arrives. Grounded on the teacher's cmd/goclaw/main.go
// phased-startup shape (loadDotEnv, signal.NotifyContext, fatalStartup with
// a reason code, "startup phase" log breadcrumbs) and
// internal/gateway/gateway.go's handleHealthz JSON payload.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/kickai/kickai/internal/config"
	"github.com/kickai/kickai/internal/discovery"
	"github.com/kickai/kickai/internal/domain"
	"github.com/kickai/kickai/internal/fleet"
	"github.com/kickai/kickai/internal/health"
	"github.com/kickai/kickai/internal/registry"
	"github.com/kickai/kickai/internal/router"
	"github.com/kickai/kickai/internal/store/sqlitestore"
	"github.com/kickai/kickai/internal/teamcache"
	"github.com/kickai/kickai/internal/telemetry"
	"github.com/kickai/kickai/internal/tools"
	"github.com/kickai/kickai/internal/validator"
)

func main() {
	loadDotEnv(".env")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 && strings.ToLower(os.Args[1]) == "doctor" {
		os.Exit(runDoctorCommand(ctx, os.Args[2:]))
	}

	os.Exit(run(ctx))
}

// run wires the whole process and blocks until ctx is canceled or a fatal
// runtime error forces an early return. It returns the process exit code
// rather than calling os.Exit itself so deferred cleanup always runs.
func run(ctx context.Context) int {
	cfg, err := config.Load()
	if err != nil {
		fatalStartup(nil, "E_CONFIG_LOAD", err)
		return 1
	}

	logger, closer, err := telemetry.NewLogger(cfg.HomeDir, cfg.LogLevel, false)
	if err != nil {
		fatalStartup(nil, "E_LOGGER_INIT", err)
		return 1
	}
	defer closer.Close()
	slog.SetDefault(logger)
	logger.Info("startup phase", "phase", "config_loaded", "environment", cfg.Environment)

	report := validator.Run(ctx, []validator.Phase{
		validator.PreInitPhase([]string{"FIREBASE_PROJECT_ID", "KICKAI_INVITE_SECRET_KEY"}, cfg.HomeDir),
		validator.ConfigurationPhase(nil),
	})
	if !report.Ready {
		fatalStartup(logger, "E_VALIDATION_PRE_INIT", validationFailure(report))
		return 1
	}
	logger.Info("startup phase", "phase", "pre_init_validated")

	dbPath := filepath.Join(cfg.HomeDir, "kickai.db")
	st, err := sqlitestore.Open(dbPath)
	if err != nil {
		fatalStartup(logger, "E_STORE_OPEN", err)
		return 1
	}
	defer st.Close()
	logger.Info("startup phase", "phase", "store_opened", "path", dbPath)

	teams := teamcache.New(st, logger)
	if err := teams.Initialize(ctx); err != nil {
		fatalStartup(logger, "E_TEAMCACHE_INIT", err)
		return 1
	}
	logger.Info("startup phase", "phase", "teamcache_initialized", "teams", len(teams.GetAllTeamIDs()))

	coreDeps := validator.Run(ctx, []validator.Phase{validator.CoreDependenciesPhase(st.Ping)})
	if !coreDeps.Ready {
		fatalStartup(logger, "E_VALIDATION_CORE_DEPS", validationFailure(coreDeps))
		return 1
	}

	players := domain.NewStorePlayerService(st)
	members := domain.NewStoreTeamMemberService(st)
	matches := domain.NewStoreMatchService(st)

	svcReg := registry.New(cfg.Registry.CircuitBreakerThreshold, time.Duration(cfg.Registry.CircuitBreakerTimeoutSeconds)*time.Second)
	svcReg.RegisterChecker(health.StoreChecker{})
	svcReg.RegisterChecker(health.DomainChecker{})
	svcReg.RegisterChecker(health.AgentChecker{})

	if err := discovery.AutoRegister(svcReg, logger, []discovery.ContainerEntry{
		{Name: "document_store", Instance: st},
		{Name: "player_service", Instance: players},
		{Name: "team_member_service", Instance: members},
		{Name: "match_service", Instance: matches},
	}, nil); err != nil {
		fatalStartup(logger, "E_SERVICE_REGISTRATION", err)
		return 1
	}

	toolReg := tools.NewRegistry()
	tools.RegisterBuiltins(toolReg)
	logger.Info("startup phase", "phase", "registries_populated", "tools", toolReg.Count())

	rt := router.New(teams, toolReg, svcReg, players, members, nil)

	manager := fleet.NewManager(teams, rt, logger, 10*time.Second)

	// The communication service is a single process-wide instance; its
	// Sender resolves which team's worker owns a given chat id, so one
	// instance can announce/redeem invites across every team's bot.
	comms := domain.NewStoreCommunicationService(st, manager)
	if err := svcReg.Register(config.ServiceDefinition{Name: "communication_service"}, comms); err != nil {
		fatalStartup(logger, "E_SERVICE_REGISTRATION", err)
		return 1
	}

	registriesOK := validator.Run(ctx, []validator.Phase{
		validator.RegistriesPhase(toolReg.Count(), toolReg.Count(), true),
	})
	if !registriesOK.Ready {
		fatalStartup(logger, "E_VALIDATION_REGISTRIES", validationFailure(registriesOK))
		return 1
	}

	watcher := discovery.NewWatcher(cfg.HomeDir, svcReg, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("service definition watcher failed to start", "error", err)
	}

	scheduler, err := registry.NewScheduler(svcReg, serviceHealthCronSpec(cfg), logger)
	if err != nil {
		logger.Warn("health check scheduler disabled: invalid spec", "error", err)
	} else {
		scheduler.Start()
		defer scheduler.Stop()
	}

	servicesOK := validator.Run(ctx, []validator.Phase{
		validator.ServicesPhase(summarizeServiceHealth(svcReg.CheckAll(ctx), svcReg.List())),
	})
	if !servicesOK.Ready {
		fatalStartup(logger, "E_VALIDATION_SERVICES", validationFailure(servicesOK))
		return 1
	}

	smoke := rt.Route(ctx, router.RoutedMessage{TeamID: "", ChatID: 0, TelegramID: 0, Text: "/help"})
	agentsOK := validator.Run(ctx, []validator.Phase{
		validator.AgentsPhase(nil, nil),
		validator.PostInitPhase(strings.Contains(smoke.Text, "🤖"), 0, 0),
	})
	if !agentsOK.Ready {
		fatalStartup(logger, "E_VALIDATION_AGENTS", validationFailure(agentsOK))
		return 1
	}
	logger.Info("startup phase", "phase", "validator_passed")

	manager.StartAll(ctx)
	logger.Info("startup phase", "phase", "fleet_started", "running", len(manager.ListRunning()))

	srv := newHealthServer(cfg.Port, manager, logger)
	srvErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErrCh <- err
		}
	}()
	logger.Info("startup phase", "phase", "health_server_listening", "port", cfg.Port)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-srvErrCh:
		logger.Error("health server failed", "error", err)
		manager.StopAll(context.Background())
		return 2
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	manager.StopAll(shutdownCtx)
	logger.Info("shutdown complete", "running", len(manager.ListRunning()))
	return 0
}

func serviceHealthCronSpec(cfg config.Settings) string {
	interval := cfg.Registry.HealthCheckIntervalSeconds
	if interval <= 0 {
		interval = 60
	}
	return fmt.Sprintf("@every %ds", interval)
}

func summarizeServiceHealth(results map[string]registry.ServiceHealth, defs []config.ServiceDefinition) validator.ServiceHealthSummary {
	coreNames := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.ServiceType == config.ServiceTypeCore {
			coreNames[d.Name] = true
		}
	}

	var summary validator.ServiceHealthSummary
	for name, h := range results {
		if h.Status == registry.StatusHealthy {
			summary.Healthy++
			continue
		}
		summary.Unhealthy++
		if coreNames[name] {
			summary.UnhealthyCoreNames = append(summary.UnhealthyCoreNames, name)
		}
	}
	return summary
}

func validationFailure(report validator.Report) error {
	if len(report.Results) == 0 {
		return errors.New("validator: no phases ran")
	}
	last := report.Results[len(report.Results)-1]
	return fmt.Errorf("phase %q failed: %s", last.Phase, last.Message)
}

// newHealthServer builds the /health and /health/detailed surface (§6),
// mirroring the teacher's handleHealthz map[string]any JSON shape.
func newHealthServer(port int, manager *fleet.Manager, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		running := manager.ListRunning()
		payload := map[string]any{
			"status":      "ok",
			"bot_running": len(running) > 0,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
		}
		writeJSON(w, logger, payload)
	})

	mux.HandleFunc("/health/detailed", func(w http.ResponseWriter, r *http.Request) {
		running := manager.ListRunning()
		payload := map[string]any{
			"status":         "ok",
			"bot_running":    len(running) > 0,
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"running_teams": running,
			"running_count": len(running),
		}
		writeJSON(w, logger, payload)
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, payload map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("health endpoint: failed to encode response", "error", err)
	}
}

// fatalStartup logs (or, if the logger isn't up yet, prints a structured
// one-line JSON record) a startup failure and forces exit code 1, matching
// the "configuration or validation failure" exit code (§6).
func fatalStartup(logger *slog.Logger, reasonCode string, err error) {
	message := ""
	if err != nil {
		message = err.Error()
	}
	if logger != nil {
		logger.Error("startup failure", "reason_code", reasonCode, "error", message)
		return
	}
	fmt.Fprintf(
		os.Stderr,
		`{"timestamp":"%s","level":"ERROR","component":"kickaid","msg":"startup failure","reason_code":%q,"error":%q}`+"\n",
		time.Now().UTC().Format(time.RFC3339Nano),
		reasonCode,
		message,
	)
}

// loadDotEnv populates the process environment from a .env file in the
// working directory, without overriding variables already set.
func loadDotEnv(path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.Trim(strings.TrimSpace(line[eq+1:]), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, val)
		}
	}
}
