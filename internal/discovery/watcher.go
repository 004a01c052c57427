package discovery

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/kickai/kickai/internal/config"
)

// Watcher hot-reloads services.yaml and re-runs module scan registration on
// change, adapted from the teacher's internal/config/watcher.go (same
// fsnotify.Watcher/event-channel shape), narrowed from "any of several
// config/policy files" to the one file discovery cares about.
type Watcher struct {
	homeDir string
	logger  *slog.Logger
	reg     Registrar
}

// NewWatcher builds a Watcher that re-registers service definitions loaded
// from homeDir/services.yaml whenever that file changes.
func NewWatcher(homeDir string, reg Registrar, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{homeDir: homeDir, logger: logger, reg: reg}
}

// Start watches services.yaml in the background until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	path := filepath.Join(w.homeDir, "services.yaml")
	_ = fsw.Add(path)

	go func() {
		defer fsw.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fsw.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				w.reload()
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("discovery: service definition watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (w *Watcher) reload() {
	defs, err := config.LoadServiceDefinitions(w.homeDir)
	if err != nil {
		w.logger.Error("discovery: failed to reload services.yaml", "error", err)
		return
	}
	for _, def := range defs {
		if err := w.reg.Register(def, nil); err != nil {
			w.logger.Error("discovery: failed to re-register service", "name", def.Name, "error", err)
			continue
		}
	}
	w.logger.Info("discovery: services.yaml reloaded", "count", len(defs))
}
