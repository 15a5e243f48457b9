package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/shareboard/shareboard/internal/config"
	"github.com/shareboard/shareboard/internal/logger"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/settings"
	"github.com/shareboard/shareboard/internal/sse"
	"github.com/shareboard/shareboard/internal/store"
	"github.com/shareboard/shareboard/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// StoreHandle wraps the document store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the document store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.DocumentStorePath()
	db, err := store.New(dbPath, log.WithComponent("store"))
	if err != nil {
		return nil, err
	}

	log.Info("Document store initialized", "path", dbPath)

	return &StoreHandle{Store: db}, nil
}

// PreferencesHandle wraps the preferences database and its watcher.
type PreferencesHandle struct {
	*sqlite.Store
	Settings *settings.Service
	cancel   context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *PreferencesHandle) Shutdown() error {
	h.cancel()
	return h.Close()
}

// ProvidePreferences opens the preferences database and starts reloading it
// when another process writes it.
func ProvidePreferences(i do.Injector) (*PreferencesHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	dbPath := cfg.PreferencesPath()
	db, err := sqlite.Open(dbPath, log.WithComponent("preferences"))
	if err != nil {
		return nil, err
	}

	svc, err := settings.NewService(db, settings.DeviceClass(cfg.App.Device), log.WithComponent("settings"))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := svc.Watch(ctx, dbPath); err != nil {
			log.Warn("Preference watcher stopped", "error", err)
		}
	}()

	log.Info("Preferences initialized", "path", dbPath)

	return &PreferencesHandle{Store: db, Settings: svc, cancel: cancel}, nil
}
