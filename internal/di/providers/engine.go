package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/shareboard/shareboard/internal/config"
	"github.com/shareboard/shareboard/internal/engine"
	"github.com/shareboard/shareboard/internal/ingest"
	"github.com/shareboard/shareboard/internal/logger"
	"github.com/shareboard/shareboard/internal/media/cover"
	"github.com/shareboard/shareboard/internal/metrics"
	"github.com/shareboard/shareboard/internal/mutation"
	"github.com/shareboard/shareboard/internal/view"
)

// EngineHandle wraps the engine with shutdown capability.
type EngineHandle struct {
	*engine.Engine
}

// Shutdown implements do.Shutdownable.
func (h *EngineHandle) Shutdown() error {
	return h.Close()
}

// ProvideCoverService provides the mosaic placeholder service. The engine owns
// it and closes it.
func ProvideCoverService(i do.Injector) (*cover.Service, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	storage, err := cover.NewStorage(cfg.CoverCachePath())
	if err != nil {
		return nil, fmt.Errorf("cover storage: %w", err)
	}

	return cover.NewService(storage, cover.Options{
		RatePerSecond: cfg.Cover.RatePerSecond,
		Timeout:       cfg.Cover.Timeout,
	}, m, log.WithComponent("cover")), nil
}

// ProvideEngine builds the engine over the document store and opens the
// catalog subscriptions.
func ProvideEngine(i do.Injector) (*EngineHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	prefs := do.MustInvoke[*PreferencesHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	m := do.MustInvoke[*metrics.Metrics](i)
	covers := do.MustInvoke[*cover.Service](i)

	opts := engine.Options{
		View: view.Options{
			RankingStrategy: cfg.View.RankingStrategy,
			RankingLimit:    cfg.View.RankingLimit,
		},
		Limits: mutation.Limits{
			MaxLists:        cfg.Limits.MaxLists,
			MaxItemsPerList: cfg.Limits.MaxItemsPerList,
		},
		Ingest: ingest.Config{
			FunctionURL:   cfg.Ingest.FunctionURL,
			AllowedHost:   cfg.Ingest.AllowedHost,
			Timeout:       cfg.Ingest.Timeout,
			RatePerSecond: cfg.Ingest.RatePerSecond,
		},
		Covers: covers,
	}

	ctx := context.Background()
	e, err := engine.New(ctx, storeHandle.Store, prefs.Settings, sseHandle.Manager, m, opts, log.Logger)
	if err != nil {
		return nil, err
	}
	if err := e.Start(ctx); err != nil {
		_ = e.Close()
		return nil, err
	}

	log.Info("Engine started", "client_id", e.State.ClientID())

	return &EngineHandle{Engine: e}, nil
}
