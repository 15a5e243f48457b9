// Package di provides dependency injection configuration for the shareboard engine.
package di

import (
	"github.com/samber/do/v2"

	"github.com/shareboard/shareboard/internal/config"
	"github.com/shareboard/shareboard/internal/di/providers"
	"github.com/shareboard/shareboard/internal/logger"
	"github.com/shareboard/shareboard/internal/media/cover"
	"github.com/shareboard/shareboard/internal/metrics"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideMetrics)
	do.Provide(injector, providers.ProvideSSEManager)

	// Local storage
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvidePreferences)

	// Engine
	do.Provide(injector, providers.ProvideCoverService)
	do.Provide(injector, providers.ProvideEngine)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services. Invoking the server pulls in the rest,
// but each layer is invoked in order so a failure names the layer that broke.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*metrics.Metrics](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.PreferencesHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*cover.Service](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.EngineHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	return nil
}
