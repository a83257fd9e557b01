// Package di provides dependency injection configuration for the PixelWorld server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pixelworld/pixelworld-server/internal/config"
	"github.com/pixelworld/pixelworld-server/internal/di/providers"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/room"
	"github.com/pixelworld/pixelworld-server/internal/service"
	"github.com/pixelworld/pixelworld-server/internal/validation"
	"github.com/pixelworld/pixelworld-server/internal/ws"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage and search
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Rooms
	do.Provide(injector, providers.ProvideValidator)
	do.Provide(injector, providers.ProvideRegistry)
	do.Provide(injector, providers.ProvideHub)
	do.Provide(injector, providers.ProvideSyncService)

	// Workers
	do.Provide(injector, providers.ProvidePersistScheduler)

	// Server
	do.Provide(injector, providers.ProvideWSHandler)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)

	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.SearchIndexHandle](injector); err != nil {
		return err
	}

	_ = do.MustInvoke[*validation.Validator](injector)
	if _, err := do.Invoke[*room.Registry](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*hub.Hub](injector)
	_ = do.MustInvoke[*service.SyncService](injector)

	// Workers
	_ = do.MustInvoke[*providers.PersistSchedulerHandle](injector)

	// Server
	_ = do.MustInvoke[*ws.Handler](injector)
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}

	return nil
}
