package providers

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/pixelworld/pixelworld-server/internal/config"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/room"
	"github.com/pixelworld/pixelworld-server/internal/service"
	"github.com/pixelworld/pixelworld-server/internal/validation"
)

// ProvideValidator provides the payload validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return validation.New(cfg.Rooms.MaxBatchPixels), nil
}

// ProvideRegistry loads every stored room and makes sure the default room exists.
func ProvideRegistry(i do.Injector) (*room.Registry, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)

	registry := room.NewRegistry(storeHandle, log.Logger,
		room.WithSaveConcurrency(cfg.Persistence.Concurrency))

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// Serving without the stored rooms would let the first flush overwrite
	// them, so a store that stays unreadable stops startup.
	loaded, err := registry.LoadAllRetry(ctx, loadAttempts, loadBackoff)
	if err != nil {
		return nil, fmt.Errorf("load rooms: %w", err)
	}

	if _, err := registry.CreateRoom(cfg.Rooms.DefaultRoom); err != nil {
		return nil, fmt.Errorf("create default room %q: %w", cfg.Rooms.DefaultRoom, err)
	}

	if searchHandle.SearchIndex != nil {
		if err := searchHandle.Reindex(registry.Infos()); err != nil {
			log.Warn("Initial search reindex failed", "error", err)
		}
		registry.SetObserver(searchHandle.Observer)
	}

	log.Info("Rooms loaded", "rooms", loaded, "default_room", cfg.Rooms.DefaultRoom)

	return registry, nil
}

// ProvideHub provides the client hub. The container calls its Shutdown.
func ProvideHub(i do.Injector) (*hub.Hub, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	return hub.New(log.Logger, cfg.Transport.SendBuffer), nil
}

// ProvideSyncService provides the room sync service.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*room.Registry](i)
	h := do.MustInvoke[*hub.Hub](i)
	v := do.MustInvoke[*validation.Validator](i)

	return service.NewSyncService(registry, h, v, log.Logger, service.SyncConfig{
		DefaultRoom:  cfg.Rooms.DefaultRoom,
		PopularLimit: cfg.Rooms.PopularLimit,
	}), nil
}
