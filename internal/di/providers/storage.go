package providers

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/pixelworld/pixelworld-server/internal/config"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/room"
	"github.com/pixelworld/pixelworld-server/internal/store"
	"github.com/pixelworld/pixelworld-server/internal/store/postgres"
	"github.com/pixelworld/pixelworld-server/internal/store/sqlite"
)

// RoomStore is what every storage backend offers.
type RoomStore interface {
	room.Repository
	Ping(ctx context.Context) error
	CountRooms(ctx context.Context) (int, error)
	Close() error
}

// StoreHandle wraps the configured room store with shutdown capability.
type StoreHandle struct {
	RoomStore
	Backend string
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the storage backend selected by configuration.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if err := os.MkdirAll(cfg.Data.BasePath, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	var (
		rs   RoomStore
		err  error
		desc string
	)
	switch cfg.Persistence.Backend {
	case config.BackendSQLite:
		desc = filepath.Join(cfg.Data.BasePath, "rooms.sqlite")
		rs, err = sqlite.Open(desc, log.Logger)
	case config.BackendPostgres:
		ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
		defer cancel()
		desc = "postgres"
		rs, err = postgres.Open(ctx, cfg.Persistence.DatabaseURL, log.Logger)
	default:
		desc = filepath.Join(cfg.Data.BasePath, "db")
		rs, err = store.New(desc, log.Logger)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Persistence.Backend, err)
	}

	log.Info("Database initialized", "backend", cfg.Persistence.Backend, "location", desc)

	return &StoreHandle{RoomStore: rs, Backend: cfg.Persistence.Backend}, nil
}
