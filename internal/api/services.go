package api

import (
	"context"

	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/persist"
	"github.com/pixelworld/pixelworld-server/internal/search"
	"github.com/pixelworld/pixelworld-server/internal/service"
)

// StorageStatus reports whether the durable store is reachable and how many
// rooms it holds.
type StorageStatus interface {
	Ping(ctx context.Context) error
	CountRooms(ctx context.Context) (int, error)
}

// FlushStatus reports the outcome of recent room flushes.
type FlushStatus interface {
	Status() persist.Status
}

// Services groups what the API server reads from.
// Optional members may be nil; the matching endpoints and health checks degrade.
type Services struct {
	Sync    *service.SyncService
	Hub     *hub.Hub
	Search  *search.SearchIndex // optional
	Storage StorageStatus       // optional
	Persist FlushStatus         // optional
}
