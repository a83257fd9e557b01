package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/pixelworld/pixelworld-server/internal/config"
	"github.com/pixelworld/pixelworld-server/internal/logger"
	"github.com/pixelworld/pixelworld-server/internal/persist"
	"github.com/pixelworld/pixelworld-server/internal/room"
)

// PersistSchedulerHandle wraps the flush scheduler with shutdown capability.
type PersistSchedulerHandle struct {
	*persist.Scheduler
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable. It performs the final flush when
// configured, before the store and search index close.
func (h *PersistSchedulerHandle) Shutdown() error {
	h.cancel()
	return h.Stop()
}

// ProvidePersistScheduler starts periodic room flushing.
func ProvidePersistScheduler(i do.Injector) (*PersistSchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	registry := do.MustInvoke[*room.Registry](i)
	// The final flush writes through both; they must outlive the scheduler.
	_ = do.MustInvoke[*StoreHandle](i)
	_ = do.MustInvoke[*SearchIndexHandle](i)

	scheduler := persist.New(registry, log.Logger, persist.Options{
		Interval:        cfg.Persistence.Interval,
		SaveOnShutdown:  cfg.Persistence.SaveOnShutdown,
		ShutdownTimeout: shutdownTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	scheduler.Start(ctx)

	log.Info("Room flush scheduler started",
		"interval", cfg.Persistence.Interval,
		"save_on_shutdown", cfg.Persistence.SaveOnShutdown,
	)

	return &PersistSchedulerHandle{Scheduler: scheduler, cancel: cancel}, nil
}
