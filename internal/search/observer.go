package search

import (
	"log/slog"
	"sync"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

// Observer keeps the index in step with the room registry. Notifications are
// queued and applied by a background goroutine so the join and flush paths
// never wait on the index.
type Observer struct {
	index  *SearchIndex
	logger *slog.Logger
	queue  chan []domain.RoomInfo
	done   chan struct{}

	mu      sync.RWMutex
	stopped bool
}

// NewObserver starts the indexing goroutine.
func NewObserver(index *SearchIndex, logger *slog.Logger) *Observer {
	o := &Observer{
		index:  index,
		logger: logger,
		queue:  make(chan []domain.RoomInfo, 256),
		done:   make(chan struct{}),
	}
	go o.run()
	return o
}

// RoomCreated implements room.Observer.
func (o *Observer) RoomCreated(info domain.RoomInfo) {
	o.enqueue([]domain.RoomInfo{info})
}

// RoomsSaved implements room.Observer.
func (o *Observer) RoomsSaved(infos []domain.RoomInfo) {
	o.enqueue(infos)
}

func (o *Observer) enqueue(infos []domain.RoomInfo) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.stopped {
		return
	}
	select {
	case o.queue <- infos:
	default:
		// A dropped update is picked up by the next flush of that room.
		o.logger.Warn("search index queue full, dropping update", slog.Int("rooms", len(infos)))
	}
}

func (o *Observer) run() {
	defer close(o.done)
	for infos := range o.queue {
		if err := o.index.IndexRooms(infos); err != nil {
			o.logger.Warn("failed to index rooms", slog.String("error", err.Error()))
		}
	}
}

// Stop drains pending updates and stops the goroutine.
func (o *Observer) Stop() {
	o.mu.Lock()
	if !o.stopped {
		o.stopped = true
		close(o.queue)
	}
	o.mu.Unlock()
	<-o.done
}
