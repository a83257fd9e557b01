package room

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
	"github.com/pixelworld/pixelworld-server/internal/slug"
)

// Repository is the durable store behind the registry.
type Repository interface {
	LoadRooms(ctx context.Context) ([]domain.RoomRecord, error)
	SaveRoom(ctx context.Context, rec *domain.RoomRecord) error
}

// Observer is notified about registry changes. Implementations must not block.
type Observer interface {
	RoomCreated(info domain.RoomInfo)
	RoomsSaved(infos []domain.RoomInfo)
}

// Registry maps slugs to rooms. The map lock only guards structure; room
// contents are guarded by each room's own lock.
type Registry struct {
	repo        Repository
	logger      *slog.Logger
	now         func() time.Time
	concurrency int

	mu       sync.RWMutex
	rooms    map[string]*Room
	observer Observer
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithSaveConcurrency bounds how many rooms SaveAll writes at once.
func WithSaveConcurrency(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// NewRegistry creates an empty registry backed by repo.
func NewRegistry(repo Repository, logger *slog.Logger, opts ...Option) *Registry {
	r := &Registry{
		repo:        repo,
		logger:      logger,
		now:         time.Now,
		concurrency: 4,
		rooms:       make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetObserver registers the observer. Set after construction to avoid
// circular wiring with the search index.
func (r *Registry) SetObserver(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// CreateRoom returns the room for s, creating an empty one if absent.
// s must already be a canonical slug.
func (r *Registry) CreateRoom(s string) (*Room, error) {
	if !slug.IsValid(s) {
		return nil, domainerrors.InvalidSlugf("invalid room slug %q", s)
	}

	r.mu.RLock()
	rm, ok := r.rooms[s]
	r.mu.RUnlock()
	if ok {
		return rm, nil
	}

	r.mu.Lock()
	if rm, ok = r.rooms[s]; ok {
		r.mu.Unlock()
		return rm, nil
	}
	rm = newRoom(s, r.now)
	r.rooms[s] = rm
	observer := r.observer
	total := len(r.rooms)
	r.mu.Unlock()

	r.logger.Info("room created", slog.String("room", s), slog.Int("total_rooms", total))
	if observer != nil {
		observer.RoomCreated(rm.Info())
	}
	return rm, nil
}

// HasRoom reports whether s exists.
func (r *Registry) HasRoom(s string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[s]
	return ok
}

// Room looks up an existing room.
func (r *Registry) Room(s string) (*Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rm, ok := r.rooms[s]
	return rm, ok
}

// GetHistory returns the current contents of room s in replay order.
// Unknown rooms have an empty history.
func (r *Registry) GetHistory(s string) []domain.Pixel {
	rm, ok := r.Room(s)
	if !ok {
		return []domain.Pixel{}
	}
	return rm.History()
}

// Rooms returns a point-in-time slice of all rooms. Rooms created after the
// call are not included; iteration never holds the registry lock.
func (r *Registry) Rooms() []*Room {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		out = append(out, rm)
	}
	return out
}

// Len returns the number of rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Infos returns the summary of every room.
func (r *Registry) Infos() []domain.RoomInfo {
	rooms := r.Rooms()
	infos := make([]domain.RoomInfo, len(rooms))
	for i, rm := range rooms {
		infos[i] = rm.Info()
	}
	return infos
}

// Popular returns the top n rooms by pixel count, most recently modified
// first on ties, then by slug so the order is total.
func (r *Registry) Popular(n int) []domain.RoomInfo {
	infos := r.Infos()
	slices.SortFunc(infos, func(a, b domain.RoomInfo) int {
		if c := cmp.Compare(b.PixelCount, a.PixelCount); c != 0 {
			return c
		}
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Slug, b.Slug)
	})
	if n >= 0 && len(infos) > n {
		infos = infos[:n]
	}
	return infos
}

// LoadAll populates the registry from the repository. Records with invalid
// slugs are skipped; rooms already in memory are left untouched.
func (r *Registry) LoadAll(ctx context.Context) (int, error) {
	records, err := r.repo.LoadRooms(ctx)
	if err != nil {
		return 0, domainerrors.Storage(err, "load rooms")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	loaded := 0
	for i := range records {
		rec := &records[i]
		if !slug.IsValid(rec.Slug) {
			r.logger.Warn("skipping stored room with invalid slug", slog.String("room", rec.Slug))
			continue
		}
		if _, exists := r.rooms[rec.Slug]; exists {
			continue
		}
		r.rooms[rec.Slug] = newRoomFromRecord(rec, r.now)
		loaded++
	}
	return loaded, nil
}

// LoadAllRetry calls LoadAll up to attempts times, doubling the wait after
// each failure starting at backoff. It returns the last error once attempts
// run out or ctx ends.
func (r *Registry) LoadAllRetry(ctx context.Context, attempts int, backoff time.Duration) (int, error) {
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		loaded, err := r.LoadAll(ctx)
		if err == nil {
			return loaded, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		r.logger.Warn("loading rooms failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.String("error", err.Error()))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, fmt.Errorf("%w (gave up: %w)", lastErr, ctx.Err())
		case <-timer.C:
		}
		backoff *= 2
	}
	return 0, lastErr
}

// SaveReport summarizes one SaveAll pass.
type SaveReport struct {
	Saved   int
	Skipped int
	Failed  int
}

// SaveAll writes every dirty room to the repository. Each room is
// snapshotted under its own lock and written outside it, with at most the
// configured number of writes in flight. Failed rooms stay dirty so the
// next pass retries them; the joined error lists every failure.
func (r *Registry) SaveAll(ctx context.Context) (SaveReport, error) {
	type job struct {
		room    *Room
		rec     *domain.RoomRecord
		version uint64
	}

	var report SaveReport
	var jobs []job
	for _, rm := range r.Rooms() {
		if !rm.Dirty() {
			report.Skipped++
			continue
		}
		rec, version := rm.Snapshot()
		jobs = append(jobs, job{room: rm, rec: rec, version: version})
	}

	var (
		mu    sync.Mutex
		errs  []error
		saved []domain.RoomInfo
	)

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			if err := r.repo.SaveRoom(ctx, j.rec); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("save room %s: %w", j.rec.Slug, err))
				mu.Unlock()
				// One room failing must not cancel the others.
				return nil
			}
			j.room.MarkSaved(j.version)
			mu.Lock()
			saved = append(saved, j.rec.Info())
			mu.Unlock()
			return nil
		})
	}
	// Jobs record failures in errs and always return nil.
	g.Wait()

	report.Saved = len(saved)
	report.Failed = len(errs)

	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()
	if observer != nil && len(saved) > 0 {
		observer.RoomsSaved(saved)
	}

	if len(errs) > 0 {
		return report, domainerrors.Storage(domainerrors.Join(errs...), "save rooms")
	}
	return report, nil
}
