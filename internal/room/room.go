// Package room owns the authoritative in-memory state of every room: its
// pixel store, its derived RoomInfo, and the registry that maps slugs to rooms.
package room

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pixelworld/pixelworld-server/internal/canvas"
	"github.com/pixelworld/pixelworld-server/internal/domain"
)

// Room is one collaborative canvas. All mutations and snapshot reads are
// serialized on the room's mutex; different rooms never share a lock.
type Room struct {
	slug string
	now  func() time.Time

	mu           sync.Mutex
	pixels       *canvas.Store
	createdAt    time.Time
	updatedAt    time.Time
	version      uint64
	savedVersion uint64

	info atomic.Pointer[domain.RoomInfo]
}

// ApplyResult describes the effect of one edit batch.
type ApplyResult struct {
	Changed int
	Info    domain.RoomInfo
}

func newRoom(slug string, now func() time.Time) *Room {
	t := now()
	r := &Room{
		slug:      slug,
		now:       now,
		pixels:    canvas.New(),
		createdAt: t,
		updatedAt: t,
		// A fresh room is dirty so the next flush creates its record.
		version: 1,
	}
	r.publishLocked()
	return r
}

func newRoomFromRecord(rec *domain.RoomRecord, now func() time.Time) *Room {
	r := &Room{
		slug:      rec.Slug,
		now:       now,
		pixels:    canvas.FromPixels(rec.Pixels),
		createdAt: rec.CreatedAt,
		updatedAt: rec.UpdatedAt,
	}
	if r.createdAt.IsZero() {
		r.createdAt = r.updatedAt
	}
	r.publishLocked()
	return r
}

// Slug returns the room's identifier.
func (r *Room) Slug() string {
	return r.slug
}

// Info returns the latest published summary without taking the room lock.
func (r *Room) Info() domain.RoomInfo {
	return *r.info.Load()
}

// Apply runs the batch's operations in order under the room lock, then calls
// after (if non-nil) inside the same critical section. Callers use after to
// enqueue fan-out so delivery order matches application order; it must not block.
func (r *Room) Apply(b *domain.Batch, after func(domain.RoomInfo)) ApplyResult {
	ops := b.Ops()

	r.mu.Lock()
	defer r.mu.Unlock()

	changed := r.pixels.Apply(ops)
	r.touchLocked()
	info := r.Info()
	if after != nil {
		after(info)
	}
	return ApplyResult{Changed: changed, Info: info}
}

// Reset clears the whole canvas under the room lock and calls after inside
// the critical section.
func (r *Room) Reset(after func(domain.RoomInfo)) ApplyResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	changed := r.pixels.Len()
	r.pixels.Reset()
	r.touchLocked()
	info := r.Info()
	if after != nil {
		after(info)
	}
	return ApplyResult{Changed: changed, Info: info}
}

// View hands fn a copy of the current history while holding the room lock,
// so nothing can be applied between the read and whatever fn enqueues.
func (r *Room) View(fn func(history []domain.Pixel)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fn(r.pixels.Pixels())
}

// History returns a copy of the current contents in replay order.
func (r *Room) History() []domain.Pixel {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pixels.Pixels()
}

// Snapshot copies the room into its durable form. The returned version is
// passed back to MarkSaved once the record has been written.
func (r *Room) Snapshot() (*domain.RoomRecord, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &domain.RoomRecord{
		Slug:      r.slug,
		Pixels:    r.pixels.Pixels(),
		CreatedAt: r.createdAt,
		UpdatedAt: r.updatedAt,
	}, r.version
}

// Dirty reports whether the room changed since its last successful save.
func (r *Room) Dirty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.version != r.savedVersion
}

// MarkSaved records that the snapshot taken at version is durable.
func (r *Room) MarkSaved(version uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if version > r.savedVersion {
		r.savedVersion = version
	}
}

func (r *Room) touchLocked() {
	r.updatedAt = r.now()
	r.version++
	r.publishLocked()
}

func (r *Room) publishLocked() {
	r.info.Store(&domain.RoomInfo{
		Slug:       r.slug,
		PixelCount: r.pixels.Len(),
		UpdatedAt:  r.updatedAt,
	})
}
