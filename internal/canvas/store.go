// Package canvas implements the per-room pixel store: an insertion-ordered set
// of colored cells with at most one entry per coordinate.
package canvas

import (
	"container/list"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

// Store is not safe for concurrent use; the owning room serializes access.
type Store struct {
	order *list.List
	index map[domain.Coord]*list.Element
}

// New returns an empty store.
func New() *Store {
	return &Store{
		order: list.New(),
		index: make(map[domain.Coord]*list.Element),
	}
}

// FromPixels builds a store by replaying pixels as Set operations.
func FromPixels(pixels []domain.Pixel) *Store {
	s := New()
	for _, p := range pixels {
		s.Set(p.X, p.Y, p.Color)
	}
	return s
}

// Set removes any entry at (x,y) and appends the new one, so the
// overwritten cell moves to the end of the replay order.
func (s *Store) Set(x, y int, color string) {
	c := domain.Coord{X: x, Y: y}
	if el, ok := s.index[c]; ok {
		s.order.Remove(el)
	}
	s.index[c] = s.order.PushBack(domain.Pixel{X: x, Y: y, Color: color})
}

// Clear removes the entry at (x,y). It reports whether one existed.
func (s *Store) Clear(x, y int) bool {
	c := domain.Coord{X: x, Y: y}
	el, ok := s.index[c]
	if !ok {
		return false
	}
	s.order.Remove(el)
	delete(s.index, c)
	return true
}

// Apply runs ops strictly left to right and returns how many changed the store.
func (s *Store) Apply(ops []domain.Op) int {
	changed := 0
	for _, op := range ops {
		switch op.Kind {
		case domain.OpSet:
			s.Set(op.X, op.Y, op.Color)
			changed++
		case domain.OpClear:
			if s.Clear(op.X, op.Y) {
				changed++
			}
		}
	}
	return changed
}

// Get returns the pixel at (x,y).
func (s *Store) Get(x, y int) (domain.Pixel, bool) {
	el, ok := s.index[domain.Coord{X: x, Y: y}]
	if !ok {
		return domain.Pixel{}, false
	}
	return el.Value.(domain.Pixel), true
}

// Len returns the number of occupied cells.
func (s *Store) Len() int {
	return len(s.index)
}

// Reset empties the store.
func (s *Store) Reset() {
	s.order.Init()
	clear(s.index)
}

// Pixels returns a copy of the contents in replay order.
func (s *Store) Pixels() []domain.Pixel {
	out := make([]domain.Pixel, 0, len(s.index))
	for el := s.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(domain.Pixel))
	}
	return out
}

// Bounds returns the inclusive bounding box of occupied cells.
// ok is false for an empty store.
func (s *Store) Bounds() (minX, minY, maxX, maxY int, ok bool) {
	for el := s.order.Front(); el != nil; el = el.Next() {
		p := el.Value.(domain.Pixel)
		if !ok {
			minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
			ok = true
			continue
		}
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}
	return minX, minY, maxX, maxY, ok
}
