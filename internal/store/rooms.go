package store

import (
	"context"
	"fmt"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

const roomPrefix = "room:"

// LoadRooms returns every stored room record.
func (s *Store) LoadRooms(ctx context.Context) ([]domain.RoomRecord, error) {
	var records []domain.RoomRecord
	for rec, err := range s.Rooms.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// SaveRoom creates or overwrites the record for rec.Slug.
func (s *Store) SaveRoom(ctx context.Context, rec *domain.RoomRecord) error {
	if err := s.Rooms.Upsert(ctx, rec.Slug, rec); err != nil {
		return fmt.Errorf("save room %s: %w", rec.Slug, err)
	}
	return nil
}

// CountRooms returns how many room records are stored.
func (s *Store) CountRooms(ctx context.Context) (int, error) {
	return s.Rooms.Count(ctx)
}
