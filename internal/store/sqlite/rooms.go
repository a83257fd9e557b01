package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

const upsertRoomSQL = `
INSERT INTO rooms (slug, pixels, pixel_count, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
    pixels      = excluded.pixels,
    pixel_count = excluded.pixel_count,
    updated_at  = excluded.updated_at`

// LoadRooms returns every stored room record.
func (s *Store) LoadRooms(ctx context.Context) ([]domain.RoomRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, pixels, created_at, updated_at FROM rooms ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var records []domain.RoomRecord
	for rows.Next() {
		rec, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rooms: %w", err)
	}
	return records, nil
}

// SaveRoom creates or overwrites the record for rec.Slug. The original
// created_at is kept on overwrite.
func (s *Store) SaveRoom(ctx context.Context, rec *domain.RoomRecord) error {
	pixels := rec.Pixels
	if pixels == nil {
		pixels = []domain.Pixel{}
	}
	data, err := json.Marshal(pixels)
	if err != nil {
		return fmt.Errorf("marshal pixels: %w", err)
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = rec.UpdatedAt
	}

	_, err = s.db.ExecContext(ctx, upsertRoomSQL,
		rec.Slug,
		string(data),
		len(pixels),
		formatTime(createdAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert room %s: %w", rec.Slug, err)
	}
	return nil
}

// CountRooms returns how many room records are stored.
func (s *Store) CountRooms(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRoom(row scanner) (*domain.RoomRecord, error) {
	var rec domain.RoomRecord
	var pixels, createdAt, updatedAt string
	if err := row.Scan(&rec.Slug, &pixels, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(pixels), &rec.Pixels); err != nil {
		return nil, fmt.Errorf("unmarshal pixels for %s: %w", rec.Slug, err)
	}

	var err error
	if rec.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &rec, nil
}
