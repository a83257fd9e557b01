// Package postgres provides a PostgreSQL-backed room repository.
package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

const upsertRoomSQL = `
INSERT INTO rooms (slug, pixels, pixel_count, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (slug) DO UPDATE SET
    pixels      = EXCLUDED.pixels,
    pixel_count = EXCLUDED.pixel_count,
    updated_at  = EXCLUDED.updated_at`

// Store persists rooms in PostgreSQL through a connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to the database at dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger != nil {
		logger.Info("Connected to PostgreSQL successfully")
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases every pooled connection.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// LoadRooms returns every stored room record.
func (s *Store) LoadRooms(ctx context.Context) ([]domain.RoomRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT slug, pixels, created_at, updated_at FROM rooms ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}

	records, err := pgx.CollectRows(rows, scanRoom)
	if err != nil {
		return nil, fmt.Errorf("collect rooms: %w", err)
	}
	return records, nil
}

// SaveRoom creates or overwrites the record for rec.Slug.
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

	if _, err := s.pool.Exec(ctx, upsertRoomSQL, rec.Slug, data, len(pixels), createdAt, rec.UpdatedAt); err != nil {
		return fmt.Errorf("upsert room %s: %w", rec.Slug, err)
	}
	return nil
}

// CountRooms returns how many room records are stored.
func (s *Store) CountRooms(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM rooms`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rooms: %w", err)
	}
	return n, nil
}

func scanRoom(row pgx.CollectableRow) (domain.RoomRecord, error) {
	var rec domain.RoomRecord
	var pixels []byte
	if err := row.Scan(&rec.Slug, &pixels, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return rec, err
	}
	if err := json.Unmarshal(pixels, &rec.Pixels); err != nil {
		return rec, fmt.Errorf("unmarshal pixels for %s: %w", rec.Slug, err)
	}
	return rec, nil
}
