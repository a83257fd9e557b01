package sqlite

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/room"
)

var _ room.Repository = (*Store)(nil)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	if err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	var name string
	err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='rooms'").Scan(&name)
	if err != nil {
		t.Errorf("table rooms not found: %v", err)
	}

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestSaveRoom_Upserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := &domain.RoomRecord{
		Slug:      "main",
		Pixels:    []domain.Pixel{{X: 1, Y: 1, Color: "red"}},
		CreatedAt: created,
		UpdatedAt: created,
	}
	if err := s.SaveRoom(ctx, rec); err != nil {
		t.Fatalf("first save: %v", err)
	}

	rec.Pixels = append(rec.Pixels, domain.Pixel{X: 2, Y: 2, Color: "blue"})
	rec.CreatedAt = created.Add(time.Hour) // ignored on overwrite
	rec.UpdatedAt = created.Add(2 * time.Hour)
	if err := s.SaveRoom(ctx, rec); err != nil {
		t.Fatalf("second save: %v", err)
	}

	records, err := s.LoadRooms(ctx)
	if err != nil {
		t.Fatalf("load rooms: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	got := records[0]
	if len(got.Pixels) != 2 {
		t.Errorf("expected 2 pixels, got %d", len(got.Pixels))
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("created_at changed: %v", got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(rec.UpdatedAt) {
		t.Errorf("updated_at = %v, want %v", got.UpdatedAt, rec.UpdatedAt)
	}
}

func TestSaveRoom_EmptyRoom(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveRoom(ctx, &domain.RoomRecord{Slug: "empty", UpdatedAt: time.Now()}); err != nil {
		t.Fatalf("save: %v", err)
	}

	records, err := s.LoadRooms(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 1 || records[0].Slug != "empty" || len(records[0].Pixels) != 0 {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestCountRooms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, slug := range []string{"a", "b", "a"} {
		if err := s.SaveRoom(ctx, &domain.RoomRecord{Slug: slug, UpdatedAt: time.Now()}); err != nil {
			t.Fatalf("save %s: %v", slug, err)
		}
	}

	n, err := s.CountRooms(ctx)
	if err != nil {
		t.Fatalf("count rooms: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 rooms, got %d", n)
	}
}
