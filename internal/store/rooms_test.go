package store_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/room"
	"github.com/pixelworld/pixelworld-server/internal/store"
)

var _ room.Repository = (*store.Store)(nil)

func TestRooms_SaveAndLoad(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	rec := &domain.RoomRecord{
		Slug:      "main",
		Pixels:    []domain.Pixel{{X: 1, Y: 2, Color: "#fff"}, {X: -3, Y: 4, Color: "#000"}},
		CreatedAt: now,
		UpdatedAt: now.Add(time.Minute),
	}
	require.NoError(t, s.SaveRoom(ctx, rec))

	rec.Pixels = rec.Pixels[:1]
	require.NoError(t, s.SaveRoom(ctx, rec))
	require.NoError(t, s.SaveRoom(ctx, &domain.RoomRecord{Slug: "empty", UpdatedAt: now}))

	records, err := s.LoadRooms(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	for _, got := range records {
		if got.Slug == "main" {
			assert.Equal(t, []domain.Pixel{{X: 1, Y: 2, Color: "#fff"}}, got.Pixels)
			assert.True(t, got.UpdatedAt.Equal(rec.UpdatedAt))
		}
	}

	n, err := s.CountRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRooms_SurviveReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "rooms.db")
	ctx := context.Background()

	s, err := store.New(dir, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveRoom(ctx, &domain.RoomRecord{
		Slug:   "gallery",
		Pixels: []domain.Pixel{{X: 0, Y: 0, Color: "red"}},
	}))
	require.NoError(t, s.Close())

	reopened, err := store.New(dir, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	records, err := reopened.LoadRooms(ctx)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "gallery", records[0].Slug)
	assert.Equal(t, []domain.Pixel{{X: 0, Y: 0, Color: "red"}}, records[0].Pixels)
}

func TestRooms_CountAndPing(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	n, err := s.CountRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.NoError(t, s.SaveRoom(ctx, &domain.RoomRecord{Slug: "a"}))
	require.NoError(t, s.SaveRoom(ctx, &domain.RoomRecord{Slug: "b"}))
	require.NoError(t, s.SaveRoom(ctx, &domain.RoomRecord{Slug: "a"}))

	n, err = s.CountRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, s.Ping(ctx))
}

func TestRooms_RegistryRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	discard := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := room.NewRegistry(s, discard)
	rm, err := registry.CreateRoom("main")
	require.NoError(t, err)
	rm.Apply(&domain.Batch{Color: "red", Pixels: []domain.BatchPixel{{X: 1, Y: 1}, {X: 2, Y: 2}}}, nil)
	_, err = registry.SaveAll(ctx)
	require.NoError(t, err)

	restarted := room.NewRegistry(s, discard)
	n, err := restarted.LoadAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.ElementsMatch(t, registry.GetHistory("main"), restarted.GetHistory("main"))
}
