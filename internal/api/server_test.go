package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/persist"
	"github.com/pixelworld/pixelworld-server/internal/room"
	"github.com/pixelworld/pixelworld-server/internal/search"
	"github.com/pixelworld/pixelworld-server/internal/service"
	"github.com/pixelworld/pixelworld-server/internal/validation"
)

// testEnvelope mirrors APIEnvelope with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

type nopRepo struct{}

func (nopRepo) LoadRooms(context.Context) ([]domain.RoomRecord, error) { return nil, nil }
func (nopRepo) SaveRoom(context.Context, *domain.RoomRecord) error     { return nil }

type fakeStorage struct {
	pingErr  error
	countErr error
	rooms    int
}

func (f fakeStorage) Ping(context.Context) error { return f.pingErr }

func (f fakeStorage) CountRooms(context.Context) (int, error) { return f.rooms, f.countErr }

type fakeFlushStatus struct{ status persist.Status }

func (f fakeFlushStatus) Status() persist.Status { return f.status }

// testServer wraps the API server for testing.
type testServer struct {
	*Server
	api      humatest.TestAPI
	registry *room.Registry
	hub      *hub.Hub
	sync     *service.SyncService
	index    *search.SearchIndex
}

// setupTestServer creates a test server backed by in-memory components.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := room.NewRegistry(nopRepo{}, logger)
	h := hub.New(logger, 64)
	svc := service.NewSyncService(registry, h, validation.New(4096), logger, service.SyncConfig{DefaultRoom: "main", PopularLimit: 6})

	index, err := search.NewSearchIndex(search.Options{Logger: logger})
	require.NoError(t, err)

	services := &Services{
		Sync:    svc,
		Hub:     h,
		Search:  index,
		Storage: fakeStorage{},
		Persist: fakeFlushStatus{},
	}
	s := NewServer(services, nil, Options{}, logger)

	t.Cleanup(func() {
		_ = h.Shutdown(context.Background())
		_ = index.Close()
	})

	return &testServer{
		Server:   s,
		api:      humatest.Wrap(t, s.api),
		registry: registry,
		hub:      h,
		sync:     svc,
		index:    index,
	}
}

// draw applies a batch to slug through a throwaway client.
func (ts *testServer) draw(t *testing.T, slug, payload string) {
	t.Helper()
	c, err := ts.hub.Register()
	require.NoError(t, err)
	defer ts.hub.Unregister(c)

	_, err = ts.sync.Join(c, slug)
	require.NoError(t, err)
	_, err = ts.sync.Draw(c, json.RawMessage(payload))
	require.NoError(t, err)
}

func decode[T any](t *testing.T, body []byte) testEnvelope[T] {
	t.Helper()
	var env testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}
