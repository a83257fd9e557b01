package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/search"
)

func TestSearchRooms(t *testing.T) {
	ts := setupTestServer(t)
	require.NoError(t, ts.index.IndexRooms([]domain.RoomInfo{
		{Slug: "sunset-beach", PixelCount: 4, UpdatedAt: time.Now()},
		{Slug: "pixel-party", PixelCount: 9, UpdatedAt: time.Now()},
	}))

	resp := ts.api.Get("/api/v1/rooms/search?q=beach")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decode[search.SearchResult](t, resp.Body.Bytes())
	require.Len(t, env.Data.Hits, 1)
	assert.Equal(t, "sunset-beach", env.Data.Hits[0].Slug)
	assert.Equal(t, 4, env.Data.Hits[0].PixelCount)
}

func TestSearchRooms_Disabled(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Search = nil

	resp := ts.api.Get("/api/v1/rooms/search?q=beach")

	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
