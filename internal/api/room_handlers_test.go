package api

import (
	"bytes"
	"image/png"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
)

func TestListPopularRooms(t *testing.T) {
	ts := setupTestServer(t)
	ts.draw(t, "small", `{"pixels":[{"x":0,"y":0}],"color":"red"}`)
	ts.draw(t, "big", `{"pixels":[{"x":0,"y":0},{"x":1,"y":0},{"x":2,"y":0}],"color":"red"}`)
	_, err := ts.registry.CreateRoom("empty")
	require.NoError(t, err)

	resp := ts.api.Get("/api/v1/rooms/popular?limit=2")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decode[RoomListResponse](t, resp.Body.Bytes())
	require.Len(t, env.Data.Rooms, 2)
	assert.Equal(t, "big", env.Data.Rooms[0].Slug)
	assert.Equal(t, "small", env.Data.Rooms[1].Slug)
}

func TestListPopularRooms_DefaultAndBounds(t *testing.T) {
	ts := setupTestServer(t)
	for i := range 8 {
		_, err := ts.registry.CreateRoom("room-" + strconv.Itoa(i))
		require.NoError(t, err)
	}

	resp := ts.api.Get("/api/v1/rooms/popular")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decode[RoomListResponse](t, resp.Body.Bytes()).Data.Rooms, DefaultPopularLimit)

	resp = ts.api.Get("/api/v1/rooms/popular?limit=500")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestGetRoom(t *testing.T) {
	ts := setupTestServer(t)
	ts.draw(t, "gallery", `{"pixels":[{"x":0,"y":0},{"x":3,"y":3}],"color":"#336699"}`)

	resp := ts.api.Get("/api/v1/rooms/Gallery")

	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	env := decode[RoomResponse](t, resp.Body.Bytes())
	assert.Equal(t, "gallery", env.Data.Slug)
	assert.Equal(t, 2, env.Data.PixelCount)
	assert.Equal(t, 0, env.Data.Members)
	assert.NotEmpty(t, env.Data.BlurHash)
}

func TestGetRoom_EmptyHasNoBlurHash(t *testing.T) {
	ts := setupTestServer(t)
	_, err := ts.registry.CreateRoom("blank")
	require.NoError(t, err)

	resp := ts.api.Get("/api/v1/rooms/blank")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Empty(t, decode[RoomResponse](t, resp.Body.Bytes()).Data.BlurHash)
}

func TestGetRoom_Errors(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/rooms/ghost")
	assert.Equal(t, http.StatusNotFound, resp.Code)
	env := decode[map[string]any](t, resp.Body.Bytes())
	assert.False(t, env.Success)
	assert.False(t, ts.registry.HasRoom("ghost"))

	resp = ts.api.Get("/api/v1/rooms/!!!")
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), string(domainerrors.CodeInvalidSlug))
}

func TestGetRoomPixels(t *testing.T) {
	ts := setupTestServer(t)
	ts.draw(t, "main", `{"pixels":[{"x":1,"y":2}],"color":"red"}`)
	ts.draw(t, "main", `{"pixels":[{"x":3,"y":4}],"color":"blue"}`)

	resp := ts.api.Get("/api/v1/rooms/main/pixels")

	require.Equal(t, http.StatusOK, resp.Code)
	env := decode[RoomPixelsResponse](t, resp.Body.Bytes())
	assert.Equal(t, []domain.Pixel{
		{X: 1, Y: 2, Color: "red"},
		{X: 3, Y: 4, Color: "blue"},
	}, env.Data.Pixels)
}

func TestGetRoomPreview(t *testing.T) {
	ts := setupTestServer(t)
	ts.draw(t, "main", `{"pixels":[{"x":0,"y":0},{"x":9,"y":4}],"color":"red"}`)
	_, err := ts.registry.CreateRoom("blank")
	require.NoError(t, err)

	resp := ts.api.Get("/api/v1/rooms/main/preview.png?size=64")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, "image/png", resp.Header().Get("Content-Type"))
	assert.Equal(t, CachePreview, resp.Header().Get("Cache-Control"))

	img, err := png.Decode(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 64, img.Bounds().Dx())
	assert.Equal(t, 32, img.Bounds().Dy())

	resp = ts.api.Get("/api/v1/rooms/blank/preview.png?size=16")
	require.Equal(t, http.StatusOK, resp.Code)
	img, err = png.Decode(bytes.NewReader(resp.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 16, img.Bounds().Dx())

	resp = ts.api.Get("/api/v1/rooms/ghost/preview.png")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}
