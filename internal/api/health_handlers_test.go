package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pixelworld/pixelworld-server/internal/persist"
)

func TestHealthCheck_Success(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/health")

	assert.Equal(t, http.StatusOK, resp.Code)
	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, EnvelopeVersion, env.Version)
	assert.True(t, env.Success)
	assert.Equal(t, "healthy", env.Data.Status)
	for _, name := range []string{"storage", "persistence", "search", "hub"} {
		assert.Contains(t, env.Data.Components, name)
	}
}

func TestHealthCheck_StorageDown(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Storage = fakeStorage{pingErr: errors.New("disk gone")}

	resp := ts.api.Get("/health")

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "unhealthy", env.Data.Status)
	assert.Equal(t, "unhealthy", env.Data.Components["storage"].Status)
}

func TestHealthCheck_StorageRoomCount(t *testing.T) {
	tests := []struct {
		name        string
		storage     fakeStorage
		wantStatus  string
		wantMessage string
	}{
		{"counted", fakeStorage{rooms: 3}, "healthy", "3 rooms stored"},
		{"count fails", fakeStorage{countErr: errors.New("scan failed")}, "degraded", "room count unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)
			ts.services.Storage = tt.storage

			resp := ts.api.Get("/health")

			env := decode[HealthResponse](t, resp.Body.Bytes())
			assert.Equal(t, tt.wantStatus, env.Data.Components["storage"].Status)
			assert.Equal(t, tt.wantMessage, env.Data.Components["storage"].Message)
		})
	}
}

func TestHealthCheck_FlushFailuresDegrade(t *testing.T) {
	ts := setupTestServer(t)
	ts.services.Persist = fakeFlushStatus{status: persist.Status{ConsecutiveFailures: 2, LastError: "boom"}}
	ts.services.Search = nil

	resp := ts.api.Get("/health")

	env := decode[HealthResponse](t, resp.Body.Bytes())
	assert.Equal(t, "degraded", env.Data.Status)
	assert.Contains(t, env.Data.Components["persistence"].Message, "boom")
	assert.Equal(t, "degraded", env.Data.Components["search"].Status)
}

func TestFormatClientStatus(t *testing.T) {
	assert.Equal(t, "no connected clients", formatClientStatus(0))
	assert.Equal(t, "1 connected client", formatClientStatus(1))
	assert.Equal(t, "12 connected clients", formatClientStatus(12))
}
