package hub

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	domainerrors "github.com/pixelworld/pixelworld-server/internal/errors"
)

func newTestHub(t *testing.T, buffer int) *Hub {
	t.Helper()
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), buffer)
}

func register(t *testing.T, h *Hub) *Client {
	t.Helper()
	c, err := h.Register()
	require.NoError(t, err)
	return c
}

// drain returns every frame currently queued for c.
func drain(c *Client) []domain.Envelope {
	var out []domain.Envelope
	for {
		select {
		case frame := <-c.Send():
			var env domain.Envelope
			if err := json.Unmarshal(frame, &env); err == nil {
				out = append(out, env)
			}
		default:
			return out
		}
	}
}

func lastCount(t *testing.T, envs []domain.Envelope) int {
	t.Helper()
	for i := len(envs) - 1; i >= 0; i-- {
		if envs[i].Type == domain.MessageUserCount {
			var n int
			require.NoError(t, json.Unmarshal(envs[i].Data, &n))
			return n
		}
	}
	t.Fatal("no user-count message")
	return 0
}

func TestHub_JoinAnnouncesCount(t *testing.T) {
	h := newTestHub(t, 16)
	a := register(t, h)
	b := register(t, h)

	_, count := h.Join(a, "main")
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, lastCount(t, drain(a)))

	_, count = h.Join(b, "main")
	assert.Equal(t, 2, count)
	assert.Equal(t, 2, lastCount(t, drain(a)))
	assert.Equal(t, 2, lastCount(t, drain(b)))
}

func TestHub_JoinImplicitlyLeavesPreviousRoom(t *testing.T) {
	h := newTestHub(t, 16)
	a := register(t, h)
	b := register(t, h)
	h.Join(a, "red")
	h.Join(b, "red")
	drain(a)

	left, count := h.Join(b, "blue")

	assert.Equal(t, "red", left)
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, h.Count("red"))
	assert.Equal(t, 1, h.Count("blue"))
	assert.Equal(t, "blue", h.RoomOf(b))
	assert.Equal(t, 1, lastCount(t, drain(a)))
}

func TestHub_RejoinSameRoomKeepsCount(t *testing.T) {
	h := newTestHub(t, 16)
	a := register(t, h)

	h.Join(a, "main")
	left, count := h.Join(a, "main")

	assert.Empty(t, left)
	assert.Equal(t, 1, count)
}

func TestHub_BroadcastExcludesOriginAndOtherRooms(t *testing.T) {
	h := newTestHub(t, 16)
	origin := register(t, h)
	peer := register(t, h)
	stranger := register(t, h)
	lobby := register(t, h)

	h.Join(origin, "main")
	h.Join(peer, "main")
	h.Join(stranger, "other")
	for _, c := range []*Client{origin, peer, stranger, lobby} {
		drain(c)
	}

	delivered := h.Broadcast("main", origin, []byte(`{"type":"draw","data":{}}`))

	assert.Equal(t, 1, delivered)
	assert.Empty(t, drain(origin))
	assert.Empty(t, drain(stranger))
	assert.Empty(t, drain(lobby))
	got := drain(peer)
	require.Len(t, got, 1)
	assert.Equal(t, domain.MessageDraw, got[0].Type)
}

func TestHub_BroadcastPreservesOrder(t *testing.T) {
	h := newTestHub(t, 64)
	origin := register(t, h)
	peer := register(t, h)
	h.Join(origin, "main")
	h.Join(peer, "main")
	drain(peer)

	for i := range 20 {
		frame, err := domain.EncodeMessage(domain.MessageDraw, i)
		require.NoError(t, err)
		h.Broadcast("main", origin, frame)
	}

	got := drain(peer)
	require.Len(t, got, 20)
	for i, env := range got {
		var n int
		require.NoError(t, json.Unmarshal(env.Data, &n))
		assert.Equal(t, i, n)
	}
}

func TestHub_SlowClientIsDropped(t *testing.T) {
	h := newTestHub(t, 2)
	origin := register(t, h)
	slow := register(t, h)
	h.Join(origin, "main")
	h.Join(slow, "main") // slow now holds one user-count frame
	drain(origin)

	h.Broadcast("main", origin, []byte(`{"type":"draw"}`))
	delivered := h.Broadcast("main", origin, []byte(`{"type":"draw"}`))

	assert.Equal(t, 0, delivered)
	select {
	case <-slow.Done():
	default:
		t.Fatal("slow client should be closed")
	}
	assert.Equal(t, 1, h.Count("main"))
	assert.Equal(t, 1, h.ClientCount())
	assert.Equal(t, 1, lastCount(t, drain(origin)))
}

func TestHub_UnregisterLeavesRoom(t *testing.T) {
	h := newTestHub(t, 16)
	a := register(t, h)
	b := register(t, h)
	h.Join(a, "main")
	h.Join(b, "main")
	drain(a)

	h.Unregister(b)
	h.Unregister(b)

	assert.Equal(t, 1, h.Count("main"))
	assert.Equal(t, 1, lastCount(t, drain(a)))
	assert.Empty(t, h.RoomOf(b))
	_, ok := <-b.Done()
	assert.False(t, ok)
}

func TestHub_MembershipCountMatchesLatestJoins(t *testing.T) {
	h := newTestHub(t, 64)
	clients := make([]*Client, 6)
	for i := range clients {
		clients[i] = register(t, h)
	}

	h.Join(clients[0], "a")
	h.Join(clients[1], "a")
	h.Join(clients[2], "b")
	h.Join(clients[3], "a")
	h.Join(clients[3], "b")
	h.Join(clients[4], "b")
	h.Leave(clients[4])
	h.Join(clients[5], "a")
	h.Unregister(clients[0])

	assert.Equal(t, 2, h.Count("a"))
	assert.Equal(t, 2, h.Count("b"))
	assert.Equal(t, 0, h.Count("c"))
}

func TestHub_ShutdownClosesClients(t *testing.T) {
	h := newTestHub(t, 16)
	a := register(t, h)
	h.Join(a, "main")

	require.NoError(t, h.Shutdown(context.Background()))

	_, ok := <-a.Done()
	assert.False(t, ok)
	assert.Equal(t, 0, h.ClientCount())

	_, err := h.Register()
	assert.ErrorIs(t, err, domainerrors.ErrUnavailable)
}
