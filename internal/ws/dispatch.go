package ws

import (
	"encoding/json"
	"log/slog"

	"github.com/pixelworld/pixelworld-server/internal/domain"
)

type handlerFunc func(c *Conn, data json.RawMessage) error

func routes() map[domain.MessageType]handlerFunc {
	return map[domain.MessageType]handlerFunc{
		domain.MessageJoinRoom:    handleJoinRoom,
		domain.MessageDraw:        handleDraw,
		domain.MessageClearCanvas: handleClearCanvas,
	}
}

// dispatch routes one decoded envelope. Unknown kinds and rejected payloads
// are dropped; the connection stays open.
func (c *Conn) dispatch(env domain.Envelope) {
	handle, ok := c.handler.routes[env.Type]
	if !ok {
		c.logger.Debug("dropping unknown message", slog.String("type", string(env.Type)))
		return
	}
	if err := handle(c, env.Data); err != nil {
		c.logger.WithRoom(c.handler.hub.RoomOf(c.client)).WithError(err).Debug("dropping rejected message",
			slog.String("type", string(env.Type)))
	}
}

func handleJoinRoom(c *Conn, data json.RawMessage) error {
	var slug string
	if err := json.Unmarshal(data, &slug); err != nil {
		return err
	}
	_, err := c.handler.sync.Join(c.client, slug)
	return err
}

func handleDraw(c *Conn, data json.RawMessage) error {
	_, err := c.handler.sync.Draw(c.client, data)
	return err
}

func handleClearCanvas(c *Conn, _ json.RawMessage) error {
	return c.handler.sync.ClearCanvas(c.client)
}
