package ws

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pixelworld/pixelworld-server/internal/domain"
	"github.com/pixelworld/pixelworld-server/internal/hub"
	"github.com/pixelworld/pixelworld-server/internal/logger"
)

// Conn is one websocket peer.
type Conn struct {
	ws      *websocket.Conn
	client  *hub.Client
	handler *Handler
	logger  *logger.Logger
}

// readPump decodes inbound frames until the peer goes away or the hub drops
// the client. Messages from one connection are handled one at a time, in
// arrival order.
func (c *Conn) readPump() {
	pongWait := 2 * c.handler.opts.PingInterval

	c.ws.SetReadLimit(c.handler.opts.MaxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.logger.WithError(err).Debug("websocket read failed")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		if msgType != websocket.TextMessage {
			continue
		}

		var env domain.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.WithError(err).Debug("dropping undecodable message")
			continue
		}
		c.dispatch(env)
	}
}

// writePump drains the client's queue onto the socket and sends heartbeats.
// It is the only writer on the connection.
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.handler.opts.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.client.Send():
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.fail(err)
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.fail(err)
				return
			}

		case <-c.client.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

func (c *Conn) fail(err error) {
	if !errors.Is(err, websocket.ErrCloseSent) {
		c.logger.WithError(err).Debug("websocket write failed")
	}
	c.handler.sync.Disconnect(c.client)
}
