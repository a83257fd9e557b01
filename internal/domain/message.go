package domain

import (
	"encoding/json"
	"fmt"
)

// MessageType names a websocket message kind.
type MessageType string

// Message kinds exchanged with clients.
const (
	MessageJoinRoom       MessageType = "join-room"
	MessageDraw           MessageType = "draw"
	MessageClearCanvas    MessageType = "clear-canvas"
	MessageDrawingHistory MessageType = "drawing-history"
	MessageUserCount      MessageType = "user-count"
	MessagePopularRooms   MessageType = "popular-rooms"
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// EncodeMessage marshals data and wraps it in an envelope of type t.
// A json.RawMessage payload is embedded as-is.
func EncodeMessage(t MessageType, data any) ([]byte, error) {
	env := Envelope{Type: t}
	switch v := data.(type) {
	case nil:
	case json.RawMessage:
		env.Data = v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", t, err)
		}
		env.Data = raw
	}

	frame, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode %s envelope: %w", t, err)
	}
	return frame, nil
}
