package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeMessage(t *testing.T) {
	tests := []struct {
		name string
		typ  MessageType
		data any
		want string
	}{
		{"count", MessageUserCount, 3, `{"type":"user-count","data":3}`},
		{"raw payload kept verbatim", MessageDraw, json.RawMessage(`{"path":"[{\"x\":1,\"y\":2}]","color":"red"}`),
			`{"type":"draw","data":{"path":"[{\"x\":1,\"y\":2}]","color":"red"}}`},
		{"no payload", MessageClearCanvas, nil, `{"type":"clear-canvas"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := EncodeMessage(tt.typ, tt.data)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(frame))
		})
	}
}

func TestEncodeMessage_Unencodable(t *testing.T) {
	_, err := EncodeMessage(MessageDraw, make(chan int))
	assert.ErrorContains(t, err, "encode draw payload")
}
