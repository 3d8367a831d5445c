package server

import (
	"encoding/json"
)

// Event names exchanged over WebSocket.
const (
	EventHello  = "data:hello"
	EventUpdate = "data:update"
	EventError  = "error"

	// Relay topics are forwarded to every other client and never persisted.
	EventTableSelection   = "tableSelection"
	EventTableSizesUpdate = "tableSizesUpdate"
)

func isRelayEvent(event string) bool {
	return event == EventTableSelection || event == EventTableSizesUpdate
}

// ClientMessage is a frame from client to server.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ServerMessage is a frame from server to client.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Encode serializes a ServerMessage to JSON bytes.
func (m ServerMessage) Encode() []byte {
	b, _ := json.Marshal(m)
	return b
}

// Update is the body of a data:update event.
type Update struct {
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
	TS      string `json:"ts"`
}

// Hello greets a newly joined client.
type Hello struct {
	OK       bool   `json:"ok"`
	TS       string `json:"ts"`
	ClientID string `json:"clientId"`
}

// Change is the payload published for a collection mutation.
type Change struct {
	Action string `json:"action"`
	Item   any    `json:"item"`
}

// StateChange is the payload published after a posState merge. ClientID
// lets the originating client recognize its own echo.
type StateChange struct {
	Action   string   `json:"action"`
	Keys     []string `json:"keys"`
	ClientID *string  `json:"clientId"`
}

type errorBody struct {
	Message string `json:"message"`
}
