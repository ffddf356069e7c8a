// Package wire defines the websocket protocol of an editor session and
// serves it.
package wire

import (
	"encoding/json"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/formstore"
)

// ── Client → Server messages ────────────────────────────────────────────────

// ClientMessage is the envelope for all client-to-server websocket messages.
type ClientMessage struct {
	Type string          `json:"type"` // "op", "checklist", "cell", "state", "ping"
	ID   string          `json:"id"`   // Client-assigned request ID
	Data json.RawMessage `json:"data,omitempty"`
}

// ChecklistData is the payload for "checklist" messages.
type ChecklistData struct {
	FieldID string             `json:"fieldId" validate:"required"`
	Op      editor.ChecklistOp `json:"op"`
}

// CellData is the payload for "cell" messages.
type CellData struct {
	FieldID string        `json:"fieldId" validate:"required"`
	Cell    editor.CellOp `json:"cell"`
}

// ── Server → Client messages ────────────────────────────────────────────────

// ServerMessage is the envelope for all server-to-client websocket messages.
type ServerMessage struct {
	Type      string `json:"type"`                 // "state", "checklist", "responses", "changed", "error", "pong"
	RequestID string `json:"request_id,omitempty"` // Echoes client ID
	Data      any    `json:"data,omitempty"`
}

// StateData carries the outcome of a form operation and the resulting state.
type StateData struct {
	Result *editor.Result  `json:"result,omitempty"`
	State  formstore.State `json:"state"`
}

// ResponsesData carries the captured values of one checklist field.
type ResponsesData struct {
	FieldID   string              `json:"fieldId"`
	Responses checklist.Responses `json:"responses"`
}

// ChangedData announces a change made in the session, by this or another
// connection.
type ChangedData struct {
	EventType string `json:"event_type"`
	Op        string `json:"op,omitempty"`
	Summary   string `json:"summary"`
}

// ErrorData carries an error message.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
