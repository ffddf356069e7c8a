package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeFormChanged      = "form_changed"
	TypeChecklistChanged = "checklist_changed"
	TypeResponsesChanged = "responses_changed"
	TypeFormSaved        = "form_saved"
	TypeSessionOpened    = "session_opened"
	TypeSessionClosed    = "session_closed"
)

// Ref names one entity touched by a change.
type Ref struct {
	EntityType string `json:"entity_type"` // "session", "form", "field"
	EntityID   string `json:"entity_id"`
	Role       string `json:"role"` // "subject", "context"
}

// Change is the canonical shape of every editor event.
type Change struct {
	ID               string          `json:"id"`
	EventType        string          `json:"event_type"`
	SessionID        string          `json:"session_id"`
	Op               string          `json:"op,omitempty"`
	OccurredAt       time.Time       `json:"occurred_at"`
	AffectedEntities []Ref           `json:"affected_entities"`
	Summary          string          `json:"summary"`
	Category         string          `json:"category"` // "form", "checklist", "lifecycle"
	Payload          json.RawMessage `json:"payload,omitempty"`
}

func newID() string { return uuid.Must(uuid.NewV7()).String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func refs(sessionID, formID, fieldID string) []Ref {
	out := []Ref{{EntityType: "session", EntityID: sessionID, Role: "subject"}}
	if formID != "" {
		out = append(out, Ref{EntityType: "form", EntityID: formID, Role: "context"})
	}
	if fieldID != "" {
		out = append(out, Ref{EntityType: "field", EntityID: fieldID, Role: "context"})
	}
	return out
}

// NewFormChanged records one committed Form Store operation.
func NewFormChanged(sessionID, formID, op string) Change {
	return Change{
		ID:               newID(),
		EventType:        TypeFormChanged,
		SessionID:        sessionID,
		Op:               op,
		OccurredAt:       time.Now(),
		AffectedEntities: refs(sessionID, formID, ""),
		Summary:          fmt.Sprintf("Applied %s", op),
		Category:         "form",
	}
}

// NewChecklistChanged records one grid edit on a checklist field.
func NewChecklistChanged(sessionID, formID, fieldID, op string) Change {
	return Change{
		ID:               newID(),
		EventType:        TypeChecklistChanged,
		SessionID:        sessionID,
		Op:               op,
		OccurredAt:       time.Now(),
		AffectedEntities: refs(sessionID, formID, fieldID),
		Summary:          fmt.Sprintf("Applied %s to checklist %s", op, fieldID),
		Category:         "checklist",
	}
}

// NewResponsesChanged records captured values on a checklist field.
func NewResponsesChanged(sessionID, formID, fieldID, op string) Change {
	return Change{
		ID:               newID(),
		EventType:        TypeResponsesChanged,
		SessionID:        sessionID,
		Op:               op,
		OccurredAt:       time.Now(),
		AffectedEntities: refs(sessionID, formID, fieldID),
		Summary:          fmt.Sprintf("Captured %s on checklist %s", op, fieldID),
		Category:         "checklist",
	}
}

// FormSavedPayload carries the outcome of a backend save.
type FormSavedPayload struct {
	FormID  string `json:"form_id"`
	Created bool   `json:"created"`
	Title   string `json:"title"`
}

func NewFormSaved(sessionID string, p FormSavedPayload) Change {
	verb := "Updated"
	if p.Created {
		verb = "Created"
	}
	return Change{
		ID:               newID(),
		EventType:        TypeFormSaved,
		SessionID:        sessionID,
		OccurredAt:       time.Now(),
		AffectedEntities: refs(sessionID, p.FormID, ""),
		Summary:          fmt.Sprintf("%s form %q", verb, p.Title),
		Category:         "lifecycle",
		Payload:          mustJSON(p),
	}
}

func NewSessionOpened(sessionID, formID string) Change {
	return Change{
		ID:               newID(),
		EventType:        TypeSessionOpened,
		SessionID:        sessionID,
		OccurredAt:       time.Now(),
		AffectedEntities: refs(sessionID, formID, ""),
		Summary:          "Opened editor session",
		Category:         "lifecycle",
	}
}

func NewSessionClosed(sessionID, formID string) Change {
	return Change{
		ID:               newID(),
		EventType:        TypeSessionClosed,
		SessionID:        sessionID,
		OccurredAt:       time.Now(),
		AffectedEntities: refs(sessionID, formID, ""),
		Summary:          "Closed editor session",
		Category:         "lifecycle",
	}
}
