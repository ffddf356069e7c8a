package wire

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/schema"
)

// Handler serves the websocket of one editor session, named by the "id"
// route parameter.
type Handler struct {
	svc      *editor.Service
	hub      *Hub
	validate *validator.Validate
}

func NewHandler(svc *editor.Service, hub *Hub) *Handler {
	return &Handler{svc: svc, hub: hub, validate: validator.New()}
}

// ServeHTTP upgrades to websocket, sends the current state and runs the
// message loop.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	st, err := h.svc.State(sessionID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		log.WithError(err).Warn("wire: websocket accept")
		return
	}
	defer conn.CloseNow()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	logger := log.WithField("session_id", sessionID)

	changes, unsubscribe := h.hub.Subscribe(sessionID)
	defer unsubscribe()
	go func() {
		for {
			select {
			case msg, ok := <-changes:
				if !ok {
					return
				}
				h.send(ctx, conn, msg)
			case <-ctx.Done():
				return
			}
		}
	}()

	h.send(ctx, conn, ServerMessage{Type: "state", Data: StateData{State: st}})

	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			if status := websocket.CloseStatus(err); status != -1 {
				logger.WithField("status", status).Debug("wire: connection closed")
			}
			return
		}

		switch msg.Type {
		case "op":
			h.handleOp(ctx, conn, sessionID, msg)
		case "checklist":
			h.handleChecklist(ctx, conn, sessionID, msg)
		case "cell":
			h.handleCell(ctx, conn, sessionID, msg)
		case "state":
			st, err := h.svc.State(sessionID)
			if err != nil {
				h.sendErr(ctx, conn, msg.ID, err)
				return
			}
			h.send(ctx, conn, ServerMessage{Type: "state", RequestID: msg.ID, Data: StateData{State: st}})
		case "ping":
			h.send(ctx, conn, ServerMessage{Type: "pong", RequestID: msg.ID})
		default:
			h.sendError(ctx, conn, msg.ID, "unknown_type", fmt.Sprintf("unknown message type: %s", msg.Type))
		}
	}
}

func (h *Handler) handleOp(ctx context.Context, conn *websocket.Conn, sessionID string, msg ClientMessage) {
	var op editor.Op
	if !h.decode(ctx, conn, msg, &op) {
		return
	}
	res, st, err := h.svc.Apply(sessionID, op)
	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	h.send(ctx, conn, ServerMessage{Type: "state", RequestID: msg.ID, Data: StateData{Result: &res, State: st}})
}

func (h *Handler) handleChecklist(ctx context.Context, conn *websocket.Conn, sessionID string, msg ClientMessage) {
	var data ChecklistData
	if !h.decode(ctx, conn, msg, &data) {
		return
	}
	res, err := h.svc.ApplyChecklist(ctx, sessionID, data.FieldID, data.Op)
	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	h.send(ctx, conn, ServerMessage{Type: "checklist", RequestID: msg.ID, Data: res})
}

func (h *Handler) handleCell(ctx context.Context, conn *websocket.Conn, sessionID string, msg ClientMessage) {
	var data CellData
	if !h.decode(ctx, conn, msg, &data) {
		return
	}
	resp, err := h.svc.ApplyCell(ctx, sessionID, data.FieldID, data.Cell)
	if err != nil {
		h.sendErr(ctx, conn, msg.ID, err)
		return
	}
	h.send(ctx, conn, ServerMessage{
		Type:      "responses",
		RequestID: msg.ID,
		Data:      ResponsesData{FieldID: data.FieldID, Responses: resp},
	})
}

func (h *Handler) decode(ctx context.Context, conn *websocket.Conn, msg ClientMessage, v any) bool {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", fmt.Sprintf("invalid %s data", msg.Type))
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		h.sendError(ctx, conn, msg.ID, "invalid_data", err.Error())
		return false
	}
	return true
}

func (h *Handler) send(ctx context.Context, conn *websocket.Conn, msg ServerMessage) {
	if err := wsjson.Write(ctx, conn, msg); err != nil {
		log.WithError(err).Debug("wire: write error")
	}
}

func (h *Handler) sendError(ctx context.Context, conn *websocket.Conn, requestID, code, message string) {
	h.send(ctx, conn, ServerMessage{
		Type:      "error",
		RequestID: requestID,
		Data: ErrorData{
			Code:    code,
			Message: message,
		},
	})
}

func (h *Handler) sendErr(ctx context.Context, conn *websocket.Conn, requestID string, err error) {
	h.sendError(ctx, conn, requestID, errorCode(err), err.Error())
}

func errorCode(err error) string {
	var verr *schema.ValidationError
	switch {
	case errors.Is(err, editor.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, editor.ErrFieldNotFound):
		return "field_not_found"
	case errors.Is(err, editor.ErrUnknownOp):
		return "unknown_op"
	case errors.Is(err, editor.ErrNotChecklist):
		return "not_checklist"
	case errors.Is(err, checklist.ErrTemplateNotFound):
		return "template_not_found"
	case errors.As(err, &verr):
		return "validation_error"
	default:
		return "op_error"
	}
}
