package wire

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formstudio/internal/activity"
	"github.com/matthewbaird/formstudio/internal/checklist"
	"github.com/matthewbaird/formstudio/internal/editor"
	"github.com/matthewbaird/formstudio/internal/event"
	"github.com/matthewbaird/formstudio/internal/eventbus"
	"github.com/matthewbaird/formstudio/internal/session"
)

type inbound struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*editor.Service, string, *websocket.Conn, context.Context) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	hub := NewHub()
	bus := eventbus.New(16)
	bus.Subscribe("hub", hub)
	bus.Start(ctx)
	t.Cleanup(bus.Stop)

	rec := event.NewActivityRecorder(activity.NewMemoryStore())
	rec.SetPublisher(bus)
	svc := editor.New(editor.Deps{
		Sessions:  session.NewManager(time.Hour, time.Hour, nil),
		Templates: checklist.NewMemoryTemplateStore(),
		Blobs:     checklist.NewMemoryBlobStore(),
		Recorder:  rec,
	})
	sess, err := svc.Open(ctx, editor.OpenOptions{})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/sessions/{id}/ws", NewHandler(svc, hub).ServeHTTP)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/" + sess.ID + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return svc, sess.ID, conn, ctx
}

// readType reads until a message of type typ arrives.
func readType(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) inbound {
	t.Helper()
	for {
		var msg inbound
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHandler_InitialStateAndPing(t *testing.T) {
	_, _, conn, ctx := setup(t)

	first := readType(t, ctx, conn, "state")
	var st StateData
	require.NoError(t, json.Unmarshal(first.Data, &st))
	assert.Equal(t, "page-1", st.State.ActiveSectionID)

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "ping", ID: "p1"}))
	pong := readType(t, ctx, conn, "pong")
	assert.Equal(t, "p1", pong.RequestID)
}

func TestHandler_OpAppliesAndBroadcasts(t *testing.T) {
	svc, sid, conn, ctx := setup(t)
	readType(t, ctx, conn, "state")

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{
		Type: "op",
		ID:   "r1",
		Data: json.RawMessage(`{"op":"add_field","type":"text"}`),
	}))
	reply := readType(t, ctx, conn, "state")
	assert.Equal(t, "r1", reply.RequestID)
	var data StateData
	require.NoError(t, json.Unmarshal(reply.Data, &data))
	require.NotNil(t, data.Result)
	assert.True(t, data.Result.Changed)
	assert.Len(t, data.State.Fields, 1)

	changed := readType(t, ctx, conn, "changed")
	var cd ChangedData
	require.NoError(t, json.Unmarshal(changed.Data, &cd))
	assert.Equal(t, "add_field", cd.Op)

	st, err := svc.State(sid)
	require.NoError(t, err)
	assert.Len(t, st.Fields, 1)
}

func TestHandler_Errors(t *testing.T) {
	_, _, conn, ctx := setup(t)
	readType(t, ctx, conn, "state")

	cases := []struct {
		msg  ClientMessage
		code string
	}{
		{ClientMessage{Type: "teleport", ID: "a"}, "unknown_type"},
		{ClientMessage{Type: "op", ID: "b", Data: json.RawMessage(`{"op":"explode"}`)}, "unknown_op"},
		{ClientMessage{Type: "op", ID: "c", Data: json.RawMessage(`{}`)}, "invalid_data"},
		{ClientMessage{Type: "checklist", ID: "d", Data: json.RawMessage(`{"fieldId":"nope","op":{"op":"add_column"}}`)}, "field_not_found"},
	}
	for _, tc := range cases {
		require.NoError(t, wsjson.Write(ctx, conn, tc.msg))
		reply := readType(t, ctx, conn, "error")
		assert.Equal(t, tc.msg.ID, reply.RequestID)
		var e ErrorData
		require.NoError(t, json.Unmarshal(reply.Data, &e))
		assert.Equal(t, tc.code, e.Code, tc.msg.ID)
	}
}

func TestHandler_UnknownSession(t *testing.T) {
	svc := editor.New(editor.Deps{Sessions: session.NewManager(time.Hour, time.Hour, nil)})
	r := chi.NewRouter()
	r.Get("/sessions/{id}/ws", NewHandler(svc, NewHub()).ServeHTTP)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sessions/missing/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
