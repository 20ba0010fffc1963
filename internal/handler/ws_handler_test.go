package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/session"
	ws "github.com/stemsi/exam-portal/internal/websocket"
)

type streamMessage struct {
	Event            ws.Event     `json:"event"`
	Session          session.View `json:"session"`
	RemainingSeconds int          `json:"remainingSeconds"`
	Code             string       `json:"code"`
	Message          string       `json:"message"`
}

func dialStream(t *testing.T, rig *portalRig) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(rig.engine)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/stream?token=" + rig.token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readStream(t *testing.T, conn *websocket.Conn) streamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg streamMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestPortalStream_PushesStateAndAnswersActions(t *testing.T) {
	rig := newPortalRig(t, &fakeBackend{questions: examQuestions(portalTotal)})
	rig.open(t)
	conn := dialStream(t, rig)

	first := readStream(t, conn)
	assert.Equal(t, ws.EventState, first.Event)
	assert.Equal(t, session.StageRegistration, first.Session.Stage)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionPing}))
	assert.Equal(t, ws.EventPong, readStream(t, conn).Event)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionStart}))
	msg := readStream(t, conn)
	assert.Equal(t, ws.EventError, msg.Event)
	assert.Equal(t, string(response.ErrInvalidTransition), msg.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msg = readStream(t, conn)
	assert.Equal(t, ws.EventError, msg.Event)
	assert.Equal(t, string(response.ErrInvalidPayload), msg.Code)

	require.NoError(t, conn.WriteJSON(ws.Request{Action: ws.ActionSelect}))
	msg = readStream(t, conn)
	assert.Equal(t, string(response.ErrInvalidPayload), msg.Code)
	assert.Equal(t, errMissingIndex.Error(), msg.Message)
}

func TestPortalStream_ClosesWhenSessionCloses(t *testing.T) {
	rig := newPortalRig(t, &fakeBackend{questions: examQuestions(portalTotal)})
	rig.open(t)
	conn := dialStream(t, rig)
	readStream(t, conn)

	code, _ := rig.do(t, http.MethodDelete, "/session", "")
	require.Equal(t, http.StatusOK, code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var err error
	for err == nil {
		var raw json.RawMessage
		err = conn.ReadJSON(&raw)
	}
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestPortalStream_RejectsMissingToken(t *testing.T) {
	rig := newPortalRig(t, &fakeBackend{questions: examQuestions(portalTotal)})
	srv := httptest.NewServer(rig.engine)
	t.Cleanup(srv.Close)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/stream", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
