package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	PingPeriod = (pongWait * 9) / 10
	maxMessage = 4096
)

// NewUpgrader creates a WebSocket upgrader with origin validation. An empty
// allowedOrigins permits all origins (development mode).
func NewUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// PrepareRead bounds message size and keeps the read deadline alive with
// pong frames.
func PrepareRead(conn *websocket.Conn) {
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WritePing sends a control ping.
func WritePing(conn *websocket.Conn) error {
	return conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// ErrMalformed is returned by ReadRequest for a frame that is not a valid
// request. The connection stays usable.
var ErrMalformed = errors.New("malformed message")

// ReadRequest reads and decodes one client message.
func ReadRequest(conn *websocket.Conn) (Request, error) {
	var req Request
	_, data, err := conn.ReadMessage()
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(data, &req); err != nil || req.Action == "" {
		return req, ErrMalformed
	}
	return req, nil
}

// NewError builds an ErrorResponse.
func NewError(code, message string) ErrorResponse {
	return ErrorResponse{Event: EventError, Code: code, Message: message}
}
