package websocket

import (
	"github.com/stemsi/exam-portal/internal/session"
)

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionStart    Action = "start"
	ActionSelect   Action = "select"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionReset    Action = "reset"
	ActionPing     Action = "ping"
)

// Request is one client message. Index and Option are used by select
// (both) and navigate (Index only).
type Request struct {
	Action Action `json:"action"`
	Index  *int   `json:"index,omitempty"`
	Option *int   `json:"option,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState Event = "state"
	EventTick  Event = "tick"
	EventError Event = "error"
	EventPong  Event = "pong"
)

// StateResponse carries the full session view after any change.
type StateResponse struct {
	Event   Event        `json:"event"`
	Session session.View `json:"session"`
}

// TickResponse is the lightweight once-a-second countdown update.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remainingSeconds"`
}

type ErrorResponse struct {
	Event   Event  `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
