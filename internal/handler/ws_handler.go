package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/session"
	ws "github.com/stemsi/exam-portal/internal/websocket"
)

// WSHandler streams session state to the browser and accepts its intents.
type WSHandler struct {
	portalService *service.PortalService
	log           zerolog.Logger
	upgrader      websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(portalService *service.PortalService, cfg *config.Config, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		portalService: portalService,
		log:           log.With().Str("component", "ws_handler").Logger(),
		upgrader:      ws.NewUpgrader(cfg.AllowedOrigins),
	}
}

// streamSignals coalesces controller events into what the writer still has
// to send. Every send is non-blocking because observers run under the
// session lock.
type streamSignals struct {
	state   chan struct{}
	tick    chan int
	closed  chan struct{}
	replies chan any
}

func newStreamSignals() *streamSignals {
	return &streamSignals{
		state:   make(chan struct{}, 1),
		tick:    make(chan int, 1),
		closed:  make(chan struct{}, 1),
		replies: make(chan any, 16),
	}
}

func (s *streamSignals) markState() {
	select {
	case s.state <- struct{}{}:
	default:
	}
}

func (s *streamSignals) pushTick(remaining int) {
	for {
		select {
		case s.tick <- remaining:
			return
		default:
		}
		// Replace the stale value with the newest one.
		select {
		case <-s.tick:
		default:
		}
	}
}

func (s *streamSignals) observe(ev session.Event) {
	switch ev.Kind {
	case session.EventTick:
		s.pushTick(ev.RemainingSeconds)
	case session.EventClosed:
		select {
		case s.closed <- struct{}{}:
		default:
		}
	default:
		s.markState()
	}
}

func (s *streamSignals) reply(v any) {
	select {
	case s.replies <- v:
	default:
	}
}

// PortalStream godoc
// WS /ws/v1/portal/stream?token=...
// Pushes a state event after every change and a tick event every second
// while the exam runs. Accepts start, select, navigate, submit, reset and
// ping actions.
func (h *WSHandler) PortalStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	ctrl, err := h.portalService.Resolve(claims.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().Str("session_id", ctrl.ID()).Logger()
	wsLog.Info().Msg("Portal stream connected")

	signals := newStreamSignals()
	remove := ctrl.AddObserver(signals.observe)
	defer remove()
	signals.markState()

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, ctrl, signals, done, wsLog)
	}()

	h.readLoop(conn, ctrl, signals, writerDone, wsLog)
	close(done)
	<-writerDone
	wsLog.Info().Msg("Portal stream disconnected")
}

// ----------------------------------------------------------------
// Writer: the only goroutine that writes to conn
// ----------------------------------------------------------------

func (h *WSHandler) writeLoop(conn *websocket.Conn, ctrl *session.Controller, signals *streamSignals, done <-chan struct{}, log zerolog.Logger) {
	ping := time.NewTicker(ws.PingPeriod)
	defer ping.Stop()

	var err error
	for err == nil {
		select {
		case <-done:
			return
		case <-signals.closed:
			_ = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: ctrl.Snapshot()})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"),
				time.Now().Add(time.Second))
			return
		case <-signals.state:
			err = ws.WriteTyped(conn, ws.StateResponse{Event: ws.EventState, Session: ctrl.Snapshot()})
		case remaining := <-signals.tick:
			err = ws.WriteTyped(conn, ws.TickResponse{Event: ws.EventTick, RemainingSeconds: remaining})
		case v := <-signals.replies:
			err = ws.WriteTyped(conn, v)
		case <-ping.C:
			err = ws.WritePing(conn)
		}
	}
	log.Debug().Err(err).Msg("Portal stream write failed")
	// Unblock the reader.
	_ = conn.Close()
}

// ----------------------------------------------------------------
// Reader: dispatches client actions to the controller
// ----------------------------------------------------------------

func (h *WSHandler) readLoop(conn *websocket.Conn, ctrl *session.Controller, signals *streamSignals, writerDone <-chan struct{}, log zerolog.Logger) {
	ws.PrepareRead(conn)

	for {
		req, err := ws.ReadRequest(conn)
		if errors.Is(err, ws.ErrMalformed) {
			signals.reply(ws.NewError(string(response.ErrInvalidPayload), response.GetMessage(response.ErrInvalidPayload)))
			continue
		}
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				select {
				case <-writerDone:
				default:
					log.Warn().Err(err).Msg("Unexpected close")
				}
			}
			return
		}

		if req.Action == ws.ActionPing {
			signals.reply(ws.PongResponse{Event: ws.EventPong})
			continue
		}

		if err := dispatch(ctrl, req); err != nil {
			f := classify(err)
			signals.reply(ws.NewError(string(f.code), errorMessage(f)))
			continue
		}
		signals.markState()
	}
}

var errMissingIndex = errors.New("index and option are required")

func dispatch(ctrl *session.Controller, req ws.Request) error {
	switch req.Action {
	case ws.ActionStart:
		return ctrl.Start()
	case ws.ActionSubmit:
		return ctrl.Submit()
	case ws.ActionReset:
		return ctrl.Reset()
	case ws.ActionSelect:
		if req.Index == nil || req.Option == nil {
			return errMissingIndex
		}
		return ctrl.SelectOption(*req.Index, *req.Option)
	case ws.ActionNavigate:
		if req.Index == nil {
			return errMissingIndex
		}
		_, err := ctrl.Navigate(*req.Index)
		return err
	}
	return errUnknownAction
}

var errUnknownAction = errors.New("unknown action")
