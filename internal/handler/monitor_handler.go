package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/monitor"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/session"
)

const (
	keepAliveInterval = 30 * time.Second
	snapshotTimeout   = 5 * time.Second
)

type MonitorHandler struct {
	publisher *monitor.Publisher
	log       zerolog.Logger
}

func NewMonitorHandler(publisher *monitor.Publisher, log zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		publisher: publisher,
		log:       log.With().Str("component", "monitor_handler").Logger(),
	}
}

// monitorSnapshot is the live-session table plus per-stage counts.
type monitorSnapshot struct {
	Sessions []session.Event       `json:"sessions"`
	ByStage  map[session.Stage]int `json:"byStage"`
	Total    int                   `json:"total"`
}

func (h *MonitorHandler) snapshot(ctx context.Context) (monitorSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, snapshotTimeout)
	defer cancel()

	events, err := h.publisher.Sessions(ctx)
	if err != nil {
		return monitorSnapshot{}, err
	}
	byStage := make(map[session.Stage]int)
	for _, ev := range events {
		byStage[ev.Stage]++
	}
	return monitorSnapshot{Sessions: events, ByStage: byStage, Total: len(events)}, nil
}

// ListSessions godoc
// GET /api/v1/admin/monitor/sessions
func (h *MonitorHandler) ListSessions(c *gin.Context) {
	snap, err := h.snapshot(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, snap)
}

// StreamSessions godoc
// GET /api/v1/admin/monitor/stream
// Server-sent events: one snapshot, then every session change as it happens.
func (h *MonitorHandler) StreamSessions(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	// Subscribe before the snapshot so no change falls between the two.
	pubsub := h.publisher.Subscribe(reqCtx)
	defer pubsub.Close()
	ch := pubsub.Channel()

	snap, err := h.snapshot(reqCtx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to load monitor snapshot")
	}
	c.SSEvent("snapshot", snap)
	c.Writer.Flush()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	h.log.Info().Msg("Admin attached to session monitor")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin detached from session monitor")
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}
			// Payload is already JSON; forward it without decoding.
			_, _ = c.Writer.WriteString("event: session\ndata: " + msg.Payload + "\n\n")
			c.Writer.Flush()

		case <-keepAlive.C:
			_, _ = c.Writer.WriteString(": ping\n\n")
			c.Writer.Flush()
		}
	}
}
