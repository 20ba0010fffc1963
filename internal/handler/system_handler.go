package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/response"
)

const (
	metricsInterval = 7 * time.Second
	queueTimeout    = 2 * time.Second
)

// QueueInspector reports the generation backlog.
type QueueInspector interface {
	QueueLength(ctx context.Context) (int64, error)
}

// SessionCounter reports how many exam sessions this process holds.
type SessionCounter interface {
	Len() int
}

// DropCounter reports monitor events lost to back-pressure.
type DropCounter interface {
	Dropped() int64
}

// SystemHandler streams gateway runtime metrics via SSE.
type SystemHandler struct {
	queue     QueueInspector
	sessions  SessionCounter
	monitor   DropCounter
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(queue QueueInspector, sessions SessionCounter, monitor DropCounter, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		queue:     queue,
		sessions:  sessions,
		monitor:   monitor,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Go Application
	Goroutines int    `json:"goroutines"`
	HeapAlloc  uint64 `json:"heap_alloc"`
	HeapSys    uint64 `json:"heap_sys"`
	StackInuse uint64 `json:"stack_inuse"`
	NumGC      uint32 `json:"num_gc"`
	GoVersion  string `json:"go_version"`
	NumCPU     int    `json:"num_cpu"`

	// Gateway
	LiveSessions         int   `json:"live_sessions"`
	GenerationQueue      int64 `json:"generation_queue"`
	MonitorEventsDropped int64 `json:"monitor_events_dropped"`
}

// GetSystemMetrics godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) GetSystemMetrics(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c.Request.Context()))
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics/stream
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to system metrics SSE")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	// Send immediately on connect, then every tick
	h.writeMetrics(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Msg("Admin disconnected from system metrics SSE")
			return
		case <-ticker.C:
			h.writeMetrics(c)
		}
	}
}

func (h *SystemHandler) writeMetrics(c *gin.Context) {
	data, err := json.Marshal(h.collect(c.Request.Context()))
	if err != nil {
		return
	}
	_, _ = c.Writer.WriteString("data: " + string(data) + "\n\n")
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatDuration(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAlloc = ms.HeapAlloc
	m.HeapSys = ms.Sys
	m.StackInuse = ms.StackInuse
	m.NumGC = ms.NumGC

	if h.sessions != nil {
		m.LiveSessions = h.sessions.Len()
	}
	if h.monitor != nil {
		m.MonitorEventsDropped = h.monitor.Dropped()
	}
	if h.queue != nil {
		qctx, cancel := context.WithTimeout(ctx, queueTimeout)
		defer cancel()
		if n, err := h.queue.QueueLength(qctx); err == nil {
			m.GenerationQueue = n
		}
	}
	return m
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
