package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/metrics"
)

var ErrSessionNotFound = errors.New("session not found")

// Registry holds the live controllers of this process, keyed by session id.
type Registry struct {
	cfg       config.ExamConfig
	registrar Registrar
	source    QuestionSource
	scorer    Scorer
	opts      []Option
	idleTTL   time.Duration
	now       func() time.Time
	log       zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Controller
}

// NewRegistry creates a registry whose controllers share the given
// collaborators and options. Sessions idle for longer than idleTTL and not
// busy are reaped; zero disables reaping.
func NewRegistry(cfg config.ExamConfig, registrar Registrar, source QuestionSource, scorer Scorer, idleTTL time.Duration, log zerolog.Logger, opts ...Option) *Registry {
	return &Registry{
		cfg:       cfg.Clone(),
		registrar: registrar,
		source:    source,
		scorer:    scorer,
		opts:      opts,
		idleTTL:   idleTTL,
		now:       time.Now,
		log:       log.With().Str("component", "session_registry").Logger(),
		sessions:  make(map[string]*Controller),
	}
}

// Create starts a fresh session in StageRegistration. extra options apply
// after the registry-wide ones.
func (r *Registry) Create(extra ...Option) *Controller {
	id := uuid.NewString()
	opts := make([]Option, 0, len(r.opts)+len(extra)+1)
	opts = append(opts, WithLogger(r.log))
	opts = append(opts, r.opts...)
	opts = append(opts, extra...)

	c := NewController(id, r.cfg, r.registrar, r.source, r.scorer, opts...)

	r.mu.Lock()
	r.sessions[id] = c
	r.mu.Unlock()

	metrics.SessionOpened()
	r.log.Debug().Str("session_id", id).Msg("Session created")
	return c
}

func (r *Registry) Get(id string) (*Controller, error) {
	r.mu.RLock()
	c, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Remove abandons and forgets a session. It reports whether the id was known.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	c, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()

	if !ok {
		return false
	}
	c.Close()
	metrics.SessionClosed()
	return true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshots returns the view of every live session.
func (r *Registry) Snapshots() []View {
	r.mu.RLock()
	ctrls := make([]*Controller, 0, len(r.sessions))
	for _, c := range r.sessions {
		ctrls = append(ctrls, c)
	}
	r.mu.RUnlock()

	out := make([]View, 0, len(ctrls))
	for _, c := range ctrls {
		out = append(out, c.Snapshot())
	}
	return out
}

// Reap removes sessions that have been idle longer than the TTL and are not
// in the middle of an exam or a scoring call. It returns how many were removed.
func (r *Registry) Reap() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.RLock()
	var stale []string
	for id, c := range r.sessions {
		if c.Stage().Busy() {
			continue
		}
		if c.LastActivity().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.RUnlock()

	removed := 0
	for _, id := range stale {
		if r.Remove(id) {
			removed++
		}
	}
	if removed > 0 {
		r.log.Info().Int("count", removed).Msg("Reaped idle sessions")
	}
	return removed
}

// Run reaps idle sessions every interval until ctx is cancelled, then closes
// every remaining session.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	r.log.Info().Dur("idle_ttl", r.idleTTL).Msg("Session registry started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.CloseAll()
			r.log.Info().Msg("Session registry stopped")
			return
		case <-ticker.C:
			r.Reap()
		}
	}
}

// CloseAll abandons every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	ctrls := r.sessions
	r.sessions = make(map[string]*Controller)
	r.mu.Unlock()

	for _, c := range ctrls {
		c.Close()
		metrics.SessionClosed()
	}
}
