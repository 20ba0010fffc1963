// Package monitor mirrors live exam sessions into Redis for the admin monitor.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/session"
)

// Publisher is a session observer. Observe never blocks: events go through a
// bounded buffer and are dropped when it is full. Run drains the buffer into
// the active-sessions hash and the monitor channel.
type Publisher struct {
	rdb     *redis.Client
	events  chan session.Event
	dropped atomic.Int64
	log     zerolog.Logger
}

// NewPublisher creates a publisher with room for buffer pending events.
func NewPublisher(rdb *redis.Client, buffer int, log zerolog.Logger) *Publisher {
	return &Publisher{
		rdb:    rdb,
		events: make(chan session.Event, buffer),
		log:    log.With().Str("component", "session_monitor").Logger(),
	}
}

// Observe queues ev for publishing. Countdown ticks are not mirrored.
func (p *Publisher) Observe(ev session.Event) {
	if ev.Kind == session.EventTick {
		return
	}
	select {
	case p.events <- ev:
	default:
		p.dropped.Add(1)
	}
}

// Dropped reports how many events were discarded because the buffer was full.
func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

// Run publishes queued events until ctx is cancelled. The hash is cleared on
// start since sessions do not survive a restart.
func (p *Publisher) Run(ctx context.Context) {
	p.log.Info().Msg("Session monitor started")
	if err := p.rdb.Del(ctx, config.CacheKey.ActiveSessionsKey()).Err(); err != nil && ctx.Err() == nil {
		p.log.Warn().Err(err).Msg("Failed to clear active sessions")
	}

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("Session monitor stopped")
			return
		case ev := <-p.events:
			if err := p.publish(ctx, ev); err != nil && ctx.Err() == nil {
				p.log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("Failed to publish session event")
			}
		}
	}
}

func (p *Publisher) publish(ctx context.Context, ev session.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	pipe := p.rdb.Pipeline()
	if ev.Kind == session.EventClosed {
		pipe.HDel(ctx, config.CacheKey.ActiveSessionsKey(), ev.SessionID)
	} else {
		pipe.HSet(ctx, config.CacheKey.ActiveSessionsKey(), ev.SessionID, raw)
	}
	pipe.Publish(ctx, config.CacheKey.SessionMonitorChannel(), raw)
	_, err = pipe.Exec(ctx)
	return err
}

// Sessions returns the last known event of every active session, oldest
// activity first.
func (p *Publisher) Sessions(ctx context.Context) ([]session.Event, error) {
	all, err := p.rdb.HGetAll(ctx, config.CacheKey.ActiveSessionsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("load active sessions: %w", err)
	}

	out := make([]session.Event, 0, len(all))
	for id, raw := range all {
		var ev session.Event
		if err := json.Unmarshal([]byte(raw), &ev); err != nil {
			p.log.Warn().Err(err).Str("session_id", id).Msg("Skipping malformed session entry")
			continue
		}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}

// Subscribe attaches to the monitor channel. The caller closes the PubSub.
func (p *Publisher) Subscribe(ctx context.Context) *redis.PubSub {
	return p.rdb.Subscribe(ctx, config.CacheKey.SessionMonitorChannel())
}
