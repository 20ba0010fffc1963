package session

import (
	"sync"
	"time"
)

// Countdown is a cancellable once-per-interval decrementing timer. onTick
// receives the new remaining value after every decrement; onExpire runs once
// when the value reaches zero. Both callbacks run without the countdown's
// lock held, so they may call back into the owner.
type Countdown struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func()

	mu        sync.Mutex
	remaining int
	expired   bool
	stopped   bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
}

// NewCountdown creates a stopped countdown. An interval of zero disables the
// internal ticker; Tick must then be driven by the caller.
func NewCountdown(seconds int, interval time.Duration, onTick func(int), onExpire func()) *Countdown {
	if seconds < 0 {
		seconds = 0
	}
	if onTick == nil {
		onTick = func(int) {}
	}
	if onExpire == nil {
		onExpire = func() {}
	}
	return &Countdown{
		interval:  interval,
		onTick:    onTick,
		onExpire:  onExpire,
		remaining: seconds,
		done:      make(chan struct{}),
	}
}

// Start launches the ticker goroutine. Calling it more than once has no effect.
func (c *Countdown) Start() {
	c.startOnce.Do(func() {
		if c.interval <= 0 {
			return
		}
		go c.run()
	})
}

func (c *Countdown) run() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if !c.Tick() {
				return
			}
		}
	}
}

// Tick decrements the remaining time by one second, clamped at zero. It
// returns false once the countdown has expired or been stopped.
func (c *Countdown) Tick() bool {
	c.mu.Lock()
	if c.stopped || c.expired {
		c.mu.Unlock()
		return false
	}
	c.remaining--
	if c.remaining <= 0 {
		c.remaining = 0
		c.expired = true
	}
	remaining, expired := c.remaining, c.expired
	c.mu.Unlock()

	c.onTick(remaining)
	if expired {
		c.Stop()
		c.onExpire()
		return false
	}
	return true
}

// Stop halts the countdown. Safe to call repeatedly and from any goroutine.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Stopped reports whether Stop was called or the countdown expired.
func (c *Countdown) Stopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
