// Package poller implements the fixed-interval "are we there yet" loop every
// game mode runs while a session is playing.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/flight"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geo"
	"github.com/TWIMPapp/game.twimp.app-sub000/internal/geolocation"
)

// Directive tells the poller what to do after a result was handled.
type Directive int

const (
	Continue Directive = iota
	Stop
)

// Locator hands out the most recent fix without blocking.
type Locator interface {
	Latest() (geolocation.Position, bool)
}

// CheckFunc submits a position to the backend.
type CheckFunc[R any] func(ctx context.Context, pos geolocation.Position) (R, error)

// HandleFunc consumes one result. Calls never overlap and arrive in
// submission order, on the goroutine that ran the request.
type HandleFunc[R any] func(R) Directive

type Config struct {
	// Interval between scheduled ticks. One extra tick fires on start.
	Interval time.Duration
	// Epsilon is the minimum planar movement, in degrees, since the last
	// submitted position before another request is sent.
	Epsilon float64
}

func DefaultConfig() Config {
	return Config{
		Interval: 5 * time.Second,
		Epsilon:  0.00001,
	}
}

// Poller checks arrival on a fixed cadence with at most one request in
// flight. A tick that finds a request outstanding is dropped.
type Poller[R any] struct {
	cfg    Config
	loc    Locator
	check  CheckFunc[R]
	handle HandleFunc[R]
	logger *slog.Logger
	slot   *flight.Slot

	mu      sync.Mutex
	last    geo.Point
	hasLast bool

	// deliver is held while a result is checked against stopped and
	// handed to handle.
	deliver sync.Mutex
	stopped bool
}

func New[R any](cfg Config, loc Locator, check CheckFunc[R], handle HandleFunc[R], logger *slog.Logger) *Poller[R] {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Poller[R]{
		cfg:    cfg,
		loc:    loc,
		check:  check,
		handle: handle,
		logger: logger,
		slot:   flight.NewSlot(),
	}
}

// Run polls until ctx is cancelled or the handler returns Stop. It returns
// only after any in-flight request has finished; a result that resolves
// after the stop is discarded. A Poller runs once.
func (p *Poller[R]) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		p.halt()
		cancel()
		p.slot.Wait()
	}()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	p.tick(ctx, cancel)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.tick(ctx, cancel)
		}
	}
}

func (p *Poller[R]) tick(ctx context.Context, stop context.CancelFunc) {
	if ctx.Err() != nil {
		return
	}

	if p.slot.Busy() {
		p.logger.Debug("poll skipped", "reason", "request in flight")
		return
	}

	pos, ok := p.loc.Latest()
	if !ok {
		p.logger.Debug("poll skipped", "reason", "no fix")
		return
	}
	if !p.moved(pos.Point()) {
		p.logger.Debug("poll skipped", "reason", "not moved")
		return
	}

	started := p.slot.TryGo(ctx, func(ctx context.Context) {
		res, err := p.check(ctx, pos)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("poll failed", "error", err)
			return
		}
		p.deliverResult(ctx, pos, res, stop)
	})
	if !started {
		p.logger.Debug("poll skipped", "reason", "request in flight")
	}
}

func (p *Poller[R]) deliverResult(ctx context.Context, pos geolocation.Position, res R, stop context.CancelFunc) {
	p.deliver.Lock()
	defer p.deliver.Unlock()
	if p.stopped || ctx.Err() != nil {
		p.logger.Debug("poll result discarded", "reason", "stopped")
		return
	}
	p.remember(pos.Point())
	if p.handle(res) == Stop {
		p.stopped = true
		stop()
	}
}

// halt waits for a delivery in progress and turns away every later one.
func (p *Poller[R]) halt() {
	p.deliver.Lock()
	p.stopped = true
	p.deliver.Unlock()
}

// remember records pt as the last position the backend has seen. Failed
// requests are not recorded, so the next tick retries even without movement.
func (p *Poller[R]) remember(pt geo.Point) {
	p.mu.Lock()
	p.last = pt
	p.hasLast = true
	p.mu.Unlock()
}

func (p *Poller[R]) moved(pt geo.Point) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasLast {
		return true
	}
	return geo.PlanarDistance(p.last, pt) > p.cfg.Epsilon
}
