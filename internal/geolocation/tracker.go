package geolocation

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type Config struct {
	// FixTimeout bounds the initial single-shot request.
	FixTimeout time.Duration
	// StaleAfter is how long a watch may stay silent before it is restarted
	// with relaxed accuracy.
	StaleAfter time.Duration
	// StaleCheckEvery is the staleness check cadence. It also paces retries
	// when a watch cannot be started.
	StaleCheckEvery time.Duration
}

func DefaultConfig() Config {
	return Config{
		FixTimeout:      10 * time.Second,
		StaleAfter:      30 * time.Second,
		StaleCheckEvery: 5 * time.Second,
	}
}

// State is what the UI reads.
type State struct {
	Position  *Position `json:"position"`
	Error     string    `json:"error,omitempty"`
	IsLoading bool      `json:"isLoading"`
}

// Tracker owns the only writable copy of the current position. Everything
// else reads it through Latest or Snapshot.
type Tracker struct {
	provider Provider
	cfg      Config
	logger   *slog.Logger

	mu        sync.RWMutex
	pos       *Position
	err       *PositionError
	loading   bool
	updatedAt time.Time
	onChange  func(State)
}

func NewTracker(provider Provider, cfg Config, logger *slog.Logger) *Tracker {
	def := DefaultConfig()
	if cfg.FixTimeout <= 0 {
		cfg.FixTimeout = def.FixTimeout
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.StaleCheckEvery <= 0 {
		cfg.StaleCheckEvery = def.StaleCheckEvery
	}
	return &Tracker{
		provider: provider,
		cfg:      cfg,
		logger:   logger,
		loading:  true,
	}
}

// OnChange registers fn to be called after every state change. Set it
// before Run.
func (t *Tracker) OnChange(fn func(State)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Latest returns the current fix, if any.
func (t *Tracker) Latest() (Position, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.pos == nil {
		return Position{}, false
	}
	return *t.pos, true
}

// LastError returns the most recent classified error, cleared by the next
// successful update.
func (t *Tracker) LastError() *PositionError {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() State {
	s := State{IsLoading: t.loading}
	if t.pos != nil {
		p := *t.pos
		s.Position = &p
	}
	if t.err != nil {
		s.Error = t.err.Code.UserMessage()
	}
	return s
}

// Run requests one high-accuracy fix, then watches until ctx is cancelled.
// It returns after the watch and the staleness ticker are torn down.
func (t *Tracker) Run(ctx context.Context) error {
	high := Options{HighAccuracy: true, Timeout: t.cfg.FixTimeout}
	relaxed := Options{HighAccuracy: false, Timeout: t.cfg.FixTimeout}

	fixCtx, cancel := context.WithTimeout(ctx, t.cfg.FixTimeout)
	pos, err := t.provider.CurrentPosition(fixCtx, high)
	cancel()

	opts := high
	switch {
	case ctx.Err() != nil:
		return nil
	case err != nil:
		t.fail(err)
		opts = relaxed
	default:
		t.update(pos)
	}

	for {
		restart := t.watch(ctx, opts)
		if !restart {
			return nil
		}
		opts = relaxed
	}
}

// watch runs one watch subscription. It reports whether the caller should
// start another.
func (t *Tracker) watch(ctx context.Context, opts Options) bool {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ticker := time.NewTicker(t.cfg.StaleCheckEvery)
	defer ticker.Stop()

	updates, err := t.provider.Watch(wctx, opts)
	if err != nil {
		t.fail(err)
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			return true
		}
	}

	started := time.Now()
	t.logger.Debug("location watch started", "high_accuracy", opts.HighAccuracy)

	for {
		select {
		case <-ctx.Done():
			return false
		case u, ok := <-updates:
			if !ok {
				return ctx.Err() == nil
			}
			if u.Err != nil {
				t.fail(u.Err)
				continue
			}
			t.update(u.Position)
		case <-ticker.C:
			last := t.lastUpdate()
			if last.Before(started) {
				last = started
			}
			if time.Since(last) > t.cfg.StaleAfter {
				t.logger.Warn("location watch stale, restarting", "silent_for", time.Since(last).String())
				return true
			}
		}
	}
}

func (t *Tracker) lastUpdate() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updatedAt
}

func (t *Tracker) update(p Position) {
	attrs := []any{"lat", p.Lat, "lng", p.Lng}
	if p.Accuracy != nil {
		attrs = append(attrs, "accuracy", *p.Accuracy)
	}
	t.logger.Debug("position update", attrs...)

	t.mu.Lock()
	t.pos = &p
	t.err = nil
	t.loading = false
	t.updatedAt = time.Now()
	s, fn := t.snapshotLocked(), t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}

func (t *Tracker) fail(err error) {
	pe := Classify(err)
	t.logger.Warn("location error", "code", pe.Code, "error", err)

	t.mu.Lock()
	t.err = pe
	t.loading = false
	s, fn := t.snapshotLocked(), t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(s)
	}
}
