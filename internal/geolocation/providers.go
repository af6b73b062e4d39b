package geolocation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Static always reports the same position. Useful for demos and tests.
type Static struct {
	Position Position
	// Every is how often a watch repeats the fix, so the tracker never
	// sees it as stale. Defaults to 10s.
	Every time.Duration
}

func (s Static) CurrentPosition(_ context.Context, _ Options) (Position, error) {
	return s.Position, nil
}

func (s Static) Watch(ctx context.Context, _ Options) (<-chan Update, error) {
	every := s.Every
	if every <= 0 {
		every = 10 * time.Second
	}
	ch := make(chan Update, 1)
	ch <- Update{Position: s.Position}
	go func() {
		defer close(ch)
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				select {
				case ch <- Update{Position: s.Position}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

// Feed is a push-based provider: the device sends positions (over the
// position WebSocket) and every active watch receives them.
type Feed struct {
	mu     sync.Mutex
	latest *Position
	subs   map[chan Update]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan Update]struct{})}
}

// Push publishes a position to all watchers. Slow watchers drop updates.
func (f *Feed) Push(p Position) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latest = &p
	f.broadcastLocked(Update{Position: p})
}

// Fail publishes a device-side location error.
func (f *Feed) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broadcastLocked(Update{Err: err})
}

func (f *Feed) broadcastLocked(u Update) {
	for ch := range f.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (f *Feed) subscribe(seed bool) chan Update {
	ch := make(chan Update, 16)
	f.mu.Lock()
	if seed && f.latest != nil {
		ch <- Update{Position: *f.latest}
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch
}

func (f *Feed) unsubscribe(ch chan Update) {
	f.mu.Lock()
	delete(f.subs, ch)
	f.mu.Unlock()
}

// CurrentPosition returns the last pushed position, or waits for the next
// push or error.
func (f *Feed) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	ch := f.subscribe(true)
	defer f.unsubscribe(ch)

	select {
	case <-ctx.Done():
		return Position{}, ctx.Err()
	case u := <-ch:
		if u.Err != nil {
			return Position{}, u.Err
		}
		return u.Position, nil
	}
}

func (f *Feed) Watch(ctx context.Context, _ Options) (<-chan Update, error) {
	in := f.subscribe(true)
	out := make(chan Update)
	go func() {
		defer close(out)
		defer f.unsubscribe(in)
		for {
			select {
			case <-ctx.Done():
				return
			case u := <-in:
				select {
				case out <- u:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Replay walks a recorded route, one point per Step, and then holds the
// last point. A restarted watch resumes where the previous one stopped.
type Replay struct {
	Points []Position
	Step   time.Duration

	mu  sync.Mutex
	idx int
}

type replayFile struct {
	Points []Position `yaml:"points"`
}

// LoadReplay reads a route file of the form:
//
//	points:
//	  - {lat: 51.5074, lng: -0.1278, accuracy: 5}
func LoadReplay(path string, step time.Duration) (*Replay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading route: %w", err)
	}
	var rf replayFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing route: %w", err)
	}
	if len(rf.Points) == 0 {
		return nil, errors.New("route has no points")
	}
	return &Replay{Points: rf.Points, Step: step}, nil
}

func (r *Replay) current() Position {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Points[r.idx]
}

func (r *Replay) advance() (Position, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.idx >= len(r.Points)-1 {
		return r.Points[r.idx], false
	}
	r.idx++
	return r.Points[r.idx], true
}

func (r *Replay) CurrentPosition(_ context.Context, _ Options) (Position, error) {
	if len(r.Points) == 0 {
		return Position{}, &PositionError{Code: CodePositionUnavailable, Message: "empty route"}
	}
	return r.current(), nil
}

func (r *Replay) Watch(ctx context.Context, _ Options) (<-chan Update, error) {
	if len(r.Points) == 0 {
		return nil, &PositionError{Code: CodePositionUnavailable, Message: "empty route"}
	}
	out := make(chan Update)
	go func() {
		defer close(out)
		step := r.Step
		if step <= 0 {
			step = 2 * time.Second
		}
		ticker := time.NewTicker(step)
		defer ticker.Stop()

		next := r.current()
		for {
			select {
			case <-ctx.Done():
				return
			case out <- Update{Position: next}:
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			p, moved := r.advance()
			if !moved {
				// End of route: go quiet and let staleness handling decide.
				<-ctx.Done()
				return
			}
			next = p
		}
	}()
	return out, nil
}
