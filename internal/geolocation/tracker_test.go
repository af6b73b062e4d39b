package geolocation

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedProvider records every Watch call and lets the test decide what
// each call streams.
type scriptedProvider struct {
	fixErr error
	fix    Position

	mu      sync.Mutex
	watches []Options
	streams []chan Update
}

func (p *scriptedProvider) CurrentPosition(ctx context.Context, _ Options) (Position, error) {
	if p.fixErr != nil {
		return Position{}, p.fixErr
	}
	return p.fix, nil
}

func (p *scriptedProvider) Watch(ctx context.Context, opts Options) (<-chan Update, error) {
	in := make(chan Update, 8)
	out := make(chan Update)
	p.mu.Lock()
	p.watches = append(p.watches, opts)
	p.streams = append(p.streams, in)
	p.mu.Unlock()

	go func() {
		defer close(out)
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

func (p *scriptedProvider) watchCalls() []Options {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Options(nil), p.watches...)
}

func (p *scriptedProvider) send(u Update) {
	p.mu.Lock()
	ch := p.streams[len(p.streams)-1]
	p.mu.Unlock()
	ch <- u
}

func startTracker(t *testing.T, tr *Tracker) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		tr.Run(ctx)
	}()
	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("tracker did not stop")
		}
	}
}

func TestTrackerInitialFix(t *testing.T) {
	defer goleak.VerifyNone(t)

	acc := 4.0
	p := &scriptedProvider{fix: Position{Lat: 51.5, Lng: -0.12, Accuracy: &acc}}
	tr := NewTracker(p, Config{StaleAfter: time.Hour, StaleCheckEvery: time.Hour}, discardLogger())
	stop := startTracker(t, tr)
	defer stop()

	require.Eventually(t, func() bool {
		_, ok := tr.Latest()
		return ok && len(p.watchCalls()) == 1
	}, time.Second, 5*time.Millisecond)

	s := tr.Snapshot()
	assert.False(t, s.IsLoading)
	assert.Empty(t, s.Error)
	assert.Equal(t, 51.5, s.Position.Lat)
	assert.True(t, p.watchCalls()[0].HighAccuracy)

	p.send(Update{Position: Position{Lat: 51.6, Lng: -0.13}})
	require.Eventually(t, func() bool {
		pos, _ := tr.Latest()
		return pos.Lat == 51.6
	}, time.Second, 5*time.Millisecond)
}

func TestTrackerFixFailureFallsBackToRelaxed(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &scriptedProvider{fixErr: &PositionError{Code: CodePermissionDenied}}
	tr := NewTracker(p, Config{StaleAfter: time.Hour, StaleCheckEvery: time.Hour}, discardLogger())
	stop := startTracker(t, tr)
	defer stop()

	require.Eventually(t, func() bool { return len(p.watchCalls()) == 1 }, time.Second, 5*time.Millisecond)

	assert.False(t, p.watchCalls()[0].HighAccuracy)
	assert.Equal(t, CodePermissionDenied, tr.LastError().Code)
	assert.Equal(t, CodePermissionDenied.UserMessage(), tr.Snapshot().Error)

	_, ok := tr.Latest()
	assert.False(t, ok)

	// A later good update clears the error.
	p.send(Update{Position: Position{Lat: 1, Lng: 2}})
	require.Eventually(t, func() bool { return tr.LastError() == nil }, time.Second, 5*time.Millisecond)
}

func TestTrackerRestartsStaleWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &scriptedProvider{fix: Position{Lat: 1, Lng: 1}}
	tr := NewTracker(p, Config{
		StaleAfter:      30 * time.Millisecond,
		StaleCheckEvery: 5 * time.Millisecond,
	}, discardLogger())
	stop := startTracker(t, tr)
	defer stop()

	require.Eventually(t, func() bool { return len(p.watchCalls()) >= 2 }, time.Second, 5*time.Millisecond)

	calls := p.watchCalls()
	assert.True(t, calls[0].HighAccuracy)
	assert.False(t, calls[1].HighAccuracy)
}

// countingStatic is a Static source that counts its watches.
type countingStatic struct {
	Static
	watches atomic.Int32
}

func (c *countingStatic) Watch(ctx context.Context, opts Options) (<-chan Update, error) {
	c.watches.Add(1)
	return c.Static.Watch(ctx, opts)
}

func TestTrackerKeepsStaticWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &countingStatic{Static: Static{Position: Position{Lat: 1, Lng: 1}, Every: 5 * time.Millisecond}}
	tr := NewTracker(p, Config{
		StaleAfter:      30 * time.Millisecond,
		StaleCheckEvery: 5 * time.Millisecond,
	}, discardLogger())
	stop := startTracker(t, tr)
	defer stop()

	require.Eventually(t, func() bool {
		_, ok := tr.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, int32(1), p.watches.Load())
}

func TestTrackerStopsCallbacksAfterTeardown(t *testing.T) {
	defer goleak.VerifyNone(t)

	p := &scriptedProvider{fix: Position{Lat: 1, Lng: 1}}
	tr := NewTracker(p, Config{
		StaleAfter:      20 * time.Millisecond,
		StaleCheckEvery: 5 * time.Millisecond,
	}, discardLogger())

	var calls atomic.Int32
	tr.OnChange(func(State) { calls.Add(1) })

	stop := startTracker(t, tr)
	require.Eventually(t, func() bool { return calls.Load() > 0 }, time.Second, 5*time.Millisecond)
	stop()

	watches := len(p.watchCalls())
	after := calls.Load()
	time.Sleep(60 * time.Millisecond)

	assert.Equal(t, after, calls.Load())
	assert.Equal(t, watches, len(p.watchCalls()))
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"position error", &PositionError{Code: CodePositionUnavailable}, CodePositionUnavailable},
		{"wrapped", errors.Join(errors.New("ctx"), &PositionError{Code: CodePermissionDenied}), CodePermissionDenied},
		{"deadline", context.DeadlineExceeded, CodeTimeout},
		{"other", errors.New("boom"), CodeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err).Code)
		})
	}
	assert.Nil(t, Classify(nil))
}

func TestParseErrorCode(t *testing.T) {
	assert.Equal(t, CodeTimeout, ParseErrorCode("timeout"))
	assert.Equal(t, CodeUnknown, ParseErrorCode("nope"))
}
