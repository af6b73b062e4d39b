package geolocation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFeedWatch(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := NewFeed()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := f.Watch(ctx, Options{})
	require.NoError(t, err)

	f.Push(Position{Lat: 1, Lng: 2})
	u := <-ch
	assert.Equal(t, 1.0, u.Position.Lat)

	f.Fail(&PositionError{Code: CodeTimeout})
	u = <-ch
	assert.Equal(t, CodeTimeout, Classify(u.Err).Code)

	cancel()
	for range ch {
	}
}

func TestStaticRepeatsFix(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := Static{Position: Position{Lat: 51.5, Lng: -0.12}, Every: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := s.Watch(ctx, Options{})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		select {
		case u := <-ch:
			assert.Equal(t, 51.5, u.Position.Lat)
		case <-time.After(time.Second):
			t.Fatalf("update %d never arrived", i)
		}
	}

	cancel()
	for range ch {
	}
}

func TestFeedCurrentPosition(t *testing.T) {
	defer goleak.VerifyNone(t)

	f := NewFeed()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := f.CurrentPosition(ctx, Options{})
	assert.Equal(t, CodeTimeout, Classify(err).Code)

	f.Push(Position{Lat: 3, Lng: 4})
	pos, err := f.CurrentPosition(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 3.0, pos.Lat)
}

func TestReplay(t *testing.T) {
	defer goleak.VerifyNone(t)

	path := filepath.Join(t.TempDir(), "route.yaml")
	route := "points:\n  - {lat: 1, lng: 1}\n  - {lat: 2, lng: 2, accuracy: 5}\n"
	require.NoError(t, os.WriteFile(path, []byte(route), 0o644))

	r, err := LoadReplay(path, 5*time.Millisecond)
	require.NoError(t, err)

	pos, err := r.CurrentPosition(context.Background(), Options{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, pos.Lat)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := r.Watch(ctx, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, (<-ch).Position.Lat)
	second := <-ch
	assert.Equal(t, 2.0, second.Position.Lat)
	require.NotNil(t, second.Position.Accuracy)
	assert.Equal(t, 5.0, *second.Position.Accuracy)

	cancel()
	for range ch {
	}
}

func TestLoadReplayEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "route.yaml")
	require.NoError(t, os.WriteFile(path, []byte("points: []\n"), 0o644))

	_, err := LoadReplay(path, time.Second)
	assert.Error(t, err)
}
