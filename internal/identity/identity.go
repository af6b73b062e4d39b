// Package identity provides the anonymous player identifier, generated once
// and reused for every session.
package identity

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/TWIMPapp/game.twimp.app-sub000/internal/store"
)

// Key is the storage key the identifier lives under.
const Key = "twimp_user_id"

// KV is the subset of the local store the provider needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	SetIfAbsent(ctx context.Context, key, value string) (string, error)
}

// Provider lazily loads or creates the identifier and caches it. Build one
// and share it; do not read the key directly elsewhere.
type Provider struct {
	kv KV

	mu sync.Mutex
	id string
}

func NewProvider(kv KV) *Provider {
	return &Provider{kv: kv}
}

// GetOrCreateUserID returns the stored identifier, creating and persisting a
// new UUID on first use. Repeated calls return the same value.
func (p *Provider) GetOrCreateUserID(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.id != "" {
		return p.id, nil
	}

	id, err := p.kv.Get(ctx, Key)
	switch {
	case errors.Is(err, store.ErrNotFound):
		id, err = p.kv.SetIfAbsent(ctx, Key, uuid.NewString())
		if err != nil {
			return "", fmt.Errorf("saving user id: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("loading user id: %w", err)
	}

	p.id = id
	return id, nil
}
