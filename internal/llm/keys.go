package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jonathan/bullet-ranker/internal/settings"
)

// Keyring owns the API key lifecycle. The key exists in exactly two places:
// process memory and one opaque entry in the settings store. Clearing the
// key removes both copies. The keyring never prompts for a key.
type Keyring struct {
	store settings.Store

	mu  sync.RWMutex
	key string
}

// NewKeyring creates a keyring backed by the given settings store and loads
// any persisted key into memory.
func NewKeyring(ctx context.Context, store settings.Store) (*Keyring, error) {
	k := &Keyring{store: store}

	value, err := store.Get(ctx, settings.KeyAPIKey)
	if err != nil {
		if errors.Is(err, settings.ErrNotFound) {
			return k, nil
		}
		return nil, fmt.Errorf("failed to load API key: %w", err)
	}
	k.key = value
	return k, nil
}

// Get returns the in-memory key, or empty string when none is configured.
func (k *Keyring) Get() string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.key
}

// Set stores the key in memory and persists it.
func (k *Keyring) Set(ctx context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.Set(ctx, settings.KeyAPIKey, key); err != nil {
		return fmt.Errorf("failed to persist API key: %w", err)
	}
	k.key = key
	return nil
}

// Clear removes the key from memory and from the settings store.
func (k *Keyring) Clear(ctx context.Context) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.store.Delete(ctx, settings.KeyAPIKey); err != nil {
		return fmt.Errorf("failed to remove persisted API key: %w", err)
	}
	k.key = ""
	return nil
}
