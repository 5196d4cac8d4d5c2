// Package settings provides the opaque key-value settings store consumed by
// the ranking core. The core never defines the storage format; it only gets
// and sets string values by key.
package settings

import "context"

// Setting keys used by the ranking core.
const (
	// KeyAPIKey is the single persisted copy of the provider API key.
	KeyAPIKey = "api_key"
	// KeyProvider selects the active provider variant.
	KeyProvider = "provider"
	// KeyFunctionBias overrides the detected function bias.
	KeyFunctionBias = "function_bias"
)

// Store is an opaque key-value settings interface.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key, overwriting any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
