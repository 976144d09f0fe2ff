package metadata

import (
	"context"
)

// Repository is a small key/value table for client state that must survive
// restarts (the serialized session, the last used login name).
//
// Get returns (nil, nil) for an absent key.
type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
