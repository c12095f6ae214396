package app

import (
	"context"
)

// KVStore is pluggable key-value persistence for local state.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Clear(key string) error
}

// StreamTransport is one live push connection delivering raw frames.
// Frames is closed when the transport drops or when Close is called.
type StreamTransport interface {
	Frames() <-chan []byte
	Close() error
}

// StreamFactory opens a fresh transport, called on connect and on every reconnect.
type StreamFactory func(ctx context.Context) (StreamTransport, error)

// Listener is notified after each discrete reconciliation step.
type Listener func()
