// Package app provides models that are needed by y.
package app

import "time"

// ReadStateLimit caps how many read story ids are remembered.
const ReadStateLimit = 500

// ReadStateKey is the fixed storage key the read state persists under.
const ReadStateKey = "readStories"

// StreamReconnectDelay is the fixed wait before reopening a dropped stream.
const StreamReconnectDelay = 5 * time.Second

// DefaultPageSize is the story count per page when config does not set one.
const DefaultPageSize = 30
