package engine

import (
	"sync"

	"github.com/mseshachalam/y/app"
)

// SessionState is the reading session lifecycle position.
type SessionState int

// Reading session states
const (
	SessionIdle SessionState = iota
	SessionOpening
	SessionReady
	SessionFailed
)

// Session is the transient state of the user viewing one story's
// translated article. Terminal states return to idle on Close.
type Session struct {
	State   SessionState      `json:"state"`
	StoryID int64             `json:"storyId,omitempty"`
	Article app.CachedArticle `json:"article,omitempty"`
	Message string            `json:"message,omitempty"`
}

// sessionSignal is the per-open completion channel. Several paths race
// to settle a session (the fetch, a pushed event, a superseding open);
// whichever wins closes the channel, the rest are no-ops.
type sessionSignal struct {
	ch   chan struct{}
	once sync.Once
}

func newSessionSignal() *sessionSignal {
	return &sessionSignal{ch: make(chan struct{})}
}

func (s *sessionSignal) close() {
	s.once.Do(func() { close(s.ch) })
}

// String names the state for logs and json.
func (s SessionState) String() string {
	switch s {
	case SessionOpening:
		return "opening"
	case SessionReady:
		return "ready"
	case SessionFailed:
		return "failed"
	default:
		return "idle"
	}
}
