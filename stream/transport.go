package stream

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/mseshachalam/y/app"
	"github.com/mseshachalam/y/backend"
)

// maxFrameSize bounds a single event frame; article bodies ride in frames.
const maxFrameSize = 4 * 1024 * 1024

// NewHTTPFactory makes a StreamFactory that reads one JSON event per line
// from the backend events endpoint. SSE style "data:" prefixes and comment
// lines are tolerated so a text/event-stream backend works unchanged.
func NewHTTPFactory(baseURL string, client *http.Client) app.StreamFactory {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context) (app.StreamTransport, error) {
		req, err := http.NewRequest(http.MethodGet, baseURL+backend.EventsPath, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := client.Do(req.WithContext(ctx))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("events endpoint returned %s", resp.Status)
		}

		t := &httpTransport{
			resp:   resp,
			frames: make(chan []byte),
		}
		go t.read()

		return t, nil
	}
}

type httpTransport struct {
	resp   *http.Response
	frames chan []byte

	closeOnce sync.Once
}

// Frames delivers raw event frames until the connection drops.
func (t *httpTransport) Frames() <-chan []byte {
	return t.frames
}

// Close terminates the connection; the frames channel closes after it.
func (t *httpTransport) Close() error {
	t.closeOnce.Do(func() {
		t.resp.Body.Close()
	})
	return nil
}

func (t *httpTransport) read() {
	defer close(t.frames)
	defer t.Close()

	scanner := bufio.NewScanner(t.resp.Body)
	scanner.Buffer(make([]byte, 64*1024), maxFrameSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		t.frames <- []byte(line)
	}
}
