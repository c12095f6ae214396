// Package stream maintains the live push channel to the backend.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/mseshachalam/y/app"
)

// State of the push channel.
type State int

// Stream connection states
const (
	Disconnected State = iota
	Connecting
	Open
)

// Handler receives decoded stream events.
type Handler interface {
	HandleConnected()
	HandleStoriesUpdated(e *app.StoriesUpdated)
	HandleArticleDone(e *app.ArticleDone)
	HandleArticleError(e *app.ArticleError)
}

// Client owns the single live push connection. A dropped transport is
// reopened after a fixed delay, forever; a deliberate Close suppresses
// any further reconnection.
type Client struct {
	Factory app.StreamFactory
	Handler Handler
	//Delay between a drop and the reconnection attempt.
	Delay time.Duration

	mu        sync.Mutex
	state     State
	cancel    context.CancelFunc
	transport app.StreamTransport
	done      chan struct{}
}

// Open starts the connection loop. Opening an already open client is an error.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cancel != nil {
		return errors.New("stream is already open")
	}

	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	c.state = Connecting

	go c.run(ctx, c.done)

	return nil
}

// Close tears the connection down and stops reconnecting. It waits for
// the connection loop to exit.
func (c *Client) Close() {
	c.mu.Lock()
	if c.cancel == nil {
		c.mu.Unlock()
		return
	}
	cancel := c.cancel
	transport := c.transport
	done := c.done
	c.cancel = nil
	c.mu.Unlock()

	cancel()
	if transport != nil {
		if err := transport.Close(); err != nil {
			log.Println(err)
		}
	}
	<-done
}

// State reports the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer c.setState(Disconnected)

	delay := c.Delay
	if delay <= 0 {
		delay = app.StreamReconnectDelay
	}

	for {
		c.setState(Connecting)
		transport, err := c.Factory(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Println(err)
		} else {
			// Close may have run while the factory was connecting; a
			// transport it never saw must still be released here.
			if !c.adopt(transport) {
				if err := transport.Close(); err != nil {
					log.Println(err)
				}
				return
			}
			for frame := range transport.Frames() {
				c.dispatch(frame)
			}
			c.setTransport(nil)
			if err := transport.Close(); err != nil {
				log.Println(err)
			}
		}

		if ctx.Err() != nil {
			return
		}

		c.setState(Disconnected)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

// adopt publishes a freshly connected transport so Close can reach it.
// It refuses the transport when the client was closed meanwhile.
func (c *Client) adopt(transport app.StreamTransport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel == nil {
		return false
	}
	c.transport = transport
	c.state = Open
	return true
}

func (c *Client) setTransport(transport app.StreamTransport) {
	c.mu.Lock()
	c.transport = transport
	c.mu.Unlock()
}

// dispatch decodes one frame and hands it to the handler. Malformed or
// unknown frames are logged and dropped, never fatal.
func (c *Client) dispatch(frame []byte) {
	var env app.Envelope
	err := json.Unmarshal(frame, &env)
	if err != nil {
		log.Println(err)
		return
	}

	switch env.Type {
	case app.EventConnected:
		c.Handler.HandleConnected()
	case app.EventStoriesUpdated:
		var e app.StoriesUpdated
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			log.Println(err)
			return
		}
		c.Handler.HandleStoriesUpdated(&e)
	case app.EventArticleDone:
		var e app.ArticleDone
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			log.Println(err)
			return
		}
		c.Handler.HandleArticleDone(&e)
	case app.EventArticleError:
		var e app.ArticleError
		if err := json.Unmarshal(env.Payload, &e); err != nil {
			log.Println(err)
			return
		}
		c.Handler.HandleArticleError(&e)
	default:
		log.Printf("unknown stream event type : %s\n", env.Type)
	}
}
