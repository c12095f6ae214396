package stream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/mseshachalam/y/app"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeTransport struct {
	frames    chan []byte
	closeOnce sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{frames: make(chan []byte)}
}

func (t *fakeTransport) Frames() <-chan []byte { return t.frames }

func (t *fakeTransport) Close() error {
	t.closeOnce.Do(func() { close(t.frames) })
	return nil
}

// drop simulates the server side breaking the connection.
func (t *fakeTransport) drop() {
	t.Close()
}

type recorder struct {
	mu        sync.Mutex
	connected int
	stories   []*app.StoriesUpdated
	done      []*app.ArticleDone
	errs      []*app.ArticleError
}

func (r *recorder) HandleConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connected++
}

func (r *recorder) HandleStoriesUpdated(e *app.StoriesUpdated) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stories = append(r.stories, e)
}

func (r *recorder) HandleArticleDone(e *app.ArticleDone) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done = append(r.done, e)
}

func (r *recorder) HandleArticleError(e *app.ArticleError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, e)
}

func (r *recorder) counts() (int, int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connected, len(r.stories), len(r.done), len(r.errs)
}

type fakeFactory struct {
	mu         sync.Mutex
	transports []*fakeTransport
	errs       []error
}

func (f *fakeFactory) factory(ctx context.Context) (app.StreamTransport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	t := newFakeTransport()
	f.transports = append(f.transports, t)
	return t, nil
}

func (f *fakeFactory) connects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transports)
}

func (f *fakeFactory) transport(i int) *fakeTransport {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.transports[i]
}

func waitConnects(t *testing.T, f *fakeFactory, want int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.connects() == want
	}, 2*time.Second, 5*time.Millisecond)
}

func TestClient_DispatchesTypedEvents(t *testing.T) {
	f := &fakeFactory{}
	r := &recorder{}
	c := &Client{Factory: f.factory, Handler: r, Delay: 10 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	defer c.Close()
	waitConnects(t, f, 1)
	tr := f.transport(0)

	tr.frames <- []byte(`{"type":"connected","payload":{}}`)
	tr.frames <- []byte(`{"type":"stories.updated","payload":{"stories":[{"id":1,"title":"one"}],"lastUpdatedAt":"2024-05-01T10:00:00Z"}}`)
	tr.frames <- []byte(`{"type":"article.done","payload":{"storyId":2,"title":"two","content":"body"}}`)
	tr.frames <- []byte(`{"type":"article.error","payload":{"storyId":3,"title":"three","errorMessage":"mt down"}}`)

	require.Eventually(t, func() bool {
		connected, stories, done, errs := r.counts()
		return connected == 1 && stories == 1 && done == 1 && errs == 1
	}, 2*time.Second, 5*time.Millisecond)

	r.mu.Lock()
	defer r.mu.Unlock()
	require.Len(t, r.stories[0].Stories, 1)
	assert.Equal(t, int64(1), r.stories[0].Stories[0].ID)
	assert.Equal(t, "2024-05-01T10:00:00Z", r.stories[0].LastUpdatedAt)
	assert.Equal(t, int64(2), r.done[0].StoryID)
	assert.Equal(t, "mt down", r.errs[0].ErrorMessage)
}

func TestClient_IgnoresMalformedFrames(t *testing.T) {
	f := &fakeFactory{}
	r := &recorder{}
	c := &Client{Factory: f.factory, Handler: r, Delay: 10 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	defer c.Close()
	waitConnects(t, f, 1)
	tr := f.transport(0)

	tr.frames <- []byte(`this is not json`)
	tr.frames <- []byte(`{"type":"totally.unknown","payload":{}}`)
	tr.frames <- []byte(`{"type":"stories.updated","payload":"not an object"}`)
	tr.frames <- []byte(`{"type":"connected"}`)

	require.Eventually(t, func() bool {
		connected, _, _, _ := r.counts()
		return connected == 1
	}, 2*time.Second, 5*time.Millisecond, "good frames still flow after bad ones")

	_, stories, done, errs := r.counts()
	assert.Zero(t, stories)
	assert.Zero(t, done)
	assert.Zero(t, errs)
	assert.Equal(t, 1, f.connects(), "malformed frames never drop the connection")
}

func TestClient_OpenTwiceFails(t *testing.T) {
	f := &fakeFactory{}
	c := &Client{Factory: f.factory, Handler: &recorder{}, Delay: 10 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	err := c.Open(context.Background())
	assert.Error(t, err, "the stream is a singleton resource")
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	f := &fakeFactory{}
	c := &Client{Factory: f.factory, Handler: &recorder{}, Delay: 20 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	defer c.Close()
	waitConnects(t, f, 1)

	f.transport(0).drop()
	waitConnects(t, f, 2)

	// one attempt per interval, not a burst
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, f.connects())

	f.transport(1).drop()
	waitConnects(t, f, 3)
}

func TestClient_RetriesFailedConnect(t *testing.T) {
	f := &fakeFactory{errs: []error{assert.AnError, assert.AnError}}
	c := &Client{Factory: f.factory, Handler: &recorder{}, Delay: 10 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	defer c.Close()

	waitConnects(t, f, 1)
	assert.Equal(t, Open, c.State())
}

func TestClient_CloseDuringConnectReleasesTransport(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var tr *fakeTransport
	factory := func(ctx context.Context) (app.StreamTransport, error) {
		close(entered)
		<-release
		tr = newFakeTransport()
		return tr, nil
	}
	c := &Client{Factory: factory, Handler: &recorder{}, Delay: 10 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	<-entered

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()

	// let Close park on the loop before the connect completes
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close never returned")
	}

	_, open := <-tr.frames
	assert.False(t, open, "a transport the close path never saw still gets released")
	assert.Equal(t, Disconnected, c.State())
}

func TestClient_CloseSuppressesReconnect(t *testing.T) {
	f := &fakeFactory{}
	c := &Client{Factory: f.factory, Handler: &recorder{}, Delay: 10 * time.Millisecond}

	require.NoError(t, c.Open(context.Background()))
	waitConnects(t, f, 1)

	c.Close()
	assert.Equal(t, Disconnected, c.State())

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, f.connects(), "a deliberate close never reconnects")

	// closing again is a no-op
	c.Close()
}
