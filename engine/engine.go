// Package engine reconciles backend pushes, fetch results and user
// actions into one consistent view of the translated story feed.
package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/mseshachalam/y/app"
	"github.com/mseshachalam/y/backend"
	"github.com/mseshachalam/y/cache"
	"github.com/mseshachalam/y/encrypt"
	"github.com/mseshachalam/y/readstate"
	"github.com/mseshachalam/y/stream"
	"github.com/mseshachalam/y/util"
)

// NotAvailableMessage tells the user an article translation has not
// happened yet.
const NotAvailableMessage = "article translation is not available yet"

// FetchFailedMessage tells the user an on-demand article fetch broke.
const FetchFailedMessage = "could not load the article, please try again"

// TranslationFailedMessage is the default article.error text.
const TranslationFailedMessage = "article translation failed"

// TranslationDoneMessage announces a finished article translation.
const TranslationDoneMessage = "article translation completed"

// Fetcher is the slice of the backend client the engine needs.
type Fetcher interface {
	FetchStories(ctx context.Context, cursor, limit int) (*backend.StoriesPage, error)
	FetchArticles(ctx context.Context) ([]backend.ArticleRecord, error)
	FetchArticle(ctx context.Context, storyID int64) (*backend.ArticleRecord, error)
}

// Snapshot is the read-only state handed to the presentation layer.
type Snapshot struct {
	Stories           []app.Story        `json:"stories"`
	LastUpdatedAt     string             `json:"lastUpdatedAt,omitempty"`
	UntranslatedCount int                `json:"untranslatedCount"`
	LoadError         string             `json:"loadError,omitempty"`
	LoadingMore       bool               `json:"loadingMore"`
	Session           Session            `json:"session"`
	Notifications     []app.Notification `json:"notifications"`
}

// Engine owns the feed state. Every mutation path, stream events, user
// actions and fetch completions, runs as one discrete step under the
// engine lock so reconciliation steps never interleave.
type Engine struct {
	Fetcher Fetcher
	Cache   *cache.Cache
	Reads   *readstate.Store
	Stream  *stream.Client
	//PageSize used for initial load and pagination.
	PageSize int
	//Key encrypts outbound story links; nil disables link encryption.
	Key *[32]byte

	mu            sync.Mutex
	stories       *Collection
	lastUpdatedAt string
	untranslated  int
	loadErr       string
	loadingMore   bool
	session       Session
	sessionDone   *sessionSignal
	notifications []app.Notification
	listeners     []app.Listener

	ctx    context.Context
	cancel context.CancelFunc
}

// New wires an engine around its collaborators. factory may be nil when
// no live stream is wanted, as in tests.
func New(fetcher Fetcher, articles *cache.Cache, reads *readstate.Store, factory app.StreamFactory) *Engine {
	e := &Engine{
		Fetcher:  fetcher,
		Cache:    articles,
		Reads:    reads,
		PageSize: app.DefaultPageSize,
		stories:  NewCollection(),
	}
	if factory != nil {
		e.Stream = &stream.Client{Factory: factory, Handler: e}
	}

	return e
}

// Start loads the article snapshot and the first story page, then opens
// the push stream. Load failures are remembered, never fatal.
func (e *Engine) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.ctx = ctx
	e.cancel = cancel
	e.mu.Unlock()

	e.loadArticles(ctx)
	e.loadStories(ctx, 0)

	if e.Stream != nil {
		return e.Stream.Open(ctx)
	}

	return nil
}

// Stop releases the stream and cancels all pending work.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.mu.Unlock()

	if e.Stream != nil {
		e.Stream.Close()
	}
	if cancel != nil {
		cancel()
	}
}

// Reload clears a previous initial-load failure and fetches the first
// page again.
func (e *Engine) Reload() {
	e.mu.Lock()
	ctx := e.ctx
	e.loadErr = ""
	e.mu.Unlock()

	if ctx == nil {
		return
	}
	e.loadStories(ctx, 0)
}

// Subscribe registers a listener called after every reconciliation step.
func (e *Engine) Subscribe(l app.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// Snapshot copies the current state for the presentation layer.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Snapshot{
		Stories:           e.stories.Snapshot(),
		LastUpdatedAt:     e.lastUpdatedAt,
		UntranslatedCount: e.untranslated,
		LoadError:         e.loadErr,
		LoadingMore:       e.loadingMore,
		Session:           e.session,
		Notifications:     append([]app.Notification(nil), e.notifications...),
	}
}

// OpenStory records the story as read and drives the reading session.
// The returned channel is non-nil while an article fetch is in flight
// and closes when the session leaves the opening state.
func (e *Engine) OpenStory(id int64) (Session, <-chan struct{}) {
	e.mu.Lock()

	// a still-opening previous session is abandoned, not left hanging
	superseded := e.sessionDone
	e.sessionDone = nil

	if !e.Reads.Has(id) {
		e.Reads.Add(id)
	}
	e.stories.MarkRead(id)

	if a, ok := e.Cache.Get(id); ok {
		e.session = Session{State: SessionReady, StoryID: id, Article: a}
		session := e.session
		e.mu.Unlock()
		if superseded != nil {
			superseded.close()
		}
		e.notify()
		return session, nil
	}

	story := e.stories.Get(id)
	if story != nil && story.HasTranslatedArticle {
		sig := newSessionSignal()
		e.session = Session{State: SessionOpening, StoryID: id}
		e.sessionDone = sig
		ctx := e.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		session := e.session
		e.mu.Unlock()
		if superseded != nil {
			superseded.close()
		}
		e.notify()

		go e.fetchArticle(ctx, id, sig)
		return session, sig.ch
	}

	title := ""
	if story != nil {
		title = story.DisplayTitle()
	}
	e.notifications = append(e.notifications, app.Notification{
		StoryID: id,
		Title:   title,
		Message: NotAvailableMessage,
	})
	session := e.session
	e.mu.Unlock()
	if superseded != nil {
		superseded.close()
	}
	e.notify()

	return session, nil
}

// CloseSession returns a settled session to idle.
func (e *Engine) CloseSession() {
	e.mu.Lock()
	if e.session.State == SessionReady || e.session.State == SessionFailed {
		e.session = Session{}
		e.sessionDone = nil
	}
	e.mu.Unlock()
	e.notify()
}

// Session copies the reading session state.
func (e *Engine) Session() Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session
}

// LoadMore fetches the next story page. A page already in flight or a
// fetch failure keeps the affordance retryable.
func (e *Engine) LoadMore() {
	e.mu.Lock()
	if e.loadingMore || e.ctx == nil {
		e.mu.Unlock()
		return
	}
	e.loadingMore = true
	ctx := e.ctx
	cursor := e.nextCursor()
	e.mu.Unlock()
	e.notify()

	go func() {
		page, err := e.Fetcher.FetchStories(ctx, cursor, e.PageSize)

		e.mu.Lock()
		e.loadingMore = false
		if err != nil {
			log.Println(err)
			e.mu.Unlock()
			e.notify()
			return
		}
		e.applyPage(page)
		e.mu.Unlock()
		e.notify()
	}()
}

// DismissNotification drops the oldest queued toast.
func (e *Engine) DismissNotification() {
	e.mu.Lock()
	if len(e.notifications) > 0 {
		e.notifications = e.notifications[1:]
	}
	e.mu.Unlock()
	e.notify()
}

// HandleConnected acknowledges the stream handshake.
func (e *Engine) HandleConnected() {}

// HandleStoriesUpdated merges a pushed batch of story deltas. Existing
// stories are merged in place keeping their display position; unknown
// stories come in flagged new, stamped with persisted read state and
// ranked into position. Re-applying the same payload changes nothing.
func (e *Engine) HandleStoriesUpdated(ev *app.StoriesUpdated) {
	e.mu.Lock()

	var front []*app.Story
	for i := range ev.Stories {
		u := &ev.Stories[i]
		if existing := e.stories.Get(u.ID); existing != nil {
			MergeStory(existing, u)
			e.enrich(existing)
			continue
		}

		s := NewStory(u)
		e.stampNew(s)
		if s.HNRank != nil {
			e.stories.InsertRanked(s)
		} else {
			front = append(front, s)
		}
	}
	// rankless new stories go to the front as one block, payload order kept
	for i := len(front) - 1; i >= 0; i-- {
		e.stories.InsertRanked(front[i])
	}

	if ev.LastUpdatedAt != "" {
		e.lastUpdatedAt = ev.LastUpdatedAt
	}
	e.mu.Unlock()
	e.notify()
}

// HandleArticleDone stores a finished translation, reconciles the story
// flags, resolves a waiting reading session and queues a toast.
func (e *Engine) HandleArticleDone(ev *app.ArticleDone) {
	e.mu.Lock()

	a := app.CachedArticle{
		ID:          ev.StoryID,
		Title:       ev.Title,
		Content:     ev.Content,
		OriginalURL: ev.OriginalURL,
		Timestamp:   time.Now().Unix(),
	}
	e.Cache.Put(a)
	a, _ = e.Cache.Get(ev.StoryID)

	yes := true
	no := false
	if existing := e.stories.Get(ev.StoryID); existing != nil {
		MergeStory(existing, &app.StoryUpdate{
			ID:                   ev.StoryID,
			HasTranslatedArticle: &yes,
			IsArticleTranslating: &no,
		})
	} else if ev.Story != nil {
		s := NewStory(ev.Story)
		s.HasTranslatedArticle = true
		s.IsArticleTranslating = false
		e.stampNew(s)
		e.stories.InsertRanked(s)
	}

	var done *sessionSignal
	if e.session.StoryID == ev.StoryID && e.session.State != SessionIdle {
		e.session = Session{State: SessionReady, StoryID: ev.StoryID, Article: a}
		done = e.sessionDone
		e.sessionDone = nil
	}

	e.notifications = append(e.notifications, app.Notification{
		StoryID: ev.StoryID,
		Title:   ev.Title,
		Message: TranslationDoneMessage,
	})
	e.mu.Unlock()

	if done != nil {
		done.close()
	}
	e.notify()
}

// HandleArticleError clears the in-flight flag, cancels a session stuck
// on the failed story and queues an error toast.
func (e *Engine) HandleArticleError(ev *app.ArticleError) {
	e.mu.Lock()

	no := false
	if existing := e.stories.Get(ev.StoryID); existing != nil {
		MergeStory(existing, &app.StoryUpdate{ID: ev.StoryID, IsArticleTranslating: &no})
	}

	var done *sessionSignal
	if e.session.StoryID == ev.StoryID && e.session.State != SessionIdle {
		e.session = Session{}
		done = e.sessionDone
		e.sessionDone = nil
	}

	message := ev.ErrorMessage
	if message == "" {
		message = TranslationFailedMessage
	}
	e.notifications = append(e.notifications, app.Notification{
		StoryID: ev.StoryID,
		Title:   ev.Title,
		Message: message,
		IsError: true,
	})
	e.mu.Unlock()

	if done != nil {
		done.close()
	}
	e.notify()
}

func (e *Engine) fetchArticle(ctx context.Context, id int64, sig *sessionSignal) {
	record, err := e.Fetcher.FetchArticle(ctx, id)

	e.mu.Lock()
	if e.session.State != SessionOpening || e.session.StoryID != id {
		// a stream event or another open settled the session first;
		// keep its outcome, but never leave a waiter hanging
		if err == nil {
			e.Cache.Put(cache.FromRecord(record))
		}
		e.mu.Unlock()
		sig.close()
		return
	}

	if err != nil {
		log.Println(err)
		e.session = Session{State: SessionFailed, StoryID: id, Message: FetchFailedMessage}
		e.sessionDone = nil
		e.notifications = append(e.notifications, app.Notification{
			StoryID: id,
			Message: FetchFailedMessage,
			IsError: true,
		})
		e.mu.Unlock()
		sig.close()
		e.notify()
		return
	}

	a := cache.FromRecord(record)
	e.Cache.Put(a)
	a, _ = e.Cache.Get(id)
	e.session = Session{State: SessionReady, StoryID: id, Article: a}
	e.sessionDone = nil
	e.mu.Unlock()
	sig.close()
	e.notify()
}

func (e *Engine) loadArticles(ctx context.Context) {
	records, err := e.Fetcher.FetchArticles(ctx)
	if err != nil {
		log.Println(err)
		return
	}
	e.Cache.LoadFrom(records)
}

func (e *Engine) loadStories(ctx context.Context, cursor int) {
	page, err := e.Fetcher.FetchStories(ctx, cursor, e.PageSize)

	e.mu.Lock()
	if err != nil {
		log.Println(err)
		e.loadErr = err.Error()
		e.mu.Unlock()
		e.notify()
		return
	}
	e.loadErr = ""
	e.applyPage(page)
	e.mu.Unlock()
	e.notify()
}

// applyPage merges a fetched story page in server sequence. Stories seen
// for the first time through a fetch are not "new", only pushed ones are.
// Callers hold the engine lock.
func (e *Engine) applyPage(page *backend.StoriesPage) {
	e.stories.UpsertMany(page.Stories, func(s *app.Story) {
		s.IsRead = e.Reads.Has(s.ID)
	})
	// a url can first arrive through a merge, so enrich after the upsert
	for i := range page.Stories {
		if s := e.stories.Get(page.Stories[i].ID); s != nil {
			e.enrich(s)
		}
	}
	if page.LastUpdatedAt != "" {
		e.lastUpdatedAt = page.LastUpdatedAt
	}
	e.untranslated = page.UntranslatedCount
}

// stampNew flags a pushed story as new unless the user already read it;
// a read story is never redisplayed as new.
func (e *Engine) stampNew(s *app.Story) {
	s.IsRead = e.Reads.Has(s.ID)
	s.IsNew = !s.IsRead
	e.enrich(s)
}

// enrich computes display-only fields that never come from the server.
func (e *Engine) enrich(s *app.Story) {
	if s.Domain == "" && s.URL != "" {
		domain, err := util.URLToDomain(s.URL)
		if err == nil {
			s.Domain = domain
		}
	}
	if e.Key != nil && s.EncryptedURL == "" && s.URL != "" {
		h, err := encrypt.EncAndHex(s.URL, e.Key)
		if err == nil {
			s.EncryptedURL = h
		}
	}
}

// nextCursor is the pagination cursor per the backend contract: the last
// story's rank plus one, or the list length when rank is absent.
// Callers hold the engine lock.
func (e *Engine) nextCursor() int {
	n := e.stories.Len()
	if n == 0 {
		return 0
	}
	last := e.stories.Snapshot()[n-1]
	if last.HNRank != nil {
		return *last.HNRank + 1
	}
	return n
}

func (e *Engine) notify() {
	e.mu.Lock()
	listeners := append([]app.Listener(nil), e.listeners...)
	e.mu.Unlock()

	for _, l := range listeners {
		l()
	}
}
