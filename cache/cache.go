// Package cache keeps translated article bodies keyed by story id.
package cache

import (
	"log"
	"strings"
	"sync"

	"github.com/JesusIslam/tldr"
	"github.com/mseshachalam/y/app"
	"github.com/mseshachalam/y/backend"
	"jaytaylor.com/html2text"
)

// SummarySentences is how many sentences a locally computed tldr keeps.
const SummarySentences = 3

// Cache is an in-memory article store. It is advisory: a missing entry
// does not mean the article is untranslated, the story's
// HasTranslatedArticle flag is the authoritative signal.
type Cache struct {
	mu       sync.RWMutex
	articles map[int64]app.CachedArticle
}

// NewCache makes an empty cache
func NewCache() *Cache {
	return &Cache{articles: make(map[int64]app.CachedArticle)}
}

// LoadFrom fills the cache from a backend snapshot, keeping completed
// translations only.
func (c *Cache) LoadFrom(records []backend.ArticleRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, record := range records {
		if record.Status != backend.ArticleStatusDone {
			continue
		}
		c.articles[record.StoryID] = FromRecord(&record)
	}
}

// Get returns the cached article for id
func (c *Cache) Get(id int64) (app.CachedArticle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.articles[id]
	return a, ok
}

// Put overwrites the entry for a.ID wholesale
func (c *Cache) Put(a app.CachedArticle) {
	if a.TLDR == "" {
		a.TLDR = Summarize(a.Content)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.articles[a.ID] = a
}

// Len is the number of cached articles
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.articles)
}

// FromRecord converts a backend article record to a cached article,
// computing a tldr locally when the backend did not send one.
func FromRecord(record *backend.ArticleRecord) app.CachedArticle {
	a := app.CachedArticle{
		ID:          record.StoryID,
		Title:       record.TitleSnapshot,
		Content:     record.ContentMarkdown,
		OriginalURL: record.OriginalURL,
		Timestamp:   record.UpdatedAt,
		TLDR:        record.TLDR,
	}
	if a.TLDR == "" {
		a.TLDR = Summarize(a.Content)
	}

	return a
}

// Summarize reduces article content to a few sentences of plain text.
func Summarize(content string) string {
	text, err := html2text.FromString(content, html2text.Options{OmitLinks: true})
	if err != nil {
		log.Println(err)
		text = content
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	bag := tldr.New()
	sentences, err := bag.Summarize(text, SummarySentences)
	if err != nil {
		log.Println(err)
		return ""
	}

	return strings.TrimSpace(strings.Join(sentences, " "))
}
