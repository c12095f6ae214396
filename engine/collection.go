package engine

import (
	"github.com/mseshachalam/y/app"
)

// Collection is the canonical feed state: an ordered sequence of stories,
// unique by id. Slice order is display order; stories are merged and
// inserted, never deleted within a session.
type Collection struct {
	stories []*app.Story
	index   map[int64]*app.Story
}

// NewCollection makes an empty collection
func NewCollection() *Collection {
	return &Collection{index: make(map[int64]*app.Story)}
}

// Len is the number of stories held
func (c *Collection) Len() int {
	return len(c.stories)
}

// Get returns the story with id or nil
func (c *Collection) Get(id int64) *app.Story {
	return c.index[id]
}

// Snapshot copies the stories in display order.
func (c *Collection) Snapshot() []app.Story {
	out := make([]app.Story, 0, len(c.stories))
	for _, s := range c.stories {
		out = append(out, *s)
	}
	return out
}

// UpsertMany merges each update into the entry with the matching id,
// appending entries not seen before in the order given. onNew is called
// for every appended entry so callers can stamp local flags.
func (c *Collection) UpsertMany(updates []app.StoryUpdate, onNew func(*app.Story)) {
	for i := range updates {
		u := &updates[i]
		if existing := c.index[u.ID]; existing != nil {
			MergeStory(existing, u)
			continue
		}

		s := NewStory(u)
		if onNew != nil {
			onNew(s)
		}
		c.stories = append(c.stories, s)
		c.index[s.ID] = s
	}
}

// InsertRanked inserts a story not currently present. A ranked story goes
// immediately before the first entry with a strictly greater rank, or at
// the end when there is none; a rankless story goes to the front.
func (c *Collection) InsertRanked(s *app.Story) {
	if c.index[s.ID] != nil {
		return
	}
	c.index[s.ID] = s

	if s.HNRank == nil {
		c.stories = append([]*app.Story{s}, c.stories...)
		return
	}

	for i, existing := range c.stories {
		if existing.HNRank != nil && *existing.HNRank > *s.HNRank {
			c.stories = append(c.stories[:i], append([]*app.Story{s}, c.stories[i:]...)...)
			return
		}
	}

	c.stories = append(c.stories, s)
}

// MarkRead sets the read flag on id; a read story is never new again.
// Missing ids are a no-op.
func (c *Collection) MarkRead(id int64) {
	s := c.index[id]
	if s == nil {
		return
	}
	s.IsRead = true
	s.IsNew = false
}

// ClearNewFlag clears the new flag on id. Missing ids are a no-op.
func (c *Collection) ClearNewFlag(id int64) {
	s := c.index[id]
	if s == nil {
		return
	}
	s.IsNew = false
}

// MergeStory applies the fields present in u onto s, leaving everything
// else untouched. Local flags (IsRead, IsNew) are never merged from the
// server side.
func MergeStory(s *app.Story, u *app.StoryUpdate) {
	if u.By != nil {
		s.By = *u.By
	}
	if u.Title != nil {
		s.Title = *u.Title
	}
	if u.Score != nil {
		s.Score = *u.Score
	}
	if u.Time != nil {
		s.Time = *u.Time
	}
	if u.URL != nil {
		s.URL = *u.URL
	}
	if u.Descendants != nil {
		d := *u.Descendants
		s.Descendants = &d
	}
	if u.TranslatedTitle != nil {
		s.TranslatedTitle = *u.TranslatedTitle
	}
	if u.IsTranslating != nil {
		s.IsTranslating = *u.IsTranslating
	}
	if u.HasTranslatedArticle != nil {
		s.HasTranslatedArticle = *u.HasTranslatedArticle
	}
	if u.IsArticleTranslating != nil {
		s.IsArticleTranslating = *u.IsArticleTranslating
	}
	if u.HNRank != nil {
		r := *u.HNRank
		s.HNRank = &r
	}
}

// NewStory builds a story from an update, with local flags zeroed.
func NewStory(u *app.StoryUpdate) *app.Story {
	s := &app.Story{ID: u.ID}
	MergeStory(s, u)
	return s
}
