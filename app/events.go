package app

import "encoding/json"

// Event types pushed by the backend over the event stream.
const (
	EventConnected      = "connected"
	EventStoriesUpdated = "stories.updated"
	EventArticleDone    = "article.done"
	EventArticleError   = "article.error"
)

// Envelope is the raw stream frame, dispatched on Type.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// StoryUpdate is a partial story as sent by the backend. Pointer fields
// distinguish absent from zero so merges only override what the server sent.
// IsNew and IsRead are local flags the server never owns.
type StoryUpdate struct {
	ID                   int64   `json:"id"`
	By                   *string `json:"by,omitempty"`
	Title                *string `json:"title,omitempty"`
	Score                *int    `json:"score,omitempty"`
	Time                 *int64  `json:"time,omitempty"`
	URL                  *string `json:"url,omitempty"`
	Descendants          *int    `json:"descendants,omitempty"`
	TranslatedTitle      *string `json:"translatedTitle,omitempty"`
	IsTranslating        *bool   `json:"isTranslating,omitempty"`
	HasTranslatedArticle *bool   `json:"hasTranslatedArticle,omitempty"`
	IsArticleTranslating *bool   `json:"isArticleTranslating,omitempty"`
	HNRank               *int    `json:"hnRank,omitempty"`
}

// StoriesUpdated carries a batch of story deltas.
type StoriesUpdated struct {
	Stories       []StoryUpdate `json:"stories"`
	LastUpdatedAt string        `json:"lastUpdatedAt,omitempty"`
}

// ArticleDone announces a completed article translation.
type ArticleDone struct {
	StoryID     int64        `json:"storyId"`
	Title       string       `json:"title"`
	Content     string       `json:"content"`
	OriginalURL string       `json:"originalUrl,omitempty"`
	Story       *StoryUpdate `json:"story,omitempty"`
}

// ArticleError announces a failed article translation.
type ArticleError struct {
	StoryID      int64  `json:"storyId"`
	Title        string `json:"title"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}
