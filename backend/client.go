// Package backend provides functions to fetch data from the translation backend.
package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mseshachalam/y/app"
)

const (
	// StoriesPath lists ranked stories with cursor pagination
	StoriesPath = "/stories"
	// ArticlesPath lists the translated article snapshot
	ArticlesPath = "/articles"
	// ArticlePath fetches one translated article by story id
	ArticlePath = "/articles/%d"
	// EventsPath is the server push channel
	EventsPath = "/events"
)

// ErrNotReady says the backend has no completed translation for the story.
var ErrNotReady = errors.New("article translation is not ready")

// ArticleStatusDone marks a completed translation record.
const ArticleStatusDone = "done"

// envelope is the REST response wrapper used by the backend.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// StoriesPage is one page of the ranked story list.
type StoriesPage struct {
	Stories           []app.StoryUpdate `json:"stories"`
	LastUpdatedAt     string            `json:"lastUpdatedAt,omitempty"`
	UntranslatedCount int               `json:"untranslatedCount,omitempty"`
}

// ArticleRecord is the backend wire shape of a translated article.
type ArticleRecord struct {
	StoryID         int64  `json:"story_id"`
	TitleSnapshot   string `json:"title_snapshot"`
	ContentMarkdown string `json:"content_markdown"`
	OriginalURL     string `json:"original_url,omitempty"`
	Status          string `json:"status"`
	UpdatedAt       int64  `json:"updated_at"`
	TLDR            string `json:"tldr,omitempty"`
}

// Client talks to the translation backend
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// FetchStories fetches one page of stories starting at cursor
func (c *Client) FetchStories(ctx context.Context, cursor, limit int) (*StoriesPage, error) {
	url := fmt.Sprintf("%s%s?cursor=%d&limit=%d", c.BaseURL, StoriesPath, cursor, limit)
	var page StoriesPage
	err := c.getJSON(ctx, url, &page)
	if err != nil {
		return nil, err
	}

	return &page, nil
}

// FetchArticles fetches the full translated article snapshot
func (c *Client) FetchArticles(ctx context.Context) ([]ArticleRecord, error) {
	var records []ArticleRecord
	err := c.getJSON(ctx, c.BaseURL+ArticlesPath, &records)
	if err != nil {
		return nil, err
	}

	return records, nil
}

// FetchArticle fetches one translated article by story id. It returns
// ErrNotReady when the backend has no completed translation for it.
func (c *Client) FetchArticle(ctx context.Context, storyID int64) (*ArticleRecord, error) {
	url := fmt.Sprintf("%s"+ArticlePath, c.BaseURL, storyID)
	var record ArticleRecord
	err := c.getJSON(ctx, url, &record)
	if err != nil {
		return nil, err
	}
	if record.Status != ArticleStatusDone {
		return nil, ErrNotReady
	}

	return &record, nil
}

func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req.WithContext(ctx))
	if err != nil {
		return err
	}

	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	var env envelope
	err = decoder.Decode(&env)
	if err != nil {
		return err
	}
	if !env.Success || env.Data == nil {
		if env.Error != "" {
			return errors.New(env.Error)
		}
		return fmt.Errorf("backend request %s failed", url)
	}

	return json.Unmarshal(env.Data, out)
}
