package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeOK(t *testing.T, w http.ResponseWriter, data interface{}) {
	t.Helper()
	buf, err := json.Marshal(data)
	require.NoError(t, err)
	err = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    json.RawMessage(buf),
	})
	require.NoError(t, err)
}

func TestClient_FetchStories(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, StoriesPath, r.URL.Path)
		assert.Equal(t, "3", r.URL.Query().Get("cursor"))
		assert.Equal(t, "30", r.URL.Query().Get("limit"))

		envelopeOK(t, w, map[string]interface{}{
			"stories": []map[string]interface{}{
				{"id": 101, "title": "hello", "hnRank": 3},
			},
			"lastUpdatedAt":     "2024-05-01T10:00:00Z",
			"untranslatedCount": 2,
		})
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	page, err := c.FetchStories(context.Background(), 3, 30)
	require.NoError(t, err)

	require.Len(t, page.Stories, 1)
	assert.Equal(t, int64(101), page.Stories[0].ID)
	require.NotNil(t, page.Stories[0].Title)
	assert.Equal(t, "hello", *page.Stories[0].Title)
	require.NotNil(t, page.Stories[0].HNRank)
	assert.Equal(t, 3, *page.Stories[0].HNRank)
	assert.Nil(t, page.Stories[0].Score, "absent fields stay nil")
	assert.Equal(t, "2024-05-01T10:00:00Z", page.LastUpdatedAt)
	assert.Equal(t, 2, page.UntranslatedCount)
}

func TestClient_EnvelopeFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"error":   "backend exploded",
		})
		require.NoError(t, err)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	_, err := c.FetchStories(context.Background(), 0, 30)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend exploded", "server supplied message is kept")
}

func TestClient_EnvelopeMissingData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		err := json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
		require.NoError(t, err)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	_, err := c.FetchStories(context.Background(), 0, 30)
	require.Error(t, err)
}

func TestClient_FetchArticles(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, ArticlesPath, r.URL.Path)
		envelopeOK(t, w, []map[string]interface{}{
			{"story_id": 1, "title_snapshot": "one", "content_markdown": "body", "status": "done", "updated_at": 1700000000},
			{"story_id": 2, "title_snapshot": "two", "status": "processing"},
		})
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	records, err := c.FetchArticles(context.Background())
	require.NoError(t, err)

	require.Len(t, records, 2, "snapshot filtering is the caller's job")
	assert.Equal(t, int64(1), records[0].StoryID)
	assert.Equal(t, "one", records[0].TitleSnapshot)
	assert.Equal(t, ArticleStatusDone, records[0].Status)
	assert.Equal(t, "processing", records[1].Status)
}

func TestClient_FetchArticle(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/articles/42", r.URL.Path)
		envelopeOK(t, w, map[string]interface{}{
			"story_id":         42,
			"title_snapshot":   "answer",
			"content_markdown": "body",
			"status":           "done",
			"updated_at":       1700000000,
		})
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	record, err := c.FetchArticle(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), record.StoryID)
	assert.Equal(t, "body", record.ContentMarkdown)
}

func TestClient_FetchArticle_NotReady(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelopeOK(t, w, map[string]interface{}{
			"story_id": 42,
			"status":   "processing",
		})
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL}
	_, err := c.FetchArticle(context.Background(), 42)
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestClient_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	ts.Close() // refuse connections

	c := &Client{BaseURL: ts.URL}
	_, err := c.FetchStories(context.Background(), 0, 30)
	require.Error(t, err)
}
