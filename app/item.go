package app

// Story is one feed entry from the translated hacker news backend.
type Story struct {
	//ID is story's unique id, stable and immutable.
	ID int64 `json:"id"`
	//By is the username of the story's author.
	By string `json:"by"`
	//Title of the story.
	Title string `json:"title"`
	//Score of the story.
	Score int `json:"score"`
	//Time is the origin timestamp in unix seconds.
	Time int64 `json:"time"`
	//URL of the story.
	URL string `json:"url,omitempty"`
	//Descendants is the comment count.
	Descendants *int `json:"descendants,omitempty"`
	//TranslatedTitle is the title after translation, when available.
	TranslatedTitle string `json:"translatedTitle,omitempty"`
	//IsTranslating denotes a title translation in flight.
	IsTranslating bool `json:"isTranslating"`
	//HasTranslatedArticle denotes the backend confirmed article content exists.
	HasTranslatedArticle bool `json:"hasTranslatedArticle"`
	//IsArticleTranslating denotes an article translation in flight.
	IsArticleTranslating bool `json:"isArticleTranslating"`
	//IsNew denotes the story appeared via push since last view.
	IsNew bool `json:"isNew"`
	//IsRead denotes the user opened the story.
	IsRead bool `json:"isRead"`
	//HNRank is the 0-based position in the upstream ranking. Nil when the
	//backend did not report one; zero is a valid rank.
	HNRank *int `json:"hnRank,omitempty"`

	//Domain is the domain from where the story is delivered.
	Domain string `json:"domain,omitempty"`
	//EncryptedURL is the URL encrypted using key from config.
	EncryptedURL string `json:"encryptedURL,omitempty"`
}

// DisplayTitle prefers the translated title when the backend produced one.
func (s *Story) DisplayTitle() string {
	if s.TranslatedTitle != "" {
		return s.TranslatedTitle
	}
	return s.Title
}

// CachedArticle is a translated article body kept for instant reading.
type CachedArticle struct {
	//ID is the story id the article belongs to.
	ID int64 `json:"id"`
	//Title is the title snapshot taken at translation time.
	Title string `json:"title"`
	//Content is the translated article body, markdown.
	Content string `json:"content"`
	//OriginalURL is the source article link.
	OriginalURL string `json:"originalUrl,omitempty"`
	//Timestamp is the last-updated instant, unix seconds.
	Timestamp int64 `json:"timestamp"`
	//TLDR is a short summary of the content.
	TLDR string `json:"tldr,omitempty"`
}

// Notification is a transient, dismissible toast for the presentation layer.
type Notification struct {
	//StoryID the notification is about, when it concerns one story.
	StoryID int64 `json:"storyId,omitempty"`
	//Title of the concerned story.
	Title string `json:"title,omitempty"`
	//Message is the user facing text.
	Message string `json:"message"`
	//IsError marks error toasts.
	IsError bool `json:"isError"`
}
