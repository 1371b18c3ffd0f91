package domain

import (
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
)

// ItemURLPrefix is the source site's item page, used when a hit carries no link of its own.
const ItemURLPrefix = "https://news.ycombinator.com/item?id="

var textPolicy = bluemonday.StrictPolicy()

// Article is a single search hit. Field names follow the remote source's JSON.
type Article struct {
	ID             string    `json:"objectID"`
	Title          string    `json:"title"`
	Author         string    `json:"author"`
	CreatedAt      time.Time `json:"created_at"`
	URL            *string   `json:"url"`
	StoryText      *string   `json:"story_text"`
	AlternateTitle *string   `json:"story_title"`
	AlternateURL   *string   `json:"story_url"`
}

// DisplayTitle prefers the story title over the hit title.
func (a Article) DisplayTitle() string {
	if a.AlternateTitle != nil && *a.AlternateTitle != "" {
		return *a.AlternateTitle
	}
	return a.Title
}

// NavigationURL never returns an empty string.
func (a Article) NavigationURL() string {
	if a.AlternateURL != nil && *a.AlternateURL != "" {
		return *a.AlternateURL
	}
	if a.URL != nil && *a.URL != "" {
		return *a.URL
	}
	return ItemURLPrefix + a.ID
}

// PlainBody returns story_text with markup removed.
func (a Article) PlainBody() string {
	if a.StoryText == nil {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(*a.StoryText)))
}

// ArticleStatus holds the local-only flags of an article.
type ArticleStatus struct {
	IsFavorite bool `json:"isFavorite"`
	IsDeleted  bool `json:"isDeleted"`
}

// StatusMap maps article ids to statuses. Missing ids have the zero status.
type StatusMap map[string]ArticleStatus

func (m StatusMap) Get(id string) ArticleStatus {
	return m[id]
}

// With returns a copy of m with id set to status.
func (m StatusMap) With(id string, status ArticleStatus) StatusMap {
	next := make(StatusMap, len(m)+1)
	for k, v := range m {
		next[k] = v
	}
	next[id] = status
	return next
}

// SearchResult is one page of the remote search.
type SearchResult struct {
	Hits        []Article
	NbHits      int
	Page        int
	NbPages     int
	HitsPerPage int
}
