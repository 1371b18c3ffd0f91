package hn

import "time"

// APIResponse represents the search API response structure.
type APIResponse struct {
	Hits        []Hit `json:"hits"`
	NbHits      int   `json:"nbHits"`
	Page        int   `json:"page"`
	NbPages     int   `json:"nbPages"`
	HitsPerPage int   `json:"hitsPerPage"`
}

type Hit struct {
	ObjectID   string    `json:"objectID"`
	Title      string    `json:"title"`
	Author     string    `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	URL        *string   `json:"url"`
	StoryText  *string   `json:"story_text"`
	StoryTitle *string   `json:"story_title"`
	StoryURL   *string   `json:"story_url"`
}
