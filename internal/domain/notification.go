package domain

import "fmt"

// Notification is a local alert about new articles.
type Notification struct {
	Title string           `json:"title"`
	Body  string           `json:"body"`
	Data  NotificationData `json:"data"`
}

// NotificationData is empty for count-only notifications.
type NotificationData struct {
	ArticleID string `json:"articleId,omitempty"`
	URL       string `json:"url,omitempty"`
}

func NewArticleNotification(a Article) Notification {
	return Notification{
		Title: "New Article Available",
		Body:  a.DisplayTitle(),
		Data: NotificationData{
			ArticleID: a.ID,
			URL:       a.NavigationURL(),
		},
	}
}

func NewArticlesNotification(count int) Notification {
	return Notification{
		Title: "New Articles Available",
		Body:  fmt.Sprintf("%d new articles matching your interests", count),
	}
}
