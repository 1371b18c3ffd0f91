package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"news_reader/internal/domain"
)

type Source interface {
	FetchArticles(ctx context.Context, query string) ([]domain.Article, error)
}

type ArticleStore interface {
	SaveArticles(ctx context.Context, articles []domain.Article) error
	GetArticles(ctx context.Context) []domain.Article
	GetLastFetchTime(ctx context.Context) (time.Time, bool)
	GetArticleStatuses(ctx context.Context) domain.StatusMap
	SaveArticleStatus(ctx context.Context, id string, status domain.ArticleStatus) error
}

type PreferenceStore interface {
	GetPreferences(ctx context.Context) domain.Preferences
	SavePreferences(ctx context.Context, prefs domain.Preferences) error
}

// Notifier delivers local notifications. Schedule returns an empty id when
// nothing was delivered and never fails.
type Notifier interface {
	Schedule(ctx context.Context, n domain.Notification) string
	RequestPermission(ctx context.Context) bool
	CheckPermission(ctx context.Context) bool
	CancelAll(ctx context.Context)
}

// BackgroundSync switches the periodic sync job on and off.
type BackgroundSync interface {
	Register(ctx context.Context) error
	Unregister(ctx context.Context) error
	IsRegistered() bool
}
