package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"news_reader/internal/domain"
)

// ArticleRepository owns the in-memory article list and the status map.
// Mutations persist before they become visible in memory.
type ArticleRepository struct {
	source       Source
	store        ArticleStore
	defaultQuery string
	logger       *slog.Logger

	mu       sync.RWMutex
	articles []domain.Article
	statuses domain.StatusMap
}

func NewArticleRepository(source Source, store ArticleStore, defaultQuery string, logger *slog.Logger) *ArticleRepository {
	if defaultQuery == "" {
		defaultQuery = domain.DefaultTopic
	}
	return &ArticleRepository{
		source:       source,
		store:        store,
		defaultQuery: defaultQuery,
		logger:       logger.With("component", "articles"),
		articles:     []domain.Article{},
		statuses:     domain.StatusMap{},
	}
}

// Fetch replaces the article list with the hits for query. On failure the
// last persisted list, if any, is adopted and the failure is returned.
func (r *ArticleRepository) Fetch(ctx context.Context, query string) error {
	if query == "" {
		query = r.defaultQuery
	}

	articles, err := r.source.FetchArticles(ctx, query)
	if err != nil {
		r.logger.Warn("fetch failed, falling back to cache", "query", query, "error", err)
		r.adoptCache(ctx)
		return err
	}
	if articles == nil {
		articles = []domain.Article{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.SaveArticles(ctx, articles); err != nil {
		r.logger.Error("failed to persist fetched articles", "error", err)
		if cached := r.store.GetArticles(ctx); len(cached) > 0 {
			r.articles = cached
		}
		return err
	}
	r.articles = articles

	r.logger.Info("fetched articles", "query", query, "count", len(articles))
	return nil
}

func (r *ArticleRepository) adoptCache(ctx context.Context) {
	cached := r.store.GetArticles(ctx)
	if len(cached) == 0 {
		return
	}

	r.mu.Lock()
	r.articles = cached
	r.mu.Unlock()
}

// LoadFromStorage adopts the persisted list and statuses unconditionally.
func (r *ArticleRepository) LoadFromStorage(ctx context.Context) {
	var (
		articles []domain.Article
		statuses domain.StatusMap
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		articles = r.store.GetArticles(gctx)
		return nil
	})
	g.Go(func() error {
		statuses = r.store.GetArticleStatuses(gctx)
		return nil
	})
	_ = g.Wait()

	if articles == nil {
		articles = []domain.Article{}
	}
	if statuses == nil {
		statuses = domain.StatusMap{}
	}

	r.mu.Lock()
	r.articles = articles
	r.statuses = statuses
	r.mu.Unlock()

	r.logger.Debug("loaded from storage", "articles", len(articles), "statuses", len(statuses))
}

// ToggleFavorite flips the favorite flag. id need not be loaded.
func (r *ArticleRepository) ToggleFavorite(ctx context.Context, id string) (domain.ArticleStatus, error) {
	return r.updateStatus(ctx, id, func(s *domain.ArticleStatus) { s.IsFavorite = !s.IsFavorite })
}

func (r *ArticleRepository) MarkDeleted(ctx context.Context, id string) (domain.ArticleStatus, error) {
	return r.updateStatus(ctx, id, func(s *domain.ArticleStatus) { s.IsDeleted = true })
}

func (r *ArticleRepository) Restore(ctx context.Context, id string) (domain.ArticleStatus, error) {
	return r.updateStatus(ctx, id, func(s *domain.ArticleStatus) { s.IsDeleted = false })
}

func (r *ArticleRepository) updateStatus(ctx context.Context, id string, mutate func(*domain.ArticleStatus)) (domain.ArticleStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.statuses.Get(id)
	next := current
	mutate(&next)

	if err := r.store.SaveArticleStatus(ctx, id, next); err != nil {
		return current, fmt.Errorf("update status of %s: %w", id, err)
	}
	r.statuses = r.statuses.With(id, next)

	return next, nil
}

func (r *ArticleRepository) Status(id string) domain.ArticleStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.statuses.Get(id)
}

// Find looks an article up in the loaded list.
func (r *ArticleRepository) Find(id string) (domain.Article, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := slices.IndexFunc(r.articles, func(a domain.Article) bool { return a.ID == id })
	if i < 0 {
		return domain.Article{}, false
	}
	return r.articles[i], true
}

// Articles returns every loaded article regardless of status.
func (r *ArticleRepository) Articles() []domain.Article {
	return r.filter(func(domain.ArticleStatus) bool { return true })
}

func (r *ArticleRepository) VisibleArticles() []domain.Article {
	return r.filter(func(s domain.ArticleStatus) bool { return !s.IsDeleted })
}

func (r *ArticleRepository) FavoriteArticles() []domain.Article {
	return r.filter(func(s domain.ArticleStatus) bool { return s.IsFavorite && !s.IsDeleted })
}

func (r *ArticleRepository) DeletedArticles() []domain.Article {
	return r.filter(func(s domain.ArticleStatus) bool { return s.IsDeleted })
}

// LastFetch reports when the persisted list was last written.
func (r *ArticleRepository) LastFetch(ctx context.Context) (time.Time, bool) {
	return r.store.GetLastFetchTime(ctx)
}

func (r *ArticleRepository) filter(keep func(domain.ArticleStatus) bool) []domain.Article {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Article, 0, len(r.articles))
	for _, a := range r.articles {
		if keep(r.statuses.Get(a.ID)) {
			out = append(out, a)
		}
	}
	return out
}
