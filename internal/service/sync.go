package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"news_reader/internal/domain"
)

// SyncService looks for articles that are not cached yet across the
// subscribed topics and raises at most one notification per run.
type SyncService struct {
	source   Source
	articles ArticleStore
	prefs    PreferenceStore
	notifier Notifier
	logger   *slog.Logger
}

func NewSyncService(
	source Source,
	articles ArticleStore,
	prefs PreferenceStore,
	notifier Notifier,
	logger *slog.Logger,
) *SyncService {
	return &SyncService{
		source:   source,
		articles: articles,
		prefs:    prefs,
		notifier: notifier,
		logger:   logger.With("component", "sync"),
	}
}

// Sync runs one reconciliation pass. A source error for any topic fails the
// whole run and nothing is written.
func (s *SyncService) Sync(ctx context.Context) (*domain.SyncResult, error) {
	startTime := time.Now()
	result := &domain.SyncResult{Status: domain.SyncNoData}

	prefs := s.prefs.GetPreferences(ctx)
	if !prefs.NotificationsEnabled {
		s.logger.Debug("notifications disabled, skipping sync")
		result.Duration = time.Since(startTime)
		return result, nil
	}

	s.logger.Info("starting sync", "topics", prefs.SelectedTopics)

	cached := s.articles.GetArticles(ctx)
	known := make(map[string]struct{}, len(cached))
	for _, a := range cached {
		known[a.ID] = struct{}{}
	}

	var fresh []domain.Article
	for _, topic := range prefs.SelectedTopics {
		hits, err := s.source.FetchArticles(ctx, topic)
		if err != nil {
			result.Status = domain.SyncFailed
			result.Duration = time.Since(startTime)
			return result, fmt.Errorf("fetch topic %q: %w", topic, err)
		}

		result.Topics++
		result.Fetched += len(hits)

		for _, a := range hits {
			if _, ok := known[a.ID]; ok {
				continue
			}
			// an id seen under an earlier topic counts once
			known[a.ID] = struct{}{}
			fresh = append(fresh, a)
		}
	}

	result.New = len(fresh)
	if len(fresh) == 0 {
		result.Duration = time.Since(startTime)
		s.logger.Info("no new articles found", "fetched", result.Fetched)
		return result, nil
	}

	combined := make([]domain.Article, 0, len(fresh)+len(cached))
	combined = append(combined, fresh...)
	combined = append(combined, cached...)

	if err := s.articles.SaveArticles(ctx, combined); err != nil {
		result.Status = domain.SyncFailed
		result.Duration = time.Since(startTime)
		return result, fmt.Errorf("save articles: %w", err)
	}

	result.Status = domain.SyncNewData
	result.NotificationID = s.notify(ctx, fresh)
	result.Duration = time.Since(startTime)

	s.logger.Info("sync completed",
		"topics", result.Topics,
		"fetched", result.Fetched,
		"new", result.New,
		"notification_id", result.NotificationID,
		"duration", result.Duration,
	)

	return result, nil
}

func (s *SyncService) notify(ctx context.Context, fresh []domain.Article) string {
	if s.notifier == nil {
		return ""
	}

	n := domain.NewArticlesNotification(len(fresh))
	if len(fresh) == 1 {
		n = domain.NewArticleNotification(fresh[0])
	}

	id := s.notifier.Schedule(ctx, n)
	if id == "" {
		s.logger.Warn("notification was not delivered", "new", len(fresh))
	}
	return id
}
