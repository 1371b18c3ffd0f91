package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"news_reader/internal/domain"
)

// Keys owned by the application. ClearAll removes exactly these.
const (
	KeyArticles        = "@articles"
	KeyArticleStatuses = "@article_states"
	KeyLastFetch       = "@last_fetch"
	KeyPreferences     = "@user_preferences"
)

var allKeys = []string{KeyArticles, KeyArticleStatuses, KeyLastFetch, KeyPreferences}

// ErrNotFound is returned by KV.Get for a missing key.
var ErrNotFound = errors.New("key not found")

// KV is a string-keyed store of opaque values. Writes to a single key are
// last-writer-wins.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// SetMany writes all entries, atomically where the backend supports it.
	SetMany(ctx context.Context, entries map[string][]byte) error
	Remove(ctx context.Context, keys ...string) error
	Close() error
}

// Store persists articles, statuses and preferences as JSON values in a KV.
// Reads never fail: missing or unreadable values come back as empty/default.
// Writes return their errors.
type Store struct {
	kv     KV
	logger *slog.Logger
	now    func() time.Time

	statusMu sync.Mutex
}

func New(kv KV, logger *slog.Logger) *Store {
	return &Store{
		kv:     kv,
		logger: logger.With("component", "storage"),
		now:    time.Now,
	}
}

// SaveArticles replaces the persisted article list and records the fetch time.
func (s *Store) SaveArticles(ctx context.Context, articles []domain.Article) error {
	if articles == nil {
		articles = []domain.Article{}
	}

	data, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}
	stamp, err := json.Marshal(s.now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("marshal last fetch: %w", err)
	}

	if err := s.kv.SetMany(ctx, map[string][]byte{
		KeyArticles:  data,
		KeyLastFetch: stamp,
	}); err != nil {
		return fmt.Errorf("save articles: %w", err)
	}
	return nil
}

func (s *Store) GetArticles(ctx context.Context) []domain.Article {
	var articles []domain.Article
	if !s.read(ctx, KeyArticles, &articles) || articles == nil {
		return []domain.Article{}
	}
	return articles
}

// GetLastFetchTime reports when articles were last saved.
func (s *Store) GetLastFetchTime(ctx context.Context) (time.Time, bool) {
	var stamp string
	if !s.read(ctx, KeyLastFetch, &stamp) {
		return time.Time{}, false
	}

	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		s.logger.Warn("failed to parse last fetch time", "value", stamp, "error", err)
		return time.Time{}, false
	}
	return t, true
}

func (s *Store) GetArticleStatuses(ctx context.Context) domain.StatusMap {
	var statuses domain.StatusMap
	if !s.read(ctx, KeyArticleStatuses, &statuses) || statuses == nil {
		return domain.StatusMap{}
	}
	return statuses
}

func (s *Store) GetArticleStatus(ctx context.Context, id string) (domain.ArticleStatus, bool) {
	status, ok := s.GetArticleStatuses(ctx)[id]
	return status, ok
}

// SaveArticleStatus sets one entry of the persisted status map. An unreadable
// map aborts the write instead of being overwritten.
func (s *Store) SaveArticleStatus(ctx context.Context, id string, status domain.ArticleStatus) error {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()

	statuses := domain.StatusMap{}
	data, err := s.kv.Get(ctx, KeyArticleStatuses)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return fmt.Errorf("load article states: %w", err)
	default:
		if err := json.Unmarshal(data, &statuses); err != nil {
			return fmt.Errorf("decode article states: %w", err)
		}
	}

	statuses = statuses.With(id, status)

	data, err = json.Marshal(statuses)
	if err != nil {
		return fmt.Errorf("marshal article states: %w", err)
	}
	if err := s.kv.Set(ctx, KeyArticleStatuses, data); err != nil {
		return fmt.Errorf("save article state: %w", err)
	}
	return nil
}

// GetPreferences returns defaults when nothing is stored. Defaults are not persisted.
func (s *Store) GetPreferences(ctx context.Context) domain.Preferences {
	var prefs domain.Preferences
	if !s.read(ctx, KeyPreferences, &prefs) {
		return domain.DefaultPreferences()
	}
	if len(prefs.SelectedTopics) == 0 {
		prefs.SelectedTopics = domain.DefaultPreferences().SelectedTopics
	}
	return prefs
}

func (s *Store) SavePreferences(ctx context.Context, prefs domain.Preferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := s.kv.Set(ctx, KeyPreferences, data); err != nil {
		return fmt.Errorf("save preferences: %w", err)
	}
	return nil
}

// ClearAll removes the application's keys and nothing else.
func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.kv.Remove(ctx, allKeys...); err != nil {
		return fmt.Errorf("clear storage: %w", err)
	}
	return nil
}

func (s *Store) read(ctx context.Context, key string, dst any) bool {
	data, err := s.kv.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false
	}
	if err != nil {
		s.logger.Warn("failed to read key", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		s.logger.Warn("failed to decode key", "key", key, "error", err)
		return false
	}
	return true
}
