package notifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"news_reader/internal/domain"
)

// Log writes notifications to the logger and keeps them until cancelled.
// Permission is always granted.
type Log struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending []domain.Notification
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With("component", "notifier", "driver", "log")}
}

func (l *Log) RequestPermission(context.Context) bool { return true }

func (l *Log) CheckPermission(context.Context) bool { return true }

func (l *Log) Schedule(_ context.Context, n domain.Notification) string {
	id := uuid.NewString()

	l.mu.Lock()
	l.pending = append(l.pending, n)
	l.mu.Unlock()

	l.logger.Info("notification",
		"id", id,
		"title", n.Title,
		"body", n.Body,
		"article_id", n.Data.ArticleID,
		"url", n.Data.URL,
	)
	return id
}

func (l *Log) CancelAll(context.Context) {
	l.mu.Lock()
	l.pending = nil
	l.mu.Unlock()
}

// Pending returns the notifications scheduled since the last CancelAll.
func (l *Log) Pending() []domain.Notification {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Notification, len(l.pending))
	copy(out, l.pending)
	return out
}

func (l *Log) Close() error { return nil }
