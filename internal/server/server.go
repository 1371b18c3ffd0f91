package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/routegroup"

	"news_reader/internal/domain"
)

// Articles is the article repository as seen by the HTTP layer.
type Articles interface {
	Fetch(ctx context.Context, query string) error
	ToggleFavorite(ctx context.Context, id string) (domain.ArticleStatus, error)
	MarkDeleted(ctx context.Context, id string) (domain.ArticleStatus, error)
	Restore(ctx context.Context, id string) (domain.ArticleStatus, error)
	Status(id string) domain.ArticleStatus
	Find(id string) (domain.Article, bool)
	Articles() []domain.Article
	VisibleArticles() []domain.Article
	FavoriteArticles() []domain.Article
	DeletedArticles() []domain.Article
	LastFetch(ctx context.Context) (time.Time, bool)
}

type Preferences interface {
	Preferences() domain.Preferences
	TopicCatalog() []string
	EnableNotifications(ctx context.Context) (bool, error)
	DisableNotifications(ctx context.Context) error
	ToggleTopic(ctx context.Context, topic string) error
	AddTopic(ctx context.Context, topic string) error
	RemoveTopic(ctx context.Context, topic string) error
}

// Syncer runs one sync pass on demand.
type Syncer interface {
	RunNow(ctx context.Context) (*domain.SyncResult, error)
}

// Resetter wipes persisted state.
type Resetter interface {
	Reset(ctx context.Context) error
}

type Config struct {
	Listen  string
	Timeout time.Duration
	Version string
}

// Server exposes the article and preference operations over HTTP.
type Server struct {
	cfg      Config
	articles Articles
	prefs    Preferences
	syncer   Syncer
	resetter Resetter
	logger   *slog.Logger

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

func New(cfg Config, articles Articles, prefs Preferences, syncer Syncer, resetter Resetter, logger *slog.Logger) *Server {
	s := &Server{
		cfg:      cfg,
		articles: articles,
		prefs:    prefs,
		syncer:   syncer,
		resetter: resetter,
		logger:   logger.With("component", "server"),
		router:   routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Handler returns the configured router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is done and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("starting server", "listen", s.cfg.Listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         s.cfg.Listen,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Timeout,
		WriteTimeout: s.cfg.Timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown error", "error", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("news-reader", "news_reader", s.cfg.Version))
	s.router.Use(rest.Ping)
	s.router.Use(rest.Recoverer(logAdapter{s.logger}))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(64 * 1024))
}

func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /articles", s.listArticlesHandler)
		r.HandleFunc("GET /articles/{id}", s.getArticleHandler)
		r.HandleFunc("POST /articles/fetch", s.fetchHandler)
		r.HandleFunc("POST /articles/{id}/favorite", s.statusHandler(s.articles.ToggleFavorite))
		r.HandleFunc("POST /articles/{id}/delete", s.statusHandler(s.articles.MarkDeleted))
		r.HandleFunc("POST /articles/{id}/restore", s.statusHandler(s.articles.Restore))

		r.HandleFunc("GET /preferences", s.getPreferencesHandler)
		r.HandleFunc("PUT /preferences/notifications", s.notificationsHandler)
		r.HandleFunc("POST /preferences/topics", s.addTopicHandler)
		r.HandleFunc("DELETE /preferences/topics/{topic}", s.removeTopicHandler)
		r.HandleFunc("POST /preferences/topics/{topic}/toggle", s.toggleTopicHandler)
		r.HandleFunc("GET /topics", s.topicsHandler)

		r.HandleFunc("POST /sync", s.syncHandler)
		r.HandleFunc("DELETE /storage", s.resetHandler)
	})
}

// RenderJSON sends JSON response
func RenderJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("can't encode response to JSON", "error", err)
		}
	}
}

// RenderError sends error response as JSON
func RenderError(w http.ResponseWriter, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	RenderJSON(w, code, rest.JSON{"error": errMsg})
}

type logAdapter struct {
	logger *slog.Logger
}

func (l logAdapter) Logf(format string, args ...any) {
	l.logger.Error(fmt.Sprintf(format, args...))
}
