package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/rest"

	"news_reader/internal/domain"
	"news_reader/internal/service"
)

// ArticleView is an article with its derived fields and local status.
type ArticleView struct {
	domain.Article
	DisplayTitle  string               `json:"displayTitle"`
	NavigationURL string               `json:"navigationUrl"`
	Body          string               `json:"body,omitempty"`
	Status        domain.ArticleStatus `json:"status"`
}

type articlesResponse struct {
	Articles  []ArticleView `json:"articles"`
	LastFetch *time.Time    `json:"lastFetch,omitempty"`
	Error     string        `json:"error,omitempty"`
}

func (s *Server) view(a domain.Article) ArticleView {
	return ArticleView{
		Article:       a,
		DisplayTitle:  a.DisplayTitle(),
		NavigationURL: a.NavigationURL(),
		Body:          a.PlainBody(),
		Status:        s.articles.Status(a.ID),
	}
}

func (s *Server) articlesResponse(ctx context.Context, articles []domain.Article) articlesResponse {
	resp := articlesResponse{Articles: make([]ArticleView, 0, len(articles))}
	for _, a := range articles {
		resp.Articles = append(resp.Articles, s.view(a))
	}
	if ts, ok := s.articles.LastFetch(ctx); ok {
		resp.LastFetch = &ts
	}
	return resp
}

func (s *Server) listArticlesHandler(w http.ResponseWriter, r *http.Request) {
	var articles []domain.Article
	switch filter := r.URL.Query().Get("filter"); filter {
	case "", "visible":
		articles = s.articles.VisibleArticles()
	case "favorites":
		articles = s.articles.FavoriteArticles()
	case "deleted":
		articles = s.articles.DeletedArticles()
	case "all":
		articles = s.articles.Articles()
	default:
		RenderError(w, fmt.Errorf("unknown filter %q", filter), http.StatusBadRequest)
		return
	}

	RenderJSON(w, http.StatusOK, s.articlesResponse(r.Context(), articles))
}

func (s *Server) getArticleHandler(w http.ResponseWriter, r *http.Request) {
	a, ok := s.articles.Find(r.PathValue("id"))
	if !ok {
		RenderError(w, errors.New("article not found"), http.StatusNotFound)
		return
	}
	RenderJSON(w, http.StatusOK, s.view(a))
}

// fetchHandler answers 200 with whatever list is loaded; a failed fetch is
// reported next to the fallback list.
func (s *Server) fetchHandler(w http.ResponseWriter, r *http.Request) {
	err := s.articles.Fetch(r.Context(), r.URL.Query().Get("query"))

	resp := s.articlesResponse(r.Context(), s.articles.VisibleArticles())
	if err != nil {
		s.logger.Warn("fetch failed", "error", err)
		resp.Error = err.Error()
	}
	RenderJSON(w, http.StatusOK, resp)
}

type statusUpdate func(ctx context.Context, id string) (domain.ArticleStatus, error)

func (s *Server) statusHandler(update statusUpdate) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		status, err := update(r.Context(), id)
		if err != nil {
			s.logger.Error("failed to update article status", "id", id, "error", err)
			RenderError(w, err, http.StatusInternalServerError)
			return
		}
		RenderJSON(w, http.StatusOK, rest.JSON{"id": id, "status": status})
	}
}

func (s *Server) getPreferencesHandler(w http.ResponseWriter, _ *http.Request) {
	RenderJSON(w, http.StatusOK, s.prefs.Preferences())
}

func (s *Server) topicsHandler(w http.ResponseWriter, _ *http.Request) {
	prefs := s.prefs.Preferences()
	RenderJSON(w, http.StatusOK, rest.JSON{
		"topics":   s.prefs.TopicCatalog(),
		"selected": prefs.SelectedTopics,
	})
}

func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}

	if !req.Enabled {
		if err := s.prefs.DisableNotifications(r.Context()); err != nil {
			RenderError(w, err, http.StatusInternalServerError)
			return
		}
		RenderJSON(w, http.StatusOK, s.prefs.Preferences())
		return
	}

	granted, err := s.prefs.EnableNotifications(r.Context())
	if err != nil {
		RenderError(w, err, http.StatusInternalServerError)
		return
	}
	if !granted {
		RenderError(w, errors.New("notification permission denied"), http.StatusForbidden)
		return
	}
	RenderJSON(w, http.StatusOK, s.prefs.Preferences())
}

func (s *Server) addTopicHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic string `json:"topic"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, fmt.Errorf("decode request: %w", err), http.StatusBadRequest)
		return
	}
	s.topicResult(w, s.prefs.AddTopic(r.Context(), req.Topic))
}

func (s *Server) removeTopicHandler(w http.ResponseWriter, r *http.Request) {
	s.topicResult(w, s.prefs.RemoveTopic(r.Context(), r.PathValue("topic")))
}

func (s *Server) toggleTopicHandler(w http.ResponseWriter, r *http.Request) {
	s.topicResult(w, s.prefs.ToggleTopic(r.Context(), r.PathValue("topic")))
}

func (s *Server) topicResult(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyTopic):
		RenderError(w, err, http.StatusBadRequest)
	case err != nil:
		RenderError(w, err, http.StatusInternalServerError)
	default:
		RenderJSON(w, http.StatusOK, s.prefs.Preferences())
	}
}

func (s *Server) syncHandler(w http.ResponseWriter, r *http.Request) {
	result, err := s.syncer.RunNow(r.Context())
	if err != nil {
		s.logger.Warn("manual sync failed", "error", err)
		RenderJSON(w, http.StatusBadGateway, rest.JSON{"result": result, "error": err.Error()})
		return
	}
	RenderJSON(w, http.StatusOK, result)
}

func (s *Server) resetHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.resetter.Reset(r.Context()); err != nil {
		RenderError(w, err, http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
