package hn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-pkgz/repeater/v2"

	"news_reader/internal/domain"
)

const SourceID = "hn"

// Config holds search source configuration.
type Config struct {
	BaseURL        string
	DefaultQuery   string
	HitsPerPage    int
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// Source queries the Algolia-backed Hacker News search.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	defaultQuery   string
	hitsPerPage    int
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	logger         *slog.Logger
}

// New creates a new search source.
func New(cfg Config, logger *slog.Logger) *Source {
	if cfg.DefaultQuery == "" {
		cfg.DefaultQuery = domain.DefaultTopic
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        cfg.BaseURL,
		defaultQuery:   cfg.DefaultQuery,
		hitsPerPage:    cfg.HitsPerPage,
		maxAttempts:    cfg.MaxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		logger:         logger.With("source", SourceID),
	}
}

// FetchArticles returns the first page of hits for query.
func (s *Source) FetchArticles(ctx context.Context, query string) ([]domain.Article, error) {
	res, err := s.Search(ctx, query, 0)
	if err != nil {
		return nil, err
	}
	return res.Hits, nil
}

// Search fetches one page of hits. An empty query uses the default query.
func (s *Source) Search(ctx context.Context, query string, page int) (*domain.SearchResult, error) {
	if query == "" {
		query = s.defaultQuery
	}

	resp, err := s.fetchPage(ctx, query, page)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}

	s.logger.Debug("fetched page",
		"query", query,
		"page", resp.Page,
		"hits", len(resp.Hits),
		"total", resp.NbHits,
	)

	return &domain.SearchResult{
		Hits:        s.transform(resp.Hits),
		NbHits:      resp.NbHits,
		Page:        resp.Page,
		NbPages:     resp.NbPages,
		HitsPerPage: resp.HitsPerPage,
	}, nil
}

func (s *Source) fetchPage(ctx context.Context, query string, page int) (*APIResponse, error) {
	params := url.Values{}
	params.Set("query", query)
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if s.hitsPerPage > 0 {
		params.Set("hitsPerPage", strconv.Itoa(s.hitsPerPage))
	}
	reqURL := s.baseURL + "?" + params.Encode()

	var resp *APIResponse
	var lastErr error
	attempt := 0
	retrier := repeater.NewBackoff(s.maxAttempts, s.initialBackoff, repeater.WithMaxDelay(s.maxBackoff))

	err := retrier.Do(ctx, func() error {
		attempt++
		r, err := s.doRequest(ctx, reqURL)
		if err != nil {
			lastErr = err
			if attempt < s.maxAttempts {
				s.logger.Warn("request failed, retrying",
					"attempt", attempt,
					"error", err,
				)
			}
			return err
		}
		resp = r
		return nil
	})
	if err == nil && resp != nil {
		return resp, nil
	}

	// report the request failure itself rather than the retrier's summary
	if lastErr == nil {
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no response")
	}
	if attempt > 1 {
		return nil, fmt.Errorf("after %d attempts: %w", attempt, lastErr)
	}
	return nil, lastErr
}

func (s *Source) doRequest(ctx context.Context, reqURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsReader/1.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &apiResp, nil
}

func (s *Source) transform(hits []Hit) []domain.Article {
	articles := make([]domain.Article, 0, len(hits))

	for _, h := range hits {
		if h.ObjectID == "" {
			s.logger.Warn("skipping hit without id", "title", h.Title)
			continue
		}

		articles = append(articles, domain.Article{
			ID:             h.ObjectID,
			Title:          h.Title,
			Author:         h.Author,
			CreatedAt:      h.CreatedAt,
			URL:            h.URL,
			StoryText:      h.StoryText,
			AlternateTitle: h.StoryTitle,
			AlternateURL:   h.StoryURL,
		})
	}

	return articles
}
