package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"news_reader/internal/domain"
	"news_reader/internal/service/mocks"
	"news_reader/internal/storage"
	"news_reader/internal/storage/memory"
)

type ArticleRepositoryTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source *mocks.MockSource
	store  *mocks.MockArticleStore

	repo   *ArticleRepository
	logger *slog.Logger
}

func (s *ArticleRepositoryTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.store = mocks.NewMockArticleStore(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.repo = NewArticleRepository(s.source, s.store, "", s.logger)
}

func (s *ArticleRepositoryTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestArticleRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(ArticleRepositoryTestSuite))
}

func ids(articles []domain.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.ID)
	}
	return out
}

func (s *ArticleRepositoryTestSuite) TestFetch_UsesDefaultQuery() {
	ctx := context.Background()
	hits := articlesWithIDs("1", "2")

	s.source.EXPECT().FetchArticles(ctx, domain.DefaultTopic).Return(hits, nil)
	s.store.EXPECT().SaveArticles(ctx, hits).Return(nil)

	s.Require().NoError(s.repo.Fetch(ctx, ""))
	s.Equal([]string{"1", "2"}, ids(s.repo.Articles()))
}

func (s *ArticleRepositoryTestSuite) TestFetch_FailureFallsBackToCache() {
	ctx := context.Background()
	sourceErr := errors.New("fetch articles: unexpected status: 503")

	s.source.EXPECT().FetchArticles(ctx, "golang").Return(nil, sourceErr)
	s.store.EXPECT().GetArticles(ctx).Return(articlesWithIDs("7", "8"))

	err := s.repo.Fetch(ctx, "golang")

	s.ErrorIs(err, sourceErr)
	s.Equal("fetch articles: unexpected status: 503", err.Error())
	s.Equal([]string{"7", "8"}, ids(s.repo.Articles()))
}

func (s *ArticleRepositoryTestSuite) TestFetch_FailureWithEmptyCacheKeepsMemory() {
	ctx := context.Background()

	s.source.EXPECT().FetchArticles(ctx, "mobile").Return(articlesWithIDs("1"), nil)
	s.store.EXPECT().SaveArticles(ctx, gomock.Any()).Return(nil)
	s.Require().NoError(s.repo.Fetch(ctx, "mobile"))

	s.source.EXPECT().FetchArticles(ctx, "mobile").Return(nil, errors.New("offline"))
	s.store.EXPECT().GetArticles(ctx).Return(nil)

	s.Error(s.repo.Fetch(ctx, "mobile"))
	s.Equal([]string{"1"}, ids(s.repo.Articles()))
}

func (s *ArticleRepositoryTestSuite) TestFetch_PersistFailure() {
	ctx := context.Background()
	writeErr := errors.New("disk full")

	s.source.EXPECT().FetchArticles(ctx, "mobile").Return(articlesWithIDs("1", "2"), nil)
	s.store.EXPECT().SaveArticles(ctx, gomock.Any()).Return(writeErr)
	s.store.EXPECT().GetArticles(ctx).Return(articlesWithIDs("5"))

	err := s.repo.Fetch(ctx, "mobile")

	s.ErrorIs(err, writeErr)
	s.Equal([]string{"5"}, ids(s.repo.Articles()))
}

func (s *ArticleRepositoryTestSuite) TestToggleFavorite_IsInvolution() {
	ctx := context.Background()

	s.store.EXPECT().SaveArticleStatus(ctx, "42", domain.ArticleStatus{IsFavorite: true}).Return(nil)
	s.store.EXPECT().SaveArticleStatus(ctx, "42", domain.ArticleStatus{}).Return(nil)

	status, err := s.repo.ToggleFavorite(ctx, "42")
	s.Require().NoError(err)
	s.True(status.IsFavorite)

	status, err = s.repo.ToggleFavorite(ctx, "42")
	s.Require().NoError(err)
	s.False(status.IsFavorite)
	s.Equal(domain.ArticleStatus{}, s.repo.Status("42"))
}

func (s *ArticleRepositoryTestSuite) TestDeleteAndRestore() {
	ctx := context.Background()

	s.store.EXPECT().SaveArticleStatus(ctx, "1", domain.ArticleStatus{IsDeleted: true}).Return(nil).Times(2)
	s.store.EXPECT().SaveArticleStatus(ctx, "1", domain.ArticleStatus{}).Return(nil)

	_, err := s.repo.MarkDeleted(ctx, "1")
	s.Require().NoError(err)
	_, err = s.repo.MarkDeleted(ctx, "1")
	s.Require().NoError(err)
	s.True(s.repo.Status("1").IsDeleted)

	_, err = s.repo.Restore(ctx, "1")
	s.Require().NoError(err)
	s.False(s.repo.Status("1").IsDeleted)
}

func (s *ArticleRepositoryTestSuite) TestUpdateStatus_PersistFailureLeavesMemory() {
	ctx := context.Background()

	s.store.EXPECT().SaveArticleStatus(ctx, "3", gomock.Any()).Return(errors.New("read-only"))

	status, err := s.repo.ToggleFavorite(ctx, "3")

	s.Error(err)
	s.Contains(err.Error(), "update status of 3")
	s.False(status.IsFavorite)
	s.False(s.repo.Status("3").IsFavorite)
}

func (s *ArticleRepositoryTestSuite) TestFind() {
	ctx := context.Background()

	s.store.EXPECT().GetArticles(gomock.Any()).Return(articlesWithIDs("1", "2"))
	s.store.EXPECT().GetArticleStatuses(gomock.Any()).Return(domain.StatusMap{})
	s.repo.LoadFromStorage(ctx)

	a, ok := s.repo.Find("2")
	s.True(ok)
	s.Equal("2", a.ID)

	_, ok = s.repo.Find("missing")
	s.False(ok)
}

// Articles 1, 2 and 3 where 2 is both favorite and deleted.
func (s *ArticleRepositoryTestSuite) TestViews_WithPersistedStatuses() {
	ctx := context.Background()
	kv := memory.New()
	store := storage.New(kv, s.logger)

	s.Require().NoError(store.SaveArticles(ctx, articlesWithIDs("1", "2", "3")))
	s.Require().NoError(store.SaveArticleStatus(ctx, "2", domain.ArticleStatus{IsFavorite: true, IsDeleted: true}))

	repo := NewArticleRepository(s.source, store, "", s.logger)
	repo.LoadFromStorage(ctx)

	s.Equal([]string{"1", "3"}, ids(repo.VisibleArticles()))
	s.Empty(repo.FavoriteArticles())
	s.Equal([]string{"2"}, ids(repo.DeletedArticles()))
	s.Equal([]string{"1", "2", "3"}, ids(repo.Articles()))

	_, err := repo.Restore(ctx, "2")
	s.Require().NoError(err)

	s.Equal([]string{"1", "2", "3"}, ids(repo.VisibleArticles()))
	s.Equal([]string{"2"}, ids(repo.FavoriteArticles()))

	reloaded := NewArticleRepository(s.source, store, "", s.logger)
	reloaded.LoadFromStorage(ctx)
	s.Equal(domain.ArticleStatus{IsFavorite: true}, reloaded.Status("2"))

	_, ok := repo.LastFetch(ctx)
	s.True(ok)
}

func (s *ArticleRepositoryTestSuite) TestUnknownIDStatusIsZero() {
	s.Equal(domain.ArticleStatus{}, s.repo.Status("does-not-exist"))
	s.Empty(s.repo.Articles())
}
