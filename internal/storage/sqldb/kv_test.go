package sqldb

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"

	"news_reader/internal/storage"
)

// kvSuite runs the same checks against any database backend.
type kvSuite struct {
	suite.Suite
	ctx context.Context
	kv  *KV
}

func (s *kvSuite) SetupTest() {
	_, err := s.kv.db.ExecContext(s.ctx, "DELETE FROM kv_store")
	s.Require().NoError(err)
}

func (s *kvSuite) TestGet_Missing() {
	_, err := s.kv.Get(s.ctx, "@nothing")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *kvSuite) TestSet_InsertAndOverwrite() {
	s.Require().NoError(s.kv.Set(s.ctx, "@articles", []byte(`[1]`)))
	s.Require().NoError(s.kv.Set(s.ctx, "@articles", []byte(`[1,2]`)))

	v, err := s.kv.Get(s.ctx, "@articles")
	s.NoError(err)
	s.Equal(`[1,2]`, string(v))

	var count int
	s.NoError(s.kv.db.GetContext(s.ctx, &count, "SELECT COUNT(*) FROM kv_store"))
	s.Equal(1, count)
}

func (s *kvSuite) TestSetMany_WritesAll() {
	err := s.kv.SetMany(s.ctx, map[string][]byte{
		"@articles":   []byte(`[]`),
		"@last_fetch": []byte(`"2025-01-01T00:00:00Z"`),
	})
	s.Require().NoError(err)

	v, err := s.kv.Get(s.ctx, "@last_fetch")
	s.NoError(err)
	s.Equal(`"2025-01-01T00:00:00Z"`, string(v))
}

func (s *kvSuite) TestTransaction_Rollback() {
	s.Require().NoError(s.kv.Set(s.ctx, "keep", []byte("1")))

	err := s.kv.tx.Do(s.ctx, func(ctx context.Context) error {
		if err := s.kv.Set(ctx, "keep", []byte("2")); err != nil {
			return err
		}
		if err := s.kv.Set(ctx, "new", []byte("3")); err != nil {
			return err
		}
		return errors.New("abort")
	})
	s.Error(err)

	v, err := s.kv.Get(s.ctx, "keep")
	s.NoError(err)
	s.Equal("1", string(v))

	_, err = s.kv.Get(s.ctx, "new")
	s.ErrorIs(err, storage.ErrNotFound)
}

func (s *kvSuite) TestRemove_OnlyNamedKeys() {
	for _, k := range []string{"a", "b", "other"} {
		s.Require().NoError(s.kv.Set(s.ctx, k, []byte("x")))
	}

	s.NoError(s.kv.Remove(s.ctx, "a", "b", "missing"))
	s.NoError(s.kv.Remove(s.ctx))

	_, err := s.kv.Get(s.ctx, "a")
	s.ErrorIs(err, storage.ErrNotFound)
	_, err = s.kv.Get(s.ctx, "b")
	s.ErrorIs(err, storage.ErrNotFound)
	v, err := s.kv.Get(s.ctx, "other")
	s.NoError(err)
	s.Equal("x", string(v))
}

type SQLiteSuite struct {
	kvSuite
}

func (s *SQLiteSuite) SetupSuite() {
	s.ctx = context.Background()
	kv, err := Open(s.ctx, "sqlite", ":memory:")
	s.Require().NoError(err)
	s.kv = kv
}

func (s *SQLiteSuite) TearDownSuite() {
	if s.kv != nil {
		s.kv.Close()
	}
}

func TestSQLiteSuite(t *testing.T) {
	suite.Run(t, new(SQLiteSuite))
}
