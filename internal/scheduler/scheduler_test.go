package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_reader/internal/domain"
)

type countingSyncer struct {
	calls atomic.Int32
	err   error
}

func (c *countingSyncer) Sync(ctx context.Context) (*domain.SyncResult, error) {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("sync without deadline")
	}
	if c.err != nil {
		return &domain.SyncResult{Status: domain.SyncFailed}, c.err
	}
	return &domain.SyncResult{Status: domain.SyncNoData}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestScheduler_RegisterUnregister(t *testing.T) {
	ctx := context.Background()
	s := NewScheduler(&countingSyncer{}, 15*time.Minute, time.Minute, testLogger())

	assert.False(t, s.IsRegistered())
	require.NoError(t, s.Register(ctx))
	require.NoError(t, s.Register(ctx))
	assert.True(t, s.IsRegistered())
	assert.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Unregister(ctx))
	assert.False(t, s.IsRegistered())
	assert.Empty(t, s.cron.Entries())
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Unregister(ctx))
}

func TestScheduler_InvalidInterval(t *testing.T) {
	s := NewScheduler(&countingSyncer{}, 0, time.Minute, testLogger())

	assert.ErrorIs(t, s.Register(context.Background()), ErrInvalidInterval)
	assert.False(t, s.IsRegistered())
}

func TestScheduler_RunNow(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, time.Minute, time.Minute, testLogger())

	result, err := s.RunNow(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.SyncNoData, result.Status)
	assert.Equal(t, int32(1), syncer.calls.Load())
}

func TestScheduler_StartRunsRegisteredJob(t *testing.T) {
	syncer := &countingSyncer{err: errors.New("offline")}
	s := NewScheduler(syncer, time.Second, time.Minute, testLogger())
	require.NoError(t, s.Register(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	assert.Eventually(t, func() bool { return syncer.calls.Load() >= 1 }, 5*time.Second, 50*time.Millisecond)
	assert.False(t, s.Next().IsZero())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_StartWithoutRegistration(t *testing.T) {
	syncer := &countingSyncer{}
	s := NewScheduler(syncer, time.Second, time.Minute, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()

	err := s.Start(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, syncer.calls.Load())
}
