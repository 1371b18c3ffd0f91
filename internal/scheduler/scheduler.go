package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"news_reader/internal/domain"
)

// ErrInvalidInterval is returned by Register for a non-positive interval.
var ErrInvalidInterval = errors.New("sync interval must be positive")

// Syncer defines the interface for sync operations.
type Syncer interface {
	Sync(ctx context.Context) (*domain.SyncResult, error)
}

// Scheduler runs the sync job at a constant interval while registered.
type Scheduler struct {
	syncer   Syncer
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
	cron     *cron.Cron

	mu      sync.Mutex
	entry   cron.EntryID
	baseCtx context.Context
}

func NewScheduler(syncer Syncer, interval, timeout time.Duration, logger *slog.Logger) *Scheduler {
	logger = logger.With("component", "scheduler")
	cl := cronLogger{logger: logger}

	return &Scheduler{
		syncer:   syncer,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		baseCtx: context.Background(),
	}
}

// Register adds the periodic job. Registering twice keeps one job.
func (s *Scheduler) Register(ctx context.Context) error {
	if s.interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry != 0 {
		return nil
	}
	s.entry = s.cron.Schedule(cron.Every(s.interval), cron.FuncJob(s.runSync))

	s.logger.Info("background sync registered", "interval", s.interval)
	return nil
}

func (s *Scheduler) Unregister(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry == 0 {
		return nil
	}
	s.cron.Remove(s.entry)
	s.entry = 0

	s.logger.Info("background sync unregistered")
	return nil
}

func (s *Scheduler) IsRegistered() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entry != 0
}

// Next reports when the job runs next. It is zero before Start.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entry
	s.mu.Unlock()

	if id == 0 {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// RunNow runs one sync outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) (*domain.SyncResult, error) {
	syncCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.syncer.Sync(syncCtx)
}

// Start runs registered jobs until ctx is done, then waits for a running
// job to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	s.baseCtx = ctx
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", s.interval, "registered", s.IsRegistered())
	s.cron.Start()

	<-ctx.Done()

	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runSync() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()

	result, err := s.RunNow(ctx)
	if err != nil {
		s.logger.Error("sync failed", "error", err)
		return
	}
	s.logger.Debug("background sync finished", "status", result.Status, "new", result.New)
}

type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
