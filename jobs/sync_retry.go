package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/routecash/routecash/internal/store"
)

// SyncRetryJob pushes documents stuck in the local cache to the remote store.
type SyncRetryJob struct {
	Store  *store.DocumentStore
	Logger *slog.Logger
}

// NewSyncRetryJob initialises the sync retry handler.
func NewSyncRetryJob(s *store.DocumentStore, logger *slog.Logger) *SyncRetryJob {
	return &SyncRetryJob{Store: s, Logger: logger}
}

// Handle executes one reconcile pass.
func (j *SyncRetryJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Store == nil {
		return errors.New("sync retry: handler not configured")
	}
	logger := j.logger()
	start := time.Now()
	synced, remaining, err := j.Store.Reconcile(ctx)
	if err != nil {
		logger.Error("reconcile failed", slog.Any("error", err))
		return err
	}
	logger.Info("reconcile pass completed",
		slog.Int("synced", synced),
		slog.Int("remaining", remaining),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *SyncRetryJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskStoreSyncRetry))
	}
	return slog.Default().With(slog.String("job", TaskStoreSyncRetry))
}
