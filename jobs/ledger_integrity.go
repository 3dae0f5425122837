package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/routecash/routecash/internal/ledger"
)

// LedgerVerifier replays one shop's ledger and reports a broken chain.
type LedgerVerifier interface {
	VerifyReplay(ctx context.Context, shopID string) error
}

// IntegrityScanJob replays shop ledgers and logs any entry whose stored
// balances disagree with the replay.
type IntegrityScanJob struct {
	Pool     *pgxpool.Pool
	Verifier LedgerVerifier
	Logger   *slog.Logger
}

// NewIntegrityScanJob initialises the integrity scan handler.
func NewIntegrityScanJob(pool *pgxpool.Pool, verifier LedgerVerifier, logger *slog.Logger) *IntegrityScanJob {
	return &IntegrityScanJob{Pool: pool, Verifier: verifier, Logger: logger}
}

// Handle executes the integrity scan.
func (j *IntegrityScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Verifier == nil {
		return errors.New("integrity scan: handler not configured")
	}
	var payload IntegrityScanPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	logger := j.logger()
	start := time.Now()

	shopIDs := []string{payload.ShopID}
	if payload.ShopID == "" {
		ids, err := j.shopIDs(ctx)
		if err != nil {
			logger.Error("list shops with ledgers", slog.Any("error", err))
			return err
		}
		shopIDs = ids
	}

	broken := 0
	for _, shopID := range shopIDs {
		if err := j.Verifier.VerifyReplay(ctx, shopID); err != nil {
			broken++
			logger.Error("ledger chain broken",
				slog.String("shopId", shopID),
				slog.Any("error", err))
		}
	}

	logger.Info("completed integrity scan",
		slog.Int("shops", len(shopIDs)),
		slog.Int("broken", broken),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// shopIDs lists every shop that has at least one ledger entry.
func (j *IntegrityScanJob) shopIDs(ctx context.Context) ([]string, error) {
	if j.Pool == nil {
		return nil, errors.New("integrity scan: pool not configured")
	}
	rows, err := j.Pool.Query(ctx,
		`SELECT DISTINCT doc->>'shopId' FROM documents WHERE collection = $1 AND doc->>'shopId' IS NOT NULL`,
		ledger.Collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (j *IntegrityScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskLedgerIntegrity))
	}
	return slog.Default().With(slog.String("job", TaskLedgerIntegrity))
}
