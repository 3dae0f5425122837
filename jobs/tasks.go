package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskStoreSyncRetry retries documents stuck in the local cache.
	TaskStoreSyncRetry = "store:sync_retry"
	// TaskLedgerIntegrity replays shop ledgers and reports broken chains.
	TaskLedgerIntegrity = "ledger:integrity_scan"
)

// IntegrityScanPayload narrows the integrity scan to one shop when set.
type IntegrityScanPayload struct {
	ShopID string `json:"shopId,omitempty"`
}

// NewSyncRetryTask constructs the sync retry task.
func NewSyncRetryTask() *asynq.Task {
	return asynq.NewTask(TaskStoreSyncRetry, nil)
}

// NewIntegrityScanTask constructs the ledger integrity task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}
