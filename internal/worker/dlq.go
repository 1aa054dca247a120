package worker

// Jobs that exhaust their retries are moved to a dead-letter list per source
// queue (dlq:{queue}). The re-drive cron pushes them back a bounded number of
// times; after that they are parked in dlq:{queue}:agotados for manual inspection.

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // ISO 8601
	Attempts      int             `json:"attempts"`
	Redrives      int             `json:"redrives"`
}

func dlqKey(queue string) string { return DLQPrefix + queue }

func agotadosKey(queue string) string { return DLQPrefix + queue + ":agotados" }

// SendToDLQ pushes a failed job to the dead letter queue of queue.
func SendToDLQ(ctx context.Context, cola Cola, queue string, job Job, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
		Redrives:      job.Redrives,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	key := dlqKey(queue)
	if err := cola.LPush(ctx, key, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", key).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", attempts).
		Int("redrives", job.Redrives).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, cola Cola, queue string) (int64, error) {
	return cola.LLen(ctx, dlqKey(queue)).Result()
}
