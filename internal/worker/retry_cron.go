package worker

// Periodic re-drive of dead-lettered jobs. Each tick drains the entries present
// in every DLQ at that moment: jobs under the re-drive limit go back to their
// queue, the rest are parked.

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const redriveBatchSize = 100

// RedriveConfig holds all dependencies for the re-drive job.
type RedriveConfig struct {
	Cola        Cola
	Schedule    string // cron spec or @every descriptor
	MaxRedrives int
	Metrics     *metrics.Metrics
}

// StartDLQRedrive schedules the re-drive job and starts the scheduler. Stop
// the returned cron on shutdown.
func StartDLQRedrive(ctx context.Context, cfg RedriveConfig) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(cfg.Schedule, func() {
		if ctx.Err() != nil {
			return
		}
		for _, q := range Queues {
			RedriveQueue(ctx, cfg, q)
		}
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("schedule", cfg.Schedule).Int("max_redrives", cfg.MaxRedrives).Msg("dlq_redrive: started")
	return c, nil
}

// RedriveQueue processes the DLQ of one queue and returns how many jobs were
// pushed back and how many were parked.
func RedriveQueue(ctx context.Context, cfg RedriveConfig, queue string) (reencolados, agotados int) {
	n, err := cfg.Cola.LLen(ctx, dlqKey(queue)).Result()
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq_redrive: failed to read DLQ length")
		return 0, 0
	}
	if n > redriveBatchSize {
		n = redriveBatchSize
	}

	for i := int64(0); i < n; i++ {
		raw, err := cfg.Cola.RPop(ctx, dlqKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq_redrive: RPOP failed")
			break
		}

		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq_redrive: unreadable entry parked")
			_ = cfg.Cola.LPush(ctx, agotadosKey(queue), raw).Err()
			agotados++
			continue
		}

		job, ok := decidirRedrive(entry, cfg.MaxRedrives)
		if !ok {
			if err := cfg.Cola.LPush(ctx, agotadosKey(queue), raw).Err(); err != nil {
				log.Error().Err(err).Str("queue", queue).Msg("dlq_redrive: failed to park entry")
			}
			log.Warn().Str("queue", queue).Str("job_type", entry.JobType).Int("redrives", entry.Redrives).
				Str("reason", entry.Reason).Msg("dlq_redrive: re-drive limit reached, entry parked")
			agotados++
			continue
		}

		encoded, err := json.Marshal(job)
		if err == nil {
			err = cfg.Cola.LPush(ctx, queue, encoded).Err()
		}
		if err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq_redrive: push back failed, returning entry to DLQ")
			_ = cfg.Cola.LPush(ctx, dlqKey(queue), raw).Err()
			break
		}
		cfg.Metrics.IncDLQReencolado()
		reencolados++
	}

	if reencolados > 0 || agotados > 0 {
		log.Info().Str("queue", queue).Int("reencolados", reencolados).Int("agotados", agotados).Msg("dlq_redrive: tick done")
	}
	return reencolados, agotados
}

// decidirRedrive rebuilds the job of entry with its re-drive count bumped, or
// reports false once the limit is reached.
func decidirRedrive(entry DLQEntry, max int) (Job, bool) {
	if entry.Redrives >= max {
		return Job{}, false
	}
	return Job{Type: entry.JobType, Payload: entry.Payload, Redrives: entry.Redrives + 1}, true
}
