package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueNotificaciones = "jobs:notificaciones"
	QueueAuditoria      = "jobs:auditoria"
	QueueEmail          = "jobs:email"

	JobNotificacion = "notificacion"
	JobAuditoria    = "auditoria"
	JobEmail        = "email"
)

// Queues lists every queue consumed by the pool, in BRPOP priority order.
var Queues = []string{QueueAuditoria, QueueNotificaciones, QueueEmail}

// Cola is the subset of the Redis client the job system uses.
type Cola interface {
	LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	BRPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Job is the generic envelope for all async tasks.
type Job struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	// Redrives counts how many times the job came back from the DLQ.
	Redrives int `json:"redrives,omitempty"`
}

// Dispatcher enqueues async jobs into Redis lists. It implements
// service.Notificador and service.Auditor, so committed mutations hand their
// side effects to the queue instead of writing them inline.
type Dispatcher struct {
	cola Cola
	now  func() time.Time
}

func NewDispatcher(cola Cola) *Dispatcher {
	return &Dispatcher{cola: cola, now: time.Now}
}

// Notificar enqueues one batch of notifications.
func (d *Dispatcher) Notificar(ctx context.Context, ns []model.Notificacion) error {
	if len(ns) == 0 {
		return nil
	}
	now := d.now()
	for i := range ns {
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = now
		}
	}
	return d.enqueue(ctx, QueueNotificaciones, JobNotificacion, ns)
}

// Registrar enqueues one audit record, stamped with the mutation time.
func (d *Dispatcher) Registrar(ctx context.Context, a model.Auditoria) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = d.now()
	}
	return d.enqueue(ctx, QueueAuditoria, JobAuditoria, a)
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload any) error {
	encoded, err := encodeJob(jobType, payload)
	if err != nil {
		return err
	}
	return d.cola.LPush(ctx, queue, encoded).Err()
}

func encodeJob(jobType string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	return json.Marshal(Job{Type: jobType, Payload: data})
}

// ── Pool ─────────────────────────────────────────────────────────────────────

// Handler processes one job payload. A returned error triggers a retry.
type Handler func(ctx context.Context, payload json.RawMessage) error

// errPermanente marks failures that retrying cannot fix.
var errPermanente = errors.New("permanent job failure")

// Pool runs size goroutines blocking on BRPOP over Queues.
type Pool struct {
	cola     Cola
	size     int
	handlers map[string]Handler
	metrics  *metrics.Metrics
	backoff  []time.Duration
	wg       sync.WaitGroup
}

func NewPool(cola Cola, size int, m *metrics.Metrics) *Pool {
	return &Pool{
		cola:     cola,
		size:     size,
		handlers: make(map[string]Handler),
		metrics:  m,
		backoff:  []time.Duration{time.Second, 2 * time.Second},
	}
}

// Handle registers h for jobType. Call before Start.
func (p *Pool) Handle(jobType string, h Handler) {
	p.handlers[jobType] = h
}

// Start launches the workers. They stop when ctx is cancelled; Wait blocks until they have.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			p.run(ctx, id)
		}(i)
	}
	log.Info().Int("workers", p.size).Strs("queues", Queues).Msg("worker pool started")
}

func (p *Pool) Wait() { p.wg.Wait() }

func (p *Pool) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := p.cola.BRPop(ctx, 5*time.Second, Queues...).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					log.Warn().Err(err).Int("worker", id).Msg("worker: BRPOP failed")
					time.Sleep(time.Second)
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			p.process(ctx, result[0], result[1])
		}
	}
}

// process runs one raw job with retries; exhausted jobs go to the DLQ.
func (p *Pool) process(ctx context.Context, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, p.cola, queue, Job{Type: "desconocido", Payload: quoted}, err.Error(), 0)
		return
	}
	h, ok := p.handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, p.cola, queue, job, "no handler for job type "+job.Type, 0)
		return
	}

	start := time.Now()
	attempts, err := withRetry(ctx, p.backoff, func() error { return h(ctx, job.Payload) })
	p.metrics.ObserveJob(job.Type, start, err)
	if err != nil {
		SendToDLQ(ctx, p.cola, queue, job, err.Error(), attempts)
		return
	}
	log.Debug().Str("type", job.Type).Str("queue", queue).Int("attempts", attempts).Msg("job processed")
}

// withRetry calls fn until it succeeds, fails permanently, or every backoff
// step is used. It returns the number of calls made.
func withRetry(ctx context.Context, backoff []time.Duration, fn func() error) (int, error) {
	attempts := 0
	for {
		attempts++
		err := fn()
		if err == nil {
			return attempts, nil
		}
		if errors.Is(err, errPermanente) || attempts > len(backoff) {
			return attempts, err
		}
		wait := backoff[attempts-1]
		log.Warn().Err(err).Int("attempt", attempts).Dur("retry_in", wait).Msg("job failed, retrying")
		select {
		case <-ctx.Done():
			return attempts, ctx.Err()
		case <-time.After(wait):
		}
	}
}
