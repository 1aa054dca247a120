package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/infra"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository/memoria"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCola is an in-memory stand-in for the Redis lists.
type fakeCola struct {
	mu     sync.Mutex
	listas map[string][]string
}

func newFakeCola() *fakeCola { return &fakeCola{listas: make(map[string][]string)} }

func (f *fakeCola) LPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, v := range values {
		var s string
		switch x := v.(type) {
		case []byte:
			s = string(x)
		case string:
			s = x
		default:
			s = fmt.Sprint(x)
		}
		f.listas[key] = append([]string{s}, f.listas[key]...)
	}
	return redis.NewIntResult(int64(len(f.listas[key])), nil)
}

func (f *fakeCola) popLocked(key string) (string, bool) {
	l := f.listas[key]
	if len(l) == 0 {
		return "", false
	}
	v := l[len(l)-1]
	f.listas[key] = l[:len(l)-1]
	return v, true
}

func (f *fakeCola) RPop(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.popLocked(key)
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeCola) BRPop(_ context.Context, _ time.Duration, keys ...string) *redis.StringSliceCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		if v, ok := f.popLocked(k); ok {
			return redis.NewStringSliceResult([]string{k, v}, nil)
		}
	}
	return redis.NewStringSliceResult(nil, redis.Nil)
}

func (f *fakeCola) LLen(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return redis.NewIntResult(int64(len(f.listas[key])), nil)
}

func (f *fakeCola) len(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listas[key])
}

func (f *fakeCola) pop(t *testing.T, key string) string {
	t.Helper()
	v, err := f.RPop(context.Background(), key).Result()
	require.NoError(t, err)
	return v
}

func dlqEntries(t *testing.T, f *fakeCola, queue string) []DLQEntry {
	t.Helper()
	var out []DLQEntry
	for f.len(dlqKey(queue)) > 0 {
		var e DLQEntry
		require.NoError(t, json.Unmarshal([]byte(f.pop(t, dlqKey(queue))), &e))
		out = append(out, e)
	}
	return out
}

func nuevoPool(cola Cola, m *metrics.Metrics) *Pool {
	p := NewPool(cola, 1, m)
	p.backoff = []time.Duration{0, 0}
	return p
}

var errSMTP = errors.New("smtp: 421 service not available")

// ── Dispatcher ───────────────────────────────────────────────────────────────

func TestDispatcher_Notificar(t *testing.T) {
	cola := newFakeCola()
	d := NewDispatcher(cola)
	fijo := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fijo }
	ctx := context.Background()

	require.NoError(t, d.Notificar(ctx, nil))
	assert.Zero(t, cola.len(QueueNotificaciones))

	uid := uuid.New()
	require.NoError(t, d.Notificar(ctx, []model.Notificacion{{UsuarioID: uid, Titulo: "t", Mensaje: "m", Tipo: model.NotificacionInfo}}))

	var job Job
	require.NoError(t, json.Unmarshal([]byte(cola.pop(t, QueueNotificaciones)), &job))
	assert.Equal(t, JobNotificacion, job.Type)
	var ns []model.Notificacion
	require.NoError(t, json.Unmarshal(job.Payload, &ns))
	require.Len(t, ns, 1)
	assert.Equal(t, uid, ns[0].UsuarioID)
	assert.True(t, fijo.Equal(ns[0].CreatedAt))
}

func TestDispatcher_Registrar(t *testing.T) {
	cola := newFakeCola()
	d := NewDispatcher(cola)
	require.NoError(t, d.Registrar(context.Background(), model.Auditoria{EntidadTipo: model.EntidadTramite, Accion: "crear"}))

	var job Job
	require.NoError(t, json.Unmarshal([]byte(cola.pop(t, QueueAuditoria)), &job))
	assert.Equal(t, JobAuditoria, job.Type)
	var a model.Auditoria
	require.NoError(t, json.Unmarshal(job.Payload, &a))
	assert.Equal(t, "crear", a.Accion)
	assert.False(t, a.CreatedAt.IsZero())
}

// ── Pool ─────────────────────────────────────────────────────────────────────

func TestPool_ProcesaJob(t *testing.T) {
	cola := newFakeCola()
	m := metrics.New(prometheus.NewRegistry())
	p := nuevoPool(cola, m)
	var recibido string
	p.Handle("eco", func(_ context.Context, payload json.RawMessage) error {
		recibido = string(payload)
		return nil
	})

	raw, err := encodeJob("eco", map[string]string{"a": "b"})
	require.NoError(t, err)
	p.process(context.Background(), QueueEmail, string(raw))

	assert.JSONEq(t, `{"a":"b"}`, recibido)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcesados.WithLabelValues("eco", "ok")))
	assert.Zero(t, cola.len(dlqKey(QueueEmail)))
}

func TestPool_ReintentaYMandaAlDLQ(t *testing.T) {
	cola := newFakeCola()
	m := metrics.New(prometheus.NewRegistry())
	p := nuevoPool(cola, m)
	llamadas := 0
	p.Handle(JobEmail, func(context.Context, json.RawMessage) error {
		llamadas++
		return errSMTP
	})

	raw, err := encodeJob(JobEmail, EmailJobPayload{ToEmail: "a@b.c"})
	require.NoError(t, err)
	p.process(context.Background(), QueueEmail, string(raw))

	assert.Equal(t, 3, llamadas)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobsProcesados.WithLabelValues(JobEmail, "error")))
	entries := dlqEntries(t, cola, QueueEmail)
	require.Len(t, entries, 1)
	assert.Equal(t, 3, entries[0].Attempts)
	assert.Equal(t, JobEmail, entries[0].JobType)
	assert.Contains(t, entries[0].Reason, "421")
	assert.JSONEq(t, `{"to_email":"a@b.c","subject":"","body":""}`, string(entries[0].Payload))
}

func TestPool_ErrorPermanenteNoReintenta(t *testing.T) {
	cola := newFakeCola()
	p := nuevoPool(cola, nil)
	llamadas := 0
	p.Handle("x", func(context.Context, json.RawMessage) error {
		llamadas++
		return fmt.Errorf("%w: payload roto", errPermanente)
	})
	raw, _ := encodeJob("x", 1)
	p.process(context.Background(), QueueAuditoria, string(raw))

	assert.Equal(t, 1, llamadas)
	entries := dlqEntries(t, cola, QueueAuditoria)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
}

func TestPool_TipoDesconocidoYBasura(t *testing.T) {
	cola := newFakeCola()
	p := nuevoPool(cola, nil)
	raw, _ := encodeJob("misterio", 1)
	p.process(context.Background(), QueueEmail, string(raw))
	p.process(context.Background(), QueueEmail, "{no es json")

	entries := dlqEntries(t, cola, QueueEmail)
	require.Len(t, entries, 2)
	assert.Equal(t, "misterio", entries[0].JobType)
	assert.Equal(t, "desconocido", entries[1].JobType)
}

func TestWithRetry_ContextoCancelado(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	attempts, err := withRetry(ctx, []time.Duration{time.Hour}, func() error { return errSMTP })
	assert.Equal(t, 1, attempts)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWithRetry_RecuperaEnElSegundoIntento(t *testing.T) {
	n := 0
	attempts, err := withRetry(context.Background(), []time.Duration{0, 0}, func() error {
		n++
		if n < 2 {
			return errSMTP
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

// ── DLQ re-drive ─────────────────────────────────────────────────────────────

func TestDecidirRedrive(t *testing.T) {
	job, ok := decidirRedrive(DLQEntry{JobType: JobEmail, Payload: json.RawMessage(`{}`), Redrives: 1}, 3)
	require.True(t, ok)
	assert.Equal(t, 2, job.Redrives)
	assert.Equal(t, JobEmail, job.Type)

	_, ok = decidirRedrive(DLQEntry{Redrives: 3}, 3)
	assert.False(t, ok)
}

func TestRedriveQueue(t *testing.T) {
	cola := newFakeCola()
	m := metrics.New(prometheus.NewRegistry())
	ctx := context.Background()
	SendToDLQ(ctx, cola, QueueEmail, Job{Type: JobEmail, Payload: json.RawMessage(`{"to_email":"a@b.c"}`)}, "smtp caido", 3)
	SendToDLQ(ctx, cola, QueueEmail, Job{Type: JobEmail, Payload: json.RawMessage(`{}`), Redrives: 2}, "smtp caido", 3)
	_ = cola.LPush(ctx, dlqKey(QueueEmail), "basura").Err()

	cfg := RedriveConfig{Cola: cola, MaxRedrives: 2, Metrics: m}
	reencolados, agotados := RedriveQueue(ctx, cfg, QueueEmail)

	assert.Equal(t, 1, reencolados)
	assert.Equal(t, 2, agotados)
	assert.Zero(t, cola.len(dlqKey(QueueEmail)))
	assert.Equal(t, 2, cola.len(agotadosKey(QueueEmail)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DLQReencolados))

	var job Job
	require.NoError(t, json.Unmarshal([]byte(cola.pop(t, QueueEmail)), &job))
	assert.Equal(t, 1, job.Redrives)
	assert.JSONEq(t, `{"to_email":"a@b.c"}`, string(job.Payload))
}

func TestStartDLQRedrive_ScheduleInvalido(t *testing.T) {
	_, err := StartDLQRedrive(context.Background(), RedriveConfig{Cola: newFakeCola(), Schedule: "nunca"})
	assert.Error(t, err)
}

// ── Handlers ─────────────────────────────────────────────────────────────────

type fakeMailer struct {
	mu       sync.Mutex
	err      error
	enviados []EmailJobPayload
}

func (f *fakeMailer) Send(to, subject, body, attachmentPath string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enviados = append(f.enviados, EmailJobPayload{ToEmail: to, Subject: subject, Body: body, AttachmentPath: attachmentPath})
	return nil
}

func TestEmailWorker(t *testing.T) {
	mailer := &fakeMailer{}
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{Name: "smtp", FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Hour})
	w := NewEmailWorker(mailer, cb)
	ctx := context.Background()

	require.NoError(t, w.Handle(ctx, json.RawMessage(`{"to_email":"ana@clinica.test","subject":"Hola","body":"cuerpo"}`)))
	require.Len(t, mailer.enviados, 1)
	assert.Equal(t, "Hola", mailer.enviados[0].Subject)

	require.NoError(t, w.Handle(ctx, json.RawMessage(`{"to_email":""}`)))
	assert.ErrorIs(t, w.Handle(ctx, json.RawMessage(`[`)), errPermanente)

	mailer.err = errSMTP
	payload := json.RawMessage(`{"to_email":"ana@clinica.test"}`)
	assert.ErrorIs(t, w.Handle(ctx, payload), errSMTP)
	assert.ErrorIs(t, w.Handle(ctx, payload), errSMTP)
	assert.ErrorIs(t, w.Handle(ctx, payload), infra.ErrCircuitOpen)
}

type capturaEmails struct {
	mu       sync.Mutex
	payloads []EmailJobPayload
}

func (c *capturaEmails) EnqueueEmail(_ context.Context, p EmailJobPayload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.payloads = append(c.payloads, p)
	return nil
}

// A batch goes through the queue, is stored by the worker, and mirrored by
// email to active recipients only.
func TestNotificacionWorker_DesdeLaCola(t *testing.T) {
	store := memoria.NewStore()
	ctx := context.Background()
	activo := &model.Usuario{Nombre: "Ana", Email: "ana@clinica.test", Rol: model.RolEstudiante, Activo: true}
	inactivo := &model.Usuario{Nombre: "Beto", Email: "beto@clinica.test", Rol: model.RolEstudiante, Activo: true}
	require.NoError(t, store.Usuarios().Create(ctx, activo))
	require.NoError(t, store.Usuarios().Create(ctx, inactivo))
	require.NoError(t, store.Usuarios().SetActivo(ctx, inactivo.ID, false))

	cola := newFakeCola()
	emails := &capturaEmails{}
	p := nuevoPool(cola, nil)
	w := NewNotificacionWorker(service.NotificadorDirecto{Repo: store.Notificaciones()}, store.Usuarios(), emails, "https://sigest.test/")
	p.Handle(JobNotificacion, w.Handle)

	tid := uuid.New()
	require.NoError(t, NewDispatcher(cola).Notificar(ctx, []model.Notificacion{
		{UsuarioID: activo.ID, Titulo: "Trámite T001/25: Finalizado", Mensaje: "cerrado", Tipo: model.NotificacionSuccess, TramiteID: &tid},
		{UsuarioID: inactivo.ID, Titulo: "Trámite T001/25: Finalizado", Mensaje: "cerrado", Tipo: model.NotificacionSuccess, TramiteID: &tid},
	}))
	res, err := cola.BRPop(ctx, time.Second, Queues...).Result()
	require.NoError(t, err)
	p.process(ctx, res[0], res[1])

	n, err := store.Notificaciones().CountNoLeidas(ctx, activo.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = store.Notificaciones().CountNoLeidas(ctx, inactivo.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.Len(t, emails.payloads, 1)
	assert.Equal(t, "ana@clinica.test", emails.payloads[0].ToEmail)
	assert.Equal(t, "cerrado\n\nhttps://sigest.test/tramites/"+tid.String(), emails.payloads[0].Body)
	assert.Zero(t, cola.len(dlqKey(QueueNotificaciones)))
}

func TestAuditoriaWorker(t *testing.T) {
	store := memoria.NewStore()
	ctx := context.Background()
	w := NewAuditoriaWorker(service.AuditorDirecto{Repo: store.Auditoria()})

	raw, err := json.Marshal(model.Auditoria{EntidadTipo: model.EntidadGrupo, Accion: "crear", IP: "10.0.0.1"})
	require.NoError(t, err)
	require.NoError(t, w.Handle(ctx, raw))

	rows, total, err := store.Auditoria().List(ctx, dto.AuditoriaFilter{Page: 1, Limit: 100})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, "10.0.0.1", rows[0].IP)
}
