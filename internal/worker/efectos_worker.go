package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// AuditoriaWorker persists queued audit records.
type AuditoriaWorker struct {
	sink service.Auditor
}

func NewAuditoriaWorker(sink service.Auditor) *AuditoriaWorker {
	return &AuditoriaWorker{sink: sink}
}

func (w *AuditoriaWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var a model.Auditoria
	if err := json.Unmarshal(raw, &a); err != nil {
		return fmt.Errorf("%w: auditoria payload: %v", errPermanente, err)
	}
	return w.sink.Registrar(ctx, a)
}

// EmailEnqueuer is the part of Dispatcher the notification worker needs.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// NotificacionWorker persists queued notification batches and, when mail is
// configured, mirrors each one to its recipient's inbox by email.
type NotificacionWorker struct {
	sink     service.Notificador
	usuarios repository.UsuarioRepository
	emails   EmailEnqueuer
	appURL   string
}

// NewNotificacionWorker builds the worker. emails may be nil to disable the mirror.
func NewNotificacionWorker(sink service.Notificador, usuarios repository.UsuarioRepository, emails EmailEnqueuer, appURL string) *NotificacionWorker {
	return &NotificacionWorker{sink: sink, usuarios: usuarios, emails: emails, appURL: appURL}
}

func (w *NotificacionWorker) Handle(ctx context.Context, raw json.RawMessage) error {
	var ns []model.Notificacion
	if err := json.Unmarshal(raw, &ns); err != nil {
		return fmt.Errorf("%w: notificacion payload: %v", errPermanente, err)
	}
	if err := w.sink.Notificar(ctx, ns); err != nil {
		return err
	}
	if w.emails != nil {
		// The batch is already stored; a retry here would duplicate it.
		if err := w.reenviarPorEmail(ctx, ns); err != nil {
			log.Warn().Err(err).Int("notificaciones", len(ns)).Msg("notificacion_worker: email mirror incomplete")
		}
	}
	return nil
}

func (w *NotificacionWorker) reenviarPorEmail(ctx context.Context, ns []model.Notificacion) error {
	ids := make([]uuid.UUID, 0, len(ns))
	for _, n := range ns {
		ids = append(ids, n.UsuarioID)
	}
	usuarios, err := w.usuarios.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	emails := make(map[uuid.UUID]string, len(usuarios))
	for _, u := range usuarios {
		if u.Activo && u.Email != "" {
			emails[u.ID] = u.Email
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, n := range ns {
		to, ok := emails[n.UsuarioID]
		if !ok {
			continue
		}
		payload := EmailJobPayload{ToEmail: to, Subject: n.Titulo, Body: w.cuerpo(n)}
		g.Go(func() error { return w.emails.EnqueueEmail(ctx, payload) })
	}
	return g.Wait()
}

func (w *NotificacionWorker) cuerpo(n model.Notificacion) string {
	var b strings.Builder
	b.WriteString(n.Mensaje)
	if w.appURL != "" {
		b.WriteString("\n\n")
		b.WriteString(strings.TrimRight(w.appURL, "/"))
		if n.TramiteID != nil {
			b.WriteString("/tramites/")
			b.WriteString(n.TramiteID.String())
		} else {
			b.WriteString("/notificaciones")
		}
	}
	return b.String()
}
