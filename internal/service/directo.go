package service

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"
)

// NotificadorDirecto persists notification batches synchronously. It is the
// Notificador used when no job queue is wired, and the sink the queue worker
// ends in.
type NotificadorDirecto struct {
	Repo repository.NotificacionRepository
}

func (n NotificadorDirecto) Notificar(ctx context.Context, ns []model.Notificacion) error {
	if len(ns) == 0 {
		return nil
	}
	return n.Repo.CreateBatch(ctx, ns)
}

// AuditorDirecto appends audit records synchronously.
type AuditorDirecto struct {
	Repo repository.AuditoriaRepository
}

func (a AuditorDirecto) Registrar(ctx context.Context, rec model.Auditoria) error {
	return a.Repo.Create(ctx, &rec)
}
