package memoria

import (
	"context"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
)

// ── Notificaciones ───────────────────────────────────────────────────────────

type notificacionRepo struct{ s *Store }

func (r *notificacionRepo) CreateBatch(_ context.Context, ns []model.Notificacion) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for i := range ns {
		ns[i].ID = newID(ns[i].ID)
		if ns[i].CreatedAt.IsZero() {
			ns[i].CreatedAt = now
		}
		r.s.notificaciones = append(r.s.notificaciones, ns[i])
	}
	return nil
}

func (r *notificacionRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Notificacion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.notificaciones {
		if n.ID == id {
			return &n, nil
		}
	}
	return nil, domainerr.NoEncontrado("notificacion no encontrado")
}

// ListByUsuario returns newest first.
func (r *notificacionRepo) ListByUsuario(_ context.Context, usuarioID uuid.UUID, filter dto.NotificacionFilter) ([]model.Notificacion, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Notificacion{}
	for i := len(r.s.notificaciones) - 1; i >= 0; i-- {
		n := r.s.notificaciones[i]
		if n.UsuarioID != usuarioID || (filter.SoloNoLeidas && n.Leida) {
			continue
		}
		out = append(out, n)
	}
	return paginate(out, filter.Page, filter.Limit), nil
}

func (r *notificacionRepo) CountNoLeidas(_ context.Context, usuarioID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, x := range r.s.notificaciones {
		if x.UsuarioID == usuarioID && !x.Leida {
			n++
		}
	}
	return n, nil
}

func (r *notificacionRepo) MarcarLeida(_ context.Context, id uuid.UUID, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.notificaciones {
		if r.s.notificaciones[i].ID == id {
			r.s.notificaciones[i].Leida = true
			r.s.notificaciones[i].LeidaAt = &at
			return nil
		}
	}
	return domainerr.NoEncontrado("notificacion no encontrado")
}

func (r *notificacionRepo) MarcarTodasLeidas(_ context.Context, usuarioID uuid.UUID, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for i := range r.s.notificaciones {
		x := &r.s.notificaciones[i]
		if x.UsuarioID == usuarioID && !x.Leida {
			x.Leida = true
			x.LeidaAt = &at
			n++
		}
	}
	return n, nil
}

// ── Auditoría ────────────────────────────────────────────────────────────────

type auditoriaRepo struct{ s *Store }

func (r *auditoriaRepo) Create(_ context.Context, a *model.Auditoria) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = newID(a.ID)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	r.s.auditoria = append(r.s.auditoria, *a)
	return nil
}

// List returns newest first.
func (r *auditoriaRepo) List(_ context.Context, filter dto.AuditoriaFilter) ([]model.Auditoria, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Auditoria{}
	for i := len(r.s.auditoria) - 1; i >= 0; i-- {
		a := r.s.auditoria[i]
		if filter.EntidadTipo != "" && a.EntidadTipo != filter.EntidadTipo {
			continue
		}
		if filter.EntidadID != "" && (a.EntidadID == nil || a.EntidadID.String() != filter.EntidadID) {
			continue
		}
		if filter.UsuarioID != "" && (a.UsuarioID == nil || a.UsuarioID.String() != filter.UsuarioID) {
			continue
		}
		if filter.Accion != "" && a.Accion != filter.Accion {
			continue
		}
		out = append(out, a)
	}
	return paginate(out, filter.Page, filter.Limit), int64(len(out)), nil
}
