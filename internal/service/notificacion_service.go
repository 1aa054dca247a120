package service

import (
	"context"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/google/uuid"
)

// NotificacionService exposes the inbox of the calling user plus administrative messages.
type NotificacionService interface {
	Listar(ctx context.Context, actor Actor, filter dto.NotificacionFilter) ([]dto.NotificacionResponse, error)
	ContarNoLeidas(ctx context.Context, actor Actor) (*dto.ContadorResponse, error)
	MarcarLeida(ctx context.Context, actor Actor, id uuid.UUID) error
	MarcarTodasLeidas(ctx context.Context, actor Actor) (*dto.ContadorResponse, error)
	EnviarMensaje(ctx context.Context, actor Actor, req dto.EnviarMensajeRequest) (*dto.ContadorResponse, error)
}

type notificacionService struct {
	repo     repository.NotificacionRepository
	usuarios repository.UsuarioRepository
	registro *Registro
	now      func() time.Time
}

func NewNotificacionService(repo repository.NotificacionRepository, usuarios repository.UsuarioRepository, registro *Registro) NotificacionService {
	return &notificacionService{repo: repo, usuarios: usuarios, registro: registro, now: time.Now}
}

func (s *notificacionService) Listar(ctx context.Context, actor Actor, filter dto.NotificacionFilter) ([]dto.NotificacionResponse, error) {
	ns, err := s.repo.ListByUsuario(ctx, actor.UsuarioID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.NotificacionResponse, len(ns))
	for i := range ns {
		out[i] = notificacionToResponse(&ns[i])
	}
	return out, nil
}

func (s *notificacionService) ContarNoLeidas(ctx context.Context, actor Actor) (*dto.ContadorResponse, error) {
	n, err := s.repo.CountNoLeidas(ctx, actor.UsuarioID)
	if err != nil {
		return nil, err
	}
	return &dto.ContadorResponse{Total: n}, nil
}

// MarcarLeida flips the read flag. Only the recipient may do it.
func (s *notificacionService) MarcarLeida(ctx context.Context, actor Actor, id uuid.UUID) error {
	n, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UsuarioID != actor.UsuarioID {
		return domainerr.NoAutorizado("solo el destinatario puede marcar la notificacion como leida")
	}
	if n.Leida {
		return nil
	}
	return s.repo.MarcarLeida(ctx, id, s.now())
}

func (s *notificacionService) MarcarTodasLeidas(ctx context.Context, actor Actor) (*dto.ContadorResponse, error) {
	n, err := s.repo.MarcarTodasLeidas(ctx, actor.UsuarioID, s.now())
	if err != nil {
		return nil, err
	}
	return &dto.ContadorResponse{Total: n}, nil
}

// EnviarMensaje writes an administrative message to every listed user.
func (s *notificacionService) EnviarMensaje(ctx context.Context, actor Actor, req dto.EnviarMensajeRequest) (*dto.ContadorResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(req.Destinatarios))
	for _, raw := range req.Destinatarios {
		id, err := parseID("destinatario", raw)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	ids = dedup(ids)
	usuarios, err := s.usuarios.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(usuarios) != len(ids) {
		return nil, domainerr.NoEncontrado("uno o mas destinatarios no existen")
	}

	tipo := model.TipoNotificacion(req.Tipo)
	if tipo == "" {
		tipo = model.NotificacionInfo
	}
	ns := aviso{emisor: actor.UsuarioID, titulo: req.Titulo, mensaje: req.Mensaje, tipo: tipo}.para(ids)
	if err := s.repo.CreateBatch(ctx, ns); err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadNotificacion, uuid.Nil, "enviar_mensaje", req.Titulo,
		map[string]any{"destinatarios": len(ns)})
	return &dto.ContadorResponse{Total: int64(len(ns))}, nil
}
