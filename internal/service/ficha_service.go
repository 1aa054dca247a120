package service

import (
	"context"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/google/uuid"
)

// FichaService drives consultation requests through
// pendiente → standby → asignada → iniciada.
type FichaService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearFichaRequest) (*dto.FichaResponse, error)
	Aprobar(ctx context.Context, actor Actor, id uuid.UUID, req dto.AprobarFichaRequest) (*dto.FichaResponse, error)
	Rechazar(ctx context.Context, actor Actor, id uuid.UUID, req dto.RechazarFichaRequest) error
	AsignarGrupo(ctx context.Context, actor Actor, id uuid.UUID, req dto.AsignarGrupoRequest) (*dto.FichaResponse, error)
	IniciarTramite(ctx context.Context, actor Actor, id uuid.UUID) (*dto.IniciarTramiteResponse, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.FichaResponse, error)
	Listar(ctx context.Context, filter dto.FichaFilter) (*dto.FichaListResponse, error)
}

type fichaService struct {
	tx         repository.Transactor
	fichas     repository.FichaRepository
	tramites   repository.TramiteRepository
	usuarios   repository.UsuarioRepository
	grupos     repository.GrupoRepository
	secuencias repository.SecuenciaRepository
	fanout     *Fanout
	registro   *Registro
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewFichaService(
	tx repository.Transactor,
	fichas repository.FichaRepository,
	tramites repository.TramiteRepository,
	usuarios repository.UsuarioRepository,
	grupos repository.GrupoRepository,
	secuencias repository.SecuenciaRepository,
	fanout *Fanout,
	registro *Registro,
	m *metrics.Metrics,
) FichaService {
	return &fichaService{
		tx:         tx,
		fichas:     fichas,
		tramites:   tramites,
		usuarios:   usuarios,
		grupos:     grupos,
		secuencias: secuencias,
		fanout:     fanout,
		registro:   registro,
		metrics:    m,
		now:        time.Now,
	}
}

func fichaInvalida(op string, f *model.Ficha) error {
	return domainerr.TransicionInvalida(op, string(f.Estado), estadosFicha(f.Estado.Siguientes()))
}

// aplicarCita copies the appointment data supplied in a request onto f.
func aplicarCita(f *model.Ficha, fecha, hora *string) error {
	if fecha != nil && *fecha != "" {
		d, err := parseFecha("fecha_cita", *fecha)
		if err != nil {
			return err
		}
		f.FechaCita = &d
	}
	if hora != nil && *hora != "" {
		if _, err := time.Parse(layoutHora, *hora); err != nil {
			return domainerr.Validacion("hora_cita invalida: %q (formato HH:MM)", *hora)
		}
		h := *hora
		f.HoraCita = &h
	}
	return nil
}

// ── Crear ────────────────────────────────────────────────────────────────────

func (s *fichaService) Crear(ctx context.Context, actor Actor, req dto.CrearFichaRequest) (*dto.FichaResponse, error) {
	consultanteID, err := parseID("consultante_id", req.ConsultanteID)
	if err != nil {
		return nil, err
	}
	docenteID, err := parseID("docente_id", req.DocenteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.usuarios.FindByID(ctx, consultanteID); err != nil {
		return nil, renombrarNoEncontrado(err, "consultante %s no encontrado", consultanteID)
	}
	if _, err := s.usuarios.FindByID(ctx, docenteID); err != nil {
		return nil, renombrarNoEncontrado(err, "docente %s no encontrado", docenteID)
	}

	f := &model.Ficha{
		ConsultanteID: consultanteID,
		DocenteID:     docenteID,
		Tema:          req.Tema,
		Observaciones: req.Observaciones,
		Estado:        model.FichaPendiente,
		CreadoPor:     actor.UsuarioID,
	}
	if err := aplicarCita(f, req.FechaCita, req.HoraCita); err != nil {
		return nil, err
	}
	if req.Aprobada {
		if !f.TieneCita() {
			return nil, domainerr.Validacion("fecha_cita y hora_cita son obligatorias para una ficha aprobada")
		}
		f.Estado = model.FichaStandby
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		f.Anio = s.now().Year()
		seq, err := s.secuencias.Siguiente(ctx, model.PrefijoFicha, f.Anio)
		if err != nil {
			return err
		}
		f.Secuencia = seq
		f.Numero = model.FormatNumero(model.PrefijoFicha, seq, f.Anio)
		return s.fichas.Create(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.registro.Registrar(ctx, actor, model.EntidadFicha, f.ID, "crear", "Ficha "+f.Numero+" creada",
		map[string]any{"estado": f.Estado})
	if f.Estado == model.FichaStandby {
		s.fanout.FichaAprobada(ctx, f, actor.UsuarioID)
	}
	resp := fichaToResponse(f)
	return &resp, nil
}

// ── Aprobar (pendiente → standby) ────────────────────────────────────────────

func (s *fichaService) Aprobar(ctx context.Context, actor Actor, id uuid.UUID, req dto.AprobarFichaRequest) (*dto.FichaResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	var f *model.Ficha
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.fichas.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if f.Estado != model.FichaPendiente {
			return fichaInvalida("aprobar la ficha", f)
		}
		if err := aplicarCita(f, req.FechaCita, req.HoraCita); err != nil {
			return err
		}
		if !f.TieneCita() {
			return domainerr.Validacion("la ficha %s requiere fecha y hora de cita para ser aprobada", f.Numero)
		}
		f.Estado = model.FichaStandby
		return s.fichas.Update(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransicion(model.EntidadFicha, string(model.FichaPendiente), string(model.FichaStandby))
	s.registro.Registrar(ctx, actor, model.EntidadFicha, f.ID, "aprobar", "Ficha "+f.Numero+" aprobada",
		map[string]any{"desde": model.FichaPendiente, "hacia": model.FichaStandby})
	s.fanout.FichaAprobada(ctx, f, actor.UsuarioID)
	resp := fichaToResponse(f)
	return &resp, nil
}

// ── Rechazar (pendiente → removed) ───────────────────────────────────────────

func (s *fichaService) Rechazar(ctx context.Context, actor Actor, id uuid.UUID, req dto.RechazarFichaRequest) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var f *model.Ficha
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.fichas.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if f.Estado != model.FichaPendiente || !f.Eliminable() {
			return fichaInvalida("rechazar la ficha", f)
		}
		return s.fichas.Delete(ctx, f.ID)
	})
	if err != nil {
		return err
	}

	s.registro.Registrar(ctx, actor, model.EntidadFicha, f.ID, "rechazar", "Ficha "+f.Numero+" rechazada",
		map[string]any{"motivo": req.Motivo})
	s.fanout.FichaRechazada(ctx, f, actor.UsuarioID, req.Motivo)
	return nil
}

// ── AsignarGrupo (standby → asignada) ────────────────────────────────────────

func (s *fichaService) AsignarGrupo(ctx context.Context, actor Actor, id uuid.UUID, req dto.AsignarGrupoRequest) (*dto.FichaResponse, error) {
	if err := requireRol(actor, model.RolDocente, model.RolAdministrador); err != nil {
		return nil, err
	}
	grupoID, err := parseID("grupo_id", req.GrupoID)
	if err != nil {
		return nil, err
	}

	var (
		f *model.Ficha
		g *model.Grupo
	)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.fichas.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if f.Estado != model.FichaStandby {
			return fichaInvalida("asignar la ficha a un grupo", f)
		}
		g, err = s.grupos.FindByID(ctx, grupoID)
		if err != nil {
			return renombrarNoEncontrado(err, "grupo %s no encontrado", grupoID)
		}
		if !g.Activo {
			return domainerr.Validacion("el grupo %s esta inactivo", g.Nombre)
		}
		f.GrupoID = &g.ID
		f.Estado = model.FichaAsignada
		return s.fichas.Update(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransicion(model.EntidadFicha, string(model.FichaStandby), string(model.FichaAsignada))
	s.registro.Registrar(ctx, actor, model.EntidadFicha, f.ID, "asignar_grupo", "Ficha "+f.Numero+" asignada al grupo "+g.Nombre,
		map[string]any{"grupo_id": g.ID})
	s.fanout.FichaAsignada(ctx, f, g, actor.UsuarioID)
	resp := fichaToResponse(f)
	return &resp, nil
}

// ── IniciarTramite (asignada → iniciada) ─────────────────────────────────────

// IniciarTramite converts an assigned ficha into a case. Both rows are written
// in one transaction, so a failure leaves neither.
func (s *fichaService) IniciarTramite(ctx context.Context, actor Actor, id uuid.UUID) (*dto.IniciarTramiteResponse, error) {
	if err := requireRol(actor, model.RolDocente, model.RolAdministrador); err != nil {
		return nil, err
	}
	var (
		f *model.Ficha
		t *model.Tramite
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.fichas.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if f.Estado != model.FichaAsignada || f.GrupoID == nil {
			return fichaInvalida("iniciar el tramite de la ficha", f)
		}
		numero, err := siguienteCarpeta(ctx, s.secuencias, s.tramites, s.now())
		if err != nil {
			return err
		}
		fichaID := f.ID
		t = &model.Tramite{
			NumeroCarpeta: numero,
			ConsultanteID: f.ConsultanteID,
			GrupoID:       *f.GrupoID,
			FichaID:       &fichaID,
			Estado:        model.TramiteEnTramite,
			FechaInicio:   s.now(),
			CreadoPor:     actor.UsuarioID,
		}
		if err := s.tramites.Create(ctx, t); err != nil {
			return err
		}
		f.Estado = model.FichaIniciada
		f.TramiteID = &t.ID
		return s.fichas.Update(ctx, f)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTransicion(model.EntidadFicha, string(model.FichaAsignada), string(model.FichaIniciada))
	s.registro.Registrar(ctx, actor, model.EntidadFicha, f.ID, "iniciar_tramite", "Ficha "+f.Numero+" convertida en la carpeta "+t.NumeroCarpeta,
		map[string]any{"tramite_id": t.ID})
	s.registro.Registrar(ctx, actor, model.EntidadTramite, t.ID, "crear", "Tramite "+t.NumeroCarpeta+" creado desde la ficha "+f.Numero,
		map[string]any{"estado": t.Estado, "ficha_id": f.ID})
	if g, err := s.grupos.FindByID(ctx, t.GrupoID); err == nil {
		s.fanout.TramiteCreado(ctx, t, g, actor.UsuarioID)
	}
	return &dto.IniciarTramiteResponse{Ficha: fichaToResponse(f), Tramite: tramiteToResponse(t)}, nil
}

// ── Eliminar ─────────────────────────────────────────────────────────────────

func (s *fichaService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var f *model.Ficha
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.fichas.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !f.Eliminable() {
			return fichaInvalida("eliminar la ficha", f)
		}
		return s.fichas.Delete(ctx, f.ID)
	})
	if err != nil {
		return err
	}
	s.registro.Registrar(ctx, actor, model.EntidadFicha, f.ID, "eliminar", "Ficha "+f.Numero+" eliminada",
		map[string]any{"estado": f.Estado})
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *fichaService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.FichaResponse, error) {
	f, err := s.fichas.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := fichaToResponse(f)
	return &resp, nil
}

func (s *fichaService) Listar(ctx context.Context, filter dto.FichaFilter) (*dto.FichaListResponse, error) {
	fichas, total, err := s.fichas.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.FichaResponse, len(fichas))
	for i := range fichas {
		data[i] = fichaToResponse(&fichas[i])
	}
	return &dto.FichaListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// siguienteCarpeta issues the next T number of the year, skipping numbers
// already taken by manually numbered cases.
func siguienteCarpeta(ctx context.Context, seqs repository.SecuenciaRepository, tramites repository.TramiteRepository, now time.Time) (string, error) {
	anio := now.Year()
	for i := 0; i < 100; i++ {
		seq, err := seqs.Siguiente(ctx, model.PrefijoTramite, anio)
		if err != nil {
			return "", err
		}
		numero := model.FormatNumero(model.PrefijoTramite, seq, anio)
		taken, err := tramites.ExistsNumeroCarpeta(ctx, numero)
		if err != nil {
			return "", err
		}
		if !taken {
			return numero, nil
		}
	}
	return "", domainerr.Conflicto("no se pudo generar un numero de carpeta libre para %d", anio)
}
