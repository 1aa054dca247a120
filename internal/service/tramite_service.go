package service

import (
	"context"
	"strings"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/infra"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/google/uuid"
)

// TramiteService manages cases: lifecycle, hoja de ruta and attached documents.
type TramiteService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearTramiteRequest) (*dto.TramiteResponse, error)
	CambiarEstado(ctx context.Context, actor Actor, id uuid.UUID, req dto.CambiarEstadoTramiteRequest) (*dto.TramiteResponse, error)
	Aprobar(ctx context.Context, actor Actor, id uuid.UUID) (*dto.TramiteResponse, error)
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.TramiteResponse, error)
	Listar(ctx context.Context, filter dto.TramiteFilter) (*dto.TramiteListResponse, error)

	AgregarEntrada(ctx context.Context, actor Actor, tramiteID uuid.UUID, req dto.EntradaHojaRutaRequest) (*dto.EntradaHojaRutaResponse, error)
	EditarEntrada(ctx context.Context, actor Actor, tramiteID, entradaID uuid.UUID, req dto.EntradaHojaRutaRequest) (*dto.EntradaHojaRutaResponse, error)
	EliminarEntrada(ctx context.Context, actor Actor, tramiteID, entradaID uuid.UUID) error
	ListarHojaRuta(ctx context.Context, tramiteID uuid.UUID) ([]dto.EntradaHojaRutaResponse, error)
	ExportarHojaRutaPDF(ctx context.Context, tramiteID uuid.UUID) (string, error)

	AdjuntarDocumento(ctx context.Context, actor Actor, tramiteID uuid.UUID, req dto.AdjuntarDocumentoRequest) (*dto.DocumentoResponse, error)
	ListarDocumentos(ctx context.Context, tramiteID uuid.UUID) ([]dto.DocumentoResponse, error)
	EliminarDocumento(ctx context.Context, actor Actor, tramiteID, documentoID uuid.UUID) error
}

type tramiteService struct {
	tx         repository.Transactor
	tramites   repository.TramiteRepository
	grupos     repository.GrupoRepository
	usuarios   repository.UsuarioRepository
	hojaRuta   repository.HojaRutaRepository
	documentos repository.DocumentoRepository
	secuencias repository.SecuenciaRepository
	fanout     *Fanout
	registro   *Registro
	metrics    *metrics.Metrics
	pdfDir     string
	now        func() time.Time
}

func NewTramiteService(
	tx repository.Transactor,
	tramites repository.TramiteRepository,
	grupos repository.GrupoRepository,
	usuarios repository.UsuarioRepository,
	hojaRuta repository.HojaRutaRepository,
	documentos repository.DocumentoRepository,
	secuencias repository.SecuenciaRepository,
	fanout *Fanout,
	registro *Registro,
	m *metrics.Metrics,
	pdfDir string,
) TramiteService {
	return &tramiteService{
		tx:         tx,
		tramites:   tramites,
		grupos:     grupos,
		usuarios:   usuarios,
		hojaRuta:   hojaRuta,
		documentos: documentos,
		secuencias: secuencias,
		fanout:     fanout,
		registro:   registro,
		metrics:    m,
		pdfDir:     pdfDir,
		now:        time.Now,
	}
}

// ── Crear ────────────────────────────────────────────────────────────────────

func (s *tramiteService) Crear(ctx context.Context, actor Actor, req dto.CrearTramiteRequest) (*dto.TramiteResponse, error) {
	if err := requireRol(actor, model.RolAdministrador, model.RolDocente); err != nil {
		return nil, err
	}
	consultanteID, err := parseID("consultante_id", req.ConsultanteID)
	if err != nil {
		return nil, err
	}
	grupoID, err := parseID("grupo_id", req.GrupoID)
	if err != nil {
		return nil, err
	}
	if _, err := s.usuarios.FindByID(ctx, consultanteID); err != nil {
		return nil, renombrarNoEncontrado(err, "consultante %s no encontrado", consultanteID)
	}
	g, err := s.grupos.FindByID(ctx, grupoID)
	if err != nil {
		return nil, renombrarNoEncontrado(err, "grupo %s no encontrado", grupoID)
	}
	if !g.Activo {
		return nil, domainerr.Validacion("el grupo %s esta inactivo", g.Nombre)
	}

	// An administrator registers the case for later approval; anyone else opens it directly.
	estado := model.TramiteEnTramite
	if actor.Perfil.RolEfectivo() == model.RolAdministrador {
		estado = model.TramitePendiente
	}
	t := &model.Tramite{
		ConsultanteID: consultanteID,
		GrupoID:       g.ID,
		Estado:        estado,
		FechaInicio:   s.now(),
		Observaciones: req.Observaciones,
		CreadoPor:     actor.UsuarioID,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if req.NumeroCarpeta != nil && strings.TrimSpace(*req.NumeroCarpeta) != "" {
			numero := strings.ToUpper(strings.TrimSpace(*req.NumeroCarpeta))
			if !model.NumeroCarpetaValido(numero) {
				return domainerr.Validacion("numero_carpeta %q invalido (formato T###/aa)", numero)
			}
			taken, err := s.tramites.ExistsNumeroCarpeta(ctx, numero)
			if err != nil {
				return err
			}
			if taken {
				return domainerr.Conflicto("ya existe un tramite con numero de carpeta %s", numero)
			}
			t.NumeroCarpeta = numero
		} else {
			numero, err := siguienteCarpeta(ctx, s.secuencias, s.tramites, s.now())
			if err != nil {
				return err
			}
			t.NumeroCarpeta = numero
		}
		return s.tramites.Create(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	s.registro.Registrar(ctx, actor, model.EntidadTramite, t.ID, "crear", "Tramite "+t.NumeroCarpeta+" creado",
		map[string]any{"estado": t.Estado, "grupo_id": g.ID})
	s.fanout.TramiteCreado(ctx, t, g, actor.UsuarioID)
	resp := tramiteToResponse(t)
	return &resp, nil
}

// ── State changes ────────────────────────────────────────────────────────────

type cambioEstado struct {
	op          string
	destino     model.EstadoTramite // empty keeps the current state
	motivo      *string
	fechaCierre *time.Time
	// soloDesde restricts the source state (Aprobar).
	soloDesde model.EstadoTramite
}

func (s *tramiteService) CambiarEstado(ctx context.Context, actor Actor, id uuid.UUID, req dto.CambiarEstadoTramiteRequest) (*dto.TramiteResponse, error) {
	c := cambioEstado{op: "cambiar el estado del tramite", motivo: req.MotivoCierre}
	if req.Estado != "" {
		e, ok := model.NormalizarEstadoTramite(req.Estado)
		if !ok {
			return nil, domainerr.Validacion("estado %q desconocido", req.Estado)
		}
		c.destino = e
	}
	if req.FechaCierre != nil && *req.FechaCierre != "" {
		d, err := parseFecha("fecha_cierre", *req.FechaCierre)
		if err != nil {
			return nil, err
		}
		c.fechaCierre = &d
	}
	return s.transicionar(ctx, actor, id, c, s.puedeCambiarEstado)
}

// Aprobar moves a pending case into processing. Administrators only.
func (s *tramiteService) Aprobar(ctx context.Context, actor Actor, id uuid.UUID) (*dto.TramiteResponse, error) {
	c := cambioEstado{op: "aprobar el tramite", destino: model.TramiteEnTramite, soloDesde: model.TramitePendiente}
	return s.transicionar(ctx, actor, id, c, func(a Actor, _ *model.Grupo) error { return requireAdmin(a) })
}

// puedeCambiarEstado admits administrators and docentes who belong to the case's group.
func (s *tramiteService) puedeCambiarEstado(a Actor, g *model.Grupo) error {
	if a.Perfil.EsAdmin() {
		return nil
	}
	if a.Perfil.TieneRol(model.RolDocente) && g.Miembro(a.UsuarioID) != nil {
		return nil
	}
	return domainerr.NoAutorizado("solo administradores o docentes del grupo pueden cambiar el estado del tramite")
}

func (s *tramiteService) transicionar(ctx context.Context, actor Actor, id uuid.UUID, c cambioEstado, autorizar func(Actor, *model.Grupo) error) (*dto.TramiteResponse, error) {
	var (
		t     *model.Tramite
		g     *model.Grupo
		desde model.EstadoTramite
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		t, err = s.tramites.FindByID(ctx, id)
		if err != nil {
			return err
		}
		g, err = s.grupos.FindByID(ctx, t.GrupoID)
		if err != nil {
			return err
		}
		if err := autorizar(actor, g); err != nil {
			return err
		}
		desde = t.Estado
		if c.soloDesde != "" && desde != c.soloDesde {
			return domainerr.TransicionInvalida(c.op, string(desde), estadosTramite(desde.Siguientes()))
		}
		hacia := c.destino
		if hacia == "" {
			hacia = desde
		}

		if hacia == desde {
			if c.motivo == nil && c.fechaCierre == nil {
				return domainerr.Validacion("no hay cambios para aplicar al tramite %s", t.NumeroCarpeta)
			}
			if c.motivo != nil {
				t.MotivoCierre = c.motivo
			}
			if c.fechaCierre != nil {
				t.FechaCierre = c.fechaCierre
			}
			return s.tramites.Update(ctx, t)
		}

		if !desde.PuedePasarA(hacia) {
			return domainerr.TransicionInvalida(c.op+" a "+string(hacia), string(desde), estadosTramite(desde.Siguientes()))
		}
		t.Estado = hacia
		switch hacia {
		case model.TramiteFinalizado:
			cierre := s.now()
			if c.fechaCierre != nil {
				cierre = *c.fechaCierre
			}
			t.FechaCierre = &cierre
			if c.motivo != nil {
				t.MotivoCierre = c.motivo
			}
		case model.TramiteDesistido:
			if c.fechaCierre != nil {
				t.FechaCierre = c.fechaCierre
			}
			if c.motivo != nil {
				t.MotivoCierre = c.motivo
			}
		case model.TramiteEnTramite:
			t.FechaCierre = nil
			t.MotivoCierre = nil
		}
		return s.tramites.Update(ctx, t)
	})
	if err != nil {
		return nil, err
	}

	if t.Estado == desde {
		s.registro.Registrar(ctx, actor, model.EntidadTramite, t.ID, "anotar_cierre", "Datos de cierre actualizados en "+t.NumeroCarpeta,
			map[string]any{"motivo_cierre": t.MotivoCierre, "fecha_cierre": fechaPtr(t.FechaCierre)})
	} else {
		s.metrics.IncTransicion(model.EntidadTramite, string(desde), string(t.Estado))
		s.registro.Registrar(ctx, actor, model.EntidadTramite, t.ID, "cambiar_estado",
			"Tramite "+t.NumeroCarpeta+": "+string(desde)+" → "+string(t.Estado),
			map[string]any{"desde": desde, "hacia": t.Estado, "motivo": c.motivo})
		s.fanout.EstadoTramiteCambiado(ctx, t, g, actor.UsuarioID, desde, t.Estado, c.motivo)
	}
	resp := tramiteToResponse(t)
	return &resp, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *tramiteService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.TramiteResponse, error) {
	t, err := s.tramites.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := tramiteToResponse(t)
	return &resp, nil
}

func (s *tramiteService) Listar(ctx context.Context, filter dto.TramiteFilter) (*dto.TramiteListResponse, error) {
	if filter.Estado != "" {
		e, ok := model.NormalizarEstadoTramite(filter.Estado)
		if !ok {
			return nil, domainerr.Validacion("estado %q desconocido", filter.Estado)
		}
		filter.Estado = string(e)
	}
	tramites, total, err := s.tramites.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TramiteResponse, len(tramites))
	for i := range tramites {
		data[i] = tramiteToResponse(&tramites[i])
	}
	return &dto.TramiteListResponse{Data: data, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

// ── Hoja de ruta ─────────────────────────────────────────────────────────────

func (s *tramiteService) AgregarEntrada(ctx context.Context, actor Actor, tramiteID uuid.UUID, req dto.EntradaHojaRutaRequest) (*dto.EntradaHojaRutaResponse, error) {
	fecha, err := parseFecha("fecha", req.Fecha)
	if err != nil {
		return nil, err
	}
	t, err := s.tramites.FindByID(ctx, tramiteID)
	if err != nil {
		return nil, err
	}
	g, err := s.grupos.FindByID(ctx, t.GrupoID)
	if err != nil {
		return nil, err
	}
	if m := g.Miembro(actor.UsuarioID); m == nil || m.Rol != model.RolGrupoEstudiante {
		return nil, domainerr.NoAutorizado("solo los estudiantes del grupo %s pueden agregar entradas a la hoja de ruta", g.Nombre)
	}

	e := &model.EntradaHojaRuta{
		TramiteID:   t.ID,
		UsuarioID:   actor.UsuarioID,
		Fecha:       fecha,
		Descripcion: req.Descripcion,
	}
	if err := s.hojaRuta.Create(ctx, e); err != nil {
		return nil, err
	}

	s.registro.Registrar(ctx, actor, model.EntidadHojaRuta, e.ID, "crear", "Entrada agregada a "+t.NumeroCarpeta,
		map[string]any{"tramite_id": t.ID})
	s.fanout.EntradaAgregada(ctx, t, g, e)
	resp := entradaToResponse(e)
	return &resp, nil
}

// entradaPropia loads an entry of the case and checks that actor wrote it.
func (s *tramiteService) entradaPropia(ctx context.Context, actor Actor, tramiteID, entradaID uuid.UUID) (*model.EntradaHojaRuta, error) {
	e, err := s.hojaRuta.FindByID(ctx, entradaID)
	if err != nil {
		return nil, err
	}
	if e.TramiteID != tramiteID {
		return nil, domainerr.NoEncontrado("entrada %s no pertenece al tramite", entradaID)
	}
	if e.UsuarioID != actor.UsuarioID {
		return nil, domainerr.NoAutorizado("solo el autor puede modificar la entrada")
	}
	return e, nil
}

func (s *tramiteService) EditarEntrada(ctx context.Context, actor Actor, tramiteID, entradaID uuid.UUID, req dto.EntradaHojaRutaRequest) (*dto.EntradaHojaRutaResponse, error) {
	fecha, err := parseFecha("fecha", req.Fecha)
	if err != nil {
		return nil, err
	}
	e, err := s.entradaPropia(ctx, actor, tramiteID, entradaID)
	if err != nil {
		return nil, err
	}
	antes := e.Descripcion
	e.Fecha = fecha
	e.Descripcion = req.Descripcion
	if err := s.hojaRuta.Update(ctx, e); err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadHojaRuta, e.ID, "editar", "Entrada de hoja de ruta editada",
		map[string]any{"tramite_id": tramiteID, "descripcion_anterior": antes})
	resp := entradaToResponse(e)
	return &resp, nil
}

func (s *tramiteService) EliminarEntrada(ctx context.Context, actor Actor, tramiteID, entradaID uuid.UUID) error {
	e, err := s.entradaPropia(ctx, actor, tramiteID, entradaID)
	if err != nil {
		return err
	}
	if err := s.hojaRuta.Delete(ctx, e.ID); err != nil {
		return err
	}
	s.registro.Registrar(ctx, actor, model.EntidadHojaRuta, e.ID, "eliminar", "Entrada de hoja de ruta eliminada",
		map[string]any{"tramite_id": tramiteID, "descripcion": e.Descripcion})
	return nil
}

func (s *tramiteService) ListarHojaRuta(ctx context.Context, tramiteID uuid.UUID) ([]dto.EntradaHojaRutaResponse, error) {
	if _, err := s.tramites.FindByID(ctx, tramiteID); err != nil {
		return nil, err
	}
	entradas, err := s.hojaRuta.ListByTramite(ctx, tramiteID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.EntradaHojaRutaResponse, len(entradas))
	for i := range entradas {
		out[i] = entradaToResponse(&entradas[i])
	}
	return out, nil
}

// ExportarHojaRutaPDF renders the log of the case and returns the file path.
func (s *tramiteService) ExportarHojaRutaPDF(ctx context.Context, tramiteID uuid.UUID) (string, error) {
	t, err := s.tramites.FindByID(ctx, tramiteID)
	if err != nil {
		return "", err
	}
	if t.Consultante == nil {
		if u, err := s.usuarios.FindByID(ctx, t.ConsultanteID); err == nil {
			t.Consultante = u
		}
	}
	if t.Grupo == nil {
		if g, err := s.grupos.FindByID(ctx, t.GrupoID); err == nil {
			t.Grupo = g
		}
	}
	entradas, err := s.hojaRuta.ListByTramite(ctx, tramiteID)
	if err != nil {
		return "", err
	}
	return infra.GenerarHojaRutaPDF(t, entradas, s.pdfDir)
}

// ── Documentos ───────────────────────────────────────────────────────────────

func (s *tramiteService) AdjuntarDocumento(ctx context.Context, actor Actor, tramiteID uuid.UUID, req dto.AdjuntarDocumentoRequest) (*dto.DocumentoResponse, error) {
	t, err := s.tramites.FindByID(ctx, tramiteID)
	if err != nil {
		return nil, err
	}
	if !actor.Perfil.EsAdmin() {
		g, err := s.grupos.FindByID(ctx, t.GrupoID)
		if err != nil {
			return nil, err
		}
		if g.Miembro(actor.UsuarioID) == nil {
			return nil, domainerr.NoAutorizado("solo miembros del grupo o administradores pueden adjuntar documentos")
		}
	}
	d := &model.DocumentoTramite{
		TramiteID: t.ID,
		Nombre:    req.Nombre,
		URL:       req.URL,
		SubidoPor: actor.UsuarioID,
	}
	if err := s.documentos.Create(ctx, d); err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadDocumento, d.ID, "adjuntar", "Documento "+d.Nombre+" adjuntado a "+t.NumeroCarpeta,
		map[string]any{"tramite_id": t.ID, "url": d.URL})
	resp := documentoToResponse(d)
	return &resp, nil
}

func (s *tramiteService) ListarDocumentos(ctx context.Context, tramiteID uuid.UUID) ([]dto.DocumentoResponse, error) {
	if _, err := s.tramites.FindByID(ctx, tramiteID); err != nil {
		return nil, err
	}
	docs, err := s.documentos.ListByTramite(ctx, tramiteID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DocumentoResponse, len(docs))
	for i := range docs {
		out[i] = documentoToResponse(&docs[i])
	}
	return out, nil
}

func (s *tramiteService) EliminarDocumento(ctx context.Context, actor Actor, tramiteID, documentoID uuid.UUID) error {
	d, err := s.documentos.FindByID(ctx, documentoID)
	if err != nil {
		return err
	}
	if d.TramiteID != tramiteID {
		return domainerr.NoEncontrado("documento %s no pertenece al tramite", documentoID)
	}
	if d.SubidoPor != actor.UsuarioID && !actor.Perfil.EsAdmin() {
		return domainerr.NoAutorizado("solo quien subio el documento o un administrador puede eliminarlo")
	}
	if err := s.documentos.Delete(ctx, d.ID); err != nil {
		return err
	}
	s.registro.Registrar(ctx, actor, model.EntidadDocumento, d.ID, "eliminar", "Documento "+d.Nombre+" eliminado",
		map[string]any{"tramite_id": tramiteID})
	return nil
}
