package service

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/google/uuid"
)

// GrupoService maintains teaching groups and their memberships.
// Invariants: one responsable per group; a user is estudiante in at most one group.
type GrupoService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearGrupoRequest) (*dto.GrupoResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarGrupoRequest) (*dto.GrupoResponse, error)
	AsignarRolMiembro(ctx context.Context, actor Actor, grupoID, usuarioID uuid.UUID, req dto.AsignarRolMiembroRequest) (*dto.GrupoResponse, error)
	QuitarMiembro(ctx context.Context, actor Actor, grupoID, usuarioID uuid.UUID) (*dto.GrupoResponse, error)
	Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.GrupoResponse, error)
	Listar(ctx context.Context) ([]dto.GrupoResponse, error)
}

type grupoService struct {
	tx       repository.Transactor
	grupos   repository.GrupoRepository
	usuarios repository.UsuarioRepository
	tramites repository.TramiteRepository
	registro *Registro
}

func NewGrupoService(
	tx repository.Transactor,
	grupos repository.GrupoRepository,
	usuarios repository.UsuarioRepository,
	tramites repository.TramiteRepository,
	registro *Registro,
) GrupoService {
	return &grupoService{tx: tx, grupos: grupos, usuarios: usuarios, tramites: tramites, registro: registro}
}

func nombreMiembro(m model.MiembroGrupo) string {
	if m.Usuario != nil && m.Usuario.Nombre != "" {
		return m.Usuario.Nombre
	}
	return m.UsuarioID.String()
}

// ── Crear ────────────────────────────────────────────────────────────────────

func (s *grupoService) Crear(ctx context.Context, actor Actor, req dto.CrearGrupoRequest) (*dto.GrupoResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	type alta struct {
		raw string
		rol model.RolGrupo
	}
	altas := []alta{{req.ResponsableID, model.RolGrupoResponsable}}
	for _, a := range req.Asistentes {
		altas = append(altas, alta{a, model.RolGrupoAsistente})
	}
	for _, e := range req.Estudiantes {
		altas = append(altas, alta{e, model.RolGrupoEstudiante})
	}

	g := &model.Grupo{Nombre: req.Nombre, Descripcion: req.Descripcion, Activo: true}
	ids := make([]uuid.UUID, 0, len(altas))
	estudiantes := []uuid.UUID{}
	seen := make(map[uuid.UUID]bool, len(altas))
	for _, a := range altas {
		id, err := parseID("usuario_id", a.raw)
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, domainerr.Conflicto("el usuario %s figura mas de una vez en el grupo", id)
		}
		seen[id] = true
		ids = append(ids, id)
		if a.rol == model.RolGrupoEstudiante {
			estudiantes = append(estudiantes, id)
		}
		g.Miembros = append(g.Miembros, model.MiembroGrupo{UsuarioID: id, Rol: a.rol})
	}

	usuarios, err := s.usuarios.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(usuarios) != len(ids) {
		found := make(map[uuid.UUID]bool, len(usuarios))
		for _, u := range usuarios {
			found[u.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, domainerr.NoEncontrado("usuario %s no encontrado", id)
			}
		}
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if len(estudiantes) > 0 {
			ocupados, err := s.grupos.FindMembresiasEstudiante(ctx, estudiantes)
			if err != nil {
				return err
			}
			if len(ocupados) > 0 {
				nombres := make([]string, len(ocupados))
				for i, m := range ocupados {
					nombres[i] = nombreMiembro(m)
				}
				return domainerr.Invariante("estudiantes que ya pertenecen a otro grupo", nombres...)
			}
		}
		return s.grupos.Create(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	s.registro.Registrar(ctx, actor, model.EntidadGrupo, g.ID, "crear", "Grupo "+g.Nombre+" creado",
		map[string]any{"responsable_id": req.ResponsableID, "miembros": len(g.Miembros)})
	return s.ObtenerPorID(ctx, g.ID)
}

// ── Actualizar ───────────────────────────────────────────────────────────────

func (s *grupoService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarGrupoRequest) (*dto.GrupoResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	g, err := s.grupos.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Nombre != "" {
		g.Nombre = req.Nombre
	}
	if req.Descripcion != nil {
		g.Descripcion = req.Descripcion
	}
	if req.Activo != nil {
		g.Activo = *req.Activo
	}
	if err := s.grupos.Update(ctx, g); err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadGrupo, g.ID, "actualizar", "Grupo "+g.Nombre+" actualizado",
		map[string]any{"activo": g.Activo})
	resp := grupoToResponse(g)
	return &resp, nil
}

// ── Memberships ──────────────────────────────────────────────────────────────

// puedeGestionarMiembros admits administrators and the docente leading the group.
func puedeGestionarMiembros(a Actor, g *model.Grupo) error {
	if a.Perfil.EsAdmin() {
		return nil
	}
	if m := g.Miembro(a.UsuarioID); m != nil && m.Rol == model.RolGrupoResponsable && a.Perfil.TieneRol(model.RolDocente) {
		return nil
	}
	return domainerr.NoAutorizado("solo administradores o el docente responsable pueden gestionar los miembros del grupo")
}

// AsignarRolMiembro adds usuarioID to the group with rol, or changes the role of
// an existing membership. Promoting a new responsable demotes the previous one
// to asistente in the same transaction. The group row stays locked throughout,
// so concurrent promotions serialise and the last one wins.
func (s *grupoService) AsignarRolMiembro(ctx context.Context, actor Actor, grupoID, usuarioID uuid.UUID, req dto.AsignarRolMiembroRequest) (*dto.GrupoResponse, error) {
	rol := model.RolGrupo(req.Rol)
	if !rol.Valido() {
		return nil, domainerr.Validacion("rol de grupo %q desconocido", req.Rol)
	}
	u, err := s.usuarios.FindByID(ctx, usuarioID)
	if err != nil {
		return nil, renombrarNoEncontrado(err, "usuario %s no encontrado", usuarioID)
	}

	var anterior model.RolGrupo
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, err := s.grupos.LockByID(ctx, grupoID)
		if err != nil {
			return err
		}
		if err := puedeGestionarMiembros(actor, g); err != nil {
			return err
		}
		actual := g.Miembro(usuarioID)
		if actual != nil {
			anterior = actual.Rol
			if actual.Rol == rol {
				return nil
			}
		}

		if rol == model.RolGrupoResponsable {
			// Demote first: the partial unique index allows one responsable at a time.
			for _, r := range g.Responsables() {
				if r.UsuarioID == usuarioID {
					continue
				}
				if err := s.grupos.UpdateRolMiembro(ctx, r.ID, model.RolGrupoAsistente); err != nil {
					return err
				}
			}
		} else if actual != nil && actual.Rol == model.RolGrupoResponsable && len(g.Responsables()) <= 1 {
			return domainerr.Invariante("el grupo quedaria sin responsable", u.Nombre)
		}

		if rol == model.RolGrupoEstudiante {
			ocupados, err := s.grupos.FindMembresiasEstudiante(ctx, []uuid.UUID{usuarioID})
			if err != nil {
				return err
			}
			for _, m := range ocupados {
				if m.GrupoID != g.ID {
					return domainerr.Invariante("el estudiante ya pertenece a otro grupo", u.Nombre)
				}
			}
		}

		if actual != nil {
			return s.grupos.UpdateRolMiembro(ctx, actual.ID, rol)
		}
		return s.grupos.CreateMiembro(ctx, &model.MiembroGrupo{GrupoID: g.ID, UsuarioID: usuarioID, Rol: rol})
	})
	if err != nil {
		return nil, err
	}

	if anterior != rol {
		s.registro.Registrar(ctx, actor, model.EntidadGrupo, grupoID, "asignar_rol", u.Nombre+" ahora es "+string(rol),
			map[string]any{"usuario_id": usuarioID, "rol_anterior": anterior, "rol": rol})
	}
	return s.ObtenerPorID(ctx, grupoID)
}

func (s *grupoService) QuitarMiembro(ctx context.Context, actor Actor, grupoID, usuarioID uuid.UUID) (*dto.GrupoResponse, error) {
	var quitado model.MiembroGrupo
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		g, err := s.grupos.LockByID(ctx, grupoID)
		if err != nil {
			return err
		}
		if err := puedeGestionarMiembros(actor, g); err != nil {
			return err
		}
		m := g.Miembro(usuarioID)
		if m == nil {
			return domainerr.NoEncontrado("el usuario %s no es miembro del grupo %s", usuarioID, g.Nombre)
		}
		if m.Rol == model.RolGrupoResponsable && len(g.Responsables()) <= 1 {
			return domainerr.Invariante("no se puede quitar al unico responsable del grupo", nombreMiembro(*m))
		}
		quitado = *m
		return s.grupos.DeleteMiembro(ctx, m.ID)
	})
	if err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadGrupo, grupoID, "quitar_miembro", nombreMiembro(quitado)+" quitado del grupo",
		map[string]any{"usuario_id": usuarioID, "rol": quitado.Rol})
	return s.ObtenerPorID(ctx, grupoID)
}

// ── Eliminar ─────────────────────────────────────────────────────────────────

func (s *grupoService) Eliminar(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	var g *model.Grupo
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		g, err = s.grupos.LockByID(ctx, id)
		if err != nil {
			return err
		}
		n, err := s.tramites.CountByGrupo(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domainerr.Invariante("el grupo tiene tramites asociados y no puede eliminarse", g.Nombre)
		}
		return s.grupos.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.registro.Registrar(ctx, actor, model.EntidadGrupo, id, "eliminar", "Grupo "+g.Nombre+" eliminado", nil)
	return nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

func (s *grupoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.GrupoResponse, error) {
	g, err := s.grupos.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := grupoToResponse(g)
	return &resp, nil
}

func (s *grupoService) Listar(ctx context.Context) ([]dto.GrupoResponse, error) {
	grupos, err := s.grupos.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GrupoResponse, len(grupos))
	for i := range grupos {
		out[i] = grupoToResponse(&grupos[i])
	}
	return out, nil
}
