package service

import (
	"context"
	"strings"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// UsuarioService administers user accounts and their role grants.
type UsuarioService interface {
	Crear(ctx context.Context, actor Actor, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error)
	Listar(ctx context.Context, actor Actor, filter dto.UsuarioFilter) ([]dto.UsuarioResponse, error)
	Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error)
	ReemplazarRolesSecundarios(ctx context.Context, actor Actor, id uuid.UUID, req dto.RolesSecundariosRequest) (*dto.UsuarioResponse, error)
	Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error
	Reactivar(ctx context.Context, actor Actor, id uuid.UUID) error
}

type usuarioService struct {
	tx       repository.Transactor
	repo     repository.UsuarioRepository
	registro *Registro
}

func NewUsuarioService(tx repository.Transactor, repo repository.UsuarioRepository, registro *Registro) UsuarioService {
	return &usuarioService{tx: tx, repo: repo, registro: registro}
}

// administrable loads the target of an administrative command. An
// administrator may only act on accounts whose administrative access level does
// not exceed their own.
func (s *usuarioService) administrable(ctx context.Context, actor Actor, id uuid.UUID) (*model.Usuario, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.Perfil().NivelAccesoAdmin() > actor.Perfil.NivelAccesoAdmin() {
		return nil, domainerr.NoAutorizado("el usuario %s tiene un nivel de acceso superior al del administrador", user.Email)
	}
	return user, nil
}

func nivelOrDefault(n int) int {
	if n == 0 {
		return model.NivelOperativo
	}
	return n
}

// rolesSecundarios converts grants, dropping the primary role and repeats.
func rolesSecundarios(primario model.Rol, grants []dto.GrantRolRequest) ([]model.RolSecundario, error) {
	out := make([]model.RolSecundario, 0, len(grants))
	seen := map[model.Rol]bool{primario: true}
	for _, g := range grants {
		r := model.Rol(g.Rol)
		if !r.Valido() {
			return nil, domainerr.Validacion("rol %q desconocido", g.Rol)
		}
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, model.RolSecundario{Rol: r, NivelAcceso: nivelOrDefault(g.NivelAcceso)})
	}
	return out, nil
}

func (s *usuarioService) Crear(ctx context.Context, actor Actor, req dto.CrearUsuarioRequest) (*dto.UsuarioResponse, error) {
	if err := requireAdminSistema(actor); err != nil {
		return nil, err
	}
	rol := model.Rol(req.Rol)
	if !rol.Valido() {
		return nil, domainerr.Validacion("rol %q desconocido", req.Rol)
	}
	secundarios, err := rolesSecundarios(rol, req.RolesSecundarios)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &model.Usuario{
		Nombre:           req.Nombre,
		Email:            strings.ToLower(strings.TrimSpace(req.Email)),
		Documento:        req.Documento,
		Telefono:         req.Telefono,
		PasswordHash:     string(hash),
		Rol:              rol,
		NivelAcceso:      nivelOrDefault(req.NivelAcceso),
		RolesSecundarios: secundarios,
		Activo:           true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadUsuario, user.ID, "crear", "Usuario "+user.Email+" creado",
		map[string]any{"rol": user.Rol, "nivel_acceso": user.NivelAcceso})
	resp := usuarioToResponse(user)
	return &resp, nil
}

func (s *usuarioService) Listar(ctx context.Context, actor Actor, filter dto.UsuarioFilter) ([]dto.UsuarioResponse, error) {
	if err := requireRol(actor, model.RolAdministrador, model.RolDocente); err != nil {
		return nil, err
	}
	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.UsuarioResponse, len(users))
	for i := range users {
		resp[i] = usuarioToResponse(&users[i])
	}
	return resp, nil
}

func (s *usuarioService) Actualizar(ctx context.Context, actor Actor, id uuid.UUID, req dto.ActualizarUsuarioRequest) (*dto.UsuarioResponse, error) {
	user, err := s.administrable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if req.Nombre != "" {
		user.Nombre = req.Nombre
	}
	if req.Email != "" {
		user.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.Documento != nil {
		user.Documento = req.Documento
	}
	if req.Telefono != nil {
		user.Telefono = req.Telefono
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = string(hash)
	}
	if err := s.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	s.registro.Registrar(ctx, actor, model.EntidadUsuario, user.ID, "actualizar", "Usuario "+user.Email+" actualizado",
		map[string]any{"password_cambiada": req.Password != ""})
	resp := usuarioToResponse(user)
	return &resp, nil
}

// ReemplazarRolesSecundarios replaces every secondary grant. An active-role
// override that is no longer available is cleared.
func (s *usuarioService) ReemplazarRolesSecundarios(ctx context.Context, actor Actor, id uuid.UUID, req dto.RolesSecundariosRequest) (*dto.UsuarioResponse, error) {
	if err := requireAdminSistema(actor); err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	secundarios, err := rolesSecundarios(user.Rol, req.Roles)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.ReplaceRolesSecundarios(ctx, user.ID, secundarios); err != nil {
			return err
		}
		user.RolesSecundarios = secundarios
		if user.RolActivo != nil && !user.Perfil().TieneRol(*user.RolActivo) {
			if err := s.repo.SetRolActivo(ctx, user.ID, nil); err != nil {
				return err
			}
			user.RolActivo = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	roles := make([]string, len(secundarios))
	for i, r := range secundarios {
		roles[i] = string(r.Rol)
	}
	s.registro.Registrar(ctx, actor, model.EntidadUsuario, user.ID, "roles_secundarios", "Roles secundarios: "+strings.Join(roles, ", "),
		map[string]any{"roles": roles})
	resp := usuarioToResponse(user)
	return &resp, nil
}

func (s *usuarioService) Desactivar(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if id == actor.UsuarioID {
		return domainerr.Validacion("un usuario no puede desactivarse a si mismo")
	}
	if _, err := s.administrable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.SetActivo(ctx, id, false); err != nil {
		return err
	}
	s.registro.Registrar(ctx, actor, model.EntidadUsuario, id, "desactivar", "Usuario desactivado", nil)
	return nil
}

func (s *usuarioService) Reactivar(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.administrable(ctx, actor, id); err != nil {
		return err
	}
	if err := s.repo.SetActivo(ctx, id, true); err != nil {
		return err
	}
	s.registro.Registrar(ctx, actor, model.EntidadUsuario, id, "reactivar", "Usuario reactivado", nil)
	return nil
}
