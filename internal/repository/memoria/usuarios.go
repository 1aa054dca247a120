package memoria

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
)

type usuarioRepo struct{ s *Store }

func copyUsuario(u model.Usuario) model.Usuario {
	u.RolesSecundarios = slices.Clone(u.RolesSecundarios)
	return u
}

func (r *usuarioRepo) emailTomado(email string, except uuid.UUID) bool {
	for id, u := range r.s.usuarios {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (r *usuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.emailTomado(u.Email, uuid.Nil) {
		return domainerr.Conflicto("usuario duplicado (email)")
	}
	u.ID = newID(u.ID)
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	for i := range u.RolesSecundarios {
		u.RolesSecundarios[i].ID = newID(u.RolesSecundarios[i].ID)
		u.RolesSecundarios[i].UsuarioID = u.ID
	}
	r.s.usuarios[u.ID] = copyUsuario(*u)
	return nil
}

func (r *usuarioRepo) FindByEmail(_ context.Context, email string) (*model.Usuario, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.usuarios {
		if strings.EqualFold(u.Email, email) {
			c := copyUsuario(u)
			return &c, nil
		}
	}
	return nil, domainerr.NoEncontrado("usuario no encontrado")
}

func (r *usuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.usuarios[id]
	if !ok {
		return nil, domainerr.NoEncontrado("usuario no encontrado")
	}
	c := copyUsuario(u)
	return &c, nil
}

func (r *usuarioRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]model.Usuario, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Usuario{}
	for _, id := range ids {
		if u, ok := r.s.usuarios[id]; ok {
			out = append(out, copyUsuario(u))
		}
	}
	return out, nil
}

func (r *usuarioRepo) List(_ context.Context, filter dto.UsuarioFilter) ([]model.Usuario, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []model.Usuario{}
	for _, u := range r.s.usuarios {
		if !filter.IncluirInactivos && !u.Activo {
			continue
		}
		if filter.Rol != "" && !u.Perfil().TieneRol(model.Rol(filter.Rol)) {
			continue
		}
		out = append(out, copyUsuario(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *usuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.usuarios[u.ID]
	if !ok {
		return domainerr.NoEncontrado("usuario no encontrado")
	}
	if r.emailTomado(u.Email, u.ID) {
		return domainerr.Conflicto("usuario duplicado (email)")
	}
	cur.Nombre = u.Nombre
	cur.Email = u.Email
	cur.Documento = u.Documento
	cur.Telefono = u.Telefono
	cur.PasswordHash = u.PasswordHash
	cur.Rol = u.Rol
	cur.NivelAcceso = u.NivelAcceso
	cur.UpdatedAt = time.Now()
	r.s.usuarios[u.ID] = cur
	return nil
}

func (r *usuarioRepo) SetActivo(_ context.Context, id uuid.UUID, activo bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.usuarios[id]
	if !ok {
		return domainerr.NoEncontrado("usuario no encontrado")
	}
	u.Activo = activo
	r.s.usuarios[id] = u
	return nil
}

func (r *usuarioRepo) SetRolActivo(_ context.Context, id uuid.UUID, rol *model.Rol) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.usuarios[id]
	if !ok {
		return domainerr.NoEncontrado("usuario no encontrado")
	}
	if rol != nil {
		v := *rol
		rol = &v
	}
	u.RolActivo = rol
	r.s.usuarios[id] = u
	return nil
}

func (r *usuarioRepo) ReplaceRolesSecundarios(_ context.Context, id uuid.UUID, roles []model.RolSecundario) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.usuarios[id]
	if !ok {
		return domainerr.NoEncontrado("usuario no encontrado")
	}
	seen := make(map[model.Rol]bool, len(roles))
	nuevos := make([]model.RolSecundario, 0, len(roles))
	for _, rs := range roles {
		if seen[rs.Rol] {
			return domainerr.Conflicto("rol secundario duplicado (%s)", rs.Rol)
		}
		seen[rs.Rol] = true
		rs.ID = newID(rs.ID)
		rs.UsuarioID = id
		nuevos = append(nuevos, rs)
	}
	u.RolesSecundarios = nuevos
	r.s.usuarios[id] = u
	return nil
}
