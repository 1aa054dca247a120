package memoria

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
)

type grupoRepo struct{ s *Store }

// checkMiembro mirrors the unique indexes on miembros_grupo. Caller holds the lock.
func (s *Store) checkMiembro(m model.MiembroGrupo) error {
	for id, o := range s.miembros {
		if id == m.ID {
			continue
		}
		if o.GrupoID == m.GrupoID && o.UsuarioID == m.UsuarioID {
			return domainerr.Conflicto("miembro duplicado")
		}
		if m.Rol == model.RolGrupoEstudiante && o.Rol == model.RolGrupoEstudiante && o.UsuarioID == m.UsuarioID {
			return domainerr.Invariante("el estudiante ya pertenece a otro grupo")
		}
		if m.Rol == model.RolGrupoResponsable && o.Rol == model.RolGrupoResponsable && o.GrupoID == m.GrupoID {
			return domainerr.Invariante("el grupo ya tiene un responsable")
		}
	}
	return nil
}

// withUsuario attaches the user row to a membership. Caller holds the lock.
func (s *Store) withUsuario(m model.MiembroGrupo) model.MiembroGrupo {
	if u, ok := s.usuarios[m.UsuarioID]; ok {
		c := copyUsuario(u)
		m.Usuario = &c
	}
	return m
}

// armarGrupo returns a copy of the group with its members. Caller holds the lock.
func (s *Store) armarGrupo(g model.Grupo) model.Grupo {
	g.Miembros = nil
	for _, m := range s.miembros {
		if m.GrupoID == g.ID {
			g.Miembros = append(g.Miembros, s.withUsuario(m))
		}
	}
	sort.SliceStable(g.Miembros, func(i, j int) bool {
		return g.Miembros[i].CreatedAt.Before(g.Miembros[j].CreatedAt)
	})
	return g
}

func (r *grupoRepo) nombreTomado(nombre string, except uuid.UUID) bool {
	for id, g := range r.s.grupos {
		if id != except && strings.EqualFold(g.Nombre, nombre) {
			return true
		}
	}
	return false
}

func (r *grupoRepo) Create(_ context.Context, g *model.Grupo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.nombreTomado(g.Nombre, uuid.Nil) {
		return domainerr.Conflicto("grupo duplicado (nombre)")
	}
	g.ID = newID(g.ID)
	now := time.Now()
	g.CreatedAt, g.UpdatedAt = now, now

	added := []uuid.UUID{}
	for i := range g.Miembros {
		m := &g.Miembros[i]
		m.ID = newID(m.ID)
		m.GrupoID = g.ID
		m.CreatedAt = now.Add(time.Duration(i))
		m.UpdatedAt = m.CreatedAt
		if err := r.s.checkMiembro(*m); err != nil {
			for _, id := range added {
				delete(r.s.miembros, id)
			}
			return err
		}
		stored := *m
		stored.Usuario = nil
		r.s.miembros[m.ID] = stored
		added = append(added, m.ID)
	}
	stored := *g
	stored.Miembros = nil
	r.s.grupos[g.ID] = stored
	return nil
}

func (r *grupoRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Grupo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.grupos[id]
	if !ok {
		return nil, domainerr.NoEncontrado("grupo no encontrado")
	}
	out := r.s.armarGrupo(g)
	return &out, nil
}

func (r *grupoRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Grupo, error) {
	return r.FindByID(ctx, id)
}

func (r *grupoRepo) List(_ context.Context) ([]model.Grupo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Grupo, 0, len(r.s.grupos))
	for _, g := range r.s.grupos {
		out = append(out, r.s.armarGrupo(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nombre < out[j].Nombre })
	return out, nil
}

func (r *grupoRepo) Update(_ context.Context, g *model.Grupo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.grupos[g.ID]
	if !ok {
		return domainerr.NoEncontrado("grupo no encontrado")
	}
	if r.nombreTomado(g.Nombre, g.ID) {
		return domainerr.Conflicto("grupo duplicado (nombre)")
	}
	cur.Nombre = g.Nombre
	cur.Descripcion = g.Descripcion
	cur.Activo = g.Activo
	cur.UpdatedAt = time.Now()
	r.s.grupos[g.ID] = cur
	return nil
}

func (r *grupoRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.grupos[id]; !ok {
		return domainerr.NoEncontrado("grupo no encontrado")
	}
	for mid, m := range r.s.miembros {
		if m.GrupoID == id {
			delete(r.s.miembros, mid)
		}
	}
	delete(r.s.grupos, id)
	return nil
}

func (r *grupoRepo) FindMembresiasEstudiante(_ context.Context, usuarioIDs []uuid.UUID) ([]model.MiembroGrupo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(usuarioIDs))
	for _, id := range usuarioIDs {
		want[id] = true
	}
	out := []model.MiembroGrupo{}
	for _, m := range r.s.miembros {
		if m.Rol == model.RolGrupoEstudiante && want[m.UsuarioID] {
			out = append(out, r.s.withUsuario(m))
		}
	}
	return out, nil
}

func (r *grupoRepo) CreateMiembro(_ context.Context, m *model.MiembroGrupo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.grupos[m.GrupoID]; !ok {
		return domainerr.NoEncontrado("grupo no encontrado")
	}
	m.ID = newID(m.ID)
	if err := r.s.checkMiembro(*m); err != nil {
		return err
	}
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	stored := *m
	stored.Usuario = nil
	r.s.miembros[m.ID] = stored
	return nil
}

func (r *grupoRepo) UpdateRolMiembro(_ context.Context, miembroID uuid.UUID, rol model.RolGrupo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.miembros[miembroID]
	if !ok {
		return domainerr.NoEncontrado("miembro no encontrado")
	}
	m.Rol = rol
	if err := r.s.checkMiembro(m); err != nil {
		return err
	}
	m.UpdatedAt = time.Now()
	r.s.miembros[miembroID] = m
	return nil
}

func (r *grupoRepo) DeleteMiembro(_ context.Context, miembroID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.miembros, miembroID)
	return nil
}
