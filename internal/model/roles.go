package model

import "slices"

// Rol is a system-wide role a user can act as.
type Rol string

const (
	RolEstudiante    Rol = "estudiante"
	RolDocente       Rol = "docente"
	RolConsultante   Rol = "consultante"
	RolAdministrador Rol = "administrador"
)

// Access levels for the administrador role.
const (
	NivelOperativo = 1
	NivelSistema   = 3
)

func (r Rol) Valido() bool {
	switch r {
	case RolEstudiante, RolDocente, RolConsultante, RolAdministrador:
		return true
	}
	return false
}

// GrantRol is one role held by a user together with the access level it grants.
// NivelAcceso only matters for administrador grants.
type GrantRol struct {
	Rol         Rol `json:"rol"`
	NivelAcceso int `json:"nivel_acceso,omitempty"`
}

// PerfilRoles is the role bundle of a single user: the primary grant, an
// optional active-role override and any secondary grants.
type PerfilRoles struct {
	Principal   GrantRol
	Activo      *Rol
	Secundarios []GrantRol
}

// RolEfectivo is the role the user is currently acting as.
func (p PerfilRoles) RolEfectivo() Rol {
	if p.Activo != nil && *p.Activo != "" {
		return *p.Activo
	}
	return p.Principal.Rol
}

// RolesDisponibles returns the primary role followed by the secondary roles in
// grant order, without duplicates.
func (p PerfilRoles) RolesDisponibles() []Rol {
	roles := make([]Rol, 0, 1+len(p.Secundarios))
	if p.Principal.Rol != "" {
		roles = append(roles, p.Principal.Rol)
	}
	for _, g := range p.Secundarios {
		if g.Rol == "" || slices.Contains(roles, g.Rol) {
			continue
		}
		roles = append(roles, g.Rol)
	}
	return roles
}

func (p PerfilRoles) TieneRol(r Rol) bool {
	return slices.Contains(p.RolesDisponibles(), r)
}

// TieneAlgunRol reports whether any of roles is available to the user.
func (p PerfilRoles) TieneAlgunRol(roles ...Rol) bool {
	disponibles := p.RolesDisponibles()
	for _, r := range roles {
		if slices.Contains(disponibles, r) {
			return true
		}
	}
	return false
}

// NivelAccesoAdmin returns the access level of the grant supplying the
// administrador role: the primary grant when it is administrador, otherwise the
// first secondary administrador grant. Users without the role get 0.
func (p PerfilRoles) NivelAccesoAdmin() int {
	if p.Principal.Rol == RolAdministrador {
		return p.Principal.NivelAcceso
	}
	for _, g := range p.Secundarios {
		if g.Rol == RolAdministrador {
			return g.NivelAcceso
		}
	}
	return 0
}

func (p PerfilRoles) EsAdmin() bool { return p.TieneRol(RolAdministrador) }

// EsAdminSistema reports whether the user holds system-level administration.
func (p PerfilRoles) EsAdminSistema() bool { return p.NivelAccesoAdmin() >= NivelSistema }
