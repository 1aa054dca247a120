package model

import (
	"time"

	"github.com/google/uuid"
)

// RolGrupo is the role a member plays inside a teaching group.
type RolGrupo string

const (
	RolGrupoResponsable RolGrupo = "responsable"
	RolGrupoAsistente   RolGrupo = "asistente"
	RolGrupoEstudiante  RolGrupo = "estudiante"
)

func (r RolGrupo) Valido() bool {
	return r == RolGrupoResponsable || r == RolGrupoAsistente || r == RolGrupoEstudiante
}

// Grupo is a teaching group that handles trámites.
// Invariant: exactly one responsable once created.
type Grupo struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre      string    `gorm:"uniqueIndex;not null"`
	Descripcion *string
	Activo      bool           `gorm:"not null;default:true"`
	Miembros    []MiembroGrupo `gorm:"foreignKey:GrupoID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MiembroGrupo links a user to a group. A user holds at most one estudiante
// membership across all groups.
type MiembroGrupo struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	GrupoID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grupo_usuario"`
	UsuarioID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_grupo_usuario"`
	Usuario   *Usuario  `gorm:"foreignKey:UsuarioID"`
	Rol       RolGrupo  `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (MiembroGrupo) TableName() string { return "miembros_grupo" }

// Miembro returns the membership of usuarioID, or nil.
func (g *Grupo) Miembro(usuarioID uuid.UUID) *MiembroGrupo {
	for i := range g.Miembros {
		if g.Miembros[i].UsuarioID == usuarioID {
			return &g.Miembros[i]
		}
	}
	return nil
}

// Responsables returns the members holding the lead role.
func (g *Grupo) Responsables() []MiembroGrupo {
	var out []MiembroGrupo
	for _, m := range g.Miembros {
		if m.Rol == RolGrupoResponsable {
			out = append(out, m)
		}
	}
	return out
}
