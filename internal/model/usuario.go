package model

import (
	"time"

	"github.com/google/uuid"
)

// Usuario stores clinic users. Rol is the primary role; RolActivo, when set,
// overrides it for behaviour that depends on the acting role.
type Usuario struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Nombre           string          `gorm:"not null"`
	Email            string          `gorm:"uniqueIndex;not null"`
	Documento        *string         `gorm:"type:varchar(20)"`
	Telefono         *string         `gorm:"type:varchar(30)"`
	PasswordHash     string          `gorm:"not null"`
	Rol              Rol             `gorm:"type:varchar(20);not null"`
	NivelAcceso      int             `gorm:"not null;default:1"`
	RolActivo        *Rol            `gorm:"type:varchar(20)"`
	RolesSecundarios []RolSecundario `gorm:"foreignKey:UsuarioID;constraint:OnDelete:CASCADE"`
	Activo           bool            `gorm:"not null;default:true"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RolSecundario is an additional role granted to a user.
type RolSecundario struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_usuario_rol"`
	Rol         Rol       `gorm:"type:varchar(20);not null;uniqueIndex:idx_usuario_rol"`
	NivelAcceso int       `gorm:"not null;default:1"`
	CreatedAt   time.Time
}

func (RolSecundario) TableName() string { return "usuario_roles_secundarios" }

// Perfil builds the role bundle of the user.
func (u *Usuario) Perfil() PerfilRoles {
	p := PerfilRoles{
		Principal: GrantRol{Rol: u.Rol, NivelAcceso: u.NivelAcceso},
		Activo:    u.RolActivo,
	}
	for _, rs := range u.RolesSecundarios {
		p.Secundarios = append(p.Secundarios, GrantRol{Rol: rs.Rol, NivelAcceso: rs.NivelAcceso})
	}
	return p
}
