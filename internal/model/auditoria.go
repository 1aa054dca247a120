package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Entity names recorded in the audit trail.
const (
	EntidadFicha        = "ficha"
	EntidadTramite      = "tramite"
	EntidadGrupo        = "grupo"
	EntidadUsuario      = "usuario"
	EntidadHojaRuta     = "hoja_ruta"
	EntidadDocumento    = "documento"
	EntidadNotificacion = "notificacion"
)

// Auditoria is an append-only record of a mutating operation.
type Auditoria struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID   *uuid.UUID     `gorm:"type:uuid;index"`
	EntidadTipo string         `gorm:"type:varchar(30);not null;index:idx_auditoria_entidad"`
	EntidadID   *uuid.UUID     `gorm:"type:uuid;index:idx_auditoria_entidad"`
	Accion      string         `gorm:"type:varchar(50);not null"`
	Detalle     string         `gorm:"type:text"`
	IP          string         `gorm:"type:varchar(45)"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"index"`
}

func (Auditoria) TableName() string { return "auditoria" }
