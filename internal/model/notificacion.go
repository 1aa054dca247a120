package model

import (
	"time"

	"github.com/google/uuid"
)

// TipoNotificacion is the severity shown to the recipient.
type TipoNotificacion string

const (
	NotificacionInfo    TipoNotificacion = "info"
	NotificacionSuccess TipoNotificacion = "success"
	NotificacionWarning TipoNotificacion = "warning"
	NotificacionError   TipoNotificacion = "error"
)

// Notificacion is an in-app message for a single recipient.
// Only the recipient may flip Leida.
type Notificacion struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UsuarioID   uuid.UUID        `gorm:"type:uuid;not null;index"`
	EmisorID    *uuid.UUID       `gorm:"type:uuid"`
	Titulo      string           `gorm:"not null"`
	Mensaje     string           `gorm:"type:text;not null"`
	Tipo        TipoNotificacion `gorm:"type:varchar(10);not null;default:'info'"`
	EntidadTipo *string          `gorm:"type:varchar(30)"`
	EntidadID   *uuid.UUID       `gorm:"type:uuid"`
	TramiteID   *uuid.UUID       `gorm:"type:uuid;index"`
	Leida       bool             `gorm:"not null;default:false"`
	LeidaAt     *time.Time
	CreatedAt   time.Time
}

func (Notificacion) TableName() string { return "notificaciones" }
