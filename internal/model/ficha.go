package model

import (
	"time"

	"github.com/google/uuid"
)

// EstadoFicha is the intake state of a consultation request.
type EstadoFicha string

const (
	FichaPendiente EstadoFicha = "pendiente"
	FichaStandby   EstadoFicha = "standby"
	FichaAsignada  EstadoFicha = "asignada"
	FichaIniciada  EstadoFicha = "iniciada"
)

var transicionesFicha = map[EstadoFicha][]EstadoFicha{
	FichaPendiente: {FichaStandby},
	FichaStandby:   {FichaAsignada},
	FichaAsignada:  {FichaIniciada},
	FichaIniciada:  {},
}

// Siguientes returns the states reachable from e.
func (e EstadoFicha) Siguientes() []EstadoFicha {
	return append([]EstadoFicha(nil), transicionesFicha[e]...)
}

func (e EstadoFicha) PuedePasarA(dst EstadoFicha) bool {
	for _, s := range transicionesFicha[e] {
		if s == dst {
			return true
		}
	}
	return false
}

// Ficha is a consultation request ("ficha"). Numero has the form F###/yy.
type Ficha struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero        string      `gorm:"uniqueIndex;not null"`
	Anio          int         `gorm:"not null"`
	Secuencia     int         `gorm:"not null"`
	ConsultanteID uuid.UUID   `gorm:"type:uuid;not null;index"`
	Consultante   *Usuario    `gorm:"foreignKey:ConsultanteID"`
	DocenteID     uuid.UUID   `gorm:"type:uuid;not null;index"`
	Docente       *Usuario    `gorm:"foreignKey:DocenteID"`
	Tema          string      `gorm:"type:text;not null"`
	FechaCita     *time.Time  `gorm:"type:date"`
	HoraCita      *string     `gorm:"type:varchar(5)"`
	Estado        EstadoFicha `gorm:"type:varchar(20);not null;index"`
	GrupoID       *uuid.UUID  `gorm:"type:uuid;index"`
	TramiteID     *uuid.UUID  `gorm:"type:uuid"`
	Observaciones *string     `gorm:"type:text"`
	CreadoPor     uuid.UUID   `gorm:"type:uuid;not null"`
	Version       int         `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TieneCita reports whether both appointment date and time are set.
func (f *Ficha) TieneCita() bool {
	return f.FechaCita != nil && f.HoraCita != nil && *f.HoraCita != ""
}

// Eliminable reports whether the ficha can still be removed.
func (f *Ficha) Eliminable() bool {
	return (f.Estado == FichaPendiente || f.Estado == FichaStandby) && f.GrupoID == nil && f.TramiteID == nil
}
