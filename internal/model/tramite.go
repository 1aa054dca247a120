package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// EstadoTramite is the processing state of a case.
type EstadoTramite string

const (
	TramitePendiente  EstadoTramite = "pendiente"
	TramiteEnTramite  EstadoTramite = "en_tramite"
	TramiteFinalizado EstadoTramite = "finalizado"
	TramiteDesistido  EstadoTramite = "desistido"

	// estadoLegacyIniciado was written by older clients for en_tramite.
	estadoLegacyIniciado = "iniciado"
)

var transicionesTramite = map[EstadoTramite][]EstadoTramite{
	TramitePendiente:  {TramiteEnTramite, TramiteDesistido},
	TramiteEnTramite:  {TramiteFinalizado, TramitePendiente, TramiteDesistido},
	TramiteFinalizado: {TramiteEnTramite, TramiteDesistido},
	TramiteDesistido:  {TramiteEnTramite},
}

// NormalizarEstadoTramite canonicalizes a raw state value, mapping the legacy
// alias to en_tramite. ok is false for unknown values.
func NormalizarEstadoTramite(raw string) (EstadoTramite, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == estadoLegacyIniciado {
		return TramiteEnTramite, true
	}
	e := EstadoTramite(s)
	if _, ok := transicionesTramite[e]; !ok {
		return "", false
	}
	return e, true
}

func (e EstadoTramite) Siguientes() []EstadoTramite {
	return append([]EstadoTramite(nil), transicionesTramite[e]...)
}

func (e EstadoTramite) PuedePasarA(dst EstadoTramite) bool {
	for _, s := range transicionesTramite[e] {
		if s == dst {
			return true
		}
	}
	return false
}

// Tramite is a case opened for a consultante and handled by a group.
// NumeroCarpeta has the form T###/yy and is globally unique.
type Tramite struct {
	ID            uuid.UUID     `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NumeroCarpeta string        `gorm:"uniqueIndex;not null"`
	ConsultanteID uuid.UUID     `gorm:"type:uuid;not null;index"`
	Consultante   *Usuario      `gorm:"foreignKey:ConsultanteID"`
	GrupoID       uuid.UUID     `gorm:"type:uuid;not null;index"`
	Grupo         *Grupo        `gorm:"foreignKey:GrupoID"`
	FichaID       *uuid.UUID    `gorm:"type:uuid;uniqueIndex"`
	Estado        EstadoTramite `gorm:"type:varchar(20);not null;index"`
	FechaInicio   time.Time     `gorm:"not null"`
	FechaCierre   *time.Time
	MotivoCierre  *string   `gorm:"type:text"`
	Observaciones *string   `gorm:"type:text"`
	CreadoPor     uuid.UUID `gorm:"type:uuid;not null"`
	Version       int       `gorm:"not null;default:1"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// AfterFind canonicalizes legacy state values on load.
func (t *Tramite) AfterFind(_ *gorm.DB) error {
	if e, ok := NormalizarEstadoTramite(string(t.Estado)); ok {
		t.Estado = e
	}
	return nil
}

// EntradaHojaRuta is one entry of a case's activity log.
type EntradaHojaRuta struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TramiteID   uuid.UUID `gorm:"type:uuid;not null;index"`
	UsuarioID   uuid.UUID `gorm:"type:uuid;not null"`
	Usuario     *Usuario  `gorm:"foreignKey:UsuarioID"`
	Fecha       time.Time `gorm:"type:date;not null"`
	Descripcion string    `gorm:"type:text;not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (EntradaHojaRuta) TableName() string { return "hoja_ruta" }

// DocumentoTramite is metadata of a file attached to a case.
type DocumentoTramite struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TramiteID uuid.UUID `gorm:"type:uuid;not null;index"`
	Nombre    string    `gorm:"not null"`
	URL       string    `gorm:"type:text;not null"`
	SubidoPor uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

func (DocumentoTramite) TableName() string { return "documentos_tramite" }
