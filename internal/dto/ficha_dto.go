package dto

// ─── Filter / List ──────────────────────────────────────────────────────────

// FichaFilter is bound from query string of GET /v1/fichas.
type FichaFilter struct {
	Estado        string `form:"estado"         validate:"omitempty,oneof=pendiente standby asignada iniciada"`
	DocenteID     string `form:"docente_id"     validate:"omitempty,uuid"`
	ConsultanteID string `form:"consultante_id" validate:"omitempty,uuid"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type FichaListResponse struct {
	Data  []FichaResponse `json:"data"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearFichaRequest struct {
	ConsultanteID string  `json:"consultante_id" validate:"required,uuid"`
	DocenteID     string  `json:"docente_id"     validate:"required,uuid"`
	Tema          string  `json:"tema"           validate:"required,min=3,max=2000"`
	FechaCita     *string `json:"fecha_cita"     validate:"omitempty,datetime=2006-01-02"`
	HoraCita      *string `json:"hora_cita"      validate:"omitempty,datetime=15:04"`
	Observaciones *string `json:"observaciones"  validate:"omitempty,max=4000"`
	// Aprobada creates the ficha directly in standby; fecha and hora become mandatory.
	Aprobada bool `json:"aprobada"`
}

type AprobarFichaRequest struct {
	FechaCita *string `json:"fecha_cita" validate:"omitempty,datetime=2006-01-02"`
	HoraCita  *string `json:"hora_cita"  validate:"omitempty,datetime=15:04"`
}

type RechazarFichaRequest struct {
	Motivo string `json:"motivo" validate:"required,min=3,max=2000"`
}

type AsignarGrupoRequest struct {
	GrupoID string `json:"grupo_id" validate:"required,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type FichaResponse struct {
	ID            string  `json:"id"`
	Numero        string  `json:"numero"`
	ConsultanteID string  `json:"consultante_id"`
	DocenteID     string  `json:"docente_id"`
	Tema          string  `json:"tema"`
	FechaCita     *string `json:"fecha_cita"`
	HoraCita      *string `json:"hora_cita"`
	Estado        string  `json:"estado"`
	GrupoID       *string `json:"grupo_id"`
	TramiteID     *string `json:"tramite_id"`
	Observaciones *string `json:"observaciones"`
	Version       int     `json:"version"`
	CreatedAt     string  `json:"created_at"`
}

// IniciarTramiteResponse is returned when a ficha is converted into a case.
type IniciarTramiteResponse struct {
	Ficha   FichaResponse   `json:"ficha"`
	Tramite TramiteResponse `json:"tramite"`
}
