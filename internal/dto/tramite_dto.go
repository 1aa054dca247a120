package dto

// ─── Filter / List ──────────────────────────────────────────────────────────

// TramiteFilter is bound from query string of GET /v1/tramites.
type TramiteFilter struct {
	Estado        string `form:"estado"         validate:"omitempty,oneof=pendiente en_tramite finalizado desistido iniciado"`
	GrupoID       string `form:"grupo_id"       validate:"omitempty,uuid"`
	ConsultanteID string `form:"consultante_id" validate:"omitempty,uuid"`
	Page          int    `form:"page,default=1"   validate:"min=1"`
	Limit         int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type TramiteListResponse struct {
	Data  []TramiteResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearTramiteRequest struct {
	ConsultanteID string  `json:"consultante_id" validate:"required,uuid"`
	GrupoID       string  `json:"grupo_id"       validate:"required,uuid"`
	NumeroCarpeta *string `json:"numero_carpeta" validate:"omitempty,max=20"`
	Observaciones *string `json:"observaciones"  validate:"omitempty,max=4000"`
}

// CambiarEstadoTramiteRequest changes the state and/or annotates the close data.
// An empty Estado (or the current one) only updates the annotations.
type CambiarEstadoTramiteRequest struct {
	Estado       string  `json:"estado"        validate:"omitempty,oneof=pendiente en_tramite finalizado desistido iniciado"`
	MotivoCierre *string `json:"motivo_cierre" validate:"omitempty,max=4000"`
	FechaCierre  *string `json:"fecha_cierre"  validate:"omitempty,datetime=2006-01-02"`
}

type EntradaHojaRutaRequest struct {
	Fecha       string `json:"fecha"       validate:"required,datetime=2006-01-02"`
	Descripcion string `json:"descripcion" validate:"required,min=3,max=4000"`
}

type AdjuntarDocumentoRequest struct {
	Nombre string `json:"nombre" validate:"required,min=1,max=255"`
	URL    string `json:"url"    validate:"required,url"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type TramiteResponse struct {
	ID            string  `json:"id"`
	NumeroCarpeta string  `json:"numero_carpeta"`
	ConsultanteID string  `json:"consultante_id"`
	GrupoID       string  `json:"grupo_id"`
	FichaID       *string `json:"ficha_id"`
	Estado        string  `json:"estado"`
	FechaInicio   string  `json:"fecha_inicio"`
	FechaCierre   *string `json:"fecha_cierre"`
	MotivoCierre  *string `json:"motivo_cierre"`
	Observaciones *string `json:"observaciones"`
	Version       int     `json:"version"`
}

type EntradaHojaRutaResponse struct {
	ID          string `json:"id"`
	TramiteID   string `json:"tramite_id"`
	UsuarioID   string `json:"usuario_id"`
	Autor       string `json:"autor,omitempty"`
	Fecha       string `json:"fecha"`
	Descripcion string `json:"descripcion"`
	CreatedAt   string `json:"created_at"`
}

type DocumentoResponse struct {
	ID        string `json:"id"`
	TramiteID string `json:"tramite_id"`
	Nombre    string `json:"nombre"`
	URL       string `json:"url"`
	SubidoPor string `json:"subido_por"`
	CreatedAt string `json:"created_at"`
}
