package dto

import "encoding/json"

// AuditoriaFilter is bound from query string of GET /v1/auditoria.
type AuditoriaFilter struct {
	EntidadTipo string `form:"entidad_tipo"`
	EntidadID   string `form:"entidad_id" validate:"omitempty,uuid"`
	UsuarioID   string `form:"usuario_id" validate:"omitempty,uuid"`
	Accion      string `form:"accion"`
	Page        int    `form:"page,default=1"    validate:"min=1"`
	Limit       int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type AuditoriaResponse struct {
	ID          string          `json:"id"`
	UsuarioID   *string         `json:"usuario_id"`
	EntidadTipo string          `json:"entidad_tipo"`
	EntidadID   *string         `json:"entidad_id"`
	Accion      string          `json:"accion"`
	Detalle     string          `json:"detalle"`
	IP          string          `json:"ip"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type AuditoriaListResponse struct {
	Data  []AuditoriaResponse `json:"data"`
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
}
