package dto

// NotificacionFilter is bound from query string of GET /v1/notificaciones.
type NotificacionFilter struct {
	SoloNoLeidas bool `form:"no_leidas"`
	Page         int  `form:"page,default=1"   validate:"min=1"`
	Limit        int  `form:"limit,default=50" validate:"min=1,max=200"`
}

type EnviarMensajeRequest struct {
	Destinatarios []string `json:"destinatarios" validate:"required,min=1,dive,uuid"`
	Titulo        string   `json:"titulo"        validate:"required,min=1,max=200"`
	Mensaje       string   `json:"mensaje"       validate:"required,min=1,max=4000"`
	Tipo          string   `json:"tipo"          validate:"omitempty,oneof=info success warning error"`
}

type NotificacionResponse struct {
	ID          string  `json:"id"`
	Titulo      string  `json:"titulo"`
	Mensaje     string  `json:"mensaje"`
	Tipo        string  `json:"tipo"`
	EntidadTipo *string `json:"entidad_tipo"`
	EntidadID   *string `json:"entidad_id"`
	TramiteID   *string `json:"tramite_id"`
	Leida       bool    `json:"leida"`
	CreatedAt   string  `json:"created_at"`
}

type ContadorResponse struct {
	Total int64 `json:"total"`
}
