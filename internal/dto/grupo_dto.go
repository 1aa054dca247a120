package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CrearGrupoRequest struct {
	Nombre        string   `json:"nombre"         validate:"required,min=2,max=100"`
	Descripcion   *string  `json:"descripcion"    validate:"omitempty,max=1000"`
	ResponsableID string   `json:"responsable_id" validate:"required,uuid"`
	Asistentes    []string `json:"asistentes"     validate:"omitempty,dive,uuid"`
	Estudiantes   []string `json:"estudiantes"    validate:"omitempty,dive,uuid"`
}

type ActualizarGrupoRequest struct {
	Nombre      string  `json:"nombre"      validate:"omitempty,min=2,max=100"`
	Descripcion *string `json:"descripcion" validate:"omitempty,max=1000"`
	Activo      *bool   `json:"activo"`
}

type AsignarRolMiembroRequest struct {
	Rol string `json:"rol" validate:"required,oneof=responsable asistente estudiante"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MiembroResponse struct {
	UsuarioID string `json:"usuario_id"`
	Nombre    string `json:"nombre,omitempty"`
	Email     string `json:"email,omitempty"`
	Rol       string `json:"rol"`
}

type GrupoResponse struct {
	ID          string            `json:"id"`
	Nombre      string            `json:"nombre"`
	Descripcion *string           `json:"descripcion"`
	Activo      bool              `json:"activo"`
	Miembros    []MiembroResponse `json:"miembros"`
}
