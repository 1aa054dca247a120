package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CambiarRolActivoRequest selects the role the user acts as. Empty clears the
// override and falls back to the primary role.
type CambiarRolActivoRequest struct {
	Rol string `json:"rol" validate:"omitempty,oneof=estudiante docente consultante administrador"`
}

type GrantRolRequest struct {
	Rol         string `json:"rol"          validate:"required,oneof=estudiante docente consultante administrador"`
	NivelAcceso int    `json:"nivel_acceso" validate:"omitempty,oneof=1 3"`
}

type CrearUsuarioRequest struct {
	Nombre           string            `json:"nombre"            validate:"required,min=2,max=100"`
	Email            string            `json:"email"             validate:"required,email"`
	Documento        *string           `json:"documento"         validate:"omitempty,max=20"`
	Telefono         *string           `json:"telefono"          validate:"omitempty,max=30"`
	Password         string            `json:"password"          validate:"required,min=8"`
	Rol              string            `json:"rol"               validate:"required,oneof=estudiante docente consultante administrador"`
	NivelAcceso      int               `json:"nivel_acceso"      validate:"omitempty,oneof=1 3"`
	RolesSecundarios []GrantRolRequest `json:"roles_secundarios" validate:"omitempty,dive"`
}

type ActualizarUsuarioRequest struct {
	Nombre    string  `json:"nombre"    validate:"omitempty,min=2,max=100"`
	Email     string  `json:"email"     validate:"omitempty,email"`
	Documento *string `json:"documento" validate:"omitempty,max=20"`
	Telefono  *string `json:"telefono"  validate:"omitempty,max=30"`
	Password  string  `json:"password"  validate:"omitempty,min=8"`
}

// RolesSecundariosRequest replaces the full set of secondary grants.
type RolesSecundariosRequest struct {
	Roles []GrantRolRequest `json:"roles" validate:"dive"`
}

// UsuarioFilter is bound from query string of GET /v1/usuarios.
type UsuarioFilter struct {
	Rol              string `form:"rol"`
	IncluirInactivos bool   `form:"incluir_inactivos"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type GrantRolResponse struct {
	Rol         string `json:"rol"`
	NivelAcceso int    `json:"nivel_acceso"`
}

type UsuarioResponse struct {
	ID               string             `json:"id"`
	Nombre           string             `json:"nombre"`
	Email            string             `json:"email"`
	Documento        *string            `json:"documento,omitempty"`
	Telefono         *string            `json:"telefono,omitempty"`
	Rol              string             `json:"rol"`
	NivelAcceso      int                `json:"nivel_acceso"`
	RolActivo        *string            `json:"rol_activo"`
	RolEfectivo      string             `json:"rol_efectivo"`
	RolesSecundarios []GrantRolResponse `json:"roles_secundarios"`
	RolesDisponibles []string           `json:"roles_disponibles"`
	Activo           bool               `json:"activo"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"` // seconds
	User         UsuarioResponse `json:"user"`
}
