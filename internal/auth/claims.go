// Package auth holds the JWT claims shared by token issuance and the HTTP
// authentication middleware.
package auth

import (
	"errors"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// JWTClaims are the custom claims embedded in access and refresh tokens.
type JWTClaims struct {
	UserID           string           `json:"user_id"`
	Email            string           `json:"email"`
	Nombre           string           `json:"nombre"`
	Rol              string           `json:"rol"`
	RolActivo        *string          `json:"rol_activo,omitempty"`
	RolesSecundarios []model.GrantRol `json:"roles_secundarios,omitempty"`
	NivelAcceso      int              `json:"nivel_acceso"`
	TokenType        string           `json:"token_type"`
	jwt.RegisteredClaims
}

// Perfil rebuilds the role bundle carried by the token.
func (c *JWTClaims) Perfil() model.PerfilRoles {
	p := model.PerfilRoles{
		Principal:   model.GrantRol{Rol: model.Rol(c.Rol), NivelAcceso: c.NivelAcceso},
		Secundarios: c.RolesSecundarios,
	}
	if c.RolActivo != nil && *c.RolActivo != "" {
		r := model.Rol(*c.RolActivo)
		p.Activo = &r
	}
	return p
}

func (c *JWTClaims) UsuarioID() uuid.UUID {
	id, _ := uuid.Parse(c.UserID)
	return id
}

// Firmar signs claims with HS256.
func Firmar(secret string, claims JWTClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, &claims).SignedString([]byte(secret))
}

// ParseToken verifies an HS256 token signed with secret and returns its claims.
func ParseToken(secret, tokenStr string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("token invalido")
	}
	return claims, nil
}
