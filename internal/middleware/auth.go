package middleware

import (
	"net/http"
	"strings"

	"github.com/TabareCasalas/SiGeST-sub000/internal/apierror"
	"github.com/TabareCasalas/SiGeST-sub000/internal/auth"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const ClaimsKey = "claims"

// JWTAuth validates the Bearer access token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacion requerida"))
			return
		}

		claims, err := auth.ParseToken(secret, strings.TrimPrefix(header, "Bearer "))
		if err != nil || claims.TokenType != auth.TokenAccess || claims.UsuarioID() == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido o expirado"))
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// RequireRole rejects requests whose user holds none of roles, counting the
// primary and secondary grants.
func RequireRole(roles ...model.Rol) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || !claims.Perfil().TieneAlgunRol(roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permisos insuficientes"))
			return
		}
		c.Next()
	}
}

// RequireNivelAdmin requires the administrador role with at least nivel.
func RequireNivelAdmin(nivel int) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil || claims.Perfil().NivelAccesoAdmin() < nivel {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Nivel de acceso insuficiente"))
			return
		}
		c.Next()
	}
}

// GetClaims retrieves typed claims from the Gin context, or nil.
func GetClaims(c *gin.Context) *auth.JWTClaims {
	claims, _ := c.Get(ClaimsKey)
	typed, _ := claims.(*auth.JWTClaims)
	return typed
}
