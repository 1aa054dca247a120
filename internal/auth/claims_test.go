package auth

import (
	"testing"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "auth-test-secret-with-at-least-32-chars"

func vigentes(tokenType string) JWTClaims {
	return JWTClaims{
		UserID:      uuid.NewString(),
		Rol:         string(model.RolAdministrador),
		NivelAcceso: model.NivelSistema,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestFirmarYParseToken(t *testing.T) {
	claims := vigentes(TokenRefresh)
	tok, err := Firmar(secret, claims)
	require.NoError(t, err)

	got, err := ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, claims.UserID, got.UserID)
	assert.Equal(t, claims.ID, got.ID)
	assert.Equal(t, TokenRefresh, got.TokenType)
	assert.Equal(t, model.NivelSistema, got.Perfil().NivelAccesoAdmin())
}

func TestParseToken_Rechaza(t *testing.T) {
	tok, err := Firmar(secret, vigentes(TokenAccess))
	require.NoError(t, err)
	_, err = ParseToken("otra-clave-de-al-menos-32-caracteres!!", tok)
	assert.Error(t, err)

	vencido := vigentes(TokenAccess)
	vencido.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	tok, err = Firmar(secret, vencido)
	require.NoError(t, err)
	_, err = ParseToken(secret, tok)
	assert.Error(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, vigentes(TokenAccess)).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = ParseToken(secret, none)
	assert.Error(t, err)
}

func TestUsuarioID_Invalido(t *testing.T) {
	c := JWTClaims{UserID: "no-es-uuid"}
	assert.Equal(t, uuid.Nil, c.UsuarioID())
}
