package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError_TransicionInvalida(t *testing.T) {
	err := fmt.Errorf("cambiar estado: %w",
		domainerr.TransicionInvalida("pasar a pendiente", "finalizado", []string{"en_tramite", "desistido"}))

	status, body := FromError(err)

	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "transicion_invalida", body.Tipo)
	assert.Equal(t, "finalizado", body.EstadoActual)
	assert.Equal(t, []string{"en_tramite", "desistido"}, body.Permitidos)
}

func TestFromError_Kinds(t *testing.T) {
	cases := map[error]int{
		domainerr.NoEncontrado("x"):      http.StatusNotFound,
		domainerr.NoAutorizado("x"):      http.StatusForbidden,
		domainerr.Validacion("x"):        http.StatusUnprocessableEntity,
		domainerr.Conflicto("x"):         http.StatusConflict,
		domainerr.Invariante("x", "a"):   http.StatusConflict,
		errors.New("connection refused"): http.StatusInternalServerError,
	}
	for err, want := range cases {
		status, _ := FromError(err)
		assert.Equal(t, want, status, err.Error())
	}
}

func TestFromError_InternalDoesNotLeak(t *testing.T) {
	_, body := FromError(errors.New("pq: password authentication failed"))
	assert.Equal(t, "Error interno del servidor", body.Detail)
}

func TestAPIError_PermitidosSiempreEnTransiciones(t *testing.T) {
	_, body := FromError(domainerr.TransicionInvalida("asignar grupo", "iniciada", nil))
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"`+body.Detail+`","tipo":"transicion_invalida","estado_actual":"iniciada","permitidos":[]}`, string(raw))

	_, body = FromError(domainerr.NoEncontrado("ficha no encontrada"))
	raw, err = json.Marshal(body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"detail":"ficha no encontrada","tipo":"no_encontrado"}`, string(raw))
}
