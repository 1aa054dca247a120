// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"encoding/json"
	"net/http"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail       string   `json:"detail"`
	Tipo         string   `json:"tipo,omitempty"`
	EstadoActual string   `json:"estado_actual,omitempty"`
	Permitidos   []string `json:"permitidos,omitempty"`
	Involucrados []string `json:"involucrados,omitempty"`
}

// MarshalJSON always renders permitidos for invalid transitions, as an empty
// list when the current state is terminal.
func (e APIError) MarshalJSON() ([]byte, error) {
	type plano APIError
	if e.Tipo != string(domainerr.KindTransicionInvalida) {
		return json.Marshal(plano(e))
	}
	permitidos := e.Permitidos
	if permitidos == nil {
		permitidos = []string{}
	}
	return json.Marshal(struct {
		plano
		Permitidos []string `json:"permitidos"`
	}{plano(e), permitidos})
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Tipo   string            `json:"tipo"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Tipo: string(domainerr.KindValidacion), Fields: fields}
}

// FromError maps a service error to its HTTP status and envelope.
// Errors outside the domain taxonomy become a generic 500.
func FromError(err error) (int, *APIError) {
	de, ok := domainerr.As(err)
	if !ok {
		return http.StatusInternalServerError, New("Error interno del servidor")
	}
	body := &APIError{
		Detail:       de.Error(),
		Tipo:         string(de.Kind),
		EstadoActual: de.Actual,
		Permitidos:   de.Permitidos,
		Involucrados: de.Involucrados,
	}
	return StatusFor(de.Kind), body
}

// StatusFor returns the HTTP status used for a domain error kind.
func StatusFor(k domainerr.Kind) int {
	switch k {
	case domainerr.KindNoEncontrado:
		return http.StatusNotFound
	case domainerr.KindNoAutorizado:
		return http.StatusForbidden
	case domainerr.KindValidacion:
		return http.StatusUnprocessableEntity
	case domainerr.KindTransicionInvalida, domainerr.KindInvariante, domainerr.KindConflicto:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
