package domainerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByKind(t *testing.T) {
	err := NoEncontrado("ficha %s no encontrada", "abc")
	wrapped := fmt.Errorf("obtener ficha: %w", err)

	assert.True(t, errors.Is(wrapped, ErrNoEncontrado))
	assert.False(t, errors.Is(wrapped, ErrConflicto))
	assert.Equal(t, KindNoEncontrado, KindOf(wrapped))
}

func TestTransicionInvalida_MessageCarriesState(t *testing.T) {
	err := TransicionInvalida("aprobar la ficha", "asignada", []string{"iniciada"})

	assert.Equal(t, "no se puede aprobar la ficha (estado actual: asignada; permitidos: iniciada)", err.Error())
	assert.True(t, errors.Is(err, ErrTransicionInvalida))
}

func TestInvariante_ListsInvolved(t *testing.T) {
	err := Invariante("estudiantes ya asignados a otro grupo", "Ana", "Luis")

	assert.Equal(t, "estudiantes ya asignados a otro grupo: Ana, Luis", err.Error())
	de, ok := As(err)
	assert.True(t, ok)
	assert.Equal(t, []string{"Ana", "Luis"}, de.Involucrados)
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
}
