package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMapError_NotFound(t *testing.T) {
	err := mapError(fmt.Errorf("first: %w", gorm.ErrRecordNotFound), "ficha")
	assert.True(t, errors.Is(err, domainerr.ErrNoEncontrado))
}

func TestMapError_UniqueViolations(t *testing.T) {
	estudiante := &pgconn.PgError{Code: "23505", ConstraintName: IdxEstudianteUnico}
	assert.Equal(t, domainerr.KindInvariante, domainerr.KindOf(mapError(estudiante, "miembro")))

	responsable := &pgconn.PgError{Code: "23505", ConstraintName: IdxResponsableUnico}
	assert.Equal(t, domainerr.KindInvariante, domainerr.KindOf(mapError(responsable, "miembro")))

	carpeta := &pgconn.PgError{Code: "23505", ConstraintName: "idx_tramites_numero_carpeta"}
	assert.Equal(t, domainerr.KindConflicto, domainerr.KindOf(mapError(carpeta, "tramite")))
}

func TestMapError_Passthrough(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))

	fk := &pgconn.PgError{Code: "23503"}
	err := mapError(fk, "tramite")
	assert.Equal(t, domainerr.Kind(""), domainerr.KindOf(err))
	assert.ErrorIs(t, err, fk)
}
