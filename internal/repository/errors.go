package repository

import (
	"errors"
	"fmt"

	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// Partial unique indexes created by infra.NewDatabase.
const (
	IdxEstudianteUnico  = "idx_miembros_estudiante_unico"
	IdxResponsableUnico = "idx_miembros_responsable_unico"
)

// mapError translates driver errors into the domain taxonomy. entidad names the
// row kind for messages.
func mapError(err error, entidad string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainerr.NoEncontrado("%s no encontrado", entidad)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case IdxEstudianteUnico:
			return domainerr.Invariante("el estudiante ya pertenece a otro grupo")
		case IdxResponsableUnico:
			return domainerr.Invariante("el grupo ya tiene un responsable")
		}
		return domainerr.Conflicto("%s duplicado (%s)", entidad, pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", entidad, err)
}

func errModificadoConcurrentemente(entidad string) error {
	return domainerr.Conflicto("%s modificado concurrentemente, vuelva a intentar", entidad)
}
