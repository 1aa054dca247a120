package repository

import (
	"context"

	"gorm.io/gorm"
)

// SecuenciaRepository issues per-year sequence numbers for fichas and trámites.
type SecuenciaRepository interface {
	Siguiente(ctx context.Context, prefijo string, anio int) (int, error)
}

type secuenciaRepo struct{ db *gorm.DB }

func NewSecuenciaRepository(db *gorm.DB) SecuenciaRepository { return &secuenciaRepo{db: db} }

// Siguiente increments the (prefijo, anio) counter atomically; the first call
// of a year returns 1.
func (r *secuenciaRepo) Siguiente(ctx context.Context, prefijo string, anio int) (int, error) {
	var ultimo int
	err := conn(ctx, r.db).Raw(`
		INSERT INTO secuencias (prefijo, anio, ultimo) VALUES (?, ?, 1)
		ON CONFLICT (prefijo, anio) DO UPDATE SET ultimo = secuencias.ultimo + 1
		RETURNING ultimo`, prefijo, anio).Scan(&ultimo).Error
	return ultimo, mapError(err, "secuencia")
}
