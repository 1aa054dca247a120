package repository

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type HojaRutaRepository interface {
	Create(ctx context.Context, e *model.EntradaHojaRuta) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.EntradaHojaRuta, error)
	Update(ctx context.Context, e *model.EntradaHojaRuta) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByTramite returns entries ordered by fecha, then creation time.
	ListByTramite(ctx context.Context, tramiteID uuid.UUID) ([]model.EntradaHojaRuta, error)
}

type hojaRutaRepo struct{ db *gorm.DB }

func NewHojaRutaRepository(db *gorm.DB) HojaRutaRepository { return &hojaRutaRepo{db: db} }

func (r *hojaRutaRepo) Create(ctx context.Context, e *model.EntradaHojaRuta) error {
	return mapError(conn(ctx, r.db).Omit("Usuario").Create(e).Error, "entrada de hoja de ruta")
}

func (r *hojaRutaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.EntradaHojaRuta, error) {
	var e model.EntradaHojaRuta
	if err := conn(ctx, r.db).First(&e, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "entrada de hoja de ruta")
	}
	return &e, nil
}

func (r *hojaRutaRepo) Update(ctx context.Context, e *model.EntradaHojaRuta) error {
	err := conn(ctx, r.db).Model(e).Select("fecha", "descripcion").Updates(e).Error
	return mapError(err, "entrada de hoja de ruta")
}

func (r *hojaRutaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return mapError(conn(ctx, r.db).Delete(&model.EntradaHojaRuta{}, "id = ?", id).Error, "entrada de hoja de ruta")
}

func (r *hojaRutaRepo) ListByTramite(ctx context.Context, tramiteID uuid.UUID) ([]model.EntradaHojaRuta, error) {
	var entradas []model.EntradaHojaRuta
	err := conn(ctx, r.db).Preload("Usuario").
		Where("tramite_id = ?", tramiteID).
		Order("fecha ASC, created_at ASC").
		Find(&entradas).Error
	return entradas, mapError(err, "entrada de hoja de ruta")
}
