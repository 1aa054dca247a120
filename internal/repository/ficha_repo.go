package repository

import (
	"context"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FichaRepository interface {
	Create(ctx context.Context, f *model.Ficha) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ficha, error)
	List(ctx context.Context, filter dto.FichaFilter) ([]model.Ficha, int64, error)
	// Update writes f only if its stored version still equals f.Version, then
	// bumps f.Version. A stale version yields a Conflicto error.
	Update(ctx context.Context, f *model.Ficha) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type fichaRepo struct{ db *gorm.DB }

func NewFichaRepository(db *gorm.DB) FichaRepository { return &fichaRepo{db: db} }

func (r *fichaRepo) Create(ctx context.Context, f *model.Ficha) error {
	if f.Version == 0 {
		f.Version = 1
	}
	return mapError(conn(ctx, r.db).Omit("Consultante", "Docente").Create(f).Error, "ficha")
}

func (r *fichaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Ficha, error) {
	var f model.Ficha
	if err := conn(ctx, r.db).First(&f, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "ficha")
	}
	return &f, nil
}

func (r *fichaRepo) List(ctx context.Context, filter dto.FichaFilter) ([]model.Ficha, int64, error) {
	var fichas []model.Ficha
	var total int64

	q := conn(ctx, r.db).Model(&model.Ficha{})
	if filter.Estado != "" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.DocenteID != "" {
		q = q.Where("docente_id = ?", filter.DocenteID)
	}
	if filter.ConsultanteID != "" {
		q = q.Where("consultante_id = ?", filter.ConsultanteID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "ficha")
	}
	err := q.Order("anio DESC, secuencia DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&fichas).Error
	return fichas, total, mapError(err, "ficha")
}

func (r *fichaRepo) Update(ctx context.Context, f *model.Ficha) error {
	res := conn(ctx, r.db).Model(&model.Ficha{}).
		Where("id = ? AND version = ?", f.ID, f.Version).
		Updates(map[string]any{
			"docente_id":    f.DocenteID,
			"tema":          f.Tema,
			"fecha_cita":    f.FechaCita,
			"hora_cita":     f.HoraCita,
			"estado":        f.Estado,
			"grupo_id":      f.GrupoID,
			"tramite_id":    f.TramiteID,
			"observaciones": f.Observaciones,
			"version":       f.Version + 1,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return mapError(res.Error, "ficha")
	}
	if res.RowsAffected == 0 {
		return errModificadoConcurrentemente("ficha")
	}
	f.Version++
	return nil
}

func (r *fichaRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res := conn(ctx, r.db).Delete(&model.Ficha{}, "id = ?", id)
	if res.Error != nil {
		return mapError(res.Error, "ficha")
	}
	if res.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound, "ficha")
	}
	return nil
}
