package repository

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentoRepository interface {
	Create(ctx context.Context, d *model.DocumentoTramite) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DocumentoTramite, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByTramite(ctx context.Context, tramiteID uuid.UUID) ([]model.DocumentoTramite, error)
}

type documentoRepo struct{ db *gorm.DB }

func NewDocumentoRepository(db *gorm.DB) DocumentoRepository { return &documentoRepo{db: db} }

func (r *documentoRepo) Create(ctx context.Context, d *model.DocumentoTramite) error {
	return mapError(conn(ctx, r.db).Create(d).Error, "documento")
}

func (r *documentoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.DocumentoTramite, error) {
	var d model.DocumentoTramite
	if err := conn(ctx, r.db).First(&d, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "documento")
	}
	return &d, nil
}

func (r *documentoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return mapError(conn(ctx, r.db).Delete(&model.DocumentoTramite{}, "id = ?", id).Error, "documento")
}

func (r *documentoRepo) ListByTramite(ctx context.Context, tramiteID uuid.UUID) ([]model.DocumentoTramite, error) {
	var docs []model.DocumentoTramite
	err := conn(ctx, r.db).Where("tramite_id = ?", tramiteID).Order("created_at ASC").Find(&docs).Error
	return docs, mapError(err, "documento")
}
