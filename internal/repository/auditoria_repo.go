package repository

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"gorm.io/gorm"
)

// AuditoriaRepository is append-only: there is no update or delete.
type AuditoriaRepository interface {
	Create(ctx context.Context, a *model.Auditoria) error
	List(ctx context.Context, filter dto.AuditoriaFilter) ([]model.Auditoria, int64, error)
}

type auditoriaRepo struct{ db *gorm.DB }

func NewAuditoriaRepository(db *gorm.DB) AuditoriaRepository { return &auditoriaRepo{db: db} }

func (r *auditoriaRepo) Create(ctx context.Context, a *model.Auditoria) error {
	return mapError(conn(ctx, r.db).Create(a).Error, "auditoria")
}

func (r *auditoriaRepo) List(ctx context.Context, filter dto.AuditoriaFilter) ([]model.Auditoria, int64, error) {
	var registros []model.Auditoria
	var total int64

	q := conn(ctx, r.db).Model(&model.Auditoria{})
	if filter.EntidadTipo != "" {
		q = q.Where("entidad_tipo = ?", filter.EntidadTipo)
	}
	if filter.EntidadID != "" {
		q = q.Where("entidad_id = ?", filter.EntidadID)
	}
	if filter.UsuarioID != "" {
		q = q.Where("usuario_id = ?", filter.UsuarioID)
	}
	if filter.Accion != "" {
		q = q.Where("accion = ?", filter.Accion)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "auditoria")
	}
	err := q.Order("created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&registros).Error
	return registros, total, mapError(err, "auditoria")
}
