package repository

import (
	"context"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificacionRepository interface {
	CreateBatch(ctx context.Context, ns []model.Notificacion) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Notificacion, error)
	ListByUsuario(ctx context.Context, usuarioID uuid.UUID, filter dto.NotificacionFilter) ([]model.Notificacion, error)
	CountNoLeidas(ctx context.Context, usuarioID uuid.UUID) (int64, error)
	MarcarLeida(ctx context.Context, id uuid.UUID, at time.Time) error
	MarcarTodasLeidas(ctx context.Context, usuarioID uuid.UUID, at time.Time) (int64, error)
}

type notificacionRepo struct{ db *gorm.DB }

func NewNotificacionRepository(db *gorm.DB) NotificacionRepository {
	return &notificacionRepo{db: db}
}

func (r *notificacionRepo) CreateBatch(ctx context.Context, ns []model.Notificacion) error {
	if len(ns) == 0 {
		return nil
	}
	return mapError(conn(ctx, r.db).CreateInBatches(&ns, 100).Error, "notificacion")
}

func (r *notificacionRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Notificacion, error) {
	var n model.Notificacion
	if err := conn(ctx, r.db).First(&n, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "notificacion")
	}
	return &n, nil
}

func (r *notificacionRepo) ListByUsuario(ctx context.Context, usuarioID uuid.UUID, filter dto.NotificacionFilter) ([]model.Notificacion, error) {
	var ns []model.Notificacion
	q := conn(ctx, r.db).Where("usuario_id = ?", usuarioID)
	if filter.SoloNoLeidas {
		q = q.Where("leida = false")
	}
	err := q.Order("created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&ns).Error
	return ns, mapError(err, "notificacion")
}

func (r *notificacionRepo) CountNoLeidas(ctx context.Context, usuarioID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&model.Notificacion{}).
		Where("usuario_id = ? AND leida = false", usuarioID).Count(&n).Error
	return n, mapError(err, "notificacion")
}

func (r *notificacionRepo) MarcarLeida(ctx context.Context, id uuid.UUID, at time.Time) error {
	err := conn(ctx, r.db).Model(&model.Notificacion{}).Where("id = ?", id).
		Updates(map[string]any{"leida": true, "leida_at": at}).Error
	return mapError(err, "notificacion")
}

func (r *notificacionRepo) MarcarTodasLeidas(ctx context.Context, usuarioID uuid.UUID, at time.Time) (int64, error) {
	res := conn(ctx, r.db).Model(&model.Notificacion{}).
		Where("usuario_id = ? AND leida = false", usuarioID).
		Updates(map[string]any{"leida": true, "leida_at": at})
	return res.RowsAffected, mapError(res.Error, "notificacion")
}
