package repository

import (
	"context"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TramiteRepository interface {
	Create(ctx context.Context, t *model.Tramite) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Tramite, error)
	ExistsNumeroCarpeta(ctx context.Context, numero string) (bool, error)
	List(ctx context.Context, filter dto.TramiteFilter) ([]model.Tramite, int64, error)
	// Update is version-checked like FichaRepository.Update.
	Update(ctx context.Context, t *model.Tramite) error
	CountByGrupo(ctx context.Context, grupoID uuid.UUID) (int64, error)
}

type tramiteRepo struct{ db *gorm.DB }

func NewTramiteRepository(db *gorm.DB) TramiteRepository { return &tramiteRepo{db: db} }

func (r *tramiteRepo) Create(ctx context.Context, t *model.Tramite) error {
	if t.Version == 0 {
		t.Version = 1
	}
	return mapError(conn(ctx, r.db).Omit("Consultante", "Grupo").Create(t).Error, "tramite")
}

func (r *tramiteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Tramite, error) {
	var t model.Tramite
	if err := conn(ctx, r.db).First(&t, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "tramite")
	}
	return &t, nil
}

func (r *tramiteRepo) ExistsNumeroCarpeta(ctx context.Context, numero string) (bool, error) {
	var n int64
	err := conn(ctx, r.db).Model(&model.Tramite{}).Where("numero_carpeta = ?", numero).Count(&n).Error
	return n > 0, mapError(err, "tramite")
}

func (r *tramiteRepo) List(ctx context.Context, filter dto.TramiteFilter) ([]model.Tramite, int64, error) {
	var tramites []model.Tramite
	var total int64

	q := conn(ctx, r.db).Model(&model.Tramite{})
	if filter.Estado != "" {
		if e, ok := model.NormalizarEstadoTramite(filter.Estado); ok && e == model.TramiteEnTramite {
			q = q.Where("estado IN ?", []string{string(model.TramiteEnTramite), "iniciado"})
		} else {
			q = q.Where("estado = ?", filter.Estado)
		}
	}
	if filter.GrupoID != "" {
		q = q.Where("grupo_id = ?", filter.GrupoID)
	}
	if filter.ConsultanteID != "" {
		q = q.Where("consultante_id = ?", filter.ConsultanteID)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, mapError(err, "tramite")
	}
	err := q.Order("fecha_inicio DESC, created_at DESC").
		Offset(pageOffset(filter.Page, filter.Limit)).Limit(filter.Limit).
		Find(&tramites).Error
	return tramites, total, mapError(err, "tramite")
}

func (r *tramiteRepo) Update(ctx context.Context, t *model.Tramite) error {
	res := conn(ctx, r.db).Model(&model.Tramite{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(map[string]any{
			"estado":        t.Estado,
			"fecha_cierre":  t.FechaCierre,
			"motivo_cierre": t.MotivoCierre,
			"observaciones": t.Observaciones,
			"version":       t.Version + 1,
			"updated_at":    time.Now(),
		})
	if res.Error != nil {
		return mapError(res.Error, "tramite")
	}
	if res.RowsAffected == 0 {
		return errModificadoConcurrentemente("tramite")
	}
	t.Version++
	return nil
}

func (r *tramiteRepo) CountByGrupo(ctx context.Context, grupoID uuid.UUID) (int64, error) {
	var n int64
	err := conn(ctx, r.db).Model(&model.Tramite{}).Where("grupo_id = ?", grupoID).Count(&n).Error
	return n, mapError(err, "tramite")
}
