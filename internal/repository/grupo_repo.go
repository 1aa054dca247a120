package repository

import (
	"context"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GrupoRepository interface {
	Create(ctx context.Context, g *model.Grupo) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Grupo, error)
	// LockByID loads the group with its members holding a row lock on the group
	// until the surrounding transaction ends.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Grupo, error)
	List(ctx context.Context) ([]model.Grupo, error)
	Update(ctx context.Context, g *model.Grupo) error
	Delete(ctx context.Context, id uuid.UUID) error

	// FindMembresiasEstudiante returns the estudiante memberships held by any of usuarioIDs.
	FindMembresiasEstudiante(ctx context.Context, usuarioIDs []uuid.UUID) ([]model.MiembroGrupo, error)
	CreateMiembro(ctx context.Context, m *model.MiembroGrupo) error
	UpdateRolMiembro(ctx context.Context, miembroID uuid.UUID, rol model.RolGrupo) error
	DeleteMiembro(ctx context.Context, miembroID uuid.UUID) error
}

type grupoRepo struct{ db *gorm.DB }

func NewGrupoRepository(db *gorm.DB) GrupoRepository { return &grupoRepo{db: db} }

func (r *grupoRepo) Create(ctx context.Context, g *model.Grupo) error {
	return mapError(conn(ctx, r.db).Create(g).Error, "grupo")
}

func (r *grupoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Grupo, error) {
	var g model.Grupo
	err := conn(ctx, r.db).Preload("Miembros.Usuario").First(&g, "id = ?", id).Error
	if err != nil {
		return nil, mapError(err, "grupo")
	}
	return &g, nil
}

func (r *grupoRepo) LockByID(ctx context.Context, id uuid.UUID) (*model.Grupo, error) {
	var g model.Grupo
	db := conn(ctx, r.db)
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&g, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "grupo")
	}
	if err := db.Preload("Usuario").Where("grupo_id = ?", id).Find(&g.Miembros).Error; err != nil {
		return nil, mapError(err, "miembro")
	}
	return &g, nil
}

func (r *grupoRepo) List(ctx context.Context) ([]model.Grupo, error) {
	var grupos []model.Grupo
	err := conn(ctx, r.db).Preload("Miembros.Usuario").Order("nombre ASC").Find(&grupos).Error
	return grupos, mapError(err, "grupo")
}

func (r *grupoRepo) Update(ctx context.Context, g *model.Grupo) error {
	err := conn(ctx, r.db).Model(g).Select("nombre", "descripcion", "activo").Updates(g).Error
	return mapError(err, "grupo")
}

func (r *grupoRepo) Delete(ctx context.Context, id uuid.UUID) error {
	db := conn(ctx, r.db)
	if err := db.Where("grupo_id = ?", id).Delete(&model.MiembroGrupo{}).Error; err != nil {
		return mapError(err, "miembro")
	}
	res := db.Delete(&model.Grupo{}, "id = ?", id)
	if res.Error != nil {
		return mapError(res.Error, "grupo")
	}
	if res.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound, "grupo")
	}
	return nil
}

func (r *grupoRepo) FindMembresiasEstudiante(ctx context.Context, usuarioIDs []uuid.UUID) ([]model.MiembroGrupo, error) {
	var ms []model.MiembroGrupo
	if len(usuarioIDs) == 0 {
		return ms, nil
	}
	err := conn(ctx, r.db).Preload("Usuario").
		Where("usuario_id IN ? AND rol = ?", usuarioIDs, model.RolGrupoEstudiante).
		Find(&ms).Error
	return ms, mapError(err, "miembro")
}

func (r *grupoRepo) CreateMiembro(ctx context.Context, m *model.MiembroGrupo) error {
	return mapError(conn(ctx, r.db).Omit("Usuario").Create(m).Error, "miembro")
}

func (r *grupoRepo) UpdateRolMiembro(ctx context.Context, miembroID uuid.UUID, rol model.RolGrupo) error {
	err := conn(ctx, r.db).Model(&model.MiembroGrupo{}).Where("id = ?", miembroID).Update("rol", rol).Error
	return mapError(err, "miembro")
}

func (r *grupoRepo) DeleteMiembro(ctx context.Context, miembroID uuid.UUID) error {
	return mapError(conn(ctx, r.db).Delete(&model.MiembroGrupo{}, "id = ?", miembroID).Error, "miembro")
}
