package repository

import (
	"context"
	"strings"

	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UsuarioRepository interface {
	Create(ctx context.Context, u *model.Usuario) error
	FindByEmail(ctx context.Context, email string) (*model.Usuario, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Usuario, error)
	List(ctx context.Context, filter dto.UsuarioFilter) ([]model.Usuario, error)
	Update(ctx context.Context, u *model.Usuario) error
	SetActivo(ctx context.Context, id uuid.UUID, activo bool) error
	SetRolActivo(ctx context.Context, id uuid.UUID, rol *model.Rol) error
	ReplaceRolesSecundarios(ctx context.Context, id uuid.UUID, roles []model.RolSecundario) error
}

type usuarioRepo struct{ db *gorm.DB }

func NewUsuarioRepository(db *gorm.DB) UsuarioRepository { return &usuarioRepo{db: db} }

func (r *usuarioRepo) Create(ctx context.Context, u *model.Usuario) error {
	return mapError(conn(ctx, r.db).Create(u).Error, "usuario")
}

func (r *usuarioRepo) FindByEmail(ctx context.Context, email string) (*model.Usuario, error) {
	var u model.Usuario
	err := conn(ctx, r.db).
		Preload("RolesSecundarios").
		Where("LOWER(email) = ?", strings.ToLower(email)).
		First(&u).Error
	if err != nil {
		return nil, mapError(err, "usuario")
	}
	return &u, nil
}

func (r *usuarioRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Usuario, error) {
	var u model.Usuario
	if err := conn(ctx, r.db).Preload("RolesSecundarios").First(&u, "id = ?", id).Error; err != nil {
		return nil, mapError(err, "usuario")
	}
	return &u, nil
}

func (r *usuarioRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Usuario, error) {
	var users []model.Usuario
	if len(ids) == 0 {
		return users, nil
	}
	err := conn(ctx, r.db).Where("id IN ?", ids).Find(&users).Error
	return users, mapError(err, "usuario")
}

func (r *usuarioRepo) List(ctx context.Context, filter dto.UsuarioFilter) ([]model.Usuario, error) {
	var users []model.Usuario
	q := conn(ctx, r.db).Preload("RolesSecundarios")
	if !filter.IncluirInactivos {
		q = q.Where("activo = true")
	}
	if filter.Rol != "" {
		q = q.Where("rol = ? OR id IN (SELECT usuario_id FROM usuario_roles_secundarios WHERE rol = ?)", filter.Rol, filter.Rol)
	}
	err := q.Order("nombre ASC").Find(&users).Error
	return users, mapError(err, "usuario")
}

func (r *usuarioRepo) Update(ctx context.Context, u *model.Usuario) error {
	err := conn(ctx, r.db).Model(u).
		Select("nombre", "email", "documento", "telefono", "password_hash", "rol", "nivel_acceso").
		Updates(u).Error
	return mapError(err, "usuario")
}

func (r *usuarioRepo) SetActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	res := conn(ctx, r.db).Model(&model.Usuario{}).Where("id = ?", id).Update("activo", activo)
	if res.Error != nil {
		return mapError(res.Error, "usuario")
	}
	if res.RowsAffected == 0 {
		return mapError(gorm.ErrRecordNotFound, "usuario")
	}
	return nil
}

func (r *usuarioRepo) SetRolActivo(ctx context.Context, id uuid.UUID, rol *model.Rol) error {
	err := conn(ctx, r.db).Model(&model.Usuario{}).Where("id = ?", id).Update("rol_activo", rol).Error
	return mapError(err, "usuario")
}

func (r *usuarioRepo) ReplaceRolesSecundarios(ctx context.Context, id uuid.UUID, roles []model.RolSecundario) error {
	db := conn(ctx, r.db)
	if err := db.Where("usuario_id = ?", id).Delete(&model.RolSecundario{}).Error; err != nil {
		return mapError(err, "rol secundario")
	}
	if len(roles) == 0 {
		return nil
	}
	for i := range roles {
		roles[i].UsuarioID = id
	}
	return mapError(db.Create(&roles).Error, "rol secundario")
}
