package infra

import (
	"fmt"

	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches GORM
// cannot express (partial indexes, legacy data fixes).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations creates the schema and applies the patches. Safe to re-run.
func RunMigrations(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
		return fmt.Errorf("pgcrypto: %w", err)
	}
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.RolSecundario{},
		&model.Grupo{},
		&model.MiembroGrupo{},
		&model.Ficha{},
		&model.Tramite{},
		&model.EntradaHojaRuta{},
		&model.DocumentoTramite{},
		&model.Notificacion{},
		&model.Auditoria{},
		&model.Secuencia{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// one estudiante membership per user across all groups
		{"idx_miembros_estudiante_unico", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_miembros_estudiante_unico
    ON miembros_grupo (usuario_id) WHERE rol = 'estudiante'`},
		// at most one responsable per group
		{"idx_miembros_responsable_unico", `
CREATE UNIQUE INDEX IF NOT EXISTS idx_miembros_responsable_unico
    ON miembros_grupo (grupo_id) WHERE rol = 'responsable'`},
		{"chk_fichas_estado", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_fichas_estado') THEN
    ALTER TABLE fichas ADD CONSTRAINT chk_fichas_estado
      CHECK (estado IN ('pendiente', 'standby', 'asignada', 'iniciada'));
  END IF;
END $$`},
		// legacy rows written 'iniciado' for en_tramite
		{"normalize legacy tramite state",
			`UPDATE tramites SET estado = 'en_tramite' WHERE estado = 'iniciado'`},
		{"idx_notificaciones_no_leidas", `
CREATE INDEX IF NOT EXISTS idx_notificaciones_no_leidas
    ON notificaciones (usuario_id) WHERE leida = false`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
