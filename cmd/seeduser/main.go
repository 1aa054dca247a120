// Command seeduser creates or resets the initial system administrator.
//
//	SEED_EMAIL=admin@clinica.local SEED_PASSWORD=... go run ./cmd/seeduser
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/config"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"

	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	email := strings.ToLower(envOr("SEED_EMAIL", "admin@sigest.local"))
	nombre := envOr("SEED_NOMBRE", "Administrador")
	password := os.Getenv("SEED_PASSWORD")
	if len(password) < 8 {
		log.Fatal().Msg("SEED_PASSWORD debe tener al menos 8 caracteres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt error")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect error")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err = db.ExecContext(ctx, `
		INSERT INTO usuarios (nombre, email, password_hash, rol, nivel_acceso, activo, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, true, now(), now())
		ON CONFLICT (email) DO UPDATE
		SET password_hash = EXCLUDED.password_hash,
		    nombre = EXCLUDED.nombre,
		    rol = EXCLUDED.rol,
		    nivel_acceso = EXCLUDED.nivel_acceso,
		    activo = true,
		    updated_at = now()
	`, nombre, email, string(hash), string(model.RolAdministrador), model.NivelSistema)
	if err != nil {
		log.Fatal().Err(err).Msg("insert error")
	}
	fmt.Printf("Usuario '%s' creado/actualizado como administrador nivel %d\n", email, model.NivelSistema)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
