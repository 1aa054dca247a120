package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/config"
	"github.com/TabareCasalas/SiGeST-sub000/internal/domainerr"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository/memoria"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// hoy is the fixed clock of every service under test.
var hoy = time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)

const testPassword = "secreto123"

// capturaNotificador records every batch; err makes it fail.
type capturaNotificador struct {
	mu      sync.Mutex
	batches [][]model.Notificacion
	err     error
}

func (c *capturaNotificador) Notificar(_ context.Context, ns []model.Notificacion) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.batches = append(c.batches, ns)
	return nil
}

func (c *capturaNotificador) ultimo() []model.Notificacion {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.batches) == 0 {
		return nil
	}
	return c.batches[len(c.batches)-1]
}

func (c *capturaNotificador) total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.batches)
}

func destinatarios(ns []model.Notificacion) []uuid.UUID {
	out := make([]uuid.UUID, len(ns))
	for i, n := range ns {
		out[i] = n.UsuarioID
	}
	return out
}

type entorno struct {
	store   *memoria.Store
	notif   *capturaNotificador
	metrics *metrics.Metrics
	tokens  *memoria.TokenStore
	cfg     *config.Config

	fichas         FichaService
	tramites       TramiteService
	grupos         GrupoService
	usuarios       UsuarioService
	auth           AuthService
	notificaciones NotificacionService
	auditoria      AuditoriaService
}

func nuevoEntorno(t *testing.T) *entorno {
	t.Helper()
	store := memoria.NewStore()
	notif := &capturaNotificador{}
	m := metrics.New(prometheus.NewRegistry())
	fanout := NewFanout(notif, m)
	registro := NewRegistro(AuditorDirecto{Repo: store.Auditoria()}, m)
	cfg := &config.Config{JWTSecret: "test-secret-with-at-least-32-characters", JWTExpirationHours: 1, JWTRefreshHours: 24}
	tokens := memoria.NewTokenStore()

	fichas := NewFichaService(store.Transactor(), store.Fichas(), store.Tramites(), store.Usuarios(), store.Grupos(), store.Secuencias(), fanout, registro, m)
	fichas.(*fichaService).now = func() time.Time { return hoy }
	tramites := NewTramiteService(store.Transactor(), store.Tramites(), store.Grupos(), store.Usuarios(), store.HojaRuta(), store.Documentos(), store.Secuencias(), fanout, registro, m, t.TempDir())
	tramites.(*tramiteService).now = func() time.Time { return hoy }

	return &entorno{
		store:          store,
		notif:          notif,
		metrics:        m,
		tokens:         tokens,
		cfg:            cfg,
		fichas:         fichas,
		tramites:       tramites,
		grupos:         NewGrupoService(store.Transactor(), store.Grupos(), store.Usuarios(), store.Tramites(), registro),
		usuarios:       NewUsuarioService(store.Transactor(), store.Usuarios(), registro),
		auth:           NewAuthService(store.Usuarios(), tokens, registro, cfg),
		notificaciones: NewNotificacionService(store.Notificaciones(), store.Usuarios(), registro),
		auditoria:      NewAuditoriaService(store.Auditoria()),
	}
}

var hashTest []byte

// usuario stores a user with rol as primary grant and the given secondary grants.
func (e *entorno) usuario(t *testing.T, nombre string, rol model.Rol, nivel int, secundarios ...model.GrantRol) *model.Usuario {
	t.Helper()
	if hashTest == nil {
		var err error
		hashTest, err = bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
		require.NoError(t, err)
	}
	u := &model.Usuario{
		Nombre:       nombre,
		Email:        nombre + "@clinica.test",
		PasswordHash: string(hashTest),
		Rol:          rol,
		NivelAcceso:  nivel,
		Activo:       true,
	}
	for _, g := range secundarios {
		u.RolesSecundarios = append(u.RolesSecundarios, model.RolSecundario{Rol: g.Rol, NivelAcceso: g.NivelAcceso})
	}
	require.NoError(t, e.store.Usuarios().Create(context.Background(), u))
	return u
}

func (e *entorno) admin(t *testing.T) *model.Usuario {
	return e.usuario(t, "admin-"+uuid.NewString()[:6], model.RolAdministrador, model.NivelSistema)
}

func actorDe(u *model.Usuario) Actor {
	return Actor{UsuarioID: u.ID, Perfil: u.Perfil(), IP: "10.0.0.1"}
}

// grupoBase is a group with a docente lead, one assistant and two students.
type grupoBase struct {
	id                 uuid.UUID
	lead, asistente    *model.Usuario
	est1, est2         *model.Usuario
	admin, consultante *model.Usuario
}

func (e *entorno) grupoBase(t *testing.T) grupoBase {
	t.Helper()
	ctx := context.Background()
	gb := grupoBase{
		admin:       e.admin(t),
		lead:        e.usuario(t, "lead-"+uuid.NewString()[:6], model.RolDocente, 1),
		asistente:   e.usuario(t, "asis-"+uuid.NewString()[:6], model.RolDocente, 1),
		est1:        e.usuario(t, "est1-"+uuid.NewString()[:6], model.RolEstudiante, 1),
		est2:        e.usuario(t, "est2-"+uuid.NewString()[:6], model.RolEstudiante, 1),
		consultante: e.usuario(t, "cons-"+uuid.NewString()[:6], model.RolConsultante, 1),
	}
	g, err := e.grupos.Crear(ctx, actorDe(gb.admin), dto.CrearGrupoRequest{
		Nombre:        "Grupo " + uuid.NewString()[:6],
		ResponsableID: gb.lead.ID.String(),
		Asistentes:    []string{gb.asistente.ID.String()},
		Estudiantes:   []string{gb.est1.ID.String(), gb.est2.ID.String()},
	})
	require.NoError(t, err)
	gb.id = uuid.MustParse(g.ID)
	return gb
}

func requireKind(t *testing.T, err error, kind domainerr.Kind) *domainerr.Error {
	t.Helper()
	require.Error(t, err)
	de, ok := domainerr.As(err)
	require.Truef(t, ok, "expected domain error, got %v", err)
	require.Equalf(t, kind, de.Kind, "error: %v", err)
	return de
}

var errCola = errors.New("redis: connection refused")

func ptr[T any](v T) *T { return &v }
