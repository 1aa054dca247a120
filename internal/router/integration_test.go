//go:build integration

package router

// End-to-end tests over real Postgres and Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/config"
	"github.com/TabareCasalas/SiGeST-sub000/internal/dto"
	"github.com/TabareCasalas/SiGeST-sub000/internal/infra"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"
	"github.com/TabareCasalas/SiGeST-sub000/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"golang.org/x/crypto/bcrypt"
)

type integrationEnv struct {
	*testEnv
	repos repository.Repos
}

func setupIntegration(t *testing.T) *integrationEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:15-alpine"),
		tcPostgres.WithDatabase("sigest_test"),
		tcPostgres.WithUsername("sigest"),
		tcPostgres.WithPassword("sigest"),
		tcPostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.RunContainer(ctx, testcontainers.WithImage("redis:7-alpine"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "integration-secret-with-at-least-32-chars",
		JWTExpirationHours: 1,
		JWTRefreshHours:    24,
		DatabaseURL:        pgURL,
		RedisURL:           rdURL,
		WorkerPoolSize:     2,
		PDFStoragePath:     t.TempDir(),
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	require.NoError(t, err)
	rdb, err := infra.NewRedis(cfg.RedisURL)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	repos := repository.NewGormRepos(db)
	dispatcher := worker.NewDispatcher(rdb)

	poolCtx, cancel := context.WithCancel(ctx)
	pool := worker.NewPool(rdb, cfg.WorkerPoolSize, m)
	pool.Handle(worker.JobNotificacion, worker.NewNotificacionWorker(
		service.NotificadorDirecto{Repo: repos.Notificaciones}, repos.Usuarios, nil, "").Handle)
	pool.Handle(worker.JobAuditoria, worker.NewAuditoriaWorker(service.AuditorDirecto{Repo: repos.Auditoria}).Handle)
	pool.Start(poolCtx)
	t.Cleanup(func() {
		cancel()
		pool.Wait()
	})

	engine := New(cfg, Deps{
		Repos:       repos,
		Notificador: dispatcher,
		Auditor:     dispatcher,
		Tokens:      infra.NewRedisTokenStore(rdb),
		Metrics:     m,
		Gatherer:    reg,
		DBPing:      sqlDB.PingContext,
		RedisPing:   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	env := &integrationEnv{testEnv: &testEnv{engine: engine, hash: hash}, repos: repos}
	return env
}

func (e *integrationEnv) usuario(t *testing.T, nombre string, rol model.Rol, nivel int) *model.Usuario {
	t.Helper()
	u := &model.Usuario{
		Nombre:       nombre,
		Email:        nombre + "@clinica.test",
		PasswordHash: string(e.hash),
		Rol:          rol,
		NivelAcceso:  nivel,
		Activo:       true,
	}
	require.NoError(t, e.repos.Usuarios.Create(context.Background(), u))
	return u
}

func TestIntegration_FlujoConEfectosAsincronicos(t *testing.T) {
	e := setupIntegration(t)
	admin := e.usuario(t, "admin", model.RolAdministrador, model.NivelSistema)
	lead := e.usuario(t, "lead", model.RolDocente, model.NivelOperativo)
	est := e.usuario(t, "est", model.RolEstudiante, model.NivelOperativo)
	cons := e.usuario(t, "cons", model.RolConsultante, model.NivelOperativo)

	adminTok := e.login(t, admin).AccessToken
	estTok := e.login(t, est).AccessToken

	w := e.do(t, http.MethodGet, "/health", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = e.do(t, http.MethodPost, "/v1/grupos", dto.CrearGrupoRequest{
		Nombre: "Grupo Integracion", ResponsableID: lead.ID.String(), Estudiantes: []string{est.ID.String()},
	}, adminTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var grupo dto.GrupoResponse
	decode(t, w, &grupo)

	w = e.do(t, http.MethodPost, "/v1/tramites", dto.CrearTramiteRequest{
		ConsultanteID: cons.ID.String(), GrupoID: grupo.ID,
	}, adminTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var tr dto.TramiteResponse
	decode(t, w, &tr)
	assert.Equal(t, "pendiente", tr.Estado)

	w = e.do(t, http.MethodPatch, "/v1/tramites/"+tr.ID+"/estado", dto.CambiarEstadoTramiteRequest{Estado: "en_tramite"}, adminTok)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Notifications and audit rows arrive through the Redis queue.
	require.Eventually(t, func() bool {
		w := e.do(t, http.MethodGet, "/v1/notificaciones/no-leidas", nil, estTok)
		var c dto.ContadorResponse
		decode(t, w, &c)
		return c.Total >= 2
	}, 15*time.Second, 200*time.Millisecond)

	require.Eventually(t, func() bool {
		w := e.do(t, http.MethodGet, "/v1/auditoria?entidad_tipo=tramite&entidad_id="+tr.ID, nil, adminTok)
		var aud dto.AuditoriaListResponse
		decode(t, w, &aud)
		return aud.Total >= 2
	}, 15*time.Second, 200*time.Millisecond)
}

// Concurrent promotions serialise on the group row: exactly one lead remains.
func TestIntegration_PromocionesConcurrentes(t *testing.T) {
	e := setupIntegration(t)
	admin := e.usuario(t, "admin", model.RolAdministrador, model.NivelSistema)
	lead := e.usuario(t, "lead", model.RolDocente, model.NivelOperativo)
	a1 := e.usuario(t, "asis1", model.RolDocente, model.NivelOperativo)
	a2 := e.usuario(t, "asis2", model.RolDocente, model.NivelOperativo)
	adminTok := e.login(t, admin).AccessToken

	w := e.do(t, http.MethodPost, "/v1/grupos", dto.CrearGrupoRequest{
		Nombre: "Grupo Concurrente", ResponsableID: lead.ID.String(),
		Asistentes: []string{a1.ID.String(), a2.ID.String()},
	}, adminTok)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var grupo dto.GrupoResponse
	decode(t, w, &grupo)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i, u := range []*model.Usuario{a1, a2} {
		wg.Add(1)
		go func(i int, u *model.Usuario) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPut, "/v1/grupos/"+grupo.ID+"/miembros/"+u.ID.String(),
				jsonReader(t, dto.AsignarRolMiembroRequest{Rol: "responsable"}))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+adminTok)
			rec := httptest.NewRecorder()
			e.engine.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i, u)
	}
	wg.Wait()
	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)

	w = e.do(t, http.MethodGet, "/v1/grupos/"+grupo.ID, nil, adminTok)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &grupo)
	leads := 0
	for _, m := range grupo.Miembros {
		if m.Rol == string(model.RolGrupoResponsable) {
			leads++
		}
	}
	assert.Equal(t, 1, leads)
	assert.Len(t, grupo.Miembros, 3)
}

func jsonReader(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}
