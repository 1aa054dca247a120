package router

import (
	"time"

	"github.com/TabareCasalas/SiGeST-sub000/internal/config"
	"github.com/TabareCasalas/SiGeST-sub000/internal/handler"
	"github.com/TabareCasalas/SiGeST-sub000/internal/metrics"
	"github.com/TabareCasalas/SiGeST-sub000/internal/middleware"
	"github.com/TabareCasalas/SiGeST-sub000/internal/model"
	"github.com/TabareCasalas/SiGeST-sub000/internal/repository"
	"github.com/TabareCasalas/SiGeST-sub000/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the collaborators the composition root hands to New.
type Deps struct {
	Repos repository.Repos
	// Notificador and Auditor receive side effects after each commit; in
	// production both are the worker.Dispatcher.
	Notificador service.Notificador
	Auditor     service.Auditor
	Tokens      service.RefreshTokenStore
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	DBPing      handler.Pinger
	RedisPing   handler.Pinger
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	// ── Services ─────────────────────────────────────────────────────────────
	rp := d.Repos
	fanout := service.NewFanout(d.Notificador, d.Metrics)
	registro := service.NewRegistro(d.Auditor, d.Metrics)

	authSvc := service.NewAuthService(rp.Usuarios, d.Tokens, registro, cfg)
	usuarioSvc := service.NewUsuarioService(rp.Tx, rp.Usuarios, registro)
	fichaSvc := service.NewFichaService(rp.Tx, rp.Fichas, rp.Tramites, rp.Usuarios, rp.Grupos, rp.Secuencias, fanout, registro, d.Metrics)
	tramiteSvc := service.NewTramiteService(rp.Tx, rp.Tramites, rp.Grupos, rp.Usuarios, rp.HojaRuta, rp.Documentos, rp.Secuencias, fanout, registro, d.Metrics, cfg.PDFStoragePath)
	grupoSvc := service.NewGrupoService(rp.Tx, rp.Grupos, rp.Usuarios, rp.Tramites, registro)
	notificacionSvc := service.NewNotificacionService(rp.Notificaciones, rp.Usuarios, registro)
	auditoriaSvc := service.NewAuditoriaService(rp.Auditoria)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	usuariosH := handler.NewUsuariosHandler(usuarioSvc)
	fichasH := handler.NewFichasHandler(fichaSvc)
	tramitesH := handler.NewTramitesHandler(tramiteSvc)
	gruposH := handler.NewGruposHandler(grupoSvc)
	notificacionesH := handler.NewNotificacionesHandler(notificacionSvc)
	auditoriaH := handler.NewAuditoriaHandler(auditoriaSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DBPing, d.RedisPing))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.POST("/logout", authH.Logout)
	}

	// Protected routes. Role checks here are coarse; services enforce
	// membership and ownership.
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	admin := middleware.RequireRole(model.RolAdministrador)
	docenteOAdmin := middleware.RequireRole(model.RolDocente, model.RolAdministrador)

	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)
		v1.PATCH("/auth/rol-activo", authH.CambiarRolActivo)

		usuarios := v1.Group("/usuarios")
		{
			// docentes list users to compose groups
			usuarios.GET("", docenteOAdmin, usuariosH.Listar)
			usuarios.POST("", middleware.RequireNivelAdmin(model.NivelSistema), usuariosH.Crear)
			usuarios.PUT("/:id", admin, usuariosH.Actualizar)
			usuarios.PUT("/:id/roles", middleware.RequireNivelAdmin(model.NivelSistema), usuariosH.ReemplazarRoles)
			usuarios.DELETE("/:id", admin, usuariosH.Desactivar)
			usuarios.PATCH("/:id/reactivar", admin, usuariosH.Reactivar)
		}

		fichas := v1.Group("/fichas")
		{
			fichas.POST("", fichasH.Crear)
			fichas.GET("", fichasH.Listar)
			fichas.GET("/:id", fichasH.ObtenerPorID)
			fichas.POST("/:id/aprobar", admin, fichasH.Aprobar)
			fichas.POST("/:id/rechazar", admin, fichasH.Rechazar)
			fichas.POST("/:id/asignar-grupo", docenteOAdmin, fichasH.AsignarGrupo)
			fichas.POST("/:id/iniciar-tramite", docenteOAdmin, fichasH.IniciarTramite)
			fichas.DELETE("/:id", admin, fichasH.Eliminar)
		}

		tramites := v1.Group("/tramites")
		{
			tramites.POST("", docenteOAdmin, tramitesH.Crear)
			tramites.GET("", tramitesH.Listar)
			tramites.GET("/:id", tramitesH.ObtenerPorID)
			tramites.PATCH("/:id/estado", docenteOAdmin, tramitesH.CambiarEstado)
			tramites.POST("/:id/aprobar", admin, tramitesH.Aprobar)

			tramites.GET("/:id/hoja-ruta", tramitesH.ListarHojaRuta)
			tramites.POST("/:id/hoja-ruta", tramitesH.AgregarEntrada)
			tramites.GET("/:id/hoja-ruta/pdf", tramitesH.ExportarHojaRuta)
			tramites.PUT("/:id/hoja-ruta/:entradaId", tramitesH.EditarEntrada)
			tramites.DELETE("/:id/hoja-ruta/:entradaId", tramitesH.EliminarEntrada)

			tramites.GET("/:id/documentos", tramitesH.ListarDocumentos)
			tramites.POST("/:id/documentos", tramitesH.AdjuntarDocumento)
			tramites.DELETE("/:id/documentos/:docId", tramitesH.EliminarDocumento)
		}

		grupos := v1.Group("/grupos")
		{
			grupos.POST("", admin, gruposH.Crear)
			grupos.GET("", gruposH.Listar)
			grupos.GET("/:id", gruposH.ObtenerPorID)
			grupos.PUT("/:id", admin, gruposH.Actualizar)
			grupos.DELETE("/:id", admin, gruposH.Eliminar)
			grupos.PUT("/:id/miembros/:usuarioId", docenteOAdmin, gruposH.AsignarRolMiembro)
			grupos.DELETE("/:id/miembros/:usuarioId", docenteOAdmin, gruposH.QuitarMiembro)
		}

		notif := v1.Group("/notificaciones")
		{
			notif.GET("", notificacionesH.Listar)
			notif.GET("/no-leidas", notificacionesH.ContarNoLeidas)
			notif.PATCH("/leidas", notificacionesH.MarcarTodasLeidas)
			notif.PATCH("/:id/leida", notificacionesH.MarcarLeida)
			notif.POST("/mensajes", admin, notificacionesH.EnviarMensaje)
		}

		v1.GET("/auditoria", middleware.RequireNivelAdmin(model.NivelSistema), auditoriaH.Listar)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
