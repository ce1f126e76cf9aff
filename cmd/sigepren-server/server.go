package main

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sigepren/sigepren/internal/config"
	"github.com/sigepren/sigepren/internal/domain/backup"
	"github.com/sigepren/sigepren/internal/domain/cita"
	"github.com/sigepren/sigepren/internal/domain/historial"
	"github.com/sigepren/sigepren/internal/domain/medico"
	"github.com/sigepren/sigepren/internal/domain/mensaje"
	"github.com/sigepren/sigepren/internal/domain/paciente"
	"github.com/sigepren/sigepren/internal/domain/reporte"
	"github.com/sigepren/sigepren/internal/domain/segmento"
	"github.com/sigepren/sigepren/internal/domain/setting"
	"github.com/sigepren/sigepren/internal/domain/usuario"
	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/cache"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/metrics"
	"github.com/sigepren/sigepren/internal/platform/middleware"
	"github.com/sigepren/sigepren/internal/platform/response"
)

// registrar is implemented by every domain handler.
type registrar interface {
	RegisterRoutes(api *echo.Group)
}

type serverDeps struct {
	Pinger   db.Pinger
	Tx       db.Transactor
	Audit    middleware.AuditRecorder
	Handlers []registrar
}

// application holds the wired domain handlers and the resources to release
// on shutdown.
type application struct {
	handlers []registrar
	audit    middleware.AuditRecorder
	closers  []func() error
}

func (a *application) Close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// indexSpecs lists the indexes of every repository.
func indexSpecs() []db.IndexSpec {
	reg := segmento.DefaultRegistry()
	var specs []db.IndexSpec
	specs = append(specs, segmento.Indexes(reg)...)
	specs = append(specs, historial.Indexes(reg.RefFields())...)
	specs = append(specs, paciente.Indexes()...)
	specs = append(specs, cita.Indexes()...)
	specs = append(specs, mensaje.Indexes()...)
	specs = append(specs, setting.Indexes()...)
	specs = append(specs, medico.Indexes()...)
	specs = append(specs, usuario.Indexes()...)
	return specs
}

func wire(ctx context.Context, cfg *config.Config, logger zerolog.Logger, database *mongo.Database, tx db.Transactor) *application {
	app := &application{audit: middleware.NewMongoAuditRecorder(database)}

	// Clinical history
	reg := segmento.DefaultRegistry()
	historialRepo := historial.NewMongoRepo(database)
	segs := segmento.NewServices(reg, func(d *segmento.Definition) segmento.Repository {
		return segmento.NewMongoRepo(database, d.Collection)
	}, historialRepo)
	pacienteRepo := paciente.NewMongoRepo(database)
	historialSvc := historial.NewService(historialRepo, pacienteRepo, segs, tx, logger)
	pacienteSvc := paciente.NewService(pacienteRepo, historialSvc, segs, cfg.MunicipioCodigo, logger)

	// Scheduling, messaging and administration
	citaSvc := cita.NewService(cita.NewMongoRepo(database), pacienteRepo, logger)
	mensajeSvc := mensaje.NewService(mensaje.NewMongoRepo(database), pacienteRepo, logger)
	settingSvc := setting.NewService(setting.NewMongoRepo(database), logger)
	medicoSvc := medico.NewService(medico.NewMongoRepo(database), logger)
	usuarioSvc := usuario.NewService(usuario.NewMongoRepo(database), usuario.TokenConfig{
		SigningKey: []byte(cfg.JWTSecretKey),
		TTL:        cfg.JWTTTL,
	}, logger)

	// Dashboard
	var store cache.Store = cache.Noop{}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, "sigepren:")
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, dashboard cache disabled")
		} else {
			store = rc
			app.closers = append(app.closers, rc.Close)
			logger.Info().Msg("dashboard cache backed by redis")
		}
	}
	gestaciones, _ := reg.Get("gestacion_actual")
	reporteSvc := reporte.NewService(
		reporte.NewMongoSource(database, segmento.NewMongoRepo(database, gestaciones.Collection), historialRepo),
		store, cfg.DashboardCacheTTL, logger,
	)

	backupSvc := backup.NewService(backup.Config{URI: cfg.MongoURI, Bin: cfg.MongodumpBin}, logger)

	app.handlers = []registrar{
		usuario.NewHandler(usuarioSvc),
		paciente.NewHandler(pacienteSvc),
		historial.NewHandler(historialSvc),
		segmento.NewHandler(segs),
		cita.NewHandler(citaSvc),
		mensaje.NewHandler(mensajeSvc),
		setting.NewHandler(settingSvc),
		medico.NewHandler(medicoSvc),
		reporte.NewHandler(reporteSvc),
		backup.NewHandler(backupSvc),
	}
	return app
}

func newServer(cfg *config.Config, logger zerolog.Logger, deps serverDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = response.HTTPErrorHandler(logger)

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-User-Id"},
	}))
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RequestTimeout > 0 {
		e.Use(middleware.RequestTimeout(cfg.RequestTimeout))
	}
	e.Use(middleware.RateLimit(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
		IdleTTL:           10 * time.Minute,
	}))

	// Auth middleware
	jwtCfg := auth.JWTConfig{SigningKey: []byte(cfg.JWTSecretKey), Skipper: auth.AuthSkipper}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(jwtCfg))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	// Audit middleware
	if deps.Audit != nil {
		e.Use(middleware.Audit(logger, deps.Audit))
	}

	// Public endpoints
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, response.Message("API funcionando"))
	})
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	if deps.Pinger != nil {
		e.GET("/health/db", db.HealthHandler(deps.Pinger, deps.Tx))
	}

	api := e.Group("/api")
	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	api.GET("/_routes", listRoutes(e))

	for _, h := range deps.Handlers {
		h.RegisterRoutes(api)
	}
	return e
}

type routeInfo struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

func listRoutes(e *echo.Echo) echo.HandlerFunc {
	return func(c echo.Context) error {
		routes := make([]routeInfo, 0, len(e.Routes()))
		for _, r := range e.Routes() {
			routes = append(routes, routeInfo{Method: r.Method, Path: r.Path})
		}
		sort.Slice(routes, func(i, j int) bool {
			if routes[i].Path != routes[j].Path {
				return routes[i].Path < routes[j].Path
			}
			return routes[i].Method < routes[j].Method
		})
		return response.OK(c, http.StatusOK, routes)
	}
}
