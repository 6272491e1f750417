package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/icap-edu/icap-portal-gateway/api/swagger"
	"github.com/icap-edu/icap-portal-gateway/internal/handler"
	"github.com/icap-edu/icap-portal-gateway/internal/middleware"
	"github.com/icap-edu/icap-portal-gateway/internal/models"
	"github.com/icap-edu/icap-portal-gateway/internal/reqcache"
	"github.com/icap-edu/icap-portal-gateway/internal/resource"
	"github.com/icap-edu/icap-portal-gateway/internal/search"
	"github.com/icap-edu/icap-portal-gateway/internal/service"
	"github.com/icap-edu/icap-portal-gateway/internal/session"
	"github.com/icap-edu/icap-portal-gateway/internal/upstream"
	"github.com/icap-edu/icap-portal-gateway/pkg/cache"
	"github.com/icap-edu/icap-portal-gateway/pkg/config"
	"github.com/icap-edu/icap-portal-gateway/pkg/logger"
	corsmiddleware "github.com/icap-edu/icap-portal-gateway/pkg/middleware/cors"
	reqidmiddleware "github.com/icap-edu/icap-portal-gateway/pkg/middleware/requestid"
)

// @title ICAP Portal Gateway
// @version 0.1.0
// @description Session gateway for the ICAP administration portals
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}

	client := upstream.New(cfg.Upstream, logr)
	validate := validator.New()

	store := session.NewRedisStore(redisClient, cfg.Session.TTL)
	requestCache := reqcache.New(redisClient, logr, 0)

	registry := resource.Default()
	resourceSvc := resource.NewService(client, logr)
	searchSvc := search.NewService(client, logr, cfg.Search.PerModuleLimit)
	metricsSvc := service.NewMetricsService()

	// Everything scoped to a session dies with it: cached list pages,
	// search generations and per-screen list state. The manager runs this
	// on logout and on the 401 teardown path alike. The resource handler
	// is assigned below; flushes only happen on live requests.
	var resourceHandler *handler.ResourceHandler
	flusher := session.FlusherFunc(func(ctx context.Context, sessionID string) error {
		searchSvc.Forget(sessionID)
		if resourceHandler != nil {
			resourceHandler.Forget(sessionID)
		}
		return requestCache.FlushSession(ctx, sessionID)
	})
	manager := session.NewManager(store, client, flusher, validate, logr, cfg.Session)
	resourceHandler = handler.NewResourceHandler(registry, resourceSvc, requestCache, metricsSvc, manager, cfg.Export.MaxRows, logr)

	// Any authenticated upstream call answered with 401 tears down the
	// session that made it. Login calls opt out via SkipUnauthorizedHook.
	client.OnUnauthorized(func(ctx context.Context) {
		if sess, ok := session.FromContext(ctx); ok {
			manager.HandleUnauthorized(ctx, sess)
		}
	})

	authHandler := handler.NewAuthHandler(manager)
	searchHandler := handler.NewSearchHandler(searchSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)
	dashboardHandler := handler.NewDashboardHandler(registry)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := redisClient.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))
	}

	sessioned := r.Group("/", middleware.Session(manager))

	auth := sessioned.Group("/auth")
	{
		auth.POST("/login", authHandler.Login(models.PortalAdmin))
		auth.POST("/docente/login", authHandler.Login(models.PortalDocente))
		auth.POST("/estudiante/login", authHandler.Login(models.PortalEstudiante))
		auth.POST("/logout", authHandler.Logout)
		auth.POST("/refresh", authHandler.Refresh)
		auth.GET("/me", authHandler.Me)
		auth.PUT("/profile", authHandler.UpdateProfile)
		auth.DELETE("/error", authHandler.ClearError)
	}

	admin := sessioned.Group("/admin", middleware.Protected(manager, string(models.RoleAdmin), string(models.RoleCoordinador)))
	{
		admin.GET("/dashboard", dashboardHandler.Dashboard(models.PortalAdmin))
		admin.GET("/metrics/summary", middleware.RoleGate(manager, string(models.RoleAdmin)), metricsHandler.Summary)

		if cfg.Search.Enabled {
			admin.GET("/search", searchHandler.Search)
		}

		resources := admin.Group("/resources", middleware.RoleGate(manager, string(models.RoleAdmin), string(models.RoleCoordinador)))
		{
			resources.GET("", resourceHandler.Catalogue)
			resources.GET("/:resource", resourceHandler.List)
			if cfg.Export.Enabled {
				resources.GET("/:resource/export", resourceHandler.Export)
			}
			resources.GET("/:resource/:id", resourceHandler.Get)
			resources.POST("/:resource", resourceHandler.Create)
			resources.PUT("/:resource/:id", resourceHandler.Update)
			resources.DELETE("/:resource/:id", middleware.Audit(logr), resourceHandler.Delete)
		}
	}

	docente := sessioned.Group("/docente", middleware.Protected(manager, string(models.RoleDocente)))
	{
		docente.GET("/dashboard", middleware.RoleGate(manager, string(models.RoleDocente)), dashboardHandler.Dashboard(models.PortalDocente))
	}

	estudiante := sessioned.Group("/estudiante", middleware.Protected(manager, string(models.RoleEstudiante)))
	{
		estudiante.GET("/dashboard", middleware.RoleGate(manager, string(models.RoleEstudiante)), dashboardHandler.Dashboard(models.PortalEstudiante))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
