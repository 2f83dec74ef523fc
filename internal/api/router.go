package api

import (
	"context"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	echoswagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/stackfold/hosting-system/internal/api/handler"
	"github.com/stackfold/hosting-system/internal/api/middleware"
	"github.com/stackfold/hosting-system/internal/core/ports"
	"github.com/stackfold/hosting-system/internal/core/service"
	"github.com/stackfold/hosting-system/internal/infrastructure/config"
	mongodb "github.com/stackfold/hosting-system/internal/infrastructure/db/mongo"
	redisdb "github.com/stackfold/hosting-system/internal/infrastructure/db/redis"
	"github.com/stackfold/hosting-system/internal/infrastructure/identity"
	"github.com/stackfold/hosting-system/internal/infrastructure/queue"
	"github.com/stackfold/hosting-system/pkg/logger"
)

// NewRouter builds the Echo instance with all routes registered and starts
// the background teardown workers. Workers stop when ctx is cancelled.
func NewRouter(ctx context.Context, db *mongo.Database, rdb *redis.Client, gateway ports.StorageGateway, cfg *config.Config) *echo.Echo {
	log := logger.Get()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("hosting"))

	// --- Dependencies ---
	tenantRepo := mongodb.NewTenantRepository(db)
	accountRepo := mongodb.NewAccountRepository(db)
	groupRepo := mongodb.NewGroupRepository(db)
	templateRepo := mongodb.NewTemplateRepository(db)
	sessionStore := redisdb.NewSessionStore(rdb)

	sessions := service.NewSessionService(sessionStore, cfg.Session.TTL, log)
	vault := service.NewCredentialService(accountRepo, sessions, log)
	local := service.NewLocalIdentity(vault, sessions)
	federated := service.NewFederatedIdentity(identity.NewHTTPProvider(nil), accountRepo, sessions, log)

	provisioner := service.NewProvisionService(gateway, templateRepo, service.ProvisionOptions{
		BucketPrefix: cfg.Storage.BucketPrefix,
		MaxAttempts:  cfg.Storage.MaxAttempts,
		BackoffBase:  cfg.Storage.BackoffBase,
		CallTimeout:  cfg.Storage.CallTimeout,
	}, logger.Component("provisioner"))

	teardowns := queue.NewDispatcher(cfg.Storage.TeardownWorkers, provisioner, tenantRepo, logger.Component("teardown"))
	teardowns.Start(ctx)

	tenantService := service.NewTenantService(
		tenantRepo, accountRepo, groupRepo,
		provisioner, local, federated, sessions, teardowns, log,
	)
	accessService := service.NewAccessService(tenantRepo, groupRepo, log)

	tenantHandler := handler.NewTenantHandler(tenantService)
	groupHandler := handler.NewGroupHandler(tenantService, accessService)
	sessionHandler := handler.NewSessionHandler(tenantService)
	auth := middleware.Auth(cfg.JWTSecret)

	// --- Platform routes (owner/collaborator JWT required) ---
	v1 := e.Group("/v1", auth)
	v1.POST("/tenants", tenantHandler.Create)
	v1.GET("/tenants", tenantHandler.List)
	v1.GET("/tenants/:name", tenantHandler.Get)
	v1.PATCH("/tenants/:name", tenantHandler.Update)
	v1.DELETE("/tenants/:name", tenantHandler.Delete)

	v1.POST("/tenants/:name/storage", tenantHandler.ProvisionStorage)
	v1.DELETE("/tenants/:name/storage", tenantHandler.DeprovisionStorage)
	v1.POST("/tenants/:name/template", tenantHandler.ApplyTemplate)
	v1.PUT("/tenants/:name/files", tenantHandler.PublishFile)
	v1.GET("/tenants/:name/files", tenantHandler.GetStructure)

	v1.POST("/tenants/:name/collaborators", groupHandler.AddCollaborators)
	v1.POST("/tenants/:name/groups", groupHandler.CreateGroup)
	v1.GET("/tenants/:name/groups", groupHandler.ListGroups)
	v1.GET("/tenants/:name/groups/:group", groupHandler.GetGroup)
	v1.PUT("/tenants/:name/groups/:group", groupHandler.UpdateGroup)
	v1.DELETE("/tenants/:name/groups/:group", groupHandler.DeleteGroup)
	v1.POST("/tenants/:name/directories", groupHandler.AddDirectory)
	v1.GET("/tenants/:name/permissions", groupHandler.CheckPermission)

	// --- Scoped end-user routes (session tokens, no platform JWT) ---
	e.POST("/v1/tenants/:name/auth/signup", sessionHandler.Signup)
	e.POST("/v1/tenants/:name/auth/login", sessionHandler.Login)
	e.POST("/v1/tenants/:name/auth/logout", sessionHandler.Logout)
	e.GET("/v1/tenants/:name/auth/verify", sessionHandler.Verify)

	// --- Operational endpoints ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(db, rdb)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthDepsHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())
	e.GET("/swagger/*", echoswagger.WrapHandler)

	return e
}
