// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"stocktally/internal/domain/branchscope"
	"stocktally/internal/domain/catalogs/product"
	"stocktally/internal/domain/reconcile"
	"stocktally/internal/domain/registers/ledger"
	"stocktally/internal/domain/snapshot"
	"stocktally/internal/infrastructure/http/v1/handlers"
	"stocktally/internal/infrastructure/http/v1/middleware"
	"stocktally/internal/infrastructure/storage/postgres"
	"stocktally/internal/infrastructure/storage/postgres/catalog_repo"
	"stocktally/internal/infrastructure/storage/postgres/ledger_repo"
	"stocktally/internal/infrastructure/storage/postgres/report_repo"
	"stocktally/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks).
	Pool *postgres.Pool

	// TxManager manages database transactions.
	TxManager *postgres.TxManager

	// Logger for request logging.
	Logger *logger.Logger

	// JWTValidator for token validation.
	JWTValidator middleware.JWTValidator
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints (no auth required)
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// Repositories
	ledgerRepo := ledger_repo.NewLedgerRepo(cfg.TxManager)
	productRepo := catalog_repo.NewProductRepo(cfg.TxManager)
	branchRepo := catalog_repo.NewBranchRepo(cfg.TxManager)
	reportRepo, err := report_repo.NewReportRepo(cfg.TxManager)
	if err != nil {
		return nil, err
	}

	// Services
	resolver := branchscope.NewResolver(branchscope.FromUserContext())
	ledgerService := ledger.NewService(ledgerRepo, cfg.TxManager, resolver)
	productService := product.NewService(productRepo)
	engine := reconcile.NewEngine(ledgerRepo, resolver)
	snapshotService := snapshot.NewService(reportRepo, ledgerRepo, cfg.TxManager, resolver)

	// Handlers
	base := handlers.NewBaseHandler()
	ledgerHandler := handlers.NewLedgerHandler(base, ledgerService)
	reconcileHandler := handlers.NewReconcileHandler(base, engine)
	snapshotHandler := handlers.NewSnapshotHandler(base, snapshotService)
	productHandler := handlers.NewProductHandler(base, productService)
	branchHandler := handlers.NewBranchHandler(base, branchRepo)

	// API v1 (all endpoints require auth)
	api := router.Group("/api/v1")
	api.Use(middleware.Auth(cfg.JWTValidator))
	{
		counts := api.Group("/counts")
		{
			counts.POST("", ledgerHandler.RegisterCount)
			counts.POST("/reset", ledgerHandler.ResetQuantity)
		}

		records := api.Group("/records")
		{
			records.GET("/:productId", ledgerHandler.GetQuantity)
			records.GET("/:productId/total", ledgerHandler.GetTotal)
		}

		movements := api.Group("/movements")
		{
			movements.GET("", ledgerHandler.GetMovements)
			movements.GET("/recent", ledgerHandler.GetRecentMovements)
			movements.GET("/export", ledgerHandler.ExportMovements)
		}

		rec := api.Group("/reconcile")
		{
			rec.POST("", reconcileHandler.Reconcile)
			rec.POST("/export", reconcileHandler.Export)
		}

		snapshots := api.Group("/snapshots")
		{
			snapshots.POST("", snapshotHandler.Create)
			snapshots.GET("", snapshotHandler.List)
			snapshots.GET("/:year/:month", snapshotHandler.GetByPeriod)
		}

		products := api.Group("/products")
		{
			products.GET("", productHandler.List)
			products.GET("/:productId", productHandler.Get)
			products.GET("/by-code/:code", productHandler.ByCode)
		}

		branches := api.Group("/branches")
		{
			branches.GET("", branchHandler.List)
			branches.GET("/:branchId", branchHandler.Get)
		}
	}

	return router, nil
}
