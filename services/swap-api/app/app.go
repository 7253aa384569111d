package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/cache"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/catalog"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/database"
	middleware "github.com/nimeshabuddhika/resilient-swap-go/pkg/middlewares"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/repositories"
	"github.com/nimeshabuddhika/resilient-swap-go/pkg/utils"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/configs"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/handlers"
	"github.com/nimeshabuddhika/resilient-swap-go/services/swap-api/internal/services"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const aggregatorLimiterKey = "swap:aggregator_rate"

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}
	handler, cleanup, err := NewRouter(ctx, logger, cfg)
	if err != nil {
		return nil, nil, err
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv, cleanup, nil
}

// NewRouter builds the engine for an already loaded configuration.
func NewRouter(ctx context.Context, logger *zap.Logger, cfg *configs.Config) (*gin.Engine, func(), error) {
	cat, err := loadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	endpoints, err := cfg.RPCEndpointMap()
	if err != nil {
		return nil, nil, err
	}

	var (
		redisClient *redis.Client
		closeRedis  = func() {}
		formRepo    repositories.FormRepository
	)
	if utils.IsEmpty(cfg.RedisAddr) {
		logger.Warn("REDIS_ADDR not set, forms are kept in process memory")
		formRepo = repositories.NewFormRepositoryMemory(cfg.FormTTL)
	} else {
		redisClient, closeRedis, err = cache.Connect(ctx, cache.Options{Addr: cfg.RedisAddr})
		if err != nil {
			return nil, nil, err
		}
		formRepo = repositories.NewFormRepositoryRedis(redisClient, cfg.FormTTL)
	}

	audit, closeDB, err := newAuditRepository(ctx, logger, cfg)
	if err != nil {
		closeRedis()
		return nil, nil, err
	}
	cleanup := func() {
		closeDB()
		closeRedis()
	}

	limiter := pkg.NewDistributedLimiter(redisClient, aggregatorLimiterKey,
		cfg.AggregatorRateLimitPerSec, cfg.AggregatorRateBurst, time.Second, logger)
	aggregator := services.NewAggregatorClient(services.AggregatorClientConfig{
		Logger:     logger,
		BaseURL:    cfg.AggregatorBaseURL,
		HTTPClient: utils.NewHTTPClient(utils.WithClientTimeout(cfg.AggregatorTimeout)),
		Limiter:    limiter,
		MaxRetries: cfg.AggregatorMaxRetries,
	})
	rates := services.NewRateService(services.RateServiceConfig{
		Logger: logger,
		Client: aggregator,
		TTL:    cfg.RateTTL,
		Wait:   cfg.RateWait,
	})
	balances := services.NewBalanceService(services.BalanceServiceConfig{
		Logger:       logger,
		Catalog:      cat,
		RPCEndpoints: endpoints,
	})
	formService := services.NewFormService(services.FormServiceConfig{
		Logger:         logger,
		Repo:           formRepo,
		Catalog:        cat,
		Rates:          rates,
		Balances:       balances,
		DefaultNetwork: cfg.DefaultNetwork,
	})
	submissionService := services.NewSubmissionService(services.SubmissionServiceConfig{
		Logger:     logger,
		Repo:       formRepo,
		Aggregator: aggregator,
		Audit:      audit,
	})

	presenter := handlers.NewFormPresenter(cat)
	baseHandler := handlers.NewBaseHandler(logger)
	catalogHandler := handlers.NewCatalogHandler(logger, cat)
	formHandler := handlers.NewFormHandler(logger, formService, presenter)
	submissionHandler := handlers.NewSubmissionHandler(logger, submissionService, presenter)

	r := gin.New()
	r.Use(gin.Recovery())

	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	api.Use(middleware.Metrics())

	catalogHandler.RegisterRoutes(api)
	formHandler.RegisterRoutes(api)
	submissionHandler.RegisterRoutes(api)
	baseHandler.RegisterRoutes(r)

	return r, cleanup, nil
}

// newAuditRepository keeps the submission trail in Postgres when PRIMARY_DB_ADDR is set.
func newAuditRepository(ctx context.Context, logger *zap.Logger, cfg *configs.Config) (repositories.SubmissionRepository, func(), error) {
	if utils.IsEmpty(cfg.PrimaryDbAddr) {
		logger.Warn("PRIMARY_DB_ADDR not set, submission history is kept in process memory")
		return repositories.NewSubmissionRepositoryMemory(), func() {}, nil
	}
	db, disconnect, err := database.New(ctx, logger, database.Config{
		DSN:      cfg.PrimaryDbAddr,
		MaxConns: cfg.MaxDbCons,
		MinConns: cfg.MinDbCons,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := database.RunMigrations(logger, cfg.PrimaryDbAddr); err != nil {
		disconnect()
		return nil, nil, err
	}
	return repositories.NewSubmissionRepositoryPostgres(db), disconnect, nil
}

func loadCatalog(cfg *configs.Config) (*catalog.Catalog, error) {
	if utils.IsEmpty(cfg.CatalogPath) {
		return catalog.Load()
	}
	return catalog.LoadFile(cfg.CatalogPath)
}
