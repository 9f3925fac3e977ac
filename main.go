package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yashrajoria/grocery-backend/common/logger"
	commonmw "github.com/yashrajoria/grocery-backend/common/middleware"
	"github.com/yashrajoria/grocery-backend/controllers"
	"github.com/yashrajoria/grocery-backend/database"
	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
	"github.com/yashrajoria/grocery-backend/repository"
	"github.com/yashrajoria/grocery-backend/routes"
	"github.com/yashrajoria/grocery-backend/services"
)

const metricsNamespace = "Grocery/API"

func main() {
	// Load .env file (optional, falls back to system env)
	_ = godotenv.Load()

	boot, _ := zap.NewProduction()

	ctx := context.Background()
	cfg, err := LoadConfig(ctx, boot)
	if err != nil {
		boot.Fatal("Failed to load configuration", zap.Error(err))
	}

	// --- 1. AWS clients (optional) ---
	var (
		metrics   *awspkg.MetricsClient
		publisher awspkg.SNSPublisher
		logSink   io.Writer
	)
	if cfg.awsNeeded() {
		awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			boot.Fatal("Failed to load AWS config", zap.Error(err))
		}
		metrics = awspkg.NewMetricsClient(awsCfg, metricsNamespace, cfg.CloudWatchEnabled)
		if cfg.SNSTopicARN != "" {
			publisher = awspkg.NewSNSClient(awsCfg)
		}
		if cfg.CloudWatchEnabled {
			cw, err := awspkg.NewCloudWatchLogsClient(ctx, awsCfg, cfg.LogGroup, "grocery-api")
			if err != nil {
				boot.Warn("CloudWatch Logs disabled", zap.Error(err))
			} else {
				logSink = cw
			}
		}
	}

	log, err := logger.New(cfg.Env, logSink)
	if err != nil {
		boot.Fatal("Failed to initialize logger", zap.Error(err))
	}
	defer log.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- 2. Stores ---
	mongoClient, err := database.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal("Could not connect to MongoDB", zap.Error(err))
	}
	db := mongoClient.Database(cfg.MongoDB)

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, catalog cache disabled", zap.Error(err))
			redisClient = nil
		}
	}

	var pg *gorm.DB
	var users repository.UserRepository
	if cfg.Postgres.Host != "" {
		pg, err = database.ConnectPostgres(cfg.Postgres)
		if err != nil {
			log.Fatal("Could not connect to PostgreSQL", zap.Error(err))
		}
		gormUsers := repository.NewGormUserRepository(pg)
		if err := gormUsers.Migrate(); err != nil {
			log.Fatal("Migration failed", zap.Error(err))
		}
		users = gormUsers
	} else {
		mongoUsers := repository.NewMongoUserRepository(db)
		ensureIndexes(ctx, log, "users", mongoUsers)
		users = mongoUsers
	}

	sessions := repository.NewMongoSessionRepository(db)
	items := repository.NewMongoItemRepository(db)
	carts := repository.NewMongoCartRepository(db)
	orders := repository.NewMongoOrderRepository(db)
	ensureIndexes(ctx, log, "device_sessions", sessions)
	ensureIndexes(ctx, log, "items", items)
	ensureIndexes(ctx, log, "carts", carts)
	ensureIndexes(ctx, log, "orders", orders)

	var tx repository.Transactor = repository.DirectTransactor{}
	if cfg.MongoTransactions {
		tx = repository.NewMongoTransactor(mongoClient)
	}

	// --- 3. Services & controllers ---
	tokens := services.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	authService := services.NewAuthService(users, sessions, tokens, log).WithMetrics(metrics)

	var cache *services.CacheManager
	if redisClient != nil {
		cache = services.NewCacheManager(redisClient, cfg.CacheTTL, log).WithMetrics(metrics)
	}
	catalog := services.NewCatalogService(items, cache, log)
	cartService := services.NewCartService(carts, items, log)
	checkout := services.NewCheckoutService(carts, items, orders, tx, log).
		WithCatalog(catalog).
		WithMetrics(metrics)
	if publisher != nil {
		checkout = checkout.WithEvents(publisher, cfg.SNSTopicARN)
	}

	limiter := commonmw.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst, 3*time.Minute)
	stopJanitor := make(chan struct{})
	go limiter.Run(stopJanitor)

	router := routes.SetupRouter(routes.Router{
		Logger:      log,
		Verifier:    authService,
		Auth:        controllers.NewAuthController(authService),
		Items:       controllers.NewItemController(catalog),
		Cart:        controllers.NewCartController(cartService),
		Orders:      controllers.NewOrderController(checkout),
		RateLimiter: limiter,
		Metrics:     metrics,
		HealthCheck: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		},
		AllowedOrigins: cfg.FrontendURL,
		RequestTimeout: cfg.RequestTimeout,
		ExposeErrors:   !cfg.IsProduction(),
	})

	// --- 4. Graceful Shutdown ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("Grocery API starting", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	close(stopJanitor)

	if err := database.DisconnectMongo(mongoClient); err != nil {
		log.Warn("Error disconnecting MongoDB", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Warn("Error closing Redis", zap.Error(err))
		}
	}
	if pg != nil {
		if err := database.ClosePostgres(pg); err != nil {
			log.Warn("Error closing PostgreSQL", zap.Error(err))
		}
	}

	log.Info("Server exited")
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

func ensureIndexes(ctx context.Context, log *zap.Logger, name string, r indexer) {
	if err := r.EnsureIndexes(ctx); err != nil {
		log.Warn("Failed to ensure indexes", zap.String("collection", name), zap.Error(err))
	}
}
