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

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
	"github.com/advanced-supermart/console-backend/pkg/docstore"
	"github.com/advanced-supermart/console-backend/services/common/auth"
	apperrors "github.com/advanced-supermart/console-backend/services/common/errors"
	"github.com/advanced-supermart/console-backend/services/common/logger"
	commonmw "github.com/advanced-supermart/console-backend/services/common/middleware"
	"github.com/advanced-supermart/console-backend/services/console/checkout"
	"github.com/advanced-supermart/console-backend/services/console/consumer"
	"github.com/advanced-supermart/console-backend/services/console/controllers"
	"github.com/advanced-supermart/console-backend/services/console/database"
	"github.com/advanced-supermart/console-backend/services/console/repository"
	"github.com/advanced-supermart/console-backend/services/console/routes"
	"github.com/advanced-supermart/console-backend/services/console/services"
)

const serviceName = "console"

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	boot, err := zap.NewProduction()
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}

	cfg, err := LoadConfig(ctx)
	if err != nil {
		boot.Fatal("Failed to load configuration", zap.Error(err))
	}

	var awsCfg sdkaws.Config
	needsAWS := cfg.StoreBackend == "dynamodb" || cfg.S3Bucket != "" || cfg.OrderEventsTopicARN != "" ||
		cfg.ReconcileQueueURL != "" || cfg.CloudWatchEnabled
	if needsAWS {
		if awsCfg, err = awspkg.LoadAWSConfig(ctx, cfg.AWSEndpoint); err != nil {
			boot.Fatal("Failed to load AWS config", zap.Error(err))
		}
	}

	var (
		cwWriter io.Writer
		cwLogs   *awspkg.CloudWatchLogsClient
	)
	if cfg.CloudWatchEnabled {
		if cwLogs, err = awspkg.NewCloudWatchLogsClient(ctx, awsCfg, "", serviceName, true); err != nil {
			boot.Warn("CloudWatch Logs disabled", zap.Error(err))
			cwLogs = nil
		} else {
			cwWriter = cwLogs
		}
	}
	log, err := logger.New(cfg.AppEnv, cwWriter)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	var metrics *awspkg.MetricsClient
	if needsAWS {
		metrics = awspkg.NewMetricsClient(awsCfg, "", cfg.CloudWatchEnabled)
	}

	// --- Stores ---
	var (
		store       docstore.Store
		mongoClient *mongo.Client
	)
	switch cfg.StoreBackend {
	case "mongo":
		mongoClient, err = database.ConnectMongo(ctx, cfg.MongoURL)
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", zap.Error(err))
		}
		mongoStore := docstore.NewMongoStore(mongoClient.Database(cfg.MongoDBName))
		if err := database.EnsureMongoIndexes(ctx, mongoStore); err != nil {
			log.Warn("Failed to ensure indexes", zap.Error(err))
		}
		store = mongoStore
	case "dynamodb":
		store = docstore.NewDynamoStore(docstore.NewDynamoClient(awsCfg), cfg.DDBTablePrefix)
	default:
		log.Warn("Using in-memory document store; data is lost on restart")
		store = docstore.NewMemoryStore()
	}

	var (
		redisClient *redis.Client
		sessions    checkout.SessionStore = checkout.NewMemorySessionStore()
		cache       services.ProductCache
	)
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable; sessions are kept in memory and the catalog is not cached", zap.Error(err))
		} else {
			sessions = repository.NewRedisSessionStore(redisClient, cfg.SessionTTL)
			cache = repository.NewCacheManager(redisClient, cfg.CacheTTL)
		}
	}

	var images services.ImageStorage
	if cfg.S3Bucket != "" {
		images = awspkg.NewImageStore(awspkg.NewS3Client(awsCfg), cfg.S3Bucket, cfg.S3Prefix, cfg.S3Endpoint, cfg.CloudFrontDomain)
	}

	// --- Order events ---
	var publisher checkout.EventPublisher = services.NoopOrderPublisher{}
	var kafkaPublisher *services.KafkaOrderPublisher
	switch {
	case cfg.OrderEventsTopicARN != "":
		publisher = services.NewSNSOrderPublisher(awspkg.NewSNSClient(awsCfg), cfg.OrderEventsTopicARN)
		log.Info("Order events go to SNS", zap.String("topic", cfg.OrderEventsTopicARN))
	case len(cfg.KafkaBrokers) > 0:
		kafkaPublisher = services.NewKafkaOrderPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		publisher = kafkaPublisher
		log.Info("Order events go to Kafka", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaOrderTopic))
	}

	// --- Services ---
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	users := repository.NewUserRepository(store)
	identity := services.NewBcryptIdentityProvider(users)

	checkoutSvc := checkout.NewService(store,
		checkout.WithEventPublisher(publisher),
		checkout.WithMetrics(metrics),
		checkout.WithLogger(log.Named("checkout")),
		checkout.WithCurrency(cfg.Currency),
		checkout.WithLookupConcurrency(cfg.LookupConcurrency),
	)
	workflow := checkout.NewWorkflow(checkoutSvc, sessions, log.Named("workflow"))

	productSvc := services.NewProductService(repository.NewProductRepository(store), images, cache, metrics, log.Named("catalog"))
	authSvc := services.NewAuthService(identity, users, tokens, log.Named("auth"))
	settingsSvc := services.NewSettingsService(users, identity, log.Named("settings"))

	// --- Background consumer ---
	bgCtx, stopBackground := context.WithCancel(ctx)
	defer stopBackground()
	if cfg.ReconcileQueueURL != "" {
		reconciler := consumer.NewReconcileConsumer(awspkg.NewSQSConsumer(awsCfg, cfg.ReconcileQueueURL), store, metrics, log.Named("reconcile"))
		go reconciler.Start(bgCtx)
	}

	// --- HTTP server & middleware ---
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestID())
	r.Use(commonmw.RequestLogger(log))
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(commonmw.RateLimitMiddleware(cfg.RateLimitPerMinute, 20))
	r.Use(func(c *gin.Context) {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
		defer cancel()
		c.Request = c.Request.WithContext(reqCtx)
		c.Next()
	})
	r.Use(apperrors.ErrorMiddleware())

	routes.RegisterRoutes(r, tokens, routes.Controllers{
		Auth:     controllers.NewAuthController(authSvc, cfg.JWTTTL, cfg.AppEnv == "production"),
		Products: controllers.NewProductController(productSvc),
		Cashier:  controllers.NewCashierController(workflow, cfg.Currency),
		Settings: controllers.NewSettingsController(settingsSvc),
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "store": cfg.StoreBackend})
	})

	// --- Graceful shutdown ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Console starting", zap.String("port", cfg.Port), zap.String("store", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down console...")
	stopBackground()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			log.Error("Failed to close Kafka writer", zap.Error(err))
		}
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if mongoClient != nil {
		if err := database.DisconnectMongo(mongoClient); err != nil {
			log.Error("Failed to disconnect MongoDB", zap.Error(err))
		}
	}
	log.Info("Console stopped gracefully")
	_ = log.Sync()
	if cwLogs != nil {
		_ = cwLogs.Close()
	}
}
