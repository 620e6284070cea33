package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/currency"

	awspkg "github.com/advanced-supermart/console-backend/pkg/aws"
)

// Config holds all environment variables for the console service.
type Config struct {
	Port   string
	AppEnv string

	JWTSecret string
	JWTTTL    time.Duration

	StoreBackend   string // mongo | dynamodb | memory
	MongoURL       string
	MongoDBName    string
	DDBTablePrefix string

	RedisURL   string
	SessionTTL time.Duration
	CacheTTL   time.Duration

	AWSEndpoint      string
	S3Bucket         string
	S3Prefix         string
	S3Endpoint       string
	CloudFrontDomain string

	OrderEventsTopicARN string
	KafkaBrokers        []string
	KafkaOrderTopic     string
	ReconcileQueueURL   string

	Currency           string
	LookupConcurrency  int
	AllowedOrigins     []string
	RateLimitPerMinute int
	CloudWatchEnabled  bool
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// LoadConfig loads environment variables into Config and validates them.
// If AWS_USE_SECRETS=true the JWT secret and Mongo URL are read from Secrets
// Manager, falling back to env vars on failure.
func LoadConfig(ctx context.Context) (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8085"),
		AppEnv:              getEnv("APP_ENV", "development"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		StoreBackend:        strings.ToLower(getEnv("STORE_BACKEND", "mongo")),
		MongoURL:            getEnv("MONGO_DB_URL", "mongodb://localhost:27017"),
		MongoDBName:         getEnv("MONGO_DB_NAME", "supermart"),
		DDBTablePrefix:      getEnv("DDB_TABLE_PREFIX", "supermart_"),
		RedisURL:            os.Getenv("REDIS_URL"),
		AWSEndpoint:         os.Getenv("AWS_ENDPOINT"),
		S3Bucket:            os.Getenv("AWS_S3_BUCKET"),
		S3Prefix:            getEnv("AWS_S3_PREFIX", "products/"),
		CloudFrontDomain:    os.Getenv("AWS_CLOUDFRONT_DOMAIN"),
		OrderEventsTopicARN: os.Getenv("ORDER_EVENTS_SNS_TOPIC_ARN"),
		KafkaBrokers:        splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaOrderTopic:     getEnv("KAFKA_ORDER_TOPIC", "order-events"),
		ReconcileQueueURL:   os.Getenv("ORDER_RECONCILE_QUEUE_URL"),
		Currency:            strings.ToUpper(getEnv("CURRENCY", "USD")),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
	}
	cfg.S3Endpoint = getEnv("AWS_S3_ENDPOINT", cfg.AWSEndpoint)

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", 12*time.Hour); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 8*time.Hour); err != nil {
		return nil, err
	}
	if cfg.CacheTTL, err = getDuration("CACHE_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.LookupConcurrency, err = getInt("LOOKUP_CONCURRENCY", 8); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getInt("RATE_LIMIT_PER_MINUTE", 300); err != nil {
		return nil, err
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSEndpoint); err == nil {
			applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg), getEnv("AWS_SECRETS_ID", "console/config"))
		} else {
			zap.L().Warn("Secrets Manager skipped: AWS config unavailable", zap.Error(err))
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	switch cfg.StoreBackend {
	case "mongo", "dynamodb", "memory":
	default:
		return nil, fmt.Errorf("STORE_BACKEND must be mongo, dynamodb or memory, got %q", cfg.StoreBackend)
	}
	if _, err := currency.ParseISO(cfg.Currency); err != nil {
		return nil, fmt.Errorf("CURRENCY %q is not an ISO 4217 code: %w", cfg.Currency, err)
	}
	return cfg, nil
}

type secretSource interface {
	GetSecret(ctx context.Context, id string) (string, error)
	GetSecretFields(ctx context.Context, id string) (map[string]string, error)
}

// applySecrets overrides credentials from a JSON bundle secret, falling back
// to one secret per key under "console/".
func applySecrets(ctx context.Context, cfg *Config, src secretSource, bundleID string) {
	targets := map[string]*string{
		"JWT_SECRET":   &cfg.JWTSecret,
		"MONGO_DB_URL": &cfg.MongoURL,
		"REDIS_URL":    &cfg.RedisURL,
	}

	bundle, err := src.GetSecretFields(ctx, bundleID)
	if err != nil {
		zap.L().Debug("no secret bundle, reading individual secrets", zap.String("id", bundleID), zap.Error(err))
		bundle = map[string]string{}
	}
	for key, dst := range targets {
		if v := bundle[key]; v != "" {
			*dst = v
			continue
		}
		if v, err := src.GetSecret(ctx, "console/"+key); err == nil && v != "" {
			*dst = v
		} else if err != nil && key == "JWT_SECRET" {
			zap.L().Warn("JWT secret not read from Secrets Manager", zap.Error(err))
		}
	}
}
