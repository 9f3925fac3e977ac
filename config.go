package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/yashrajoria/grocery-backend/database"
	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
)

const (
	secretJWT      = "grocery/JWT_SECRET"
	secretMongoURI = "grocery/MONGODB_URI"
)

// Config holds all environment variables for the API.
type Config struct {
	Port string
	Env  string

	MongoURI          string
	MongoDB           string
	MongoTransactions bool

	RedisURL string
	CacheTTL time.Duration

	// Postgres.Host empty keeps users in MongoDB.
	Postgres database.PostgresConfig

	JWTSecret string
	JWTTTL    time.Duration

	FrontendURL        string
	RequestTimeout     time.Duration
	RateLimitPerMinute int
	RateLimitBurst     int

	AWSRegion         string
	AWSEndpoint       string
	AWSUseSecrets     bool
	SNSTopicARN       string
	CloudWatchEnabled bool
	LogGroup          string
}

type secretResolver interface {
	Resolve(ctx context.Context, names ...string) (map[string]string, error)
}

// LoadConfig reads the environment, applies defaults and validates the
// result. With AWS_USE_SECRETS=true the JWT secret and Mongo URI are read
// from Secrets Manager, falling back to the environment for any secret that
// cannot be read.
func LoadConfig(ctx context.Context, log *zap.Logger) (*Config, error) {
	cfg, err := readConfig(os.Getenv)
	if err != nil {
		return nil, err
	}

	if cfg.AWSUseSecrets {
		awsCfg, err := awspkg.LoadAWSConfig(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
		if err != nil {
			log.Warn("Secrets Manager unavailable, using environment", zap.Error(err))
		} else if err := applySecrets(ctx, cfg, awspkg.NewSecretsClient(awsCfg)); err != nil {
			log.Warn("Some secrets fell back to environment", zap.Error(err))
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfig(getenv func(string) string) (*Config, error) {
	env := envReader{getenv: getenv}

	cfg := &Config{
		Port:              env.str("PORT", "8080"),
		Env:               env.str("APP_ENV", "development"),
		MongoURI:          env.str("MONGODB_URI", ""),
		MongoDB:           env.str("MONGODB_DB", "grocery"),
		MongoTransactions: env.boolean("MONGO_TRANSACTIONS", false),
		RedisURL:          env.str("REDIS_URL", ""),
		CacheTTL:          env.duration("CACHE_TTL", 10*time.Minute),
		Postgres: database.PostgresConfig{
			Host:     env.str("POSTGRES_HOST", ""),
			Port:     env.str("POSTGRES_PORT", "5432"),
			User:     env.str("POSTGRES_USER", ""),
			Password: env.str("POSTGRES_PASSWORD", ""),
			DBName:   env.str("POSTGRES_DB", "grocery"),
			SSLMode:  env.str("POSTGRES_SSLMODE", "disable"),
		},
		JWTSecret:          env.str("JWT_SECRET", ""),
		JWTTTL:             env.duration("JWT_TTL", time.Hour),
		FrontendURL:        env.str("FRONTEND_URL", "*"),
		RequestTimeout:     env.duration("REQUEST_TIMEOUT", 30*time.Second),
		RateLimitPerMinute: env.integer("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:     env.integer("RATE_LIMIT_BURST", 50),
		AWSRegion:          env.str("AWS_REGION", "us-east-1"),
		AWSEndpoint:        env.str("AWS_ENDPOINT", ""),
		AWSUseSecrets:      env.boolean("AWS_USE_SECRETS", false),
		SNSTopicARN:        env.str("SNS_TOPIC_ARN", ""),
		CloudWatchEnabled:  env.boolean("CLOUDWATCH_ENABLED", false),
		LogGroup:           env.str("CLOUDWATCH_LOG_GROUP", "/grocery/api"),
	}

	if len(env.errs) > 0 {
		return nil, errors.Join(env.errs...)
	}
	return cfg, nil
}

// applySecrets overrides cfg with every non-empty secret it can read and
// reports the ones it could not.
func applySecrets(ctx context.Context, cfg *Config, sm secretResolver) error {
	values, err := sm.Resolve(ctx, secretJWT, secretMongoURI)
	if v := values[secretJWT]; v != "" {
		cfg.JWTSecret = v
	}
	if v := values[secretMongoURI]; v != "" {
		cfg.MongoURI = v
	}
	return err
}

func (c *Config) validate() error {
	if c.MongoURI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) awsNeeded() bool {
	return c.CloudWatchEnabled || c.SNSTopicARN != ""
}

// envReader collects parse errors so every bad variable is reported at once.
type envReader struct {
	getenv func(string) string
	errs   []error
}

func (e *envReader) str(key, def string) string {
	if v := e.getenv(key); v != "" {
		return v
	}
	return def
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return d
}

func (e *envReader) integer(key string, def int) int {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return n
}

func (e *envReader) boolean(key string, def bool) bool {
	v := e.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
		return def
	}
	return b
}
