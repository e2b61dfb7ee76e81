package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// Store names accepted by LEDGER_STORE
const (
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config represents the application configuration
// This struct contains all configuration parameters for the application
type Config struct {
	// AWS-specific configuration
	AWSRegion         string
	DynamoDBTableName string
	// DynamoDBEndpoint points the client at DynamoDB Local when set
	DynamoDBEndpoint string

	// Environment info
	Environment string

	// Ledger storage backend
	Store          string
	DatabaseDSN    string
	DBAutoMigrate  bool
	TrailPageLimit int

	// Ledger event delivery, disabled when no brokers are set
	KafkaBrokers []string
	KafkaTopic   string

	// HS256 key the request authorizer verifies bearer tokens with
	AuthSigningSecret string

	// Lambda detection flag (cached)
	isLambda bool
}

// LoadDotEnv reads a .env file into the process environment when present.
// Variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return err
		}
	}
	return nil
}

// loadBase reads the settings every entry point shares
func loadBase() *Config {
	cfg := &Config{}

	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "dev" // Default to dev environment
	}

	cfg.AWSRegion = os.Getenv("AWS_REGION")
	if cfg.AWSRegion == "" {
		cfg.AWSRegion = "ap-northeast-1"
	}

	// Check if running in Lambda
	cfg.isLambda = os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""

	return cfg
}

// LoadFromEnv loads the configuration from environment variables.
// DATABASE_DSN may be given as a Secrets Manager secret through DATABASE_DSN_SECRET_ARN.
func LoadFromEnv() (*Config, error) {
	cfg := loadBase()
	secrets := newSecretResolver(cfg.AWSRegion)

	cfg.Store = strings.ToLower(os.Getenv("LEDGER_STORE"))
	if cfg.Store == "" {
		cfg.Store = StoreDynamoDB
	}

	switch cfg.Store {
	case StoreDynamoDB:
		cfg.DynamoDBTableName = os.Getenv("DYNAMODB_TABLE_NAME")
		if cfg.DynamoDBTableName == "" {
			return nil, errors.NewValidationError("DYNAMODB_TABLE_NAME environment variable is required")
		}
		cfg.DynamoDBEndpoint = os.Getenv("DYNAMODB_ENDPOINT")
	case StorePostgres:
		dsn, err := secrets.lookup("DATABASE_DSN_SECRET_ARN", "DATABASE_DSN")
		if err != nil {
			return nil, err
		}
		if dsn == "" {
			return nil, errors.NewValidationError("DATABASE_DSN or DATABASE_DSN_SECRET_ARN environment variable is required")
		}
		cfg.DatabaseDSN = dsn
	case StoreMemory:
	default:
		return nil, errors.NewValidationError("LEDGER_STORE must be one of dynamodb, postgres, memory")
	}

	// Schema migrations run unless explicitly disabled
	cfg.DBAutoMigrate = true
	if v := strings.ToLower(os.Getenv("DB_AUTO_MIGRATE")); v == "false" || v == "0" || v == "no" {
		cfg.DBAutoMigrate = false
	}

	cfg.TrailPageLimit = 1000
	if v := os.Getenv("TRAIL_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, errors.NewValidationError("TRAIL_PAGE_SIZE must be a positive integer")
		}
		cfg.TrailPageLimit = n
	}

	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}
	cfg.KafkaTopic = os.Getenv("KAFKA_TOPIC")

	return cfg, nil
}

// LoadAuthorizerFromEnv loads the request authorizer's settings. The signing
// secret comes from AUTH_SIGNING_SECRET_ARN when set, AUTH_SIGNING_SECRET otherwise.
func LoadAuthorizerFromEnv() (*Config, error) {
	cfg := loadBase()

	secret, err := newSecretResolver(cfg.AWSRegion).lookup("AUTH_SIGNING_SECRET_ARN", "AUTH_SIGNING_SECRET")
	if err != nil {
		return nil, err
	}
	if secret == "" {
		return nil, errors.NewValidationError("AUTH_SIGNING_SECRET or AUTH_SIGNING_SECRET_ARN environment variable is required")
	}
	cfg.AuthSigningSecret = secret

	return cfg, nil
}

// PublishesEvents reports whether ledger events should be sent to Kafka
func (c *Config) PublishesEvents() bool {
	return len(c.KafkaBrokers) > 0
}

func (c *Config) IsProd() bool {
	return c.Environment == "prod"
}

// IsLambda returns true if the application is running in AWS Lambda
func (c *Config) IsLambda() bool {
	return c.isLambda
}
