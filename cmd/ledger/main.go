package main

import (
	"context"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/api/handlers"
	"github.com/hirosato/ledger-engine/backend/internal/api/middleware"
	"github.com/hirosato/ledger-engine/backend/internal/api/response"
	envconfig "github.com/hirosato/ledger-engine/backend/internal/common/config"
	"github.com/hirosato/ledger-engine/backend/internal/engine"
	"github.com/hirosato/ledger-engine/backend/internal/platform/stores"
)

// newHandler wires the ledger engine behind the middleware chain
func newHandler(cfg *envconfig.Config, e *engine.Engine) middleware.APIGatewayHandler {
	ledgerHandler := handlers.NewLedgerHandler(e.Postings, e.Ledger, e.Accounts)

	return middleware.Chain(ledgerHandler.Route,
		middleware.NewLoggingMiddleware(),
		middleware.NewRecoveryMiddleware(),
		newTenantMiddleware(cfg),
	)
}

// newTenantMiddleware only trusts the authorizer in prod
func newTenantMiddleware(cfg *envconfig.Config) *middleware.TenantMiddleware {
	m := middleware.NewTenantMiddleware()
	if cfg.IsProd() {
		m = m.RequireAuthorizer()
	}
	return m
}

func newLogger(cfg *envconfig.Config) (*zap.Logger, error) {
	if cfg.IsProd() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// lambdaHandler adapts an APIGatewayHandler to the Lambda runtime
func lambdaHandler(h middleware.APIGatewayHandler, logger *zap.Logger) func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return func(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		// Handle CORS preflight
		if request.HTTPMethod == http.MethodOptions {
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusOK,
				Headers:    response.DefaultHeaders(),
			}, nil
		}
		return h(ctx, logger, request)
	}
}

func main() {
	if err := envconfig.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	cfg, err := envconfig.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load Env config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	s, err := stores.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise ledger store", zap.String("store", cfg.Store), zap.Error(err))
	}
	logger.Info("ledger engine starting",
		zap.String("store", cfg.Store),
		zap.String("environment", cfg.Environment),
		zap.Bool("lambda", cfg.IsLambda()))

	e := engine.New(cfg, s, logger)
	defer e.Close()

	lambda.Start(lambdaHandler(newHandler(cfg, e), logger))
}
