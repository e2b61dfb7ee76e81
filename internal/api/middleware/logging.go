package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"
)

// LoggingMiddleware is a middleware for logging requests and responses
type LoggingMiddleware struct{}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware() LoggingMiddleware {
	return LoggingMiddleware{}
}

// Handle handles the logging middleware. The logger passed downstream
// carries the request id so every entry of a request can be correlated.
func (m LoggingMiddleware) Handle(next APIGatewayHandler) APIGatewayHandler {
	return func(ctx context.Context, logger *zap.Logger, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		startTime := time.Now()
		logger = logger.With(zap.String("requestId", request.RequestContext.RequestID))

		logger.Info("REQUEST",
			zap.String("method", request.HTTPMethod),
			zap.String("path", request.Path),
			zap.Any("queryParameters", request.QueryStringParameters),
			zap.Any("headers", maskSensitiveHeaders(request.Headers)))

		response, err := next(ctx, logger, request)

		fields := []zap.Field{
			zap.Int("status", response.StatusCode),
			zap.Duration("duration", time.Since(startTime)),
		}
		if err != nil {
			fields = append(fields, zap.Error(err))
		}
		logger.Info("RESPONSE", fields...)

		return response, err
	}
}

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"cookie":        true,
}

// maskSensitiveHeaders returns a copy of headers with credentials replaced
func maskSensitiveHeaders(headers map[string]string) map[string]string {
	masked := make(map[string]string, len(headers))
	for k, v := range headers {
		if sensitiveHeaders[strings.ToLower(k)] {
			v = "***"
		}
		masked[k] = v
	}
	return masked
}
