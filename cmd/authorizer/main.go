package main

import (
	"context"
	"fmt"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hirosato/ledger-engine/backend/internal/common/config"
	"github.com/hirosato/ledger-engine/backend/internal/common/utils"
)

// Authorizer admits requests carrying a valid tenant token and forwards the
// tenant to the ledger Lambdas through the authorizer context
type Authorizer struct {
	secret []byte
	logger *zap.Logger
}

func NewAuthorizer(secret []byte, logger *zap.Logger) *Authorizer {
	return &Authorizer{secret: secret, logger: logger}
}

// Handle is the API Gateway REST request authorizer
func (a *Authorizer) Handle(ctx context.Context, request events.APIGatewayCustomAuthorizerRequestTypeRequest) (events.APIGatewayCustomAuthorizerResponse, error) {
	authHeader := request.Headers["Authorization"]
	if authHeader == "" {
		authHeader = request.Headers["authorization"]
	}

	token, err := utils.ExtractBearerToken(authHeader)
	if err != nil {
		a.logger.Info("missing or invalid Authorization header", zap.String("methodArn", request.MethodArn))
		return generatePolicy("user", "Deny", request.MethodArn, nil), nil
	}

	claims, err := utils.ParseVerifiedClaims(token, a.secret)
	if err != nil {
		a.logger.Info("token validation failed", zap.Error(err))
		return generatePolicy("user", "Deny", request.MethodArn, nil), nil
	}

	authContext := map[string]interface{}{
		"tenantId": claims.Tenant(),
		"sub":      claims.Subject,
		"iss":      claims.Issuer,
	}
	if claims.ExpiresAt != nil {
		authContext["exp"] = fmt.Sprintf("%d", claims.ExpiresAt.Unix())
	}

	// arn:aws:execute-api:{region}:{accountId}:{apiId}/{stage}/{httpVerb}/...
	arn := fmt.Sprintf("arn:aws:execute-api:%s:%s:%s/%s/%s",
		"*",
		request.RequestContext.AccountID,
		request.RequestContext.APIID,
		request.RequestContext.Stage,
		"*",
	)

	principal := claims.Subject
	if principal == "" {
		principal = claims.Tenant()
	}
	a.logger.Debug("request authorized", zap.String("tenantId", claims.Tenant()), zap.String("sub", claims.Subject))
	return generatePolicy(principal, "Allow", arn, authContext), nil
}

// generatePolicy generates an IAM policy for the authorizer response
func generatePolicy(principalID, effect, resource string, context map[string]interface{}) events.APIGatewayCustomAuthorizerResponse {
	authResponse := events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: principalID,
	}

	if effect != "" && resource != "" {
		authResponse.PolicyDocument = events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{"execute-api:Invoke"},
					Effect:   effect,
					Resource: []string{resource},
				},
			},
		}
	}

	if context != nil {
		authResponse.Context = context
	}
	return authResponse
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env file: %v", err)
	}

	cfg, err := config.LoadAuthorizerFromEnv()
	if err != nil {
		log.Fatalf("Failed to load authorizer config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	lambda.Start(NewAuthorizer([]byte(cfg.AuthSigningSecret), logger).Handle)
}
