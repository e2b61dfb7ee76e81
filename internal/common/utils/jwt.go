package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// TenantClaims are the claims the ledger reads from a bearer token.
// Signature verification happens upstream in the API Gateway authorizer.
type TenantClaims struct {
	jwt.RegisteredClaims
	TenantID        string `json:"tenant_id"`
	CognitoTenantID string `json:"custom:tenantId"`
	Username        string `json:"username"`
}

// Tenant returns the tenant claim, preferring tenant_id over the Cognito custom attribute
func (c *TenantClaims) Tenant() string {
	if c.TenantID != "" {
		return c.TenantID
	}
	return c.CognitoTenantID
}

// ParseUnverifiedClaims decodes the claims of an already verified token
func ParseUnverifiedClaims(tokenString string) (*TenantClaims, error) {
	claims := &TenantClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("authorization header format must be: Bearer {token}")
	}

	return parts[1], nil
}

// ParseVerifiedClaims verifies an HS256 token against secret and returns its
// claims. Expired tokens and tokens without a tenant claim are rejected.
func ParseVerifiedClaims(tokenString string, secret []byte) (*TenantClaims, error) {
	if len(secret) == 0 {
		return nil, errors.New("signing secret is required")
	}

	claims := &TenantClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if claims.Tenant() == "" {
		return nil, errors.New("token has no tenant claim")
	}
	return claims, nil
}
