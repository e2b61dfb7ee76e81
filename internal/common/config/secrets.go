package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-secretsmanager-caching-go/v2/secretcache"

	"github.com/hirosato/ledger-engine/backend/internal/domain/errors"
)

// SecretReader returns the string value of a Secrets Manager secret.
// *secretcache.Cache satisfies it.
type SecretReader interface {
	GetSecretString(secretID string) (string, error)
}

// newSecretReader builds a cached Secrets Manager reader for region
var newSecretReader = func(region string) (SecretReader, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(context.Background(), awsConfig.WithRegion(region))
	if err != nil {
		return nil, err
	}

	cache, err := secretcache.New(func(c *secretcache.Cache) {
		c.Client = secretsmanager.NewFromConfig(awsCfg)
	})
	if err != nil {
		return nil, err
	}
	return cache, nil
}

// secretResolver reads a setting from Secrets Manager when its ARN variable is
// set and from the plain variable otherwise. The reader is created on first use.
type secretResolver struct {
	region string
	reader SecretReader
}

func newSecretResolver(region string) *secretResolver {
	return &secretResolver{region: region}
}

func (r *secretResolver) lookup(arnVar, plainVar string) (string, error) {
	secretID := os.Getenv(arnVar)
	if secretID == "" {
		return os.Getenv(plainVar), nil
	}

	if r.reader == nil {
		reader, err := newSecretReader(r.region)
		if err != nil {
			return "", errors.NewInternalError("failed to create secrets manager client", err)
		}
		r.reader = reader
	}

	value, err := r.reader.GetSecretString(secretID)
	if err != nil {
		return "", errors.NewInternalError(fmt.Sprintf("failed to read secret from %s", arnVar), err)
	}
	return strings.TrimSpace(value), nil
}
