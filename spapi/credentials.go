package spapi

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// CredentialProvider yields whatever authorizes catalog and pricing
// lookups. The client treats it as an opaque precondition.
type CredentialProvider interface {
	// AccessToken returns a token valid for the next request.
	AccessToken(ctx context.Context) (string, error)
}

// EnvCredentials reads a long-lived access token from the environment,
// optionally seeded from a .env file. Token refresh against the LWA
// endpoint is out of scope; operators supply SP_API_ACCESS_TOKEN
// directly or run a sidecar that keeps it fresh.
type EnvCredentials struct {
	token string
}

// NewEnvCredentials loads SP_API_ACCESS_TOKEN, consulting .env first.
func NewEnvCredentials() (*EnvCredentials, error) {
	_ = godotenv.Load()

	token := os.Getenv("SP_API_ACCESS_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("SP_API_ACCESS_TOKEN not set")
	}
	return &EnvCredentials{token: token}, nil
}

// AccessToken implements CredentialProvider.
func (c *EnvCredentials) AccessToken(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", fmt.Errorf("access token not configured")
	}
	return c.token, nil
}

// StaticCredentials wraps a fixed token, mainly for tests.
type StaticCredentials string

// AccessToken implements CredentialProvider.
func (c StaticCredentials) AccessToken(ctx context.Context) (string, error) {
	if c == "" {
		return "", fmt.Errorf("access token not configured")
	}
	return string(c), nil
}
