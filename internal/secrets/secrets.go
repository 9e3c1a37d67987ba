// Package secrets abstracts retrieval of named credentials.
package secrets

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
)

// Store retrieves a named credential.
type Store interface {
	Get(ctx context.Context, secretID string) (string, error)
}

// EnvStore reads secrets from environment variables: the secret id is
// upper-cased and dashes become underscores ("adreal-username" →
// ADREAL_USERNAME). Used for local runs and tests.
type EnvStore struct{}

// Get implements Store.
func (EnvStore) Get(_ context.Context, secretID string) (string, error) {
	key := strings.ToUpper(strings.ReplaceAll(secretID, "-", "_"))
	val, ok := os.LookupEnv(key)
	if !ok || val == "" {
		return "", eris.Errorf("secrets: environment variable %s not set", key)
	}
	return val, nil
}

// Static is a fixed in-memory store for tests.
type Static map[string]string

// Get implements Store.
func (s Static) Get(_ context.Context, secretID string) (string, error) {
	val, ok := s[secretID]
	if !ok {
		return "", eris.Errorf("secrets: unknown secret %q", secretID)
	}
	return val, nil
}
