package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/umsgroup/adreal-sync/internal/config"
	"github.com/umsgroup/adreal-sync/internal/pipeline"
	"github.com/umsgroup/adreal-sync/internal/secrets"
)

// secretStore builds the configured secret store backend.
func secretStore(cfg config.SecretsConfig) (secrets.Store, error) {
	switch cfg.Provider {
	case "aws", "":
		return secrets.NewAWSStore(context.Background(), cfg.Region)
	case "env":
		return secrets.EnvStore{}, nil
	default:
		return nil, eris.Errorf("unknown secrets provider %q", cfg.Provider)
	}
}

// credentials resolves the AdReal username and password, preferring
// direct config values over the secret store.
func credentials(ctx context.Context, cfg *config.Config) (string, string, error) {
	if cfg.AdReal.Username != "" && cfg.AdReal.Password != "" {
		return cfg.AdReal.Username, cfg.AdReal.Password, nil
	}

	store, err := secretStore(cfg.Secrets)
	if err != nil {
		return "", "", err
	}
	username, err := store.Get(ctx, cfg.AdReal.UsernameSecret)
	if err != nil {
		return "", "", eris.Wrap(err, "resolve adreal username")
	}
	password, err := store.Get(ctx, cfg.AdReal.PasswordSecret)
	if err != nil {
		return "", "", eris.Wrap(err, "resolve adreal password")
	}
	return username, password, nil
}

// buildRunner wires credentials into a pipeline runner.
func buildRunner(ctx context.Context, cfg *config.Config) (*pipeline.Runner, error) {
	username, password, err := credentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cfg.AdReal, username, password), nil
}

// selectClients resolves the --client flag: a named profile, or every
// configured profile when the flag is empty.
func selectClients(cfg *config.Config, name string) (map[string]config.ClientConfig, error) {
	if name != "" {
		cc, err := cfg.Client(name)
		if err != nil {
			return nil, err
		}
		return map[string]config.ClientConfig{name: cc}, nil
	}
	if len(cfg.Clients) == 0 {
		return nil, eris.New("no clients configured")
	}
	return cfg.Clients, nil
}
