// Package googleauth builds authenticated HTTP clients for the Google API
// adapters (Cloud Storage and Pub/Sub).
package googleauth

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
)

// Scopes used by the worker
const (
	ScopeStorage = "https://www.googleapis.com/auth/devstorage.read_write"
	ScopePubSub  = "https://www.googleapis.com/auth/pubsub"
)

// Config selects how to authenticate
type Config struct {
	CredentialsFile string // service account key or OAuth client secret; empty uses application default credentials
	TokenFile       string // cached user token, only used with an OAuth client secret
	Scopes          []string
}

// HTTPClient returns a client authorized for cfg.Scopes.
//
// A service account key is used directly. An OAuth client secret ("installed"
// or "web") needs a token previously saved by Authorize. With no credentials
// file the application default credentials are used.
func HTTPClient(ctx context.Context, cfg Config) (*http.Client, error) {
	if cfg.CredentialsFile == "" {
		client, err := google.DefaultClient(ctx, cfg.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to find default credentials: %w", err)
		}
		return client, nil
	}

	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	if oauthCfg, err := google.ConfigFromJSON(b, cfg.Scopes...); err == nil {
		token, err := loadToken(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("no saved token in %s, run the auth command first: %w", cfg.TokenFile, err)
		}
		ts := &savingTokenSource{
			base: oauthCfg.TokenSource(ctx, token),
			file: cfg.TokenFile,
			last: token.AccessToken,
		}
		return newClient(ctx, ts), nil
	}

	jwtCfg, err := google.JWTConfigFromJSON(b, cfg.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}
	return jwtCfg.Client(ctx), nil
}
