package tokenvalidator

import (
	"context"
	"fmt"
	"time"

	"github.com/adres-gov/adres-gateway/pkg/errors"
	"github.com/adres-gov/adres-gateway/pkg/idp"
)

// Mode selects how bearer tokens are checked. The mode is fixed at startup;
// a request can never pick its own validation path.
type Mode string

const (
	// ModeIntrospect asks the provider's introspection endpoint on every
	// request. Always current, but adds a network round-trip per request.
	ModeIntrospect Mode = "introspect"

	// ModeJWKS verifies the token signature locally against the provider's
	// cached key set. No per-request provider call, but revocation is only
	// observed at token expiry.
	ModeJWKS Mode = "jwks"

	// ModeInsecure decodes the token without verifying its signature. For
	// local development against a fake provider only. It is never a
	// default and must be selected explicitly in configuration.
	ModeInsecure Mode = "insecure"
)

// Valid reports whether m names a known validation mode.
func (m Mode) Valid() bool {
	return m == ModeIntrospect || m == ModeJWKS || m == ModeInsecure
}

// Claims is the validated identity extracted from a bearer token. Only
// claims the gateway actually consumes are surfaced.
type Claims struct {
	Subject           string
	PreferredUsername string
	Email             string
	Name              string
	Issuer            string
	Audience          []string
	Scope             string
	ExpiresAt         time.Time
}

// Validator checks a raw bearer token and returns its claims. Every failure
// is a denial; there is no partially valid token.
type Validator interface {
	Validate(ctx context.Context, token string) (*Claims, error)
}

// Config carries the validation settings shared across modes.
type Config struct {
	Mode Mode

	// Issuer and Audience are enforced in jwks mode when set.
	Issuer   string
	Audience string
}

// New builds the validator for the configured mode. The idp client is
// required for introspect mode and for jwks mode, which fetches keys from
// the provider's JWKS endpoint.
func New(ctx context.Context, cfg Config, client *idp.Client) (Validator, error) {
	switch cfg.Mode {
	case ModeIntrospect:
		if client == nil {
			return nil, fmt.Errorf("introspect mode requires a provider client")
		}
		return NewIntrospectValidator(client), nil
	case ModeJWKS:
		if client == nil {
			return nil, fmt.Errorf("jwks mode requires a provider client")
		}
		return NewJwksValidator(ctx, client.Config().JwksURL(), cfg.Issuer, cfg.Audience)
	case ModeInsecure:
		return NewInsecureValidator(), nil
	default:
		return nil, fmt.Errorf("unknown token validation mode: %q", cfg.Mode)
	}
}

// checkExpiry converts a past expiry into the dedicated expiry error so
// clients can distinguish "refresh your token" from "your token is garbage".
func checkExpiry(expiresAt time.Time) error {
	if !expiresAt.IsZero() && time.Now().After(expiresAt) {
		return errors.New(errors.ErrCodeTokenExpired, "token has expired")
	}
	return nil
}
