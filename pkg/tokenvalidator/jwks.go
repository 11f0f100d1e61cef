package tokenvalidator

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// JwksValidator verifies token signatures locally against the provider's
// key set. Keys are fetched once and refreshed in the background, so key
// rotation at the provider is picked up without a restart.
type JwksValidator struct {
	cache    *jwk.Cache
	jwksURL  string
	issuer   string
	audience string
}

// NewJwksValidator registers the JWKS endpoint with a refreshing cache.
// The first key fetch happens lazily on the first Validate call.
func NewJwksValidator(ctx context.Context, jwksURL, issuer, audience string) (*JwksValidator, error) {
	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("failed to register JWKS endpoint: %w", err)
	}
	return &JwksValidator{
		cache:    cache,
		jwksURL:  jwksURL,
		issuer:   issuer,
		audience: audience,
	}, nil
}

func (v *JwksValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	set, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		slog.Error("Failed to fetch provider key set", "url", v.jwksURL, "error", err)
		return nil, errors.Wrap(err, errors.ErrCodeUpstreamUnavailable, "failed to fetch provider key set")
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	tok, err := jwt.ParseString(token, opts...)
	if err != nil {
		return nil, mapParseError(err)
	}

	claims := &Claims{
		Subject:   tok.Subject(),
		Issuer:    tok.Issuer(),
		Audience:  tok.Audience(),
		ExpiresAt: tok.Expiration(),
	}
	claims.PreferredUsername = stringClaim(tok, "preferred_username")
	claims.Email = stringClaim(tok, "email")
	claims.Name = stringClaim(tok, "name")
	claims.Scope = stringClaim(tok, "scope")

	return claims, nil
}

// mapParseError sorts jwx verification failures into the gateway taxonomy.
// Each reason gets its own code so callers and logs can tell an expired
// token from a forged one.
func mapParseError(err error) error {
	switch {
	case stderrors.Is(err, jwt.ErrTokenExpired()):
		return errors.Wrap(err, errors.ErrCodeTokenExpired, "token has expired")
	case stderrors.Is(err, jwt.ErrInvalidIssuer()):
		return errors.Wrap(err, errors.ErrCodeTokenValidationFailed, "token issuer mismatch")
	case stderrors.Is(err, jwt.ErrInvalidAudience()):
		return errors.Wrap(err, errors.ErrCodeTokenValidationFailed, "token audience mismatch")
	case stderrors.Is(err, jwt.ErrTokenNotYetValid()):
		return errors.Wrap(err, errors.ErrCodeTokenValidationFailed, "token is not yet valid")
	default:
		return errors.Wrap(err, errors.ErrCodeTokenInvalid, "token signature or format is invalid")
	}
}

// stringClaim reads an optional private string claim, empty when absent.
func stringClaim(tok jwt.Token, name string) string {
	v, ok := tok.Get(name)
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}
