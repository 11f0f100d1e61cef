package tokenvalidator

import (
	"context"
	"log/slog"

	"github.com/golang-jwt/jwt/v5"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// InsecureValidator decodes tokens without verifying their signature.
// Anyone can mint a token this validator accepts. It exists so local
// development can run against a fake provider without key material, and it
// logs loudly at startup so the mode is never on in production by accident.
type InsecureValidator struct{}

func NewInsecureValidator() *InsecureValidator {
	slog.Warn("Token signature verification is DISABLED, do not use this mode in production")
	return &InsecureValidator{}
}

func (v *InsecureValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	parser := jwt.NewParser()
	mapClaims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, mapClaims); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeTokenInvalid, "token is malformed")
	}

	claims := &Claims{
		Subject:           stringMapClaim(mapClaims, "sub"),
		PreferredUsername: stringMapClaim(mapClaims, "preferred_username"),
		Email:             stringMapClaim(mapClaims, "email"),
		Name:              stringMapClaim(mapClaims, "name"),
		Issuer:            stringMapClaim(mapClaims, "iss"),
		Scope:             stringMapClaim(mapClaims, "scope"),
	}

	if aud, err := mapClaims.GetAudience(); err == nil {
		claims.Audience = aud
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	// Expiry is still enforced even without a signature check.
	if err := checkExpiry(claims.ExpiresAt); err != nil {
		return nil, err
	}
	return claims, nil
}

func stringMapClaim(m jwt.MapClaims, name string) string {
	s, _ := m[name].(string)
	return s
}
