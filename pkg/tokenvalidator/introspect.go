package tokenvalidator

import (
	"context"
	"time"

	"github.com/adres-gov/adres-gateway/pkg/errors"
	"github.com/adres-gov/adres-gateway/pkg/idp"
)

// IntrospectValidator delegates every check to the provider's introspection
// endpoint. Revocation is observed immediately, at the cost of one provider
// round-trip per request.
type IntrospectValidator struct {
	client *idp.Client
}

func NewIntrospectValidator(client *idp.Client) *IntrospectValidator {
	return &IntrospectValidator{client: client}
}

func (v *IntrospectValidator) Validate(ctx context.Context, token string) (*Claims, error) {
	result, err := v.client.Introspect(ctx, token)
	if err != nil {
		// Provider unreachable means deny, not allow. Fails closed.
		return nil, err
	}

	if !result.Active {
		return nil, errors.New(errors.ErrCodeTokenInvalid, "token is not active")
	}

	claims := &Claims{
		Subject:           result.Subject,
		PreferredUsername: result.PreferredUsername,
		Email:             result.Email,
		Name:              result.Name,
		Issuer:            result.Issuer,
		Audience:          result.Audience,
		Scope:             result.Scope,
	}
	if result.ExpiresAt > 0 {
		claims.ExpiresAt = time.Unix(result.ExpiresAt, 0)
	}

	if err := checkExpiry(claims.ExpiresAt); err != nil {
		return nil, err
	}
	return claims, nil
}
