package claims

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adres-gov/adres-gateway/pkg/errors"
	"github.com/adres-gov/adres-gateway/pkg/tokenvalidator"
)

// contextKey is a value for use with context.WithValue. It's used as
// a pointer so it fits in an interface{} without allocation.
type contextKey struct {
	name string
}

func (k *contextKey) String() string {
	return "gateway context value " + k.name
}

var principalKey = &contextKey{"EnrichedPrincipal"}

const accessTokenCookie = "access_token"

// FromContext returns the enriched principal stored by Middleware.
func FromContext(ctx context.Context) (*EnrichedPrincipal, bool) {
	p, ok := ctx.Value(principalKey).(*EnrichedPrincipal)
	return p, ok
}

// NewContext stores an enriched principal, mainly for handler tests.
func NewContext(ctx context.Context, p *EnrichedPrincipal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// Middleware authenticates the request: it extracts the bearer token,
// validates it, enriches the identity from the directory and stores the
// result in the request context. Requests without a valid token never reach
// the wrapped handler.
func Middleware(validator tokenvalidator.Validator, enricher *EnrichmentService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromHeader(r)
			if token == "" {
				token = TokenFromCookie(r)
			}
			if token == "" {
				errors.RenderHTTP(w, r, errors.New(errors.ErrCodeTokenInvalid, "missing bearer token"))
				return
			}

			tc, err := validator.Validate(r.Context(), token)
			if err != nil {
				slog.Info("Token rejected", "error", err)
				errors.RenderHTTP(w, r, err)
				return
			}

			principal, err := enricher.Enrich(r.Context(), tc)
			if err != nil {
				slog.Error("Claims enrichment failed", "subject", tc.Subject, "error", err)
				errors.RenderHTTP(w, r, err)
				return
			}

			ctx := NewContext(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TokenFromHeader extracts a bearer token from the Authorization header.
func TokenFromHeader(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// TokenFromCookie extracts a bearer token from the access token cookie.
func TokenFromCookie(r *http.Request) string {
	cookie, err := r.Cookie(accessTokenCookie)
	if err != nil {
		return ""
	}
	return cookie.Value
}
