package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/adres-gov/adres-gateway/pkg/claims"
	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// Policy is a named authorization rule over an enriched principal. Policies
// are pure predicates: no I/O, no clock, so a decision is reproducible from
// the principal alone.
type Policy struct {
	Name  string
	Check func(p *claims.EnrichedPrincipal) bool
}

// RequiresLegalRepresentative allows only users the directory marks as legal
// representatives. Missing data denies: an unknown principal or one outside
// the directory never passes.
var RequiresLegalRepresentative = Policy{
	Name: "RequiresLegalRepresentative",
	Check: func(p *claims.EnrichedPrincipal) bool {
		return p != nil && p.InDirectory && p.IsLegalRepresentative
	},
}

// Registry holds the named policies the gateway can enforce.
type Registry struct {
	mutex    sync.RWMutex
	policies map[string]Policy
}

// NewRegistry creates a registry preloaded with the built-in policies.
func NewRegistry() *Registry {
	r := &Registry{policies: make(map[string]Policy)}
	r.Register(RequiresLegalRepresentative)
	return r
}

// Register adds or replaces a policy by name.
func (r *Registry) Register(p Policy) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.policies[p.Name] = p
}

// Evaluate runs the named policy against the principal. nil error means
// allow. An unregistered policy name is a server fault, not a denial, so
// misconfiguration surfaces loudly instead of silently granting or blocking.
func (r *Registry) Evaluate(name string, p *claims.EnrichedPrincipal) error {
	r.mutex.RLock()
	policy, exists := r.policies[name]
	r.mutex.RUnlock()

	if !exists {
		return errors.Internal(fmt.Sprintf("unknown policy: %s", name))
	}

	if !policy.Check(p) {
		subject := ""
		if p != nil {
			subject = p.Subject
		}
		slog.Info("Policy denied", "policy", name, "subject", subject)
		return errors.PolicyDenied(name)
	}
	return nil
}

// Require wraps a handler with a policy check. The claims middleware must
// run first; a request with no principal in context is denied.
func (r *Registry) Require(name string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			principal, _ := claims.FromContext(req.Context())
			if err := r.Evaluate(name, principal); err != nil {
				errors.RenderHTTP(w, req, err)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}
