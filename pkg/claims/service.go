package claims

import (
	"context"
	"log/slog"

	"github.com/adres-gov/adres-gateway/pkg/directory"
	"github.com/adres-gov/adres-gateway/pkg/tokenvalidator"
)

// EnrichmentService merges validated token claims with directory attributes.
type EnrichmentService struct {
	directory *directory.Service
}

// NewEnrichmentService creates the enrichment service.
func NewEnrichmentService(dir *directory.Service) *EnrichmentService {
	return &EnrichmentService{directory: dir}
}

// Enrich turns validated token claims into an enriched principal.
//
// An unknown subject is not an error: the principal comes back with
// InDirectory false and empty roles and permissions, and authorization
// downstream denies on that basis. A directory backend failure is an error;
// the request must not proceed with silently missing attributes.
func (s *EnrichmentService) Enrich(ctx context.Context, tc *tokenvalidator.Claims) (*EnrichedPrincipal, error) {
	principal := &EnrichedPrincipal{
		Principal: Principal{
			Subject:           tc.Subject,
			PreferredUsername: tc.PreferredUsername,
			Email:             tc.Email,
			Name:              tc.Name,
		},
		Roles:       []string{},
		Permissions: []string{},
	}

	user, err := s.directory.FindBySubjectOrEmail(ctx, tc.Subject, tc.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		slog.Debug("Subject not found in directory", "subject", tc.Subject)
		return principal, nil
	}

	principal.InDirectory = true
	principal.FullName = user.FullName
	principal.Roles = user.RoleNames()
	principal.Permissions = user.Permissions()
	principal.IsLegalRepresentative = user.IsLegalRepresentative

	slog.Debug("Principal enriched", "principal", principal)
	return principal, nil
}
