package directory

import (
	"context"
)

// Repository defines the lookups the enrichment pipeline needs. A miss is
// not an error: implementations return (nil, nil) for an unknown user and
// reserve errors for backend failures. Implementations may return inactive
// records; Service is the authority that hides them.
type Repository interface {
	FindBySubject(ctx context.Context, subject string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
}
