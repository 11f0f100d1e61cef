package directory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

// Service resolves token identities to directory records.
type Service struct {
	repo Repository
}

// Option is a function that configures a Service
type Option func(*Service)

// NewService creates a directory service backed by the given repository.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindBySubjectOrEmail looks a user up by subject first, falling back to
// email for records provisioned before their first login linked the subject.
// An unknown user returns (nil, nil); only backend failures are errors.
// Deactivated records are invisible: the service enforces the active flag
// here so every repository backend yields the same outcome.
func (s *Service) FindBySubjectOrEmail(ctx context.Context, subject, email string) (*User, error) {
	if subject != "" {
		u, err := s.repo.FindBySubject(ctx, subject)
		if err != nil {
			slog.Error("Directory lookup by subject failed", "subject", subject, "error", err)
			return nil, errors.Wrap(err, errors.ErrCodeDirectoryLookupFailed, "directory lookup failed")
		}
		if u = activeOnly(u); u != nil {
			return u, nil
		}
	}

	if email == "" {
		return nil, nil
	}

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		slog.Error("Directory lookup by email failed", "email", email, "error", err)
		return nil, errors.Wrap(err, errors.ErrCodeDirectoryLookupFailed, "directory lookup failed")
	}
	return activeOnly(u), nil
}

// activeOnly turns a deactivated record into a miss.
func activeOnly(u *User) *User {
	if u == nil || !u.Active {
		return nil
	}
	return u
}

// normalizeEmail lowercases an email for case-insensitive matching.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
