package claims

import (
	"log/slog"
)

// Principal is the identity asserted by a validated token, before the
// directory has said anything about it.
type Principal struct {
	Subject           string `json:"subject"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
}

// EnrichedPrincipal is the token identity merged with directory attributes.
// A valid token whose subject the directory does not know still yields an
// enriched principal, just one with no roles and no permissions.
type EnrichedPrincipal struct {
	Principal

	// InDirectory reports whether the directory knows this subject.
	InDirectory bool `json:"in_directory"`

	FullName              string   `json:"full_name,omitempty"`
	Roles                 []string `json:"roles"`
	Permissions           []string `json:"permissions"`
	IsLegalRepresentative bool     `json:"is_legal_representative"`
}

func (p *EnrichedPrincipal) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("subject", p.Subject),
		slog.String("username", p.PreferredUsername),
		slog.Bool("in_directory", p.InDirectory),
		slog.Any("roles", p.Roles),
	)
}

// HasRole reports whether the principal carries the named role.
func (p *EnrichedPrincipal) HasRole(name string) bool {
	for _, r := range p.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// HasPermission reports whether any of the principal's roles grants the
// permission code.
func (p *EnrichedPrincipal) HasPermission(code string) bool {
	for _, perm := range p.Permissions {
		if perm == code {
			return true
		}
	}
	return false
}
