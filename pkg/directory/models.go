package directory

import (
	"github.com/google/uuid"
)

// Role groups a set of permission codes under a name. Permissions are plain
// strings such as "CONSULTAR_PAGOS"; the directory does not interpret them.
type Role struct {
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// User is a directory record for a person the gateway knows beyond what the
// provider asserts about them. The provider owns authentication; this record
// owns roles, permissions and institutional attributes.
type User struct {
	ID uuid.UUID `json:"id"`

	// Subject is the OIDC sub claim the provider issues for this person.
	// It is the primary lookup key.
	Subject string `json:"subject"`

	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`

	// IsLegalRepresentative marks the user as a registered legal
	// representative of their entity. Consumed by authorization policies.
	IsLegalRepresentative bool `json:"is_legal_representative"`

	Active bool `json:"active"`

	Roles []Role `json:"roles"`
}

// Permissions returns the union of permission codes across the user's roles,
// deduplicated, order unspecified.
func (u *User) Permissions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, role := range u.Roles {
		for _, p := range role.Permissions {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

// RoleNames returns the user's role names in declaration order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}
