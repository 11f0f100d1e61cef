package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository implements Repository against the gateway database.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL-backed directory repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const findUserQuery = `
SELECT id, subject, username, email, full_name, is_legal_representative, active
FROM directory_users
WHERE %s = $1 AND active = TRUE
`

const findRolesQuery = `
SELECT r.name,
       COALESCE(array_agg(p.code ORDER BY p.code) FILTER (WHERE p.code IS NOT NULL), '{}')
FROM directory_user_roles ur
JOIN directory_roles r ON r.id = ur.role_id
LEFT JOIN directory_role_permissions rp ON rp.role_id = r.id
LEFT JOIN directory_permissions p ON p.id = rp.permission_id
WHERE ur.user_id = $1
GROUP BY r.name
ORDER BY r.name
`

func (r *PostgresRepository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	return r.findBy(ctx, "subject", subject)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}
	return r.findBy(ctx, "lower(email)", normalizeEmail(email))
}

func (r *PostgresRepository) findBy(ctx context.Context, column, value string) (*User, error) {
	var u User
	query := fmt.Sprintf(findUserQuery, column)
	err := r.pool.QueryRow(ctx, query, value).Scan(
		&u.ID, &u.Subject, &u.Username, &u.Email, &u.FullName,
		&u.IsLegalRepresentative, &u.Active,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query directory user: %w", err)
	}

	rows, err := r.pool.Query(ctx, findRolesQuery, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to query user roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.Name, &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to scan user role: %w", err)
		}
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read user roles: %w", err)
	}

	return &u, nil
}
