package directory

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adres-gov/adres-gateway/pkg/errors"
)

const legalRepSubject = "d8213788-117a-4a1d-877b-32d47bdb2b1e"

func TestInMemRepositoryFindBySubject(t *testing.T) {
	repo := NewSeededInMemRepository()

	u, err := repo.FindBySubject(context.Background(), legalRepSubject)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "j.hernandez", u.Username)
	assert.True(t, u.IsLegalRepresentative)
	assert.Equal(t, []string{"Admin"}, u.RoleNames())
	assert.ElementsMatch(t, []string{"CONSULTAR_PAGOS", "CREAR_SOLICITUD"}, u.Permissions())

	// Unknown user is a miss, not an error.
	u, err = repo.FindBySubject(context.Background(), "no-such-subject")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestInMemRepositoryFindByEmail(t *testing.T) {
	repo := NewSeededInMemRepository()

	u, err := repo.FindByEmail(context.Background(), "MARIA@adres.gov.co")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "m.gomez", u.Username)
	assert.False(t, u.IsLegalRepresentative)

	u, err = repo.FindByEmail(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestUserPermissionsDeduplicated(t *testing.T) {
	u := User{Roles: []Role{
		{Name: "A", Permissions: []string{"X", "Y"}},
		{Name: "B", Permissions: []string{"Y", "Z"}},
	}}
	assert.ElementsMatch(t, []string{"X", "Y", "Z"}, u.Permissions())
}

func TestFileRepository(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{
			"subject": "u-file-1",
			"username": "f.garcia",
			"email": "felipe@adres.gov.co",
			"full_name": "Felipe García",
			"is_legal_representative": true,
			"active": true,
			"roles": [{"name": "Consulta", "permissions": ["CONSULTAR_PAGOS"]}]
		}
	]`), 0644))

	repo, err := NewFileRepository(path)
	require.NoError(t, err)

	u, err := repo.FindBySubject(context.Background(), "u-file-1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "f.garcia", u.Username)
	assert.Equal(t, []string{"CONSULTAR_PAGOS"}, u.Permissions())

	u, err = repo.FindByEmail(context.Background(), "felipe@adres.gov.co")
	require.NoError(t, err)
	require.NotNil(t, u)
}

func TestFileRepositoryRejectsBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "directory.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"not":"an array"}`), 0644))

	_, err := NewFileRepository(path)
	assert.Error(t, err)

	_, err = NewFileRepository(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestServiceFindBySubjectOrEmail(t *testing.T) {
	svc := NewService(NewSeededInMemRepository())

	// Subject hit wins.
	u, err := svc.FindBySubjectOrEmail(context.Background(), legalRepSubject, "")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "j.hernandez", u.Username)

	// Unknown subject falls back to email.
	u, err = svc.FindBySubjectOrEmail(context.Background(), "fresh-subject", "maria@adres.gov.co")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "m.gomez", u.Username)

	// Neither known: a miss, not an error.
	u, err = svc.FindBySubjectOrEmail(context.Background(), "fresh-subject", "nobody@adres.gov.co")
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestServiceHidesInactiveUsers(t *testing.T) {
	repo := NewInMemRepository()
	repo.AddUser(User{
		Subject:               "u-retired",
		Username:              "c.retirado",
		Email:                 "retirado@adres.gov.co",
		IsLegalRepresentative: true,
		Active:                false,
		Roles:                 []Role{{Name: "Admin", Permissions: []string{"CONSULTAR_PAGOS"}}},
	})
	svc := NewService(repo)

	// A deactivated record is a miss on every lookup path, regardless of
	// which repository backend holds it.
	u, err := svc.FindBySubjectOrEmail(context.Background(), "u-retired", "")
	require.NoError(t, err)
	assert.Nil(t, u)

	u, err = svc.FindBySubjectOrEmail(context.Background(), "unlinked-subject", "retirado@adres.gov.co")
	require.NoError(t, err)
	assert.Nil(t, u)
}

// failingRepository simulates a directory backend outage.
type failingRepository struct{}

func (failingRepository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	return nil, fmt.Errorf("connection refused")
}

func (failingRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return nil, fmt.Errorf("connection refused")
}

func TestServiceWrapsBackendFailure(t *testing.T) {
	svc := NewService(failingRepository{})

	_, err := svc.FindBySubjectOrEmail(context.Background(), "any", "any@adres.gov.co")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDirectoryLookupFailed))
}
