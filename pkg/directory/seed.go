package directory

import (
	"github.com/google/uuid"
)

// Demo role definitions mirroring the agency's production role model.
var (
	roleAdmin = Role{
		Name:        "Admin",
		Permissions: []string{"CONSULTAR_PAGOS", "CREAR_SOLICITUD"},
	}
	roleAnalista = Role{
		Name:        "Analista",
		Permissions: []string{"CONSULTAR_PAGOS", "CREAR_SOLICITUD"},
	}
	roleConsulta = Role{
		Name:        "Consulta",
		Permissions: []string{"CONSULTAR_PAGOS"},
	}
)

// SeedUsers returns the demo directory fixture. The first subject matches a
// real account on the identity provider so the end-to-end flow works out of
// the box in demo deployments.
func SeedUsers() []User {
	return []User{
		{
			ID:                    uuid.New(),
			Subject:               "d8213788-117a-4a1d-877b-32d47bdb2b1e",
			Username:              "j.hernandez",
			Email:                 "jorge.hernandez@adres.gov.co",
			FullName:              "Jorge Hernández",
			IsLegalRepresentative: true,
			Active:                true,
			Roles:                 []Role{roleAdmin},
		},
		{
			ID:                    uuid.New(),
			Subject:               "u-12345",
			Username:              "j.perez",
			Email:                 "juan@adres.gov.co",
			FullName:              "Juan Pérez",
			IsLegalRepresentative: true,
			Active:                true,
			Roles:                 []Role{roleAdmin, roleAnalista},
		},
		{
			ID:                    uuid.New(),
			Subject:               "u-67890",
			Username:              "m.gomez",
			Email:                 "maria@adres.gov.co",
			FullName:              "María Gómez",
			IsLegalRepresentative: false,
			Active:                true,
			Roles:                 []Role{roleConsulta},
		},
	}
}

// NewSeededInMemRepository creates an in-memory directory preloaded with the
// demo fixture.
func NewSeededInMemRepository() *InMemRepository {
	repo := NewInMemRepository()
	for _, u := range SeedUsers() {
		repo.AddUser(u)
	}
	return repo
}
