package directory

import (
	"context"
	"strings"
	"sync"
)

// InMemRepository implements Repository with an in-memory map. Used in
// development and tests; seeded via AddUser.
type InMemRepository struct {
	mutex     sync.RWMutex
	bySubject map[string]User
}

// NewInMemRepository creates an empty in-memory directory.
func NewInMemRepository() *InMemRepository {
	return &InMemRepository{
		bySubject: make(map[string]User),
	}
}

// AddUser inserts or replaces a directory record, keyed by subject.
func (r *InMemRepository) AddUser(u User) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.bySubject[u.Subject] = u
}

func (r *InMemRepository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.bySubject[subject]
	if !exists {
		return nil, nil
	}
	return &u, nil
}

func (r *InMemRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, nil
	}

	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, u := range r.bySubject {
		if strings.EqualFold(u.Email, email) {
			user := u
			return &user, nil
		}
	}
	return nil, nil
}
