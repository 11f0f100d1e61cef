package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// FileRepository implements Repository backed by a JSON file. The file is
// read once at startup; edits require a restart. Suited to small fixed
// directories and demo deployments.
type FileRepository struct {
	path      string
	mutex     sync.RWMutex
	bySubject map[string]User
}

// NewFileRepository loads the directory from the given JSON file, which
// holds an array of users.
func NewFileRepository(path string) (*FileRepository, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory file: %w", err)
	}

	var users []User
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to parse directory file %s: %w", path, err)
	}

	repo := &FileRepository{
		path:      path,
		bySubject: make(map[string]User, len(users)),
	}
	for _, u := range users {
		if u.Subject == "" {
			return nil, fmt.Errorf("directory file %s contains a user without a subject", path)
		}
		repo.bySubject[u.Subject] = u
	}
	return repo, nil
}

func (r *FileRepository) FindBySubject(ctx context.Context, subject string) (*User, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	u, exists := r.bySubject[subject]
	if !exists {
		return nil, nil
	}
	return &u, nil
}

func (r *FileRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
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
