package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// Managers maintains the global project managers, who are asked to review
// every tracked pull request alongside the project owners.
type Managers struct {
	store *Store
}

// NewManagers creates a new Managers instance.
func NewManagers(store *Store) *Managers {
	return &Managers{store: store}
}

// List returns the managers in registry order.
func (m *Managers) List(ctx context.Context) ([]string, error) {
	r, err := m.store.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return r.Managers, nil
}

// Add registers a GitHub username as a manager.
func (m *Managers) Add(ctx context.Context, username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return domain.ErrNotEnoughArguments
	}
	return m.store.Update(ctx, func(r *domain.Registry) error {
		if !r.AddManager(username) {
			return fmt.Errorf("%s is already a manager: %w", username, domain.ErrAlreadyExists)
		}
		return nil
	})
}

// Remove drops a manager.
func (m *Managers) Remove(ctx context.Context, username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	return m.store.Update(ctx, func(r *domain.Registry) error {
		if !r.RemoveManager(username) {
			return fmt.Errorf("%s is not a manager: %w", username, domain.ErrNotOwner)
		}
		return nil
	})
}
