// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"sync"

	"github.com/naka-gawa/ctrl/internal/domain"
	"github.com/naka-gawa/ctrl/internal/gateway"
)

// Store serializes access to the registry. Every mutation runs load, clone,
// mutate and save under one lock, so concurrent commands cannot lose updates.
type Store struct {
	mu   sync.Mutex
	repo gateway.RegistryRepository
}

// NewStore creates a Store over a registry repository.
func NewStore(repo gateway.RegistryRepository) *Store {
	return &Store{repo: repo}
}

// Snapshot returns a private copy of the current registry.
func (s *Store) Snapshot(ctx context.Context) (*domain.Registry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

// Update loads the registry, applies fn to a copy and saves the copy.
// If fn returns an error nothing is written.
func (s *Store) Update(ctx context.Context, fn func(r *domain.Registry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.repo.Load(ctx)
	if err != nil {
		return err
	}
	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, next); err != nil {
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}
