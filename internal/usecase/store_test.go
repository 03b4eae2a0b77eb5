package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/ctrl/internal/domain"
)

func TestStore_UpdateWritesWholeSnapshot(t *testing.T) {
	repo := newMemRepository(nil)
	store := NewStore(repo)

	err := store.Update(context.Background(), func(r *domain.Registry) error {
		r.Projects["proj1"] = &domain.Project{Name: "proj1", ChatChannel: "C1"}
		r.AddManager("carol")
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, repo.saves)
	got := repo.registry()
	assert.Contains(t, got.Projects, "proj1")
	assert.Equal(t, []string{"carol"}, got.Managers)
}

func TestStore_UpdateErrorSkipsSave(t *testing.T) {
	repo := newMemRepository(nil)
	store := NewStore(repo)
	sentinel := errors.New("nope")

	err := store.Update(context.Background(), func(r *domain.Registry) error {
		r.Projects["proj1"] = &domain.Project{ChatChannel: "C1"}
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 0, repo.saves)
	assert.Empty(t, repo.registry().Projects)
}

func TestStore_SnapshotIsPrivate(t *testing.T) {
	repo := newMemRepository(nil)
	store := NewStore(repo)

	snap, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	snap.Projects["ghost"] = &domain.Project{ChatChannel: "C9"}

	assert.Empty(t, repo.registry().Projects)
}
