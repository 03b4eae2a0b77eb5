package gateway

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/naka-gawa/ctrl/internal/domain"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func TestFileRepository_LoadMissingFile(t *testing.T) {
	repo := NewFileRepository(filepath.Join(t.TempDir(), "manifest.yaml"), nil, zap.NewNop())

	r, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, domain.NewRegistry(), r)
}

func TestFileRepository_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, path).Return(nil)
	repo := NewFileRepository(path, publisher, zap.NewNop())

	r := domain.NewRegistry()
	r.Projects["proj1"] = &domain.Project{ChatChannel: "C1", Repository: "repo-org/repo-name", Owners: []string{"bob"}}
	r.Profiles["U123"] = &domain.Profile{CodeHostUsername: "alice"}
	r.Managers = []string{"carol"}

	require.NoError(t, repo.Save(context.Background(), r))
	loaded, err := repo.Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "proj1", loaded.Projects["proj1"].Name)
	assert.Equal(t, "repo-org/repo-name", loaded.Projects["proj1"].Repository)
	assert.Equal(t, []string{"bob"}, loaded.Projects["proj1"].Owners)
	assert.Equal(t, "alice", loaded.Profiles["U123"].CodeHostUsername)
	assert.Equal(t, []string{"carol"}, loaded.Managers)
	publisher.AssertExpectations(t)
}

func TestFileRepository_ReadsOriginalLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	content := `projects:
  proj1:
    slack_channel: C1
    github_repo: repo-org/repo-name
    project_owners: [bob]
    jira_project: PROJ
managers: [carol]
configured_project: amcwb/ctrl
profiles:
  U123:
    github_username: alice
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r, err := NewFileRepository(path, nil, zap.NewNop()).Load(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "PROJ", r.Projects["proj1"].IssueTrackerProject)
	assert.Equal(t, "amcwb/ctrl", r.ConfiguredProject)
	assert.Equal(t, []string{"carol"}, r.Managers)
}

func TestFileRepository_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("projects: [unclosed"), 0o644))

	_, err := NewFileRepository(path, nil, zap.NewNop()).Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func TestFileRepository_PublishFailureIsNotFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.yaml")
	publisher := new(mockPublisher)
	publisher.On("Publish", mock.Anything, path).Return(errors.New("push rejected"))

	err := NewFileRepository(path, publisher, zap.NewNop()).Save(context.Background(), domain.NewRegistry())

	assert.NoError(t, err)
	assert.FileExists(t, path)
	publisher.AssertExpectations(t)
}

func TestGitSync_CommitsWithoutPush(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	path := filepath.Join(dir, "manifest.yaml")
	sync := NewGitSync(dir, "", "", false, zap.NewNop())
	fileRepo := NewFileRepository(path, sync, zap.NewNop())

	r := domain.NewRegistry()
	r.Projects["proj1"] = &domain.Project{ChatChannel: "C1"}
	require.NoError(t, fileRepo.Save(context.Background(), r))

	head, err := repo.Head()
	require.NoError(t, err)
	commit, err := repo.CommitObject(head.Hash())
	require.NoError(t, err)
	assert.Equal(t, "Updated config", commit.Message)

	// Saving identical content produces no new commit.
	require.NoError(t, sync.Publish(context.Background(), path))
	again, err := repo.Head()
	require.NoError(t, err)
	assert.Equal(t, head.Hash(), again.Hash())
}
