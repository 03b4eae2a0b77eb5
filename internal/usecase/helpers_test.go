package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// memRepository is an in-memory RegistryRepository that counts saves.
type memRepository struct {
	mu      sync.Mutex
	current *domain.Registry
	saves   int
	loadErr error
	saveErr error
}

func newMemRepository(r *domain.Registry) *memRepository {
	if r == nil {
		r = domain.NewRegistry()
	}
	r.Normalize()
	return &memRepository{current: r}
}

func (m *memRepository) Load(ctx context.Context) (*domain.Registry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.current.Clone(), nil
}

func (m *memRepository) Save(ctx context.Context, r *domain.Registry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.current = r.Clone()
	m.saves++
	return nil
}

func (m *memRepository) registry() *domain.Registry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current.Clone()
}

// mockCodeHost is a mock implementation of the gateway.CodeHost interface.
// It allows us to simulate GitHub without making real API calls.
type mockCodeHost struct {
	mock.Mock
}

func (m *mockCodeHost) AddAssignees(ctx context.Context, repo string, number int, assignees []string) error {
	return m.Called(ctx, repo, number, assignees).Error(0)
}

func (m *mockCodeHost) RequestReviewers(ctx context.Context, repo string, number int, reviewers []string) error {
	return m.Called(ctx, repo, number, reviewers).Error(0)
}

func (m *mockCodeHost) CreateComment(ctx context.Context, repo string, number int, body string) error {
	return m.Called(ctx, repo, number, body).Error(0)
}

func (m *mockCodeHost) Merge(ctx context.Context, repo string, number int, message string) error {
	return m.Called(ctx, repo, number, message).Error(0)
}

func (m *mockCodeHost) ListContributors(ctx context.Context, repo string) ([]string, error) {
	args := m.Called(ctx, repo)
	// We need to handle the case where the returned slice is nil (e.g., when an error occurs).
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCodeHost) DefaultBranch(ctx context.Context, repo string) (string, error) {
	args := m.Called(ctx, repo)
	return args.String(0), args.Error(1)
}
