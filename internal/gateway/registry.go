package gateway

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/ctrl/internal/domain"
)

// RegistryRepository loads and stores the whole registry.
type RegistryRepository interface {
	Load(ctx context.Context) (*domain.Registry, error)
	Save(ctx context.Context, r *domain.Registry) error
}

// Publisher is notified after every successful save, e.g. to commit and push the file.
type Publisher interface {
	Publish(ctx context.Context, path string) error
}

// FileRepository keeps the registry in a YAML file.
type FileRepository struct {
	path      string
	publisher Publisher
	logger    *zap.Logger
}

// NewFileRepository creates a repository backed by path. publisher may be nil.
func NewFileRepository(path string, publisher Publisher, logger *zap.Logger) *FileRepository {
	return &FileRepository{path: path, publisher: publisher, logger: logger}
}

// Load reads the registry. A missing file is a first run and yields the default registry.
func (f *FileRepository) Load(ctx context.Context) (*domain.Registry, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		f.logger.Info("Registry file not found, starting with an empty registry", zap.String("path", f.path))
		return domain.NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry %s: %w", f.path, errors.Join(domain.ErrPersistence, err))
	}

	r := domain.NewRegistry()
	if err := yaml.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("failed to decode registry %s: %w", f.path, errors.Join(domain.ErrPersistence, err))
	}
	r.Normalize()
	f.logger.Debug("Read registry", zap.String("path", f.path), zap.Int("projects", len(r.Projects)), zap.Int("profiles", len(r.Profiles)))
	return r, nil
}

// Save writes the registry atomically and then hands the file to the publisher.
// A publisher failure is logged; the local file remains the source of truth.
func (f *FileRepository) Save(ctx context.Context, r *domain.Registry) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", errors.Join(domain.ErrPersistence, err))
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, ".registry-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, errors.Join(domain.ErrPersistence, err))
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write registry: %w", errors.Join(domain.ErrPersistence, err))
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync registry: %w", errors.Join(domain.ErrPersistence, err))
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close registry: %w", errors.Join(domain.ErrPersistence, err))
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("failed to replace registry %s: %w", f.path, errors.Join(domain.ErrPersistence, err))
	}
	f.logger.Info("Wrote registry", zap.String("path", f.path), zap.Int("projects", len(r.Projects)))

	if f.publisher != nil {
		if err := f.publisher.Publish(ctx, f.path); err != nil {
			f.logger.Error("Failed to publish registry", zap.String("path", f.path), zap.Error(err))
		}
	}
	return nil
}
