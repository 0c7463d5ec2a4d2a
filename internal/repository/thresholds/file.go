package thresholds

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/siren-guard/internal/config"
	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// FileRepository persists thresholds to a YAML file on disk.
// Saves write a sibling temporary file and rename it over the target.
type FileRepository struct {
	// path is the filesystem location of the YAML file.
	path string
	// mu serialises access to the file.
	mu sync.Mutex
}

// fileDocument is the on-disk layout. Pointers detect missing keys.
type fileDocument struct {
	Normal  *float64 `yaml:"normal"`
	Warning *float64 `yaml:"warning"`
	Alert   *float64 `yaml:"alert"`
	Danger  *float64 `yaml:"danger"`
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the thresholds from disk.
func (r *FileRepository) Load(_ context.Context) (siren.ThresholdSet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return siren.ThresholdSet{}, ErrNotFound
		}

		return siren.ThresholdSet{}, fmt.Errorf("read thresholds file: %w", err)
	}

	var doc fileDocument
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return siren.ThresholdSet{}, fmt.Errorf("decode thresholds file: %w", err)
	}

	if doc.Normal == nil || doc.Warning == nil || doc.Alert == nil || doc.Danger == nil {
		return siren.ThresholdSet{}, ErrIncomplete
	}

	return siren.ThresholdSet{
		Normal:  *doc.Normal,
		Warning: *doc.Warning,
		Alert:   *doc.Alert,
		Danger:  *doc.Danger,
	}, nil
}

// Save replaces the file atomically with the provided thresholds.
func (r *FileRepository) Save(_ context.Context, set siren.ThresholdSet) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(&fileDocument{
		Normal:  &set.Normal,
		Warning: &set.Warning,
		Alert:   &set.Alert,
		Danger:  &set.Danger,
	})
	if err != nil {
		return fmt.Errorf("encode thresholds: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary thresholds file: %w", err)
	}

	tmpName := tmp.Name()

	// Remove the temporary file on any failure below; after rename it is gone anyway.
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temporary thresholds file: %w", err)
	}

	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temporary thresholds file: %w", err)
	}

	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temporary thresholds file: %w", err)
	}

	if err = os.Chmod(tmpName, config.DefaultFilePermissions); err != nil {
		return fmt.Errorf("chmod temporary thresholds file: %w", err)
	}

	if err = os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("replace thresholds file: %w", err)
	}

	return nil
}
