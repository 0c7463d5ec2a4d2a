package thresholds

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/siren-guard/internal/domain/siren"
)

var errTestLoad = errors.New("test load error")

// stubRepository returns canned Load results.
type stubRepository struct {
	set siren.ThresholdSet
	err error
}

func (s *stubRepository) Load(context.Context) (siren.ThresholdSet, error) { return s.set, s.err }
func (s *stubRepository) Save(context.Context, siren.ThresholdSet) error   { return nil }

// repositories returns one of each implementation backed by a temp dir.
func repositories(t *testing.T) map[string]Repository {
	t.Helper()

	dir := t.TempDir()

	db, err := OpenSQLite(context.Background(), filepath.Join(dir, "siren.db"))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = db.Close()
	})

	return map[string]Repository{
		"file":   NewFileRepository(filepath.Join(dir, "thresholds.yaml")),
		"sqlite": db,
	}
}

// TestRepository_NotFound verifies Load reports ErrNotFound before the first save.
func TestRepository_NotFound(t *testing.T) {
	t.Parallel()

	for name, repo := range repositories(t) {
		_, err := repo.Load(context.Background())
		require.ErrorIs(t, err, ErrNotFound, name)
	}
}

// TestRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal set.
func TestRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	want := siren.ThresholdSet{Normal: 8.25, Warning: 5.5, Alert: 3.125, Danger: 2}

	for name, repo := range repositories(t) {
		require.NoError(t, repo.Save(context.Background(), want), name)

		got, err := repo.Load(context.Background())
		require.NoError(t, err, name)

		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("%s: unexpected thresholds (-want +got):\n%s", name, diff)
		}

		// Overwrite keeps exactly the latest values.
		next, _ := want.With(siren.ThresholdDanger, 1.5)
		require.NoError(t, repo.Save(context.Background(), next), name)

		got, err = repo.Load(context.Background())
		require.NoError(t, err, name)
		require.Equal(t, next, got, name)
	}
}

// TestFileRepository_LeavesNoTemporaryFiles checks the atomic replace cleans up.
func TestFileRepository_LeavesNoTemporaryFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	repo := NewFileRepository(filepath.Join(dir, "thresholds.yaml"))

	for range 3 {
		require.NoError(t, repo.Save(context.Background(), siren.DefaultThresholds()))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "thresholds.yaml", entries[0].Name())
}

// TestFileRepository_Incomplete rejects files missing a bound.
func TestFileRepository_Incomplete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "thresholds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("normal: 8\nwarning: 5\n"), 0o600))

	_, err := NewFileRepository(path).Load(context.Background())
	require.ErrorIs(t, err, ErrIncomplete)

	require.NoError(t, os.WriteFile(path, []byte("normal: [\n"), 0o600))

	_, err = NewFileRepository(path).Load(context.Background())
	require.Error(t, err)
}

// TestLoadOrDefault covers found, missing and failing repositories.
func TestLoadOrDefault(t *testing.T) {
	t.Parallel()

	defaults := siren.DefaultThresholds()
	stored := siren.ThresholdSet{Normal: 90, Warning: 60, Alert: 40, Danger: 10}

	got, err := LoadOrDefault(context.Background(), &stubRepository{set: stored}, defaults)
	require.NoError(t, err)
	require.Equal(t, stored, got)

	got, err = LoadOrDefault(context.Background(), &stubRepository{err: ErrNotFound}, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, got)

	got, err = LoadOrDefault(context.Background(), &stubRepository{err: errTestLoad}, defaults)
	require.ErrorIs(t, err, errTestLoad)
	require.Equal(t, defaults, got)

	got, err = LoadOrDefault(context.Background(), nil, defaults)
	require.NoError(t, err)
	require.Equal(t, defaults, got)
}
