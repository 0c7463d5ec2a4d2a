package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/siren-guard/internal/config"
	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/repository/thresholds"
)

// TestResolveListenAddress covers override, loopback and wildcard binding.
func TestResolveListenAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		config   string
		override string
		want     string
		wantErr  bool
	}{
		{name: "override wins", config: "10.0.0.5:50071", override: ":9000", want: ":9000"},
		{name: "loopback kept", config: "127.0.0.1:50071", want: "127.0.0.1:50071"},
		{name: "remote host binds all", config: "siren.local:50071", want: ":50071"},
		{name: "missing", wantErr: true},
		{name: "malformed", config: "siren.local", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := resolveListenAddress(tt.config, tt.override)
			if tt.wantErr {
				require.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

// TestOpenRepository selects the store by kind.
func TestOpenRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir := t.TempDir()

	repo, closeRepo, err := openRepository(ctx, config.Store{
		Kind: config.StoreSQLite,
		Path: filepath.Join(dir, "thresholds.db"),
	})
	require.NoError(t, err)

	defer closeRepo()

	require.IsType(t, &thresholds.SQLiteRepository{}, repo)
	require.NoError(t, repo.Save(ctx, domain.DefaultThresholds()))

	repo, closeFile, err := openRepository(ctx, config.Store{
		Kind: config.StoreFile,
		Path: filepath.Join(dir, "thresholds.yaml"),
	})
	require.NoError(t, err)

	defer closeFile()

	require.IsType(t, &thresholds.FileRepository{}, repo)
}
