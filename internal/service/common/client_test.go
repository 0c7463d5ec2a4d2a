//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/siren-guard/internal/config"
)

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestSend_RequiresTopic asserts that an empty topic is rejected by the client.
func TestSend_RequiresTopic(t *testing.T) {
	t.Parallel()

	c := new(Client)

	_, err := c.Send(context.Background(), "", "AUTO")
	require.ErrorIs(t, err, errTopicRequired)
}

// TestWithCallTimeout ignores non-positive values.
func TestWithCallTimeout(t *testing.T) {
	t.Parallel()

	c := &Client{callTimeout: time.Second}

	WithCallTimeout(0)(c)
	require.Equal(t, time.Second, c.callTimeout)

	WithCallTimeout(3 * time.Second)(c)
	require.Equal(t, 3*time.Second, c.callTimeout)
}

// TestConnect_MissingSettingsUsesDefaults dials the default address when no settings file exists.
func TestConnect_MissingSettingsUsesDefaults(t *testing.T) {
	t.Parallel()

	c, cfg, err := Connect(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.NoError(t, err)

	defer func() {
		_ = c.Close()
	}()

	require.Equal(t, config.DefaultServerAddress, cfg.ServerAddress)
	require.Equal(t, config.DefaultTimeout, c.callTimeout)
}
