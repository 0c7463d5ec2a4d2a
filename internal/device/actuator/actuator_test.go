package actuator

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/siren-guard/internal/config"
	"github.com/oshokin/siren-guard/internal/domain/siren"
)

// blockingDriver never finishes a write until released.
type blockingDriver struct {
	release chan struct{}
}

func (b *blockingDriver) Set(ctx context.Context, _ siren.Direction) error {
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *blockingDriver) Close() error { return nil }

// mockPort records serial writes.
type mockPort struct {
	bytes.Buffer

	closed bool
}

func (m *mockPort) Close() error {
	m.closed = true
	return nil
}

// TestGPIO_WritesLevels checks active-high and active-low pin values.
func TestGPIO_WritesLevels(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "value")
	require.NoError(t, os.WriteFile(path, []byte("0\n"), 0o600))

	ctx := context.Background()

	g := NewGPIO(path, false)
	require.NoError(t, g.Set(ctx, siren.DirectionOn))
	requireFile(t, path, "1\n")
	require.NoError(t, g.Set(ctx, siren.DirectionOff))
	requireFile(t, path, "0\n")

	inverted := NewGPIO(path, true)
	require.NoError(t, inverted.Set(ctx, siren.DirectionOn))
	requireFile(t, path, "0\n")

	require.Error(t, g.Set(ctx, "HALF"))
	require.Error(t, NewGPIO(filepath.Join(t.TempDir(), "missing"), false).Set(ctx, siren.DirectionOn))
}

// TestSerial_WritesCommands checks the relay line protocol.
func TestSerial_WritesCommands(t *testing.T) {
	t.Parallel()

	port := new(mockPort)
	s := NewSerial(port)

	require.NoError(t, s.Set(context.Background(), siren.DirectionOn))
	require.NoError(t, s.Set(context.Background(), siren.DirectionOff))
	require.Error(t, s.Set(context.Background(), ""))
	require.Equal(t, "ON\nOFF\n", port.String())

	require.NoError(t, s.Close())
	require.True(t, port.closed)
}

// TestWithTimeout_ReportsTimeout verifies a hung write becomes ErrWriteTimeout.
func TestWithTimeout_ReportsTimeout(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		inner := &blockingDriver{release: make(chan struct{})}
		d := WithTimeout(inner, 500*time.Millisecond)

		start := time.Now()
		err := d.Set(context.Background(), siren.DirectionOn)
		require.ErrorIs(t, err, ErrWriteTimeout)
		require.Equal(t, 500*time.Millisecond, time.Since(start))

		close(inner.release)
		require.NoError(t, d.Set(context.Background(), siren.DirectionOff))
	})
}

// TestOpen_SelectsDriver covers the factory.
func TestOpen_SelectsDriver(t *testing.T) {
	t.Parallel()

	d, err := Open(config.Actuator{Kind: config.ActuatorLog}, time.Second)
	require.NoError(t, err)
	require.NoError(t, d.Set(context.Background(), siren.DirectionOn))
	require.NoError(t, d.Close())

	d, err = Open(config.Actuator{Kind: config.ActuatorGPIO, Path: "/tmp/x"}, 0)
	require.NoError(t, err)
	require.IsType(t, new(GPIO), d)

	_, err = Open(config.Actuator{Kind: "hydraulic"}, time.Second)
	require.Error(t, err)
}

func requireFile(t *testing.T, path, want string) {
	t.Helper()

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, want, string(got))
}
