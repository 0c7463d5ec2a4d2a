package sensor

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/siren-guard/internal/config"
)

// TestParseReading covers the accepted line formats.
func TestParseReading(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"123.4":             123.4,
		"R0123\r":           123,
		"distance=12.5 cm":  12.5,
		"  7\n":             7,
		"d: - 42":           42,
		"temp=-3.5":         -3.5,
	}

	for line, want := range cases {
		got, err := ParseReading(line)
		require.NoError(t, err, line)
		require.InDelta(t, want, got, 1e-9, line)
	}

	_, err := ParseReading("no data")
	require.ErrorIs(t, err, ErrUnparsable)
}

// TestFile_ReadDistance reads and re-reads a value file.
func TestFile_ReadDistance(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "distance")
	require.NoError(t, os.WriteFile(path, []byte("6.5\n"), 0o600))

	f := NewFile(path)

	got, err := f.ReadDistance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 6.5, got, 0)

	require.NoError(t, os.WriteFile(path, []byte("2.0\n"), 0o600))

	got, err = f.ReadDistance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 2.0, got, 0)

	require.NoError(t, os.Remove(path))

	_, err = f.ReadDistance(context.Background())
	require.Error(t, err)
}

// TestSerial_KeepsLatestReading feeds lines through a pipe.
func TestSerial_KeepsLatestReading(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	s := NewSerial(r, time.Minute)

	_, err := s.ReadDistance(context.Background())
	require.ErrorIs(t, err, ErrNoReading)

	go s.Monitor(context.Background())

	_, err = io.WriteString(w, "R0400\ngarbage\nR0350\n")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		v, err := s.ReadDistance(context.Background())
		return err == nil && v == 350
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, w.Close())
	<-s.Done()

	// The last value survives the end of the stream until it goes stale.
	v, err := s.ReadDistance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 350.0, v, 0)
}

// TestSerial_Stale rejects readings older than the freshness window.
func TestSerial_Stale(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)
	s := NewSerial(io.NopCloser(strings.NewReader("12\n")), time.Second)
	s.now = func() time.Time { return now }

	s.Monitor(context.Background())

	v, err := s.ReadDistance(context.Background())
	require.NoError(t, err)
	require.InDelta(t, 12.0, v, 0)

	now = now.Add(2 * time.Second)

	_, err = s.ReadDistance(context.Background())
	require.ErrorIs(t, err, ErrStale)
}

// TestSerial_EndedWithoutData reports the stream error.
func TestSerial_EndedWithoutData(t *testing.T) {
	t.Parallel()

	s := NewSerial(io.NopCloser(strings.NewReader("")), time.Second)
	s.Monitor(context.Background())

	_, err := s.ReadDistance(context.Background())
	require.ErrorIs(t, err, ErrNoReading)
	require.ErrorIs(t, err, io.EOF)
	require.NoError(t, s.Close())
}

// TestOpen_FileSensor covers the factory.
func TestOpen_FileSensor(t *testing.T) {
	t.Parallel()

	r, err := Open(context.Background(), config.Sensor{Kind: config.SensorFile, Path: "/tmp/d"})
	require.NoError(t, err)
	require.IsType(t, new(File), r)

	_, err = Open(context.Background(), config.Sensor{Kind: "lidar"})
	require.Error(t, err)
}
