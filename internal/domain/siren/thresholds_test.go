package siren

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// TestClassify_Scenario covers the documented sample sequence.
func TestClassify_Scenario(t *testing.T) {
	t.Parallel()

	thresholds := ThresholdSet{Normal: 8.0, Warning: 5.0, Alert: 3.0, Danger: 2.0}

	got := make([]Level, 0, 4)
	for _, d := range []float64{9.0, 6.0, 2.5, 1.0} {
		got = append(got, Classify(d, thresholds))
	}

	require.Equal(t, []Level{LevelSafe, LevelWarning, LevelAlert, LevelDanger}, got)
}

// TestClassify_BoundaryBelongsToStricterLevel checks every bound value exactly.
func TestClassify_BoundaryBelongsToStricterLevel(t *testing.T) {
	t.Parallel()

	thresholds := ThresholdSet{Normal: 8.0, Warning: 5.0, Alert: 3.0, Danger: 2.0}

	cases := map[float64]Level{
		0:      LevelDanger,
		2.0:    LevelDanger,
		2.0001: LevelAlert,
		3.0:    LevelAlert,
		5.0:    LevelWarning,
		5.5:    LevelNormal,
		8.0:    LevelNormal,
		8.0001: LevelSafe,
		-1:     LevelDanger,
	}

	for distance, want := range cases {
		require.Equal(t, want, Classify(distance, thresholds), "distance %v", distance)
	}
}

// TestClassify_TightestBound sweeps distances and checks the returned level's
// bound is the tightest one the distance satisfies.
func TestClassify_TightestBound(t *testing.T) {
	t.Parallel()

	thresholds := ThresholdSet{Normal: 80, Warning: 50, Alert: 30, Danger: 20}
	bounds := []struct {
		level Level
		bound float64
	}{
		{LevelDanger, thresholds.Danger},
		{LevelAlert, thresholds.Alert},
		{LevelWarning, thresholds.Warning},
		{LevelNormal, thresholds.Normal},
	}

	for d := 0.0; d <= 100; d += 0.5 {
		want := LevelSafe

		for _, b := range bounds {
			if d <= b.bound {
				want = b.level
				break
			}
		}

		require.Equal(t, want, Classify(d, thresholds), "distance %v", d)
	}
}

// TestClassify_MisorderedStaysTotal follows evaluation order for misordered bounds.
func TestClassify_MisorderedStaysTotal(t *testing.T) {
	t.Parallel()

	// Warning below alert: a distance of 4 satisfies alert first.
	thresholds := ThresholdSet{Normal: 8, Warning: 3, Alert: 5, Danger: 2}
	require.False(t, thresholds.Ordered())
	require.Equal(t, LevelAlert, Classify(4, thresholds))
	require.Equal(t, LevelAlert, Classify(3, thresholds))
	require.Equal(t, LevelNormal, Classify(6, thresholds))
}

// TestThresholdSet_WithAndGet exercises key based access.
func TestThresholdSet_WithAndGet(t *testing.T) {
	t.Parallel()

	base := DefaultThresholds()
	require.True(t, base.Ordered())

	updated, err := base.With(ThresholdAlert, 4.5)
	require.NoError(t, err)

	want := ThresholdSet{Normal: 8, Warning: 5, Alert: 4.5, Danger: 2}
	if diff := cmp.Diff(want, updated); diff != "" {
		t.Fatalf("unexpected thresholds (-want +got):\n%s", diff)
	}

	// Original is untouched.
	require.InDelta(t, 3.0, base.Alert, 0)

	value, err := updated.Get(ThresholdAlert)
	require.NoError(t, err)
	require.InDelta(t, 4.5, value, 0)

	_, err = updated.With("sideways", 1)
	require.ErrorIs(t, err, ErrUnknownThreshold)

	_, err = updated.Get("sideways")
	require.ErrorIs(t, err, ErrUnknownThreshold)

	require.Len(t, updated.Map(), 4)
}

// TestParseThresholdName normalises case and rejects unknown keys.
func TestParseThresholdName(t *testing.T) {
	t.Parallel()

	name, err := ParseThresholdName(" Danger ")
	require.NoError(t, err)
	require.Equal(t, ThresholdDanger, name)

	_, err = ParseThresholdName("critical")
	require.ErrorIs(t, err, ErrUnknownThreshold)
}

// TestCheckBound rejects non-finite, non-positive and too-large bounds.
func TestCheckBound(t *testing.T) {
	t.Parallel()

	require.NoError(t, CheckBound(3, 100))
	require.NoError(t, CheckBound(1e6, 0))
	require.ErrorIs(t, CheckBound(0, 100), ErrOutOfRange)
	require.ErrorIs(t, CheckBound(-1, 100), ErrOutOfRange)
	require.ErrorIs(t, CheckBound(math.NaN(), 100), ErrOutOfRange)
	require.ErrorIs(t, CheckBound(math.Inf(1), 100), ErrOutOfRange)
	require.ErrorIs(t, CheckBound(101, 100), ErrOutOfRange)

	bad := DefaultThresholds()
	bad.Warning = -5
	require.ErrorIs(t, bad.Validate(100), ErrOutOfRange)
	require.NoError(t, DefaultThresholds().Validate(100))
}
