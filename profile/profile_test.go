package profile

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p := New(WithMode("cpu"), WithDir("/tmp/prof"), WithQuiet(true))

	require.Equal(t, Profiler{Mode: "cpu", Dir: "/tmp/prof", Quiet: true}, p)
}

func TestStart_NoMode(t *testing.T) {
	s := New(WithDir(t.TempDir())).Start()

	require.Equal(t, ignore{}, s)
	require.NotPanics(t, s.Stop)
}

func TestStart_UnknownMode(t *testing.T) {
	s := New(WithMode("bogus"), WithDir(t.TempDir())).Start()

	require.Equal(t, ignore{}, s)
	require.NotPanics(t, s.Stop)
}

func TestModes(t *testing.T) {
	if !Enabled {
		require.Empty(t, Modes())

		return
	}

	require.Contains(t, Modes(), "cpu")
	require.IsNonDecreasing(t, Modes())
}
