package instance

import (
	"context"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess implements ps.Process.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

// TestFindOthers skips the current process and unrelated executables.
func TestFindOthers(t *testing.T) {
	t.Parallel()

	processList := []ps.Process{
		fakeProcess{pid: 10, name: "siren-guard"},
		fakeProcess{pid: 11, name: "sshd"},
		fakeProcess{pid: 12, name: "siren-guard"},
		fakeProcess{pid: 13, name: "siren-ctl"},
	}

	require.Equal(t, []int{12}, findOthers(processList, 10, "siren-guard"))
	require.Empty(t, findOthers(processList, 10, "siren-ctl-missing"))
	require.Equal(t, []int{10, 12}, findOthers(processList, 99, "siren-guard"))
}

// TestEnsure_SingleTestBinary passes because the test binary runs once.
func TestEnsure_SingleTestBinary(t *testing.T) {
	t.Parallel()

	require.NoError(t, Ensure(context.Background()))
}
