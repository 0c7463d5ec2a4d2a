package instance

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mitchellh/go-ps"

	"github.com/oshokin/siren-guard/internal/logger"
)

// ErrAnotherInstance is returned when the executable is already running.
var ErrAnotherInstance = errors.New("another instance is already running")

// Ensure fails with ErrAnotherInstance when a process other than this one runs
// an executable with the same name.
func Ensure(ctx context.Context) error {
	self, err := os.Executable()
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}

	processList, err := ps.Processes()
	if err != nil {
		return fmt.Errorf("list processes: %w", err)
	}

	name := filepath.Base(self)

	others := findOthers(processList, os.Getpid(), name)
	if len(others) > 0 {
		return fmt.Errorf("%w: %s (pid %v)", ErrAnotherInstance, name, others)
	}

	logger.DebugKV(ctx, "No other instance running", "executable", name)

	return nil
}

// findOthers returns the PIDs of processes running name, excluding self.
func findOthers(processList []ps.Process, self int, name string) []int {
	var pids []int

	for _, process := range processList {
		if process.Pid() == self {
			continue
		}

		if !sameExecutable(process.Executable(), name) {
			continue
		}

		pids = append(pids, process.Pid())
	}

	return pids
}

// sameExecutable compares executable names, ignoring case and the .exe suffix on Windows.
func sameExecutable(a, b string) bool {
	if runtime.GOOS != "windows" {
		return a == b
	}

	trim := func(s string) string {
		return strings.TrimSuffix(strings.ToLower(s), ".exe")
	}

	return trim(a) == trim(b)
}
