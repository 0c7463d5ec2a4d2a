package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
)

// fakeCommander records requests.
type fakeCommander struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeCommander) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls = append(f.calls, call)
}

func (f *fakeCommander) Send(_ context.Context, topic, payload string) (string, error) {
	f.record(topic + " " + payload)
	return "id", f.err
}

func (f *fakeCommander) SetOverride(_ context.Context, direction, reason string) (map[string]any, error) {
	f.record("override " + direction + " " + reason)
	return nil, f.err
}

func (f *fakeCommander) ClearOverride(context.Context) (map[string]any, error) {
	f.record("clear")
	return nil, f.err
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// run feeds msg into m and executes the returned command, if any.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()

	next, cmd := m.Update(msg)
	m = next.(Model) //nolint:forcetypeassert // Update always returns Model.

	if cmd != nil {
		next, _ = m.Update(cmd())
		m = next.(Model) //nolint:forcetypeassert // Update always returns Model.
	}

	return m
}

// TestModel_KeysIssueRequests maps shortcuts to control requests.
func TestModel_KeysIssueRequests(t *testing.T) {
	t.Parallel()

	commander := new(fakeCommander)
	m := New(context.Background(), commander, "ops@host", time.Second)

	m = run(t, m, key("m"))
	m = run(t, m, key("1"))
	m = run(t, m, key("o"))
	m = run(t, m, key("c"))
	m = run(t, m, key("a"))

	require.Equal(t, []string{
		"mode/set MANUAL",
		"relay/set ON",
		"override ON ops@host",
		"clear",
		"mode/set AUTO",
	}, commander.calls)
	require.Contains(t, m.View(), "ok: mode AUTO")

	commander.err = errors.New("daemon unavailable")
	m = run(t, m, key("0"))
	require.Contains(t, m.View(), "daemon unavailable")

	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	require.Equal(t, tea.Quit(), cmd())
}

// TestModel_RendersEvents checks telemetry and status fill the panel.
func TestModel_RendersEvents(t *testing.T) {
	t.Parallel()

	m := New(context.Background(), new(fakeCommander), "", time.Second)
	require.Contains(t, m.View(), "Waiting for the daemon")

	m = run(t, m, EventMsg{Topic: "status", Payload: map[string]any{
		"device":   "pump-room",
		"mode":     "AUTO",
		"pattern":  "PULSE_ALERT",
		"actuator": "ON",
		"override": map[string]any{"direction": "ON", "reason": "drill"},
	}})
	m = run(t, m, EventMsg{Topic: "telemetry", Payload: map[string]any{
		"distance": 2.5,
		"unit":     "cm",
		"level":    "ALERT",
		"normal":   8.0,
		"warning":  5.0,
		"alert":    3.0,
		"danger":   2.0,
	}})

	view := m.View()
	require.Contains(t, view, "pump-room")
	require.Contains(t, view, "2.50 cm")
	require.Contains(t, view, "ALERT")
	require.Contains(t, view, "PULSE_ALERT")
	require.Contains(t, view, "ON (drill)")
	require.Contains(t, view, "warning=5")

	m = run(t, m, EventMsg{Topic: "telemetry", Payload: map[string]any{"distance": -1.0, "error": "no echo"}})
	require.Contains(t, m.View(), "no reading")
	require.Contains(t, m.View(), "no echo")
}

// TestLevelStyle checks level names are coloured by severity.
func TestLevelStyle(t *testing.T) {
	t.Parallel()

	require.Equal(t, colorDanger, levelStyle("danger").GetForeground())
	require.Equal(t, colorAlert, levelStyle("ALERT").GetForeground())
	require.Equal(t, colorWarning, levelStyle("WARNING").GetForeground())
	require.Equal(t, colorOK, levelStyle("SAFE").GetForeground())
	require.Equal(t, colorDim, levelStyle("UNKNOWN").GetForeground())
	require.Equal(t, colorDim, levelStyle("").GetForeground())
}
