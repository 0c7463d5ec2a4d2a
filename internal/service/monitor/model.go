package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/service/siren"
)

// Commander sends control requests to the daemon.
type Commander interface {
	Send(ctx context.Context, topic, payload string) (string, error)
	SetOverride(ctx context.Context, direction, reason string) (map[string]any, error)
	ClearOverride(ctx context.Context) (map[string]any, error)
}

// EventMsg carries one event from the daemon.
type EventMsg struct {
	Topic   string
	Payload map[string]any
}

// StreamErrorMsg reports that the event stream ended.
type StreamErrorMsg struct {
	Err error
}

// resultMsg reports the outcome of a key-triggered request.
type resultMsg struct {
	action string
	err    error
}

// Model is the root Bubble Tea model of the monitor.
type Model struct {
	ctx       context.Context //nolint:containedctx // Requests issued from key handlers need the program context.
	commander Commander
	reason    string
	timeout   time.Duration

	width     int
	status    map[string]any
	telemetry map[string]any
	notice    string
	err       error
}

// New creates a monitor model. reason is attached to overrides set from the keyboard.
func New(ctx context.Context, commander Commander, reason string, timeout time.Duration) Model {
	return Model{
		ctx:       ctx,
		commander: commander,
		reason:    reason,
		timeout:   timeout,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case EventMsg:
		switch msg.Topic {
		case siren.TopicStatus:
			m.status = msg.Payload
		case siren.TopicTelemetry:
			m.telemetry = msg.Payload
		}

		return m, nil

	case StreamErrorMsg:
		m.err = msg.Err
		return m, nil

	case resultMsg:
		m.err = msg.err
		if msg.err == nil {
			m.notice = msg.action
		}

		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c", "esc":
		return m, tea.Quit
	case "a", "A":
		return m, m.send("mode AUTO", siren.TopicModeSet, string(domain.ModeAuto))
	case "m", "M":
		return m, m.send("mode MANUAL", siren.TopicModeSet, string(domain.ModeManual))
	case "1":
		return m, m.send("relay ON", siren.TopicRelaySet, string(domain.DirectionOn))
	case "0":
		return m, m.send("relay OFF", siren.TopicRelaySet, string(domain.DirectionOff))
	case "o", "O":
		return m, m.override(domain.DirectionOn)
	case "f", "F":
		return m, m.override(domain.DirectionOff)
	case "c", "C":
		return m, m.request("override cleared", func(ctx context.Context) error {
			_, err := m.commander.ClearOverride(ctx)
			return err
		})
	}

	return m, nil
}

func (m Model) send(action, topic, payload string) tea.Cmd {
	return m.request(action, func(ctx context.Context) error {
		_, err := m.commander.Send(ctx, topic, payload)
		return err
	})
}

func (m Model) override(direction domain.Direction) tea.Cmd {
	return m.request("override "+string(direction), func(ctx context.Context) error {
		_, err := m.commander.SetOverride(ctx, string(direction), m.reason)
		return err
	})
}

// request runs call off the UI goroutine and reports the result.
func (m Model) request(action string, call func(ctx context.Context) error) tea.Cmd {
	parent := m.ctx

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, m.timeout)
		defer cancel()

		return resultMsg{action: action, err: call(ctx)}
	}
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	device := field(m.status, "device")
	b.WriteString(styleTitle.Render("siren-guard " + device))
	b.WriteString("\n")

	if m.status == nil && m.telemetry == nil {
		b.WriteString(stylePanel.Render("Waiting for the daemon..."))
		b.WriteString("\n")
		b.WriteString(m.footer())

		return b.String()
	}

	level := field(m.telemetry, "level")
	if level == "" {
		level = field(m.status, "level")
	}

	rows := []string{
		row("Distance", m.distance()),
		row("Level", levelStyle(level).Render(level)),
		row("Mode", styleValue.Render(field(m.status, "mode"))),
		row("Pattern", styleValue.Render(field(m.status, "pattern"))),
		row("Actuator", styleValue.Render(field(m.status, "actuator"))),
		row("Transitions", styleValue.Render(field(m.status, "transitions"))),
		row("Thresholds", styleValue.Render(m.thresholds())),
	}

	if override, ok := m.status["override"].(map[string]any); ok {
		text := fmt.Sprintf("%s (%s)", field(override, "direction"), field(override, "reason"))
		rows = append(rows, row("Override", styleOverride.Render(text)))
	}

	if sensorErr := field(m.telemetry, "error"); sensorErr != "" {
		rows = append(rows, row("Sensor", styleError.Render(sensorErr)))
	}

	b.WriteString(stylePanel.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")
	b.WriteString(m.footer())

	return b.String()
}

func (m Model) distance() string {
	value, ok := m.telemetry["distance"].(float64)
	if !ok {
		return styleValue.Render("-")
	}

	if value == siren.MissingDistance {
		return styleError.Render("no reading")
	}

	text := fmt.Sprintf("%.2f %s", value, field(m.telemetry, "unit"))
	if debug, _ := m.telemetry["debug"].(bool); debug {
		text += " (debug)"
	}

	return styleValue.Render(text)
}

func (m Model) thresholds() string {
	source := m.telemetry
	if source == nil {
		source, _ = m.status["thresholds"].(map[string]any)
	}

	parts := make([]string, 0, len(domain.ThresholdNames))
	for _, name := range domain.ThresholdNames {
		parts = append(parts, fmt.Sprintf("%s=%s", name, field(source, string(name))))
	}

	return strings.Join(parts, " ")
}

func (m Model) footer() string {
	var b strings.Builder

	switch {
	case m.err != nil:
		b.WriteString(styleError.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	case m.notice != "":
		b.WriteString(styleHelp.Render("ok: " + m.notice))
		b.WriteString("\n")
	}

	b.WriteString(styleHelp.Render("a auto  m manual  1/0 relay  o/f override on/off  c clear  q quit"))

	return b.String()
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, styleLabel.Render(label), value)
}

// field renders payload[key] as text, or "" when absent.
func field(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%g", v)
	default:
		return fmt.Sprint(v)
	}
}
