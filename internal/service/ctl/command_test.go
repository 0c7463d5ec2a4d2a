package ctl

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/siren-guard/internal/service/common"
)

// fakeClient returns canned answers.
type fakeClient struct {
	sent   []string
	events []*common.Event
	err    error
}

func (f *fakeClient) Send(_ context.Context, topic, payload string) (string, error) {
	f.sent = append(f.sent, topic+"="+payload)
	return "msg-1", f.err
}

func (f *fakeClient) SetOverride(context.Context, string, string) (map[string]any, error) {
	return map[string]any{"override": map[string]any{"direction": "ON"}}, f.err
}

func (f *fakeClient) ClearOverride(context.Context) (map[string]any, error) {
	return map[string]any{"mode": "AUTO"}, f.err
}

func (f *fakeClient) Status(context.Context) (map[string]any, error) {
	return map[string]any{"mode": "AUTO", "level": "SAFE"}, f.err
}

func (f *fakeClient) Watch(_ context.Context, fn func(*common.Event) error) error {
	for _, event := range f.events {
		if err := fn(event); err != nil {
			return err
		}
	}

	return f.err
}

// TestSend_PrintsMessageID checks the queued confirmation line.
func TestSend_PrintsMessageID(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	c := new(fakeClient)
	require.NoError(t, send(context.Background(), c, &out, "mode/set", "MANUAL"))
	require.Equal(t, []string{"mode/set=MANUAL"}, c.sent)
	require.Equal(t, "queued mode/set \"MANUAL\" (message_id=msg-1)\n", out.String())

	c.err = errors.New("unavailable")
	require.Error(t, send(context.Background(), c, &out, "reboot", "1"))
}

// TestWatch_FormatsEvents prints one sorted line per event.
func TestWatch_FormatsEvents(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	c := &fakeClient{events: []*common.Event{
		{Topic: "telemetry", Payload: map[string]any{"level": "SAFE", "distance": 9.5}},
		{Topic: "status", Payload: map[string]any{
			"mode":     "MANUAL",
			"override": map[string]any{"reason": "pump test", "direction": "ON"},
		}},
	}}

	require.NoError(t, watch(context.Background(), c, &out))
	require.Equal(t,
		"telemetry distance=9.5 level=SAFE\n"+
			"status mode=MANUAL override.direction=ON override.reason=\"pump test\"\n",
		out.String())
}

// TestPrintYAML renders maps as YAML.
func TestPrintYAML(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	require.NoError(t, printYAML(&out, map[string]any{"mode": "AUTO", "level": "SAFE"}))
	require.Equal(t, "level: SAFE\nmode: AUTO\n", out.String())
}
