package ctl

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/siren-guard/internal/logger"
	"github.com/oshokin/siren-guard/internal/service/common"
	"github.com/oshokin/siren-guard/internal/service/siren"
)

// Options configures a siren-ctl invocation.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
	// Output receives the command result.
	Output io.Writer
}

// client is the part of common.Client the commands use.
type client interface {
	Send(ctx context.Context, topic, payload string) (string, error)
	SetOverride(ctx context.Context, direction, reason string) (map[string]any, error)
	ClearOverride(ctx context.Context) (map[string]any, error)
	Status(ctx context.Context) (map[string]any, error)
	Watch(ctx context.Context, fn func(*common.Event) error) error
}

// withClient dials the daemon, runs fn and closes the connection.
func withClient(ctx context.Context, opts *Options, fn func(client) error) error {
	c, _, err := common.Connect(ctx, opts.ConfigPath, opts.ServerAddress)
	if err != nil {
		return err
	}

	defer func() {
		_ = c.Close()
	}()

	return fn(c)
}

// Send queues one control message and prints its message ID.
func Send(ctx context.Context, opts *Options, topic, payload string) error {
	ctx = logger.WithName(ctx, "siren-ctl")

	return withClient(ctx, opts, func(c client) error {
		return send(ctx, c, opts.Output, topic, payload)
	})
}

func send(ctx context.Context, c client, out io.Writer, topic, payload string) error {
	id, err := c.Send(ctx, topic, payload)
	if err != nil {
		return err
	}

	logger.DebugKV(ctx, "Command queued", "topic", topic, "payload", payload, "message_id", id)

	_, err = fmt.Fprintf(out, "queued %s %q (message_id=%s)\n", topic, payload, id)

	return err
}

// SetThreshold queues a threshold update.
func SetThreshold(ctx context.Context, opts *Options, name, value string) error {
	return Send(ctx, opts, siren.ThresholdTopic(strings.ToLower(name)), value)
}

// SetOverride sets the remote override. An empty reason is replaced by user@host.
func SetOverride(ctx context.Context, opts *Options, direction, reason string) error {
	ctx = logger.WithName(ctx, "siren-ctl")

	if reason == "" {
		actor, err := common.DetectActor()
		if err != nil {
			return err
		}

		reason = actor.String()
	}

	return withClient(ctx, opts, func(c client) error {
		status, err := c.SetOverride(ctx, direction, reason)
		if err != nil {
			return err
		}

		return printYAML(opts.Output, status)
	})
}

// ClearOverride clears the remote override.
func ClearOverride(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "siren-ctl")

	return withClient(ctx, opts, func(c client) error {
		status, err := c.ClearOverride(ctx)
		if err != nil {
			return err
		}

		return printYAML(opts.Output, status)
	})
}

// Status prints the daemon status as YAML.
func Status(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "siren-ctl")

	return withClient(ctx, opts, func(c client) error {
		status, err := c.Status(ctx)
		if err != nil {
			return err
		}

		return printYAML(opts.Output, status)
	})
}

// Watch prints one line per daemon event until ctx is done.
func Watch(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "siren-ctl")

	return withClient(ctx, opts, func(c client) error {
		return watch(ctx, c, opts.Output)
	})
}

func watch(ctx context.Context, c client, out io.Writer) error {
	return c.Watch(ctx, func(event *common.Event) error {
		_, err := fmt.Fprintln(out, FormatEvent(event))
		return err
	})
}

// FormatEvent renders an event as "topic key=value ..." with sorted keys.
// Nested maps are flattened with dotted keys.
func FormatEvent(event *common.Event) string {
	var b strings.Builder

	b.WriteString(event.Topic)
	writeFields(&b, "", event.Payload)

	return b.String()
}

func writeFields(b *strings.Builder, prefix string, fields map[string]any) {
	for _, key := range slices.Sorted(maps.Keys(fields)) {
		value := fields[key]

		if nested, ok := value.(map[string]any); ok {
			writeFields(b, prefix+key+".", nested)
			continue
		}

		text := fmt.Sprint(value)
		if strings.ContainsAny(text, " \t") {
			text = fmt.Sprintf("%q", text)
		}

		fmt.Fprintf(b, " %s%s=%s", prefix, key, text)
	}
}

func printYAML(out io.Writer, value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}

	_, err = out.Write(data)

	return err
}
