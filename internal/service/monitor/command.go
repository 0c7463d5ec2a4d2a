package monitor

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/oshokin/siren-guard/internal/logger"
	"github.com/oshokin/siren-guard/internal/service/common"
)

// Options configures the monitor.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string
	// ServerAddress overrides server address from config when specified.
	ServerAddress string
}

// Run opens the event stream and shows the monitor until the user quits or ctx is done.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "monitor")

	client, cfg, err := common.Connect(ctx, opts.ConfigPath, opts.ServerAddress)
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	reason := "siren-ctl monitor"
	if actor, actorErr := common.DetectActor(); actorErr == nil {
		reason = actor.String()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	program := tea.NewProgram(
		New(ctx, client, reason, cfg.Timeout),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	go func() {
		err := client.Watch(ctx, func(event *common.Event) error {
			program.Send(EventMsg{Topic: event.Topic, Payload: event.Payload})
			return nil
		})
		if err != nil {
			program.Send(StreamErrorMsg{Err: err})
		}
	}()

	if _, err = program.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run monitor: %w", err)
	}

	return nil
}
