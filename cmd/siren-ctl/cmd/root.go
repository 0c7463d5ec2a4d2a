package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/siren-guard/internal/config"
	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/service/ctl"
	"github.com/oshokin/siren-guard/internal/service/monitor"
	"github.com/oshokin/siren-guard/internal/service/siren"
	"github.com/oshokin/siren-guard/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// serverAddress overrides the configured daemon address.
	serverAddress string
	// overrideReason is attached to a new override.
	overrideReason string

	// rootCmd represents the base command of the control client.
	rootCmd = &cobra.Command{
		Use:   "siren-ctl",
		Short: "Control a running siren-guard daemon.",
		Long: `Sends control messages to siren-guard over gRPC: switch AUTO/MANUAL mode,
drive the relay in MANUAL mode, update thresholds, inject a debug distance,
pulse the relay, set or clear the remote override, and follow telemetry.`,
		SilenceUsage: true,
	}
)

// Execute runs the siren-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func options(cmd *cobra.Command) *ctl.Options {
	return &ctl.Options{
		ConfigPath:    configPath,
		ServerAddress: serverAddress,
		Output:        cmd.OutOrStdout(),
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
}

// sendCommand builds a subcommand that queues one message on topic.
func sendCommand(use, short, topic string, args cobra.PositionalArgs, payload func([]string) string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return ctl.Send(ctx, options(cmd), topic, payload(args))
		},
	}
}

func first(args []string) string {
	if len(args) == 0 {
		return ""
	}

	return args[0]
}

func newThresholdCommand() *cobra.Command {
	names := make([]string, 0, len(domain.ThresholdNames))
	for _, name := range domain.ThresholdNames {
		names = append(names, string(name))
	}

	return &cobra.Command{
		Use:       "threshold <" + strings.Join(names, "|") + "> <value>",
		Short:     "Update one threshold; the daemon persists it.",
		Args:      cobra.ExactArgs(2), //nolint:mnd // Name and value.
		ValidArgs: names,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return ctl.SetThreshold(ctx, options(cmd), args[0], args[1])
		},
	}
}

func newOverrideCommand() *cobra.Command {
	override := &cobra.Command{
		Use:   "override",
		Short: "Set or clear the remote override.",
	}

	set := &cobra.Command{
		Use:   "set <ON|OFF>",
		Short: "Force the relay until the override is cleared.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			return ctl.SetOverride(ctx, options(cmd), args[0], overrideReason)
		},
	}
	set.Flags().StringVarP(&overrideReason, "reason", "r", "", "override reason (default user@host)")

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Hand the relay back to the current mode.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signalContext()
			defer stop()

			return ctl.ClearOverride(ctx, options(cmd))
		},
	}

	override.AddCommand(set, clearCmd)

	return override
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "s", "", "daemon address (overrides config)")

	rootCmd.AddCommand(
		sendCommand("mode <AUTO|MANUAL>", "Switch the control mode.",
			siren.TopicModeSet, cobra.ExactArgs(1), first),
		sendCommand("relay <ON|OFF>", "Drive the relay directly (MANUAL mode only).",
			siren.TopicRelaySet, cobra.ExactArgs(1), first),
		sendCommand("distance [value|clear]", "Inject a debug distance or return to the sensor.",
			siren.TopicDebugDistanceSet, cobra.MaximumNArgs(1), first),
		sendCommand("reboot", "Pulse the relay once.",
			siren.TopicReboot, cobra.NoArgs, func([]string) string { return "REBOOT" }),
		newThresholdCommand(),
		newOverrideCommand(),
		&cobra.Command{
			Use:   "status",
			Short: "Print the daemon status.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signalContext()
				defer stop()

				return ctl.Status(ctx, options(cmd))
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Print telemetry and status events until interrupted.",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, stop := signalContext()
				defer stop()

				return ctl.Watch(ctx, options(cmd))
			},
		},
		&cobra.Command{
			Use:   "monitor",
			Short: "Open the live terminal monitor.",
			Args:  cobra.NoArgs,
			RunE: func(_ *cobra.Command, _ []string) error {
				ctx, stop := signalContext()
				defer stop()

				return monitor.Run(ctx, &monitor.Options{
					ConfigPath:    configPath,
					ServerAddress: serverAddress,
				})
			},
		},
	)
}
