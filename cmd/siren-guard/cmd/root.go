package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/siren-guard/internal/config"
	"github.com/oshokin/siren-guard/internal/service/daemon"
	"github.com/oshokin/siren-guard/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// logLevel overrides the configured log level.
	logLevel string
	// dryRun logs relay writes instead of driving hardware.
	dryRun bool

	// rootCmd represents the base command for running the siren daemon.
	rootCmd = &cobra.Command{
		Use:   "siren-guard [listen-address]",
		Short: "Watch a distance sensor and drive the siren relay.",
		Long: `Starts the siren daemon: samples the distance sensor, classifies every reading
against the danger/alert/warning/normal thresholds and drives the relay with the
matching pattern while in AUTO mode.

Mode switches, manual relay commands, threshold updates and the remote override
arrive over the gRPC control API (see siren-ctl). Thresholds persist across
restarts. On SIGINT/SIGTERM the override is cleared and the relay switched off.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &daemon.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				LogLevel:      logLevel,
				DryRun:        dryRun,
			}

			return daemon.Run(ctx, options)
		},
	}
)

// Execute runs the siren-guard CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "override log level (debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "log relay writes instead of driving the actuator")
}
