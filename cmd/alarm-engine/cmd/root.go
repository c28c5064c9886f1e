package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/service/server"
	"github.com/oshokin/alarm-engine/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// stateFile overrides where alarm states are persisted.
	stateFile string
	// treeFile overrides the alarm tree configuration.
	treeFile string

	// rootCmd represents the base command for running the engine.
	rootCmd = &cobra.Command{
		Use:   "alarm-engine [listen-address]",
		Short: "Run the alarm state and action engine.",
		Long: `Loads the alarm tree, restores persisted alarm states and serves the engine over gRPC.

Alarm state updates drive automated actions: emails, commands and info PV
summaries, each scheduled with its configured delay and canceled when the
alarm is acknowledged or clears.

Only the port from ServerAddress config is used for listening (e.g., :8080).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			return server.Run(ctx, &server.Options{
				ConfigPath:    configPath,
				ListenAddress: listenAddress,
				StateFile:     stateFile,
				TreeFile:      treeFile,
			})
		},
	}
)

// Execute runs the alarm-engine CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&stateFile, "state-file", "s", "", "path to persist alarm states (overrides config)")
	rootCmd.Flags().StringVarP(&treeFile, "tree-file", "t", "", "path to the alarm tree (overrides config)")
}
