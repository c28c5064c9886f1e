package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/service/client"
	"github.com/oshokin/alarm-engine/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the engine address from config.
	serverAddress string

	// update flags.
	message string
	value   string
	current string
	retry   bool

	// rootCmd represents the base command for talking to the engine.
	rootCmd = &cobra.Command{
		Use:   "alarm-ctl",
		Short: "Inspect and control a running alarm engine.",
		Long: `Reads and pushes alarm states, acknowledges alarms and toggles email
notifications on a running alarm-engine.

Paths name tree items from the root, e.g. /Accelerator/Vacuum/Pump1.`,
		SilenceUsage: true,
	}

	stateCmd = &cobra.Command{
		Use:   "state <path>",
		Short: "Print the alarm and current state of an item.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Show(ctx, opts, args[0])
			})
		},
	}

	updateCmd = &cobra.Command{
		Use:   "update <path> <severity>",
		Short: "Push a new alarm state for an item.",
		Long: `Pushes a new alarm state for an item. Severity is one of OK, MINOR, MAJOR,
INVALID, UNDEFINED or their _ACK forms. With --current the current source
severity is sent as well; it defaults to the alarm severity.`,
		Args: cobra.ExactArgs(2), //nolint:mnd // Path and severity.
		RunE: func(cmd *cobra.Command, args []string) error {
			next, err := newState(args[1], message, value)
			if err != nil {
				return err
			}

			currentSeverity := current
			if currentSeverity == "" {
				currentSeverity = next.Severity.Unacknowledged().String()
			}

			cur, err := newState(currentSeverity, message, value)
			if err != nil {
				return err
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				opts.Retry = retry

				return client.Update(ctx, opts, args[0], next, &cur)
			})
		},
	}

	ackCmd = &cobra.Command{
		Use:   "ack <path>",
		Short: "Acknowledge every alarm at or below a path.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Acknowledge(ctx, opts, args[0], true)
			})
		},
	}

	unackCmd = &cobra.Command{
		Use:   "unack <path>",
		Short: "Un-acknowledge every alarm at or below a path.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Acknowledge(ctx, opts, args[0], false)
			})
		},
	}

	notifyCmd = &cobra.Command{
		Use:       "notify [on|off]",
		Short:     "Show or toggle email notifications.",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var disabled *bool

			if len(args) > 0 {
				off := args[0] == "off"
				disabled = &off
			}

			return run(cmd, func(ctx context.Context, opts *client.Options) error {
				return client.Notify(ctx, opts, disabled)
			})
		},
	}
)

// run executes fn with signal handling and the shared connection options.
func run(cmd *cobra.Command, fn func(context.Context, *client.Options) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	return fn(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
		Out:           cmd.OutOrStdout(),
	})
}

func newState(severity, message, value string) (alarm.State, error) {
	s, err := alarm.ParseSeverity(severity)
	if err != nil {
		return alarm.State{}, fmt.Errorf("severity %q: %w", severity, err)
	}

	return alarm.NewState(s, message, value, time.Now()), nil
}

// Execute runs the alarm-ctl CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&serverAddress, "server", "a", "", "engine address (overrides config)")

	updateCmd.Flags().StringVarP(&message, "message", "m", "", "alarm message")
	updateCmd.Flags().StringVarP(&value, "value", "v", "", "value that caused the alarm")
	updateCmd.Flags().StringVar(&current, "current", "", "current source severity")
	updateCmd.Flags().BoolVarP(&retry, "retry", "r", false, "keep retrying until the engine accepts the update")

	rootCmd.AddCommand(stateCmd, updateCmd, ackCmd, unackCmd, notifyCmd)
}
