package client

import (
	"context"
	"fmt"
	"io"
	"time"

	alarmgrpc "github.com/oshokin/alarm-engine/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/logger"
	"github.com/oshokin/alarm-engine/internal/service/common"
)

// Options configures how alarm-ctl reaches the engine.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives the printed results.
	Out io.Writer

	// Retry keeps pushing an update until the engine accepts it.
	Retry bool
}

// defaultPushInterval defines retry delay when pushing a state to the engine.
const defaultPushInterval = 1 * time.Second

// Show prints the state of the item at path.
func Show(ctx context.Context, opts *Options, path string) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		reply, err := c.GetState(ctx, path)
		if err != nil {
			return err
		}

		return printReply(opts.Out, reply)
	})
}

// Update pushes a new alarm state for the item at path. With Retry set it
// keeps trying until the engine answers or ctx is canceled.
func Update(ctx context.Context, opts *Options, path string, next alarm.State, current *alarm.State) error {
	ctx = logger.WithName(ctx, "alarm-ctl")

	return withClient(ctx, opts, func(c *common.Client) error {
		// attempt tries once to push the state, returns (completed, error).
		attempt := func() (bool, error) {
			reply, err := c.UpdateState(ctx, path, next, current)
			if err != nil {
				if !opts.Retry {
					return false, err
				}

				logger.ErrorKV(ctx, "UpdateState failed", "path", path, "error", err)

				return false, nil
			}

			return true, printReply(opts.Out, reply)
		}

		if done, err := attempt(); err != nil || done {
			return err
		}

		ticker := time.NewTicker(defaultPushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				done, err := attempt()
				if err != nil || done {
					return err
				}
			}
		}
	})
}

// Acknowledge acknowledges, or with ack false un-acknowledges, the alarms
// at or below path on behalf of the local user.
func Acknowledge(ctx context.Context, opts *Options, path string, ack bool) error {
	actor, err := common.DetectActor()
	if err != nil {
		return err
	}

	return withClient(ctx, opts, func(c *common.Client) error {
		reply, err := c.Acknowledge(ctx, path, ack, actor)
		if err != nil {
			return err
		}

		return printReply(opts.Out, reply)
	})
}

// Notify sets the email suppression flag when disabled is not nil and
// prints the flag in effect.
func Notify(ctx context.Context, opts *Options, disabled *bool) error {
	return withClient(ctx, opts, func(c *common.Client) error {
		current, err := c.SetNotify(ctx, disabled)
		if err != nil {
			return err
		}

		status := "enabled"
		if current {
			status = "disabled"
		}

		_, err = fmt.Fprintf(output(opts.Out), "email notifications %s\n", status)

		return err
	})
}

// withClient loads settings, connects to the engine and runs fn.
func withClient(ctx context.Context, opts *Options, fn func(*common.Client) error) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	client, err := common.Dial(ctx, serverAddress, common.WithCallTimeout(cfg.Timeout))
	if err != nil {
		return err
	}

	defer func() {
		_ = client.Close()
	}()

	return fn(client)
}

func printReply(out io.Writer, reply *alarmgrpc.Reply) error {
	_, err := fmt.Fprintln(output(out), formatReply(reply))

	return err
}

// formatReply renders a reply as one readable line.
func formatReply(reply *alarmgrpc.Reply) string {
	if reply == nil {
		return "<nil state>"
	}

	line := fmt.Sprintf("%s: %s (current %s)", reply.Path, reply.State, reply.Current)
	if reply.Changed {
		line += " [changed]"
	}

	return line
}

func output(out io.Writer) io.Writer {
	if out == nil {
		return io.Discard
	}

	return out
}
