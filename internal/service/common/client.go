//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	alarmgrpc "github.com/oshokin/alarm-engine/internal/api/grpc/alarm"
	"github.com/oshokin/alarm-engine/internal/config"
	"github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// Client wraps the AlarmEngine gRPC client with call timeouts.
type Client struct {
	// conn is the underlying gRPC connection to the engine.
	conn *grpc.ClientConn
	// api calls the AlarmEngine service.
	api *alarmgrpc.Client

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

var (
	// errAddressRequired is returned when a required address value is missing.
	errAddressRequired = errors.New("address must be provided")
	// errPathRequired is returned when an alarm path is empty.
	errPathRequired = errors.New("alarm path must be provided")
)

// Dial creates a gRPC connection to the engine.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial alarm engine: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         alarmgrpc.NewClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// GetState retrieves the state of one alarm item.
func (c *Client) GetState(ctx context.Context, path string) (*alarmgrpc.Reply, error) {
	if path == "" {
		return nil, errPathRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return c.api.GetState(callCtx, path)
}

// UpdateState pushes a new alarm state, and optionally the current state.
func (c *Client) UpdateState(
	ctx context.Context,
	path string,
	next alarm.State,
	current *alarm.State,
) (*alarmgrpc.Reply, error) {
	if path == "" {
		return nil, errPathRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return c.api.UpdateState(callCtx, path, next, current)
}

// Acknowledge acknowledges or un-acknowledges the alarms below path.
func (c *Client) Acknowledge(
	ctx context.Context,
	path string,
	ack bool,
	actor *alarm.Actor,
) (*alarmgrpc.Reply, error) {
	if path == "" {
		return nil, errPathRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return c.api.Acknowledge(callCtx, path, ack, actor)
}

// SetNotify changes the email suppression flag when disabled is not nil and
// returns the flag in effect.
func (c *Client) SetNotify(ctx context.Context, disabled *bool) (bool, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	return c.api.SetNotify(callCtx, disabled)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
