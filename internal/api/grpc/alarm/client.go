package alarm

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-engine/internal/codec"
	domain "github.com/oshokin/alarm-engine/internal/domain/alarm"
)

// Reply is the decoded state of one item returned by the service.
type Reply struct {
	Path    string
	State   domain.State
	Current domain.State
	// Changed is set by UpdateState.
	Changed bool
}

// Client calls the AlarmEngine service over conn.
type Client struct {
	conn grpc.ClientConnInterface
}

// NewClient creates a client for the AlarmEngine service.
func NewClient(conn grpc.ClientConnInterface) *Client {
	return &Client{conn: conn}
}

// GetState returns the state of the item at path.
func (c *Client) GetState(ctx context.Context, path string) (*Reply, error) {
	return c.call(ctx, MethodGetState, pathFields(path))
}

// UpdateState sends a new alarm state and, when current is not nil, the
// current state of the item at path.
func (c *Client) UpdateState(
	ctx context.Context,
	path string,
	next domain.State,
	current *domain.State,
) (*Reply, error) {
	fields := pathFields(path)
	codec.PutState(fields, next)

	if current != nil {
		codec.PutCurrent(fields, *current)
	}

	return c.call(ctx, MethodUpdateState, fields)
}

// Acknowledge acknowledges, or with ack false un-acknowledges, the alarms
// at or below path.
func (c *Client) Acknowledge(ctx context.Context, path string, ack bool, actor *domain.Actor) (*Reply, error) {
	fields := pathFields(path)
	fields[codec.FieldAcknowledge] = structpb.NewBoolValue(ack)

	if actor != nil {
		fields[codec.FieldUser] = structpb.NewStringValue(actor.Username)
		fields[codec.FieldHost] = structpb.NewStringValue(actor.Hostname)
	}

	return c.call(ctx, MethodAcknowledge, fields)
}

// SetNotify sets the email suppression flag when disabled is not nil and
// returns the flag in effect.
func (c *Client) SetNotify(ctx context.Context, disabled *bool) (bool, error) {
	fields := make(map[string]*structpb.Value)
	if disabled != nil {
		fields[codec.FieldDisabled] = structpb.NewBoolValue(*disabled)
	}

	resp := new(structpb.Struct)

	err := c.conn.Invoke(ctx, FullMethod(MethodSetNotify), &structpb.Struct{Fields: fields}, resp)
	if err != nil {
		return false, fmt.Errorf("set notify: %w", err)
	}

	return codec.Bool(resp, codec.FieldDisabled), nil
}

func (c *Client) call(ctx context.Context, method string, fields map[string]*structpb.Value) (*Reply, error) {
	resp := new(structpb.Struct)

	err := c.conn.Invoke(ctx, FullMethod(method), &structpb.Struct{Fields: fields}, resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}

	return decodeReply(resp)
}

func decodeReply(resp *structpb.Struct) (*Reply, error) {
	shown, err := codec.State(resp)
	if err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}

	current, _, err := codec.Current(resp)
	if err != nil {
		return nil, fmt.Errorf("decode current state: %w", err)
	}

	path, _ := codec.String(resp, codec.FieldPath)

	return &Reply{
		Path:    path,
		State:   shown,
		Current: current,
		Changed: codec.Bool(resp, codec.FieldChanged),
	}, nil
}

func pathFields(path string) map[string]*structpb.Value {
	return map[string]*structpb.Value{
		codec.FieldPath: structpb.NewStringValue(path),
	}
}
