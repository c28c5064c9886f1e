package alarm

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/alarm-engine/internal/codec"
	domain "github.com/oshokin/alarm-engine/internal/domain/alarm"
	"github.com/oshokin/alarm-engine/internal/engine"
	"github.com/oshokin/alarm-engine/internal/logger"
)

// Service abstracts the engine operations the transport layer depends on.
type Service interface {
	State(path string) (domain.State, error)
	CurrentState(path string) (domain.State, error)
	UpdateState(ctx context.Context, path string, next domain.State, current *domain.State) (bool, error)
	Acknowledge(ctx context.Context, path string, ack bool, actor *domain.Actor) error
	SetNotifyDisabled(disabled bool)
	NotifyDisabled() bool
}

// Server implements the AlarmEngine gRPC API.
type Server struct {
	// service provides the alarm operations.
	service Service
}

var _ EngineServer = (*Server)(nil)

// NewServer wires the provided service implementation into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// GetState returns the alarm and current state of one item.
func (s *Server) GetState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requirePath(req)
	if err != nil {
		return nil, err
	}

	return s.stateResponse(ctx, path, nil)
}

// UpdateState applies a new alarm state, and optionally the current state,
// to one item.
func (s *Server) UpdateState(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requirePath(req)
	if err != nil {
		return nil, err
	}

	next, err := codec.State(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	current, ok, err := codec.Current(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	var currentPtr *domain.State
	if ok {
		currentPtr = &current
	}

	changed, err := s.service.UpdateState(ctx, path, next, currentPtr)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.stateResponse(ctx, path, map[string]*structpb.Value{
		codec.FieldChanged: structpb.NewBoolValue(changed),
	})
}

// Acknowledge acknowledges or un-acknowledges every leaf below a path.
func (s *Server) Acknowledge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	path, err := requirePath(req)
	if err != nil {
		return nil, err
	}

	user, _ := codec.String(req, codec.FieldUser)
	host, _ := codec.String(req, codec.FieldHost)

	var actor *domain.Actor
	if user != "" || host != "" {
		actor = &domain.Actor{Hostname: host, Username: user}
	}

	err = s.service.Acknowledge(ctx, path, codec.Bool(req, codec.FieldAcknowledge), actor)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	return s.stateResponse(ctx, path, nil)
}

// SetNotify disables or enables email actions. A request without the
// disabled field only reports the flag.
func (s *Server) SetNotify(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	if _, ok := req.GetFields()[codec.FieldDisabled]; ok {
		s.service.SetNotifyDisabled(codec.Bool(req, codec.FieldDisabled))
	}

	return &structpb.Struct{
		Fields: map[string]*structpb.Value{
			codec.FieldDisabled: structpb.NewBoolValue(s.service.NotifyDisabled()),
		},
	}, nil
}

func (s *Server) stateResponse(
	ctx context.Context,
	path string,
	extra map[string]*structpb.Value,
) (*structpb.Struct, error) {
	shown, err := s.service.State(path)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	current, err := s.service.CurrentState(path)
	if err != nil {
		return nil, toStatus(ctx, err)
	}

	fields := map[string]*structpb.Value{
		codec.FieldPath: structpb.NewStringValue(path),
	}

	codec.PutState(fields, shown)
	codec.PutCurrent(fields, current)

	for name, value := range extra {
		fields[name] = value
	}

	return &structpb.Struct{Fields: fields}, nil
}

func requirePath(req *structpb.Struct) (string, error) {
	if req == nil {
		return "", status.Error(codes.InvalidArgument, "request is required")
	}

	path, ok := codec.String(req, codec.FieldPath)
	if !ok || path == "" {
		return "", status.Error(codes.InvalidArgument, "path is required")
	}

	return path, nil
}

// toStatus maps engine errors to gRPC status codes.
func toStatus(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, engine.ErrInvalidPath),
		errors.Is(err, domain.ErrUnknownSeverity),
		errors.Is(err, codec.ErrMissingField):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, engine.ErrNotLoaded):
		return status.Error(codes.FailedPrecondition, err.Error())
	default:
		logger.ErrorKV(ctx, "alarm engine call failed", "error", err)

		return status.Error(codes.Internal, "alarm engine call failed")
	}
}
