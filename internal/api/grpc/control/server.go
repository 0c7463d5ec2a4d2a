package control

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/siren-guard/internal/bus"
	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
	"github.com/oshokin/siren-guard/internal/service/siren"
)

// Service abstracts the daemon operations the transport layer depends on.
type Service interface {
	Handles(topic string) bool
	Enqueue(ctx context.Context, cmd *domain.Command) (string, error)
	SetOverride(ctx context.Context, direction domain.Direction, reason string) (*domain.Override, error)
	ClearOverride(ctx context.Context) bool
	Status(ctx context.Context) *domain.Status
}

// Events is the source of the Watch stream.
type Events interface {
	Subscribe(pattern string) *bus.Subscription
}

// Server implements ControlServer.
type Server struct {
	// service applies commands and reports status.
	service Service
	// events feeds Watch; nil disables streaming.
	events Events
}

// NewServer wires the provided service and event source into a gRPC handler.
func NewServer(service Service, events Events) *Server {
	return &Server{
		service: service,
		events:  events,
	}
}

// Send queues a control message for the command router.
func (s *Server) Send(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	topic := stringField(req, "topic")
	if topic == "" {
		return nil, status.Error(codes.InvalidArgument, "topic is required")
	}

	if !s.service.Handles(topic) {
		return nil, status.Errorf(codes.InvalidArgument, "unknown topic %q", topic)
	}

	id, err := s.service.Enqueue(ctx, &domain.Command{
		Topic:   topic,
		Payload: stringField(req, "payload"),
	})
	if err != nil {
		return nil, toStatusError(err)
	}

	return structpb.NewStruct(map[string]any{"message_id": id})
}

// SetOverride forces the actuator direction until cleared.
func (s *Server) SetOverride(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	direction, err := domain.ParseDirection(stringField(req, "direction"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	if _, err = s.service.SetOverride(ctx, direction, stringField(req, "reason")); err != nil {
		return nil, toStatusError(err)
	}

	return toStruct(s.service.Status(ctx))
}

// ClearOverride hands the actuator back to the current mode.
func (s *Server) ClearOverride(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	s.service.ClearOverride(ctx)

	return toStruct(s.service.Status(ctx))
}

// GetStatus returns the status snapshot.
func (s *Server) GetStatus(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(s.service.Status(ctx))
}

// Watch streams telemetry and status events, retained status first.
func (s *Server) Watch(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.events == nil {
		return status.Error(codes.Unimplemented, "event streaming is disabled")
	}

	ctx := logger.WithName(stream.Context(), "watch")

	sub := s.events.Subscribe("#")
	defer sub.Unsubscribe()

	logger.Debug(ctx, "Watch stream opened")
	defer logger.Debug(ctx, "Watch stream closed")

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return status.Error(codes.Unavailable, "daemon is shutting down")
			}

			if msg.Payload == nil {
				continue
			}

			event, err := structpb.NewStruct(map[string]any{
				"topic":   msg.Topic,
				"payload": msg.Payload,
			})
			if err != nil {
				logger.WarnKV(ctx, "Dropping unencodable event", "topic", msg.Topic, "error", err)
				continue
			}

			if err = stream.Send(event); err != nil {
				return err
			}
		}
	}
}

// stringField returns a string (or number rendered as text) field of req.
func stringField(req *structpb.Struct, name string) string {
	value, ok := req.GetFields()[name]
	if !ok {
		return ""
	}

	switch kind := value.GetKind().(type) {
	case *structpb.Value_StringValue:
		return strings.TrimSpace(kind.StringValue)
	case *structpb.Value_NumberValue:
		return fmt.Sprint(kind.NumberValue)
	case *structpb.Value_BoolValue:
		return fmt.Sprint(kind.BoolValue)
	default:
		return ""
	}
}

func toStruct(st *domain.Status) (*structpb.Struct, error) {
	if st == nil {
		return &structpb.Struct{}, nil
	}

	out, err := structpb.NewStruct(st.Fields())
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode status: %v", err)
	}

	return out, nil
}

// toStatusError maps daemon errors onto gRPC codes.
func toStatusError(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidValue),
		errors.Is(err, siren.ErrInvalidPayload),
		errors.Is(err, siren.ErrUnknownTopic),
		errors.Is(err, domain.ErrOutOfRange):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, siren.ErrOverrideActive),
		errors.Is(err, siren.ErrNotManual):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, siren.ErrClosed):
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
