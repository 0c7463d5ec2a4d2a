//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/siren-guard/internal/api/grpc/control"
	"github.com/oshokin/siren-guard/internal/config"
)

// Client wraps the control service client with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the daemon.
	conn *grpc.ClientConn
	// api is the control service client.
	api *control.ControlClient

	// callTimeout is the default timeout for individual unary calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary calls.
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
	// errTopicRequired is returned when a command has no topic.
	errTopicRequired = errors.New("topic must be provided")
)

// Dial establishes a gRPC connection to the siren daemon.
// Note: this uses insecure transport credentials; the control channel is meant
// for a trusted network.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial siren daemon: %w", err)
	}

	client := &Client{
		conn:        conn,
		api:         control.NewControlClient(conn),
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Connect loads settings and dials the daemon. serverAddress overrides the
// configured address when not empty. A missing settings file falls back to
// the default address and timeout.
func Connect(ctx context.Context, configPath, serverAddress string) (*Client, *config.Config, error) {
	cfg, err := config.Load(configPath)

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		cfg = &config.Config{
			ServerAddress: config.DefaultServerAddress,
			Timeout:       config.DefaultTimeout,
		}
	default:
		return nil, nil, err
	}

	if serverAddress == "" {
		serverAddress = cfg.ServerAddress
	}

	client, err := Dial(ctx, serverAddress, WithCallTimeout(cfg.Timeout))
	if err != nil {
		return nil, nil, err
	}

	return client, cfg, nil
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}

	return c.conn.Close()
}

// Send queues a control message on the daemon and returns its message ID.
func (c *Client) Send(ctx context.Context, topic, payload string) (string, error) {
	if topic == "" {
		return "", errTopicRequired
	}

	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request, err := structpb.NewStruct(map[string]any{
		"topic":   topic,
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("encode command: %w", err)
	}

	response, err := c.api.Send(callCtx, request)
	if err != nil {
		return "", fmt.Errorf("send %s: %w", topic, err)
	}

	return response.GetFields()["message_id"].GetStringValue(), nil
}

// SetOverride sets the remote override and returns the resulting status.
func (c *Client) SetOverride(ctx context.Context, direction, reason string) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	request, err := structpb.NewStruct(map[string]any{
		"direction": direction,
		"reason":    reason,
	})
	if err != nil {
		return nil, fmt.Errorf("encode override: %w", err)
	}

	response, err := c.api.SetOverride(callCtx, request)
	if err != nil {
		return nil, fmt.Errorf("set override: %w", err)
	}

	return response.AsMap(), nil
}

// ClearOverride clears the remote override and returns the resulting status.
func (c *Client) ClearOverride(ctx context.Context) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.ClearOverride(callCtx)
	if err != nil {
		return nil, fmt.Errorf("clear override: %w", err)
	}

	return response.AsMap(), nil
}

// Status retrieves the daemon status.
func (c *Client) Status(ctx context.Context) (map[string]any, error) {
	callCtx, cancel := c.callContext(ctx)
	defer cancel()

	response, err := c.api.GetStatus(callCtx)
	if err != nil {
		return nil, fmt.Errorf("get status: %w", err)
	}

	return response.AsMap(), nil
}

// Event is one message from the Watch stream.
type Event struct {
	Topic   string
	Payload map[string]any
}

// Watch streams events into fn until ctx is done, the stream ends or fn
// returns an error. No call timeout applies.
func (c *Client) Watch(ctx context.Context, fn func(*Event) error) error {
	stream, err := c.api.Watch(ctx)
	if err != nil {
		return fmt.Errorf("open watch stream: %w", err)
	}

	for {
		msg, err := stream.Recv()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("receive event: %w", err)
		}

		event := &Event{
			Topic:   msg.GetFields()["topic"].GetStringValue(),
			Payload: msg.GetFields()["payload"].GetStructValue().AsMap(),
		}

		if err = fn(event); err != nil {
			return err
		}
	}
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
