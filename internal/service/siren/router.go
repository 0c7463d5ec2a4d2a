package siren

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	domain "github.com/oshokin/siren-guard/internal/domain/siren"
	"github.com/oshokin/siren-guard/internal/logger"
)

// DefaultQueueLen is the router inbox capacity.
const DefaultQueueLen = 64

var (
	// ErrUnknownTopic is returned for commands on a topic with no handler.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrInvalidPayload is returned for commands whose payload cannot be parsed.
	ErrInvalidPayload = errors.New("invalid payload")
)

type handler func(ctx context.Context, payload string) error

// Router applies control commands one at a time in arrival order.
type Router struct {
	controller *Controller
	handlers   map[string]handler
	inbox      chan *domain.Command
}

// NewRouter creates a router for c with an inbox of queueLen commands.
func NewRouter(c *Controller, queueLen int) *Router {
	if queueLen <= 0 {
		queueLen = DefaultQueueLen
	}

	r := &Router{
		controller: c,
		inbox:      make(chan *domain.Command, queueLen),
	}

	r.handlers = map[string]handler{
		TopicModeSet:          r.handleMode,
		TopicRelaySet:         r.handleRelay,
		TopicDebugDistanceSet: r.handleDebugDistance,
		TopicReboot:           r.handleReboot,
		TopicOverrideSet:      r.handleOverrideSet,
		TopicOverrideClear:    r.handleOverrideClear,
	}

	for _, name := range domain.ThresholdNames {
		r.handlers[ThresholdTopic(string(name))] = r.thresholdHandler(name)
	}

	return r
}

// Enqueue assigns cmd an ID and queues it. It blocks while the inbox is full.
func (r *Router) Enqueue(ctx context.Context, cmd *domain.Command) (string, error) {
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}

	if cmd.ReceivedAt.IsZero() {
		cmd.ReceivedAt = r.controller.now()
	}

	select {
	case r.inbox <- cmd:
		return cmd.ID, nil
	case <-ctx.Done():
		return "", fmt.Errorf("enqueue command: %w", ctx.Err())
	}
}

// Run dispatches queued commands until ctx is done.
func (r *Router) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "router")

	logger.Info(ctx, "Command router started")
	defer logger.Info(ctx, "Command router stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.inbox:
			_ = r.Dispatch(ctx, cmd)
		}
	}
}

// Dispatch applies one command synchronously. Rejected commands leave the
// state untouched and are logged.
func (r *Router) Dispatch(ctx context.Context, cmd *domain.Command) error {
	ctx = logger.WithKV(ctx, "command_id", cmd.ID, "topic", cmd.Topic)

	h, ok := r.handlers[NormalizeTopic(cmd.Topic)]
	if !ok {
		logger.WarnKV(ctx, "Command discarded", "error", ErrUnknownTopic)
		return ErrUnknownTopic
	}

	if err := h(ctx, strings.TrimSpace(cmd.Payload)); err != nil {
		logger.WarnKV(ctx, "Command rejected", "payload", cmd.Payload, "error", err)
		return err
	}

	logger.InfoKV(ctx, "Command applied", "payload", cmd.Payload)

	return nil
}

func (r *Router) handleMode(ctx context.Context, payload string) error {
	mode, err := domain.ParseMode(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return r.controller.SetMode(ctx, mode)
}

func (r *Router) handleRelay(ctx context.Context, payload string) error {
	direction, err := domain.ParseDirection(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	return r.controller.ManualRelay(ctx, direction)
}

func (r *Router) thresholdHandler(name domain.ThresholdName) handler {
	return func(ctx context.Context, payload string) error {
		value, err := strconv.ParseFloat(payload, 64)
		if err != nil {
			return fmt.Errorf("%w: threshold %s: %q is not a number", ErrInvalidPayload, name, payload)
		}

		_, err = r.controller.SetThreshold(ctx, name, value)

		return err
	}
}

func (r *Router) handleDebugDistance(ctx context.Context, payload string) error {
	switch strings.ToLower(payload) {
	case "", "clear", "off", "none":
		r.controller.SetDebugDistance(ctx, nil)
		return nil
	}

	value, err := strconv.ParseFloat(payload, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fmt.Errorf("%w: debug distance %q", ErrInvalidPayload, payload)
	}

	r.controller.SetDebugDistance(ctx, &value)

	return nil
}

func (r *Router) handleReboot(ctx context.Context, payload string) error {
	if payload != "1" && !strings.EqualFold(payload, "REBOOT") {
		return fmt.Errorf("%w: reboot %q", ErrInvalidPayload, payload)
	}

	return r.controller.Reboot(ctx)
}

// handleOverrideSet accepts "<ON|OFF> [reason...]".
func (r *Router) handleOverrideSet(ctx context.Context, payload string) error {
	head, reason, _ := strings.Cut(payload, " ")

	direction, err := domain.ParseDirection(head)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	_, err = r.controller.SetOverride(ctx, direction, strings.TrimSpace(reason))

	return err
}

func (r *Router) handleOverrideClear(ctx context.Context, _ string) error {
	r.controller.ClearOverride(ctx)

	return nil
}

// Handles reports whether topic has a handler.
func (r *Router) Handles(topic string) bool {
	_, ok := r.handlers[NormalizeTopic(topic)]

	return ok
}
