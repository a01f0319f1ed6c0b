package saga

import (
	"context"
	"time"

	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/resilience"
	"github.com/grupo99/execution-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ErrMalformedPayload marks a message whose structure can never be processed
var ErrMalformedPayload = errors.New("malformed payload")

// HandlerFunc handles one event type
type HandlerFunc func(ctx context.Context, event *events.Event) error

// InboxStore remembers deliveries that were already processed successfully
type InboxStore interface {
	Seen(ctx context.Context, key string) (bool, error)
	Mark(ctx context.Context, key string) error
}

// RedeliveryPolicy bounds how long a failing message keeps coming back
type RedeliveryPolicy struct {
	MaxAttempts int
	MaxElapsed  time.Duration
	Backoff     resilience.RetryConfig
}

func DefaultRedeliveryPolicy() RedeliveryPolicy {
	return RedeliveryPolicy{
		MaxAttempts: 4,
		MaxElapsed:  30 * time.Second,
		Backoff:     resilience.DefaultRetryConfig(),
	}
}

// RouterOption customizes a Router
type RouterOption func(*Router)

// WithInbox enables duplicate suppression for already processed deliveries
func WithInbox(inbox InboxStore) RouterOption {
	return func(r *Router) {
		r.inbox = inbox
	}
}

// WithNonRetryable adds a classifier for errors that must go straight to the dead-letter destination
func WithNonRetryable(classify func(error) bool) RouterOption {
	return func(r *Router) {
		r.nonRetryable = append(r.nonRetryable, classify)
	}
}

// WithNow replaces the clock used for elapsed-time checks
func WithNow(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

type route struct {
	handlers map[string]HandlerFunc
	ignored  map[string]struct{}
}

// Router dispatches deliveries to handlers by channel and event type and settles them.
// Registration must finish before the first Dispatch.
type Router struct {
	routes       map[string]*route
	deadLetters  *DeadLetterRouter
	policy       RedeliveryPolicy
	inbox        InboxStore
	nonRetryable []func(error) bool
	logger       *zap.SugaredLogger
	now          func() time.Time
}

func NewRouter(deadLetters *DeadLetterRouter, policy RedeliveryPolicy, logger *zap.SugaredLogger, opts ...RouterOption) *Router {
	r := &Router{
		routes:      make(map[string]*route),
		deadLetters: deadLetters,
		policy:      policy,
		logger:      logger,
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// RegisterHandler registers the handler of an event type on a channel
func (r *Router) RegisterHandler(channel, eventType string, handler HandlerFunc) {
	r.route(channel).handlers[eventType] = handler
}

// Ignore declares event types that are known on a channel but need no action
func (r *Router) Ignore(channel string, eventTypes ...string) {
	rt := r.route(channel)
	for _, t := range eventTypes {
		rt.ignored[t] = struct{}{}
	}
}

// Dispatch handles a delivery and acknowledges, redelivers or dead-letters it.
// The returned error only reports a failure to settle the message.
func (r *Router) Dispatch(ctx context.Context, d *Delivery) error {
	eventType := d.EventType()

	ctx, span := telemetry.StartSpan(ctx, "saga.dispatch "+eventType,
		trace.WithAttributes(
			attribute.String("messaging.channel", d.Channel),
			attribute.String("messaging.message_id", d.MessageID),
			attribute.String("event_type", eventType),
			attribute.String("partition_key", d.PartitionKey),
			attribute.Int("receive_count", d.ReceiveCount),
		),
	)
	defer span.End()

	if d.DecodeErr != nil || d.Event == nil {
		cause := d.DecodeErr
		if cause == nil {
			cause = errors.New("empty event")
		}
		span.SetStatus(codes.Error, cause.Error())
		return r.deadLetter(ctx, d, ReasonMalformed, errors.Wrap(ErrMalformedPayload, cause.Error()))
	}

	if r.seen(ctx, d) {
		r.logger.Infow("skipping already processed message",
			"message_id", d.MessageID,
			"event_type", eventType,
			"partition_key", d.PartitionKey,
		)
		return r.ack(ctx, d, "duplicate")
	}

	rt := r.routes[d.Channel]
	if rt != nil {
		if _, ok := rt.ignored[eventType]; ok {
			r.logger.Debugw("ignoring event", "channel", d.Channel, "event_type", eventType)
			return r.ack(ctx, d, "ignored")
		}
	}

	var handler HandlerFunc
	if rt != nil {
		handler = rt.handlers[eventType]
	}
	if handler == nil {
		r.logger.Warnw("no handler registered for event type",
			"channel", d.Channel,
			"event_type", eventType,
			"message_id", d.MessageID,
		)
		return r.ack(ctx, d, "unknown")
	}

	err := handler(ctx, d.Event)
	if err == nil {
		r.markProcessed(ctx, d)
		return r.ack(ctx, d, "processed")
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	if !r.IsRetryable(err) {
		return r.deadLetter(ctx, d, ReasonNonRetryable, err)
	}

	elapsed := r.now().Sub(d.FirstReceivedAt)
	if d.ReceiveCount >= r.policy.MaxAttempts || (r.policy.MaxElapsed > 0 && !d.FirstReceivedAt.IsZero() && elapsed >= r.policy.MaxElapsed) {
		return r.deadLetter(ctx, d, ReasonRetriesExhausted, err)
	}

	delay := r.policy.Backoff.Delay(d.ReceiveCount)
	r.logger.Warnw("handler failed, message will be redelivered",
		"channel", d.Channel,
		"event_type", eventType,
		"message_id", d.MessageID,
		"partition_key", d.PartitionKey,
		"attempt", d.ReceiveCount,
		"retry_in", delay,
		"error", err,
	)
	telemetry.RecordCounter(ctx, "saga_messages_failed_total", "Messages whose handler failed", 1,
		attribute.String("channel", d.Channel),
		attribute.String("event_type", eventType),
	)

	if err := d.Acknowledger.Nack(ctx, delay); err != nil {
		return errors.Wrap(err, "failed to schedule redelivery")
	}
	return nil
}

// IsRetryable reports whether redelivering the message can succeed
func (r *Router) IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedPayload) || errors.Is(err, events.ErrInvalidPayload) || resilience.IsPermanent(err) {
		return false
	}
	for _, classify := range r.nonRetryable {
		if classify(err) {
			return false
		}
	}
	return true
}

func (r *Router) route(channel string) *route {
	rt, ok := r.routes[channel]
	if !ok {
		rt = &route{
			handlers: make(map[string]HandlerFunc),
			ignored:  make(map[string]struct{}),
		}
		r.routes[channel] = rt
	}
	return rt
}

func (r *Router) deadLetter(ctx context.Context, d *Delivery, reason Reason, cause error) error {
	if err := r.deadLetters.Route(ctx, d, reason, cause); err != nil {
		r.logger.Errorw("dead-letter routing failed, message will be redelivered",
			"message_id", d.MessageID,
			"channel", d.Channel,
			"error", err,
		)
		if nackErr := d.Acknowledger.Nack(ctx, r.policy.Backoff.Delay(d.ReceiveCount)); nackErr != nil {
			return errors.Wrap(nackErr, "failed to schedule redelivery after dead-letter failure")
		}
		return err
	}

	return r.ack(ctx, d, "dead_lettered")
}

func (r *Router) ack(ctx context.Context, d *Delivery, outcome string) error {
	telemetry.RecordCounter(ctx, "saga_messages_processed_total", "Messages settled by the router", 1,
		attribute.String("channel", d.Channel),
		attribute.String("event_type", d.EventType()),
		attribute.String("outcome", outcome),
	)

	if err := d.Acknowledger.Ack(ctx); err != nil {
		return errors.Wrap(err, "failed to acknowledge message")
	}
	return nil
}

func (r *Router) seen(ctx context.Context, d *Delivery) bool {
	if r.inbox == nil {
		return false
	}

	seen, err := r.inbox.Seen(ctx, d.Key())
	if err != nil {
		r.logger.Warnw("inbox lookup failed", "key", d.Key(), "error", err)
		return false
	}
	return seen
}

func (r *Router) markProcessed(ctx context.Context, d *Delivery) {
	if r.inbox == nil {
		return
	}

	if err := r.inbox.Mark(ctx, d.Key()); err != nil {
		r.logger.Warnw("inbox mark failed", "key", d.Key(), "error", err)
	}
}
