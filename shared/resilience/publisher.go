package resilience

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var _ events.Publisher = (*ResilientPublisher)(nil)

// PublishFailureError is returned when a critical event could not be confirmed by the broker
type PublishFailureError struct {
	EventType string
	EventID   string
	Err       error
}

func (e *PublishFailureError) Error() string {
	return fmt.Sprintf("failed to publish %s event %s: %v", e.EventType, e.EventID, e.Err)
}

func (e *PublishFailureError) Unwrap() error {
	return e.Err
}

func IsPublishFailure(err error) bool {
	var target *PublishFailureError
	return errors.As(err, &target)
}

// Tier decides what happens when an event cannot be published
type Tier int

const (
	// TierCritical failures are returned to the caller
	TierCritical Tier = iota
	// TierInformational failures are logged and dropped
	TierInformational
)

// PublisherOption customizes a ResilientPublisher
type PublisherOption func(*ResilientPublisher)

// WithInformational marks event types whose loss does not break the saga
func WithInformational(eventTypes ...string) PublisherOption {
	return func(p *ResilientPublisher) {
		for _, t := range eventTypes {
			p.tiers[t] = TierInformational
		}
	}
}

// ResilientPublisher decorates a publisher with retry, a circuit breaker and a fallback.
// Each attempt goes through the breaker, so an open circuit ends the retry loop at once.
type ResilientPublisher struct {
	next    events.Publisher
	breaker *CircuitBreaker
	retry   RetryConfig
	logger  *zap.SugaredLogger
	tiers   map[string]Tier

	dropped atomic.Int64
}

func NewResilientPublisher(
	next events.Publisher,
	breaker *CircuitBreaker,
	retry RetryConfig,
	logger *zap.SugaredLogger,
	opts ...PublisherOption,
) *ResilientPublisher {
	p := &ResilientPublisher{
		next:    next,
		breaker: breaker,
		retry:   retry,
		logger:  logger,
		tiers:   make(map[string]Tier),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Publish sends events one at a time and stops at the first critical failure
func (p *ResilientPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	for _, evt := range evts {
		if err := p.publish(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// Dropped returns how many informational events were discarded by the fallback
func (p *ResilientPublisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *ResilientPublisher) publish(ctx context.Context, evt *events.Event) error {
	err := Do(ctx, p.retry, func(ctx context.Context) error {
		return p.breaker.Execute(ctx, func(ctx context.Context) error {
			return p.next.Publish(ctx, evt)
		})
	})
	if err == nil {
		telemetry.RecordCounter(ctx, "execution_events_published_total", "Events confirmed by the broker", 1,
			attribute.String("event_type", evt.EventType),
		)
		return nil
	}

	return p.fallback(ctx, evt, err)
}

func (p *ResilientPublisher) fallback(ctx context.Context, evt *events.Event, cause error) error {
	open := errors.Is(cause, ErrCircuitOpen)

	telemetry.RecordCounter(ctx, "execution_events_publish_failed_total", "Events the broker did not confirm", 1,
		attribute.String("event_type", evt.EventType),
		attribute.Bool("circuit_open", open),
	)

	if p.tiers[evt.EventType] == TierInformational {
		p.dropped.Add(1)
		p.logger.Warnw("dropping event after publish failure",
			"event_type", evt.EventType,
			"event_id", evt.ID,
			"partition_key", evt.PartitionKey,
			"circuit_open", open,
			"breaker_trips", p.breaker.Trips(),
			"error", cause,
		)
		return nil
	}

	p.logger.Errorw("critical event was not published",
		"event_type", evt.EventType,
		"event_id", evt.ID,
		"partition_key", evt.PartitionKey,
		"circuit_open", open,
		"error", cause,
	)

	return &PublishFailureError{
		EventType: evt.EventType,
		EventID:   evt.ID.String(),
		Err:       cause,
	}
}
