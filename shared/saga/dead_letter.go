package saga

import (
	"context"
	"strconv"
	"time"

	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/telemetry"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Attributes added to every dead-lettered message
const (
	DLTExceptionMessage = "dlt_exception_message"
	DLTExceptionClass   = "dlt_exception_class"
	DLTOriginalTopic    = "dlt_original_topic"
	DLTOriginalChannel  = "dlt_original_channel"
	DLTAttempts         = "dlt_attempts"
	DLTFailedAt         = "dlt_failed_at"
)

// Reason explains why a message was dead-lettered
type Reason string

const (
	ReasonMalformed        Reason = "malformed_payload"
	ReasonNonRetryable     Reason = "non_retryable"
	ReasonRetriesExhausted Reason = "retries_exhausted"
)

// DeadLetter is a message redirected to an overflow destination
type DeadLetter struct {
	Body         []byte
	Attributes   map[string]string
	PartitionKey string
}

// DeadLetterSink delivers dead letters to a named destination
type DeadLetterSink interface {
	Send(ctx context.Context, destination events.Topic, letter DeadLetter) error
}

// DeadLetterRouter redirects unprocessable messages to <source>.DLT
type DeadLetterRouter struct {
	sink   DeadLetterSink
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewDeadLetterRouter(sink DeadLetterSink, logger *zap.SugaredLogger) *DeadLetterRouter {
	return &DeadLetterRouter{
		sink:   sink,
		logger: logger,
		now:    time.Now,
	}
}

// Route forwards the original body untouched, annotated with the failure cause
func (r *DeadLetterRouter) Route(ctx context.Context, d *Delivery, reason Reason, cause error) error {
	if d.Source == "" {
		return errors.New("delivery has no source topic")
	}

	destination := d.Source.DeadLetter()

	attrs := make(map[string]string, len(d.Attributes)+6)
	for k, v := range d.Attributes {
		attrs[k] = v
	}
	message := "unknown error"
	if cause != nil {
		message = cause.Error()
	}
	attrs[DLTExceptionMessage] = message
	attrs[DLTExceptionClass] = string(reason)
	attrs[DLTOriginalTopic] = d.Source.String()
	attrs[DLTOriginalChannel] = d.Channel
	attrs[DLTAttempts] = strconv.Itoa(d.ReceiveCount)
	attrs[DLTFailedAt] = r.now().UTC().Format(time.RFC3339)

	err := r.sink.Send(ctx, destination, DeadLetter{
		Body:         d.Body,
		Attributes:   attrs,
		PartitionKey: d.PartitionKey,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to send message %s to %s", d.MessageID, destination)
	}

	telemetry.RecordCounter(ctx, "saga_messages_dead_lettered_total", "Messages redirected to a dead-letter destination", 1,
		attribute.String("channel", d.Channel),
		attribute.String("event_type", d.EventType()),
		attribute.String("reason", string(reason)),
	)

	r.logger.Warnw("message dead-lettered",
		"message_id", d.MessageID,
		"channel", d.Channel,
		"event_type", d.EventType(),
		"destination", destination,
		"reason", reason,
		"attempts", d.ReceiveCount,
		"error", message,
	)

	return nil
}
