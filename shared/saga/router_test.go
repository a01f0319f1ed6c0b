package saga

import (
	"context"
	"testing"
	"time"

	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/grupo99/execution-system/shared/resilience"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingAck struct {
	acked   int
	nacked  int
	delay   time.Duration
	ackErr  error
	nackErr error
}

func (a *recordingAck) Ack(context.Context) error {
	a.acked++
	return a.ackErr
}

func (a *recordingAck) Nack(_ context.Context, delay time.Duration) error {
	a.nacked++
	a.delay = delay
	return a.nackErr
}

type recordingSink struct {
	destinations []events.Topic
	letters      []DeadLetter
	err          error
}

func (s *recordingSink) Send(_ context.Context, destination events.Topic, letter DeadLetter) error {
	if s.err != nil {
		return s.err
	}
	s.destinations = append(s.destinations, destination)
	s.letters = append(s.letters, letter)
	return nil
}

type memoryInbox struct {
	keys map[string]bool
}

func (m *memoryInbox) Seen(_ context.Context, key string) (bool, error) {
	return m.keys[key], nil
}

func (m *memoryInbox) Mark(_ context.Context, key string) error {
	m.keys[key] = true
	return nil
}

var errStore = errors.New("store unavailable")

var errRejected = errors.New("rejected")

const orderChannel = "order-lifecycle"

func newDelivery(eventType string, receiveCount int, ack *recordingAck) *Delivery {
	evt := events.NewEvent(models.GenerateUUID(), eventType, map[string]string{"order_id": "O1"}).
		WithPartitionKey("O1")
	return &Delivery{
		MessageID:       "msg-1",
		Channel:         orderChannel,
		Source:          "os-events",
		Event:           evt,
		Body:            []byte(`{"raw":true}`),
		Attributes:      map[string]string{events.HeaderEventType: eventType},
		PartitionKey:    "O1",
		ReceiveCount:    receiveCount,
		FirstReceivedAt: time.Unix(100, 0),
		Acknowledger:    ack,
	}
}

func newTestRouter(sink *recordingSink, opts ...RouterOption) *Router {
	policy := RedeliveryPolicy{
		MaxAttempts: 3,
		MaxElapsed:  30 * time.Second,
		Backoff: resilience.RetryConfig{
			InitialInterval: time.Second,
			MaxInterval:     16 * time.Second,
		},
	}
	opts = append([]RouterOption{
		WithNow(func() time.Time { return time.Unix(105, 0) }),
		WithNonRetryable(func(err error) bool { return errors.Is(err, errRejected) }),
	}, opts...)
	return NewRouter(NewDeadLetterRouter(sink, zap.NewNop().Sugar()), policy, zap.NewNop().Sugar(), opts...)
}

func TestRouter_Dispatch(t *testing.T) {
	tests := []struct {
		name            string
		eventType       string
		receiveCount    int
		handlerErr      error
		expectedCalls   int
		expectedAcks    int
		expectedNacks   int
		expectedDelay   time.Duration
		expectedLetters int
		expectedReason  Reason
	}{
		{
			name:          "success is acknowledged",
			eventType:     events.OrderCreatedEvent,
			receiveCount:  1,
			expectedCalls: 1,
			expectedAcks:  1,
		},
		{
			name:         "unknown type is acknowledged without handler",
			eventType:    "order.archived",
			receiveCount: 1,
			expectedAcks: 1,
		},
		{
			name:         "ignored type is acknowledged",
			eventType:    events.OrderStatusChangedEvent,
			receiveCount: 1,
			expectedAcks: 1,
		},
		{
			name:          "transient failure is redelivered with backoff",
			eventType:     events.OrderCreatedEvent,
			receiveCount:  2,
			handlerErr:    errStore,
			expectedCalls: 1,
			expectedNacks: 1,
			expectedDelay: 2 * time.Second,
		},
		{
			name:            "exhausted attempts go to dead letter",
			eventType:       events.OrderCreatedEvent,
			receiveCount:    3,
			handlerErr:      errStore,
			expectedCalls:   1,
			expectedAcks:    1,
			expectedLetters: 1,
			expectedReason:  ReasonRetriesExhausted,
		},
		{
			name:            "non-retryable failure goes to dead letter at once",
			eventType:       events.OrderCreatedEvent,
			receiveCount:    1,
			handlerErr:      errors.Wrap(errRejected, "handle"),
			expectedCalls:   1,
			expectedAcks:    1,
			expectedLetters: 1,
			expectedReason:  ReasonNonRetryable,
		},
		{
			name:            "malformed payload goes to dead letter at once",
			eventType:       events.OrderCreatedEvent,
			receiveCount:    1,
			handlerErr:      errors.Wrap(ErrMalformedPayload, "order_id missing"),
			expectedCalls:   1,
			expectedAcks:    1,
			expectedLetters: 1,
			expectedReason:  ReasonNonRetryable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &recordingSink{}
			router := newTestRouter(sink)
			calls := 0
			router.RegisterHandler(orderChannel, events.OrderCreatedEvent, func(context.Context, *events.Event) error {
				calls++
				return tt.handlerErr
			})
			router.Ignore(orderChannel, events.OrderStatusChangedEvent)
			ack := &recordingAck{}

			err := router.Dispatch(context.Background(), newDelivery(tt.eventType, tt.receiveCount, ack))

			require.NoError(t, err)
			assert.Equal(t, tt.expectedCalls, calls)
			assert.Equal(t, tt.expectedAcks, ack.acked)
			assert.Equal(t, tt.expectedNacks, ack.nacked)
			assert.Equal(t, tt.expectedDelay, ack.delay)
			require.Len(t, sink.letters, tt.expectedLetters)
			if tt.expectedLetters > 0 {
				assert.Equal(t, events.Topic("os-events.DLT"), sink.destinations[0])
				assert.Equal(t, string(tt.expectedReason), sink.letters[0].Attributes[DLTExceptionClass])
				assert.Contains(t, sink.letters[0].Attributes[DLTExceptionMessage], tt.handlerErr.Error())
			}
		})
	}
}

func TestRouter_ElapsedBudgetExhausted(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(sink, WithNow(func() time.Time { return time.Unix(131, 0) }))
	router.RegisterHandler(orderChannel, events.OrderCreatedEvent, func(context.Context, *events.Event) error {
		return errStore
	})
	ack := &recordingAck{}

	err := router.Dispatch(context.Background(), newDelivery(events.OrderCreatedEvent, 1, ack))

	require.NoError(t, err)
	assert.Equal(t, 0, ack.nacked)
	assert.Equal(t, 1, ack.acked)
	require.Len(t, sink.letters, 1)
	assert.Equal(t, string(ReasonRetriesExhausted), sink.letters[0].Attributes[DLTExceptionClass])
}

func TestRouter_DecodeFailureIsDeadLetteredVerbatim(t *testing.T) {
	sink := &recordingSink{}
	router := newTestRouter(sink)
	ack := &recordingAck{}
	d := &Delivery{
		MessageID:    "msg-9",
		Channel:      "billing-lifecycle",
		Source:       "billing-events",
		DecodeErr:    events.ErrInvalidPayload,
		Body:         []byte("not json"),
		Attributes:   map[string]string{"origin": "billing"},
		ReceiveCount: 1,
		Acknowledger: ack,
	}

	err := router.Dispatch(context.Background(), d)

	require.NoError(t, err)
	assert.Equal(t, 1, ack.acked)
	require.Len(t, sink.letters, 1)
	assert.Equal(t, events.Topic("billing-events.DLT"), sink.destinations[0])
	assert.Equal(t, []byte("not json"), sink.letters[0].Body)
	assert.Equal(t, "billing", sink.letters[0].Attributes["origin"])
	assert.Equal(t, string(ReasonMalformed), sink.letters[0].Attributes[DLTExceptionClass])
	assert.Equal(t, "billing-events", sink.letters[0].Attributes[DLTOriginalTopic])
	assert.Equal(t, "1", sink.letters[0].Attributes[DLTAttempts])
}

func TestRouter_DeadLetterFailureRedelivers(t *testing.T) {
	sink := &recordingSink{err: errors.New("sqs down")}
	router := newTestRouter(sink)
	router.RegisterHandler(orderChannel, events.OrderCreatedEvent, func(context.Context, *events.Event) error {
		return errRejected
	})
	ack := &recordingAck{}

	err := router.Dispatch(context.Background(), newDelivery(events.OrderCreatedEvent, 1, ack))

	assert.Error(t, err)
	assert.Equal(t, 0, ack.acked)
	assert.Equal(t, 1, ack.nacked)
}

func TestRouter_InboxSuppressesDuplicates(t *testing.T) {
	sink := &recordingSink{}
	inbox := &memoryInbox{keys: map[string]bool{}}
	router := newTestRouter(sink, WithInbox(inbox))
	calls := 0
	router.RegisterHandler(orderChannel, events.OrderCreatedEvent, func(context.Context, *events.Event) error {
		calls++
		return nil
	})
	first := &recordingAck{}
	d := newDelivery(events.OrderCreatedEvent, 1, first)

	require.NoError(t, router.Dispatch(context.Background(), d))

	second := &recordingAck{}
	d.Acknowledger = second
	d.ReceiveCount = 2
	require.NoError(t, router.Dispatch(context.Background(), d))

	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, first.acked)
	assert.Equal(t, 1, second.acked)
}
