package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grupo99/execution-system/execution-service/application"
	"github.com/grupo99/execution-system/execution-service/domain"
	"github.com/grupo99/execution-system/execution-service/infrastructure"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingPublisher struct {
	mu        sync.Mutex
	published []domain.OutboundEvent
	failNext  int
}

func (p *capturingPublisher) Publish(_ context.Context, event domain.OutboundEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failNext > 0 {
		p.failNext--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, event)
	return nil
}

func (p *capturingPublisher) ofType(eventType string) []domain.OutboundEvent {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []domain.OutboundEvent
	for _, e := range p.published {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

type settlement struct {
	acked  bool
	nacked bool
	delay  time.Duration
}

func (s *settlement) Ack(context.Context) error {
	s.acked = true
	return nil
}

func (s *settlement) Nack(_ context.Context, delay time.Duration) error {
	s.nacked = true
	s.delay = delay
	return nil
}

type deadLetters struct {
	destinations []events.Topic
	letters      []saga.DeadLetter
}

func (d *deadLetters) Send(_ context.Context, destination events.Topic, letter saga.DeadLetter) error {
	d.destinations = append(d.destinations, destination)
	d.letters = append(d.letters, letter)
	return nil
}

type sagaHarness struct {
	repo        *infrastructure.MemoryExecutionRepository
	publisher   *capturingPublisher
	deadLetters *deadLetters
	router      *saga.Router
}

func newSagaHarness() *sagaHarness {
	logger := zap.NewNop().Sugar()
	h := &sagaHarness{
		repo:        infrastructure.NewMemoryExecutionRepository(),
		publisher:   &capturingPublisher{},
		deadLetters: &deadLetters{},
	}

	h.router = saga.NewRouter(saga.NewDeadLetterRouter(h.deadLetters, logger), saga.DefaultRedeliveryPolicy(), logger,
		saga.WithNonRetryable(domain.IsInvalidArgument),
		saga.WithNonRetryable(domain.IsStateConflict),
	)

	NewExecutionEventHandlers(
		application.NewHandleOrderCreated(h.repo, logger),
		application.NewHandleOrderCancelled(h.repo, h.publisher, logger),
		application.NewHandleBudgetApproved(h.repo, logger),
		application.NewHandleBudgetRejected(h.repo, logger),
	).Register(h.router)

	return h
}

func (h *sagaHarness) deliver(t *testing.T, channel string, source events.Topic, evt *events.Event, receiveCount int) *settlement {
	t.Helper()
	s := &settlement{}
	err := h.router.Dispatch(context.Background(), &saga.Delivery{
		MessageID:       evt.ID.String(),
		Channel:         channel,
		Source:          source,
		Event:           evt,
		Body:            []byte(`{"event_type":"` + evt.EventType + `"}`),
		Attributes:      map[string]string{events.HeaderEventType: evt.EventType},
		PartitionKey:    evt.PartitionKey,
		ReceiveCount:    receiveCount,
		FirstReceivedAt: time.Now(),
		Acknowledger:    s,
	})
	require.NoError(t, err)
	return s
}

func (h *sagaHarness) execution(t *testing.T, orderID string) *domain.Execution {
	t.Helper()
	e, err := h.repo.FindByOrderID(context.Background(), models.ID(orderID))
	require.NoError(t, err)
	return e
}

func orderEvent(eventType, orderID string, headers map[string]string) *events.Event {
	evt := events.NewEvent(models.ID(orderID), eventType, map[string]string{"order_id": orderID}).
		WithPartitionKey(orderID)
	for k, v := range headers {
		evt.WithMetadata(k, v)
	}
	return evt
}

func TestSaga_OrderCreatedThenBudgetApproved(t *testing.T) {
	h := newSagaHarness()

	s := h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, orderEvent(events.OrderCreatedEvent, "O1", nil), 1)
	assert.True(t, s.acked)

	created := h.execution(t, "O1")
	require.NotNil(t, created)
	assert.Equal(t, domain.StatusAwaitingStart, created.Status)
	assert.Equal(t, domain.PlaceholderMechanic, created.Mechanic)

	s = h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, orderEvent(events.OrderCreatedEvent, "O1", nil), 1)
	assert.True(t, s.acked)

	all, err := h.repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)

	approved := orderEvent(events.BudgetApprovedEvent, "O1", map[string]string{events.HeaderBudgetID: "B1"})
	s = h.deliver(t, BillingLifecycleChannel, BillingEventsTopic, approved, 1)
	assert.True(t, s.acked)

	started := h.execution(t, "O1")
	assert.Equal(t, domain.StatusInProgress, started.Status)
	assert.Equal(t, models.ID("B1"), started.BudgetID)
	assert.NotNil(t, started.StartedAt)

	s = h.deliver(t, BillingLifecycleChannel, BillingEventsTopic, approved, 2)
	assert.True(t, s.acked)
	assert.Equal(t, started.Version, h.execution(t, "O1").Version)
	assert.Empty(t, h.deadLetters.letters)
}

func TestSaga_OrderCancelledWhileInProgress(t *testing.T) {
	h := newSagaHarness()
	h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, orderEvent(events.OrderCreatedEvent, "O2", nil), 1)
	h.deliver(t, BillingLifecycleChannel, BillingEventsTopic,
		orderEvent(events.BudgetApprovedEvent, "O2", map[string]string{events.HeaderBudgetID: "B2"}), 1)

	cancelled := orderEvent(events.OrderCancelledEvent, "O2", map[string]string{
		events.HeaderReason:      "customer gave up",
		events.HeaderFailedStage: "billing",
	})

	h.publisher.failNext = 1
	s := h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, cancelled, 1)
	assert.True(t, s.nacked)
	assert.False(t, s.acked)
	assert.Equal(t, time.Second, s.delay)

	pending := h.execution(t, "O2")
	assert.Equal(t, domain.StatusCancelled, pending.Status)
	assert.True(t, pending.HasPending(events.ExecutionFailedEvent))
	assert.Empty(t, h.publisher.ofType(events.ExecutionFailedEvent))

	s = h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, cancelled, 2)
	assert.True(t, s.acked)

	failed := h.publisher.ofType(events.ExecutionFailedEvent)
	require.Len(t, failed, 1)
	data := failed[0].(domain.ExecutionFailedData)
	assert.Equal(t, models.ID("O2"), data.OrderID)
	assert.Equal(t, "order cancelled at billing: customer gave up", data.Reason)
	assert.Equal(t, domain.StatusInProgress, data.FailedStage)
	assert.False(t, data.ReworkRequired)
	assert.False(t, h.execution(t, "O2").HasPending(events.ExecutionFailedEvent))

	s = h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, cancelled, 3)
	assert.True(t, s.acked)
	assert.Len(t, h.publisher.ofType(events.ExecutionFailedEvent), 1)
}

func TestSaga_BudgetRejectedCancelsWithoutCompensation(t *testing.T) {
	h := newSagaHarness()
	h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, orderEvent(events.OrderCreatedEvent, "O3", nil), 1)

	s := h.deliver(t, BillingLifecycleChannel, BillingEventsTopic,
		orderEvent(events.BudgetRejectedEvent, "O3", map[string]string{events.HeaderReason: "too expensive"}), 1)

	assert.True(t, s.acked)
	e := h.execution(t, "O3")
	assert.Equal(t, domain.StatusCancelled, e.Status)
	assert.Equal(t, "budget rejected: too expensive", e.Notes)
	assert.Empty(t, h.publisher.published)
}

func TestSaga_ApprovalBeforeOrderIsRedeliveredThenDeadLettered(t *testing.T) {
	h := newSagaHarness()
	approved := orderEvent(events.BudgetApprovedEvent, "O4", map[string]string{events.HeaderBudgetID: "B4"})

	s := h.deliver(t, BillingLifecycleChannel, BillingEventsTopic, approved, 1)
	assert.True(t, s.nacked)
	assert.Empty(t, h.deadLetters.letters)

	s = h.deliver(t, BillingLifecycleChannel, BillingEventsTopic, approved, saga.DefaultRedeliveryPolicy().MaxAttempts)
	assert.True(t, s.acked)
	require.Equal(t, []events.Topic{"billing-events.DLT"}, h.deadLetters.destinations)
	assert.Equal(t, string(saga.ReasonRetriesExhausted), h.deadLetters.letters[0].Attributes[saga.DLTExceptionClass])
}

func TestSaga_NonRetryableFailuresAreDeadLetteredImmediately(t *testing.T) {
	h := newSagaHarness()
	h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, orderEvent(events.OrderCreatedEvent, "O5", nil), 1)
	completed := h.execution(t, "O5")
	require.NoError(t, completed.Start())
	require.NoError(t, completed.Finish(""))
	require.NoError(t, h.repo.Save(context.Background(), completed))

	s := h.deliver(t, BillingLifecycleChannel, BillingEventsTopic,
		orderEvent(events.BudgetApprovedEvent, "O5", map[string]string{events.HeaderBudgetID: "B5"}), 1)
	assert.True(t, s.acked)
	assert.False(t, s.nacked)

	noOrder := events.NewEvent(models.GenerateUUID(), events.OrderCreatedEvent, map[string]string{"note": "x"})
	s = h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, noOrder, 1)
	assert.True(t, s.acked)

	assert.Equal(t, []events.Topic{"billing-events.DLT", "os-events.DLT"}, h.deadLetters.destinations)
	assert.Equal(t, domain.StatusCompleted, h.execution(t, "O5").Status)
}

func TestSaga_IgnoredAndUnknownTypesAreAcknowledged(t *testing.T) {
	h := newSagaHarness()

	for _, evt := range []*events.Event{
		orderEvent(events.OrderStatusChangedEvent, "O6", nil),
		orderEvent("order.archived", "O6", nil),
	} {
		s := h.deliver(t, OrderLifecycleChannel, OrderEventsTopic, evt, 1)
		assert.True(t, s.acked)
	}

	s := h.deliver(t, BillingLifecycleChannel, BillingEventsTopic, orderEvent(events.BudgetReadyEvent, "O6", nil), 1)
	assert.True(t, s.acked)

	assert.Nil(t, h.execution(t, "O6"))
	assert.Empty(t, h.deadLetters.letters)
}

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name     string
		event    *events.Event
		expected inboundPayload
		wantErr  bool
	}{
		{
			name: "headers win over payload",
			event: events.NewEvent("O1", events.BudgetApprovedEvent, map[string]string{"order_id": "O1", "budget_id": "old"}).
				WithMetadata(events.HeaderBudgetID, "B1"),
			expected: inboundPayload{OrderID: "O1", BudgetID: "B1"},
		},
		{
			name: "order id from partition key",
			event: events.NewEvent("O2", events.OrderCancelledEvent, map[string]string{"reason": "late"}).
				WithPartitionKey("O2"),
			expected: inboundPayload{OrderID: "O2", Reason: "late"},
		},
		{
			name:    "no order id",
			event:   events.NewEvent("", events.OrderCreatedEvent, map[string]string{}),
			wantErr: true,
		},
		{
			name:    "payload of the wrong shape",
			event:   events.NewEvent("O3", events.OrderCreatedEvent, []int{1, 2}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := decodeInbound(tt.event)

			if tt.wantErr {
				assert.ErrorIs(t, err, saga.ErrMalformedPayload)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected.OrderID, p.OrderID)
			assert.Equal(t, tt.expected.BudgetID, p.BudgetID)
			assert.Equal(t, tt.expected.Reason, p.Reason)
		})
	}
}
