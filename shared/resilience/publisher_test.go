package resilience

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPublisher struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	err       error
}

func (s *stubPublisher) Publish(_ context.Context, _ ...*events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.failFirst < 0 || s.calls <= s.failFirst {
		return s.err
	}
	return nil
}

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
		MaxElapsed:      time.Second,
	}
}

func newEvent(eventType string) *events.Event {
	return events.NewEvent(models.GenerateUUID(), eventType, map[string]string{"k": "v"}).
		WithPartitionKey("order-1")
}

func TestRetryConfig_Delay(t *testing.T) {
	cfg := RetryConfig{InitialInterval: time.Second, MaxInterval: 16 * time.Second}

	assert.Equal(t, time.Second, cfg.Delay(1))
	assert.Equal(t, 2*time.Second, cfg.Delay(2))
	assert.Equal(t, 4*time.Second, cfg.Delay(3))
	assert.Equal(t, 16*time.Second, cfg.Delay(5))
	assert.Equal(t, 16*time.Second, cfg.Delay(9))
}

func TestDo(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		target        error
		expectedCalls int
	}{
		{name: "transient errors use the whole budget", err: errBroker, target: errBroker, expectedCalls: 3},
		{name: "permanent errors stop at once", err: Permanent(errBroker), target: errBroker, expectedCalls: 1},
		{name: "open circuit stops at once", err: errors.Wrap(ErrCircuitOpen, "publish"), target: ErrCircuitOpen, expectedCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Do(context.Background(), fastRetry(3), func(context.Context) error {
				calls++
				return tt.err
			})

			assert.Error(t, err)
			assert.ErrorIs(t, err, tt.target, "original error must be preserved")
			assert.Equal(t, tt.expectedCalls, calls)
		})
	}
}

func TestResilientPublisher_RetriesTransientFailure(t *testing.T) {
	next := &stubPublisher{failFirst: 2, err: errBroker}
	breaker := NewCircuitBreaker("publisher", BreakerConfig{WindowSize: 10, MinimumCalls: 10, FailureRateThreshold: 50, OpenDuration: time.Minute})
	p := NewResilientPublisher(next, breaker, fastRetry(3), zap.NewNop().Sugar())

	err := p.Publish(context.Background(), newEvent(events.ExecutionCompletedEvent))

	require.NoError(t, err)
	assert.Equal(t, 3, next.calls)
}

func TestResilientPublisher_CriticalFailureIsReturned(t *testing.T) {
	next := &stubPublisher{failFirst: -1, err: errBroker}
	breaker := NewCircuitBreaker("publisher", BreakerConfig{WindowSize: 10, MinimumCalls: 10, FailureRateThreshold: 50, OpenDuration: time.Minute})
	p := NewResilientPublisher(next, breaker, fastRetry(2), zap.NewNop().Sugar(),
		WithInformational(events.ExecutionDiagnosisCompletedEvent))

	err := p.Publish(context.Background(), newEvent(events.ExecutionFailedEvent))

	require.Error(t, err)
	assert.True(t, IsPublishFailure(err))
	assert.ErrorIs(t, err, errBroker)
	assert.Equal(t, 2, next.calls)
}

func TestResilientPublisher_InformationalFailureIsDropped(t *testing.T) {
	next := &stubPublisher{failFirst: -1, err: errBroker}
	breaker := NewCircuitBreaker("publisher", BreakerConfig{WindowSize: 10, MinimumCalls: 10, FailureRateThreshold: 50, OpenDuration: time.Minute})
	p := NewResilientPublisher(next, breaker, fastRetry(2), zap.NewNop().Sugar(),
		WithInformational(events.ExecutionDiagnosisCompletedEvent))

	err := p.Publish(context.Background(), newEvent(events.ExecutionDiagnosisCompletedEvent))

	assert.NoError(t, err)
	assert.Equal(t, int64(1), p.Dropped())
}

func TestResilientPublisher_OpenCircuitSkipsNetwork(t *testing.T) {
	next := &stubPublisher{failFirst: -1, err: errBroker}
	breaker := NewCircuitBreaker("publisher", BreakerConfig{
		WindowSize:           3,
		MinimumCalls:         3,
		FailureRateThreshold: 100,
		OpenDuration:         time.Hour,
	})
	p := NewResilientPublisher(next, breaker, fastRetry(1), zap.NewNop().Sugar())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := p.Publish(ctx, newEvent(events.ExecutionCompletedEvent))
		require.True(t, IsPublishFailure(err))
	}
	require.Equal(t, StateOpen, breaker.State())
	callsBefore := next.calls

	err := p.Publish(ctx, newEvent(events.ExecutionCompletedEvent))

	assert.True(t, IsPublishFailure(err))
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, callsBefore, next.calls)
	assert.Equal(t, int64(1), breaker.Trips())
}
