package events

import (
	"testing"

	"github.com/grupo99/execution-system/shared/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderPayload struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason,omitempty"`
}

func TestEncodeDecode_KeepsEnvelopeFields(t *testing.T) {
	evt := NewEvent(models.ID("exec-1"), ExecutionFailedEvent, orderPayload{OrderID: "O1", Reason: "order cancelled"}).
		WithPartitionKey("O1").
		WithTopic("execution-events").
		WithMetadata(HeaderOrderID, "O1")

	body, err := Encode(evt)
	require.NoError(t, err)

	decoded, err := Decode(body)
	require.NoError(t, err)

	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, ExecutionFailedEvent, decoded.EventType)
	assert.Equal(t, "O1", decoded.PartitionKey)
	assert.Equal(t, Topic("execution-events"), decoded.Topic)
	assert.Equal(t, "O1", decoded.Metadata[HeaderOrderID])

	var payload orderPayload
	require.NoError(t, decoded.UnmarshalPayload(&payload))
	assert.Equal(t, "order cancelled", payload.Reason)
}

func TestDecodeWithHeaders(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		headers      Metadata
		expectedType string
		expectedErr  error
	}{
		{
			name:        "not json",
			body:        "not json",
			expectedErr: ErrInvalidPayload,
		},
		{
			name:        "no type anywhere",
			body:        `{"payload":{"order_id":"O1"}}`,
			expectedErr: ErrMissingType,
		},
		{
			name:         "type from envelope metadata",
			body:         `{"metadata":{"event_type":"order.created"},"payload":{"order_id":"O1"}}`,
			expectedType: OrderCreatedEvent,
		},
		{
			name:         "bare payload typed by header",
			body:         `{"order_id":"O1"}`,
			headers:      Metadata{HeaderEventType: OrderCancelledEvent, HeaderOrderID: "O1"},
			expectedType: OrderCancelledEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt, err := DecodeWithHeaders([]byte(tt.body), tt.headers)

			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
				assert.Nil(t, evt)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, evt.EventType)

			var payload orderPayload
			require.NoError(t, evt.UnmarshalPayload(&payload))
			assert.Equal(t, "O1", payload.OrderID)
		})
	}
}

func TestTopic_DeadLetter(t *testing.T) {
	assert.Equal(t, Topic("os-events.DLT"), Topic("os-events").DeadLetter())
}
