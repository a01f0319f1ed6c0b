package infrastructure

import (
	"context"
	"strconv"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQSDeadLetterSink_Send(t *testing.T) {
	client := &fakeSQS{}
	sink := NewSQSDeadLetterSink(client, map[string]string{
		"os-events.DLT": "https://sqs/execution-os-events-dlt.fifo",
	})

	err := sink.Send(context.Background(), "os-events.DLT", saga.DeadLetter{
		Body:         []byte("not json"),
		Attributes:   map[string]string{saga.DLTExceptionClass: "malformed_payload", "empty": ""},
		PartitionKey: "O1",
	})

	require.NoError(t, err)
	require.Len(t, client.sent, 1)
	sent := client.sent[0]
	assert.Equal(t, "not json", aws.ToString(sent.MessageBody))
	assert.Equal(t, "O1", aws.ToString(sent.MessageGroupId))
	assert.NotEmpty(t, aws.ToString(sent.MessageDeduplicationId))
	assert.Equal(t, "malformed_payload", aws.ToString(sent.MessageAttributes[saga.DLTExceptionClass].StringValue))
	assert.NotContains(t, sent.MessageAttributes, "empty")
}

func TestSQSDeadLetterSink_UnknownDestination(t *testing.T) {
	sink := NewSQSDeadLetterSink(&fakeSQS{}, nil)

	err := sink.Send(context.Background(), "billing-events.DLT", saga.DeadLetter{Body: []byte("{}")})

	assert.ErrorIs(t, err, events.ErrInvalidTopic)
}

func TestSQSDeadLetterSink_SendFailure(t *testing.T) {
	sink := NewSQSDeadLetterSink(&fakeSQS{sendErr: errors.New("throttled")}, map[string]string{
		"os-events.DLT": "https://sqs/os-events-dlt",
	})

	err := sink.Send(context.Background(), "os-events.DLT", saga.DeadLetter{Body: []byte("{}")})

	assert.ErrorContains(t, err, "throttled")
}

func TestDeadLetterAttributes_KeepsFailureContextWithinLimit(t *testing.T) {
	attrs := map[string]string{
		saga.DLTExceptionMessage: "boom",
		saga.DLTExceptionClass:   "retries_exhausted",
		saga.DLTOriginalTopic:    "os-events",
		saga.DLTOriginalChannel:  "order-lifecycle",
		saga.DLTAttempts:         "4",
		saga.DLTFailedAt:         "2026-01-01T00:00:00Z",
	}
	for i := 0; i < 8; i++ {
		attrs["header_"+strconv.Itoa(i)] = "v"
	}

	out := deadLetterAttributes(attrs)

	assert.Len(t, out, maxSQSMessageAttributes)
	for _, k := range []string{saga.DLTExceptionMessage, saga.DLTExceptionClass, saga.DLTOriginalTopic, saga.DLTAttempts} {
		assert.Contains(t, out, k)
	}
}
