package infrastructure

import (
	"context"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/models"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/pkg/errors"
)

var _ saga.DeadLetterSink = (*SQSDeadLetterSink)(nil)

// maxSQSMessageAttributes is the SQS limit per message
const maxSQSMessageAttributes = 10

// SQSDeadLetterSink sends dead letters to the queue configured for each destination
type SQSDeadLetterSink struct {
	client SQSAPI
	queues map[events.Topic]string
}

// NewSQSDeadLetterSink maps destinations such as "os-events.DLT" to queue URLs
func NewSQSDeadLetterSink(client SQSAPI, queues map[string]string) *SQSDeadLetterSink {
	mapped := make(map[events.Topic]string, len(queues))
	for name, url := range queues {
		mapped[events.Topic(name)] = url
	}

	return &SQSDeadLetterSink{
		client: client,
		queues: mapped,
	}
}

// Send delivers the original body unchanged to the destination queue
func (s *SQSDeadLetterSink) Send(ctx context.Context, destination events.Topic, letter saga.DeadLetter) error {
	queueURL, ok := s.queues[destination]
	if !ok {
		return errors.Wrapf(events.ErrInvalidTopic, "no queue configured for %s", destination)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:          aws.String(queueURL),
		MessageBody:       aws.String(string(letter.Body)),
		MessageAttributes: deadLetterAttributes(letter.Attributes),
	}

	if strings.HasSuffix(queueURL, ".fifo") {
		group := letter.PartitionKey
		if group == "" {
			group = destination.String()
		}
		input.MessageGroupId = aws.String(group)
		input.MessageDeduplicationId = aws.String(models.GenerateUUID().String())
	}

	if _, err := s.client.SendMessage(ctx, input); err != nil {
		return errors.Wrapf(err, "failed to send dead letter to %s", destination)
	}

	return nil
}

// deadLetterAttributes keeps the dlt_* attributes first when the SQS limit forces a cut
func deadLetterAttributes(attrs map[string]string) map[string]types.MessageAttributeValue {
	keys := make([]string, 0, len(attrs))
	for k, v := range attrs {
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}

	sort.SliceStable(keys, func(i, j int) bool {
		di, dj := strings.HasPrefix(keys[i], "dlt_"), strings.HasPrefix(keys[j], "dlt_")
		if di != dj {
			return di
		}
		return keys[i] < keys[j]
	})

	if len(keys) > maxSQSMessageAttributes {
		keys = keys[:maxSQSMessageAttributes]
	}

	out := make(map[string]types.MessageAttributeValue, len(keys))
	for _, k := range keys {
		out[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(attrs[k]),
		}
	}
	return out
}
