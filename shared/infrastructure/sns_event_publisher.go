package infrastructure

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/resilience"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var _ events.Publisher = (*SNSEventPublisher)(nil)

const maxBatchSize = 10

// SNSAPI is the part of the SNS client used by the publisher
type SNSAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
	PublishBatch(ctx context.Context, params *sns.PublishBatchInput, optFns ...func(*sns.Options)) (*sns.PublishBatchOutput, error)
}

// SNSEventPublisher implements events.Publisher using AWS SNS.
// Publish returns only after SNS has accepted every event.
type SNSEventPublisher struct {
	client   SNSAPI
	topicArn string
	fifo     bool
}

// NewSNSEventPublisher creates a new SNSEventPublisher. FIFO topics (".fifo" suffix)
// get a message group per partition key.
func NewSNSEventPublisher(client SNSAPI, topicArn string) *SNSEventPublisher {
	return &SNSEventPublisher{
		client:   client,
		topicArn: topicArn,
		fifo:     strings.HasSuffix(topicArn, ".fifo"),
	}
}

// Publish publishes events to SNS
func (p *SNSEventPublisher) Publish(ctx context.Context, evts ...*events.Event) error {
	switch len(evts) {
	case 0:
		return nil
	case 1:
		return p.publishOne(ctx, evts[0])
	}

	// Split into batches
	batchEvents := splitToChunks(evts, maxBatchSize)

	gr, ctx := errgroup.WithContext(ctx)

	for _, eventBatch := range batchEvents {
		eventBatch := eventBatch
		gr.Go(func() error {
			return p.batchPublish(ctx, eventBatch)
		})
	}

	return gr.Wait()
}

func (p *SNSEventPublisher) publishOne(ctx context.Context, event *events.Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}

	input := &sns.PublishInput{
		TopicArn:          aws.String(p.topicArn),
		Message:           aws.String(string(body)),
		MessageAttributes: messageAttributes(event),
	}
	if p.fifo {
		input.MessageGroupId = aws.String(groupID(event))
		input.MessageDeduplicationId = aws.String(event.ID.String())
	}

	if _, err := p.client.Publish(ctx, input); err != nil {
		return errors.Wrapf(err, "failed to publish %s to SNS", event.EventType)
	}

	return nil
}

func (p *SNSEventPublisher) batchPublish(ctx context.Context, events []*events.Event) error {
	requests := make([]types.PublishBatchRequestEntry, len(events))

	for i, event := range events {
		body, err := encode(event)
		if err != nil {
			return err
		}

		requests[i] = types.PublishBatchRequestEntry{
			Id:                aws.String(event.ID.String()),
			Message:           aws.String(string(body)),
			MessageAttributes: messageAttributes(event),
		}
		if p.fifo {
			requests[i].MessageGroupId = aws.String(groupID(event))
			requests[i].MessageDeduplicationId = aws.String(event.ID.String())
		}
	}

	res, err := p.client.PublishBatch(
		ctx,
		&sns.PublishBatchInput{
			TopicArn:                   &p.topicArn,
			PublishBatchRequestEntries: requests,
		},
	)
	if err != nil {
		return errors.Wrap(err, "failed to publish batch to SNS")
	}

	if len(res.Failed) > 0 {
		first := res.Failed[0]
		return errors.Errorf("SNS rejected %d of %d events, first %s: %s",
			len(res.Failed), len(events), aws.ToString(first.Id), aws.ToString(first.Message))
	}

	return nil
}

func encode(event *events.Event) ([]byte, error) {
	body, err := events.Encode(event)
	if err != nil {
		return nil, resilience.Permanent(err)
	}
	return body, nil
}

// messageAttributes exposes headers so consumers can filter without decoding the body
func messageAttributes(event *events.Event) map[string]types.MessageAttributeValue {
	attrs := map[string]types.MessageAttributeValue{
		events.HeaderEventType: {
			DataType:    aws.String("String"),
			StringValue: aws.String(event.EventType),
		},
	}

	for k, v := range event.Metadata {
		if v == "" || strings.HasPrefix(k, "sqs_") {
			continue
		}

		attrs[k] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(v),
		}
	}

	return attrs
}

func groupID(event *events.Event) string {
	if event.PartitionKey != "" {
		return event.PartitionKey
	}
	return event.AggregateID.String()
}

// splitToChunks splits slice into chunks of specified size
func splitToChunks[T any](slice []T, chunkSize int) [][]T {
	var chunks [][]T
	for i := 0; i < len(slice); i += chunkSize {
		end := i + chunkSize
		if end > len(slice) {
			end = len(slice)
		}
		chunks = append(chunks, slice[i:end])
	}
	return chunks
}
