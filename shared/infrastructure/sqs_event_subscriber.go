package infrastructure

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/cespare/xxhash/v2"
	"github.com/grupo99/execution-system/shared/events"
	"github.com/grupo99/execution-system/shared/saga"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	SQSMessageIDKey = "sqs_message_id"

	attrReceiveCount      = "ApproximateReceiveCount"
	attrFirstReceiveStamp = "ApproximateFirstReceiveTimestamp"
	attrMessageGroupID    = "MessageGroupId"

	// maxSQSVisibilityTimeout is the SQS upper bound (12 hours)
	maxSQSVisibilityTimeout = 43200
)

// SQSAPI is the part of the SQS client used by the subscriber and the dead-letter sink
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	ChangeMessageVisibility(ctx context.Context, params *sqs.ChangeMessageVisibilityInput, optFns ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Dispatcher receives every message read from the queue and settles it
type Dispatcher interface {
	Dispatch(ctx context.Context, delivery *saga.Delivery) error
}

// SQSEventSubscriber reads one queue with a fixed pool of workers. All messages of
// a message group go to the same worker and are handled one at a time in order.
type SQSEventSubscriber struct {
	mux          sync.Mutex
	workerQueues []chan messageGroup
	cancel       context.CancelFunc
	running      atomic.Bool
	wg           sync.WaitGroup
	options      *sqsSubscriberOptions

	client     SQSAPI
	queueURL   string
	dispatcher Dispatcher
	logger     *zap.SugaredLogger
}

type sqsSubscriberOptions struct {
	channel                    string
	source                     events.Topic
	workers                    int32
	readers                    int32
	maxNumberOfMessages        int32
	waitTimeSeconds            int32
	visibilityTimeout          int32
	sleepTimeAfterEmptyReceive time.Duration
	sleepTimeAfterError        time.Duration
	maxVisibilityTimeout       int32
}

type SQSSubscriberOption func(*sqsSubscriberOptions)

// WithChannel names the logical channel and the topic the queue is subscribed to
func WithChannel(channel string, source events.Topic) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.channel = channel
		o.source = source
	}
}

func WithWorkers(workers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		if workers > 0 {
			o.workers = workers
		}
	}
}

func WithReaders(readers int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		if readers > 0 {
			o.readers = readers
		}
	}
}

func WithVisibilityTimeout(timeout int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		if timeout > 0 {
			o.visibilityTimeout = timeout
		}
	}
}

func WithWaitTime(seconds int32) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.waitTimeSeconds = seconds
	}
}

func WithEmptyReceiveSleep(d time.Duration) SQSSubscriberOption {
	return func(o *sqsSubscriberOptions) {
		o.sleepTimeAfterEmptyReceive = d
	}
}

// NewSQSEventSubscriber creates a new SQS event subscriber
func NewSQSEventSubscriber(
	client SQSAPI,
	queueURL string,
	dispatcher Dispatcher,
	logger *zap.SugaredLogger,
	opts ...SQSSubscriberOption,
) *SQSEventSubscriber {
	options := &sqsSubscriberOptions{
		channel:                    "sqs",
		workers:                    3,
		readers:                    1,
		maxNumberOfMessages:        10,
		waitTimeSeconds:            20,
		visibilityTimeout:          30,
		sleepTimeAfterEmptyReceive: time.Second,
		sleepTimeAfterError:        5 * time.Second,
		maxVisibilityTimeout:       900, // 15 minutes
	}

	for _, opt := range opts {
		opt(options)
	}

	return &SQSEventSubscriber{
		client:     client,
		queueURL:   queueURL,
		dispatcher: dispatcher,
		logger:     logger.With("channel", options.channel),
		options:    options,
	}
}

// Start launches readers and workers in the background
func (s *SQSEventSubscriber) Start(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.running.Load() {
		return nil
	}

	if s.dispatcher == nil {
		return errors.New("no dispatcher configured")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.workerQueues = make([]chan messageGroup, s.options.workers)
	for i := range s.workerQueues {
		s.workerQueues[i] = make(chan messageGroup, 1)
		s.wg.Add(1)
		go s.startWorker(ctx, s.workerQueues[i])
	}

	for i := 0; i < int(s.options.readers); i++ {
		s.wg.Add(1)
		go s.startReader(ctx)
	}

	s.running.Store(true)
	s.logger.Infow("sqs subscriber started",
		"queue_url", s.queueURL,
		"workers", s.options.workers,
	)

	return nil
}

// Stop cancels polling and waits for in-flight messages until ctx expires
func (s *SQSEventSubscriber) Stop(ctx context.Context) error {
	s.mux.Lock()
	defer s.mux.Unlock()

	if !s.running.Load() {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	s.running.Store(false)
	s.cancel = nil

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "sqs subscriber did not stop in time")
	}
}

// Run starts the subscriber and blocks until ctx is cancelled
func (s *SQSEventSubscriber) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

func (s *SQSEventSubscriber) startWorker(ctx context.Context, queue <-chan messageGroup) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case group := <-queue:
			// in-flight groups finish even while stopping
			s.handleGroup(context.WithoutCancel(ctx), group)
		}
	}
}

func (s *SQSEventSubscriber) startReader(ctx context.Context) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		default:
			if err := s.read(ctx); err != nil {
				if ctx.Err() != nil {
					return
				}
				s.logger.Errorw("failed to read from queue", "error", err)
				sleep(ctx, s.options.sleepTimeAfterError)
			}
		}
	}
}

func (s *SQSEventSubscriber) read(ctx context.Context) error {
	output, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(s.queueURL),
		MaxNumberOfMessages: s.options.maxNumberOfMessages,
		WaitTimeSeconds:     s.options.waitTimeSeconds,
		VisibilityTimeout:   s.options.visibilityTimeout,
		AttributeNames: []types.QueueAttributeName{
			attrReceiveCount,
			attrFirstReceiveStamp,
			attrMessageGroupID,
		},
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		return errors.Wrap(err, "failed to receive message from SQS")
	}

	if len(output.Messages) == 0 {
		sleep(ctx, s.options.sleepTimeAfterEmptyReceive)
		return nil
	}

	for _, group := range groupMessages(output.Messages) {
		select {
		case s.workerQueues[s.workerFor(group.key)] <- group:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// messageGroup holds the messages of one group from a single receive, in queue order
type messageGroup struct {
	key      string
	messages []types.Message
}

// groupMessages splits a batch by MessageGroupId. Messages without a group
// (standard queues) form groups of one.
func groupMessages(messages []types.Message) []messageGroup {
	groups := make([]messageGroup, 0, len(messages))
	index := make(map[string]int, len(messages))

	for _, message := range messages {
		key := message.Attributes[attrMessageGroupID]
		if key == "" {
			groups = append(groups, messageGroup{key: aws.ToString(message.MessageId), messages: []types.Message{message}})
			continue
		}
		if i, ok := index[key]; ok {
			groups[i].messages = append(groups[i].messages, message)
			continue
		}
		index[key] = len(groups)
		groups = append(groups, messageGroup{key: key, messages: []types.Message{message}})
	}
	return groups
}

func (s *SQSEventSubscriber) workerFor(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.workerQueues)))
}

// handleGroup dispatches messages in order and stops at the first one that was
// not acknowledged. The rest are hidden for the same delay so none of them can
// be handled ahead of the message that failed.
func (s *SQSEventSubscriber) handleGroup(ctx context.Context, group messageGroup) {
	for i, message := range group.messages {
		ack := s.handle(ctx, message)
		if ack.settled == settledAck {
			continue
		}

		s.deferMessages(ctx, group.messages[i+1:], ack.delay)
		return
	}
}

func (s *SQSEventSubscriber) handle(ctx context.Context, message types.Message) *sqsAcknowledger {
	delivery := s.toDelivery(message)
	ack := delivery.Acknowledger.(*sqsAcknowledger)

	if err := s.dispatcher.Dispatch(ctx, delivery); err != nil {
		s.logger.Errorw("failed to settle message",
			"message_id", delivery.MessageID,
			"event_type", delivery.EventType(),
			"error", err,
		)
	}
	return ack
}

func (s *SQSEventSubscriber) deferMessages(ctx context.Context, messages []types.Message, delay time.Duration) {
	for _, message := range messages {
		_, err := s.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
			QueueUrl:          aws.String(s.queueURL),
			ReceiptHandle:     message.ReceiptHandle,
			VisibilityTimeout: visibilitySeconds(delay, s.options.maxVisibilityTimeout),
		})
		if err != nil {
			s.logger.Warnw("failed to defer message behind failed group member",
				"message_id", aws.ToString(message.MessageId),
				"error", err,
			)
			continue
		}
		s.logger.Debugw("message deferred behind failed group member",
			"message_id", aws.ToString(message.MessageId),
			"group", message.Attributes[attrMessageGroupID],
		)
	}
}

// toDelivery never fails: undecodable bodies become deliveries carrying DecodeErr
func (s *SQSEventSubscriber) toDelivery(message types.Message) *saga.Delivery {
	raw := aws.ToString(message.Body)

	attrs := make(map[string]string, len(message.MessageAttributes))
	for k, v := range message.MessageAttributes {
		if v.StringValue != nil {
			attrs[k] = *v.StringValue
		}
	}

	body, notificationAttrs := unwrapSNSNotification(raw)
	for k, v := range notificationAttrs {
		attrs[k] = v
	}

	event, decodeErr := events.DecodeWithHeaders([]byte(body), attrs)
	if event != nil {
		event.Metadata = event.Metadata.Merge(attrs)
		event.Metadata.Set(SQSMessageIDKey, aws.ToString(message.MessageId))
		if event.Topic == "" {
			event.Topic = s.options.source
		}
	}

	receiveCount, err := strconv.Atoi(message.Attributes[attrReceiveCount])
	if err != nil || receiveCount < 1 {
		receiveCount = 1
	}

	var firstReceived time.Time
	if ms, err := strconv.ParseInt(message.Attributes[attrFirstReceiveStamp], 10, 64); err == nil {
		firstReceived = time.UnixMilli(ms)
	}

	partitionKey := message.Attributes[attrMessageGroupID]
	if partitionKey == "" && event != nil {
		partitionKey = event.PartitionKey
	}
	if partitionKey == "" {
		partitionKey = attrs[events.HeaderOrderID]
	}
	if event != nil && event.PartitionKey == "" {
		event.PartitionKey = partitionKey
	}

	return &saga.Delivery{
		MessageID:       aws.ToString(message.MessageId),
		Channel:         s.options.channel,
		Source:          s.options.source,
		Event:           event,
		DecodeErr:       decodeErr,
		Body:            []byte(raw),
		Attributes:      attrs,
		PartitionKey:    partitionKey,
		ReceiveCount:    receiveCount,
		FirstReceivedAt: firstReceived,
		Acknowledger: &sqsAcknowledger{
			client:               s.client,
			queueURL:             s.queueURL,
			receiptHandle:        message.ReceiptHandle,
			maxVisibilityTimeout: s.options.maxVisibilityTimeout,
		},
	}
}

// snsNotification is the body SQS receives from SNS when raw delivery is disabled
type snsNotification struct {
	Type              string `json:"Type"`
	Message           string `json:"Message"`
	MessageAttributes map[string]struct {
		Type  string `json:"Type"`
		Value string `json:"Value"`
	} `json:"MessageAttributes"`
}

func unwrapSNSNotification(body string) (string, map[string]string) {
	if !strings.Contains(body, `"Notification"`) {
		return body, nil
	}

	var n snsNotification
	if err := json.Unmarshal([]byte(body), &n); err != nil || n.Type != "Notification" {
		return body, nil
	}

	attrs := make(map[string]string, len(n.MessageAttributes))
	for k, v := range n.MessageAttributes {
		attrs[k] = v.Value
	}
	return n.Message, attrs
}

type settlement int

const (
	settledNone settlement = iota
	settledAck
	settledNack
)

// sqsAcknowledger settles one received message and remembers how. It is used by
// the worker goroutine that dispatched the message only.
type sqsAcknowledger struct {
	client               SQSAPI
	queueURL             string
	receiptHandle        *string
	maxVisibilityTimeout int32

	settled settlement
	delay   time.Duration
}

func (a *sqsAcknowledger) Ack(ctx context.Context) error {
	_, err := a.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(a.queueURL),
		ReceiptHandle: a.receiptHandle,
	})
	if err != nil {
		return errors.Wrap(err, "failed to delete message from SQS")
	}
	a.settled = settledAck
	return nil
}

func (a *sqsAcknowledger) Nack(ctx context.Context, delay time.Duration) error {
	_, err := a.client.ChangeMessageVisibility(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(a.queueURL),
		ReceiptHandle:     a.receiptHandle,
		VisibilityTimeout: visibilitySeconds(delay, a.maxVisibilityTimeout),
	})
	if err != nil {
		return errors.Wrap(err, "failed to change message visibility")
	}
	a.settled = settledNack
	a.delay = delay
	return nil
}

func visibilitySeconds(delay time.Duration, max int32) int32 {
	if max <= 0 || max > maxSQSVisibilityTimeout {
		max = maxSQSVisibilityTimeout
	}
	if delay <= 0 {
		return 0
	}

	seconds := int32(math.Ceil(delay.Seconds()))
	if seconds > max {
		return max
	}
	return seconds
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
