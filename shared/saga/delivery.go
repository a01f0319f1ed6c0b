package saga

import (
	"context"
	"time"

	"github.com/grupo99/execution-system/shared/events"
)

// Acknowledger settles a delivered message. Exactly one of Ack or Nack is called per delivery.
type Acknowledger interface {
	// Ack removes the message from the redelivery queue
	Ack(ctx context.Context) error
	// Nack leaves the message queued and makes it visible again after delay
	Nack(ctx context.Context, delay time.Duration) error
}

// Delivery is one received message handed to the router by a transport
type Delivery struct {
	MessageID string
	// Channel is the logical inbound channel, e.g. order-lifecycle
	Channel string
	// Source is the broker topic the message came from; dead letters go to Source.DeadLetter()
	Source events.Topic
	// Event is nil when the body could not be decoded
	Event     *events.Event
	DecodeErr error
	// Body is the raw message exactly as received
	Body         []byte
	Attributes   map[string]string
	PartitionKey string
	// ReceiveCount starts at 1 on the first delivery
	ReceiveCount    int
	FirstReceivedAt time.Time

	Acknowledger Acknowledger
}

// EventType returns the tag of the decoded event or the header copy when decoding failed
func (d *Delivery) EventType() string {
	if d.Event != nil {
		return d.Event.EventType
	}
	return d.Attributes[events.HeaderEventType]
}

// Key identifies the delivery across redeliveries
func (d *Delivery) Key() string {
	if d.Event != nil && !d.Event.ID.IsEmpty() {
		return d.Channel + ":" + d.Event.ID.String()
	}
	return d.Channel + ":" + d.MessageID
}
