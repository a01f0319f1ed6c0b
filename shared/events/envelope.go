package events

import (
	"encoding/json"
	"time"

	"github.com/grupo99/execution-system/shared/models"
	"github.com/pkg/errors"
)

// envelope is the JSON body exchanged through SNS and SQS
type envelope struct {
	ID            string          `json:"id"`
	AggregateID   string          `json:"aggregate_id,omitempty"`
	EventType     string          `json:"event_type"`
	Topic         string          `json:"topic,omitempty"`
	PartitionKey  string          `json:"partition_key,omitempty"`
	Version       string          `json:"version,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Metadata      Metadata        `json:"metadata,omitempty"`
	Payload       json.RawMessage `json:"payload"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Encode serializes the event into its wire body
func Encode(e *Event) ([]byte, error) {
	payload, err := e.MarshalPayload()
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payload")
	}

	body, err := json.Marshal(&envelope{
		ID:            e.ID.String(),
		AggregateID:   e.AggregateID.String(),
		EventType:     e.EventType,
		Topic:         e.Topic.String(),
		PartitionKey:  e.PartitionKey,
		Version:       e.Version,
		CorrelationID: e.CorrelationID.String(),
		Metadata:      e.Metadata,
		Payload:       payload,
		Timestamp:     e.Timestamp,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}

	return body, nil
}

// Decode parses a wire body. The payload is kept raw until a handler asks for it.
func Decode(body []byte) (*Event, error) {
	return DecodeWithHeaders(body, nil)
}

// DecodeWithHeaders parses a wire body using transport headers as fallback.
// A body that is not an envelope is taken as a bare payload when the headers name its type.
func DecodeWithHeaders(body []byte, headers Metadata) (*Event, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(ErrInvalidPayload, err.Error())
	}

	if env.EventType == "" && len(env.Payload) == 0 && headers[HeaderEventType] != "" {
		return &Event{
			EventType:    headers[HeaderEventType],
			PartitionKey: headers[HeaderOrderID],
			Data:         json.RawMessage(body),
			Metadata:     headers.Clone(),
		}, nil
	}

	if env.EventType == "" {
		env.EventType = env.Metadata[HeaderEventType]
	}
	if env.EventType == "" {
		env.EventType = headers[HeaderEventType]
	}
	if env.EventType == "" {
		return nil, ErrMissingType
	}

	metadata := env.Metadata
	if metadata == nil {
		metadata = make(Metadata)
	}

	var data any
	if len(env.Payload) > 0 {
		data = env.Payload
	}

	return &Event{
		ID:            models.ID(env.ID),
		AggregateID:   models.ID(env.AggregateID),
		Topic:         Topic(env.Topic),
		EventType:     env.EventType,
		PartitionKey:  env.PartitionKey,
		Version:       env.Version,
		Data:          data,
		Metadata:      metadata,
		Timestamp:     env.Timestamp,
		CorrelationID: models.ID(env.CorrelationID),
	}, nil
}
