// Package consumer reads relayed ledger events back from Kafka.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/altitude/internal/events"
	"example.com/altitude/internal/outbox"
)

// Reader is the subset of *kafka.Reader the processor needs.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded ledger events.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is a decoded ledger event with its Kafka coordinates.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	EventType     string
	EventID       int64
	SchemaSubject string
	SchemaID      int
	Day           string
	Event         any
	Payload       json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// Processor pulls records, decodes them and hands them to a Handler. A record
// is committed only after the handler succeeds; undecodable records are
// committed and counted so they cannot block the partition.
type Processor struct {
	reader  Reader
	handler Handler
	logger  *slog.Logger
}

// NewProcessor constructs a Processor.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:  reader,
		handler: handler,
		logger:  slog.Default().With("component", "consumer"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes records until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			p.logger.WarnContext(ctx, "fetch failed", "err", err)
			continue
		}

		event, err := decodeMessage(msg)
		if err != nil {
			p.logger.WarnContext(ctx, "dropping undecodable record",
				"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
			recordDecodeError(msg.Topic)
			if err := p.reader.CommitMessages(ctx, msg); err != nil {
				p.logger.ErrorContext(ctx, "commit after decode failure", "err", err)
			}
			continue
		}

		if err := p.handler.Handle(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "handler failed",
				"event_type", event.EventType, "day", event.Day, "offset", event.Offset, "err", err)
			recordHandlerError(event)
			continue
		}

		if err := p.reader.CommitMessages(ctx, msg); err != nil {
			p.logger.ErrorContext(ctx, "commit failed", "offset", msg.Offset, "err", err)
			continue
		}
		recordProcessed(event)
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	eventType, ok := headerValue(msg, outbox.HeaderEventType)
	if !ok {
		return Message{}, errors.New("missing event_type header")
	}
	schemaID, payload, err := outbox.DecodeWireFormat(msg.Value)
	if err != nil {
		return Message{}, err
	}
	event, day, err := events.Decode(eventType, payload)
	if err != nil {
		return Message{}, err
	}

	var eventID int64
	if raw, ok := headerValue(msg, outbox.HeaderEventID); ok {
		if eventID, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return Message{}, fmt.Errorf("event_id header %q: %w", raw, err)
		}
	}
	subject, _ := headerValue(msg, outbox.HeaderSchemaSubject)

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		EventType:     eventType,
		EventID:       eventID,
		SchemaSubject: subject,
		SchemaID:      schemaID,
		Day:           day,
		Event:         event,
		Payload:       json.RawMessage(append([]byte(nil), payload...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
