// Package outbox turns recorded domain events into rows that the worker
// publishes after the write commits.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"stayquote/internal/domain/shared/events"
)

// Header names set on every encoded record.
const (
	HeaderEventName  = "event-name"
	HeaderPropertyID = "property-id"
)

type EventRecord struct {
	ID         string
	Name       string
	Payload    []byte
	OccurredAt time.Time
	// Aggregate is the property id; it becomes the kafka message key so a
	// property's events stay ordered on one partition.
	Aggregate string
	Headers   map[string]string
}

type Outbox interface {
	Add(ctx context.Context, record EventRecord) error
	Flush(ctx context.Context) error
}

type EventEncoder interface {
	Encode(ev events.DomainEvent) (EventRecord, error)
}

type JSONEventEncoder struct {
	IDGenerator func() string
}

func (e JSONEventEncoder) Encode(ev events.DomainEvent) (EventRecord, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	id := ""
	if e.IDGenerator != nil {
		id = e.IDGenerator()
	}
	if id == "" {
		id = uuid.NewString()
	}
	return EventRecord{
		ID:         id,
		Name:       ev.EventName(),
		Payload:    payload,
		OccurredAt: ev.OccurredAt().UTC(),
		Aggregate:  ev.AggregateID(),
		Headers: map[string]string{
			HeaderEventName:  ev.EventName(),
			HeaderPropertyID: ev.AggregateID(),
		},
	}, nil
}

// RecordDomainEvents appends evs to box. A nil box drops them, which is how the
// CLI runs without a publisher.
func RecordDomainEvents(ctx context.Context, box Outbox, encoder EventEncoder, evs []events.DomainEvent) error {
	if box == nil {
		return nil
	}
	if encoder == nil {
		encoder = JSONEventEncoder{}
	}
	for _, ev := range evs {
		rec, err := encoder.Encode(ev)
		if err != nil {
			return err
		}
		if err := box.Add(ctx, rec); err != nil {
			return fmt.Errorf("outbox add %s: %w", rec.Name, err)
		}
	}
	return nil
}
