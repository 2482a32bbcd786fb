// Package inbox remembers which reservation events a consumer has applied.
package inbox

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayquote/internal/app/policies"
)

const collectionName = "consumed_events"

type receipt struct {
	ID         string    `bson:"_id"`
	Consumer   string    `bson:"consumer"`
	EventID    string    `bson:"event_id"`
	ReceivedAt time.Time `bson:"received_at"`
}

// Store writes one receipt per (consumer, event id). Seen runs inside the
// apply transaction, so a failed apply also drops its receipt and the
// redelivered event is processed again.
type Store struct {
	col      *mongo.Collection
	consumer string
}

// NewStore prepares the collection. A positive retention adds a TTL index;
// redeliveries older than that are no longer detected.
func NewStore(ctx context.Context, db *mongo.Database, consumer string, retention time.Duration) (*Store, error) {
	if consumer == "" {
		return nil, fmt.Errorf("inbox: consumer name required")
	}
	col := db.Collection(collectionName)
	if retention > 0 {
		ttl := mongo.IndexModel{
			Keys:    bson.D{{Key: "received_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		}
		if _, err := col.Indexes().CreateOne(ctx, ttl); err != nil {
			return nil, fmt.Errorf("inbox ttl index: %w", err)
		}
	}
	return &Store{col: col, consumer: consumer}, nil
}

func (s *Store) Seen(ctx context.Context, eventID string) (bool, error) {
	_, err := s.col.InsertOne(ctx, receipt{
		ID:         s.consumer + "/" + eventID,
		Consumer:   s.consumer,
		EventID:    eventID,
		ReceivedAt: time.Now().UTC(),
	})
	switch {
	case err == nil:
		return false, nil
	case mongo.IsDuplicateKeyError(err):
		return true, nil
	default:
		return false, fmt.Errorf("inbox %s: %w", eventID, err)
	}
}

var _ policies.Inbox = (*Store)(nil)
