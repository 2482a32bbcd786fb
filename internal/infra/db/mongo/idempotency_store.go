package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayquote/internal/app/middleware"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

// IdempotencyStore keeps replayable results of frame and blocking writes.
// Documents carry their own expires_at; the TTL monitor removes them lazily,
// so Get also filters on it.
type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
}

func NewIdempotencyStore(ctx context.Context, db *mongo.Database, ttl time.Duration) (*IdempotencyStore, error) {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	col := db.Collection("idempotency_keys")
	_, err := col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("idempotency ttl index: %w", err)
	}
	return &IdempotencyStore{col: col, ttl: ttl}, nil
}

type idempotencyDoc struct {
	Key        string    `bson:"_id"`
	Result     []byte    `bson:"result"`
	OccurredAt time.Time `bson:"occurred_at"`
	ExpiresAt  time.Time `bson:"expires_at"`
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	filter := bson.M{"_id": key, "expires_at": bson.M{"$gt": time.Now().UTC()}}
	var doc idempotencyDoc
	err := s.col.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	if err != nil {
		return middleware.IdempotencyRecord{}, false, err
	}
	return middleware.IdempotencyRecord{Key: doc.Key, Payload: doc.Result, OccurredAt: doc.OccurredAt}, true, nil
}

// Save keeps the first result stored under a key; a concurrent retry that
// raced past Get does not overwrite it.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	occurred := rec.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	_, err := s.col.InsertOne(ctx, idempotencyDoc{
		Key:        rec.Key,
		Result:     rec.Payload,
		OccurredAt: occurred,
		ExpiresAt:  occurred.Add(s.ttl),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
