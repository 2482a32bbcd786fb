package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	appoutbox "stayquote/internal/app/outbox"
)

type state string

const (
	stateQueued    state = "queued"
	stateInFlight  state = "in_flight"
	statePublished state = "published"
	stateRetry     state = "retry"

	collectionName = "event_outbox"

	// claimLease is how long an in-flight record belongs to one worker before
	// another worker may take it over.
	claimLease = time.Minute
)

// Pending is a claimed outbox record awaiting publication.
type Pending struct {
	appoutbox.EventRecord
	Attempts int
}

// Queue is the worker side of an outbox.
type Queue interface {
	Claim(ctx context.Context, workerID string) (*Pending, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error
}

// Store keeps outbox records in mongo. Add joins the session carried by ctx,
// so events commit with the frame or blocking write that raised them.
type Store struct {
	col *mongo.Collection
	now func() time.Time
}

func NewStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	col := db.Collection(collectionName)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "state", Value: 1}, {Key: "due_at", Value: 1}}},
		{Keys: bson.D{{Key: "property_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return nil, fmt.Errorf("outbox indexes: %w", err)
	}
	return &Store{col: col, now: time.Now}, nil
}

type recordDoc struct {
	ID          string            `bson:"_id"`
	Name        string            `bson:"name"`
	PropertyID  string            `bson:"property_id"`
	Payload     []byte            `bson:"payload"`
	Headers     map[string]string `bson:"headers,omitempty"`
	OccurredAt  time.Time         `bson:"occurred_at"`
	State       state             `bson:"state"`
	Attempts    int               `bson:"attempts"`
	DueAt       time.Time         `bson:"due_at"`
	Worker      string            `bson:"worker,omitempty"`
	LeaseUntil  time.Time         `bson:"lease_until,omitempty"`
	PublishedAt time.Time         `bson:"published_at,omitempty"`
	LastError   string            `bson:"last_error,omitempty"`
}

func (d recordDoc) pending() *Pending {
	return &Pending{
		EventRecord: appoutbox.EventRecord{
			ID:         d.ID,
			Name:       d.Name,
			Payload:    d.Payload,
			OccurredAt: d.OccurredAt,
			Aggregate:  d.PropertyID,
			Headers:    d.Headers,
		},
		Attempts: d.Attempts,
	}
}

func (s *Store) Add(ctx context.Context, record appoutbox.EventRecord) error {
	_, err := s.col.InsertOne(ctx, recordDoc{
		ID:         record.ID,
		Name:       record.Name,
		PropertyID: record.Aggregate,
		Payload:    record.Payload,
		Headers:    record.Headers,
		OccurredAt: record.OccurredAt,
		State:      stateQueued,
		DueAt:      s.now().UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// Flush does nothing; records become visible to the worker on commit.
func (s *Store) Flush(context.Context) error { return nil }

// Claim takes the oldest due record, including in-flight ones whose lease ran out.
func (s *Store) Claim(ctx context.Context, workerID string) (*Pending, error) {
	now := s.now().UTC()
	filter := bson.M{"$or": bson.A{
		bson.M{"state": bson.M{"$in": bson.A{stateQueued, stateRetry}}, "due_at": bson.M{"$lte": now}},
		bson.M{"state": stateInFlight, "lease_until": bson.M{"$lt": now}},
	}}
	update := bson.M{"$set": bson.M{"state": stateInFlight, "worker": workerID, "lease_until": now.Add(claimLease)}}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "due_at", Value: 1}})
	var doc recordDoc
	err := s.col.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("outbox claim: %w", err)
	}
	return doc.pending(), nil
}

func (s *Store) MarkSent(ctx context.Context, id string) error {
	set := bson.M{"state": statePublished, "published_at": s.now().UTC()}
	_, err := s.col.UpdateByID(ctx, id, bson.M{"$set": set, "$unset": bson.M{"lease_until": "", "last_error": ""}})
	return err
}

func (s *Store) MarkFailed(ctx context.Context, id string, next time.Time, errMsg string) error {
	_, err := s.col.UpdateByID(ctx, id, bson.M{
		"$set":   bson.M{"state": stateRetry, "due_at": next, "last_error": errMsg},
		"$unset": bson.M{"lease_until": ""},
		"$inc":   bson.M{"attempts": 1},
	})
	return err
}

var (
	_ appoutbox.Outbox = (*Store)(nil)
	_ Queue            = (*Store)(nil)
)
