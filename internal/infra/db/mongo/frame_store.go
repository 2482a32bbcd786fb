package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
	"stayquote/internal/domain/timeframe"
)

// FrameStore keeps one kind of time frame in its own collection. Payload
// fields use the driver's default lowercase naming.
type FrameStore[T any] struct {
	col *mongo.Collection
}

func NewFrameStore[T any](db *mongo.Database, kind timeframe.Kind) *FrameStore[T] {
	return &FrameStore[T]{col: db.Collection("frames_" + string(kind))}
}

type frameDocument[T any] struct {
	ID          string       `bson:"_id"`
	PropertyID  string       `bson:"property_id"`
	Span        spanDocument `bson:"span"`
	Payload     T            `bson:"payload"`
	DateUpdated int64        `bson:"date_updated"`
}

func newFrameDocument[T any](f timeframe.Frame[T]) frameDocument[T] {
	return frameDocument[T]{
		ID:          f.ID,
		PropertyID:  string(f.PropertyID),
		Span:        newSpanDocument(f.Span),
		Payload:     f.Payload,
		DateUpdated: f.DateUpdated.UnixMilli(),
	}
}

func (d frameDocument[T]) toDomain() timeframe.Frame[T] {
	return timeframe.Frame[T]{
		ID:          d.ID,
		PropertyID:  property.ID(d.PropertyID),
		Span:        d.Span.toSpan(),
		Payload:     d.Payload,
		DateUpdated: timestampToTime(d.DateUpdated),
	}
}

func (s *FrameStore[T]) ListByProperty(ctx context.Context, propertyID property.ID) ([]timeframe.Frame[T], error) {
	docs, err := s.find(ctx, bson.M{"property_id": string(propertyID)})
	if err != nil {
		return nil, err
	}
	return toFrames(docs), nil
}

func (s *FrameStore[T]) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]timeframe.Frame[T], error) {
	filter := spanOverlapFilter("span", dr)
	filter["property_id"] = string(propertyID)
	docs, err := s.find(ctx, filter)
	if err != nil {
		return nil, err
	}
	return framesByLowerDesc(docs), nil
}

// Apply writes a mutator plan. Callers run it inside the unit's transaction.
func (s *FrameStore[T]) Apply(ctx context.Context, propertyID property.ID, changes timeframe.Changes[T]) error {
	if changes.Empty() {
		return nil
	}
	var models []mongo.WriteModel
	if len(changes.Deleted) > 0 {
		models = append(models, mongo.NewDeleteManyModel().SetFilter(bson.M{
			"_id":         bson.M{"$in": changes.Deleted},
			"property_id": string(propertyID),
		}))
	}
	for _, f := range changes.Updated {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": f.ID, "property_id": string(propertyID)}).
			SetReplacement(newFrameDocument(f)))
	}
	for _, f := range changes.Inserted {
		models = append(models, mongo.NewInsertOneModel().SetDocument(newFrameDocument(f)))
	}
	_, err := s.col.BulkWrite(ctx, models)
	return err
}

func (s *FrameStore[T]) find(ctx context.Context, filter bson.M) ([]frameDocument[T], error) {
	cur, err := s.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []frameDocument[T]
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func toFrames[T any](docs []frameDocument[T]) []timeframe.Frame[T] {
	out := make([]timeframe.Frame[T], 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out
}

// framesByLowerDesc orders frames the way the resolver expects: latest lower
// bound first, open lowers last, ties by ID.
func framesByLowerDesc[T any](docs []frameDocument[T]) []timeframe.Frame[T] {
	out := toFrames(docs)
	timeframe.SortByLowerDesc(out)
	return out
}

var _ timeframe.Store[struct{}] = (*FrameStore[struct{}])(nil)
