package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"stayquote/internal/domain/availability"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

type BlockingRepository struct {
	col *mongo.Collection
}

func NewBlockingRepository(db *mongo.Database) *BlockingRepository {
	return &BlockingRepository{col: db.Collection("blockings")}
}

type blockingDocument struct {
	ID          string       `bson:"_id"`
	PropertyID  string       `bson:"property_id"`
	Span        spanDocument `bson:"span"`
	Note        string       `bson:"note,omitempty"`
	DateUpdated int64        `bson:"date_updated"`
}

func (r *BlockingRepository) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]availability.Blocking, error) {
	filter := spanOverlapFilter("span", dr)
	filter["property_id"] = string(propertyID)
	return r.find(ctx, filter)
}

func (r *BlockingRepository) ListByProperty(ctx context.Context, propertyID property.ID) ([]availability.Blocking, error) {
	return r.find(ctx, bson.M{"property_id": string(propertyID)})
}

func (r *BlockingRepository) Add(ctx context.Context, b availability.Blocking) error {
	_, err := r.col.InsertOne(ctx, blockingDocument{
		ID:          b.ID,
		PropertyID:  string(b.PropertyID),
		Span:        newSpanDocument(b.Span),
		Note:        b.Note,
		DateUpdated: b.DateUpdated.UnixMilli(),
	})
	return err
}

func (r *BlockingRepository) Remove(ctx context.Context, propertyID property.ID, id string) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id, "property_id": string(propertyID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return availability.ErrBlockingNotFound
	}
	return nil
}

func (r *BlockingRepository) find(ctx context.Context, filter bson.M) ([]availability.Blocking, error) {
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var docs []blockingDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]availability.Blocking, 0, len(docs))
	for _, d := range docs {
		out = append(out, availability.Blocking{
			ID:          d.ID,
			PropertyID:  property.ID(d.PropertyID),
			Span:        d.Span.toSpan(),
			Note:        d.Note,
			DateUpdated: timestampToTime(d.DateUpdated),
		})
	}
	return out, nil
}

var _ availability.BlockingRepository = (*BlockingRepository)(nil)
