package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayquote/internal/domain/property"
	"stayquote/internal/domain/reservation"
	"stayquote/internal/domain/shared/daterange"
)

type ReservationLedger struct {
	col *mongo.Collection
}

func NewReservationLedger(db *mongo.Database) *ReservationLedger {
	return &ReservationLedger{col: db.Collection("reservations")}
}

type reservationDocument struct {
	ID                       string        `bson:"_id"`
	PropertyID               string        `bson:"property_id"`
	Range                    rangeDocument `bson:"range"`
	Status                   string        `bson:"status"`
	RebookAllowedIfCancelled bool          `bson:"rebook_allowed_if_cancelled"`
	Expiration               *int64        `bson:"expiration,omitempty"`
	DateUpdated              int64         `bson:"date_updated"`
}

func (d reservationDocument) toDomain() reservation.Reservation {
	return reservation.Reservation{
		ID:                       reservation.ID(d.ID),
		PropertyID:               property.ID(d.PropertyID),
		Range:                    d.Range.toRange(),
		Status:                   reservation.Status(d.Status),
		RebookAllowedIfCancelled: d.RebookAllowedIfCancelled,
		Expiration:               optionalTimestamp(d.Expiration),
		DateUpdated:              timestampToTime(d.DateUpdated),
	}
}

func (l *ReservationLedger) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]reservation.Reservation, error) {
	filter := rangeOverlapFilter("range", dr)
	filter["property_id"] = string(propertyID)
	filter["status"] = bson.M{"$nin": bson.A{string(reservation.StatusDeclined), string(reservation.StatusInquiry)}}
	cur, err := l.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]reservation.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (l *ReservationLedger) ByID(ctx context.Context, id reservation.ID) (*reservation.Reservation, error) {
	var doc reservationDocument
	if err := l.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, err
	}
	r := doc.toDomain()
	return &r, nil
}

func (l *ReservationLedger) Upsert(ctx context.Context, r reservation.Reservation) error {
	doc := reservationDocument{
		ID:                       string(r.ID),
		PropertyID:               string(r.PropertyID),
		Range:                    newRangeDocument(r.Range),
		Status:                   string(r.Status),
		RebookAllowedIfCancelled: r.RebookAllowedIfCancelled,
		Expiration:               optionalTime(r.Expiration),
		DateUpdated:              r.DateUpdated.UnixMilli(),
	}
	_, err := l.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (l *ReservationLedger) Delete(ctx context.Context, id reservation.ID) error {
	res, err := l.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

var _ reservation.Ledger = (*ReservationLedger)(nil)
