package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayquote/internal/domain/ical"
	"stayquote/internal/domain/property"
	"stayquote/internal/domain/shared/daterange"
)

type CalendarRepository struct {
	col *mongo.Collection
}

func NewCalendarRepository(db *mongo.Database) *CalendarRepository {
	return &CalendarRepository{col: db.Collection("external_calendars")}
}

type calendarDocument struct {
	ID          string `bson:"_id"`
	PropertyID  string `bson:"property_id"`
	Name        string `bson:"name"`
	URL         string `bson:"url"`
	DateUpdated int64  `bson:"date_updated"`
}

func (d calendarDocument) toDomain() ical.ExternalCalendar {
	return ical.ExternalCalendar{
		ID:          ical.CalendarID(d.ID),
		PropertyID:  property.ID(d.PropertyID),
		Name:        d.Name,
		URL:         d.URL,
		DateUpdated: timestampToTime(d.DateUpdated),
	}
}

func (r *CalendarRepository) ByID(ctx context.Context, id ical.CalendarID) (*ical.ExternalCalendar, error) {
	var doc calendarDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ical.ErrCalendarNotFound
		}
		return nil, err
	}
	cal := doc.toDomain()
	return &cal, nil
}

func (r *CalendarRepository) ListByProperty(ctx context.Context, propertyID property.ID) ([]ical.ExternalCalendar, error) {
	return r.find(ctx, bson.M{"property_id": string(propertyID)})
}

func (r *CalendarRepository) List(ctx context.Context) ([]ical.ExternalCalendar, error) {
	return r.find(ctx, bson.M{})
}

func (r *CalendarRepository) Save(ctx context.Context, cal ical.ExternalCalendar) error {
	doc := calendarDocument{
		ID:          string(cal.ID),
		PropertyID:  string(cal.PropertyID),
		Name:        cal.Name,
		URL:         cal.URL,
		DateUpdated: cal.DateUpdated.UnixMilli(),
	}
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

func (r *CalendarRepository) find(ctx context.Context, filter bson.M) ([]ical.ExternalCalendar, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []calendarDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]ical.ExternalCalendar, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

// EventRepository stores the external calendar index; documents are keyed by calendar and event key.
type EventRepository struct {
	col *mongo.Collection
}

func NewEventRepository(db *mongo.Database) *EventRepository {
	return &EventRepository{col: db.Collection("external_calendar_events")}
}

type eventDocument struct {
	ID          string        `bson:"_id"`
	UID         string        `bson:"uid"`
	CalendarID  string        `bson:"calendar_id"`
	PropertyID  string        `bson:"property_id"`
	Summary     string        `bson:"summary"`
	Range       rangeDocument `bson:"range"`
	Stamp       int64         `bson:"stamp"`
	Hash        string        `bson:"hash"`
	DateUpdated int64         `bson:"date_updated"`
}

func eventKey(id ical.CalendarID, uid string) string {
	return string(id) + "|" + uid
}

func newEventDocument(e ical.Event) eventDocument {
	return eventDocument{
		ID:          eventKey(e.CalendarID, e.UID),
		UID:         e.UID,
		CalendarID:  string(e.CalendarID),
		PropertyID:  string(e.PropertyID),
		Summary:     e.Summary,
		Range:       newRangeDocument(e.Range),
		Stamp:       e.Stamp.UnixMilli(),
		Hash:        e.Hash,
		DateUpdated: e.DateUpdated.UnixMilli(),
	}
}

func (d eventDocument) toDomain() ical.Event {
	return ical.Event{
		UID:         d.UID,
		CalendarID:  ical.CalendarID(d.CalendarID),
		PropertyID:  property.ID(d.PropertyID),
		Summary:     d.Summary,
		Range:       d.Range.toRange(),
		Stamp:       timestampToTime(d.Stamp),
		Hash:        d.Hash,
		DateUpdated: timestampToTime(d.DateUpdated),
	}
}

func (r *EventRepository) ListByCalendar(ctx context.Context, id ical.CalendarID) ([]ical.Event, error) {
	return r.find(ctx, bson.M{"calendar_id": string(id)})
}

func (r *EventRepository) Overlapping(ctx context.Context, propertyID property.ID, dr daterange.DateRange) ([]ical.Event, error) {
	filter := rangeOverlapFilter("range", dr)
	filter["property_id"] = string(propertyID)
	return r.find(ctx, filter)
}

func (r *EventRepository) Apply(ctx context.Context, id ical.CalendarID, diff ical.Diff) error {
	if diff.Empty() {
		return nil
	}
	var models []mongo.WriteModel
	if len(diff.Deleted) > 0 {
		keys := make([]string, 0, len(diff.Deleted))
		for _, uid := range diff.Deleted {
			keys = append(keys, eventKey(id, uid))
		}
		models = append(models, mongo.NewDeleteManyModel().SetFilter(bson.M{"_id": bson.M{"$in": keys}}))
	}
	for _, e := range append(append([]ical.Event(nil), diff.Updated...), diff.Inserted...) {
		doc := newEventDocument(e)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc).
			SetUpsert(true))
	}
	_, err := r.col.BulkWrite(ctx, models)
	return err
}

func (r *EventRepository) find(ctx context.Context, filter bson.M) ([]ical.Event, error) {
	cur, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "range.check_in", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []eventDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]ical.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

type SyncLogRepository struct {
	col *mongo.Collection
}

func NewSyncLogRepository(db *mongo.Database) *SyncLogRepository {
	return &SyncLogRepository{col: db.Collection("external_calendar_sync_logs")}
}

type syncLogDocument struct {
	CalendarID string `bson:"calendar_id"`
	Success    bool   `bson:"success"`
	Events     int    `bson:"events"`
	Error      string `bson:"error,omitempty"`
	At         int64  `bson:"at"`
}

func (r *SyncLogRepository) Append(ctx context.Context, entry ical.SyncLog) error {
	_, err := r.col.InsertOne(ctx, syncLogDocument{
		CalendarID: string(entry.CalendarID),
		Success:    entry.Success,
		Events:     entry.Events,
		Error:      entry.Error,
		At:         entry.At.UnixMilli(),
	})
	return err
}

func (r *SyncLogRepository) Latest(ctx context.Context, id ical.CalendarID) (*ical.SyncLog, error) {
	var doc syncLogDocument
	opts := options.FindOne().SetSort(bson.D{{Key: "at", Value: -1}})
	if err := r.col.FindOne(ctx, bson.M{"calendar_id": string(id)}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &ical.SyncLog{
		CalendarID: ical.CalendarID(doc.CalendarID),
		Success:    doc.Success,
		Events:     doc.Events,
		Error:      doc.Error,
		At:         timestampToTime(doc.At),
	}, nil
}

var (
	_ ical.CalendarRepository = (*CalendarRepository)(nil)
	_ ical.EventRepository    = (*EventRepository)(nil)
	_ ical.SyncLogRepository  = (*SyncLogRepository)(nil)
)
