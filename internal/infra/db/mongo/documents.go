package mongo

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"stayquote/internal/domain/shared/daterange"
)

// spanDocument stores [lower, upper) as unix millis with explicit open markers.
type spanDocument struct {
	Lower     int64 `bson:"lower"`
	Upper     int64 `bson:"upper"`
	LowerOpen bool  `bson:"lower_open"`
	UpperOpen bool  `bson:"upper_open"`
}

func newSpanDocument(s daterange.Span) spanDocument {
	doc := spanDocument{LowerOpen: !s.LowerBounded(), UpperOpen: !s.UpperBounded()}
	if s.LowerBounded() {
		doc.Lower = s.Lower.UnixMilli()
	}
	if s.UpperBounded() {
		doc.Upper = s.Upper.UnixMilli()
	}
	return doc
}

func (d spanDocument) toSpan() daterange.Span {
	var s daterange.Span
	if !d.LowerOpen {
		s.Lower = timestampToTime(d.Lower)
	}
	if !d.UpperOpen {
		s.Upper = timestampToTime(d.Upper)
	}
	return s
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

func newRangeDocument(dr daterange.DateRange) rangeDocument {
	return rangeDocument{CheckIn: dr.CheckIn.UnixMilli(), CheckOut: dr.CheckOut.UnixMilli()}
}

func (d rangeDocument) toRange() daterange.DateRange {
	return daterange.DateRange{CheckIn: timestampToTime(d.CheckIn), CheckOut: timestampToTime(d.CheckOut)}
}

// spanOverlapFilter matches span documents under field that intersect dr.
func spanOverlapFilter(field string, dr daterange.DateRange) bson.M {
	return bson.M{"$and": bson.A{
		bson.M{"$or": bson.A{
			bson.M{field + ".lower_open": true},
			bson.M{field + ".lower": bson.M{"$lt": dr.CheckOut.UnixMilli()}},
		}},
		bson.M{"$or": bson.A{
			bson.M{field + ".upper_open": true},
			bson.M{field + ".upper": bson.M{"$gt": dr.CheckIn.UnixMilli()}},
		}},
	}}
}

// rangeOverlapFilter matches range documents under field that intersect dr.
func rangeOverlapFilter(field string, dr daterange.DateRange) bson.M {
	return bson.M{
		field + ".check_in":  bson.M{"$lt": dr.CheckOut.UnixMilli()},
		field + ".check_out": bson.M{"$gt": dr.CheckIn.UnixMilli()},
	}
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func optionalTime(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	ms := t.UnixMilli()
	return &ms
}

func optionalTimestamp(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := timestampToTime(*ms)
	return &t
}
