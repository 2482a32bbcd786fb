package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"stayquote/internal/domain/property"
)

type PropertyRepository struct {
	col *mongo.Collection
}

func NewPropertyRepository(db *mongo.Database) *PropertyRepository {
	return &PropertyRepository{col: db.Collection("properties")}
}

func (r *PropertyRepository) ByID(ctx context.Context, id property.ID) (*property.Property, error) {
	var doc propertyDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, property.ErrPropertyNotFound
		}
		return nil, err
	}
	return doc.toDomain(), nil
}

func (r *PropertyRepository) Save(ctx context.Context, p *property.Property) error {
	if err := p.Validate(); err != nil {
		return err
	}
	doc := newPropertyDocument(p)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type propertyDocument struct {
	ID           string                        `bson:"_id"`
	Tenant       string                        `bson:"tenant"`
	Name         string                        `bson:"name"`
	Status       string                        `bson:"status"`
	Availability property.AvailabilitySettings `bson:"availability"`
	Pricing      property.PricingSettings      `bson:"pricing"`
	Fees         []property.AdditionalFee      `bson:"fees"`
	Discounts    []property.Discount           `bson:"discounts"`
	DateUpdated  int64                         `bson:"date_updated"`
}

func newPropertyDocument(p *property.Property) propertyDocument {
	return propertyDocument{
		ID:           string(p.ID),
		Tenant:       string(p.Tenant),
		Name:         p.Name,
		Status:       string(p.Status),
		Availability: p.Availability,
		Pricing:      p.Pricing,
		Fees:         p.Fees,
		Discounts:    p.Discounts,
		DateUpdated:  p.DateUpdated.UnixMilli(),
	}
}

func (d propertyDocument) toDomain() *property.Property {
	return &property.Property{
		ID:           property.ID(d.ID),
		Tenant:       property.TenantID(d.Tenant),
		Name:         d.Name,
		Status:       property.Status(d.Status),
		Availability: d.Availability,
		Pricing:      d.Pricing,
		Fees:         d.Fees,
		Discounts:    d.Discounts,
		DateUpdated:  timestampToTime(d.DateUpdated),
	}
}

var _ property.Repository = (*PropertyRepository)(nil)
