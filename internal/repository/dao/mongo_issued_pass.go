package dao

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const issuedPassCollection = "issued_passes"

type issuedPassDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Serial      string        `bson:"serial"`
	DinerID     int64         `bson:"diner_id"`
	DinerName   string        `bson:"diner_name"`
	DinerPhone  string        `bson:"diner_phone"`
	BrandID     int64         `bson:"brand_id"`
	TemplateID  *int64        `bson:"template_id"`
	Points      int           `bson:"points"`
	Visits      int           `bson:"visits"`
	Status      string        `bson:"status"`
	IsActive    bool          `bson:"is_active"`
	ArtifactURL string        `bson:"artifact_url,omitempty"`
	CreatedAt   time.Time     `bson:"created_at"`
	UpdatedAt   time.Time     `bson:"updated_at"`
	LastUsedAt  *time.Time    `bson:"last_used_at,omitempty"`
	ExpiresAt   time.Time     `bson:"expires_at"`
}

// MongoIssuedPassDAO stores issued passes in MongoDB. It has the same
// method set and error contract as IssuedPassDAO.
type MongoIssuedPassDAO struct {
	col *mongo.Collection
	now func() time.Time
}

func NewMongoIssuedPassDAO(db *mongo.Database) *MongoIssuedPassDAO {
	return &MongoIssuedPassDAO{
		col: db.Collection(issuedPassCollection),
		now: time.Now,
	}
}

// Migrate creates the serial unique index and the lookup indexes.
func (d *MongoIssuedPassDAO) Migrate(ctx context.Context) error {
	_, err := d.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "serial", Value: 1}}, Options: options.Index().SetUnique(true).SetName(serialConstraint)},
		{Keys: bson.D{{Key: "brand_id", Value: 1}, {Key: "template_id", Value: 1}, {Key: "diner_phone", Value: 1}}},
		{Keys: bson.D{{Key: "brand_id", Value: 1}, {Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("d.col.Indexes().CreateMany -> %w", err)
	}

	return nil
}

func (d *MongoIssuedPassDAO) Insert(ctx context.Context, pass IssuedPass) (IssuedPass, error) {
	now := d.now()
	if pass.CreatedAt.IsZero() {
		pass.CreatedAt = now
	}
	pass.UpdatedAt = now

	if _, err := d.col.InsertOne(ctx, toIssuedPassDocument(pass)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return IssuedPass{}, ErrDuplicate
		}

		return IssuedPass{}, err
	}

	return pass, nil
}

func (d *MongoIssuedPassDAO) FindBySerial(ctx context.Context, serial string) (IssuedPass, error) {
	return d.findOne(ctx, bson.M{"serial": serial}, nil)
}

func (d *MongoIssuedPassDAO) FindByBrand(ctx context.Context, brandID uint, filter PassFilter) ([]IssuedPass, error) {
	q := bson.M{"brand_id": int64(brandID)}
	if filter.Status != "" {
		q["status"] = filter.Status
	}
	if filter.ActiveOnly {
		q["is_active"] = true
	}
	if filter.DinerPhone != "" {
		q["diner_phone"] = filter.DinerPhone
	}

	cur, err := d.col.Find(ctx, q, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}

	var docs []issuedPassDocument
	if err = cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	passes := make([]IssuedPass, len(docs))
	for i := range docs {
		passes[i] = fromIssuedPassDocument(docs[i])
	}

	return passes, nil
}

func (d *MongoIssuedPassDAO) FindActiveForDiner(ctx context.Context, brandID uint, templateID *uint, phone string, now time.Time) (IssuedPass, error) {
	q := bson.M{
		"brand_id":    int64(brandID),
		"template_id": optionalID(templateID),
		"diner_phone": phone,
		"status":      "active",
		"is_active":   true,
		"expires_at":  bson.M{"$gt": now},
	}

	return d.findOne(ctx, q, bson.D{{Key: "created_at", Value: -1}})
}

func (d *MongoIssuedPassDAO) SetStatus(ctx context.Context, serial, status string, active bool) (IssuedPass, error) {
	return d.findOneAndUpdate(ctx, bson.M{"serial": serial}, bson.M{
		"$set": bson.M{"status": status, "is_active": active, "updated_at": d.now()},
	})
}

func (d *MongoIssuedPassDAO) Commit(ctx context.Context, serial, artifactURL string) (IssuedPass, error) {
	return d.findOneAndUpdate(ctx, bson.M{"serial": serial}, bson.M{
		"$set": bson.M{"status": "active", "is_active": true, "artifact_url": artifactURL, "updated_at": d.now()},
	})
}

func (d *MongoIssuedPassDAO) UpdateCounters(ctx context.Context, serial string, u CounterUpdate) (IssuedPass, error) {
	set := bson.D{}
	if expr, ok := mongoCounterExpr("points", u.Points, u.PointsDelta); ok {
		set = append(set, bson.E{Key: "points", Value: expr})
	}
	if expr, ok := mongoCounterExpr("visits", u.Visits, u.VisitsDelta); ok {
		set = append(set, bson.E{Key: "visits", Value: expr})
	}
	if len(set) == 0 {
		return d.FindBySerial(ctx, serial)
	}
	set = append(set, bson.E{Key: "updated_at", Value: d.now()})

	return d.findOneAndUpdate(ctx, bson.M{"serial": serial}, mongo.Pipeline{{{Key: "$set", Value: set}}})
}

func mongoCounterExpr(field string, absolute *int, delta int) (interface{}, bool) {
	switch {
	case absolute != nil:
		return max(*absolute+delta, 0), true
	case delta != 0:
		return bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$add", Value: bson.A{"$" + field, delta}}}}}}, true
	default:
		return nil, false
	}
}

func (d *MongoIssuedPassDAO) RecordVisit(ctx context.Context, serial string, brandID uint, now time.Time) (IssuedPass, error) {
	q := bson.M{
		"serial":     serial,
		"brand_id":   int64(brandID),
		"is_active":  true,
		"status":     "active",
		"expires_at": bson.M{"$gt": now},
	}

	return d.findOneAndUpdate(ctx, q, bson.M{
		"$inc": bson.M{"visits": 1},
		"$set": bson.M{"last_used_at": now, "updated_at": now},
	})
}

func (d *MongoIssuedPassDAO) ExpireDue(ctx context.Context, brandID uint, now time.Time) (int64, error) {
	res, err := d.col.UpdateMany(ctx, bson.M{
		"brand_id":   int64(brandID),
		"status":     "active",
		"expires_at": bson.M{"$lte": now},
	}, bson.M{
		"$set": bson.M{"status": "expired", "is_active": false, "updated_at": now},
	})
	if err != nil {
		return 0, err
	}

	return res.ModifiedCount, nil
}

func (d *MongoIssuedPassDAO) findOne(ctx context.Context, q bson.M, sort bson.D) (IssuedPass, error) {
	opts := options.FindOne()
	if sort != nil {
		opts.SetSort(sort)
	}

	var doc issuedPassDocument
	if err := d.col.FindOne(ctx, q, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return IssuedPass{}, ErrIssuedPassNotFound
		}

		return IssuedPass{}, err
	}

	return fromIssuedPassDocument(doc), nil
}

func (d *MongoIssuedPassDAO) findOneAndUpdate(ctx context.Context, q bson.M, update interface{}) (IssuedPass, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc issuedPassDocument
	if err := d.col.FindOneAndUpdate(ctx, q, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return IssuedPass{}, ErrIssuedPassNotFound
		}

		return IssuedPass{}, err
	}

	return fromIssuedPassDocument(doc), nil
}

func optionalID(id *uint) *int64 {
	if id == nil {
		return nil
	}
	v := int64(*id)

	return &v
}

func toIssuedPassDocument(p IssuedPass) issuedPassDocument {
	return issuedPassDocument{
		Serial:      p.Serial,
		DinerID:     int64(p.DinerID),
		DinerName:   p.DinerName,
		DinerPhone:  p.DinerPhone,
		BrandID:     int64(p.BrandID),
		TemplateID:  optionalID(p.TemplateID),
		Points:      p.Points,
		Visits:      p.Visits,
		Status:      p.Status,
		IsActive:    p.IsActive,
		ArtifactURL: p.ArtifactURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		LastUsedAt:  p.LastUsedAt,
		ExpiresAt:   p.ExpiresAt,
	}
}

func fromIssuedPassDocument(doc issuedPassDocument) IssuedPass {
	var templateID *uint
	if doc.TemplateID != nil {
		v := uint(*doc.TemplateID)
		templateID = &v
	}

	return IssuedPass{
		Serial:      doc.Serial,
		DinerID:     uint(doc.DinerID),
		DinerName:   doc.DinerName,
		DinerPhone:  doc.DinerPhone,
		BrandID:     uint(doc.BrandID),
		TemplateID:  templateID,
		Points:      doc.Points,
		Visits:      doc.Visits,
		Status:      doc.Status,
		IsActive:    doc.IsActive,
		ArtifactURL: doc.ArtifactURL,
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
		LastUsedAt:  doc.LastUsedAt,
		ExpiresAt:   doc.ExpiresAt,
	}
}
