package cita

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sigepren/sigepren/internal/platform/db"
)

type mongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(database *mongo.Database) Repository {
	return &mongoRepo{coll: database.Collection(Collection)}
}

// Indexes backs the listings and keeps one scheduled cita per provider and
// start time.
func Indexes() []db.IndexSpec {
	single := func(key, name string) db.IndexSpec {
		return db.IndexSpec{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: key, Value: 1}},
				Options: options.Index().SetName(name),
			},
		}
	}
	return []db.IndexSpec{
		single("start_at", "ix_citas_start_at"),
		single("paciente_id", "ix_citas_paciente"),
		single("status", "ix_citas_status"),
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys: bson.D{{Key: "provider", Value: 1}, {Key: "start_at", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{
						"status":   StatusScheduled,
						"provider": bson.M{"$type": "string"},
					}).
					SetName("uq_provider_start_scheduled"),
			},
		},
	}
}

func (r *mongoRepo) Insert(ctx context.Context, c *Cita) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, c)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert cita: %w", db.Duplicate(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	db.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return id, nil
}

func (r *mongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Cita, error) {
	var c Cita
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		return nil, db.NotFound(err)
	}
	return &c, nil
}

// updateFilter matches the cita only while updated_at still equals since.
// Stored stamps carry second precision.
func updateFilter(id primitive.ObjectID, since time.Time) bson.M {
	filter := bson.M{"_id": id}
	if !since.IsZero() {
		filter["updated_at"] = since.UTC().Truncate(time.Second)
	}
	return filter
}

func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string, unmodifiedSince time.Time) (bool, error) {
	if err := db.Snapshot(ctx, r.coll, id, db.UpdateKeys(set, unset)); err != nil {
		return false, err
	}
	filter := updateFilter(id, unmodifiedSince)
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		drop := bson.M{}
		for _, k := range unset {
			drop[k] = ""
		}
		update["$unset"] = drop
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("update cita: %w", db.Duplicate(err))
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete cita: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count citas: %w", err)
	}
	return n > 0, nil
}

func conflictFilter(provider string, start, end time.Time, except primitive.ObjectID) bson.M {
	filter := bson.M{
		"provider": provider,
		"status":   StatusScheduled,
		"start_at": bson.M{"$lt": end},
		"end_at":   bson.M{"$gt": start},
	}
	if !except.IsZero() {
		filter["_id"] = bson.M{"$ne": except}
	}
	return filter
}

func (r *mongoRepo) HasConflict(ctx context.Context, provider string, start, end time.Time, except primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, conflictFilter(provider, start, end, except), options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count citas: %w", err)
	}
	return n > 0, nil
}

func queryFilter(q Query) bson.M {
	filter := bson.M{}
	if !q.PacienteID.IsZero() {
		filter["paciente_id"] = q.PacienteID
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	start := bson.M{}
	if !q.StartFrom.IsZero() {
		start["$gte"] = q.StartFrom
	}
	if !q.StartTo.IsZero() {
		start["$lt"] = q.StartTo
	}
	if len(start) > 0 {
		filter["start_at"] = start
	}
	if !q.Past.IsZero() {
		filter["$or"] = bson.A{
			bson.M{"start_at": bson.M{"$lt": q.Past}},
			bson.M{"status": bson.M{"$ne": StatusScheduled}},
		}
	}
	return filter
}

func (r *mongoRepo) List(ctx context.Context, q Query) ([]*Cita, int64, error) {
	filter := queryFilter(q)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count citas: %w", err)
	}
	dir := 1
	if q.Newest {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_at", Value: dir}})
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list citas: %w", err)
	}
	items := []*Cita{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode citas: %w", err)
	}
	return items, total, nil
}
