package mensaje

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

type mongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(database *mongo.Database) Repository {
	return &mongoRepo{coll: database.Collection(Collection)}
}

func Indexes() []db.IndexSpec {
	return []db.IndexSpec{{
		Collection: Collection,
		Model: mongo.IndexModel{
			Keys:    bson.D{{Key: "paciente_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("ix_mensajes_paciente_created"),
		},
	}}
}

func (r *mongoRepo) Insert(ctx context.Context, m *Mensaje) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert mensaje: %w", err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	db.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return id, nil
}

func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	if err := db.Snapshot(ctx, r.coll, id, db.UpdateKeys(set, nil)); err != nil {
		return false, err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update mensaje: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete mensaje: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func listFilter(pacienteID primitive.ObjectID) bson.M {
	filter := bson.M{"deleted": bson.M{"$ne": true}}
	if !pacienteID.IsZero() {
		filter["paciente_id"] = pacienteID
	}
	return filter
}

func (r *mongoRepo) List(ctx context.Context, pacienteID primitive.ObjectID, p pagination.Params) ([]*Mensaje, int64, error) {
	filter := listFilter(pacienteID)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count mensajes: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(p.Limit())
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list mensajes: %w", err)
	}
	var items []*Mensaje
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode mensajes: %w", err)
	}
	return items, total, nil
}
