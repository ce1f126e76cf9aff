package segmento

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sigepren/sigepren/internal/platform/db"
)

type mongoRepo struct {
	coll *mongo.Collection
}

// NewMongoRepo returns the repository of one segment collection.
func NewMongoRepo(database *mongo.Database, collection string) Repository {
	return &mongoRepo{coll: database.Collection(collection)}
}

var newestFirst = options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})

func (r *mongoRepo) Insert(ctx context.Context, doc bson.M) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert %s: %w", r.coll.Name(), err)
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	db.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return id, nil
}

func (r *mongoRepo) findOne(ctx context.Context, filter bson.M, opts ...*options.FindOneOptions) (bson.M, error) {
	var doc bson.M
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&doc); err != nil {
		return nil, db.NotFound(err)
	}
	return doc, nil
}

func (r *mongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepo) FindMostRecentByHistorialID(ctx context.Context, historialID primitive.ObjectID) (bson.M, error) {
	return r.findOne(ctx, bson.M{"historial_id": historialID}, newestFirst)
}

func (r *mongoRepo) FindMostRecentByPacienteID(ctx context.Context, pacienteID primitive.ObjectID) (bson.M, error) {
	return r.findOne(ctx, bson.M{"paciente_id": pacienteID}, newestFirst)
}

func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update %s: %w", r.coll.Name(), err)
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", r.coll.Name(), err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo) DeleteByHistorialID(ctx context.Context, historialID primitive.ObjectID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"historial_id": historialID})
	if err != nil {
		return 0, fmt.Errorf("delete %s by historial: %w", r.coll.Name(), err)
	}
	return res.DeletedCount, nil
}

// Indexes lists the lookup indexes of every segment collection.
func Indexes(reg *Registry) []db.IndexSpec {
	var specs []db.IndexSpec
	for _, d := range reg.All() {
		for _, key := range []string{"historial_id", "paciente_id"} {
			specs = append(specs, db.IndexSpec{
				Collection: d.Collection,
				Model: mongo.IndexModel{
					Keys:    bson.D{{Key: key, Value: 1}, {Key: "created_at", Value: -1}},
					Options: options.Index().SetName(fmt.Sprintf("ix_%s_%s", d.Name, key)),
				},
			})
		}
	}
	return specs
}
