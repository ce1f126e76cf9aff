package historial

import (
	"context"
	"errors"
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

// Indexes enforces one historial per (paciente_id, numero_gesta).
func Indexes(refFields []string) []db.IndexSpec {
	specs := []db.IndexSpec{
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "paciente_id", Value: 1}, {Key: "numero_gesta", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("uq_paciente_gesta"),
			},
		},
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "paciente_id", Value: 1}, {Key: "created_at", Value: -1}},
				Options: options.Index().SetName("ix_paciente"),
			},
		},
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "created_at", Value: -1}, {Key: "numero_gesta", Value: -1}},
				Options: options.Index().SetName("ix_created_gesta"),
			},
		},
	}
	for _, f := range refFields {
		specs = append(specs, db.IndexSpec{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: f, Value: 1}},
				Options: options.Index().SetName("ix_" + f),
			},
		})
	}
	return specs
}

func (r *mongoRepo) Insert(ctx context.Context, h *Historial) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, h)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert historial: %w", db.Duplicate(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	db.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return id, nil
}

func (r *mongoRepo) findOne(ctx context.Context, filter any, opts ...*options.FindOneOptions) (*Historial, error) {
	var h Historial
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&h); err != nil {
		return nil, db.NotFound(err)
	}
	return &h, nil
}

func (r *mongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Historial, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepo) FindLatestByPaciente(ctx context.Context, pacienteID primitive.ObjectID) (*Historial, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "numero_gesta", Value: -1}})
	return r.findOne(ctx, bson.M{"paciente_id": pacienteID}, opts)
}

func (r *mongoRepo) FindByPacienteYGesta(ctx context.Context, pacienteID primitive.ObjectID, numeroGesta int64) (*Historial, error) {
	return r.findOne(ctx, bson.M{"paciente_id": pacienteID, "numero_gesta": numeroGesta})
}

func (r *mongoRepo) MaxNumeroGesta(ctx context.Context, pacienteID primitive.ObjectID) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "numero_gesta", Value: -1}})
	h, err := r.findOne(ctx, bson.M{"paciente_id": pacienteID}, opts)
	if errors.Is(err, db.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return h.NumeroGesta, nil
}

func (r *mongoRepo) GestaTaken(ctx context.Context, pacienteID primitive.ObjectID, numeroGesta int64, except primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"paciente_id":  pacienteID,
		"numero_gesta": numeroGesta,
		"_id":          bson.M{"$ne": except},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count historiales: %w", err)
	}
	return n > 0, nil
}

// Update applies $set and $unset. Inside a compensating unit of work the
// previous values are restored on rollback.
func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string) (bool, error) {
	update := bson.M{}
	if len(set) > 0 {
		update["$set"] = set
	}
	if len(unset) > 0 {
		fields := bson.M{}
		for _, f := range unset {
			fields[f] = ""
		}
		update["$unset"] = fields
	}

	if err := db.Snapshot(ctx, r.coll, id, db.UpdateKeys(set, unset)); err != nil {
		return false, err
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return false, fmt.Errorf("update historial: %w", db.Duplicate(err))
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete historial: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *mongoRepo) List(ctx context.Context, f Filter, p pagination.Params) ([]*Historial, int64, error) {
	filter := bson.M{}
	if !f.PacienteID.IsZero() {
		filter["paciente_id"] = f.PacienteID
	}
	if f.SoloActivos {
		filter["activo"] = bson.M{"$ne": false}
	}

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count historiales: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "numero_gesta", Value: -1}}).
		SetSkip(p.Skip()).
		SetLimit(p.Limit())
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list historiales: %w", err)
	}
	var items []*Historial
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode historiales: %w", err)
	}
	return items, total, nil
}

func (r *mongoRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count historiales: %w", err)
	}
	return n > 0, nil
}
