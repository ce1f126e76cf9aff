package paciente

import (
	"context"
	"fmt"
	"regexp"
	"time"

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

// Indexes keeps identity and expediente code unique among live patients.
// Partial indexes cannot test for a missing field, so live patients store
// deleted_at as an explicit null.
func Indexes() []db.IndexSpec {
	partial := bson.M{"deleted_at": bson.M{"$type": "null"}}
	return []db.IndexSpec{
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys: bson.D{{Key: "tipo_identificacion", Value: 1}, {Key: "numero_identificacion", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(partial).
					SetName("uq_identidad_activa"),
			},
		},
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys: bson.D{{Key: "codigo_expediente", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(partial).
					SetName("uq_codigo_expediente_activo"),
			},
		},
		{
			Collection: Collection,
			Model: mongo.IndexModel{
				Keys:    bson.D{{Key: "apellidos", Value: 1}, {Key: "nombres", Value: 1}},
				Options: options.Index().SetName("ix_nombre"),
			},
		},
	}
}

func (r *mongoRepo) Insert(ctx context.Context, p *Paciente) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert paciente: %w", db.Duplicate(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	db.OnRollback(ctx, func(ctx context.Context) error {
		_, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
		return err
	})
	return id, nil
}

func (r *mongoRepo) findOne(ctx context.Context, filter bson.M) (*Paciente, error) {
	var p Paciente
	if err := r.coll.FindOne(ctx, filter).Decode(&p); err != nil {
		return nil, db.NotFound(err)
	}
	return &p, nil
}

func (r *mongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Paciente, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepo) FindByIdentidad(ctx context.Context, tipo, numero string) (*Paciente, error) {
	return r.findOne(ctx, bson.M{
		"tipo_identificacion":   tipo,
		"numero_identificacion": numero,
		"deleted_at":            nil,
	})
}

func (r *mongoRepo) FindByNumeroIdentificacion(ctx context.Context, numero string) (*Paciente, error) {
	return r.findOne(ctx, bson.M{"numero_identificacion": numero, "deleted_at": nil})
}

func (r *mongoRepo) FindByCodigo(ctx context.Context, codigo string) (*Paciente, error) {
	return r.findOne(ctx, bson.M{"codigo_expediente": codigo, "deleted_at": nil})
}

func (r *mongoRepo) CodigoTaken(ctx context.Context, codigo string, except primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"codigo_expediente": codigo,
		"deleted_at":        nil,
		"_id":               bson.M{"$ne": except},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count pacientes: %w", err)
	}
	return n > 0, nil
}

func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	if err := db.Snapshot(ctx, r.coll, id, db.UpdateKeys(set, nil)); err != nil {
		return false, err
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update paciente: %w", db.Duplicate(err))
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) LinkHistorial(ctx context.Context, pacienteID, historialID primitive.ObjectID) error {
	matched, err := r.Update(ctx, pacienteID, bson.M{"historial_id": historialID, "updated_at": time.Now().UTC()})
	if err != nil {
		return err
	}
	if !matched {
		return db.ErrNotFound
	}
	return nil
}

func (r *mongoRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete paciente: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func contains(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func listFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.SoloActivos {
		filter["deleted_at"] = nil
		filter["activo"] = bson.M{"$ne": false}
	}
	if f.Q != "" {
		rx := contains(f.Q)
		filter["$or"] = bson.A{
			bson.M{"nombres": rx},
			bson.M{"apellidos": rx},
			bson.M{"numero_identificacion": rx},
			bson.M{"codigo_expediente": rx},
		}
	}
	if f.Nombre != "" {
		filter["nombres"] = contains(f.Nombre)
	}
	if f.Apellido != "" {
		filter["apellidos"] = contains(f.Apellido)
	}
	return filter
}

func (r *mongoRepo) List(ctx context.Context, f Filter, p pagination.Params) ([]*Paciente, int64, error) {
	filter := listFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count pacientes: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "apellidos", Value: 1}, {Key: "nombres", Value: 1}}).
		SetSkip(p.Skip()).
		SetLimit(p.Limit())
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list pacientes: %w", err)
	}
	var items []*Paciente
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode pacientes: %w", err)
	}
	return items, total, nil
}

func (r *mongoRepo) Exists(ctx context.Context, id primitive.ObjectID) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count pacientes: %w", err)
	}
	return n > 0, nil
}
