package medico

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

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

var uniqueFields = []string{"folio", "cedula", "correo"}

func Indexes() []db.IndexSpec {
	specs := make([]db.IndexSpec, 0, len(uniqueFields))
	for _, f := range uniqueFields {
		opts := options.Index().SetUnique(true).SetName("uq_medicos_" + f)
		if f == "correo" {
			opts.SetSparse(true)
		}
		specs = append(specs, db.IndexSpec{
			Collection: Collection,
			Model:      mongo.IndexModel{Keys: bson.D{{Key: f, Value: 1}}, Options: opts},
		})
	}
	return specs
}

// duplicate names the unique index a duplicate-key error came from.
func duplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	for _, f := range uniqueFields {
		if strings.Contains(err.Error(), "uq_medicos_"+f) {
			return &DuplicateError{Field: f}
		}
	}
	return db.Duplicate(err)
}

func (r *mongoRepo) Insert(ctx context.Context, m *Medico) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, m)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert medico: %w", duplicate(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

func (r *mongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Medico, error) {
	var m Medico
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, db.NotFound(err)
	}
	return &m, nil
}

func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string) (*Medico, error) {
	update := bson.M{"$set": set}
	if len(unset) > 0 {
		drop := bson.M{}
		for _, k := range unset {
			drop[k] = ""
		}
		update["$unset"] = drop
	}
	var m Medico
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&m)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update medico: %w", duplicate(err))
	}
	return &m, nil
}

func listFilter(f Filter) bson.M {
	filter := bson.M{}
	if f.Estado != "" {
		filter["estado"] = f.Estado
	}
	if f.Especialidad != "" {
		filter["especialidad"] = f.Especialidad
	}
	if f.Sexo != "" {
		filter["sexo"] = f.Sexo
	}
	if f.Q != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(f.Q), Options: "i"}
		or := bson.A{}
		for _, field := range []string{"folio", "nombre_completo", "cedula", "especialidad", "subespecialidad", "correo", "telefono"} {
			or = append(or, bson.M{field: rx})
		}
		filter["$or"] = or
	}
	return filter
}

func (r *mongoRepo) List(ctx context.Context, f Filter, s Sort, skip, limit int64) ([]*Medico, int64, error) {
	filter := listFilter(f)
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count medicos: %w", err)
	}
	dir := 1
	if s.Desc {
		dir = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: s.Field, Value: dir}}).
		SetSkip(skip).
		SetLimit(limit)
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list medicos: %w", err)
	}
	var items []*Medico
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode medicos: %w", err)
	}
	return items, total, nil
}

// lastFolioPipeline extracts the numeric part of every MED-nnnn folio and
// keeps the highest.
var lastFolioPipeline = mongo.Pipeline{
	{{Key: "$match", Value: bson.M{"folio": bson.M{"$regex": `^MED-\d{4,}$`}}}},
	{{Key: "$project", Value: bson.M{
		"n": bson.M{"$toInt": bson.M{"$substrCP": bson.A{"$folio", 4, bson.M{"$strLenCP": "$folio"}}}},
	}}},
	{{Key: "$sort", Value: bson.M{"n": -1}}},
	{{Key: "$limit", Value: 1}},
}

func (r *mongoRepo) LastFolio(ctx context.Context) (int, error) {
	cur, err := r.coll.Aggregate(ctx, lastFolioPipeline)
	if err != nil {
		return 0, fmt.Errorf("last folio: %w", err)
	}
	var rows []struct {
		N int `bson:"n"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode folio: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].N, nil
}
