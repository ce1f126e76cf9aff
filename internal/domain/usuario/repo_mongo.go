package usuario

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
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uq_usuarios_username"),
		},
	}}
}

func (r *mongoRepo) Insert(ctx context.Context, u *Usuario) (primitive.ObjectID, error) {
	res, err := r.coll.InsertOne(ctx, u)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("insert usuario: %w", db.Duplicate(err))
	}
	id, _ := res.InsertedID.(primitive.ObjectID)
	return id, nil
}

func (r *mongoRepo) findOne(ctx context.Context, filter bson.M) (*Usuario, error) {
	var u Usuario
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, db.NotFound(err)
	}
	return &u, nil
}

func (r *mongoRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*Usuario, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *mongoRepo) FindByUsername(ctx context.Context, username string) (*Usuario, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *mongoRepo) List(ctx context.Context, p pagination.Params) ([]*Usuario, int64, error) {
	total, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count usuarios: %w", err)
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "username", Value: 1}}).
		SetSkip(p.Skip()).
		SetLimit(p.Limit()).
		SetProjection(bson.M{"password": 0})
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list usuarios: %w", err)
	}
	var items []*Usuario
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode usuarios: %w", err)
	}
	return items, total, nil
}

func (r *mongoRepo) Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("update usuario: %w", db.Duplicate(err))
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete usuario: %w", err)
	}
	return res.DeletedCount > 0, nil
}
