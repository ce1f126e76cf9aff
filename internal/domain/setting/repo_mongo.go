package setting

import (
	"context"
	"fmt"
	"regexp"

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

func Indexes() []db.IndexSpec {
	return []db.IndexSpec{{
		Collection: Collection,
		Model: mongo.IndexModel{
			Keys: bson.D{
				{Key: "key", Value: 1},
				{Key: "scope", Value: 1},
				{Key: "tenant_id", Value: 1},
				{Key: "user_id", Value: 1},
			},
			Options: options.Index().SetUnique(true).SetName("uq_setting_scope"),
		},
	}}
}

func (r *mongoRepo) Upsert(ctx context.Context, id Ident, set bson.M) (primitive.ObjectID, error) {
	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"created_at": set["updated_at"]},
	}
	res, err := r.coll.UpdateOne(ctx, id.Filter(), update, options.Update().SetUpsert(true))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("upsert setting: %w", err)
	}
	if oid, ok := res.UpsertedID.(primitive.ObjectID); ok {
		return oid, nil
	}
	var doc struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	err = r.coll.FindOne(ctx, id.Filter(), options.FindOne().SetProjection(bson.M{"_id": 1})).Decode(&doc)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("find setting: %w", err)
	}
	return doc.ID, nil
}

func (r *mongoRepo) Find(ctx context.Context, id Ident) (*Setting, error) {
	var s Setting
	if err := r.coll.FindOne(ctx, id.Filter()).Decode(&s); err != nil {
		return nil, db.NotFound(err)
	}
	return &s, nil
}

func listFilter(q Query) bson.M {
	filter := bson.M{}
	if q.Scope != "" {
		filter["scope"] = q.Scope
	}
	if q.TenantID != nil {
		filter["tenant_id"] = *q.TenantID
	}
	if q.UserID != nil {
		filter["user_id"] = *q.UserID
	}
	if q.Prefix != "" {
		filter["key"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Prefix)}
	}
	return filter
}

func (r *mongoRepo) List(ctx context.Context, q Query) ([]*Setting, error) {
	opts := options.Find().SetSort(bson.D{{Key: "key", Value: 1}}).SetLimit(q.Limit)
	cur, err := r.coll.Find(ctx, listFilter(q), opts)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	var items []*Setting
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return items, nil
}

func (r *mongoRepo) Delete(ctx context.Context, id Ident) (int64, error) {
	res, err := r.coll.DeleteOne(ctx, id.Filter())
	if err != nil {
		return 0, fmt.Errorf("delete setting: %w", err)
	}
	return res.DeletedCount, nil
}
