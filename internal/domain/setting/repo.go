package setting

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query filters a listing. Empty fields are not filtered on; Prefix is
// matched literally at the start of the key.
type Query struct {
	Scope    string
	TenantID *primitive.ObjectID
	UserID   *primitive.ObjectID
	Prefix   string
	Limit    int64
}

type Repository interface {
	// Upsert applies set to the setting with this identity, creating it
	// when missing, and returns its id.
	Upsert(ctx context.Context, id Ident, set bson.M) (primitive.ObjectID, error)
	Find(ctx context.Context, id Ident) (*Setting, error)
	List(ctx context.Context, q Query) ([]*Setting, error)
	Delete(ctx context.Context, id Ident) (int64, error)
}
