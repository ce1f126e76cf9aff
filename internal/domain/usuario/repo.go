package usuario

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/pkg/pagination"
)

// Repository stores usuarios. Duplicate usernames are reported as
// db.ErrDuplicate and missing documents as db.ErrNotFound.
type Repository interface {
	Insert(ctx context.Context, u *Usuario) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Usuario, error)
	FindByUsername(ctx context.Context, username string) (*Usuario, error)
	List(ctx context.Context, p pagination.Params) ([]*Usuario, int64, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
}
