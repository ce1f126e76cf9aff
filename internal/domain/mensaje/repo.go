package mensaje

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/pkg/pagination"
)

// Repository persists mensajes. List skips soft-deleted ones and returns the
// newest first; a zero pacienteID lists every patient.
type Repository interface {
	Insert(ctx context.Context, m *Mensaje) (primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	List(ctx context.Context, pacienteID primitive.ObjectID, p pagination.Params) ([]*Mensaje, int64, error)
}
