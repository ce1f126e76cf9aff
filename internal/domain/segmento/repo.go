package segmento

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resolver locates a segment document for an aggregated history. Every
// lookup returns db.ErrNotFound when nothing matches.
type Resolver interface {
	FindByID(ctx context.Context, id primitive.ObjectID) (bson.M, error)
	FindMostRecentByHistorialID(ctx context.Context, historialID primitive.ObjectID) (bson.M, error)
	FindMostRecentByPacienteID(ctx context.Context, pacienteID primitive.ObjectID) (bson.M, error)
}

type Repository interface {
	Resolver
	Insert(ctx context.Context, doc bson.M) (primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	DeleteByHistorialID(ctx context.Context, historialID primitive.ObjectID) (int64, error)
}
