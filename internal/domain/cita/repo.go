package cita

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Query selects citas for a listing. Zero values leave a criterion out.
type Query struct {
	PacienteID primitive.ObjectID
	// StartFrom and StartTo bound start_at as [StartFrom, StartTo).
	StartFrom time.Time
	StartTo   time.Time
	Status    string
	// Past selects citas that started before Past or are no longer
	// scheduled.
	Past time.Time
	// Newest sorts by start_at descending.
	Newest bool
	Limit  int64
}

type Repository interface {
	Insert(ctx context.Context, c *Cita) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Cita, error)
	// Update applies set and unset. A non-zero unmodifiedSince only matches
	// a cita whose updated_at equals it.
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string, unmodifiedSince time.Time) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	// HasConflict reports another scheduled cita of the provider overlapping
	// [start, end).
	HasConflict(ctx context.Context, provider string, start, end time.Time, except primitive.ObjectID) (bool, error)
	List(ctx context.Context, q Query) ([]*Cita, int64, error)
}
