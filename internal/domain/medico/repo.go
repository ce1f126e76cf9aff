package medico

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/db"
)

// DuplicateError names the unique field a write collided on.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string { return "duplicate " + e.Field }

func (e *DuplicateError) Unwrap() error { return db.ErrDuplicate }

// Filter narrows a listing. Q matches folio, name, cedula, specialities,
// correo and telefono case-insensitively.
type Filter struct {
	Q            string
	Estado       string
	Especialidad string
	Sexo         string
}

type Sort struct {
	Field string
	Desc  bool
}

type Repository interface {
	Insert(ctx context.Context, m *Medico) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Medico, error)
	// Update returns the medico after the change, or db.ErrNotFound.
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string) (*Medico, error)
	List(ctx context.Context, f Filter, s Sort, skip, limit int64) ([]*Medico, int64, error)
	// LastFolio returns the highest folio number in use, 0 when none.
	LastFolio(ctx context.Context) (int, error)
}
