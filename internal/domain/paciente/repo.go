package paciente

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/pkg/pagination"
)

// Filter narrows a listing. Q is matched case-insensitively against names,
// identification number and expediente code. Nombre and Apellido match
// their own fields only.
type Filter struct {
	Q           string
	Nombre      string
	Apellido    string
	SoloActivos bool
}

// Repository persists patients. Lookups other than FindByID and Exists skip
// soft-deleted patients. Lookups return db.ErrNotFound and writes rejected by
// a unique index return db.ErrDuplicate.
type Repository interface {
	Insert(ctx context.Context, p *Paciente) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Paciente, error)
	FindByIdentidad(ctx context.Context, tipo, numero string) (*Paciente, error)
	FindByNumeroIdentificacion(ctx context.Context, numero string) (*Paciente, error)
	FindByCodigo(ctx context.Context, codigo string) (*Paciente, error)
	CodigoTaken(ctx context.Context, codigo string, except primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	List(ctx context.Context, f Filter, p pagination.Params) ([]*Paciente, int64, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	LinkHistorial(ctx context.Context, pacienteID, historialID primitive.ObjectID) error
}
