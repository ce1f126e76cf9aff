package historial

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/pkg/pagination"
)

// Filter narrows a listing.
type Filter struct {
	PacienteID  primitive.ObjectID
	SoloActivos bool
}

// Repository persists historiales. Lookups return db.ErrNotFound and writes
// rejected by the (paciente_id, numero_gesta) index return db.ErrDuplicate.
type Repository interface {
	Insert(ctx context.Context, h *Historial) (primitive.ObjectID, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*Historial, error)
	FindLatestByPaciente(ctx context.Context, pacienteID primitive.ObjectID) (*Historial, error)
	FindByPacienteYGesta(ctx context.Context, pacienteID primitive.ObjectID, numeroGesta int64) (*Historial, error)
	MaxNumeroGesta(ctx context.Context, pacienteID primitive.ObjectID) (int64, error)
	GestaTaken(ctx context.Context, pacienteID primitive.ObjectID, numeroGesta int64, except primitive.ObjectID) (bool, error)
	Update(ctx context.Context, id primitive.ObjectID, set bson.M, unset []string) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) (bool, error)
	List(ctx context.Context, f Filter, p pagination.Params) ([]*Historial, int64, error)
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}
