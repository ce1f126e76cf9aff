// Package historial manages the prenatal history of one pregnancy and
// assembles it with its clinical segments.
package historial

import (
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "historiales"

// Historial is one pregnancy (gesta) of a patient.
type Historial struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	PacienteID  primitive.ObjectID `bson:"paciente_id"`
	NumeroGesta int64              `bson:"numero_gesta"`
	Activo      *bool              `bson:"activo,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
	// Refs holds the <segment>_id references.
	Refs bson.M `bson:",inline"`
}

// IsActivo treats records stored without the flag as active.
func (h *Historial) IsActivo() bool {
	return h.Activo == nil || *h.Activo
}

// Ref returns the stored reference for a segment field, or the nil id.
func (h *Historial) Ref(field string) primitive.ObjectID {
	oid, _ := schema.ToObjectID(h.Refs[field])
	return oid
}

// Render returns the JSON form, listing every reference field.
func (h *Historial) Render(refFields []string) map[string]any {
	out := map[string]any{
		"id":           h.ID.Hex(),
		"paciente_id":  h.PacienteID.Hex(),
		"numero_gesta": h.NumeroGesta,
		"activo":       h.IsActivo(),
		"created_at":   schema.Render(h.CreatedAt),
		"updated_at":   schema.Render(h.UpdatedAt),
	}
	for _, f := range refFields {
		if ref := h.Ref(f); !ref.IsZero() {
			out[f] = ref.Hex()
		} else {
			out[f] = nil
		}
	}
	return out
}
