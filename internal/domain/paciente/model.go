// Package paciente manages patient identity and demographics, the
// expediente code and the orchestrated patient intake.
package paciente

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "paciente"

const fechaNacLayout = "2006-01-02"

type Paciente struct {
	ID                   primitive.ObjectID  `bson:"_id,omitempty"`
	TipoIdentificacion   string              `bson:"tipo_identificacion"`
	NumeroIdentificacion string              `bson:"numero_identificacion"`
	CodigoExpediente     string              `bson:"codigo_expediente"`
	Nombres              string              `bson:"nombres"`
	Apellidos            string              `bson:"apellidos"`
	FechaNac             time.Time           `bson:"fecha_nac"`
	Sexo                 string              `bson:"sexo"`
	Telefono             string              `bson:"telefono,omitempty"`
	Direccion            string              `bson:"direccion,omitempty"`
	Barrio               string              `bson:"barrio,omitempty"`
	MunicipioCodigo      string              `bson:"municipio_codigo"`
	GestaActual          *int64              `bson:"gesta_actual,omitempty"`
	HistorialID          *primitive.ObjectID `bson:"historial_id,omitempty"`
	Activo               bool                `bson:"activo"`
	CreatedAt            time.Time           `bson:"created_at"`
	UpdatedAt            time.Time           `bson:"updated_at"`
	// DeletedAt is stored as an explicit null while the patient is live;
	// the partial unique indexes match on it.
	DeletedAt *time.Time `bson:"deleted_at"`
}

func (p *Paciente) Deleted() bool {
	return p.DeletedAt != nil
}

func (p *Paciente) Render() map[string]any {
	out := map[string]any{
		"id":                    p.ID.Hex(),
		"tipo_identificacion":   p.TipoIdentificacion,
		"numero_identificacion": p.NumeroIdentificacion,
		"codigo_expediente":     p.CodigoExpediente,
		"nombres":               p.Nombres,
		"apellidos":             p.Apellidos,
		"fecha_nac":             p.FechaNac.Format(fechaNacLayout),
		"sexo":                  p.Sexo,
		"telefono":              p.Telefono,
		"direccion":             p.Direccion,
		"barrio":                p.Barrio,
		"municipio_codigo":      p.MunicipioCodigo,
		"gesta_actual":          nil,
		"historial_id":          nil,
		"activo":                p.Activo,
		"created_at":            schema.Render(p.CreatedAt),
		"updated_at":            schema.Render(p.UpdatedAt),
		"deleted_at":            nil,
	}
	if p.GestaActual != nil {
		out["gesta_actual"] = *p.GestaActual
	}
	if p.HistorialID != nil {
		out["historial_id"] = p.HistorialID.Hex()
	}
	if p.DeletedAt != nil {
		out["deleted_at"] = schema.Render(*p.DeletedAt)
	}
	return out
}
