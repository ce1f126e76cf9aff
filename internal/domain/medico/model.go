// Package medico keeps the directory of physicians attending the program.
package medico

import (
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "medicos"

const (
	EstadoActivo   = "activo"
	EstadoInactivo = "inactivo"
)

var Especialidades = []string{
	"Ginecología y Obstetricia",
	"Medicina Materno-Fetal",
	"Medicina Interna",
	"Endocrinología",
	"Cardiología",
	"Hematología",
	"Neonatología",
	"Anestesiología y Reanimación",
	"Psicología Perinatal",
	"Nutrición Materna y Perinatal",
}

var Sexos = []string{"femenino", "masculino", "otro", "no_especificado"}

var (
	folioRe    = regexp.MustCompile(`^MED-\d{4,}$`)
	emailRe    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	telefonoRe = regexp.MustCompile(`^[0-9()+\-\s]{7,20}$`)
)

// Folio formats the n-th folio, zero padded to four digits.
func Folio(n int) string {
	return fmt.Sprintf("MED-%04d", n)
}

// Optional fields stay out of the document when empty; correo is covered by
// a sparse unique index.
type Medico struct {
	ID              primitive.ObjectID  `bson:"_id,omitempty"`
	Folio           string              `bson:"folio"`
	NombreCompleto  string              `bson:"nombre_completo"`
	Cedula          string              `bson:"cedula"`
	Especialidad    string              `bson:"especialidad"`
	Subespecialidad string              `bson:"subespecialidad,omitempty"`
	Sexo            string              `bson:"sexo"`
	FechaNacimiento *time.Time          `bson:"fecha_nacimiento,omitempty"`
	Correo          string              `bson:"correo,omitempty"`
	Telefono        string              `bson:"telefono,omitempty"`
	UsuarioID       *primitive.ObjectID `bson:"usuario_id,omitempty"`
	Estado          string              `bson:"estado"`
	Observaciones   string              `bson:"observaciones,omitempty"`
	CreatedAt       time.Time           `bson:"created_at"`
	UpdatedAt       time.Time           `bson:"updated_at"`
	CreatedBy       *primitive.ObjectID `bson:"created_by,omitempty"`
	UpdatedBy       *primitive.ObjectID `bson:"updated_by,omitempty"`
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func hexOrNil(id *primitive.ObjectID) any {
	if id == nil {
		return nil
	}
	return id.Hex()
}

func (m *Medico) Render() map[string]any {
	out := map[string]any{
		"id":               m.ID.Hex(),
		"folio":            m.Folio,
		"nombre_completo":  m.NombreCompleto,
		"cedula":           m.Cedula,
		"especialidad":     m.Especialidad,
		"subespecialidad":  orNil(m.Subespecialidad),
		"sexo":             m.Sexo,
		"fecha_nacimiento": nil,
		"correo":           orNil(m.Correo),
		"telefono":         orNil(m.Telefono),
		"usuario_id":       hexOrNil(m.UsuarioID),
		"estado":           m.Estado,
		"observaciones":    orNil(m.Observaciones),
		"created_at":       schema.Render(m.CreatedAt),
		"updated_at":       schema.Render(m.UpdatedAt),
		"created_by":       hexOrNil(m.CreatedBy),
		"updated_by":       hexOrNil(m.UpdatedBy),
	}
	if m.FechaNacimiento != nil {
		out["fecha_nacimiento"] = m.FechaNacimiento.UTC().Format("2006-01-02")
	}
	return out
}

// apply copies validated changes onto m.
func (m *Medico) apply(c changes) {
	for k, v := range c.set {
		switch k {
		case "folio":
			m.Folio = v.(string)
		case "nombre_completo":
			m.NombreCompleto = v.(string)
		case "cedula":
			m.Cedula = v.(string)
		case "especialidad":
			m.Especialidad = v.(string)
		case "subespecialidad":
			m.Subespecialidad = v.(string)
		case "sexo":
			m.Sexo = v.(string)
		case "fecha_nacimiento":
			t := v.(time.Time)
			m.FechaNacimiento = &t
		case "correo":
			m.Correo = v.(string)
		case "telefono":
			m.Telefono = v.(string)
		case "usuario_id":
			oid := v.(primitive.ObjectID)
			m.UsuarioID = &oid
		case "estado":
			m.Estado = v.(string)
		case "observaciones":
			m.Observaciones = v.(string)
		}
	}
	for _, k := range c.unset {
		switch k {
		case "subespecialidad":
			m.Subespecialidad = ""
		case "fecha_nacimiento":
			m.FechaNacimiento = nil
		case "correo":
			m.Correo = ""
		case "telefono":
			m.Telefono = ""
		case "usuario_id":
			m.UsuarioID = nil
		case "observaciones":
			m.Observaciones = ""
		}
	}
}
