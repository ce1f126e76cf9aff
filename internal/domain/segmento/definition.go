// Package segmento implements the ten clinical segments of a prenatal
// history. Every segment is described by a Definition; one generic service,
// repository and handler serve all of them.
package segmento

import (
	"unicode"
	"unicode/utf8"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

// Messages are the user facing texts of one segment.
type Messages struct {
	NotFound    string
	ByHistorial string
	ByPaciente  string
	Updated     string
	Deleted     string
}

// Definition describes one clinical segment.
type Definition struct {
	Name       string
	Collection string
	Label      string
	Schema     *schema.Schema
	// Derive returns fields computed from the merged document. A nil value
	// clears the field.
	Derive func(doc bson.M) bson.M
	// Check validates cross-field rules on the merged document.
	Check func(doc bson.M) error
	// RequireUser rejects creation without an authenticated usuario.
	RequireUser bool
	Messages    Messages
}

// RefField is the historial field that points at this segment.
func (d *Definition) RefField() string {
	return d.Name + "_id"
}

// Registry is the ordered set of segment definitions.
type Registry struct {
	defs   []*Definition
	byName map[string]*Definition
}

func NewRegistry(defs ...*Definition) *Registry {
	r := &Registry{byName: make(map[string]*Definition, len(defs))}
	for _, d := range defs {
		r.defs = append(r.defs, d)
		r.byName[d.Name] = d
	}
	return r
}

// DefaultRegistry returns the segments in the order a complete history is
// assembled.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Identificacion(),
		Antecedentes(),
		GestacionActual(),
		PartoAborto(),
		Patologias(),
		RecienNacido(),
		Puerperio(),
		EgresoNeonatal(),
		EgresoMaterno(),
		Anticoncepcion(),
	)
}

func (r *Registry) All() []*Definition {
	return r.defs
}

func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// RefFields lists the historial reference fields in registry order.
func (r *Registry) RefFields() []string {
	out := make([]string, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.RefField()
	}
	return out
}

// ByRefField finds the segment referenced by a historial field.
func (r *Registry) ByRefField(field string) (*Definition, bool) {
	for _, d := range r.defs {
		if d.RefField() == field {
			return d, true
		}
	}
	return nil, false
}

// messagesFor builds the default texts. suffix is the grammatical ending
// of the participle: "o", "a", "os" or "as".
func messagesFor(label, suffix string) Messages {
	noun := lowerFirst(label)
	return Messages{
		NotFound:    "No se encontraron datos",
		ByHistorial: "No se encontró " + noun + " para este historial",
		ByPaciente:  "No se encontró " + noun + " para este paciente",
		Updated:     label + " actualizad" + suffix,
		Deleted:     label + " eliminad" + suffix,
	}
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToLower(r)) + s[size:]
}
