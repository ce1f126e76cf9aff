package segmento

import (
	"github.com/sigepren/sigepren/internal/platform/schema"
)

func Identificacion() *Definition {
	msgs := messagesFor("Identificación", "a")
	msgs.NotFound = "No se encontró la identificación"

	return &Definition{
		Name:        "identificacion",
		Collection:  "identificacion",
		Label:       "Identificación",
		RequireUser: true,
		Messages:    msgs,
		Schema: schema.New(
			schema.Str("nombres").Req(),
			schema.Str("apellidos").Req(),
			schema.Str("cedula").Req(),
			ymd("fecha_nacimiento").Req(),
			nonneg("edad").Req(),
			schema.OneOf("etnia", "blanca", "indigena", "mestiza", "negra", "otros").Req(),
			schema.Boolean("alfabeta").Req(),
			schema.OneOf("nivel_estudios", "ninguno", "primaria", "secundaria", "universitaria").Req(),
			nonneg("anio_estudios").Req(),
			schema.OneOf("estado_civil", "soltera", "casada", "union_estable", "divorciada", "viuda", "otro").Req(),
			schema.Boolean("vive_sola").Req(),
			schema.Str("domicilio").Req(),
			schema.Str("telefono").Req(),
			schema.Str("localidad").Req(),
			schema.Str("establecimiento_salud").Req(),
			schema.Str("lugar_parto").Req(),
		),
	}
}
