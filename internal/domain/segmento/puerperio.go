package segmento

import (
	"github.com/sigepren/sigepren/internal/platform/schema"
)

func puerperioEntry() schema.Field {
	return schema.Obj("",
		schema.DateOf("dia_hora",
			"2006-01-02 15:04", "2006-01-02T15:04", "2006-01-02 15:04:05", "2006-01-02T15:04:05").
			Hinted("'YYYY-MM-DD HH:MM' (o ISO)").Req(),
		schema.Number("temperatura").Between(30, 45).Req(),
		schema.Obj("presion_arterial",
			schema.Integer("sistolica").Between(50, 250).Req(),
			schema.Integer("diastolica").Between(30, 150).Req(),
		).Req(),
		schema.Integer("pulso").Between(30, 220).Req(),
		schema.OneOf("involucion_uterina", "cont", "flac", "otra").Req(),
		schema.Str("loquios").Req(),
	)
}

func puerperioSchema() *schema.Schema {
	s := schema.New(
		schema.ListOf("puerperio_inmediato", puerperioEntry()).Req(),
		schema.OneOf("antirrubeola_postparto", "si", "no", "n_c").Req(),
		schema.OneOf("gammaglobulina_anti_d", "si", "no", "n_c").Req(),
	)
	s.Messages.List = "%s debe ser un arreglo de registros"
	return s
}

func Puerperio() *Definition {
	return &Definition{
		Name:       "puerperio",
		Collection: "puerperio",
		Label:      "Puerperio",
		Schema:     puerperioSchema(),
		Messages:   messagesFor("Puerperio", "o"),
	}
}
