package segmento

import (
	"github.com/sigepren/sigepren/internal/platform/schema"
)

func Anticoncepcion() *Definition {
	return &Definition{
		Name:       "anticoncepcion",
		Collection: "anticoncepcion",
		Label:      "Anticoncepción",
		Schema: schema.New(
			schema.OneOf("consejeria", siNo...).Lower().Req(),
			schema.OneOf("metodo_elegido",
				"diu_post_evento", "diu", "barrera", "hormonal",
				"ligadura_tubaria", "natural", "otro", "ninguno").Lower().Req(),
		),
		Messages: messagesFor("Anticoncepción", "a"),
	}
}
