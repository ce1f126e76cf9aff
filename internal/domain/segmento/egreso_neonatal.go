package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

const layoutEventoNeonatal = "2006-01-02 15:04"

var (
	camposTraslado = []string{"codigo_traslado", "fallece_durante_traslado"}
	camposFallece  = []string{"fallece_fuera_lugar_nacimiento", "codigo_establecimiento_fallecimiento"}
)

func egresoNeonatalSchema() *schema.Schema {
	s := schema.New(
		schema.OneOf("estado", "vivo", "traslado", "fallece").Lower().Req(),
		schema.DateOf("fecha_hora_evento",
			layoutEventoNeonatal, "02/01/2006 15:04", layoutYMD, "02/01/2006",
			"2006-01-02 15:04:05", "2006-01-02T15:04", "2006-01-02T15:04:05").
			Out(layoutEventoNeonatal).
			Hinted("'YYYY-MM-DD HH:MM' o 'DD/MM/YYYY HH:MM'").Req(),
		nonneg("edad_egreso_dias").Message("edad_egreso_dias debe ser entero >= 0").Req(),
		schema.Str("id_rn").Req(),
		schema.OneOf("alimento_alta", "lact_exclusiva", "lact_no_exclusiva", "leche_artificial").Lower().Req(),
		schema.OneOf("boca_arriba", siNo...).Lower().Req(),
		schema.OneOf("bcg_aplicada", siNo...).Lower().Req(),
		schema.Number("peso_egreso").AtLeast(0).Message("peso_egreso debe ser numérico >= 0").Req(),
		schema.Str("nombre_rn").Req(),
		schema.Str("responsable").Req(),
		schema.Str("codigo_traslado").Null(),
		schema.OneOf("fallece_durante_traslado", siNo...).Lower().Null(),
		schema.OneOf("fallece_fuera_lugar_nacimiento", siNo...).Lower().Null(),
		schema.Str("codigo_establecimiento_fallecimiento").Null(),
	)
	s.Messages.Date = "%s debe tener formato %s"
	return s
}

func EgresoNeonatal() *Definition {
	return &Definition{
		Name:       "egreso_neonatal",
		Collection: "egreso_neonatal",
		Label:      "Egreso neonatal",
		Schema:     egresoNeonatalSchema(),
		Messages:   messagesFor("Egreso neonatal", "o"),
		Derive:     deriveEgresoNeonatal,
		Check:      checkEgresoNeonatal,
	}
}

// deriveEgresoNeonatal clears the fields that do not apply to the estado.
func deriveEgresoNeonatal(doc bson.M) bson.M {
	var clear []string
	switch strOf(doc, "estado") {
	case "traslado":
		clear = camposFallece
	case "fallece":
		clear = camposTraslado
	case "vivo":
		clear = append(append([]string{}, camposTraslado...), camposFallece...)
	}
	out := bson.M{}
	for _, k := range clear {
		out[k] = nil
	}
	return out
}

func checkEgresoNeonatal(doc bson.M) error {
	switch strOf(doc, "estado") {
	case "traslado":
		if !present(doc, "codigo_traslado") {
			return apperr.Validation("Si estado = 'traslado', 'codigo_traslado' es obligatorio")
		}
		if !present(doc, "fallece_durante_traslado") {
			return apperr.Validation("Si estado = 'traslado', 'fallece_durante_traslado' es obligatorio ('si'|'no')")
		}
	case "fallece":
		if strOf(doc, "fallece_fuera_lugar_nacimiento") == "si" && !present(doc, "codigo_establecimiento_fallecimiento") {
			return apperr.Validation("Si 'fallece_fuera_lugar_nacimiento' = 'si', 'codigo_establecimiento_fallecimiento' es obligatorio")
		}
	}
	return nil
}
