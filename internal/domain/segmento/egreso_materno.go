package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

const layoutEgresoMaterno = "02/01/2006 15:04"

func egresoMaternoSchema() *schema.Schema {
	opciones := []string{"si", "no", "n/c"}
	s := schema.New(
		schema.OneOf("antirrubeola_post_parto", opciones...).Lower().Req(),
		schema.OneOf("gamma_globulina_antiD", opciones...).Lower().Req(),
		schema.Obj("egreso_materno",
			schema.OneOf("estado", "viva", "fallece").Lower().Req(),
			schema.DateOf("fecha", layoutEgresoMaterno, "02/01/2006", "2006-01-02T15:04", layoutYMD).
				Out(layoutEgresoMaterno).
				Hinted("'DD/MM/YYYY HH:MM' o 'DD/MM/YYYY'").Req(),
			schema.Boolean("traslado").Def(false),
			schema.Str("lugar_traslado").Null(),
			schema.Boolean("fallece_durante_o_en_traslado").Def(false),
			nonneg("edad_en_dias_fallecimiento").
				Message("edad_en_dias_fallecimiento debe ser entero >= 0").Null(),
		).Req(),
		nonneg("dias_completos_desde_parto").Message("dias_completos_desde_parto debe ser entero >= 0").Req(),
		schema.Str("responsable").Req(),
	)
	return s
}

func EgresoMaterno() *Definition {
	msgs := messagesFor("Egreso materno", "o")
	msgs.ByPaciente = "No se encontraron datos de egreso materno para este paciente"
	return &Definition{
		Name:       "egreso_materno",
		Collection: "egreso_materno",
		Label:      "Egreso materno",
		Schema:     egresoMaternoSchema(),
		Messages:   msgs,
		Derive:     deriveEgresoMaterno,
		Check:      checkEgresoMaterno,
	}
}

func requiresEdadFallecimiento(e bson.M) bool {
	return strOf(e, "estado") == "fallece" || e["fallece_durante_o_en_traslado"] == true
}

// deriveEgresoMaterno drops the traslado place and the age at death when
// they do not apply.
func deriveEgresoMaterno(doc bson.M) bson.M {
	e, ok := objOf(doc, "egreso_materno")
	if !ok {
		return nil
	}
	changed := false
	if e["traslado"] != true && e["lugar_traslado"] != nil {
		e = copyObj(e)
		e["lugar_traslado"] = nil
		changed = true
	}
	if !requiresEdadFallecimiento(e) && e["edad_en_dias_fallecimiento"] != nil {
		if !changed {
			e = copyObj(e)
		}
		e["edad_en_dias_fallecimiento"] = nil
		changed = true
	}
	if !changed {
		return nil
	}
	return bson.M{"egreso_materno": e}
}

func checkEgresoMaterno(doc bson.M) error {
	e, ok := objOf(doc, "egreso_materno")
	if !ok {
		return nil
	}
	if e["traslado"] == true && !present(e, "lugar_traslado") {
		return apperr.Validation("Si 'traslado' es true, 'lugar_traslado' es obligatorio")
	}
	if _, ok := intOf(e, "edad_en_dias_fallecimiento"); !ok {
		if strOf(e, "estado") == "fallece" {
			return apperr.Validation("Si estado='fallece', 'edad_en_dias_fallecimiento' es obligatorio")
		}
		if e["fallece_durante_o_en_traslado"] == true {
			return apperr.Validation("Si fallece durante/en traslado, 'edad_en_dias_fallecimiento' es obligatorio")
		}
	}
	return nil
}
