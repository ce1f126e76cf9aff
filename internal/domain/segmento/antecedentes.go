package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

func countField(name string) schema.Field {
	return nonneg(name).Message(name + " debe ser entero >= 0")
}

func Antecedentes() *Definition {
	msgs := messagesFor("Antecedentes", "os")
	msgs.ByHistorial = "No se encontraron antecedentes para este historial"
	msgs.ByPaciente = "No se encontraron antecedentes para este paciente"

	return &Definition{
		Name:       "antecedentes",
		Collection: "antecedentes",
		Label:      "Antecedentes",
		Messages:   msgs,
		Schema: schema.New(
			schema.Raw("antecedentes_familiares").Req(),
			schema.Raw("antecedentes_personales").Req(),
			schema.OneOf("diabetes_tipo", "ninguna", "tipo I", "tipo II", "gestacional").Req(),
			schema.Boolean("violencia").Req(),
			countField("gesta_previa").Req(),
			countField("partos").Req(),
			countField("vaginales"),
			countField("cesareas").Req(),
			countField("abortos").Req(),
			countField("nacidos_vivos").Req(),
			countField("nacidos_muertos").Req(),
			countField("embarazo_ectopico").Req(),
			countField("hijos_vivos").Req(),
			countField("muertos_primera_semana").Req(),
			countField("muertos_despues_semana").Req(),
			schema.DateOf("fecha_fin_ultimo_embarazo", layoutYMD, "02/01/2006", "2006-01").
				Out(layoutYMD).
				Hinted("'YYYY-MM-DD', 'DD/MM/YYYY' o 'YYYY-MM'").
				Req(),
			schema.OneOf("embarazo_planeado", siNo...).Req(),
			schema.OneOf("fracaso_metodo_anticonceptivo",
				"no_usaba", "barrera", "diu", "hormonal", "emergencia", "natural").Req(),
		),
		Derive: deriveVaginales,
		Check:  checkObstetricCoherence,
	}
}

// deriveVaginales fills vaginales from partos and cesareas when absent.
func deriveVaginales(doc bson.M) bson.M {
	if _, ok := intOf(doc, "vaginales"); ok {
		return nil
	}
	partos, okP := intOf(doc, "partos")
	cesareas, okC := intOf(doc, "cesareas")
	if !okP || !okC || cesareas > partos {
		return nil
	}
	return bson.M{"vaginales": partos - cesareas}
}

// outcomeCounters count births and losses, so they need a previous pregnancy.
var outcomeCounters = []string{
	"nacidos_vivos", "nacidos_muertos", "hijos_vivos",
	"muertos_primera_semana", "muertos_despues_semana",
}

// checkObstetricCoherence enforces the parity counters of a previous
// obstetric history.
func checkObstetricCoherence(doc bson.M) error {
	gesta, _ := intOf(doc, "gesta_previa")
	partos, _ := intOf(doc, "partos")
	cesareas, _ := intOf(doc, "cesareas")
	vaginales, hasVaginales := intOf(doc, "vaginales")
	abortos, _ := intOf(doc, "abortos")
	ectopicos, _ := intOf(doc, "embarazo_ectopico")

	if cesareas > partos {
		return apperr.Validation("cesareas no puede ser mayor que partos")
	}
	if hasVaginales {
		if vaginales > partos {
			return apperr.Validation("vaginales no puede ser mayor que partos")
		}
		if partos != cesareas+vaginales {
			return apperr.Validation("partos debe ser igual a cesareas + vaginales")
		}
	}
	if gesta == 0 {
		if partos != 0 || cesareas != 0 || vaginales != 0 || abortos != 0 || ectopicos != 0 {
			return apperr.Validation("Si gesta_previa es 0, partos, cesareas, vaginales, abortos y embarazo_ectopico deben ser 0")
		}
		for _, k := range outcomeCounters {
			if n, _ := intOf(doc, k); n != 0 {
				return apperr.Validationf("Si gesta_previa es 0, %s debe ser 0", k)
			}
		}
		return nil
	}
	if partos+abortos+ectopicos > gesta {
		return apperr.Validation("partos + abortos + embarazo_ectopico no puede exceder gesta_previa")
	}
	return nil
}
