package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

// exact is a case-sensitive enum compared without trimming.
func exact(name string, options ...string) schema.Field {
	return schema.OneOf(name, options...).Exact()
}

func partogramaEntry() schema.Field {
	return schema.Obj("",
		schema.Integer("hora").Between(0, 23).Req(),
		schema.Integer("minuto").Between(0, 59).Req(),
		schema.Str("posicion_madre").Req(),
		schema.Str("pa").Req(),
		nonneg("pulso").Req(),
		nonneg("contracciones").Req(),
		schema.Str("dilatacion").Req(),
		schema.Str("altura_presentacion").Req(),
		schema.Str("variedad_posicion").Req(),
		schema.Boolean("meconio").Req(),
		schema.Boolean("fcf_dips").Req(),
	)
}

func partoAbortoSchema() *schema.Schema {
	s := schema.New(
		exact("tipo_evento", "Parto", "Aborto").Req(),
		schema.DateOf("fecha_ingreso", layoutYMD, "02/01/2006").Out(layoutYMD).
			Hinted("YYYY-MM-DD o DD/MM/YYYY").Req(),
		schema.Boolean("carne_perinatal").Req(),
		nonneg("consultas_prenatales").Req(),
		exact("lugar_parto", "Institucional", "Domiciliar", "Otro").Req(),
		schema.Obj("hospitalizacion_embarazo",
			schema.Boolean("hubo").Req(),
			nonneg("dias").Req(),
		).Req(),
		schema.Obj("corticoides_antenatales",
			exact("estado", "Completo", "Incompleto", "Ninguna", "N/C").Req(),
			nonneg("semana_inicio").Req(),
		).Req(),
		exact("inicio_parto", "Espontáneo", "Inducido", "Cesárea Electiva").Req(),
		schema.Obj("ruptura_membrana",
			schema.Boolean("hubo").Req(),
			schema.Obj("fecha_inicio",
				schema.Integer("dia").Between(1, 31).Req(),
				schema.Integer("mes").Between(1, 12).Req(),
				schema.Integer("anio").AtLeast(1900).Req(),
			),
			schema.Obj("hora_inicio",
				schema.Integer("hora").Between(0, 23).Req(),
				schema.Integer("minuto").Between(0, 59).Req(),
			),
			schema.Boolean("antes_37_semanas").Def(false),
			schema.Boolean("duracion_ruptura_18h_omas").Def(false),
			schema.Boolean("temperatura_mayor_38").Def(false),
		).Req(),
		schema.Obj("edad_gestacional_parto",
			nonneg("semanas").Req(),
			schema.Integer("dias").Between(0, 6).Req(),
			exact("metodo", "FUM", "USG", "Ambos").Req(),
		).Req(),
		exact("presentacion", "Cefálica", "Pélvica", "Transversa").Req(),
		schema.Boolean("tamano_fetal_acorde").Req(),
		exact("acompanante", "Pareja", "Familiar", "Partera", "Brigadista", "Amigo/a",
			"Personal Salud", "Otro", "Ninguno").Req(),
		schema.Boolean("acompanamiento_solicitado_usuaria").Req(),
		exact("nacimiento", "Vivo", "Muerte Anteparto", "Muerte Intraparto", "Muerto Ignora momento").Req(),
		schema.DateOf("fecha_hora_nacimiento", "2006-01-02T15:04").Hinted("YYYY-MM-DDTHH:MM").Req(),
		schema.Boolean("nacimiento_multiple").Req(),
		nonneg("orden_nacimiento").Req(),
		exact("terminacion_parto", "Espontánea", "Cesárea", "Fórceps", "Vacuum", "Otra").Req(),
		exact("posicion_parto", "Sentada", "Acostada", "Cuclillas").Req(),
		schema.Boolean("episiotomia").Req(),
		schema.Obj("desgarros",
			schema.Boolean("hubo").Req(),
			schema.Integer("grado").Between(1, 4).Null(),
		).Req(),
		schema.Boolean("oxitocicos_pre").Req(),
		schema.Boolean("oxitocicos_post").Req(),
		schema.Boolean("placenta_expulsada").Req(),
		exact("ligadura_cordon", "Precoz", "Tardía").Req(),
		schema.Obj("medicacion_recibida",
			schema.Boolean("oxitocicos").Def(false),
			schema.Boolean("antibiotico").Def(false),
			schema.Boolean("analgesia").Def(false),
			schema.Boolean("anestesia_local").Def(false),
			schema.Boolean("anestesia_general").Def(false),
			schema.Boolean("anestesia_regional").Def(false),
			schema.Boolean("transfusion").Def(false),
			schema.Str("otros").Def(""),
		).Req(),
		schema.Str("indicacion_principal_induccion_operacion").Req(),
		schema.ListOf("induccion", schema.Str("")).Req(),
		schema.ListOf("operacion", schema.Str("")).Req(),
		schema.Boolean("partograma_usado").Req(),
		schema.ListOf("partograma_detalle", partogramaEntry()),
	)
	s.Messages.Enum = "%s inválido. Use uno de: %s"
	s.Messages.Bool = "%s debe ser booleano o 'Si'/'No'"
	s.BoolWords = map[string]bool{"si": true, "no": false}
	return s
}

func PartoAborto() *Definition {
	msgs := messagesFor("Registro", "o")
	msgs.NotFound = "No se encontró el registro"
	msgs.ByHistorial = "No se encontró registro para este historial"
	msgs.ByPaciente = "No se encontró registro para este paciente"

	return &Definition{
		Name:       "parto_aborto",
		Collection: "parto_aborto",
		Label:      "Parto o aborto",
		Schema:     partoAbortoSchema(),
		Messages:   msgs,
		Derive:     derivePartoAborto,
		Check:      checkPartoAborto,
	}
}

// derivePartoAborto clears details that only apply when the event happened.
func derivePartoAborto(doc bson.M) bson.M {
	out := bson.M{}
	if d, ok := objOf(doc, "desgarros"); ok && d["hubo"] == false {
		d = copyObj(d)
		d["grado"] = nil
		out["desgarros"] = d
	}
	if r, ok := objOf(doc, "ruptura_membrana"); ok && r["hubo"] == false {
		r = copyObj(r)
		delete(r, "fecha_inicio")
		delete(r, "hora_inicio")
		out["ruptura_membrana"] = r
	}
	return out
}

func checkPartoAborto(doc bson.M) error {
	if d, ok := objOf(doc, "desgarros"); ok && d["hubo"] == true {
		if d["grado"] == nil {
			return apperr.Validation("desgarros.grado es requerido cuando desgarros.hubo es Si")
		}
	}
	if r, ok := objOf(doc, "ruptura_membrana"); ok && r["hubo"] == true {
		if !present(r, "fecha_inicio") || !present(r, "hora_inicio") {
			return apperr.Validation("ruptura_membrana: Campos requeridos faltantes: fecha_inicio, hora_inicio")
		}
	}
	if doc["partograma_usado"] == false {
		if l, ok := schema.ToList(doc["partograma_detalle"]); !ok || len(l) == 0 {
			return apperr.Validation("partograma_detalle es requerido cuando partograma_usado es No")
		}
	}
	return nil
}

func copyObj(m bson.M) bson.M {
	out := make(bson.M, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
