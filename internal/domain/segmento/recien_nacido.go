package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

const apgarMessage = "apgar.min_1 y apgar.min_5 deben estar en [0,10]"

func recienNacidoSchema() *schema.Schema {
	atendio := []string{"medico", "obstetrica", "enfermera", "auxiliar", "estudiante", "empirica", "otro"}
	tamizaje := []string{"positivo", "negativo", "no_se_hizo"}
	medida := func(name string) schema.Field {
		return schema.Number(name).AtLeast(0).Req()
	}

	s := schema.New(
		schema.OneOf("tipo_nacimiento", "vivo", "muerto_anteparto", "muerto_parto").Req(),
		schema.OneOf("sexo", "Femenino", "Masculino", "No definido").Req(),
		medida("peso_nacer"),
		medida("perimetro_cefalico"),
		medida("longitud"),
		schema.Obj("edad_gestacional",
			nonneg("semanas").Req(),
			nonneg("dias").Req(),
			schema.OneOf("metodo", "FUM", "Ecografía precoz", "Examen físico").Req(),
			schema.Boolean("estimada").Req(),
		).Req(),
		schema.OneOf("peso_edad_gestacional", "Adecuado", "Pequeño", "Grande").Req(),
		schema.Obj("cuidados_inmediatos",
			schema.OneOf("vitamina_k", siNo...).Req(),
			schema.OneOf("profilaxis_ocular", siNo...).Req(),
			schema.OneOf("apego_precoz", siNo...).Req(),
		).Req(),
		schema.Obj("apgar",
			schema.Integer("min_1").Req(),
			schema.Integer("min_5").Req(),
		).Req(),
		schema.ListOf("reanimacion",
			schema.OneOf("", "estimulación", "aspiración", "mascara", "oxigeno", "masaje", "tubo"),
		).Req(),
		schema.OneOf("fallece_sala_parto", siNo...).Req(),
		schema.OneOf("referido", "aloj_conjunto", "neonatologia", "otro_hosp").Req(),
		schema.Obj("atendio",
			schema.OneOf("parto", atendio...).Req(),
			schema.OneOf("neonato", atendio...).Req(),
		).Req(),
		schema.Obj("defectos_congenitos",
			schema.OneOf("presenta", siNo...).Req(),
			schema.OneOf("tipo_malformacion", "mayor", "menor", "ninguna").Req(),
			schema.Str("codigo").Req(),
			schema.Str("detalle").Req(),
		).Req(),
		schema.Obj("enfermedades",
			schema.ListOf("codigos", schema.Str("")).Limit(3).Req(),
			schema.Boolean("ninguna").Req(),
			schema.Boolean("uno_o_mas").Req(),
		).Req(),
		schema.Obj("vih_rn",
			schema.OneOf("exposicion", "si", "no", "s/d").Req(),
			schema.OneOf("tratamiento", "si", "no", "s/d", "n/c").Req(),
		).Req(),
		schema.Obj("tamizaje_neonatal",
			schema.OneOf("vdrl", tamizaje...).Req(),
			schema.OneOf("tsh", tamizaje...).Req(),
			schema.OneOf("hbpatia", tamizaje...).Req(),
			schema.OneOf("bilirrubina", tamizaje...).Req(),
			schema.OneOf("toxo_igm", tamizaje...).Req(),
		).Req(),
		schema.OneOf("meconio", siNo...).Req(),
	)
	// The explicit index keeps fmt from reporting the unused bound.
	s.Messages.Min = "%[1]s no puede ser negativo"
	s.Messages.List = "%s debe ser arreglo"
	s.Messages.MaxItems = "%s admite máximo %d códigos"
	return s
}

func RecienNacido() *Definition {
	msgs := messagesFor("Recién nacido", "o")
	msgs.ByPaciente = "No se encontró registro de recién nacido para este paciente"
	return &Definition{
		Name:       "recien_nacido",
		Collection: "recien_nacido",
		Label:      "Recién nacido",
		Schema:     recienNacidoSchema(),
		Messages:   msgs,
		Check:      checkApgar,
	}
}

func checkApgar(doc bson.M) error {
	a, ok := objOf(doc, "apgar")
	if !ok {
		return nil
	}
	for _, k := range []string{"min_1", "min_5"} {
		n, ok := intOf(a, k)
		if !ok {
			continue
		}
		if n < 0 || n > 10 {
			return apperr.Validation(apgarMessage)
		}
	}
	return nil
}
