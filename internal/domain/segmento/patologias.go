package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

var enfermedadesMaternas = []string{
	"hta_previa", "hta_inducida_embarazo", "preeclampsia", "eclampsia",
	"cardiopatia", "nefropatia", "diabetes", "infeccion_ovular",
	"infeccion_urinaria", "amenaza_parto_preter", "rciu",
	"rotura_premembranas", "anemia", "otra_cond_grave",
}

func patologiasSchema() *schema.Schema {
	enf := make([]schema.Field, 0, len(enfermedadesMaternas))
	for _, name := range enfermedadesMaternas {
		enf = append(enf, schema.OneOf(name, siNo...).Req())
	}
	prueba := []string{"positivo", "negativo", "n_r", "n_c"}

	s := schema.New(
		schema.Obj("enfermedades", enf...).Req(),
		schema.Obj("resumen",
			schema.Boolean("ninguna").Req(),
			schema.Boolean("uno_o_mas").Req(),
		).Req(),
		schema.Obj("hemorragia",
			schema.OneOf("hemorragia_ocurrio", siNo...).Req(),
			schema.OneOf("trimestre", "1_trim", "2_trim", "3_trim", "postparto", "infec_puerperal", "ninguno").Req(),
			schema.ListOf("codigo", schema.Txt("")).Limit(3).Req(),
		).Req(),
		schema.Obj("tdp",
			schema.OneOf("prueba_sifilis", prueba...).Req(),
			schema.OneOf("prueba_vih", prueba...).Req(),
			schema.OneOf("tarv", "si", "no", "n_c").Req(),
		).Req(),
	)
	s.Messages.List = "%s debe ser arreglo de strings (máx 3)"
	s.Messages.MaxItems = "%s admite hasta %d códigos"
	return s
}

func Patologias() *Definition {
	msgs := messagesFor("Patologías", "as")
	msgs.ByPaciente = "No se encontró registro de patologías para este paciente"
	return &Definition{
		Name:       "patologias",
		Collection: "patologias",
		Label:      "Patologías",
		Schema:     patologiasSchema(),
		Messages:   msgs,
		Check:      checkPatologias,
	}
}

func checkPatologias(doc bson.M) error {
	r, ok := objOf(doc, "resumen")
	if !ok {
		return nil
	}
	if r["ninguna"] == true && r["uno_o_mas"] == true {
		return apperr.Validation("resumen.ninguna y resumen.uno_o_mas no pueden ser ambos verdaderos")
	}
	return nil
}
