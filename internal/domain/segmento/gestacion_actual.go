package segmento

import (
	"math"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

// Records captured before the enums were introduced sent booleans.
func boolTo(yes, no string) func(any) any {
	return func(v any) any {
		if b, ok := v.(bool); ok {
			if b {
				return yes
			}
			return no
		}
		return v
	}
}

var (
	legacySiNo   = boolTo("si", "no")
	legacyNormal = boolTo("anormal", "normal")
	legacySign   = boolTo("+", "-")
)

func siNoNCField(name string) schema.Field {
	return schema.OneOf(name, siNoNC...).Map(legacySiNo)
}

// trimestral is a habit reported per trimester. A bare boolean applies to
// all three.
func trimestral(name string) schema.Field {
	f := schema.Obj(name,
		schema.OneOf("t1", siNoNC...).Def("nc"),
		schema.OneOf("t2", siNoNC...).Def("nc"),
		schema.OneOf("t3", siNoNC...).Def("nc"),
	)
	return f.Map(func(v any) any {
		if b, ok := v.(bool); ok {
			val := legacySiNo(b)
			return map[string]any{"t1": val, "t2": val, "t3": val}
		}
		return v
	})
}

func apnEntry() schema.Field {
	return schema.Obj("",
		ymd("fecha").Req(),
		schema.Integer("eg_semanas").Between(0, 45).Req(),
		schema.Number("peso_kg").Between(0, 300).Req(),
		schema.Integer("pa_sis").Between(60, 250).Req(),
		schema.Integer("pa_dia").Between(30, 150).Req(),
		schema.Number("altura_uterina_cm").Between(0, 60),
		schema.OneOf("presentacion", "cef", "pelv", "transv", "nc"),
		schema.Integer("fcf_lpm").Between(0, 250),
		siNoNCField("mov_fetales"),
		schema.OneOf("proteinuria", "+", "-", "nc"),
		schema.Str("nota"),
		schema.Str("iniciales"),
		ymd("proxima_cita"),
	)
}

func GestacionActual() *Definition {
	sifilis := []string{"+", "-", "s/d"}
	sifilisTrep := []string{"+", "-", "s/d", "n/c"}
	siNoSD := []string{"si", "no", "s/d", "nc"}
	vihRes := []string{"+", "-", "s/d", "n/c"}
	tri := []string{"normal", "anormal", "no_se_hizo"}
	res := []string{"+", "-", "no_se_hizo"}

	return &Definition{
		Name:       "gestacion_actual",
		Collection: "gestacion_actual",
		Label:      "Gestación actual",
		Messages:   messagesFor("Gestación actual", "a"),
		Schema: schema.New(
			schema.Number("peso_anterior").Between(0, 300).Req(),
			schema.Number("talla").Between(0.5, 2.5).Req(),
			ymd("fum").Req(),
			ymd("fpp").Req(),
			schema.OneOf("eg_confiable", "fum_<20s", "eco_<20s", "nc").Req(),

			trimestral("fumadora_activa").Req(),
			trimestral("fumadora_pasiva").Req(),
			trimestral("drogas").Req(),
			trimestral("alcohol").Req(),
			trimestral("violencia").Req(),

			schema.OneOf("vacuna_rubeola", "previa", "embarazo", "no", "no_sabe").Req(),
			siNoNCField("vacuna_antitetanica").Req(),
			schema.Integer("antitetanica_dosis").Between(0, 6),
			schema.Integer("antitetanica_mes_gestacion").Between(0, 45),
			siNoNCField("examen_mamas").Req(),
			siNoNCField("examen_odonto").Req(),
			schema.OneOf("cervix_normal", tri...).Map(legacyNormal).Req(),

			schema.OneOf("grupo_sanguineo", "A", "B", "AB", "O").Req(),
			schema.OneOf("rh", "+", "-").Req(),
			siNoNCField("inmunizada").Req(),

			schema.Number("hemoglobina").Between(0, 30).Req(),
			siNoNCField("anemia").Req(),
			schema.Number("hb_lt20").Between(0, 30),
			schema.Number("hb_ge20").Between(0, 30),
			schema.OneOf("toxoplasmosis_lt20", res...).Map(legacySign),
			schema.OneOf("toxoplasmosis_ge20", res...).Map(legacySign),

			schema.Number("glucemia1").AtLeast(0).Req(),
			schema.Number("glucemia2").AtLeast(0).Req(),
			siNoNCField("glucemia_ayunas_ge_92_lt24").Req(),
			siNoNCField("glucemia_ayunas_ge_92_ge24").Req(),

			schema.OneOf("bacteriuria", tri...).Map(legacyNormal).Req(),
			schema.OneOf("estreptococo", res...).Map(legacySign).Req(),
			schema.OneOf("chagas_res", res...).Map(legacySign).Req(),
			schema.OneOf("malaria_res", res...).Map(legacySign).Req(),

			schema.OneOf("vih_solicitada_lt20", siNoSD...).Map(legacySiNo).Req(),
			schema.OneOf("vih_solicitada_ge20", siNoSD...).Map(legacySiNo).Req(),
			schema.OneOf("vih_resultado_lt20", vihRes...).Map(legacySign).Req(),
			schema.OneOf("vih_resultado_ge20", vihRes...).Map(legacySign).Req(),
			siNoNCField("tarv_emb_lt20").Req(),
			siNoNCField("tarv_emb_ge20").Req(),

			schema.OneOf("sifilis_no_trep_lt20", sifilis...).Map(legacySign).Req(),
			schema.OneOf("sifilis_no_trep_ge20", sifilis...).Map(legacySign).Req(),
			schema.OneOf("sifilis_trep_lt20", sifilisTrep...).Map(legacySign).Req(),
			schema.OneOf("sifilis_trep_ge20", sifilisTrep...).Map(legacySign).Req(),
			schema.OneOf("sifilis_tratamiento_lt20", siNoSD...).Map(legacySiNo).Req(),
			schema.OneOf("sifilis_tratamiento_ge20", siNoSD...).Map(legacySiNo).Req(),
			schema.OneOf("pareja_tratada_lt20", siNoSD...).Map(legacySiNo).Req(),
			schema.OneOf("pareja_tratada_ge20", siNoSD...).Map(legacySiNo).Req(),

			siNoNCField("preparacion_parto").Req(),
			siNoNCField("consejeria_lactancia_materna").Req(),
			siNoNCField("hierro_indicado").Req(),
			siNoNCField("acido_folico_indicado").Req(),

			schema.Str("nota_control"),
			schema.Str("iniciales_personal"),
			ymd("proxima_cita"),
			schema.ListOf("apn", apnEntry()),
		),
		Derive: deriveIMC,
	}
}

// deriveIMC computes the body mass index before pregnancy, rounded to two
// decimals.
func deriveIMC(doc bson.M) bson.M {
	peso, okP := schema.ToFloat(doc["peso_anterior"])
	talla, okT := schema.ToFloat(doc["talla"])
	if !okP || !okT || talla <= 0 {
		return nil
	}
	return bson.M{"imc": math.Round(peso/(talla*talla)*100) / 100}
}
