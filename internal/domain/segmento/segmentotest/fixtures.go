// Package segmentotest provides valid segment payloads and an in-memory
// repository for tests.
package segmentotest

// Payload returns a fresh valid payload for the named segment, or nil.
func Payload(name string) map[string]any {
	build, ok := payloads[name]
	if !ok {
		return nil
	}
	return build()
}

// All returns a valid payload for every segment keyed by segment name.
func All() map[string]any {
	out := make(map[string]any, len(payloads))
	for name, build := range payloads {
		out[name] = build()
	}
	return out
}

func trimestre(v string) map[string]any {
	return map[string]any{"t1": v, "t2": v, "t3": v}
}

var payloads = map[string]func() map[string]any{
	"identificacion": func() map[string]any {
		return map[string]any{
			"nombres":               "Ana María",
			"apellidos":             "López Pérez",
			"cedula":                "001-020395-0001A",
			"fecha_nacimiento":      "1995-03-02",
			"edad":                  29,
			"etnia":                 "mestiza",
			"alfabeta":              true,
			"nivel_estudios":        "secundaria",
			"anio_estudios":         5,
			"estado_civil":          "union_estable",
			"vive_sola":             false,
			"domicilio":             "Barrio San Judas, casa 12",
			"telefono":              "88887777",
			"localidad":             "Managua",
			"establecimiento_salud": "Centro de Salud Silvia Ferrufino",
			"lugar_parto":           "Hospital Bertha Calderón",
		}
	},
	"antecedentes": func() map[string]any {
		return map[string]any{
			"antecedentes_familiares":       map[string]any{"diabetes": true, "hipertension": false},
			"antecedentes_personales":       map[string]any{"cirugia_pelvica": false},
			"diabetes_tipo":                 "ninguna",
			"violencia":                     false,
			"gesta_previa":                  2,
			"partos":                        1,
			"cesareas":                      0,
			"abortos":                       1,
			"nacidos_vivos":                 1,
			"nacidos_muertos":               0,
			"embarazo_ectopico":             0,
			"hijos_vivos":                   1,
			"muertos_primera_semana":        0,
			"muertos_despues_semana":        0,
			"fecha_fin_ultimo_embarazo":     "2021-06",
			"embarazo_planeado":             "si",
			"fracaso_metodo_anticonceptivo": "no_usaba",
		}
	},
	"gestacion_actual": func() map[string]any {
		return map[string]any{
			"peso_anterior":                60.0,
			"talla":                        1.5,
			"fum":                          "2024-01-10",
			"fpp":                          "2024-10-17",
			"eg_confiable":                 "fum_<20s",
			"fumadora_activa":              trimestre("no"),
			"fumadora_pasiva":              trimestre("no"),
			"drogas":                       trimestre("no"),
			"alcohol":                      trimestre("no"),
			"violencia":                    trimestre("no"),
			"vacuna_rubeola":               "previa",
			"vacuna_antitetanica":          "si",
			"examen_mamas":                 "si",
			"examen_odonto":                "si",
			"cervix_normal":                "normal",
			"grupo_sanguineo":              "O",
			"rh":                           "+",
			"inmunizada":                   "nc",
			"hemoglobina":                  12.5,
			"anemia":                       "no",
			"glucemia1":                    85.0,
			"glucemia2":                    90.0,
			"glucemia_ayunas_ge_92_lt24":   "no",
			"glucemia_ayunas_ge_92_ge24":   "no",
			"bacteriuria":                  "normal",
			"estreptococo":                 "-",
			"chagas_res":                   "-",
			"malaria_res":                  "no_se_hizo",
			"vih_solicitada_lt20":          "si",
			"vih_solicitada_ge20":          "si",
			"vih_resultado_lt20":           "-",
			"vih_resultado_ge20":           "-",
			"tarv_emb_lt20":                "nc",
			"tarv_emb_ge20":                "nc",
			"sifilis_no_trep_lt20":         "-",
			"sifilis_no_trep_ge20":         "-",
			"sifilis_trep_lt20":            "-",
			"sifilis_trep_ge20":            "n/c",
			"sifilis_tratamiento_lt20":     "nc",
			"sifilis_tratamiento_ge20":     "nc",
			"pareja_tratada_lt20":          "nc",
			"pareja_tratada_ge20":          "nc",
			"preparacion_parto":            "si",
			"consejeria_lactancia_materna": "si",
			"hierro_indicado":              "si",
			"acido_folico_indicado":        "si",
		}
	},
	"parto_aborto": func() map[string]any {
		return map[string]any{
			"tipo_evento":                              "Parto",
			"fecha_ingreso":                            "2024-10-15",
			"carne_perinatal":                          "Si",
			"consultas_prenatales":                     6,
			"lugar_parto":                              "Institucional",
			"hospitalizacion_embarazo":                 map[string]any{"hubo": false, "dias": 0},
			"corticoides_antenatales":                  map[string]any{"estado": "N/C", "semana_inicio": 0},
			"inicio_parto":                             "Espontáneo",
			"ruptura_membrana":                         map[string]any{"hubo": false},
			"edad_gestacional_parto":                   map[string]any{"semanas": 39, "dias": 2, "metodo": "FUM"},
			"presentacion":                             "Cefálica",
			"tamano_fetal_acorde":                      true,
			"acompanante":                              "Pareja",
			"acompanamiento_solicitado_usuaria":        true,
			"nacimiento":                               "Vivo",
			"fecha_hora_nacimiento":                    "2024-10-15T08:30",
			"nacimiento_multiple":                      false,
			"orden_nacimiento":                         1,
			"terminacion_parto":                        "Espontánea",
			"posicion_parto":                           "Acostada",
			"episiotomia":                              false,
			"desgarros":                                map[string]any{"hubo": false},
			"oxitocicos_pre":                           false,
			"oxitocicos_post":                          true,
			"placenta_expulsada":                       true,
			"ligadura_cordon":                          "Tardía",
			"medicacion_recibida":                      map[string]any{"oxitocicos": true},
			"indicacion_principal_induccion_operacion": "",
			"induccion":                                []any{},
			"operacion":                                []any{},
			"partograma_usado":                         true,
		}
	},
	"patologias": func() map[string]any {
		enf := map[string]any{}
		for _, k := range []string{
			"hta_previa", "hta_inducida_embarazo", "preeclampsia", "eclampsia",
			"cardiopatia", "nefropatia", "diabetes", "infeccion_ovular",
			"infeccion_urinaria", "amenaza_parto_preter", "rciu",
			"rotura_premembranas", "anemia", "otra_cond_grave",
		} {
			enf[k] = "no"
		}
		return map[string]any{
			"enfermedades": enf,
			"resumen":      map[string]any{"ninguna": true, "uno_o_mas": false},
			"hemorragia": map[string]any{
				"hemorragia_ocurrio": "no",
				"trimestre":          "ninguno",
				"codigo":             []any{},
			},
			"tdp": map[string]any{"prueba_sifilis": "negativo", "prueba_vih": "negativo", "tarv": "n_c"},
		}
	},
	"recien_nacido": func() map[string]any {
		return map[string]any{
			"tipo_nacimiento":    "vivo",
			"sexo":               "Femenino",
			"peso_nacer":         3200.0,
			"perimetro_cefalico": 34.0,
			"longitud":           50.0,
			"edad_gestacional": map[string]any{
				"semanas": 39, "dias": 2, "metodo": "FUM", "estimada": false,
			},
			"peso_edad_gestacional": "Adecuado",
			"cuidados_inmediatos": map[string]any{
				"vitamina_k": "si", "profilaxis_ocular": "si", "apego_precoz": "si",
			},
			"apgar":              map[string]any{"min_1": 8, "min_5": 9},
			"reanimacion":        []any{},
			"fallece_sala_parto": "no",
			"referido":           "aloj_conjunto",
			"atendio":            map[string]any{"parto": "medico", "neonato": "medico"},
			"defectos_congenitos": map[string]any{
				"presenta": "no", "tipo_malformacion": "ninguna", "codigo": "", "detalle": "",
			},
			"enfermedades": map[string]any{"codigos": []any{}, "ninguna": true, "uno_o_mas": false},
			"vih_rn":       map[string]any{"exposicion": "no", "tratamiento": "n/c"},
			"tamizaje_neonatal": map[string]any{
				"vdrl": "negativo", "tsh": "negativo", "hbpatia": "no_se_hizo",
				"bilirrubina": "no_se_hizo", "toxo_igm": "no_se_hizo",
			},
			"meconio": "no",
		}
	},
	"puerperio": func() map[string]any {
		return map[string]any{
			"puerperio_inmediato": []any{
				map[string]any{
					"dia_hora":           "2024-10-15 10:00",
					"temperatura":        36.8,
					"presion_arterial":   map[string]any{"sistolica": 110, "diastolica": 70},
					"pulso":              80,
					"involucion_uterina": "cont",
					"loquios":            "normales",
				},
			},
			"antirrubeola_postparto": "no",
			"gammaglobulina_anti_d":  "n_c",
		}
	},
	"egreso_neonatal": func() map[string]any {
		return map[string]any{
			"estado":            "vivo",
			"fecha_hora_evento": "2024-10-17 09:00",
			"edad_egreso_dias":  2,
			"id_rn":             "RN-0001",
			"alimento_alta":     "lact_exclusiva",
			"boca_arriba":       "si",
			"bcg_aplicada":      "si",
			"peso_egreso":       3150.0,
			"nombre_rn":         "María López",
			"responsable":       "Dra. Martínez",
		}
	},
	"egreso_materno": func() map[string]any {
		return map[string]any{
			"antirrubeola_post_parto": "no",
			"gamma_globulina_antiD":   "n/c",
			"egreso_materno": map[string]any{
				"estado": "viva",
				"fecha":  "17/10/2024 09:00",
			},
			"dias_completos_desde_parto": 2,
			"responsable":                "Dra. Martínez",
		}
	},
	"anticoncepcion": func() map[string]any {
		return map[string]any{"consejeria": "si", "metodo_elegido": "hormonal"}
	},
}
