package reporte

import (
	"time"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

const (
	NivelAlto    = "alto"
	NivelMedio   = "medio"
	NivelNinguno = "ninguno"
)

// Clinical thresholds.
const (
	paSistolicaAlta  = 140
	paDiastolicaAlta = 90
	glucemiaAlta     = 140
	hemoglobinaBaja  = 11
	imcBajo          = 18.5
	imcAlto          = 30
	diasSinControl   = 30
)

// fecha reads an APN date stored either as a BSON date or as YYYY-MM-DD.
func fecha(v any) (time.Time, bool) {
	if t, ok := schema.ToTime(v); ok {
		return t.UTC(), true
	}
	if s, ok := v.(string); ok {
		t, err := time.Parse("2006-01-02", s)
		return t, err == nil
	}
	return time.Time{}, false
}

// ultimoControl returns the latest prenatal visit dated on or before end.
func ultimoControl(ga map[string]any, end time.Time) (map[string]any, time.Time, bool) {
	list, _ := schema.ToList(ga["apn"])
	var (
		last  map[string]any
		lastT time.Time
		found bool
	)
	for _, item := range list {
		apn, ok := schema.ToMap(item)
		if !ok {
			continue
		}
		t, ok := fecha(apn["fecha"])
		if !ok || t.After(end) {
			continue
		}
		if !found || !t.Before(lastT) {
			last, lastT, found = apn, t, true
		}
	}
	return last, lastT, found
}

func number(doc map[string]any, key string) (float64, bool) {
	if doc == nil || doc[key] == nil {
		return 0, false
	}
	return schema.ToFloat(doc[key])
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Clasificar grades the risk of a current pregnancy record as of end. The
// first matching rule wins.
func Clasificar(ga map[string]any, end time.Time) string {
	end = end.UTC()
	apn, fechaControl, controlado := ultimoControl(ga, end)

	sis, okS := number(apn, "pa_sis")
	dia, okD := number(apn, "pa_dia")
	if okS && okD && (sis >= paSistolicaAlta || dia >= paDiastolicaAlta) {
		return NivelAlto
	}

	g1, ok1 := number(ga, "glucemia1")
	g2, ok2 := number(ga, "glucemia2")
	if (ok1 && g1 > glucemiaAlta) || (ok2 && g2 > glucemiaAlta) {
		return NivelAlto
	}

	if hb, ok := number(ga, "hemoglobina"); ok && hb < hemoglobinaBaja {
		return NivelMedio
	}
	if imc, ok := number(ga, "imc"); ok && (imc < imcBajo || imc > imcAlto) {
		return NivelMedio
	}

	if !controlado {
		return NivelMedio
	}
	if day(end).Sub(day(fechaControl)) > diasSinControl*24*time.Hour {
		return NivelMedio
	}
	return NivelNinguno
}
