// Package reporte aggregates the dashboard indicators and exports them as
// JSON, PDF or spreadsheet.
package reporte

import (
	"math"
	"time"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

// Rango is the closed interval [Start, End] a summary covers.
type Rango struct {
	Start time.Time
	End   time.Time
}

// MesActual spans the calendar month of now, in UTC.
func MesActual(now time.Time) Rango {
	now = now.UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Rango{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Microsecond)}
}

// ParseRango reads both bounds. If either is missing or invalid the current
// month is used.
func ParseRango(startISO, endISO string, now time.Time) Rango {
	if startISO == "" || endISO == "" {
		return MesActual(now)
	}
	start, err1 := schema.ParseISO(startISO, "from")
	end, err2 := schema.ParseISO(endISO, "to")
	if err1 != nil || err2 != nil {
		return MesActual(now)
	}
	return Rango{Start: start, End: end}
}

func (r Rango) key() string {
	return "dashboard:" + r.Start.Format(time.RFC3339Nano) + ":" + r.End.Format(time.RFC3339Nano)
}

type Card struct {
	Value     int64  `json:"value"`
	Suffix    string `json:"suffix"`
	Precision *int   `json:"precision,omitempty"`
}

type Indicador struct {
	Percent int64 `json:"percent"`
}

type Cards struct {
	PacientesActivos Card `json:"pacientes_activos"`
	CitasCumplidas   Card `json:"citas_cumplidas"`
	AlertasGeneradas Card `json:"alertas_generadas"`
}

type Indicadores struct {
	Altas   Indicador `json:"altas"`
	Medias  Indicador `json:"medias"`
	Alertas Indicador `json:"alertas"`
}

type Resumen struct {
	Cards       Cards       `json:"cards"`
	Indicadores Indicadores `json:"indicadores"`
}

// percent rounds half to even.
func percent(part, total int64) int64 {
	if total <= 0 {
		return 0
	}
	return int64(math.RoundToEven(100 * float64(part) / float64(total)))
}

// Niveles counts patients per risk level.
type Niveles map[string]int64

func nuevoResumen(activos, completadas, programadas int64, n Niveles) Resumen {
	cero := 0
	total := n[NivelAlto] + n[NivelMedio] + n[NivelNinguno]
	altas := percent(n[NivelAlto], total)
	medias := percent(n[NivelMedio], total)
	var alertas int64
	if total > 0 {
		alertas = max(0, 100-altas-medias)
	}
	return Resumen{
		Cards: Cards{
			PacientesActivos: Card{Value: activos, Suffix: "gestantes"},
			CitasCumplidas: Card{
				Value:     percent(completadas, max(1, completadas+programadas)),
				Suffix:    "%",
				Precision: &cero,
			},
			AlertasGeneradas: Card{Value: n[NivelAlto] + n[NivelMedio], Suffix: "en seguimiento"},
		},
		Indicadores: Indicadores{
			Altas:   Indicador{Percent: altas},
			Medias:  Indicador{Percent: medias},
			Alertas: Indicador{Percent: alertas},
		},
	}
}
