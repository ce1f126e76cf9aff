package reporte

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMesActual(t *testing.T) {
	r := MesActual(time.Date(2024, 12, 15, 8, 0, 0, 0, time.UTC))
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 999999000, time.UTC), r.End)
}

func TestParseRango(t *testing.T) {
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	mes := MesActual(now)

	assert.Equal(t, mes, ParseRango("", "2024-05-31", now))
	assert.Equal(t, mes, ParseRango("2024-05-01T00:00:00Z", "ayer", now))

	r := ParseRango("2024-04-01T00:00:00Z", "2024-04-30T18:00:00-06:00", now)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), r.Start)
	assert.Equal(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), r.End)
	assert.Equal(t, "dashboard:2024-04-01T00:00:00Z:2024-05-01T00:00:00Z", r.key())
}

func TestPercent(t *testing.T) {
	assert.Equal(t, int64(0), percent(3, 0))
	assert.Equal(t, int64(33), percent(1, 3))
	assert.Equal(t, int64(67), percent(2, 3))
	assert.Equal(t, int64(12), percent(1, 8), "half rounds to even")
	assert.Equal(t, int64(38), percent(3, 8))
}

func TestNuevoResumen(t *testing.T) {
	r := nuevoResumen(4, 3, 1, Niveles{NivelAlto: 1, NivelMedio: 2, NivelNinguno: 1})
	assert.Equal(t, int64(4), r.Cards.PacientesActivos.Value)
	assert.Equal(t, int64(75), r.Cards.CitasCumplidas.Value)
	assert.Equal(t, int64(3), r.Cards.AlertasGeneradas.Value)
	assert.Equal(t, int64(25), r.Indicadores.Altas.Percent)
	assert.Equal(t, int64(50), r.Indicadores.Medias.Percent)
	assert.Equal(t, int64(25), r.Indicadores.Alertas.Percent)
}

func TestNuevoResumen_Empty(t *testing.T) {
	r := nuevoResumen(0, 0, 0, Niveles{})
	raw, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"cards": {
			"pacientes_activos": {"value": 0, "suffix": "gestantes"},
			"citas_cumplidas":   {"value": 0, "suffix": "%", "precision": 0},
			"alertas_generadas": {"value": 0, "suffix": "en seguimiento"}
		},
		"indicadores": {
			"altas":   {"percent": 0},
			"medias":  {"percent": 0},
			"alertas": {"percent": 0}
		}
	}`, string(raw))
}
