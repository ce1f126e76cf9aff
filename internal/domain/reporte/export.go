package reporte

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

const (
	institucion = "Centro De Salud Jose Rubi"
	titulo      = "Reporte de Indicadores del Sistema Prenatal"
	pie         = "Sistema SIGEPREN - Ministerio de Salud de Nicaragua - Reporte generado automáticamente"
)

// fila is one labelled value of the report.
type fila struct {
	etiqueta string
	valor    int64
	unidad   string
}

func metricas(r Resumen) []fila {
	return []fila{
		{"Pacientes activos", r.Cards.PacientesActivos.Value, "gestantes"},
		{"Citas cumplidas", r.Cards.CitasCumplidas.Value, "%"},
		{"Alertas generadas", r.Cards.AlertasGeneradas.Value, "en seguimiento"},
	}
}

func indicadores(r Resumen) []fila {
	return []fila{
		{"Altas", r.Indicadores.Altas.Percent, "%"},
		{"Medias", r.Indicadores.Medias.Percent, "%"},
		{"Alertas", r.Indicadores.Alertas.Percent, "%"},
	}
}

func (f fila) texto() string {
	if f.unidad == "%" {
		return fmt.Sprintf("- %s: %d%%", f.etiqueta, f.valor)
	}
	return fmt.Sprintf("- %s: %d %s", f.etiqueta, f.valor, f.unidad)
}

// Nombre is the download file name for the given extension.
func Nombre(ext string, now time.Time) string {
	return "dashboard_" + now.UTC().Format("20060102_150405") + "." + ext
}

func JSON(r Resumen) ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// PDF renders a one-page A4 report.
func PDF(r Resumen, rango Rango, generado time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()

	pdf.SetTextColor(0x01, 0x57, 0x9B)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 7, tr(institucion), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 8, tr(titulo), "", 1, "C", false, 0, "")

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Rango: %s   %s", rango.Start.Format("2006-01-02"), rango.End.Format("2006-01-02")), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, "Generado: "+generado.UTC().Format("2006-01-02 15:04 UTC"), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	seccion := func(nombre string, filas []fila) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, tr(nombre), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		for _, f := range filas {
			pdf.CellFormat(0, 6, tr(f.texto()), "", 1, "L", false, 0, "")
		}
		pdf.Ln(5)
	}
	seccion("Métricas principales", metricas(r))
	seccion("Indicadores de riesgo", indicadores(r))

	pdf.SetY(-35)
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0x80, 0x80, 0x80)
	pdf.CellFormat(0, 6, "Firma o sello digital: _________________________________", "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 6, tr(pie), "", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

const hoja = "Dashboard"

// Excel renders the report as a single-sheet workbook.
func Excel(r Resumen, rango Rango, generado time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", hoja); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]any{
		{titulo},
		{"Rango", rango.Start.Format("2006-01-02"), rango.End.Format("2006-01-02")},
		{"Generado", generado.UTC().Format("2006-01-02 15:04 UTC")},
		{},
		{"Métricas principales"},
		{"Pacientes activos", r.Cards.PacientesActivos.Value, "gestantes"},
		{"Citas cumplidas (%)", r.Cards.CitasCumplidas.Value},
		{"Alertas generadas (en seguimiento)", r.Cards.AlertasGeneradas.Value},
		{},
		{"Indicadores de riesgo"},
	}
	for _, ind := range indicadores(r) {
		rows = append(rows, []any{ind.etiqueta, ind.valor})
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(hoja, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("new style: %w", err)
	}
	for _, cell := range []string{"A1", "A5", "A10"} {
		if err := f.SetCellStyle(hoja, cell, cell, bold); err != nil {
			return nil, fmt.Errorf("style %s: %w", cell, err)
		}
	}
	if err := f.SetColWidth(hoja, "A", "A", 38); err != nil {
		return nil, fmt.Errorf("column width: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
