package export

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/go-pdf/fpdf"
	"github.com/mensajeria/soporte-api/internal/soporte"
)

// Column widths in millimeters, one per export column, sized for letter
// paper with the default margins.
var pdfColWidths = []float64{15, 45, 60, 30, 40}

// PDF renders the records as a grid table: a filled, bold header band over
// one bordered row per record in the given order.
func PDF(records []soporte.Record) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetTitle("Soportes", false)
	pdf.AddPage()

	// Header band
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	for i, col := range soporte.ExportColumns {
		pdf.CellFormat(pdfColWidths[i], 8, col, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	// Data rows
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetFillColor(245, 245, 220)
	pdf.SetTextColor(0, 0, 0)
	for _, rec := range records {
		cells := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Nombre,
			rec.Direccion,
			rec.Cedula,
			rec.FechaCreacion.Format(timeLayout),
		}
		for i, v := range cells {
			pdf.CellFormat(pdfColWidths[i], 7, v, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("encode pdf: %w", err)
	}
	return buf.Bytes(), nil
}
