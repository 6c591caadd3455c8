// Package export renders record listings as downloadable spreadsheet and
// PDF byte streams. It renders exactly what it is given: no filtering,
// sorting, or pagination happens here.
package export

import (
	"fmt"

	"github.com/mensajeria/soporte-api/internal/soporte"
	"github.com/xuri/excelize/v2"
)

// sheetName is the title of the single worksheet in exported workbooks.
const sheetName = "Soportes"

// timeLayout formats fecha_creacion in exported cells.
const timeLayout = "2006-01-02 15:04:05"

// Excel renders the records as an xlsx workbook: one header row followed by
// one row per record in the given order. Zero records produce a workbook
// with only the header row.
func Excel(records []soporte.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName(f.GetSheetName(0), sheetName)

	if err := f.SetSheetRow(sheetName, "A1", &soporte.ExportColumns); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell := fmt.Sprintf("A%d", i+2)
		row := []any{rec.ID, rec.Nombre, rec.Direccion, rec.Cedula, rec.FechaCreacion.Format(timeLayout)}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}
