package importer

import (
	"bytes"
	"strings"

	"github.com/mensajeria/soporte-api/internal/soporte"
	"github.com/xuri/excelize/v2"
)

// requiredColumns are the spreadsheet columns an import file must carry,
// matched case-insensitively after trimming.
var requiredColumns = []string{"nombre", "cedula", "direccion"}

// errCedulaRepetida is the per-row message for a cedula repeated in the file.
const errCedulaRepetida = "Cédula duplicada en el archivo"

type sheetData struct {
	header   []string
	dataRows [][]string
}

// row is one normalized data row. fila is the 1-based spreadsheet position
// including the header row.
type row struct {
	fila   int
	params soporte.CreateParams
}

// parseSheet decodes the upload as an xlsx workbook and returns the first
// sheet's header and data rows. Undecodable or empty payloads come back as
// *soporte.FormatError.
func parseSheet(data []byte) (*sheetData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, &soporte.FormatError{Reason: "no se pudo leer el archivo Excel"}
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &soporte.FormatError{Reason: "el archivo Excel está vacío"}
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &soporte.FormatError{Reason: "no se pudo leer el archivo Excel"}
	}
	if len(rows) == 0 {
		return nil, &soporte.FormatError{Reason: "el archivo Excel está vacío"}
	}

	return &sheetData{header: rows[0], dataRows: rows[1:]}, nil
}

// checkSchema normalizes the header (lower-case, trimmed) and verifies the
// required columns are present. It returns the normalized column names and
// a name-to-position index, or *soporte.SchemaError naming what is missing.
func checkSchema(header []string) ([]string, map[string]int, error) {
	columns := make([]string, 0, len(header))
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" {
			continue
		}
		columns = append(columns, name)
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}

	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &soporte.SchemaError{Missing: missing}
	}

	return columns, index, nil
}

// normalizeRows trims field values, drops rows that are entirely empty or
// missing a required value, and collapses intra-file duplicate cedulas to
// the first occurrence. Later occurrences are reported as row errors so the
// caller can account for them.
func normalizeRows(dataRows [][]string, index map[string]int) ([]row, []RowError) {
	rows := make([]row, 0, len(dataRows))
	var dupErrors []RowError

	seen := make(map[string]bool)
	for i, cells := range dataRows {
		fila := i + 2 // 1-based, after the header row

		if emptyRow(cells) {
			continue
		}

		params := soporte.CreateParams{
			Nombre:    cellAt(cells, index["nombre"]),
			Cedula:    cellAt(cells, index["cedula"]),
			Direccion: cellAt(cells, index["direccion"]),
		}
		if !params.Complete() {
			continue
		}

		if seen[params.Cedula] {
			dupErrors = append(dupErrors, RowError{
				Fila:   fila,
				Cedula: params.Cedula,
				Error:  errCedulaRepetida,
			})
			continue
		}
		seen[params.Cedula] = true

		rows = append(rows, row{fila: fila, params: params})
	}

	return rows, dupErrors
}

// capRows truncates the normalized row set to min(limite, MaxRows). Any
// non-positive or out-of-range limit is coerced to MaxRows.
func capRows(rows []row, limite int) []row {
	if limite <= 0 || limite > MaxRows {
		limite = MaxRows
	}
	if len(rows) > limite {
		rows = rows[:limite]
	}
	return rows
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[i])
}

func emptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
