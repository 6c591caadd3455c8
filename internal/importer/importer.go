// Package importer implements the spreadsheet bulk-import pipeline: parse,
// schema check, normalization, intra-file dedup, per-row validation and
// duplicate detection, and a single-transaction best-effort insert.
package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/mensajeria/soporte-api/internal/logging"
	"github.com/mensajeria/soporte-api/internal/soporte"
	"github.com/mensajeria/soporte-api/internal/store"
)

// MaxRows is the hard cap on rows imported per request. The requested limit
// is clamped to it; non-positive or out-of-range requests fall back to it.
const MaxRows = 100

// MaxReportedErrors bounds the row errors echoed back to the caller so the
// response stays small even when most of the file is bad. The failure count
// still reflects every bad row.
const MaxReportedErrors = 10

// errCedulaExists is the per-row message for a cedula already persisted.
const errCedulaExists = "Cédula ya existe en la base de datos"

// Store is the persistence dependency of the pipeline.
type Store interface {
	BeginImport(ctx context.Context) (store.ImportTx, error)
}

// RowError describes one rejected spreadsheet row. Fila is the 1-based row
// position in the file including the header, so the first data row is 2.
type RowError struct {
	Fila   int    `json:"fila"`
	Cedula string `json:"cedula"`
	Error  string `json:"error"`
}

// Stats describes the accepted shape of the file after normalization.
type Stats struct {
	FilasProcesadas int      `json:"filas_procesadas"`
	Columnas        []string `json:"columnas"`
}

// Result aggregates per-row outcomes of one import.
type Result struct {
	TotalProcesados int        `json:"total_procesados"`
	Exitosos        int        `json:"exitosos"`
	Fallidos        int        `json:"fallidos"`
	Errores         []RowError `json:"errores"`
}

// Outcome is the full import report returned to the caller.
type Outcome struct {
	Estadisticas Stats  `json:"estadisticas"`
	Resultado    Result `json:"resultado"`
}

// Importer runs bulk imports against a record store.
type Importer struct {
	store Store
}

// New creates an Importer backed by the given store.
func New(st Store) *Importer {
	return &Importer{store: st}
}

// Import runs the whole pipeline over an uploaded spreadsheet.
//
// A *soporte.FormatError or *soporte.SchemaError aborts before any insert.
// Row-level failures are recorded and do not stop the batch. Staged inserts
// commit as one transaction; a commit failure rolls back the entire batch,
// including rows already counted as successful.
func (imp *Importer) Import(ctx context.Context, data []byte, limite int) (*Outcome, error) {
	importID := uuid.NewString()
	log := logging.WithFields(ctx, "import_id", importID)

	sheet, err := parseSheet(data)
	if err != nil {
		return nil, err
	}

	columns, index, err := checkSchema(sheet.header)
	if err != nil {
		return nil, err
	}

	rows, dupErrors := normalizeRows(sheet.dataRows, index)
	rows = capRows(rows, limite)

	log.Info("archivo procesado",
		"filas_validas", len(rows),
		"duplicados_en_archivo", len(dupErrors),
		"columnas", columns,
	)

	outcome := &Outcome{
		Estadisticas: Stats{FilasProcesadas: len(rows), Columnas: columns},
		Resultado: Result{
			TotalProcesados: len(rows) + len(dupErrors),
			Fallidos:        len(dupErrors),
			Errores:         []RowError{},
		},
	}

	allErrors := append([]RowError(nil), dupErrors...)

	if len(rows) == 0 {
		if len(allErrors) > MaxReportedErrors {
			allErrors = allErrors[:MaxReportedErrors]
		}
		if allErrors != nil {
			outcome.Resultado.Errores = allErrors
		}
		return outcome, nil
	}

	tx, err := imp.store.BeginImport(ctx)
	if err != nil {
		return nil, err
	}
	// Released on every exit path. After a successful Commit this is a no-op.
	defer tx.Rollback(ctx)

	for _, r := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if rowErr := imp.importRow(ctx, tx, r); rowErr != nil {
			log.Warn("fila rechazada", "fila", rowErr.Fila, "cedula", rowErr.Cedula, "error", rowErr.Error)
			allErrors = append(allErrors, *rowErr)
			outcome.Resultado.Fallidos++
			continue
		}
		outcome.Resultado.Exitosos++
	}

	if outcome.Resultado.Exitosos > 0 {
		if err := tx.Commit(ctx); err != nil {
			// Full-batch atomicity: the rows staged so far are gone too.
			log.Error("commit de importación falló", "error", err)
			return nil, err
		}
	} else {
		_ = tx.Rollback(ctx)
		log.Warn("ningún registro importado")
	}

	// Report errors in file order, capped to keep the response small.
	sort.Slice(allErrors, func(i, j int) bool { return allErrors[i].Fila < allErrors[j].Fila })
	if len(allErrors) > MaxReportedErrors {
		allErrors = allErrors[:MaxReportedErrors]
	}
	if allErrors != nil {
		outcome.Resultado.Errores = allErrors
	}

	log.Info("importación completada",
		"total", outcome.Resultado.TotalProcesados,
		"exitosos", outcome.Resultado.Exitosos,
		"fallidos", outcome.Resultado.Fallidos,
	)
	return outcome, nil
}

// importRow validates and stages a single row. A non-nil return describes a
// row-level failure; the batch continues either way.
func (imp *Importer) importRow(ctx context.Context, tx store.ImportTx, r row) *RowError {
	if err := r.params.Validate(); err != nil {
		return &RowError{Fila: r.fila, Cedula: r.params.Cedula, Error: err.Error()}
	}

	exists, err := tx.ExistsCedula(ctx, r.params.Cedula)
	if err != nil {
		return &RowError{Fila: r.fila, Cedula: r.params.Cedula, Error: err.Error()}
	}
	if exists {
		return &RowError{Fila: r.fila, Cedula: r.params.Cedula, Error: errCedulaExists}
	}

	if err := tx.Insert(ctx, r.params); err != nil {
		var dup *soporte.DuplicateError
		if errors.As(err, &dup) {
			return &RowError{Fila: r.fila, Cedula: r.params.Cedula, Error: errCedulaExists}
		}
		return &RowError{Fila: r.fila, Cedula: r.params.Cedula, Error: fmt.Sprintf("error al insertar: %v", err)}
	}

	return nil
}
