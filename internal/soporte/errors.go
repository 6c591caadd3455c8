package soporte

import (
	"errors"
	"fmt"
)

// Sentinel errors for lookups and storage failures. Wrap with %w so callers
// can classify with errors.Is at the request boundary.
var (
	// ErrNotFound is returned when a lookup by id or cedula misses.
	ErrNotFound = errors.New("soporte no encontrado")

	// ErrStorage wraps failures of the underlying database.
	ErrStorage = errors.New("error al acceder a la base de datos")
)

// ValidationError reports a field that violates its length constraint.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// DuplicateError reports a natural-key collision on cedula.
type DuplicateError struct {
	Cedula string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("ya existe un soporte registrado con la cédula %s", e.Cedula)
}

// FormatError reports an upload payload that could not be parsed as a
// spreadsheet, or one with no data at all.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "archivo inválido: " + e.Reason
}

// SchemaError reports a spreadsheet missing one or more required columns.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("columnas faltantes: %v", e.Missing)
}
