// Package soporte defines the domain model for support-request records and
// the validation rules shared by the HTTP surface, the record store, and the
// bulk import pipeline.
package soporte

import "time"

// Record is a persisted support request. ID and FechaCreacion are assigned
// by the store and never accepted from callers.
type Record struct {
	ID            int64     `json:"id"`
	Nombre        string    `json:"nombre"`
	Direccion     string    `json:"direccion"`
	Cedula        string    `json:"cedula"`
	FechaCreacion time.Time `json:"fecha_creacion"`
}

// CreateParams carries the caller-supplied fields for a new record.
type CreateParams struct {
	Nombre    string `json:"nombre"`
	Direccion string `json:"direccion"`
	Cedula    string `json:"cedula"`
}

// ExportColumns is the header row used by both spreadsheet and PDF exports,
// in the order the record fields are rendered.
var ExportColumns = []string{"ID", "Nombre", "Direccion", "Cedula", "Fecha Creacion"}
