package soporte

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Minimum lengths for the caller-supplied fields. These mirror the original
// registration rules and apply to both single creation and bulk import.
const (
	MinNombreLen    = 3
	MinCedulaLen    = 5
	MinDireccionLen = 5
)

// Normalize trims surrounding whitespace from every caller-supplied field.
func (p CreateParams) Normalize() CreateParams {
	return CreateParams{
		Nombre:    strings.TrimSpace(p.Nombre),
		Direccion: strings.TrimSpace(p.Direccion),
		Cedula:    strings.TrimSpace(p.Cedula),
	}
}

// Validate checks the field length constraints. It returns the first
// violation found as a *ValidationError.
func (p CreateParams) Validate() error {
	if utf8.RuneCountInString(p.Nombre) < MinNombreLen {
		return &ValidationError{Field: "nombre", Reason: fmt.Sprintf("debe tener al menos %d caracteres", MinNombreLen)}
	}
	if utf8.RuneCountInString(p.Cedula) < MinCedulaLen {
		return &ValidationError{Field: "cedula", Reason: fmt.Sprintf("debe tener al menos %d caracteres", MinCedulaLen)}
	}
	if utf8.RuneCountInString(p.Direccion) < MinDireccionLen {
		return &ValidationError{Field: "direccion", Reason: fmt.Sprintf("debe tener al menos %d caracteres", MinDireccionLen)}
	}
	return nil
}

// Empty reports whether every field is blank after trimming. Used by the
// import pipeline to drop spreadsheet rows with no content.
func (p CreateParams) Empty() bool {
	return strings.TrimSpace(p.Nombre) == "" &&
		strings.TrimSpace(p.Direccion) == "" &&
		strings.TrimSpace(p.Cedula) == ""
}

// Complete reports whether all three required fields are present.
func (p CreateParams) Complete() bool {
	return p.Nombre != "" && p.Direccion != "" && p.Cedula != ""
}
