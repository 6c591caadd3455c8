package web

// errors.go translates domain errors into HTTP responses. Technical detail
// is logged server-side; the client sees the user-facing message and, for
// classified errors, a stable code.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mensajeria/soporte-api/internal/importer"
	"github.com/mensajeria/soporte-api/internal/soporte"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError classifies err, logs it with the request context, and writes
// the mapped status plus a user-facing message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classify(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", code,
		"error", err.Error(),
		"request_id", chimw.GetReqID(r.Context()),
	)

	writeErrorCode(w, status, code, message)
}

// classify maps a domain error to status, code and user-facing message.
func classify(err error) (status int, code, message string) {
	var (
		verr *soporte.ValidationError
		derr *soporte.DuplicateError
		ferr *soporte.FormatError
		serr *soporte.SchemaError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "VALIDACION", verr.Error()
	case errors.As(err, &derr):
		return http.StatusBadRequest, "DUPLICADO", derr.Error()
	case errors.As(err, &ferr):
		return http.StatusBadRequest, "FORMATO", ferr.Error()
	case errors.As(err, &serr):
		return http.StatusBadRequest, "ESQUEMA", serr.Error()
	case errors.Is(err, soporte.ErrNotFound):
		return http.StatusNotFound, "NO_ENCONTRADO", soporte.ErrNotFound.Error()
	case errors.Is(err, importer.ErrTooManyImports):
		return http.StatusTooManyRequests, "OCUPADO", importer.ErrTooManyImports.Error()
	case errors.Is(err, soporte.ErrStorage):
		return http.StatusInternalServerError, "ALMACENAMIENTO", soporte.ErrStorage.Error()
	default:
		return http.StatusInternalServerError, "INTERNO", "error interno del servidor"
	}
}

// writeError writes a JSON error response without a code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeErrorCode(w, status, "", message)
}

func writeErrorCode(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: message, Code: code})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
