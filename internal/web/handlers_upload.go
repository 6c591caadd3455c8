package web

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mensajeria/soporte-api/internal/logging"
	"github.com/mensajeria/soporte-api/internal/metrics"
)

// handleUploadExcel receives a spreadsheet as multipart form data and runs a
// bulk import. Partial failure is a 200: per-row errors travel in the body.
func (s *Server) handleUploadExcel(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	// Hold one of the bounded import slots for the whole request.
	if err := s.limiter.Acquire(r.Context()); err != nil {
		log.Warn("import slot unavailable", "active", s.limiter.ActiveCount())
		s.respondError(w, r, err)
		return
	}
	defer s.limiter.Release()

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)
	if err := r.ParseMultipartForm(s.cfg.Upload.MaxFileSize); err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "el archivo excede el tamaño máximo permitido")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "falta el archivo en el campo 'file'")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext != ".xlsx" && ext != ".xls" {
		writeError(w, http.StatusBadRequest, "El archivo debe ser Excel (.xlsx o .xls)")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "no se pudo leer el archivo")
		return
	}

	limite := queryInt(r, "limite", 0)

	log.Info("import started",
		"filename", header.Filename,
		"size", len(data),
		"limite", limite,
	)

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	outcome, err := s.importer.Import(ctx, data, limite)
	if err != nil {
		metrics.ImportRows.WithLabelValues("failed").Inc()
		s.respondError(w, r, err)
		return
	}

	metrics.ImportRows.WithLabelValues("ok").Add(float64(outcome.Resultado.Exitosos))
	metrics.ImportRows.WithLabelValues("failed").Add(float64(outcome.Resultado.Fallidos))
	metrics.RecordsCreated.WithLabelValues("import").Add(float64(outcome.Resultado.Exitosos))

	log.Info("import finished",
		"filename", header.Filename,
		"procesados", outcome.Resultado.TotalProcesados,
		"exitosos", outcome.Resultado.Exitosos,
		"fallidos", outcome.Resultado.Fallidos,
	)

	writeJSON(w, http.StatusOK, outcome)
}
