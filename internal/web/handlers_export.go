package web

import (
	"fmt"
	"net/http"
	"time"

	"github.com/mensajeria/soporte-api/internal/export"
	"github.com/mensajeria/soporte-api/internal/logging"
	"github.com/mensajeria/soporte-api/internal/metrics"
	"github.com/mensajeria/soporte-api/internal/soporte"
)

// handleExportExcel streams every soporte as a spreadsheet download.
func (s *Server) handleExportExcel(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "excel", "xlsx",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		export.Excel)
}

// handleExportPDF streams every soporte as a PDF table download.
func (s *Server) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "pdf", "pdf", "application/pdf", export.PDF)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, format, ext, contentType string, render func([]soporte.Record) ([]byte, error)) {
	records, err := s.store.All(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	body, err := render(records)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	metrics.Exports.WithLabelValues(format).Inc()
	logging.FromContext(r.Context()).Info("export generated",
		"format", format,
		"records", len(records),
		"bytes", len(body),
	)

	filename := fmt.Sprintf("soportes_%s.%s", time.Now().Format("20060102_150405"), ext)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
