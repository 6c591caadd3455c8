package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mensajeria/soporte-api/internal/logging"
	"github.com/mensajeria/soporte-api/internal/metrics"
	"github.com/mensajeria/soporte-api/internal/soporte"
	"github.com/mensajeria/soporte-api/internal/store"
)

// handleWelcome returns the API banner.
func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "API de Soporte de Mensajería",
		"status":  "OK",
		"version": "1.0.0",
	})
}

// handleHealth reports liveness, including database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		logging.FromContext(r.Context()).Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"error":  "base de datos no disponible",
		})
		return
	}

	payload := map[string]any{
		"status":   "healthy",
		"service":  "soporte-api",
		"database": "postgres",
	}

	// Pool stats are available when the store is the real pgx-backed one.
	if ps, ok := s.store.(interface{ Stats() *pgxpool.Stat }); ok {
		if stat := ps.Stats(); stat != nil {
			payload["pool"] = map[string]any{
				"total_conns": stat.TotalConns(),
				"idle_conns":  stat.IdleConns(),
			}
		}
	}

	writeJSON(w, http.StatusOK, payload)
}

// handleCreate registers one new soporte.
func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var params soporte.CreateParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "cuerpo de solicitud inválido")
		return
	}

	log := logging.FromContext(r.Context())
	log.Info("creando soporte", "cedula", params.Cedula)

	rec, err := s.store.Create(r.Context(), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	metrics.RecordsCreated.WithLabelValues("api").Inc()
	log.Info("soporte creado", "id", rec.ID, "cedula", rec.Cedula)
	writeJSON(w, http.StatusCreated, rec)
}

// handleList returns a page of soportes, newest first.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	skip := queryInt(r, "skip", 0)
	limit := queryInt(r, "limit", store.DefaultListLimit)

	records, err := s.store.List(r.Context(), skip, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("soportes listados", "skip", skip, "limit", limit, "count", len(records))
	writeJSON(w, http.StatusOK, records)
}

// handleGet returns one soporte by id.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	rec, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// handleDelete removes one soporte by id.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !deleted {
		s.respondError(w, r, soporte.ErrNotFound)
		return
	}

	metrics.RecordsDeleted.Inc()
	logging.FromContext(r.Context()).Info("soporte eliminado", "id", id)
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Soporte eliminado exitosamente",
		"id":      id,
	})
}

// pathID parses the {id} path parameter, replying 400 on garbage.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "id inválido")
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
