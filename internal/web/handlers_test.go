package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mensajeria/soporte-api/internal/config"
	"github.com/mensajeria/soporte-api/internal/importer"
	"github.com/mensajeria/soporte-api/internal/soporte"
)

type fakeStore struct {
	records  []soporte.Record
	createFn func(p soporte.CreateParams) (*soporte.Record, error)
	pingErr  error
	deleted  []int64
}

func (f *fakeStore) Create(_ context.Context, p soporte.CreateParams) (*soporte.Record, error) {
	if f.createFn != nil {
		return f.createFn(p)
	}
	rec := soporte.Record{ID: 1, Nombre: p.Nombre, Direccion: p.Direccion, Cedula: p.Cedula, FechaCreacion: time.Now()}
	return &rec, nil
}

func (f *fakeStore) List(_ context.Context, offset, limit int) ([]soporte.Record, error) {
	if offset >= len(f.records) {
		return []soporte.Record{}, nil
	}
	end := offset + limit
	if end > len(f.records) {
		end = len(f.records)
	}
	return f.records[offset:end], nil
}

func (f *fakeStore) GetByID(_ context.Context, id int64) (*soporte.Record, error) {
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, soporte.ErrNotFound
}

func (f *fakeStore) Delete(_ context.Context, id int64) (bool, error) {
	for _, rec := range f.records {
		if rec.ID == id {
			f.deleted = append(f.deleted, id)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) All(_ context.Context) ([]soporte.Record, error) {
	return f.records, nil
}

func (f *fakeStore) Ping(_ context.Context) error {
	return f.pingErr
}

type fakeImporter struct {
	outcome *importer.Outcome
	err     error
	gotData []byte
	gotLim  int
}

func (f *fakeImporter) Import(_ context.Context, data []byte, limite int) (*importer.Outcome, error) {
	f.gotData = data
	f.gotLim = limite
	if f.err != nil {
		return nil, f.err
	}
	return f.outcome, nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Server.RequestTimeout = 30 * time.Second
	cfg.Upload.MaxFileSize = 10 << 20
	cfg.Upload.Timeout = time.Minute
	cfg.Rate.Enabled = false
	return cfg
}

func newTestServer(st *fakeStore, imp *fakeImporter) *Server {
	if imp == nil {
		imp = &fakeImporter{outcome: &importer.Outcome{}}
	}
	lim := importer.NewLimiter(importer.DefaultMaxConcurrentImports, time.Second)
	return NewServer(st, imp, lim, testConfig())
}

func doRequest(t *testing.T, s *Server, method, target string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	return rr
}

func TestWelcome(t *testing.T) {
	s := newTestServer(&fakeStore{}, nil)
	rr := doRequest(t, s, http.MethodGet, "/", nil, "")

	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "API de Soporte de Mensajería", body["message"])
	assert.Equal(t, "OK", body["status"])
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, nil)
		rr := doRequest(t, s, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "healthy")
	})

	t.Run("database down", func(t *testing.T) {
		s := newTestServer(&fakeStore{pingErr: errors.New("connection refused")}, nil)
		rr := doRequest(t, s, http.MethodGet, "/health", nil, "")

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		assert.Contains(t, rr.Body.String(), "unhealthy")
	})
}

func TestCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, nil)
		payload := bytes.NewBufferString(`{"nombre":"Juan Perez","direccion":"Calle Falsa 123","cedula":"12345678"}`)
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/", payload, "application/json")

		require.Equal(t, http.StatusCreated, rr.Code)

		var rec soporte.Record
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
		assert.Equal(t, "Juan Perez", rec.Nombre)
		assert.Equal(t, "12345678", rec.Cedula)
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, nil)
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/", bytes.NewBufferString("{nope"), "application/json")

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("validation error", func(t *testing.T) {
		st := &fakeStore{createFn: func(p soporte.CreateParams) (*soporte.Record, error) {
			return nil, &soporte.ValidationError{Field: "cedula", Reason: "debe tener al menos 5 caracteres"}
		}}
		s := newTestServer(st, nil)
		payload := bytes.NewBufferString(`{"nombre":"Juan Perez","direccion":"Calle Falsa 123","cedula":"12"}`)
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/", payload, "application/json")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "VALIDACION")
	})

	t.Run("duplicate cedula", func(t *testing.T) {
		st := &fakeStore{createFn: func(p soporte.CreateParams) (*soporte.Record, error) {
			return nil, &soporte.DuplicateError{Cedula: p.Cedula}
		}}
		s := newTestServer(st, nil)
		payload := bytes.NewBufferString(`{"nombre":"Juan Perez","direccion":"Calle Falsa 123","cedula":"12345678"}`)
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/", payload, "application/json")

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "DUPLICADO")
	})
}

func TestList(t *testing.T) {
	records := make([]soporte.Record, 5)
	for i := range records {
		records[i] = soporte.Record{ID: int64(i + 1), Nombre: fmt.Sprintf("Persona %d", i+1), Cedula: fmt.Sprintf("1000%d", i)}
	}

	t.Run("default page", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)

		var got []soporte.Record
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Len(t, got, 5)
	})

	t.Run("skip and limit", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/?skip=2&limit=2", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)

		var got []soporte.Record
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		require.Len(t, got, 2)
		assert.Equal(t, int64(3), got[0].ID)
	})
}

func TestGet(t *testing.T) {
	records := []soporte.Record{{ID: 7, Nombre: "Maria Lopez", Cedula: "55555"}}

	t.Run("found", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/7", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "Maria Lopez")
	})

	t.Run("missing", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/99", nil, "")

		require.Equal(t, http.StatusNotFound, rr.Code)
		assert.Contains(t, rr.Body.String(), "NO_ENCONTRADO")
	})

	t.Run("garbage id", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/abc", nil, "")

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestDelete(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		st := &fakeStore{records: []soporte.Record{{ID: 3, Cedula: "33333"}}}
		s := newTestServer(st, nil)
		rr := doRequest(t, s, http.MethodDelete, "/api/soportes/3", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), "eliminado exitosamente")
		assert.Equal(t, []int64{3}, st.deleted)
	})

	t.Run("missing", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, nil)
		rr := doRequest(t, s, http.MethodDelete, "/api/soportes/3", nil, "")

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func multipartFile(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestUploadExcel(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		imp := &fakeImporter{outcome: &importer.Outcome{
			Estadisticas: importer.Stats{FilasProcesadas: 2, Columnas: []string{"nombre", "cedula", "direccion"}},
			Resultado:    importer.Result{TotalProcesados: 2, Exitosos: 2, Errores: []importer.RowError{}},
		}}
		s := newTestServer(&fakeStore{}, imp)

		body, ct := multipartFile(t, "file", "soportes.xlsx", []byte("spreadsheet bytes"))
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/upload-excel/?limite=50", body, ct)

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 50, imp.gotLim)
		assert.Equal(t, []byte("spreadsheet bytes"), imp.gotData)

		var got importer.Outcome
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
		assert.Equal(t, 2, got.Resultado.Exitosos)
	})

	t.Run("rejects non spreadsheet extension", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, &fakeImporter{})
		body, ct := multipartFile(t, "file", "soportes.csv", []byte("a,b"))
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/upload-excel", body, ct)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "Excel")
	})

	t.Run("missing file field", func(t *testing.T) {
		s := newTestServer(&fakeStore{}, &fakeImporter{})
		body, ct := multipartFile(t, "document", "soportes.xlsx", []byte("x"))
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/upload-excel", body, ct)

		require.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unparsable file reported as format error", func(t *testing.T) {
		imp := &fakeImporter{err: &soporte.FormatError{Reason: "Error al procesar el archivo Excel"}}
		s := newTestServer(&fakeStore{}, imp)
		body, ct := multipartFile(t, "file", "soportes.xlsx", []byte("not really xlsx"))
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/upload-excel", body, ct)

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Contains(t, rr.Body.String(), "FORMATO")
	})

	t.Run("busy limiter returns 429", func(t *testing.T) {
		imp := &fakeImporter{outcome: &importer.Outcome{}}
		lim := importer.NewLimiter(1, 50*time.Millisecond)
		s := NewServer(&fakeStore{}, imp, lim, testConfig())

		require.NoError(t, lim.Acquire(context.Background()))
		defer lim.Release()

		body, ct := multipartFile(t, "file", "soportes.xlsx", []byte("x"))
		rr := doRequest(t, s, http.MethodPost, "/api/soportes/upload-excel", body, ct)

		require.Equal(t, http.StatusTooManyRequests, rr.Code)
	})
}

func TestExport(t *testing.T) {
	records := []soporte.Record{
		{ID: 1, Nombre: "Juan Perez", Direccion: "Calle 1", Cedula: "11111", FechaCreacion: time.Now()},
		{ID: 2, Nombre: "Maria Lopez", Direccion: "Calle 2", Cedula: "22222", FechaCreacion: time.Now()},
	}

	t.Run("excel", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/export/excel", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment; filename=soportes_")
		assert.Contains(t, rr.Header().Get("Content-Disposition"), ".xlsx")
		assert.NotZero(t, rr.Body.Len())
	})

	t.Run("pdf", func(t *testing.T) {
		s := newTestServer(&fakeStore{records: records}, nil)
		rr := doRequest(t, s, http.MethodGet, "/api/soportes/export/pdf", nil, "")

		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
		assert.True(t, strings.HasPrefix(rr.Body.String(), "%PDF-"))
	})
}

func TestSecurityHeaders(t *testing.T) {
	s := newTestServer(&fakeStore{}, nil)
	rr := doRequest(t, s, http.MethodGet, "/health", nil, "")

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(&fakeStore{}, nil)
	req := httptest.NewRequest(http.MethodOptions, "/api/soportes/", nil)
	req.Header.Set("Origin", "https://frontend.example")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
}
