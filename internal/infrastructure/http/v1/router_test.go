package v1_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reportengine/internal/domain/records"
	"reportengine/internal/domain/reports"
	v1 "reportengine/internal/infrastructure/http/v1"
	"reportengine/internal/infrastructure/http/v1/handlers"
	"reportengine/internal/infrastructure/http/v1/middleware"
	"reportengine/internal/infrastructure/storage/memory"
	"reportengine/pkg/logger"
)

const org = "org-1"

var fixedNow = time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)

type failingDB struct{}

func (failingDB) Ping(context.Context) error { return errors.New("connection refused") }

func newRouter(t *testing.T, db handlers.Pinger) *gin.Engine {
	t.Helper()

	store := memory.New()
	store.Add("invoices", org,
		reports.Row{"id": "i1", "customer_name": "Acme", "status": "paid", "amount": 100, "issued_at": "2024-01-05"},
		reports.Row{"id": "i2", "customer_name": "Globex", "status": "draft", "amount": 40, "issued_at": "2024-01-17"},
		reports.Row{"id": "i3", "customer_name": "Acme", "status": "paid", "amount": 250, "issued_at": "2024-02-11"},
	)
	store.Add("invoices", "org-2", reports.Row{"id": "z1", "status": "paid", "amount": 9999})

	svc := reports.NewService(store, records.MustRegistry(), reports.Options{
		Now: func() time.Time { return fixedNow },
	})

	return v1.NewRouter(v1.RouterConfig{
		Logger:    logger.Nop(),
		Service:   svc,
		DB:        db,
		Version:   "test",
		GzipLevel: -1,
		Mode:      gin.TestMode,
	})
}

func do(r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, _ := json.Marshal(b)
			reader = bytes.NewBuffer(raw)
		}
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func scoped() map[string]string {
	return map[string]string{middleware.HeaderOrganizationID: org, middleware.HeaderUserID: "u-1"}
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		db         handlers.Pinger
		path       string
		wantStatus int
		wantDB     string
	}{
		{name: "live", path: "/health/live", wantStatus: http.StatusOK},
		{name: "ready without database", path: "/health/ready", wantStatus: http.StatusOK, wantDB: "disabled"},
		{name: "ready with failing database", db: failingDB{}, path: "/health/ready", wantStatus: http.StatusServiceUnavailable, wantDB: "unhealthy: connection refused"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(t, tt.db), http.MethodGet, tt.path, nil, nil)
			assert.Equal(t, tt.wantStatus, w.Code)

			if tt.wantDB != "" {
				body := decode(t, w)
				checks := body["checks"].(map[string]any)
				assert.Equal(t, tt.wantDB, checks["database"])
			}
		})
	}
}

func TestTraceHeaders(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodGet, "/health/live", nil, map[string]string{middleware.HeaderRequestID: "req-42"})

	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderTraceID))
}

func TestEntities(t *testing.T) {
	r := newRouter(t, nil)

	w := do(r, http.MethodGet, "/api/v1/reports/entities", nil, scoped())
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 4, body["total"])

	w = do(r, http.MethodGet, "/api/v1/reports/entities/invoices", nil, scoped())
	require.Equal(t, http.StatusOK, w.Code)
	body = decode(t, w)
	assert.Equal(t, "invoices", body["name"])
	assert.NotEmpty(t, body["fields"])
	assert.NotContains(t, w.Body.String(), "organization_id")

	w = do(r, http.MethodGet, "/api/v1/reports/entities/ledgers", nil, scoped())
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])
}

func TestExecute_Grouped(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodPost, "/api/v1/reports/execute", map[string]any{
		"entity":  "invoices",
		"groupBy": []map[string]any{{"field": "status"}},
		"aggregations": []map[string]any{
			{"field": "amount", "function": "sum", "label": "total"},
			{"field": "*", "function": "count"},
		},
	}, scoped())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 2, body["totalRows"])
	assert.Equal(t, []any{"status", "total", "count"}, body["columns"])

	byStatus := map[string]map[string]any{}
	for _, item := range body["data"].([]any) {
		row := item.(map[string]any)
		byStatus[row["status"].(string)] = row
	}
	assert.EqualValues(t, 350, byStatus["paid"]["total"])
	assert.EqualValues(t, 2, byStatus["paid"]["count"])
	assert.EqualValues(t, 40, byStatus["draft"]["total"])
}

func TestExecute_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       any
		headers    map[string]string
		wantStatus int
		wantCode   string
		wantDetail map[string]any
	}{
		{
			name:       "malformed json",
			body:       `{"entity":`,
			headers:    scoped(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "missing entity",
			body:       map[string]any{"fields": []string{"id"}},
			headers:    scoped(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "VALIDATION_ERROR",
		},
		{
			name:       "unknown field",
			body:       map[string]any{"entity": "invoices", "fields": []string{"amount_x"}},
			headers:    scoped(),
			wantStatus: http.StatusBadRequest,
			wantCode:   "CONFIGURATION_ERROR",
			wantDetail: map[string]any{"field": "amount_x"},
		},
		{
			name:       "no organization",
			body:       map[string]any{"entity": "invoices"},
			wantStatus: http.StatusForbidden,
			wantCode:   "FORBIDDEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(newRouter(t, nil), http.MethodPost, "/api/v1/reports/execute", tt.body, tt.headers)
			assert.Equal(t, tt.wantStatus, w.Code)

			body := decode(t, w)
			assert.Equal(t, tt.wantCode, body["code"])
			for k, v := range tt.wantDetail {
				details := body["details"].(map[string]any)
				assert.Equal(t, v, details[k])
			}
		})
	}
}

func TestExport_CSV(t *testing.T) {
	w := do(newRouter(t, nil), http.MethodPost, "/api/v1/reports/export?format=csv", map[string]any{
		"entity":  "invoices",
		"fields":  []string{"id", "customer_name"},
		"sorting": []map[string]any{{"field": "id"}},
	}, scoped())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoices-20240320.csv"`, w.Header().Get("Content-Disposition"))

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Id", "Customer Name"},
		{"i1", "Acme"},
		{"i2", "Globex"},
		{"i3", "Acme"},
	}, records)
}

func TestExport_Errors(t *testing.T) {
	r := newRouter(t, nil)

	w := do(r, http.MethodPost, "/api/v1/reports/export?format=pdf", map[string]any{"entity": "invoices"}, scoped())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, w)["code"])

	w = do(r, http.MethodPost, "/api/v1/reports/export?format=xlsx", map[string]any{"entity": "ledgers"}, scoped())
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "CONFIGURATION_ERROR", decode(t, w)["code"])
}

func TestGzip(t *testing.T) {
	svc := reports.NewService(memory.New(), records.MustRegistry(), reports.Options{})
	r := v1.NewRouter(v1.RouterConfig{Logger: logger.Nop(), Service: svc, Mode: gin.TestMode})

	w := do(r, http.MethodGet, "/api/v1/reports/entities", nil, map[string]string{"Accept-Encoding": "gzip"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "gzip", w.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	raw, err := io.ReadAll(zr)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.EqualValues(t, 4, body["total"])
}
