package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	apierrors "github.com/dlcks7456/diaryCleaning/internal/errors"
	"github.com/dlcks7456/diaryCleaning/internal/infrastructure"
	"github.com/dlcks7456/diaryCleaning/internal/shared/testutil"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = infrastructure.GetTraceID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})
}

func TestStructuredLogger(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/workbook/summary", nil))

	rec := testutil.AssertLogged(t, capture, slog.LevelWarn, "request completed")
	assert.Equal(t, int64(http.StatusNotFound), rec.Attrs["status"])
	assert.Equal(t, "/api/workbook/summary", rec.Attrs["path"])
	assert.NotEmpty(t, rec.Attrs["trace_id"])
}

func TestRecoverer(t *testing.T) {
	logger, capture := testutil.NewTestLogger(t)
	h := Recoverer(apierrors.NewErrorHandler(logger, false))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, apierrors.TypeInternal, body["type"])
	testutil.AssertLogged(t, capture, slog.LevelError, "panic recovered")
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(0.001, 2, apierrors.NewErrorHandler(logger, false), logger)
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	codes := make([]int, 3)
	for i := range codes {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		codes[i] = rec.Code
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
		}
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestTimeout(t *testing.T) {
	var deadline time.Time
	h := Timeout(time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var ok bool
		deadline, ok = r.Context().Deadline()
		assert.True(t, ok)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.WithinDuration(t, time.Now().Add(time.Minute), deadline, 5*time.Second)
}

func TestCORS(t *testing.T) {
	h := CORS(CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	tests := []struct {
		name       string
		method     string
		origin     string
		preflight  bool
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "http://localhost:3000", false, http.StatusOK, "http://localhost:3000"},
		{"foreign origin", http.MethodGet, "http://evil.example", false, http.StatusOK, ""},
		{"preflight", http.MethodOptions, "http://localhost:3000", true, http.StatusNoContent, "http://localhost:3000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/workbook/rows", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPatch)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestOTelMiddleware(t *testing.T) {
	metrics, err := infrastructure.CreateBusinessMetrics(metricnoop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	m := NewOTelMiddleware(tracenoop.NewTracerProvider().Tracer("test"), metrics)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/workbook/errors/{rule}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/workbook/errors/{rule}", routePattern(r))
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("x"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/workbook/errors/R1", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)

	// nil metrics still serves
	bare := NewOTelMiddleware(tracenoop.NewTracerProvider().Tracer("test"), nil)
	rec = httptest.NewRecorder()
	bare.Handler(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOTelResponseWriterKeepsFirstStatus(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}
	_, _ = rw.Write([]byte("ok"))
	rw.WriteHeader(http.StatusInternalServerError)
	assert.Equal(t, http.StatusOK, rw.statusCode)
	assert.Equal(t, int64(2), rw.bytesWritten)
}

type loadBody struct {
	Path  string `json:"path" validate:"required,spreadsheet"`
	Sheet string `json:"sheet"`
}

func TestValidatorDecode(t *testing.T) {
	v := NewValidator(64)

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{"valid", `{"path":"diary.xlsx"}`, 0, ""},
		{"missing path", `{"sheet":"raw"}`, http.StatusBadRequest, "path"},
		{"wrong extension", `{"path":"diary.pdf"}`, http.StatusBadRequest, "path"},
		{"bad json", `{"path":`, http.StatusBadRequest, ""},
		{"empty", ``, http.StatusBadRequest, ""},
		{"too large", `{"path":"` + strings.Repeat("a", 100) + `.csv"}`, http.StatusRequestEntityTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst loadBody
			err := v.Decode(httptest.NewRecorder(), req, &dst)
			if tt.wantStatus == 0 {
				require.NoError(t, err)
				assert.Equal(t, "diary.xlsx", dst.Path)
				return
			}
			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
			if tt.wantField != "" {
				details, ok := apiErr.Details.([]apierrors.ValidationError)
				require.True(t, ok)
				require.Len(t, details, 1)
				assert.Equal(t, tt.wantField, details[0].Field)
			}
		})
	}
}

func TestValidatorNestedField(t *testing.T) {
	type edit struct {
		ID int `json:"unique_id" validate:"gt=0"`
	}
	type body struct {
		Edits []edit `json:"edits" validate:"required,min=1,dive"`
	}
	err := NewValidator(0).Struct(body{Edits: []edit{{ID: 0}}})
	var apiErr *apierrors.APIError
	require.ErrorAs(t, err, &apiErr)
	details := apiErr.Details.([]apierrors.ValidationError)
	require.Len(t, details, 1)
	assert.Equal(t, "edits[0].unique_id", details[0].Field)
	assert.Equal(t, "unique_id must be greater than 0", details[0].Message)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator(apierrors.NewErrorHandler(nil, false), "application/json")(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a,b"))
	req.Header.Set("Content-Type", "text/csv")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(context.Background()))
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
