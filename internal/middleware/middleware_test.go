package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"catalog-sync/internal/model"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// okHandler records whether it ran and replies 200 "ok".
func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		_, _ = w.Write([]byte("ok"))
	})
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) model.ErrorResponse {
	t.Helper()
	var body model.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}

func TestCORS(t *testing.T) {
	t.Run("preflight is answered without the handler", func(t *testing.T) {
		called := false
		w := httptest.NewRecorder()

		CORS(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/api/products", nil))

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.False(t, called)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Content-Type, X-API-Key, X-Request-ID", w.Header().Get("Access-Control-Allow-Headers"))
		assert.Equal(t, RequestIDHeader, w.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("other methods pass through", func(t *testing.T) {
		for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
			called := false
			w := httptest.NewRecorder()

			CORS(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(method, "/api/products", nil))

			assert.Equal(t, http.StatusOK, w.Code, method)
			assert.True(t, called, method)
			assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
		}
	})
}

func TestAPIKeyAuth(t *testing.T) {
	const key = "test-api-key-123"

	tests := []struct {
		name        string
		path        string
		apiKey      string
		wantStatus  int
		wantMessage string
	}{
		{name: "valid key", path: "/api/products", apiKey: key, wantStatus: http.StatusOK},
		{name: "wrong key", path: "/api/products", apiKey: "nope", wantStatus: http.StatusUnauthorized, wantMessage: "invalid API key"},
		{name: "key with matching prefix", path: "/api/categories", apiKey: key + "-extra", wantStatus: http.StatusUnauthorized, wantMessage: "invalid API key"},
		{name: "missing key", path: "/api/categories", wantStatus: http.StatusUnauthorized, wantMessage: "missing API key"},
		{name: "health needs no key", path: "/health", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.apiKey != "" {
				req.Header.Set(APIKeyHeader, tt.apiKey)
			}
			w := httptest.NewRecorder()

			APIKeyAuth(key, zerolog.Nop())(okHandler(&called)).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantMessage != "" {
				body := decodeError(t, w)
				assert.Equal(t, model.ErrCodeUnauthorised, body.Error)
				assert.Equal(t, tt.wantMessage, body.Message)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	t.Run("incoming id is reused", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		w := httptest.NewRecorder()

		h.ServeHTTP(w, req)

		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
	})

	t.Run("missing id is generated", func(t *testing.T) {
		w := httptest.NewRecorder()

		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Len(t, seen, 36)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("no id outside the middleware", func(t *testing.T) {
		assert.Empty(t, RequestIDFromContext(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
	})
}

func TestLogging(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantLevel string
	}{
		{name: "success logs at info", status: http.StatusCreated, wantLevel: "info"},
		{name: "client error logs at warn", status: http.StatusNotFound, wantLevel: "warn"},
		{name: "server error logs at error", status: http.StatusInternalServerError, wantLevel: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := Logging(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte("hello"))
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/products?categoryId=c1", nil)
			RequestID(h).ServeHTTP(httptest.NewRecorder(), req)

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
			assert.Equal(t, float64(5), entry["bytes"])
			assert.Equal(t, "/api/products", entry["path"])
			assert.Equal(t, "categoryId=c1", entry["query"])
			assert.NotEmpty(t, entry["request_id"])
		})
	}
}

func TestRecovery(t *testing.T) {
	t.Run("panic becomes a JSON 500", func(t *testing.T) {
		w := httptest.NewRecorder()
		h := Recovery(zerolog.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		}))

		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/categories", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
		assert.Equal(t, model.ErrCodeInternalError, decodeError(t, w).Error)
	})

	t.Run("normal responses are untouched", func(t *testing.T) {
		called := false
		w := httptest.NewRecorder()

		Recovery(zerolog.Nop())(okHandler(&called)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, called)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ok", w.Body.String())
	})
}
