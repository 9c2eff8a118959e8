package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pavuchara/nextgen/internal/metrics"
)

func TestLogger(t *testing.T) {
	t.Run("passes the status through", func(t *testing.T) {
		var called bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		rr := httptest.NewRecorder()
		Logger(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))

		if !called {
			t.Error("next handler should have been called")
		}
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status: got %d, want 503", rr.Code)
		}
	})

	t.Run("labels metrics with the route pattern", func(t *testing.T) {
		r := chi.NewRouter()
		r.Use(Logger)
		r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("item"))
		})

		before := testutil.CollectAndCount(metrics.HTTPRequestDuration)
		for _, path := range []string{"/items/1", "/items/2"} {
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
			if rr.Body.String() != "item" {
				t.Errorf("body: got %q, want %q", rr.Body.String(), "item")
			}
		}

		// Both requests share one series.
		if got := testutil.CollectAndCount(metrics.HTTPRequestDuration); got != before+1 {
			t.Errorf("series: got %d, want %d", got, before+1)
		}
	})

	t.Run("unmatched requests share a label", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/random/path", nil)
		if got := route(req); got != "unmatched" {
			t.Errorf("route: got %q, want %q", got, "unmatched")
		}
	})
}

func TestResponseWriter(t *testing.T) {
	t.Run("WriteHeader keeps the first code", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

		rw.WriteHeader(http.StatusNotFound)
		rw.WriteHeader(http.StatusInternalServerError)

		if rw.statusCode != http.StatusNotFound {
			t.Errorf("statusCode: got %d, want 404", rw.statusCode)
		}
	})

	t.Run("Write implies 200", func(t *testing.T) {
		rw := &responseWriter{ResponseWriter: httptest.NewRecorder()}

		n, err := rw.Write([]byte("test"))
		if err != nil {
			t.Fatalf("Write error: %v", err)
		}
		if n != 4 {
			t.Errorf("bytes written: got %d, want 4", n)
		}
		if rw.statusCode != http.StatusOK || !rw.written {
			t.Errorf("got status %d written %v, want 200 true", rw.statusCode, rw.written)
		}
	})
}
