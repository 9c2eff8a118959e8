// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/pavuchara/nextgen/internal/metrics"
)

func TestRecoverer(t *testing.T) {
	for _, value := range []any{"something went wrong", 42, strings.NewReader("x")} {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic(value)
		})
		before := testutil.ToFloat64(metrics.Panics)

		rr := httptest.NewRecorder()
		Recoverer(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("status: got %d, want 500", rr.Code)
		}
		if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type: got %q", ct)
		}
		if !strings.Contains(rr.Body.String(), "internal server error") {
			t.Errorf("body: got %q", rr.Body.String())
		}
		if got := testutil.ToFloat64(metrics.Panics); got != before+1 {
			t.Errorf("panics: got %v, want %v", got, before+1)
		}
	}
}

func TestRecovererReraisesAbort(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	})

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	Recoverer(inner).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	t.Error("panic should have propagated")
}

func TestRecovererNoPanic(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Custom", "test-value")
		w.Write([]byte("ok"))
	})

	rr := httptest.NewRecorder()
	Recoverer(inner).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Errorf("got %d %q, want 200 %q", rr.Code, rr.Body.String(), "ok")
	}
	if got := rr.Header().Get("X-Custom"); got != "test-value" {
		t.Errorf("X-Custom: got %q, want %q", got, "test-value")
	}
}
