package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/auth"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := func(c echo.Context) error {
		rid := c.Get("request_id").(string)
		if rid == "" {
			t.Error("expected request_id to be generated")
		}
		return c.String(http.StatusOK, "ok")
	}

	if err := RequestID()(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected X-Request-ID response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = RequestID()(okHandler)(c)

	if c.Get("request_id") != "my-custom-id" {
		t.Errorf("expected my-custom-id, got %v", c.Get("request_id"))
	}
	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_ReplacesOversized(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", 200))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = RequestID()(okHandler)(c)

	if got := rec.Header().Get(RequestIDHeader); len(got) > 128 {
		t.Errorf("expected a generated id, got %d chars", len(got))
	}
}

func TestLogger_PassesError(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/citas", nil), httptest.NewRecorder())

	want := apperr.NotFound("Cita no encontrada")
	err := Logger(zerolog.New(os.Stderr))(func(c echo.Context) error { return want })(c)
	if !errors.Is(err, want) {
		t.Fatalf("expected handler error, got %v", err)
	}
}

func TestStatusOf(t *testing.T) {
	if got := statusOf(echo.NewHTTPError(http.StatusTooManyRequests)); got != http.StatusTooManyRequests {
		t.Errorf("echo error: got %d", got)
	}
	if got := statusOf(apperr.Conflict("x")); got != http.StatusConflict {
		t.Errorf("apperr: got %d", got)
	}
	if got := statusOf(errors.New("boom")); got != http.StatusInternalServerError {
		t.Errorf("plain error: got %d", got)
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/panic", nil), httptest.NewRecorder())

	err := Recovery(zerolog.New(os.Stderr))(func(c echo.Context) error {
		panic("test panic")
	})(c)

	if err == nil {
		t.Fatal("expected error from recovered panic")
	}
	if apperr.StatusOf(err) != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", apperr.StatusOf(err))
	}
	if !apperr.IsInternal(err) {
		t.Error("expected the panic to be reported as internal")
	}
}

func TestRecovery_LogsRouteAndUsuario(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/citas/123", nil)
	req = req.WithContext(context.WithValue(req.Context(), auth.UserIDKey, "507f1f77bcf86cd799439011"))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/citas/:id")
	c.Set("request_id", "rid-1")

	var buf bytes.Buffer
	err := Recovery(zerolog.New(&buf))(func(c echo.Context) error {
		panic("nil map")
	})(c)
	if !apperr.IsInternal(err) {
		t.Fatalf("expected internal error, got %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	for k, want := range map[string]string{
		"request_id": "rid-1",
		"method":     http.MethodPost,
		"route":      "/api/citas/:id",
		"usuario_id": "507f1f77bcf86cd799439011",
		"panic":      "nil map",
		"message":    "handler panicked",
	} {
		if line[k] != want {
			t.Errorf("%s = %v, want %q", k, line[k], want)
		}
	}
	if _, ok := line["stack"]; !ok {
		t.Error("expected stack in log line")
	}
}

func TestRecovery_RepanicsAbortHandler(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/stream", nil), httptest.NewRecorder())

	defer func() {
		if r := recover(); r != http.ErrAbortHandler {
			t.Errorf("expected ErrAbortHandler to propagate, got %v", r)
		}
	}()
	_ = Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic(http.ErrAbortHandler)
	})(c)
}

func TestRecovery_PassesThrough(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/ok", nil), httptest.NewRecorder())

	if err := Recovery(zerolog.New(os.Stderr))(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
