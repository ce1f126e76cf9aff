package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestSecurityHeaders(t *testing.T) {
	tests := []struct {
		name     string
		hsts     bool
		wantHSTS string
	}{
		{"development", false, ""},
		{"production", true, "max-age=31536000; includeSubDomains"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/pacientes", nil), rec)

			if err := SecurityHeaders(tt.hsts)(okHandler)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			for _, kv := range apiHeaders {
				if got := rec.Header().Get(kv[0]); got != kv[1] {
					t.Errorf("header %s: got %q, want %q", kv[0], got, kv[1])
				}
			}
			if got := rec.Header().Get("Strict-Transport-Security"); got != tt.wantHSTS {
				t.Errorf("Strict-Transport-Security: got %q, want %q", got, tt.wantHSTS)
			}
		})
	}
}

func TestSecurityHeaders_SetOnErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/historiales/abc", nil), rec)

	err := SecurityHeaders(false)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "Historial no encontrado")
	})(c)

	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", err)
	}
	if rec.Header().Get("Cache-Control") != "no-store" {
		t.Error("expected no-store on error responses")
	}
}
