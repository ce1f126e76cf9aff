package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/config"
	"github.com/sigepren/sigepren/internal/platform/auth"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"rol": auth.RoleFromContext(c.Request().Context())})
	})
}

func testCfg(env string) *config.Config {
	return &config.Config{
		Env:            env,
		JWTSecretKey:   "test-secret",
		JWTTTL:         time.Hour,
		CORSOrigins:    []string{"http://localhost:3000"},
		RateLimitRPS:   100,
		RateLimitBurst: 100,
		RequestTimeout: 5 * time.Second,
		BodyLimit:      "1M",
	}
}

func newTestServer(t *testing.T, env string) *echo.Echo {
	t.Helper()
	cfg := testCfg(env)
	return newServer(cfg, zerolog.Nop(), serverDeps{Handlers: []registrar{pingHandler{}}})
}

func do(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_PublicEndpoints(t *testing.T) {
	e := newTestServer(t, "production")

	rec := do(e, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /: expected 200, got %d", rec.Code)
	}
	var root map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &root); err != nil {
		t.Fatal(err)
	}
	if root["mensaje"] != "API funcionando" {
		t.Errorf("unexpected root body %v", root)
	}

	rec = do(e, http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"ok":true}` {
		t.Errorf("GET /api/health: got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(e, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics: expected 200, got %d", rec.Code)
	}

	if rec := do(e, http.MethodGet, "/api/ping", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("GET /api/ping without token: expected 401, got %d", rec.Code)
	}
}

func TestServer_TokenGrantsAccess(t *testing.T) {
	e := newTestServer(t, "production")

	token, err := auth.IssueToken([]byte("test-secret"), "507f1f77bcf86cd799439011", auth.RoleMedico, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	rec := do(e, http.MethodGet, "/api/ping", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"rol":"medico"`) {
		t.Errorf("expected medico identity, got %s", rec.Body.String())
	}

	if rec := do(e, http.MethodGet, "/api/ping", "not-a-token"); rec.Code != http.StatusUnauthorized {
		t.Errorf("invalid token: expected 401, got %d", rec.Code)
	}
}

func TestServer_DevModeListsRoutes(t *testing.T) {
	e := newTestServer(t, "development")

	rec := do(e, http.MethodGet, "/api/_routes", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		OK   bool        `json:"ok"`
		Data []routeInfo `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if !body.OK {
		t.Fatal("expected ok envelope")
	}
	found := false
	for i, r := range body.Data {
		if r.Path == "/api/ping" && r.Method == http.MethodGet {
			found = true
		}
		if i > 0 && body.Data[i-1].Path > r.Path {
			t.Errorf("routes not sorted: %q before %q", body.Data[i-1].Path, r.Path)
		}
	}
	if !found {
		t.Errorf("expected /api/ping in %v", body.Data)
	}
}

func TestServer_UnknownRouteUsesEnvelope(t *testing.T) {
	e := newTestServer(t, "development")

	rec := do(e, http.MethodGet, "/api/nada", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"ok":false`) {
		t.Errorf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestIndexSpecs(t *testing.T) {
	specs := indexSpecs()
	seen := map[string]bool{}
	for _, s := range specs {
		if s.Model.Options == nil || s.Model.Options.Name == nil {
			t.Fatalf("index on %s has no name", s.Collection)
		}
		key := s.Collection + "." + *s.Model.Options.Name
		if seen[key] {
			t.Errorf("duplicate index %s", key)
		}
		seen[key] = true
	}

	for _, want := range []string{
		"usuarios.uq_usuarios_username",
		"historiales.uq_paciente_gesta",
		"citas.uq_provider_start_scheduled",
		"medicos.uq_medicos_folio",
	} {
		if !seen[want] {
			t.Errorf("missing index %s", want)
		}
	}
}
