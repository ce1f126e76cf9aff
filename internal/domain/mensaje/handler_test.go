package mensaje

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/response"
)

func newTestServer(t *testing.T) (*echo.Echo, *fixture) {
	t.Helper()
	f := newFixture()
	e := echo.New()
	e.HTTPErrorHandler = response.HTTPErrorHandler(zerolog.New(io.Discard))
	api := e.Group("/api", auth.DevAuthMiddleware(auth.JWTConfig{SigningKey: []byte("test")}))
	NewHandler(f.svc).RegisterRoutes(api)
	return e, f
}

func do(e *echo.Echo, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var env map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &env)
	return rec, env
}

func TestHandler_Lifecycle(t *testing.T) {
	e, f := newTestServer(t)

	rec, env := do(e, http.MethodPost, "/api/mensajes", `{"codigo_expediente":"800A9LPF01019000","description":"Recordatorio"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	id := env["data"].(map[string]any)["id"].(string)
	stored := f.repo.records[f.repo.onlyID(t)]
	if stored.CreatedBy == nil || stored.CreatedBy.Hex() != "000000000000000000000001" {
		t.Errorf("created_by should come from the token, got %v", stored.CreatedBy)
	}

	rec, env = do(e, http.MethodGet, "/api/mensajes?expediente=800A9LPF01019000", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body.String())
	}
	data := env["data"].(map[string]any)
	if data["total"] != float64(1) || data["per_page"] != float64(20) {
		t.Errorf("unexpected page: %v", data)
	}

	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		rec, _ = do(e, method, "/api/mensajes/"+id+"/read", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s read: %d", method, rec.Code)
		}
	}
	rec, env = do(e, http.MethodPatch, "/api/mensajes/"+id, `{"title":"Nuevo"}`)
	if rec.Code != http.StatusOK || env["data"].(map[string]any)["updated"] != float64(1) {
		t.Errorf("patch: %d %s", rec.Code, rec.Body.String())
	}
	rec, _ = do(e, http.MethodDelete, "/api/mensajes/"+id+"?hard=yes", "")
	if rec.Code != http.StatusOK || len(f.repo.records) != 0 {
		t.Errorf("hard delete: %d, %d left", rec.Code, len(f.repo.records))
	}
}

func (m *mockRepo) onlyID(t *testing.T) (id primitive.ObjectID) {
	t.Helper()
	if len(m.records) != 1 {
		t.Fatalf("expected one mensaje, got %d", len(m.records))
	}
	for k := range m.records {
		id = k
	}
	return id
}

func TestHandler_Errors(t *testing.T) {
	e, _ := newTestServer(t)
	tests := []struct {
		name, method, path, body string
		status                   int
		msg                      string
	}{
		{"ambiguous", http.MethodGet, "/api/mensajes?q=l%C3%B3pez", "", 409, "Ambiguo: coinciden varios pacientes"},
		{"unknown", http.MethodPost, "/api/mensajes", `{"q":"zzz","description":"x"}`, 404, "Paciente no encontrado"},
		{"bad id", http.MethodPatch, "/api/mensajes/xyz/read", "", 422, "id invalido"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec, env := do(e, tc.method, tc.path, tc.body)
			if rec.Code != tc.status || env["error"] != tc.msg {
				t.Errorf("expected %d %q, got %d %s", tc.status, tc.msg, rec.Code, rec.Body.String())
			}
		})
	}
}
