package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

var testSigningKey = []byte("test-secret-key-for-unit-tests-only")

func createTestToken(t *testing.T, claims Claims, key []byte) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return tokenStr
}

func validClaims() Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UsuarioID: "65f0c0ffee00000000000001",
		Rol:       RoleMedico,
	}
}

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func expectHTTPError(t *testing.T, err error, code int, msg string) {
	t.Helper()
	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T (%v)", err, err)
	}
	if httpErr.Code != code {
		t.Errorf("expected %d, got %d", code, httpErr.Code)
	}
	if msg != "" && httpErr.Message != msg {
		t.Errorf("expected message %q, got %v", msg, httpErr.Message)
	}
}

func TestJWTMiddleware_MissingHeader(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/pacientes", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	expectHTTPError(t, err, http.StatusUnauthorized, "Token no proporcionado")
}

func TestJWTMiddleware_InvalidFormat(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "Token abc123"},
		{"missing token", "Bearer"},
		{"empty value", "Bearer "},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
			expectHTTPError(t, err, http.StatusUnauthorized, "Token inválido")
		})
	}
}

func TestJWTMiddleware_ValidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(), testSigningKey))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser, gotRole string
	handler := func(c echo.Context) error {
		gotUser = UserIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return c.String(http.StatusOK, "ok")
	}

	if err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(handler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "65f0c0ffee00000000000001" || gotRole != RoleMedico {
		t.Errorf("unexpected identity %q/%q", gotUser, gotRole)
	}
	if c.Get("usuario_id") != gotUser {
		t.Error("usuario_id should also be on the echo context")
	}
}

func TestJWTMiddleware_ExpiredToken(t *testing.T) {
	claims := validClaims()
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, claims, testSigningKey))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	expectHTTPError(t, err, http.StatusUnauthorized, "Token inválido")
}

func TestJWTMiddleware_WrongKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+createTestToken(t, validClaims(), []byte("other-key")))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	expectHTTPError(t, err, http.StatusUnauthorized, "Token inválido")
}

func TestJWTMiddleware_Skipper(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/login", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/login")

	err := JWTMiddleware(JWTConfig{SigningKey: testSigningKey, Skipper: AuthSkipper})(okHandler)(c)
	if err != nil {
		t.Fatalf("expected public path to pass, got %v", err)
	}
}

func TestDevAuthMiddleware_NoToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "65f0c0ffee00000000000009")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser, gotRole string
	handler := func(c echo.Context) error {
		gotUser = UserIDFromContext(c.Request().Context())
		gotRole = RoleFromContext(c.Request().Context())
		return nil
	}
	if err := DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey})(handler)(c); err != nil {
		t.Fatal(err)
	}
	if gotUser != "65f0c0ffee00000000000009" || gotRole != RoleAdmin {
		t.Errorf("unexpected identity %q/%q", gotUser, gotRole)
	}
}

func TestDevAuthMiddleware_DefaultUser(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotUser string
	handler := func(c echo.Context) error {
		gotUser = UserIDFromContext(c.Request().Context())
		return nil
	}
	if err := DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey})(handler)(c); err != nil {
		t.Fatal(err)
	}
	if gotUser != DevUserID {
		t.Errorf("expected dev user, got %q", gotUser)
	}
}

func TestDevAuthMiddleware_ValidatesPresentToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer broken")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := DevAuthMiddleware(JWTConfig{SigningKey: testSigningKey})(okHandler)(c)
	expectHTTPError(t, err, http.StatusUnauthorized, "Token inválido")
}

func TestIssueToken_RoundTrip(t *testing.T) {
	token, err := IssueToken(testSigningKey, "65f0c0ffee00000000000002", RoleEnfermeria, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	claims, err := parseBearer("Bearer "+token, testSigningKey)
	if err != nil {
		t.Fatalf("issued token should parse: %v", err)
	}
	if claims.UsuarioID != "65f0c0ffee00000000000002" || claims.Rol != RoleEnfermeria {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3creta-larga")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "s3creta-larga" {
		t.Fatal("password stored in clear")
	}
	if !CheckPassword(hash, "s3creta-larga") {
		t.Error("expected password to match")
	}
	if CheckPassword(hash, "otra") {
		t.Error("expected mismatch")
	}
}
