package usuario

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

type mockRepo struct {
	items map[primitive.ObjectID]*Usuario
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[primitive.ObjectID]*Usuario{}}
}

func (r *mockRepo) usernameTaken(username string, except primitive.ObjectID) bool {
	for id, u := range r.items {
		if id != except && u.Username == username {
			return true
		}
	}
	return false
}

func (r *mockRepo) Insert(_ context.Context, u *Usuario) (primitive.ObjectID, error) {
	if r.usernameTaken(u.Username, primitive.NilObjectID) {
		return primitive.NilObjectID, db.ErrDuplicate
	}
	cp := *u
	cp.ID = primitive.NewObjectID()
	r.items[cp.ID] = &cp
	return cp.ID, nil
}

func (r *mockRepo) FindByID(_ context.Context, id primitive.ObjectID) (*Usuario, error) {
	u, ok := r.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *mockRepo) FindByUsername(_ context.Context, username string) (*Usuario, error) {
	for _, u := range r.items {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (r *mockRepo) List(_ context.Context, p pagination.Params) ([]*Usuario, int64, error) {
	var out []*Usuario
	for _, u := range r.items {
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r *mockRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M) (bool, error) {
	u, ok := r.items[id]
	if !ok {
		return false, nil
	}
	if name, ok := set["username"].(string); ok && r.usernameTaken(name, id) {
		return false, db.ErrDuplicate
	}
	for k, v := range set {
		switch k {
		case "nombre":
			u.Nombre = v.(string)
		case "username":
			u.Username = v.(string)
		case "password":
			u.Password = v.(string)
		case "rol":
			u.Rol = v.(string)
		case "telefono":
			if v == nil {
				u.Telefono = nil
			} else {
				tel := v.(string)
				u.Telefono = &tel
			}
		case "updated_at":
			u.UpdatedAt = v.(time.Time)
		}
	}
	return true, nil
}

func (r *mockRepo) Delete(_ context.Context, id primitive.ObjectID) (bool, error) {
	_, ok := r.items[id]
	delete(r.items, id)
	return ok, nil
}

var signingKey = []byte("test")

func newService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, TokenConfig{SigningKey: signingKey, TTL: time.Hour}, zerolog.New(io.Discard))
	return svc, repo
}

func nuevo(overrides map[string]any) map[string]any {
	p := map[string]any{
		"nombre":   "Lucía",
		"apellido": "Paz",
		"correo":   "Lucia@Clinica.mx",
		"username": "lpaz",
		"password": "secreto123",
		"rol":      auth.RoleMedico,
	}
	for k, v := range overrides {
		p[k] = v
	}
	return p
}

func requireAppErr(t *testing.T, err error, status int, msg string) *apperr.Error {
	t.Helper()
	appErr, ok := apperr.As(err)
	require.True(t, ok, "expected *apperr.Error, got %v", err)
	assert.Equal(t, status, appErr.HTTPStatus)
	assert.Equal(t, msg, appErr.Message)
	return appErr
}

func TestCrear(t *testing.T) {
	svc, repo := newService()
	u, err := svc.Crear(context.Background(), nuevo(map[string]any{"telefono": "555-0101"}))
	require.NoError(t, err)

	stored := repo.items[u.ID]
	assert.Equal(t, "lucia@clinica.mx", stored.Correo)
	assert.NotEqual(t, "secreto123", stored.Password)
	assert.True(t, auth.CheckPassword(stored.Password, "secreto123"))
	require.NotNil(t, stored.Telefono)
	assert.Equal(t, "555-0101", *stored.Telefono)
	assert.NotContains(t, u.Render(), "password")
}

func TestCrear_Validation(t *testing.T) {
	svc, _ := newService()
	_, err := svc.Crear(context.Background(), map[string]any{
		"nombre":   "Lucía",
		"correo":   "sin-arroba",
		"username": "lpaz",
		"password": "corta",
		"rol":      "superuser",
	})
	appErr := requireAppErr(t, err, http.StatusUnprocessableEntity, "Validación fallida")
	assert.Equal(t, map[string]string{
		"apellido": "El campo 'apellido' es obligatorio",
		"correo":   "Formato de correo inválido",
		"password": "Debe tener al menos 8 caracteres",
		"rol":      "Rol no válido",
	}, appErr.Details)
}

func TestCrear_DuplicateUsername(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Crear(ctx, nuevo(nil))
	require.NoError(t, err)
	_, err = svc.Crear(ctx, nuevo(nil))
	requireAppErr(t, err, http.StatusConflict, "El username ya existe")
}

func TestActualizar_RehashesPassword(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	u, err := svc.Crear(ctx, nuevo(nil))
	require.NoError(t, err)

	got, err := svc.Actualizar(ctx, u.ID.Hex(), map[string]any{"password": "otraClave99", "rol": auth.RoleRecepcion})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleRecepcion, got.Rol)
	assert.True(t, auth.CheckPassword(repo.items[u.ID].Password, "otraClave99"))
	assert.False(t, auth.CheckPassword(repo.items[u.ID].Password, "secreto123"))

	_, err = svc.Actualizar(ctx, u.ID.Hex(), map[string]any{"password": ""})
	requireAppErr(t, err, http.StatusBadRequest, "No se enviaron campos válidos para actualizar")

	_, err = svc.Actualizar(ctx, primitive.NewObjectID().Hex(), map[string]any{"nombre": "X"})
	requireAppErr(t, err, http.StatusNotFound, "Usuario no encontrado")
}

func TestActualizar_DuplicateUsername(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Crear(ctx, nuevo(nil))
	require.NoError(t, err)
	other, err := svc.Crear(ctx, nuevo(map[string]any{"username": "mrios"}))
	require.NoError(t, err)

	_, err = svc.Actualizar(ctx, other.ID.Hex(), map[string]any{"username": "lpaz"})
	requireAppErr(t, err, http.StatusConflict, "El username ya existe")
}

func TestEliminar(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	u, err := svc.Crear(ctx, nuevo(nil))
	require.NoError(t, err)

	require.NoError(t, svc.Eliminar(ctx, u.ID.Hex()))
	requireAppErr(t, svc.Eliminar(ctx, u.ID.Hex()), http.StatusNotFound, "Usuario no encontrado")
	requireAppErr(t, svc.Eliminar(ctx, "zzz"), http.StatusUnprocessableEntity, "id no es un ObjectId válido")
}

func TestLogin(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	u, err := svc.Crear(ctx, nuevo(nil))
	require.NoError(t, err)

	out, err := svc.Login(ctx, " lpaz ", "secreto123")
	require.NoError(t, err)
	assert.Equal(t, "Autenticación exitosa", out["mensaje"])
	assert.Equal(t, map[string]any{"id": u.ID.Hex(), "nombre": "Lucía", "rol": auth.RoleMedico}, out["usuario"])

	var claims auth.Claims
	_, err = jwt.ParseWithClaims(out["token"].(string), &claims, func(*jwt.Token) (any, error) { return signingKey, nil })
	require.NoError(t, err)
	assert.Equal(t, u.ID.Hex(), claims.UsuarioID)
	assert.Equal(t, auth.RoleMedico, claims.Rol)
}

func TestLogin_Failures(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Crear(ctx, nuevo(nil))
	require.NoError(t, err)

	_, err = svc.Login(ctx, "", "x")
	requireAppErr(t, err, http.StatusBadRequest, "Username y password son requeridos")

	_, err = svc.Login(ctx, "nadie", "secreto123")
	unknown := requireAppErr(t, err, http.StatusUnauthorized, "Credenciales inválidas")

	_, err = svc.Login(ctx, "lpaz", "incorrecta")
	wrong := requireAppErr(t, err, http.StatusUnauthorized, "Credenciales inválidas")
	assert.Equal(t, unknown.Message, wrong.Message)
}
