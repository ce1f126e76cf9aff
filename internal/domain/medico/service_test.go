package medico

import (
	"context"
	"io"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

type mockRepo struct {
	items map[primitive.ObjectID]*Medico
	// staleFolio makes LastFolio lag behind this many times.
	staleFolio int
	lastList   Filter
	lastSort   Sort
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: map[primitive.ObjectID]*Medico{}}
}

func (r *mockRepo) taken(m *Medico) error {
	for _, o := range r.items {
		if o.ID == m.ID {
			continue
		}
		switch {
		case o.Folio == m.Folio:
			return &DuplicateError{Field: "folio"}
		case o.Cedula == m.Cedula:
			return &DuplicateError{Field: "cedula"}
		case m.Correo != "" && o.Correo == m.Correo:
			return &DuplicateError{Field: "correo"}
		}
	}
	return nil
}

func (r *mockRepo) Insert(_ context.Context, m *Medico) (primitive.ObjectID, error) {
	if err := r.taken(m); err != nil {
		return primitive.NilObjectID, err
	}
	cp := *m
	cp.ID = primitive.NewObjectID()
	r.items[cp.ID] = &cp
	return cp.ID, nil
}

func (r *mockRepo) FindByID(_ context.Context, id primitive.ObjectID) (*Medico, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *mockRepo) Update(_ context.Context, id primitive.ObjectID, set bson.M, unset []string) (*Medico, error) {
	m, ok := r.items[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *m
	cp.apply(changes{set: set, unset: unset})
	if t, ok := set["updated_at"].(time.Time); ok {
		cp.UpdatedAt = t
	}
	if err := r.taken(&cp); err != nil {
		return nil, err
	}
	r.items[id] = &cp
	out := cp
	return &out, nil
}

func (r *mockRepo) List(_ context.Context, f Filter, s Sort, skip, limit int64) ([]*Medico, int64, error) {
	r.lastList, r.lastSort = f, s
	var all []*Medico
	for _, m := range r.items {
		if f.Estado != "" && m.Estado != f.Estado {
			continue
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Folio < all[j].Folio })
	total := int64(len(all))
	if skip >= total {
		return nil, total, nil
	}
	return all[skip:min(skip+limit, total)], total, nil
}

func (r *mockRepo) LastFolio(context.Context) (int, error) {
	n := len(r.items)
	if r.staleFolio > 0 {
		r.staleFolio--
		n--
	}
	return n, nil
}

var baseNow = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

const usuarioID = "000000000000000000000002"

func newService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo, zerolog.New(io.Discard))
	svc.now = func() time.Time { return baseNow }
	return svc, repo
}

func valid(overrides map[string]any) map[string]any {
	p := map[string]any{
		"nombre_completo":  "Ana López",
		"cedula":           "12345678",
		"especialidad":     "Ginecología y Obstetricia",
		"sexo":             "femenino",
		"fecha_nacimiento": "1985-03-14",
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

func TestValidar_Crear(t *testing.T) {
	c, err := validar(valid(map[string]any{
		"correo":        "  Ana@Clinica.MX ",
		"telefono":      "",
		"observaciones": "",
	}), crear)
	require.NoError(t, err)
	assert.Equal(t, "ana@clinica.mx", c.set["correo"])
	assert.Equal(t, EstadoActivo, c.set["estado"])
	assert.Equal(t, time.Date(1985, 3, 14, 0, 0, 0, 0, time.UTC), c.set["fecha_nacimiento"])
	assert.Nil(t, c.unset)
	assert.NotContains(t, c.set, "telefono")
}

func TestValidar_Errors(t *testing.T) {
	_, err := validar(map[string]any{
		"folio":            "X-1",
		"nombre_completo":  "Al",
		"especialidad":     "Podología",
		"sexo":             "F",
		"fecha_nacimiento": "14/03/1985",
		"correo":           "no-es-correo",
		"telefono":         "abc",
		"estado":           "suspendido",
	}, crear)
	appErr := requireAppErr(t, err, http.StatusUnprocessableEntity, "Validación fallida")
	assert.Equal(t, map[string]string{
		"folio":            "El folio debe tener formato MED-0001",
		"nombre_completo":  "Debe tener al menos 3 caracteres",
		"cedula":           "El campo 'cedula' es obligatorio",
		"especialidad":     "Especialidad no válida",
		"sexo":             "Sexo inválido",
		"fecha_nacimiento": "Formato de fecha inválido (usa ISO 8601, ej. 1990-05-23)",
		"correo":           "Formato de correo inválido",
		"telefono":         "Formato de teléfono inválido",
		"estado":           "Debe ser 'activo' o 'inactivo'",
	}, appErr.Details)
}

func TestValidar_ActualizarUnsetsEmptyOptionals(t *testing.T) {
	c, err := validar(map[string]any{"telefono": " ", "correo": "", "observaciones": "Turno matutino"}, actualizar)
	require.NoError(t, err)
	assert.Equal(t, []string{"correo", "telefono"}, c.unset)
	assert.Equal(t, bson.M{"observaciones": "Turno matutino"}, c.set)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "", clip(nil, 5))
	assert.Equal(t, "ñandú", clip("  ñandúes ", 5))
}

func TestCrear_GeneratesFolio(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	m, err := svc.Crear(ctx, valid(nil), usuarioID)
	require.NoError(t, err)
	assert.Equal(t, "MED-0001", m.Folio)
	assert.Equal(t, EstadoActivo, m.Estado)
	assert.Equal(t, baseNow, m.CreatedAt)
	require.NotNil(t, m.CreatedBy)
	assert.Equal(t, usuarioID, m.CreatedBy.Hex())

	m2, err := svc.Crear(ctx, valid(map[string]any{"cedula": "87654321"}), usuarioID)
	require.NoError(t, err)
	assert.Equal(t, "MED-0002", m2.Folio)
}

func TestCrear_RetriesTakenFolio(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	_, err := svc.Crear(ctx, valid(nil), usuarioID)
	require.NoError(t, err)

	repo.staleFolio = 1
	m, err := svc.Crear(ctx, valid(map[string]any{"cedula": "87654321"}), usuarioID)
	require.NoError(t, err)
	assert.Equal(t, "MED-0002", m.Folio)
}

func TestCrear_Duplicates(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Crear(ctx, valid(map[string]any{"folio": "med-0100", "correo": "ana@clinica.mx"}), usuarioID)
	require.NoError(t, err)

	_, err = svc.Crear(ctx, valid(map[string]any{"folio": "MED-0100", "cedula": "999"}), usuarioID)
	requireAppErr(t, err, http.StatusConflict, "El folio ya existe")

	_, err = svc.Crear(ctx, valid(nil), usuarioID)
	requireAppErr(t, err, http.StatusConflict, "La cédula ya existe")

	_, err = svc.Crear(ctx, valid(map[string]any{"cedula": "999", "correo": "ANA@clinica.mx"}), usuarioID)
	requireAppErr(t, err, http.StatusConflict, "El correo ya existe")
}

func TestObtener(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	m, err := svc.Crear(ctx, valid(nil), usuarioID)
	require.NoError(t, err)

	got, err := svc.Obtener(ctx, m.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, "Ana López", got.NombreCompleto)

	_, err = svc.Obtener(ctx, primitive.NewObjectID().Hex())
	requireAppErr(t, err, http.StatusNotFound, "Médico no encontrado")

	_, err = svc.Obtener(ctx, "nope")
	requireAppErr(t, err, http.StatusUnprocessableEntity, "id no es un ObjectId válido")
}

func TestActualizar(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	m, err := svc.Crear(ctx, valid(map[string]any{"telefono": "555 123 4567"}), usuarioID)
	require.NoError(t, err)

	later := baseNow.Add(time.Hour)
	svc.now = func() time.Time { return later }
	got, err := svc.Actualizar(ctx, m.ID.Hex(), map[string]any{"especialidad": "Neonatología", "telefono": ""}, usuarioID)
	require.NoError(t, err)
	assert.Equal(t, "Neonatología", got.Especialidad)
	assert.Empty(t, got.Telefono)
	assert.Equal(t, later, got.UpdatedAt)

	_, err = svc.Actualizar(ctx, m.ID.Hex(), map[string]any{}, usuarioID)
	requireAppErr(t, err, http.StatusUnprocessableEntity, "Nada para actualizar")

	_, err = svc.Actualizar(ctx, primitive.NewObjectID().Hex(), map[string]any{"sexo": "otro"}, usuarioID)
	requireAppErr(t, err, http.StatusNotFound, "Médico no encontrado")
}

func TestEliminar_Inactivates(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	m, err := svc.Crear(ctx, valid(nil), usuarioID)
	require.NoError(t, err)

	got, err := svc.Eliminar(ctx, m.ID.Hex(), usuarioID)
	require.NoError(t, err)
	assert.Equal(t, EstadoInactivo, got.Estado)
	assert.Len(t, repo.items, 1)
}

func TestListar(t *testing.T) {
	svc, repo := newService()
	ctx := context.Background()
	for _, cedula := range []string{"111", "222", "333"} {
		_, err := svc.Crear(ctx, valid(map[string]any{"cedula": cedula}), usuarioID)
		require.NoError(t, err)
	}

	out, err := svc.Listar(ctx, ListParams{Page: 2, Limit: 2, Sort: "folio"})
	require.NoError(t, err)
	assert.Equal(t, 2, out["page"])
	assert.Equal(t, 2, out["limit"])
	assert.Equal(t, int64(3), out["total"])
	assert.Equal(t, false, out["has_more"])
	items := out["items"].([]map[string]any)
	require.Len(t, items, 1)
	assert.Equal(t, "MED-0003", items[0]["folio"])
	assert.Equal(t, Sort{Field: "folio"}, repo.lastSort)

	out, err = svc.Listar(ctx, ListParams{Limit: 1000, Sort: "-password", Filter: Filter{Q: "  ana ", Estado: "x", Sexo: "x"}})
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, out["limit"])
	assert.Equal(t, 1, out["page"])
	assert.Equal(t, Sort{Field: "updated_at", Desc: true}, repo.lastSort)
	assert.Equal(t, Filter{Q: "ana"}, repo.lastList)
}

func TestListar_HugePage(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	_, err := svc.Crear(ctx, valid(nil), usuarioID)
	require.NoError(t, err)

	out, err := svc.Listar(ctx, ListParams{Page: 1 << 62, Limit: MaxLimit})
	require.NoError(t, err)
	assert.Equal(t, pagination.MaxPage, out["page"])
	assert.Empty(t, out["items"])
	assert.Equal(t, false, out["has_more"])
}

func TestParseSort(t *testing.T) {
	assert.Equal(t, Sort{Field: "nombre_completo", Desc: true}, parseSort("-nombre_completo"))
	assert.Equal(t, Sort{Field: "fecha_nacimiento"}, parseSort("fecha_nacimiento"))
	assert.Equal(t, Sort{Field: "updated_at", Desc: true}, parseSort(""))
}
