package reporte

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/cita"
	"github.com/sigepren/sigepren/internal/platform/cache"
)

type mockSource struct {
	ids         []primitive.ObjectID
	citas       map[string]int64
	gestaciones map[primitive.ObjectID]map[string]any
	broken      map[primitive.ObjectID]bool
	calls       int
}

func (s *mockSource) PacientesActivos(context.Context) ([]primitive.ObjectID, error) {
	s.calls++
	return s.ids, nil
}

func (s *mockSource) ContarCitas(_ context.Context, status string, _ Rango) (int64, error) {
	return s.citas[status], nil
}

func (s *mockSource) GestacionActual(_ context.Context, id primitive.ObjectID) (map[string]any, error) {
	if s.broken[id] {
		return nil, errors.New("boom")
	}
	return s.gestaciones[id], nil
}

// brokenCache fails every operation, like an unreachable Redis.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (brokenCache) Delete(context.Context, string) error { return nil }

var hoy = time.Date(2024, 5, 20, 9, 0, 0, 0, time.UTC)

func newSource() *mockSource {
	alto, medio, sinGA, roto := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	return &mockSource{
		ids:   []primitive.ObjectID{alto, medio, sinGA, roto},
		citas: map[string]int64{cita.StatusCompleted: 3, cita.StatusScheduled: 1},
		gestaciones: map[primitive.ObjectID]map[string]any{
			alto:  sana(control("2024-05-15", 150, 95)),
			medio: sana(),
		},
		broken: map[primitive.ObjectID]bool{roto: true},
	}
}

func newService(src Source, store cache.Store) *Service {
	svc := NewService(src, store, time.Minute, zerolog.New(io.Discard))
	svc.now = func() time.Time { return hoy }
	return svc
}

func TestGenerarResumenPanel(t *testing.T) {
	svc := newService(newSource(), nil)

	out, rango, err := svc.GenerarResumenPanel(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, MesActual(hoy), rango)
	assert.Equal(t, int64(4), out.Cards.PacientesActivos.Value)
	assert.Equal(t, int64(75), out.Cards.CitasCumplidas.Value)
	assert.Equal(t, int64(2), out.Cards.AlertasGeneradas.Value)
	assert.Equal(t, int64(25), out.Indicadores.Altas.Percent)
	assert.Equal(t, int64(25), out.Indicadores.Medias.Percent)
	assert.Equal(t, int64(50), out.Indicadores.Alertas.Percent)
}

func TestGenerarResumenPanel_Cached(t *testing.T) {
	src := newSource()
	store := cache.NewMemory()
	svc := newService(src, store)
	ctx := context.Background()

	first, _, err := svc.GenerarResumenPanel(ctx, "2024-05-01T00:00:00Z", "2024-05-31T23:59:59Z")
	require.NoError(t, err)
	second, _, err := svc.GenerarResumenPanel(ctx, "2024-05-01T00:00:00Z", "2024-05-31T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, src.calls)

	_, ok, _ := store.Get(ctx, "dashboard:2024-05-01T00:00:00Z:2024-05-31T23:59:59Z")
	assert.True(t, ok)

	_, _, err = svc.GenerarResumenPanel(ctx, "2024-04-01T00:00:00Z", "2024-04-30T23:59:59Z")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestGenerarResumenPanel_CacheDown(t *testing.T) {
	src := newSource()
	svc := newService(src, brokenCache{})

	out, _, err := svc.GenerarResumenPanel(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, int64(4), out.Cards.PacientesActivos.Value)
	_, _, err = svc.GenerarResumenPanel(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestGenerarResumenPanel_NoPatients(t *testing.T) {
	svc := newService(&mockSource{}, nil)
	out, _, err := svc.GenerarResumenPanel(context.Background(), "", "")
	require.NoError(t, err)
	assert.Equal(t, nuevoResumen(0, 0, 0, Niveles{}), out)
}
