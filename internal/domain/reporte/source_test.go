package reporte

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/cita"
	"github.com/sigepren/sigepren/internal/domain/historial"
	"github.com/sigepren/sigepren/internal/platform/db"
)

func TestCitasFilter(t *testing.T) {
	r := MesActual(time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, bson.M{
		"status":   cita.StatusCompleted,
		"start_at": bson.M{"$gte": r.Start, "$lte": r.End},
	}, citasFilter(cita.StatusCompleted, r))
	assert.Equal(t, bson.M{"activo": true, "deleted_at": nil}, activosFilter)
}

// fakeGestaciones answers the resolver lookups from maps keyed by id.
type fakeGestaciones struct {
	byID        map[primitive.ObjectID]bson.M
	byHistorial map[primitive.ObjectID]bson.M
	byPaciente  map[primitive.ObjectID]bson.M
}

func lookup(m map[primitive.ObjectID]bson.M, id primitive.ObjectID) (bson.M, error) {
	if doc, ok := m[id]; ok {
		return doc, nil
	}
	return nil, db.ErrNotFound
}

func (f *fakeGestaciones) FindByID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	return lookup(f.byID, id)
}

func (f *fakeGestaciones) FindMostRecentByHistorialID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	return lookup(f.byHistorial, id)
}

func (f *fakeGestaciones) FindMostRecentByPacienteID(_ context.Context, id primitive.ObjectID) (bson.M, error) {
	return lookup(f.byPaciente, id)
}

func TestGestacionActual_ResolveOrder(t *testing.T) {
	ctx := context.Background()
	pacienteID := primitive.NewObjectID()
	refID := primitive.NewObjectID()
	reciente := &historial.Historial{ID: primitive.NewObjectID(), Refs: bson.M{"gestacion_actual_id": refID}}
	anterior := &historial.Historial{ID: primitive.NewObjectID()}
	hs := []*historial.Historial{reciente, anterior}

	tests := []struct {
		name string
		src  *fakeGestaciones
		want bson.M
	}{
		{
			name: "filed under the historial wins over its stored ref",
			src: &fakeGestaciones{
				byID:        map[primitive.ObjectID]bson.M{refID: {"origen": "ref"}},
				byHistorial: map[primitive.ObjectID]bson.M{reciente.ID: {"origen": "historial"}},
			},
			want: bson.M{"origen": "historial"},
		},
		{
			name: "stored ref when nothing is filed under the historial",
			src: &fakeGestaciones{
				byID:        map[primitive.ObjectID]bson.M{refID: {"origen": "ref"}},
				byHistorial: map[primitive.ObjectID]bson.M{anterior.ID: {"origen": "anterior"}},
			},
			want: bson.M{"origen": "ref"},
		},
		{
			name: "stale ref falls through to the older historial",
			src: &fakeGestaciones{
				byHistorial: map[primitive.ObjectID]bson.M{anterior.ID: {"origen": "anterior"}},
			},
			want: bson.M{"origen": "anterior"},
		},
		{
			name: "patient fallback",
			src: &fakeGestaciones{
				byPaciente: map[primitive.ObjectID]bson.M{pacienteID: {"origen": "paciente"}},
			},
			want: bson.M{"origen": "paciente"},
		},
		{
			name: "none",
			src:  &fakeGestaciones{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := gestacionActual(ctx, tt.src, pacienteID, hs)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
