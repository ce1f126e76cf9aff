package reporte

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sigepren/sigepren/internal/domain/cita"
	"github.com/sigepren/sigepren/internal/domain/historial"
	"github.com/sigepren/sigepren/internal/domain/paciente"
	"github.com/sigepren/sigepren/internal/domain/segmento"
	"github.com/sigepren/sigepren/pkg/pagination"
)

// Source reads the data the dashboard is computed from.
type Source interface {
	PacientesActivos(ctx context.Context) ([]primitive.ObjectID, error)
	ContarCitas(ctx context.Context, status string, r Rango) (int64, error)
	// GestacionActual returns the newest current-pregnancy record of the
	// patient, or nil when there is none.
	GestacionActual(ctx context.Context, pacienteID primitive.ObjectID) (map[string]any, error)
}

type mongoSource struct {
	pacientes   *mongo.Collection
	citas       *mongo.Collection
	gestaciones segmento.Resolver
	historiales historial.Repository
}

func NewMongoSource(database *mongo.Database, gestaciones segmento.Resolver, historiales historial.Repository) Source {
	return &mongoSource{
		pacientes:   database.Collection(paciente.Collection),
		citas:       database.Collection(cita.Collection),
		gestaciones: gestaciones,
		historiales: historiales,
	}
}

var activosFilter = bson.M{"activo": true, "deleted_at": nil}

func (s *mongoSource) PacientesActivos(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.pacientes.Find(ctx, activosFilter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("find pacientes activos: %w", err)
	}
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("decode pacientes activos: %w", err)
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

func citasFilter(status string, r Rango) bson.M {
	return bson.M{"status": status, "start_at": bson.M{"$gte": r.Start, "$lte": r.End}}
}

func (s *mongoSource) ContarCitas(ctx context.Context, status string, r Rango) (int64, error) {
	n, err := s.citas.CountDocuments(ctx, citasFilter(status, r))
	if err != nil {
		return 0, fmt.Errorf("count citas %s: %w", status, err)
	}
	return n, nil
}

func (s *mongoSource) GestacionActual(ctx context.Context, pacienteID primitive.ObjectID) (map[string]any, error) {
	hs, _, err := s.historiales.List(ctx, historial.Filter{PacienteID: pacienteID}, pagination.New(1, pagination.MaxPerPage))
	if err != nil {
		return nil, err
	}
	return gestacionActual(ctx, s.gestaciones, pacienteID, hs)
}

// gestacionActual walks the historiales newest first with the segment
// resolver, then falls back to the newest record of the patient.
func gestacionActual(ctx context.Context, r segmento.Resolver, pacienteID primitive.ObjectID, hs []*historial.Historial) (bson.M, error) {
	for _, h := range hs {
		doc, err := segmento.Resolve(ctx, r, segmento.Link{
			HistorialID: h.ID,
			RefID:       h.Ref("gestacion_actual_id"),
		})
		if err != nil || doc != nil {
			return doc, err
		}
	}
	return segmento.Resolve(ctx, r, segmento.Link{PacienteID: pacienteID})
}
