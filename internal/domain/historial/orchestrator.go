package historial

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/metrics"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

// Creado is the outcome of an orchestrated create.
type Creado struct {
	HistorialID primitive.ObjectID
	PacienteID  primitive.ObjectID
	// Secciones maps each created segment's reference field to its id.
	Secciones map[string]primitive.ObjectID
}

func (c *Creado) SeccionesHex() map[string]string {
	out := make(map[string]string, len(c.Secciones))
	for k, v := range c.Secciones {
		out[k] = v.Hex()
	}
	return out
}

// CrearConSegmentos creates the historial described by datos, links it to
// the patient and creates every segment whose block is present in blocks,
// in registry order. It must run inside a unit of work.
func (s *Service) CrearConSegmentos(ctx context.Context, datos, blocks map[string]any, usuarioID string) (*Creado, error) {
	hid, err := s.Crear(ctx, datos)
	if err != nil {
		return nil, err
	}
	pid, err := refID(datos["paciente_id"], "paciente_id")
	if err != nil {
		return nil, err
	}
	if err := s.pacientes.LinkHistorial(ctx, pid, hid); err != nil {
		return nil, err
	}

	out := &Creado{HistorialID: hid, PacienteID: pid, Secciones: map[string]primitive.ObjectID{}}
	for _, svc := range s.segmentos.All() {
		def := svc.Definition()
		raw, ok := blocks[def.Name]
		if !ok || raw == nil {
			continue
		}
		block, ok := schema.ToMap(raw)
		if !ok {
			return nil, apperr.Validationf("%s debe ser objeto", def.Name)
		}
		block = withPaciente(block, pid)

		segID, err := svc.Create(ctx, hid.Hex(), block, usuarioID)
		if err != nil {
			if _, isApp := apperr.As(err); isApp {
				return nil, apperr.Wrap(err, def.Name)
			}
			return nil, err
		}
		if _, err := s.VincularSegmento(ctx, hid.Hex(), def.RefField(), segID.Hex()); err != nil {
			return nil, err
		}
		out.Secciones[def.RefField()] = segID
	}
	return out, nil
}

func withPaciente(block map[string]any, pid primitive.ObjectID) map[string]any {
	if v, ok := block["paciente_id"]; ok && v != nil && v != "" {
		return block
	}
	cp := make(map[string]any, len(block)+1)
	for k, v := range block {
		cp[k] = v
	}
	cp["paciente_id"] = pid.Hex()
	return cp
}

// Transaction runs fn as one unit of work and reports the outcome under
// flow. Failures are returned as rollback errors.
func (s *Service) Transaction(ctx context.Context, flow string, fn func(ctx context.Context) error) error {
	err := s.tx.WithTransaction(ctx, fn)
	metrics.RecordOrchestration(flow, err)
	if err == nil {
		return nil
	}
	if errors.Is(err, db.ErrTransactionsUnsupported) {
		return err
	}
	s.logger.Warn().Err(err).Str("flow", flow).Bool("atomic", s.tx.Atomic()).Msg("unit of work rolled back")
	return apperr.Rollback(err)
}

// CrearCompleto creates a historial and its segments from one body:
// {datos: {paciente_id, numero_gesta?}, <segmento>: {...}, ...}.
func (s *Service) CrearCompleto(ctx context.Context, body map[string]any, usuarioID string) (*Creado, error) {
	if usuarioID == "" {
		return nil, apperr.Unauthorized("usuario no autenticado")
	}
	datos, ok := schema.ToMap(body["datos"])
	if !ok {
		return nil, apperr.Validation("Falta bloque: datos (historial)")
	}
	if v, ok := datos["paciente_id"]; !ok || v == nil || v == "" {
		return nil, apperr.Validation("datos.paciente_id es requerido")
	}

	var out *Creado
	err := s.Transaction(ctx, "historial_completo", func(ctx context.Context) error {
		var err error
		out, err = s.CrearConSegmentos(ctx, datos, body, usuarioID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("historial_id", out.HistorialID.Hex()).
		Int("secciones", len(out.Secciones)).
		Msg("historial completo created")
	return out, nil
}
