package paciente

import (
	"context"
	"strings"

	"github.com/sigepren/sigepren/internal/domain/historial"
	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

const bloqueDatos = "datos_generales"

// bloquesFull lists every block a full intake must carry.
func (s *Service) bloquesFull() []string {
	out := []string{bloqueDatos}
	for _, d := range s.segmentos.Registry().All() {
		out = append(out, d.Name)
	}
	return out
}

// CrearConHistorial creates the patient from datos_generales and, when a
// historial block is present, its first historial with the segment blocks
// nested in it. Everything is undone if any step fails.
func (s *Service) CrearConHistorial(ctx context.Context, body map[string]any, usuarioID string) (map[string]any, error) {
	datos, ok := schema.ToMap(body[bloqueDatos])
	if !ok {
		return nil, apperr.Validationf("Falta bloque: %s", bloqueDatos)
	}
	var hist map[string]any
	if raw := body["historial"]; raw != nil {
		if hist, ok = schema.ToMap(raw); !ok {
			return nil, apperr.Validation("historial debe ser objeto")
		}
	}

	out := map[string]any{"historial_id": nil}
	if hist == nil {
		p, err := s.Crear(ctx, datos)
		if err != nil {
			return nil, err
		}
		out["paciente_id"] = p.ID.Hex()
		out["codigo_expediente"] = p.CodigoExpediente
		return out, nil
	}

	var (
		p      *Paciente
		creado *historial.Creado
		pacErr error
	)
	err := s.historiales.Transaction(ctx, "paciente_create", func(ctx context.Context) error {
		p, pacErr = s.Crear(ctx, datos)
		if pacErr != nil {
			return pacErr
		}
		var err error
		creado, err = s.historiales.CrearConSegmentos(ctx, map[string]any{
			"paciente_id":  p.ID.Hex(),
			"numero_gesta": hist["numero_gesta"],
		}, hist, usuarioID)
		return err
	})
	// patient validation failures are reported as is
	if pacErr != nil {
		return nil, pacErr
	}
	if err != nil {
		return nil, err
	}
	out["paciente_id"] = p.ID.Hex()
	out["codigo_expediente"] = p.CodigoExpediente
	out["historial_id"] = creado.HistorialID.Hex()
	out["secciones_creadas"] = creado.SeccionesHex()
	return out, nil
}

// CrearFull creates patient, historial and all clinical segments in one
// unit of work.
func (s *Service) CrearFull(ctx context.Context, body map[string]any, usuarioID string) (map[string]any, error) {
	if usuarioID == "" {
		return nil, apperr.Unauthorized("usuario no autenticado")
	}
	var faltan []string
	for _, b := range s.bloquesFull() {
		if v, ok := body[b]; !ok || v == nil {
			faltan = append(faltan, b)
		}
	}
	if len(faltan) > 0 {
		return nil, apperr.Validationf("Faltan bloques: %s", strings.Join(faltan, ", "))
	}
	datos, ok := schema.ToMap(body[bloqueDatos])
	if !ok {
		return nil, apperr.Validationf("%s debe ser objeto", bloqueDatos)
	}

	var (
		p      *Paciente
		creado *historial.Creado
		pacErr error
	)
	err := s.historiales.Transaction(ctx, "paciente_full", func(ctx context.Context) error {
		p, pacErr = s.Crear(ctx, datos)
		if pacErr != nil {
			return pacErr
		}
		var err error
		creado, err = s.historiales.CrearConSegmentos(ctx, map[string]any{"paciente_id": p.ID.Hex()}, body, usuarioID)
		return err
	})
	if pacErr != nil {
		return nil, pacErr
	}
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"paciente_id":       p.ID.Hex(),
		"historial_id":      creado.HistorialID.Hex(),
		"codigo_expediente": p.CodigoExpediente,
	}
	for ref, id := range creado.SeccionesHex() {
		out[ref] = id
	}
	s.logger.Info().Str("paciente_id", p.ID.Hex()).Int("secciones", len(creado.Secciones)).Msg("paciente full intake created")
	return out, nil
}
