package historial

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/segmento"
	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/schema"
	"github.com/sigepren/sigepren/pkg/pagination"
)

// Pacientes is the part of the patient store a historial depends on.
type Pacientes interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
	LinkHistorial(ctx context.Context, pacienteID, historialID primitive.ObjectID) error
}

var (
	errNotFound       = apperr.NotFound("Historial no encontrado")
	errGestaInvalida  = apperr.Validation("numero_gesta debe ser entero >= 1")
	errDuplicadoCrear = apperr.Conflict("Duplicado: ya existe un historial con ese (paciente_id, numero_gesta)")
	errDuplicado      = apperr.Conflict("Duplicado: (paciente_id, numero_gesta) ya existe")
)

type Service struct {
	repo      Repository
	pacientes Pacientes
	segmentos *segmento.Services
	tx        db.Transactor
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, pacientes Pacientes, segmentos *segmento.Services, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		pacientes: pacientes,
		segmentos: segmentos,
		tx:        tx,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) refFields() []string {
	return s.segmentos.Registry().RefFields()
}

// parseGesta reads numero_gesta. Empty values and zero ask for the next free
// number.
func parseGesta(v any) (n int64, auto bool, err error) {
	if v == nil {
		return 0, true, nil
	}
	if str, ok := v.(string); ok && strings.TrimSpace(str) == "" {
		return 0, true, nil
	}
	n, ok := schema.ToInt(v)
	if !ok || n < 0 {
		return 0, false, errGestaInvalida
	}
	return n, n == 0, nil
}

func refID(v any, field string) (primitive.ObjectID, error) {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid, nil
	}
	str, ok := v.(string)
	if !ok {
		return primitive.NilObjectID, apperr.Validationf("%s no es un ObjectId válido", field)
	}
	return db.ParseObjectID(str, field)
}

// Crear stores a new historial for an existing patient.
func (s *Service) Crear(ctx context.Context, payload map[string]any) (primitive.ObjectID, error) {
	raw, ok := payload["paciente_id"]
	if !ok || raw == nil || raw == "" {
		return primitive.NilObjectID, apperr.Validation("paciente_id es requerido")
	}
	pid, err := refID(raw, "paciente_id")
	if err != nil {
		return primitive.NilObjectID, err
	}
	exists, err := s.pacientes.Exists(ctx, pid)
	if err != nil {
		return primitive.NilObjectID, err
	}
	if !exists {
		return primitive.NilObjectID, apperr.NotFound("Paciente no encontrado")
	}

	n, auto, err := parseGesta(payload["numero_gesta"])
	if err != nil {
		return primitive.NilObjectID, err
	}
	if auto {
		last, err := s.repo.MaxNumeroGesta(ctx, pid)
		if err != nil {
			return primitive.NilObjectID, err
		}
		n = last + 1
	}

	activo := true
	now := s.now().UTC()
	h := &Historial{
		PacienteID:  pid,
		NumeroGesta: n,
		Activo:      &activo,
		CreatedAt:   now,
		UpdatedAt:   now,
		Refs:        bson.M{},
	}
	for _, f := range s.refFields() {
		v, ok := payload[f]
		if !ok || v == nil {
			continue
		}
		oid, err := refID(v, f)
		if err != nil {
			return primitive.NilObjectID, err
		}
		h.Refs[f] = oid
	}

	id, err := s.repo.Insert(ctx, h)
	if errors.Is(err, db.ErrDuplicate) {
		return primitive.NilObjectID, errDuplicadoCrear
	}
	if err != nil {
		return primitive.NilObjectID, err
	}
	s.logger.Info().Str("historial_id", id.Hex()).Str("paciente_id", pid.Hex()).Int64("numero_gesta", n).Msg("historial created")
	return id, nil
}

func (s *Service) find(ctx context.Context, id string) (*Historial, error) {
	oid, err := db.ParseObjectID(id, "historial_id")
	if err != nil {
		return nil, err
	}
	h, err := s.repo.FindByID(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	return h, err
}

// Actualizar changes numero_gesta, activo or the segment references. A
// reference set to null is removed.
func (s *Service) Actualizar(ctx context.Context, id string, payload map[string]any) (string, error) {
	cur, err := s.find(ctx, id)
	if err != nil {
		return "", err
	}

	set := bson.M{}
	var unset []string
	if v, ok := payload["numero_gesta"]; ok && v != nil {
		n, auto, err := parseGesta(v)
		if err != nil || auto {
			return "", errGestaInvalida
		}
		set["numero_gesta"] = n
	}
	for _, f := range s.refFields() {
		v, ok := payload[f]
		if !ok {
			continue
		}
		if v == nil {
			unset = append(unset, f)
			continue
		}
		oid, err := refID(v, f)
		if err != nil {
			return "", err
		}
		set[f] = oid
	}
	if v, ok := payload["activo"]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return "", apperr.Validation("activo debe ser booleano")
		}
		set["activo"] = b
	}
	if len(set) == 0 && len(unset) == 0 {
		return "Nada para actualizar", nil
	}

	if n, ok := set["numero_gesta"].(int64); ok && n != cur.NumeroGesta {
		taken, err := s.repo.GestaTaken(ctx, cur.PacienteID, n, cur.ID)
		if err != nil {
			return "", err
		}
		if taken {
			return "", errDuplicado
		}
	}

	set["updated_at"] = s.now().UTC()
	matched, err := s.repo.Update(ctx, cur.ID, set, unset)
	if errors.Is(err, db.ErrDuplicate) {
		return "", errDuplicado
	}
	if err != nil {
		return "", err
	}
	if !matched {
		return "", errNotFound
	}
	return "Historial actualizado", nil
}

// Eliminar deactivates the historial, or removes it when hard is set.
func (s *Service) Eliminar(ctx context.Context, id string, hard bool) (string, error) {
	oid, err := db.ParseObjectID(id, "historial_id")
	if err != nil {
		return "", err
	}
	if hard {
		deleted, err := s.repo.Delete(ctx, oid)
		if err != nil {
			return "", err
		}
		if !deleted {
			return "", errNotFound
		}
		return "Historial eliminado definitivamente", nil
	}
	matched, err := s.repo.Update(ctx, oid, bson.M{"activo": false, "updated_at": s.now().UTC()}, nil)
	if err != nil {
		return "", err
	}
	if !matched {
		return "", errNotFound
	}
	return "Historial desactivado", nil
}

func (s *Service) Listar(ctx context.Context, pacienteID string, soloActivos bool, p pagination.Params) (pagination.Page[map[string]any], error) {
	f := Filter{SoloActivos: soloActivos}
	if pacienteID != "" {
		pid, err := db.ParseObjectID(pacienteID, "paciente_id")
		if err != nil {
			return pagination.Page[map[string]any]{}, err
		}
		f.PacienteID = pid
	}
	items, total, err := s.repo.List(ctx, f, p)
	if err != nil {
		return pagination.Page[map[string]any]{}, err
	}
	refs := s.refFields()
	out := make([]map[string]any, 0, len(items))
	for _, h := range items {
		out = append(out, h.Render(refs))
	}
	return pagination.NewPage(out, p, total), nil
}

func (s *Service) checkCampo(campo string) error {
	if _, ok := s.segmentos.Registry().ByRefField(campo); !ok {
		return apperr.Validationf("campo_ref inválido: %s", campo)
	}
	return nil
}

// VincularSegmento points the historial at a segment document.
func (s *Service) VincularSegmento(ctx context.Context, id, campo, docID string) (string, error) {
	if err := s.checkCampo(campo); err != nil {
		return "", err
	}
	oid, err := db.ParseObjectID(id, "historial_id")
	if err != nil {
		return "", err
	}
	did, err := db.ParseObjectID(docID, "doc_id")
	if err != nil {
		return "", err
	}
	matched, err := s.repo.Update(ctx, oid, bson.M{campo: did, "updated_at": s.now().UTC()}, nil)
	if err != nil {
		return "", err
	}
	if !matched {
		return "", errNotFound
	}
	return campo + " vinculado", nil
}

func (s *Service) DesvincularSegmento(ctx context.Context, id, campo string) (string, error) {
	if err := s.checkCampo(campo); err != nil {
		return "", err
	}
	oid, err := db.ParseObjectID(id, "historial_id")
	if err != nil {
		return "", err
	}
	matched, err := s.repo.Update(ctx, oid, bson.M{"updated_at": s.now().UTC()}, []string{campo})
	if err != nil {
		return "", err
	}
	if !matched {
		return "", errNotFound
	}
	return campo + " desvinculado", nil
}

// Agregado assembles the historial with every segment. A segment that
// cannot be resolved is reported as null.
func (s *Service) Agregado(ctx context.Context, h *Historial) map[string]any {
	out := map[string]any{"historial": h.Render(s.refFields())}
	s.resolveAll(ctx, out, func(def *segmento.Definition) segmento.Link {
		return segmento.Link{HistorialID: h.ID, RefID: h.Ref(def.RefField()), PacienteID: h.PacienteID}
	})
	return out
}

// AgregadoPorPaciente aggregates the latest historial of the patient. Without
// one, segments are looked up by paciente_id alone.
func (s *Service) AgregadoPorPaciente(ctx context.Context, pid primitive.ObjectID) (map[string]any, error) {
	h, err := s.repo.FindLatestByPaciente(ctx, pid)
	if err == nil {
		return s.Agregado(ctx, h), nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, err
	}
	out := map[string]any{"historial": nil}
	s.resolveAll(ctx, out, func(*segmento.Definition) segmento.Link {
		return segmento.Link{PacienteID: pid}
	})
	return out, nil
}

func (s *Service) resolveAll(ctx context.Context, out map[string]any, link func(*segmento.Definition) segmento.Link) {
	for _, svc := range s.segmentos.All() {
		def := svc.Definition()
		l := link(def)
		doc, err := svc.Resolve(ctx, l)
		if err != nil {
			s.logger.Warn().Err(err).
				Str("historial_id", l.HistorialID.Hex()).
				Str("paciente_id", l.PacienteID.Hex()).
				Str("segmento", def.Name).
				Msg("segment lookup failed")
			doc = nil
		}
		out[def.Name] = doc
	}
}

// Obtener returns the aggregated historial.
func (s *Service) Obtener(ctx context.Context, id string) (map[string]any, error) {
	h, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.Agregado(ctx, h), nil
}

// ObtenerPorPaciente aggregates the most recent historial of the patient.
func (s *Service) ObtenerPorPaciente(ctx context.Context, pacienteID string) (map[string]any, error) {
	pid, err := db.ParseObjectID(pacienteID, "paciente_id")
	if err != nil {
		return nil, err
	}
	h, err := s.repo.FindLatestByPaciente(ctx, pid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("Historial no encontrado para paciente")
	}
	if err != nil {
		return nil, err
	}
	return s.Agregado(ctx, h), nil
}

func (s *Service) ObtenerPorPacienteYGesta(ctx context.Context, pacienteID, numeroGesta string) (map[string]any, error) {
	pid, err := db.ParseObjectID(pacienteID, "paciente_id")
	if err != nil {
		return nil, err
	}
	n, auto, err := parseGesta(numeroGesta)
	if err != nil || auto {
		return nil, errGestaInvalida
	}
	h, err := s.repo.FindByPacienteYGesta(ctx, pid, n)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("No se encontró historial para ese paciente y número de gesta")
	}
	if err != nil {
		return nil, err
	}
	return h.Render(s.refFields()), nil
}
