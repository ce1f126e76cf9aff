package segmento

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/metrics"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

// HistorialLookup checks that a historial exists before a segment points at it.
type HistorialLookup interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

var errHistorialNotFound = apperr.NotFound("historial_id no encontrado en historiales")

// linkFields are optional references copied from the payload.
var linkFields = []string{"paciente_id", "identificacion_id"}

// Service implements the operations of one segment.
type Service struct {
	def         *Definition
	repo        Repository
	historiales HistorialLookup
	now         func() time.Time
}

func NewService(def *Definition, repo Repository, historiales HistorialLookup) *Service {
	return &Service{def: def, repo: repo, historiales: historiales, now: time.Now}
}

func (s *Service) Definition() *Definition {
	return s.def
}

func (s *Service) requireHistorial(ctx context.Context, id primitive.ObjectID) error {
	ok, err := s.historiales.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return errHistorialNotFound
	}
	return nil
}

func refFrom(payload map[string]any, field string) (primitive.ObjectID, bool, error) {
	if !present(payload, field) {
		return primitive.NilObjectID, false, nil
	}
	str, ok := payload[field].(string)
	if !ok {
		if oid, isOID := payload[field].(primitive.ObjectID); isOID {
			return oid, true, nil
		}
		return primitive.NilObjectID, false, apperr.Validationf("%s no es un ObjectId válido", field)
	}
	oid, err := db.ParseObjectID(str, field)
	return oid, err == nil, err
}

func (s *Service) applyDerived(doc, changes bson.M) {
	if s.def.Derive == nil {
		return
	}
	for k, v := range s.def.Derive(doc) {
		doc[k] = v
		if changes != nil {
			changes[k] = v
		}
	}
}

func (s *Service) check(doc bson.M) error {
	if s.def.Check == nil {
		return nil
	}
	return s.def.Check(doc)
}

// Create validates payload and stores it under the historial.
func (s *Service) Create(ctx context.Context, historialID string, payload map[string]any, usuarioID string) (primitive.ObjectID, error) {
	if historialID == "" {
		return primitive.NilObjectID, apperr.Validation("historial_id es requerido")
	}
	hid, err := db.ParseObjectID(historialID, "historial_id")
	if err != nil {
		return primitive.NilObjectID, err
	}
	if err := s.requireHistorial(ctx, hid); err != nil {
		return primitive.NilObjectID, err
	}
	if s.def.RequireUser && usuarioID == "" {
		return primitive.NilObjectID, apperr.Validation("usuario_actual.usuario_id es requerido")
	}

	doc, err := s.def.Schema.Normalize(payload, schema.Create)
	if err != nil {
		return primitive.NilObjectID, err
	}
	s.applyDerived(doc, nil)
	if err := s.check(doc); err != nil {
		return primitive.NilObjectID, err
	}

	doc["historial_id"] = hid
	for _, f := range linkFields {
		oid, ok, err := refFrom(payload, f)
		if err != nil {
			return primitive.NilObjectID, err
		}
		if ok {
			doc[f] = oid
		}
	}
	if usuarioID != "" {
		uid, err := db.ParseObjectID(usuarioID, "usuario_id")
		if err != nil {
			return primitive.NilObjectID, err
		}
		doc["usuario_id"] = uid
	}
	now := s.now().UTC()
	doc["created_at"] = now
	doc["updated_at"] = now

	id, err := s.repo.Insert(ctx, doc)
	if err != nil {
		return primitive.NilObjectID, err
	}
	metrics.RecordSegmentWrite(s.def.Name, "create")
	return id, nil
}

func (s *Service) find(ctx context.Context, id, field, notFound string, lookup func(context.Context, primitive.ObjectID) (bson.M, error)) (map[string]any, error) {
	oid, err := db.ParseObjectID(id, field)
	if err != nil {
		return nil, err
	}
	doc, err := lookup(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound(notFound)
	}
	if err != nil {
		return nil, err
	}
	return s.def.Schema.Serialize(doc), nil
}

func (s *Service) Get(ctx context.Context, id string) (map[string]any, error) {
	return s.find(ctx, id, "id", s.def.Messages.NotFound, s.repo.FindByID)
}

// GetByHistorial returns the most recent document of the historial.
func (s *Service) GetByHistorial(ctx context.Context, historialID string) (map[string]any, error) {
	return s.find(ctx, historialID, "historial_id", s.def.Messages.ByHistorial, s.repo.FindMostRecentByHistorialID)
}

// GetByPaciente serves records created before segments hung off a historial.
func (s *Service) GetByPaciente(ctx context.Context, pacienteID string) (map[string]any, error) {
	return s.find(ctx, pacienteID, "paciente_id", s.def.Messages.ByPaciente, s.repo.FindMostRecentByPacienteID)
}

// Update applies a partial payload. Derived fields and cross-field rules are
// evaluated on the stored document merged with the changes.
func (s *Service) Update(ctx context.Context, id string, payload map[string]any) error {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return err
	}
	changes, err := s.def.Schema.Normalize(payload, schema.Patch)
	if err != nil {
		return err
	}

	if hid, ok, err := refFrom(payload, "historial_id"); err != nil {
		return err
	} else if ok {
		if err := s.requireHistorial(ctx, hid); err != nil {
			return err
		}
		changes["historial_id"] = hid
	}
	for _, f := range linkFields {
		ref, ok, err := refFrom(payload, f)
		if err != nil {
			return err
		}
		if ok {
			changes[f] = ref
		}
	}
	if len(changes) == 0 {
		return apperr.Validation("Nada para actualizar")
	}

	existing, err := s.repo.FindByID(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return apperr.NotFound("No se encontró el documento")
	}
	if err != nil {
		return err
	}
	merged := schema.Merge(existing, changes)
	s.applyDerived(merged, changes)
	if err := s.check(merged); err != nil {
		return err
	}

	changes["updated_at"] = s.now().UTC()
	matched, err := s.repo.Update(ctx, oid, changes)
	if err != nil {
		return err
	}
	if !matched {
		return apperr.NotFound("No se encontró el documento")
	}
	metrics.RecordSegmentWrite(s.def.Name, "update")
	return nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.NotFound(s.def.Messages.NotFound)
	}
	metrics.RecordSegmentWrite(s.def.Name, "delete")
	return nil
}

func (s *Service) DeleteByHistorial(ctx context.Context, historialID string) (int64, error) {
	hid, err := db.ParseObjectID(historialID, "historial_id")
	if err != nil {
		return 0, err
	}
	n, err := s.repo.DeleteByHistorialID(ctx, hid)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, apperr.NotFound("No se encontraron documentos para este historial")
	}
	metrics.RecordSegmentWrite(s.def.Name, "delete")
	return n, nil
}

// Link carries the references a historial holds for one segment.
type Link struct {
	HistorialID primitive.ObjectID
	RefID       primitive.ObjectID
	PacienteID  primitive.ObjectID
}

// Resolve finds the segment of a historial: the most recent document filed
// under it, then the document it references, then the most recent one of
// the patient. It returns nil when none exists.
func Resolve(ctx context.Context, r Resolver, l Link) (bson.M, error) {
	steps := []struct {
		id     primitive.ObjectID
		lookup func(context.Context, primitive.ObjectID) (bson.M, error)
	}{
		{l.HistorialID, r.FindMostRecentByHistorialID},
		{l.RefID, r.FindByID},
		{l.PacienteID, r.FindMostRecentByPacienteID},
	}
	for _, step := range steps {
		if step.id.IsZero() {
			continue
		}
		doc, err := step.lookup(ctx, step.id)
		if errors.Is(err, db.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
	return nil, nil
}

// Resolve returns the serialized segment of a historial, or nil.
func (s *Service) Resolve(ctx context.Context, l Link) (map[string]any, error) {
	doc, err := Resolve(ctx, s.repo, l)
	if err != nil || doc == nil {
		return nil, err
	}
	return s.def.Schema.Serialize(doc), nil
}

// Services holds one Service per registered segment.
type Services struct {
	reg    *Registry
	byName map[string]*Service
}

// NewServices builds the services of every segment in reg. newRepo returns
// the repository of a definition.
func NewServices(reg *Registry, newRepo func(*Definition) Repository, historiales HistorialLookup) *Services {
	s := &Services{reg: reg, byName: make(map[string]*Service, len(reg.All()))}
	for _, d := range reg.All() {
		s.byName[d.Name] = NewService(d, newRepo(d), historiales)
	}
	return s
}

func (s *Services) Registry() *Registry {
	return s.reg
}

func (s *Services) Get(name string) (*Service, bool) {
	svc, ok := s.byName[name]
	return svc, ok
}

// All returns the services in registry order.
func (s *Services) All() []*Service {
	out := make([]*Service, 0, len(s.byName))
	for _, d := range s.reg.All() {
		out = append(out, s.byName[d.Name])
	}
	return out
}
