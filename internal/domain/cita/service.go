package cita

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/metrics"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

// Pacientes is the patient lookup citas need.
type Pacientes interface {
	Exists(ctx context.Context, id primitive.ObjectID) (bool, error)
}

const (
	DefaultLimit = 100
	MaxLimit     = 500
)

var patchable = map[string]bool{
	"status": true, "title": true, "description": true, "provider": true,
	"location": true, "start_at": true, "end_at": true, "if_unmodified_since": true,
}

var textFields = []string{"title", "description", "provider", "location"}

var (
	errConflict     = apperr.Conflict("Conflicto de horario para el proveedor")
	errNotFound     = apperr.NotFound("Cita no encontrada")
	errEndBeforeIni = apperr.Validation("end_at debe ser posterior a start_at")
)

type Service struct {
	repo      Repository
	pacientes Pacientes
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(repo Repository, pacientes Pacientes, logger zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		pacientes: pacientes,
		logger:    logger.With().Str("component", "cita").Logger(),
		now:       time.Now,
	}
}

// stamp is kept at second precision so rendered timestamps round-trip
// through if_unmodified_since.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}

func text(payload map[string]any, key string) (string, error) {
	v := payload[key]
	if v == nil {
		return "", nil
	}
	str, ok := v.(string)
	if !ok {
		return "", apperr.Validationf("%s debe ser texto", key)
	}
	return strings.TrimSpace(str), nil
}

func (s *Service) checkConflict(ctx context.Context, c *Cita) error {
	if c.Provider == "" || c.Status != StatusScheduled {
		return nil
	}
	taken, err := s.repo.HasConflict(ctx, c.Provider, c.StartAt, c.EndAt, c.ID)
	if err != nil {
		return apperr.Internal(err)
	}
	if taken {
		metrics.RecordAppointmentConflict()
		return errConflict
	}
	return nil
}

func storeErr(err error) error {
	if errors.Is(err, db.ErrDuplicate) {
		metrics.RecordAppointmentConflict()
		return errConflict
	}
	return apperr.Internal(err)
}

func (s *Service) Crear(ctx context.Context, payload map[string]any) (*Cita, error) {
	raw, _ := payload["paciente_id"].(string)
	if strings.TrimSpace(raw) == "" {
		return nil, apperr.Validation("paciente_id es requerido")
	}
	pid, err := db.ParseObjectID(strings.TrimSpace(raw), "paciente_id")
	if err != nil {
		return nil, err
	}
	ok, err := s.pacientes.Exists(ctx, pid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound("paciente no existe")
	}

	if payload["start_at"] == nil {
		return nil, apperr.Validation("start_at es requerido")
	}
	start, err := schema.ParseISO(payload["start_at"], "start_at")
	if err != nil {
		return nil, err
	}
	end := start.Add(DefaultDuration)
	if v := payload["end_at"]; v != nil {
		if end, err = schema.ParseISO(v, "end_at"); err != nil {
			return nil, err
		}
	}
	if !end.After(start) {
		return nil, errEndBeforeIni
	}
	status := StatusScheduled
	if v := payload["status"]; v != nil {
		if status, err = parseStatus(v); err != nil {
			return nil, err
		}
	}

	now := s.stamp()
	c := &Cita{
		PacienteID: pid,
		Status:     status,
		StartAt:    start,
		EndAt:      end,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, k := range textFields {
		v, err := text(payload, k)
		if err != nil {
			return nil, err
		}
		c.setText(k, v)
	}
	if err := s.checkConflict(ctx, c); err != nil {
		return nil, err
	}
	id, err := s.repo.Insert(ctx, c)
	if err != nil {
		return nil, storeErr(err)
	}
	c.ID = id
	s.logger.Info().Str("cita_id", id.Hex()).Str("paciente_id", pid.Hex()).Msg("cita creada")
	return c, nil
}

func (c *Cita) setText(key, v string) {
	switch key {
	case "title":
		c.Title = v
	case "description":
		c.Description = v
	case "provider":
		c.Provider = v
	case "location":
		c.Location = v
	}
}

func (s *Service) find(ctx context.Context, id string) (*Cita, error) {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return nil, err
	}
	c, err := s.repo.FindByID(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) Obtener(ctx context.Context, id string) (*Cita, error) {
	return s.find(ctx, id)
}

// Actualizar applies a partial change. The conflict check runs on the
// resulting cita, excluding the cita itself.
func (s *Service) Actualizar(ctx context.Context, id string, payload map[string]any) (*Cita, error) {
	var extra []string
	for k := range payload {
		if !patchable[k] {
			extra = append(extra, k)
		}
	}
	if len(extra) > 0 {
		sort.Strings(extra)
		return nil, apperr.Validationf("Propiedades no permitidas en PATCH: %s", strings.Join(extra, ", "))
	}
	cur, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	var since time.Time
	if v := payload["if_unmodified_since"]; v != nil {
		if since, err = schema.ParseISO(v, "if_unmodified_since"); err != nil {
			return nil, err
		}
	}

	next := *cur
	set := bson.M{}
	var unset []string
	for _, k := range textFields {
		if _, ok := payload[k]; !ok {
			continue
		}
		v, err := text(payload, k)
		if err != nil {
			return nil, err
		}
		next.setText(k, v)
		if v == "" {
			unset = append(unset, k)
		} else {
			set[k] = v
		}
	}
	if v, ok := payload["status"]; ok {
		st, err := parseStatus(v)
		if err != nil {
			return nil, err
		}
		if err := checkTransition(cur.Status, st); err != nil {
			return nil, err
		}
		next.Status = st
		set["status"] = st
	}
	if v, ok := payload["start_at"]; ok {
		if v == nil {
			return nil, apperr.Validation("start_at es requerido")
		}
		if next.StartAt, err = schema.ParseISO(v, "start_at"); err != nil {
			return nil, err
		}
		set["start_at"] = next.StartAt
	}
	if v, ok := payload["end_at"]; ok {
		if v == nil {
			next.EndAt = next.StartAt.Add(DefaultDuration)
		} else if next.EndAt, err = schema.ParseISO(v, "end_at"); err != nil {
			return nil, err
		}
		set["end_at"] = next.EndAt
	}
	if len(set) == 0 && len(unset) == 0 {
		return nil, apperr.Validation("Nada para actualizar")
	}
	if !next.EndAt.After(next.StartAt) {
		return nil, errEndBeforeIni
	}
	if err := s.checkConflict(ctx, &next); err != nil {
		return nil, err
	}

	next.UpdatedAt = s.stamp()
	set["updated_at"] = next.UpdatedAt
	matched, err := s.repo.Update(ctx, cur.ID, set, unset, since)
	if err != nil {
		return nil, storeErr(err)
	}
	if !matched {
		exists, err := s.repo.Exists(ctx, cur.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if !exists {
			return nil, errNotFound
		}
		return nil, apperr.Conflict("conflicto de edición")
	}
	return &next, nil
}

// Eliminar removes the cita, or only cancels it when hard is false.
func (s *Service) Eliminar(ctx context.Context, id string, hard bool) (string, error) {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return "", err
	}
	var ok bool
	if hard {
		ok, err = s.repo.Delete(ctx, oid)
	} else {
		ok, err = s.repo.Update(ctx, oid, bson.M{"status": StatusCancelled, "updated_at": s.stamp()}, nil, time.Time{})
	}
	if err != nil {
		return "", apperr.Internal(err)
	}
	if !ok {
		return "", errNotFound
	}
	if hard {
		return "Cita eliminada", nil
	}
	return "Cita cancelada", nil
}

// Listing is the {items, total} shape every cita listing returns.
type Listing struct {
	Items []map[string]any `json:"items"`
	Total int64            `json:"total"`
}

// Filter narrows a listing to one paciente and caps its size.
type Filter struct {
	PacienteID string
	Limit      int
}

func (f Filter) apply(q *Query) error {
	if f.PacienteID != "" {
		pid, err := db.ParseObjectID(f.PacienteID, "paciente_id")
		if err != nil {
			return err
		}
		q.PacienteID = pid
	}
	q.Limit = int64(clampLimit(f.Limit))
	return nil
}

func clampLimit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

func (s *Service) list(ctx context.Context, q Query, f Filter) (*Listing, error) {
	if err := f.apply(&q); err != nil {
		return nil, err
	}
	items, total, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := &Listing{Items: make([]map[string]any, 0, len(items)), Total: total}
	for _, c := range items {
		out.Items = append(out.Items, c.Render())
	}
	return out, nil
}

// Hoy lists the citas starting on the current UTC day.
func (s *Service) Hoy(ctx context.Context, f Filter) (*Listing, error) {
	now := s.now().UTC()
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return s.list(ctx, Query{StartFrom: day, StartTo: day.AddDate(0, 0, 1)}, f)
}

func (s *Service) Proximas(ctx context.Context, days int, f Filter) (*Listing, error) {
	if days <= 0 {
		days = 7
	}
	now := s.now().UTC()
	return s.list(ctx, Query{StartFrom: now, StartTo: now.AddDate(0, 0, days)}, f)
}

func (s *Service) Activas(ctx context.Context, f Filter) (*Listing, error) {
	return s.list(ctx, Query{Status: StatusScheduled, StartFrom: s.now().UTC()}, f)
}

// Historicas lists past or closed citas, most recent first.
func (s *Service) Historicas(ctx context.Context, f Filter) (*Listing, error) {
	return s.list(ctx, Query{Past: s.now().UTC(), Newest: true}, f)
}

// PorPaciente lists every cita of the paciente.
func (s *Service) PorPaciente(ctx context.Context, f Filter) (*Listing, error) {
	if f.PacienteID == "" {
		return nil, apperr.Validation("Parámetro 'paciente_id' es requerido")
	}
	return s.list(ctx, Query{}, f)
}
