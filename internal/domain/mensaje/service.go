package mensaje

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
	"github.com/sigepren/sigepren/pkg/pagination"
)

var (
	errNotFound  = apperr.NotFound("Mensaje no encontrado")
	errIDInvalid = apperr.Validation("id invalido")
	errType      = apperr.Validation("type debe ser 'message' o 'reminder'")
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
		logger:    logger.With().Str("component", "mensaje").Logger(),
		now:       time.Now,
	}
}

func validType(t string) bool {
	return t == TypeMessage || t == TypeReminder
}

func scheduledAt(v any) (*time.Time, error) {
	if v == nil || v == "" {
		return nil, nil
	}
	t, err := schema.ParseISO(v, "scheduled_at")
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// Crear stores a mensaje for the patient named by paciente_id or by any of
// the patient hints in body. A plain message that is not scheduled counts as
// sent when created.
func (s *Service) Crear(ctx context.Context, body map[string]any, usuarioID string) (*Mensaje, error) {
	pid, ok, err := resolve(ctx, s.pacientes, HintFromMap(body))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errPacienteInvalido
	}
	description, _ := body["description"].(string)
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, apperr.Validation("description es requerido")
	}

	m := &Mensaje{
		PacienteID:  pid,
		Description: description,
		Type:        TypeMessage,
		CreatedAt:   s.now().UTC(),
	}
	if t, _ := body["title"].(string); strings.TrimSpace(t) != "" {
		title := strings.TrimSpace(t)
		m.Title = &title
	}
	if t, _ := body["type"].(string); strings.TrimSpace(t) != "" {
		m.Type = strings.TrimSpace(t)
		if !validType(m.Type) {
			return nil, errType
		}
	}
	if m.ScheduledAt, err = scheduledAt(body["scheduled_at"]); err != nil {
		return nil, err
	}
	if oid, ok := parseID(usuarioID); ok {
		m.CreatedBy = &oid
	}
	if m.ScheduledAt == nil && m.Type == TypeMessage {
		sent := m.CreatedAt
		m.SentAt = &sent
	}

	id, err := s.repo.Insert(ctx, m)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	m.ID = id
	s.logger.Info().Str("mensaje_id", id.Hex()).Str("paciente_id", pid.Hex()).Str("type", m.Type).Msg("mensaje creado")
	return m, nil
}

// Listar pages the mensajes of the hinted patient, or of every patient when
// the hint is empty. Each item carries its relative age in "time".
func (s *Service) Listar(ctx context.Context, h Hint, p pagination.Params) (pagination.Page[map[string]any], error) {
	var none pagination.Page[map[string]any]
	pid, _, err := resolve(ctx, s.pacientes, h)
	if err != nil {
		return none, err
	}
	items, total, err := s.repo.List(ctx, pid, p)
	if err != nil {
		return none, apperr.Internal(err)
	}
	now := s.now()
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		r := m.Render()
		r["time"] = Hace(now.Sub(m.CreatedAt))
		out = append(out, r)
	}
	return pagination.NewPage(out, p, total), nil
}

func (s *Service) update(ctx context.Context, id string, set bson.M) error {
	oid, ok := parseID(id)
	if !ok {
		return errIDInvalid
	}
	matched, err := s.repo.Update(ctx, oid, set)
	if err != nil {
		return apperr.Internal(err)
	}
	if !matched {
		return errNotFound
	}
	return nil
}

func (s *Service) MarcarLeido(ctx context.Context, id string) (map[string]any, error) {
	if err := s.update(ctx, id, bson.M{"read": true}); err != nil {
		return nil, err
	}
	return map[string]any{"updated": 1}, nil
}

// Actualizar changes title, description, type, scheduled_at or read. A body
// without any of them is not an error.
func (s *Service) Actualizar(ctx context.Context, id string, body map[string]any) (map[string]any, error) {
	if _, ok := parseID(id); !ok {
		return nil, errIDInvalid
	}
	set := bson.M{}
	if v, ok := body["title"]; ok {
		switch t := v.(type) {
		case nil:
			set["title"] = nil
		case string:
			if t = strings.TrimSpace(t); t == "" {
				set["title"] = nil
			} else {
				set["title"] = t
			}
		default:
			return nil, apperr.Validation("title debe ser string")
		}
	}
	if v, ok := body["description"]; ok {
		d, _ := v.(string)
		if d = strings.TrimSpace(d); d == "" {
			return nil, apperr.Validation("description debe ser string no vacio")
		}
		set["description"] = d
	}
	if v, ok := body["type"]; ok {
		t, _ := v.(string)
		if t = strings.TrimSpace(t); !validType(t) {
			return nil, errType
		}
		set["type"] = t
	}
	if v, ok := body["scheduled_at"]; ok {
		at, err := scheduledAt(v)
		if err != nil {
			return nil, err
		}
		if at == nil {
			set["scheduled_at"] = nil
		} else {
			set["scheduled_at"] = *at
		}
	}
	if v, ok := body["read"]; ok {
		r, isBool := v.(bool)
		if !isBool {
			return nil, apperr.Validation("read debe ser booleano")
		}
		set["read"] = r
	}
	if len(set) == 0 {
		return map[string]any{"updated": 0, "mensaje": "Nada para actualizar"}, nil
	}
	if err := s.update(ctx, id, set); err != nil {
		return nil, err
	}
	return map[string]any{"updated": 1}, nil
}

// Eliminar marks the mensaje deleted, or removes it when hard is set.
func (s *Service) Eliminar(ctx context.Context, id string, hard bool) (map[string]any, error) {
	if !hard {
		if err := s.update(ctx, id, bson.M{"deleted": true, "deleted_at": s.now().UTC()}); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": 1}, nil
	}
	oid, ok := parseID(id)
	if !ok {
		return nil, errIDInvalid
	}
	deleted, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !deleted {
		return nil, errNotFound
	}
	return map[string]any{"deleted": 1}, nil
}
