package medico

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

const (
	DefaultLimit = 20
	MaxLimit     = 200
)

// folioAttempts bounds retries when a generated folio is taken concurrently.
const folioAttempts = 3

var errNotFound = apperr.NotFound("Médico no encontrado")

var duplicateMessages = map[string]string{
	"folio":  "El folio ya existe",
	"cedula": "La cédula ya existe",
	"correo": "El correo ya existe",
}

var sortable = map[string]bool{
	"updated_at": true, "nombre_completo": true, "fecha_nacimiento": true, "folio": true,
}

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "medico").Logger(),
		now:    time.Now,
	}
}

func storeErr(err error) error {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		return apperr.Conflict(duplicateMessages[dup.Field])
	}
	if errors.Is(err, db.ErrDuplicate) {
		return apperr.Conflict("Registro duplicado")
	}
	return apperr.Internal(err)
}

func usuario(id string) *primitive.ObjectID {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}
	return &oid
}

// Crear registers a medico. Without a folio the next free MED-nnnn is used.
func (s *Service) Crear(ctx context.Context, payload map[string]any, usuarioID string) (*Medico, error) {
	c, err := validar(payload, crear)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	m := &Medico{CreatedAt: now, UpdatedAt: now, CreatedBy: usuario(usuarioID), UpdatedBy: usuario(usuarioID)}
	m.apply(c)

	_, given := c.set["folio"]
	for attempt := 1; ; attempt++ {
		if !given {
			last, err := s.repo.LastFolio(ctx)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			m.Folio = Folio(last + 1)
		}
		id, err := s.repo.Insert(ctx, m)
		var dup *DuplicateError
		if errors.As(err, &dup) && dup.Field == "folio" && !given && attempt < folioAttempts {
			s.logger.Warn().Str("folio", m.Folio).Msg("folio tomado, reintentando")
			continue
		}
		if err != nil {
			return nil, storeErr(err)
		}
		m.ID = id
		break
	}
	s.logger.Info().Str("medico_id", m.ID.Hex()).Str("folio", m.Folio).Msg("medico creado")
	return m, nil
}

func (s *Service) Obtener(ctx context.Context, id string) (*Medico, error) {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return m, nil
}

// ListParams are the raw listing parameters.
type ListParams struct {
	Filter
	Page  int
	Limit int
	Sort  string
}

// parseSort reads "field" or "-field"; unknown values sort by -updated_at.
func parseSort(v string) Sort {
	field := strings.TrimPrefix(v, "-")
	if !sortable[field] {
		return Sort{Field: "updated_at", Desc: true}
	}
	return Sort{Field: field, Desc: strings.HasPrefix(v, "-")}
}

func (s *Service) Listar(ctx context.Context, p ListParams) (map[string]any, error) {
	page := min(max(p.Page, 1), pagination.MaxPage)
	limit := p.Limit
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}
	f := p.Filter
	f.Q = strings.TrimSpace(f.Q)
	if f.Estado != EstadoActivo && f.Estado != EstadoInactivo {
		f.Estado = ""
	}
	if !slices.Contains(Sexos, f.Sexo) {
		f.Sexo = ""
	}
	items, total, err := s.repo.List(ctx, f, parseSort(p.Sort), int64((page-1)*limit), int64(limit))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]map[string]any, 0, len(items))
	for _, m := range items {
		out = append(out, m.Render())
	}
	return map[string]any{
		"items":    out,
		"page":     page,
		"limit":    limit,
		"total":    total,
		"has_more": int64(page*limit) < total,
	}, nil
}

func (s *Service) update(ctx context.Context, id string, c changes, usuarioID string) (*Medico, error) {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return nil, err
	}
	c.set["updated_at"] = s.now().UTC()
	if by := usuario(usuarioID); by != nil {
		c.set["updated_by"] = *by
	}
	m, err := s.repo.Update(ctx, oid, c.set, c.unset)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return m, nil
}

func (s *Service) Actualizar(ctx context.Context, id string, payload map[string]any, usuarioID string) (*Medico, error) {
	c, err := validar(payload, actualizar)
	if err != nil {
		return nil, err
	}
	if c.empty() {
		return nil, apperr.Validation("Nada para actualizar")
	}
	return s.update(ctx, id, c, usuarioID)
}

// Eliminar inactivates the medico; records are never removed.
func (s *Service) Eliminar(ctx context.Context, id string, usuarioID string) (*Medico, error) {
	return s.update(ctx, id, changes{set: bson.M{"estado": EstadoInactivo}}, usuarioID)
}
