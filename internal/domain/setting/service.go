package setting

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "setting").Logger(),
		now:    time.Now,
	}
}

func field(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}

// Upsert creates or replaces the setting described by body. updatedBy is the
// calling usuario and may be empty.
func (s *Service) Upsert(ctx context.Context, body map[string]any, updatedBy string) (primitive.ObjectID, error) {
	if strings.TrimSpace(field(body, "key")) == "" {
		return primitive.NilObjectID, apperr.Validation("Falta campo requerido: key")
	}
	id, err := NewIdent(field(body, "key"), field(body, "scope"), field(body, "tenant_id"), field(body, "user_id"))
	if err != nil {
		return primitive.NilObjectID, err
	}
	value := body["value"]
	if err := Validate(id.Key, value); err != nil {
		return primitive.NilObjectID, err
	}

	set := bson.M{
		"key":         id.Key,
		"scope":       id.Scope,
		"tenant_id":   id.TenantID,
		"user_id":     id.UserID,
		"value":       value,
		"description": nil,
		"updated_at":  s.now().UTC(),
		"updated_by":  nil,
	}
	if d := strings.TrimSpace(field(body, "description")); d != "" {
		set["description"] = d
	}
	if oid, err := primitive.ObjectIDFromHex(updatedBy); err == nil {
		set["updated_by"] = oid
	}
	oid, err := s.repo.Upsert(ctx, id, set)
	if err != nil {
		return primitive.NilObjectID, apperr.Internal(err)
	}
	s.logger.Info().Str("key", id.Key).Str("scope", id.Scope).Msg("setting guardado")
	return oid, nil
}

func (s *Service) Get(ctx context.Context, id Ident) (map[string]any, error) {
	st, err := s.repo.Find(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apperr.NotFound("not_found")
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return st.Render(), nil
}

// ListFilter holds the raw listing parameters.
type ListFilter struct {
	Scope    string
	TenantID string
	UserID   string
	Prefix   string
	Limit    int
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]map[string]any, error) {
	q := Query{Scope: strings.TrimSpace(f.Scope), Prefix: f.Prefix, Limit: int64(f.Limit)}
	var err error
	if q.TenantID, err = optionalID(f.TenantID, "tenant_id"); err != nil {
		return nil, err
	}
	if q.UserID, err = optionalID(f.UserID, "user_id"); err != nil {
		return nil, err
	}
	switch {
	case q.Limit <= 0:
		q.Limit = DefaultLimit
	case q.Limit > MaxLimit:
		q.Limit = MaxLimit
	}
	items, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	out := make([]map[string]any, 0, len(items))
	for _, st := range items {
		out = append(out, st.Render())
	}
	return out, nil
}

// Delete removes the setting and reports how many were removed.
func (s *Service) Delete(ctx context.Context, id Ident) (map[string]any, error) {
	n, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return map[string]any{"deleted": n}, nil
}
