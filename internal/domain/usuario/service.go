package usuario

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

var (
	errNotFound     = apperr.NotFound("Usuario no encontrado")
	errCredenciales = apperr.Unauthorized("Credenciales inválidas")
	errUsername     = apperr.Conflict("El username ya existe")
	correoRe        = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

var requeridos = []string{"nombre", "apellido", "correo", "username", "password", "rol"}

// TokenConfig controls the tokens issued on login.
type TokenConfig struct {
	SigningKey []byte
	TTL        time.Duration
}

type Service struct {
	repo   Repository
	tokens TokenConfig
	logger zerolog.Logger
	now    func() time.Time
	// dummy is compared against when the username is unknown so both
	// failures cost one bcrypt check.
	dummy string
}

func NewService(repo Repository, tokens TokenConfig, logger zerolog.Logger) *Service {
	dummy, _ := auth.HashPassword("sigepren-dummy-password")
	return &Service{
		repo:   repo,
		tokens: tokens,
		logger: logger.With().Str("component", "usuario").Logger(),
		now:    time.Now,
		dummy:  dummy,
	}
}

// campos validates the writable fields present in payload and returns the
// values to store. The password comes back hashed.
func campos(payload map[string]any, create bool) (bson.M, error) {
	set := bson.M{}
	errs := map[string]string{}
	str := func(key string) (string, bool) {
		v, present := payload[key]
		if !present || v == nil {
			return "", present
		}
		s, ok := v.(string)
		if !ok {
			errs[key] = "Debe ser texto"
			return "", true
		}
		return strings.TrimSpace(s), true
	}
	if create {
		for _, k := range requeridos {
			if s, _ := str(k); s == "" {
				errs[k] = fmt.Sprintf("El campo '%s' es obligatorio", k)
			}
		}
	}
	for _, k := range []string{"nombre", "apellido", "username"} {
		if s, ok := str(k); ok && s != "" {
			set[k] = s
		}
	}
	if s, ok := str("correo"); ok && s != "" {
		if !correoRe.MatchString(s) {
			errs["correo"] = "Formato de correo inválido"
		}
		set["correo"] = strings.ToLower(s)
	}
	if s, ok := str("telefono"); ok {
		if s == "" {
			set["telefono"] = nil
		} else {
			set["telefono"] = s
		}
	}
	if s, ok := str("rol"); ok && s != "" {
		if !auth.IsValidRole(s) {
			errs["rol"] = "Rol no válido"
		}
		set["rol"] = s
	}
	if v, ok := payload["password"].(string); ok && v != "" {
		if utf8.RuneCountInString(v) < MinPassword {
			errs["password"] = fmt.Sprintf("Debe tener al menos %d caracteres", MinPassword)
		} else {
			hash, err := auth.HashPassword(v)
			if err != nil {
				return nil, apperr.Internal(err)
			}
			set["password"] = hash
		}
	}
	if len(errs) > 0 {
		return nil, apperr.ValidationFields("Validación fallida", errs)
	}
	return set, nil
}

func storeErr(err error) error {
	if errors.Is(err, db.ErrDuplicate) {
		return errUsername
	}
	return apperr.Internal(err)
}

func (s *Service) Crear(ctx context.Context, payload map[string]any) (*Usuario, error) {
	set, err := campos(payload, true)
	if err != nil {
		return nil, err
	}
	now := s.now().UTC().Truncate(time.Second)
	u := &Usuario{
		Nombre:    set["nombre"].(string),
		Apellido:  set["apellido"].(string),
		Correo:    set["correo"].(string),
		Username:  set["username"].(string),
		Password:  set["password"].(string),
		Rol:       set["rol"].(string),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if tel, ok := set["telefono"].(string); ok {
		u.Telefono = &tel
	}
	id, err := s.repo.Insert(ctx, u)
	if err != nil {
		return nil, storeErr(err)
	}
	u.ID = id
	s.logger.Info().Str("usuario_id", id.Hex()).Str("rol", u.Rol).Msg("usuario creado")
	return u, nil
}

func (s *Service) Listar(ctx context.Context, p pagination.Params) (pagination.Page[map[string]any], error) {
	items, total, err := s.repo.List(ctx, p)
	if err != nil {
		return pagination.Page[map[string]any]{}, apperr.Internal(err)
	}
	out := make([]map[string]any, 0, len(items))
	for _, u := range items {
		out = append(out, u.Render())
	}
	return pagination.NewPage(out, p, total), nil
}

func (s *Service) Obtener(ctx context.Context, id string) (*Usuario, error) {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return nil, err
	}
	u, err := s.repo.FindByID(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Actualizar applies the fields present in payload. A non-empty password
// is hashed again.
func (s *Service) Actualizar(ctx context.Context, id string, payload map[string]any) (*Usuario, error) {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return nil, err
	}
	set, err := campos(payload, false)
	if err != nil {
		return nil, err
	}
	if len(set) == 0 {
		return nil, apperr.BadRequest("No se enviaron campos válidos para actualizar")
	}
	set["updated_at"] = s.now().UTC().Truncate(time.Second)
	found, err := s.repo.Update(ctx, oid, set)
	if err != nil {
		return nil, storeErr(err)
	}
	if !found {
		return nil, errNotFound
	}
	return s.Obtener(ctx, id)
}

func (s *Service) Eliminar(ctx context.Context, id string) error {
	oid, err := db.ParseObjectID(id, "id")
	if err != nil {
		return err
	}
	deleted, err := s.repo.Delete(ctx, oid)
	if err != nil {
		return apperr.Internal(err)
	}
	if !deleted {
		return errNotFound
	}
	s.logger.Info().Str("usuario_id", id).Msg("usuario eliminado")
	return nil
}

// Login checks the credentials and issues a token. Unknown usernames and
// wrong passwords fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (map[string]any, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, apperr.BadRequest("Username y password son requeridos")
	}
	u, err := s.repo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		return nil, apperr.Internal(err)
	}
	if u == nil {
		auth.CheckPassword(s.dummy, password)
		return nil, errCredenciales
	}
	if !auth.CheckPassword(u.Password, password) {
		s.logger.Warn().Str("usuario_id", u.ID.Hex()).Msg("contraseña incorrecta")
		return nil, errCredenciales
	}
	token, err := auth.IssueToken(s.tokens.SigningKey, u.ID.Hex(), u.Rol, s.tokens.TTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return map[string]any{
		"mensaje": "Autenticación exitosa",
		"token":   token,
		"usuario": map[string]any{"id": u.ID.Hex(), "nombre": u.Nombre, "rol": u.Rol},
	}, nil
}
