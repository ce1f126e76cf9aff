package paciente

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/historial"
	"github.com/sigepren/sigepren/internal/domain/segmento"
	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/schema"
	"github.com/sigepren/sigepren/pkg/pagination"
)

func upper(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToUpper(strings.TrimSpace(s))
	}
	return v
}

var pacienteSchema = schema.New(
	schema.OneOf("tipo_identificacion", TiposIdentificacion...).Req().Map(upper),
	schema.Str("numero_identificacion").Req().Map(upper),
	schema.Str("nombres").Req(),
	schema.Str("apellidos").Req(),
	schema.DateOf("fecha_nac", fechaNacLayout, "02/01/2006").Req().Hinted("YYYY-MM-DD o DD/MM/YYYY"),
	schema.OneOf("sexo", "M", "F").Map(upper).Def("F"),
	schema.Str("telefono"),
	schema.Str("direccion"),
	schema.Str("barrio"),
	schema.Str("municipio_codigo"),
	schema.Integer("gesta_actual").AtLeast(0).Null(),
	schema.Boolean("activo"),
)

// textoRequerido must also be non-empty once trimmed.
var textoRequerido = []string{"numero_identificacion", "nombres", "apellidos"}

var (
	errNotFound = apperr.NotFound("Paciente no encontrado")
	errExiste   = apperr.Conflict("Paciente ya existe")
)

// withLegacyKeys maps the old "bairro" spelling onto barrio.
func withLegacyKeys(payload map[string]any) map[string]any {
	v, ok := payload["bairro"]
	if !ok {
		return payload
	}
	if _, has := payload["barrio"]; has {
		return payload
	}
	cp := make(map[string]any, len(payload))
	for k, val := range payload {
		cp[k] = val
	}
	cp["barrio"] = v
	delete(cp, "bairro")
	return cp
}

func checkTexto(doc bson.M, create bool) error {
	var missing []string
	for _, f := range textoRequerido {
		v, ok := doc[f]
		if !ok && !create {
			continue
		}
		if s, _ := v.(string); s == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return apperr.Validationf(pacienteSchema.Messages.Missing, strings.Join(missing, ", "))
	}
	return nil
}

var municipioPattern = regexp.MustCompile(`^\d{3}$`)

// checkMunicipio keeps the MMM block of the expediente code three digits
// wide. An empty code falls back to the configured municipio.
func checkMunicipio(doc bson.M) error {
	m, _ := doc["municipio_codigo"].(string)
	if m == "" || municipioPattern.MatchString(m) {
		return nil
	}
	return apperr.Validation("municipio_codigo debe tener 3 dígitos")
}

// apply copies normalized values onto p.
func (p *Paciente) apply(doc bson.M) {
	for k, v := range doc {
		str, _ := v.(string)
		switch k {
		case "tipo_identificacion":
			p.TipoIdentificacion = str
		case "numero_identificacion":
			p.NumeroIdentificacion = str
		case "nombres":
			p.Nombres = str
		case "apellidos":
			p.Apellidos = str
		case "fecha_nac":
			if t, ok := v.(time.Time); ok {
				p.FechaNac = t
			}
		case "sexo":
			p.Sexo = str
		case "telefono":
			p.Telefono = str
		case "direccion":
			p.Direccion = str
		case "barrio":
			p.Barrio = str
		case "municipio_codigo":
			p.MunicipioCodigo = str
		case "gesta_actual":
			if n, ok := v.(int64); ok {
				p.GestaActual = &n
			} else {
				p.GestaActual = nil
			}
		case "activo":
			if b, ok := v.(bool); ok {
				p.Activo = b
			}
		}
	}
}

func (p *Paciente) expediente(municipio string) Expediente {
	if p.MunicipioCodigo != "" {
		municipio = p.MunicipioCodigo
	}
	return Expediente{
		Municipio: municipio,
		Nombres:   p.Nombres,
		Apellidos: p.Apellidos,
		Sexo:      p.Sexo,
		FechaNac:  p.FechaNac,
	}
}

type Service struct {
	repo        Repository
	historiales *historial.Service
	segmentos   *segmento.Services
	municipio   string
	logger      zerolog.Logger
	now         func() time.Time
}

// NewService wires the patient operations. municipio is the code used when a
// patient carries none.
func NewService(repo Repository, historiales *historial.Service, segmentos *segmento.Services, municipio string, logger zerolog.Logger) *Service {
	return &Service{
		repo:        repo,
		historiales: historiales,
		segmentos:   segmentos,
		municipio:   municipio,
		logger:      logger,
		now:         time.Now,
	}
}

// codigoLibre returns the first code of e whose sequence number is not used
// by another live patient.
func (s *Service) codigoLibre(ctx context.Context, e Expediente, except primitive.ObjectID) (string, error) {
	for cc := 0; cc <= MaxCC; cc++ {
		codigo := e.Codigo(cc)
		taken, err := s.repo.CodigoTaken(ctx, codigo, except)
		if err != nil {
			return "", err
		}
		if !taken {
			return codigo, nil
		}
	}
	return "", errCCAgotado
}

func (s *Service) checkIdentidad(ctx context.Context, tipo, numero string, self primitive.ObjectID) error {
	existing, err := s.repo.FindByIdentidad(ctx, tipo, numero)
	if errors.Is(err, db.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID == self {
		return nil
	}
	return apperr.ConflictWithData(errExiste.Message, existing.Render())
}

// Crear registers a patient and assigns its codigo_expediente.
func (s *Service) Crear(ctx context.Context, payload map[string]any) (*Paciente, error) {
	doc, err := pacienteSchema.Normalize(withLegacyKeys(payload), schema.Create)
	if err != nil {
		return nil, err
	}
	if err := checkTexto(doc, true); err != nil {
		return nil, err
	}
	if err := checkMunicipio(doc); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &Paciente{Activo: true, CreatedAt: now, UpdatedAt: now}
	p.apply(doc)
	p.NumeroIdentificacion, err = NormalizarIdentificacion(p.TipoIdentificacion, p.NumeroIdentificacion)
	if err != nil {
		return nil, err
	}
	if err := s.checkIdentidad(ctx, p.TipoIdentificacion, p.NumeroIdentificacion, primitive.NilObjectID); err != nil {
		return nil, err
	}
	if p.MunicipioCodigo == "" {
		p.MunicipioCodigo = s.municipio
	}
	p.CodigoExpediente, err = s.codigoLibre(ctx, p.expediente(s.municipio), primitive.NilObjectID)
	if err != nil {
		return nil, err
	}

	p.ID, err = s.repo.Insert(ctx, p)
	if errors.Is(err, db.ErrDuplicate) {
		return nil, errExiste
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("paciente_id", p.ID.Hex()).Str("codigo_expediente", p.CodigoExpediente).Msg("paciente created")
	return p, nil
}

func (s *Service) find(ctx context.Context, id string) (*Paciente, error) {
	oid, err := db.ParseObjectID(id, "paciente_id")
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, oid)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	return p, err
}

// Obtener returns the patient. With an identificacion id the matching
// identificacion segment is returned next to it.
func (s *Service) Obtener(ctx context.Context, id, identificacionID string) (map[string]any, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if identificacionID == "" {
		return p.Render(), nil
	}
	svc, ok := s.segmentos.Get("identificacion")
	if !ok {
		return nil, apperr.Internal(fmt.Errorf("identificacion segment is not registered"))
	}
	ident, err := svc.Get(ctx, identificacionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"paciente": p.Render(), "identificacion": ident}, nil
}

// ObtenerAgregado returns the patient with its latest historial and every
// clinical segment.
func (s *Service) ObtenerAgregado(ctx context.Context, id string) (map[string]any, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.historiales.AgregadoPorPaciente(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	out["paciente"] = p.Render()
	return out, nil
}

func (s *Service) Listar(ctx context.Context, q string, soloActivos bool, p pagination.Params) (pagination.Page[map[string]any], error) {
	items, total, err := s.repo.List(ctx, Filter{Q: strings.TrimSpace(q), SoloActivos: soloActivos}, p)
	if err != nil {
		return pagination.Page[map[string]any]{}, err
	}
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.Render())
	}
	return pagination.NewPage(out, p, total), nil
}

func (s *Service) BuscarPorIdentificacion(ctx context.Context, numero string) (map[string]any, error) {
	numero = strings.ToUpper(strings.TrimSpace(numero))
	if numero == "" {
		return nil, apperr.Validation("Parámetro 'identificacion' es requerido")
	}
	p, err := s.repo.FindByNumeroIdentificacion(ctx, numero)
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return p.Render(), nil
}

func (s *Service) BuscarPorCodigoExpediente(ctx context.Context, codigo string) (map[string]any, error) {
	p, err := s.repo.FindByCodigo(ctx, strings.ToUpper(strings.TrimSpace(codigo)))
	if errors.Is(err, db.ErrNotFound) {
		return nil, errNotFound
	}
	if err != nil {
		return nil, err
	}
	return p.Render(), nil
}

// Actualizar applies a partial update. regenerate_codigo recomputes the
// expediente code from the resulting names, birth date and sex.
func (s *Service) Actualizar(ctx context.Context, id string, payload map[string]any) (map[string]any, error) {
	cur, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	regenerar, _ := payload["regenerate_codigo"].(bool)

	changes, err := pacienteSchema.Normalize(withLegacyKeys(payload), schema.Patch)
	if err != nil {
		return nil, err
	}
	if err := checkTexto(changes, false); err != nil {
		return nil, err
	}
	if err := checkMunicipio(changes); err != nil {
		return nil, err
	}

	next := *cur
	next.apply(changes)
	_, tipoChanged := changes["tipo_identificacion"]
	_, numeroChanged := changes["numero_identificacion"]
	if tipoChanged || numeroChanged {
		numero, err := NormalizarIdentificacion(next.TipoIdentificacion, next.NumeroIdentificacion)
		if err != nil {
			return nil, err
		}
		changes["numero_identificacion"] = numero
		if err := s.checkIdentidad(ctx, next.TipoIdentificacion, numero, cur.ID); err != nil {
			return nil, err
		}
	}
	if regenerar {
		codigo, err := s.codigoLibre(ctx, next.expediente(s.municipio), cur.ID)
		if err != nil {
			return nil, err
		}
		changes["codigo_expediente"] = codigo
	}
	if len(changes) == 0 {
		return nil, apperr.Validation("Nada para actualizar")
	}

	changes["updated_at"] = s.now().UTC()
	matched, err := s.repo.Update(ctx, cur.ID, changes)
	if errors.Is(err, db.ErrDuplicate) {
		return nil, errExiste
	}
	if err != nil {
		return nil, err
	}
	if !matched {
		return nil, errNotFound
	}
	updated, err := s.repo.FindByID(ctx, cur.ID)
	if err != nil {
		return nil, err
	}
	return updated.Render(), nil
}

// Eliminar marks the patient deleted, or removes it when hard is set.
func (s *Service) Eliminar(ctx context.Context, id string, hard bool) (string, error) {
	oid, err := db.ParseObjectID(id, "paciente_id")
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
		return "Paciente eliminado definitivamente", nil
	}
	now := s.now().UTC()
	matched, err := s.repo.Update(ctx, oid, bson.M{"deleted_at": now, "activo": false, "updated_at": now})
	if err != nil {
		return "", err
	}
	if !matched {
		return "", errNotFound
	}
	return "Paciente eliminado", nil
}
