package mensaje

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/domain/paciente"
	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/pkg/pagination"
)

// Pacientes is the patient lookup used to resolve hints.
type Pacientes interface {
	FindByIdentidad(ctx context.Context, tipo, numero string) (*paciente.Paciente, error)
	FindByCodigo(ctx context.Context, codigo string) (*paciente.Paciente, error)
	List(ctx context.Context, f paciente.Filter, p pagination.Params) ([]*paciente.Paciente, int64, error)
}

// Hint identifies a patient when the caller does not know its id. The
// first complete criterion wins, in field order.
type Hint struct {
	PacienteID           string
	TipoIdentificacion   string
	NumeroIdentificacion string
	CodigoExpediente     string
	Nombre               string
	Apellido             string
	Q                    string
}

// HintFrom reads a Hint with get, which returns "" for absent keys.
// "expediente" is accepted for codigo_expediente.
func HintFrom(get func(key string) string) Hint {
	h := Hint{
		PacienteID:           get("paciente_id"),
		TipoIdentificacion:   get("tipo_identificacion"),
		NumeroIdentificacion: get("numero_identificacion"),
		CodigoExpediente:     get("codigo_expediente"),
		Nombre:               get("nombre"),
		Apellido:             get("apellido"),
		Q:                    get("q"),
	}
	if h.CodigoExpediente == "" {
		h.CodigoExpediente = get("expediente")
	}
	return h
}

// HintFromMap reads a Hint from a JSON body; non-string values are ignored.
func HintFromMap(body map[string]any) Hint {
	return HintFrom(func(key string) string {
		s, _ := body[key].(string)
		return strings.TrimSpace(s)
	})
}

var (
	errPacienteNoEncontrado = apperr.NotFound("Paciente no encontrado")
	errPacienteInvalido     = apperr.Validation("paciente_id invalido")
)

// resolve returns the patient a hint points to. ok is false when the hint
// names no patient at all.
func resolve(ctx context.Context, pacientes Pacientes, h Hint) (primitive.ObjectID, bool, error) {
	if h.PacienteID != "" {
		oid, ok := parseID(h.PacienteID)
		if !ok {
			return primitive.NilObjectID, false, errPacienteInvalido
		}
		return oid, true, nil
	}

	var (
		p   *paciente.Paciente
		err error
	)
	switch {
	case h.TipoIdentificacion != "" && h.NumeroIdentificacion != "":
		tipo := strings.ToUpper(strings.TrimSpace(h.TipoIdentificacion))
		numero, nerr := paciente.NormalizarIdentificacion(tipo, h.NumeroIdentificacion)
		if nerr != nil {
			return primitive.NilObjectID, false, nerr
		}
		p, err = pacientes.FindByIdentidad(ctx, tipo, numero)
	case h.CodigoExpediente != "":
		p, err = pacientes.FindByCodigo(ctx, strings.ToUpper(strings.TrimSpace(h.CodigoExpediente)))
	case h.Nombre != "" && h.Apellido != "":
		return unique(ctx, pacientes, paciente.Filter{Nombre: h.Nombre, Apellido: h.Apellido, SoloActivos: true})
	case h.Q != "":
		return unique(ctx, pacientes, paciente.Filter{Q: h.Q, SoloActivos: true})
	default:
		return primitive.NilObjectID, false, nil
	}
	if errors.Is(err, db.ErrNotFound) {
		return primitive.NilObjectID, false, errPacienteNoEncontrado
	}
	if err != nil {
		return primitive.NilObjectID, false, apperr.Internal(err)
	}
	return p.ID, true, nil
}

func unique(ctx context.Context, pacientes Pacientes, f paciente.Filter) (primitive.ObjectID, bool, error) {
	items, total, err := pacientes.List(ctx, f, pagination.New(1, 5))
	if err != nil {
		return primitive.NilObjectID, false, apperr.Internal(err)
	}
	switch {
	case total == 0 || len(items) == 0:
		return primitive.NilObjectID, false, errPacienteNoEncontrado
	case total > 1:
		return primitive.NilObjectID, false, apperr.Conflict("Ambiguo: coinciden varios pacientes")
	}
	return items[0].ID, true, nil
}
