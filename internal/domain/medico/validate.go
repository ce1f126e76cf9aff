package medico

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

type mode int

const (
	crear mode = iota
	actualizar
)

var requeridos = []string{"nombre_completo", "cedula", "especialidad", "sexo", "fecha_nacimiento"}

// changes is a validated payload: values to set and optional fields to
// remove.
type changes struct {
	set   bson.M
	unset []string
}

func (c changes) empty() bool {
	return len(c.set) == 0 && len(c.unset) == 0
}

func clip(v any, n int) string {
	if v == nil {
		return ""
	}
	s := strings.TrimSpace(fmt.Sprint(v))
	if r := []rune(s); len(r) > n {
		s = string(r[:n])
	}
	return s
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

func parseFecha(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	if t, err := time.Parse("2006-01-02", strings.TrimSpace(s)); err == nil {
		return t, true
	}
	t, err := schema.ParseISO(s, "fecha_nacimiento")
	return t, err == nil
}

// validar checks payload field by field and collects every failure.
func validar(payload map[string]any, m mode) (changes, error) {
	c := changes{set: bson.M{}}
	errs := map[string]string{}

	if m == crear {
		for _, campo := range requeridos {
			if blank(payload[campo]) {
				errs[campo] = fmt.Sprintf("El campo '%s' es obligatorio", campo)
			}
		}
	}
	optional := func(key string, value string) {
		if value == "" {
			c.unset = append(c.unset, key)
		} else {
			c.set[key] = value
		}
	}
	for key, v := range payload {
		if _, failed := errs[key]; failed {
			continue
		}
		switch key {
		case "folio":
			if blank(v) && m == crear {
				continue
			}
			folio := strings.ToUpper(clip(v, 40))
			if !folioRe.MatchString(folio) {
				errs[key] = "El folio debe tener formato MED-0001"
				continue
			}
			c.set[key] = folio
		case "nombre_completo", "cedula":
			n := 120
			if key == "cedula" {
				n = 40
			}
			s := clip(v, n)
			if len([]rune(s)) < 3 {
				errs[key] = "Debe tener al menos 3 caracteres"
				continue
			}
			c.set[key] = s
		case "especialidad":
			s, _ := v.(string)
			if !slices.Contains(Especialidades, s) {
				errs[key] = "Especialidad no válida"
				continue
			}
			c.set[key] = s
		case "subespecialidad":
			optional(key, clip(v, 80))
		case "sexo":
			s, _ := v.(string)
			if !slices.Contains(Sexos, s) {
				errs[key] = "Sexo inválido"
				continue
			}
			c.set[key] = s
		case "fecha_nacimiento":
			if v == nil {
				c.unset = append(c.unset, key)
				continue
			}
			t, ok := parseFecha(v)
			if !ok {
				errs[key] = "Formato de fecha inválido (usa ISO 8601, ej. 1990-05-23)"
				continue
			}
			c.set[key] = t
		case "correo":
			s := clip(v, 120)
			if s != "" && !emailRe.MatchString(s) {
				errs[key] = "Formato de correo inválido"
				continue
			}
			optional(key, strings.ToLower(s))
		case "telefono":
			s := clip(v, 20)
			if s != "" && !telefonoRe.MatchString(s) {
				errs[key] = "Formato de teléfono inválido"
				continue
			}
			optional(key, s)
		case "usuario_id":
			s, _ := v.(string)
			if oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(s)); err == nil {
				c.set[key] = oid
			} else {
				c.unset = append(c.unset, key)
			}
		case "estado":
			s, _ := v.(string)
			if s != EstadoActivo && s != EstadoInactivo {
				errs[key] = "Debe ser 'activo' o 'inactivo'"
				continue
			}
			c.set[key] = s
		case "observaciones":
			optional(key, clip(v, 500))
		}
	}
	if len(errs) > 0 {
		return changes{}, apperr.ValidationFields("Validación fallida", errs)
	}
	if m == crear {
		if _, ok := c.set["estado"]; !ok {
			c.set["estado"] = EstadoActivo
		}
		c.unset = nil
	}
	sort.Strings(c.unset)
	return c, nil
}
