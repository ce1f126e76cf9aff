package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

// Mode selects how required fields are enforced.
type Mode int

const (
	// Create enforces every required field.
	Create Mode = iota
	// Patch normalizes only the top-level keys present in the payload and
	// ignores explicit nulls on non-nullable fields.
	Patch
)

// Messages holds the wording of validation errors. Every format receives the
// field path first.
type Messages struct {
	Missing  string
	String   string
	Bool     string
	Int      string
	Number   string
	Range    string
	Min      string
	Enum     string
	Date     string
	ObjectID string
	Object   string
	List     string
	MaxItems string
}

// DefaultMessages is the wording shared by most clinical segments.
var DefaultMessages = Messages{
	Missing:  "Campos requeridos faltantes: %s",
	String:   "%s debe ser string",
	Bool:     "%s debe ser booleano",
	Int:      "%s debe ser entero",
	Number:   "%s debe ser numérico",
	Range:    "%s fuera de rango permitido [%v, %v]",
	Min:      "%s debe ser >= %v",
	Enum:     "%s inválido; use uno de: %s",
	Date:     "%s debe tener formato %s",
	ObjectID: "%s no es un ObjectId válido",
	Object:   "%s debe ser objeto",
	List:     "%s debe ser una lista",
	MaxItems: "%s admite máximo %d elementos",
}

// Schema is an ordered set of fields plus the wording of its errors.
type Schema struct {
	Fields   []Field
	Messages Messages
	// KeepUnknown copies top-level keys not described by Fields.
	KeepUnknown bool
	// BoolWords adds literal words accepted by Bool fields, compared
	// case-insensitively.
	BoolWords map[string]bool
}

// New builds a schema with the default wording.
func New(fields ...Field) *Schema {
	return &Schema{Fields: fields, Messages: DefaultMessages}
}

// Field returns the top-level field with the given name.
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Normalize validates in and returns the coerced document. Errors are
// *apperr.Error values of validation kind.
func (s *Schema) Normalize(in map[string]any, mode Mode) (bson.M, error) {
	if in == nil {
		in = map[string]any{}
	}
	out, err := s.object(s.Fields, in, "", mode, true)
	if err != nil {
		return nil, err
	}
	if s.KeepUnknown {
		for k, v := range in {
			if _, known := s.Field(k); !known {
				out[k] = v
			}
		}
	}
	return out, nil
}

func (s *Schema) fail(format string, args ...any) error {
	return apperr.Validation(fmt.Sprintf(format, args...))
}

func (s *Schema) object(fields []Field, in map[string]any, where string, mode Mode, top bool) (bson.M, error) {
	enforce := mode == Create || !top

	if enforce {
		var missing []string
		for _, f := range fields {
			if !f.Required {
				continue
			}
			v, ok := in[f.Name]
			if !ok || (v == nil && !f.Nullable) {
				missing = append(missing, f.Name)
			}
		}
		if len(missing) > 0 {
			msg := fmt.Sprintf(s.Messages.Missing, strings.Join(missing, ", "))
			if where != "" {
				msg = where + ": " + msg
			}
			return nil, apperr.Validation(msg)
		}
	}

	out := bson.M{}
	for _, f := range fields {
		raw, ok := in[f.Name]
		if !ok {
			if enforce && f.Default != nil {
				out[f.Name] = f.Default
			}
			continue
		}
		if raw == nil {
			if f.Nullable {
				out[f.Name] = nil
			}
			continue
		}
		v, err := s.coerce(f, raw, join(where, f.Name), mode)
		if err != nil {
			return nil, err
		}
		out[f.Name] = v
	}
	return out, nil
}

func join(where, name string) string {
	if where == "" {
		return name
	}
	return where + "." + name
}

func (s *Schema) invalid(f Field, format string, args ...any) error {
	if f.Msg != "" {
		return apperr.Validation(f.Msg)
	}
	return s.fail(format, args...)
}

func (s *Schema) coerce(f Field, raw any, path string, mode Mode) (any, error) {
	if f.Pre != nil {
		raw = f.Pre(raw)
		if raw == nil {
			if f.Nullable {
				return nil, nil
			}
			return nil, s.invalid(f, s.Messages.String, path)
		}
	}

	switch f.Kind {
	case Any:
		return raw, nil

	case String:
		switch v := raw.(type) {
		case string:
			return strings.TrimSpace(v), nil
		case float64, int, int32, int64, bool, json.Number:
			return fmt.Sprint(v), nil
		}
		return nil, s.invalid(f, s.Messages.String, path)

	case Text:
		v, ok := raw.(string)
		if !ok {
			return nil, s.invalid(f, s.Messages.String, path)
		}
		return strings.TrimSpace(v), nil

	case Bool:
		if b, ok := s.toBool(raw); ok {
			return b, nil
		}
		return nil, s.invalid(f, s.Messages.Bool, path)

	case Int:
		n, ok := toInt(raw)
		if !ok {
			return nil, s.invalid(f, s.Messages.Int, path)
		}
		if err := s.checkRange(f, float64(n), path); err != nil {
			return nil, err
		}
		return n, nil

	case Float:
		x, ok := toFloat(raw)
		if !ok {
			return nil, s.invalid(f, s.Messages.Number, path)
		}
		if err := s.checkRange(f, x, path); err != nil {
			return nil, err
		}
		return x, nil

	case Enum:
		str, ok := raw.(string)
		if ok {
			if !f.NoTrim {
				str = strings.TrimSpace(str)
			}
			if f.Fold {
				str = strings.ToLower(str)
			}
			for _, o := range f.Options {
				if o == str {
					return str, nil
				}
			}
		}
		opts := append([]string(nil), f.Options...)
		sort.Strings(opts)
		return nil, s.invalid(f, s.Messages.Enum, path, strings.Join(opts, ", "))

	case Date:
		if t, ok := ToTime(raw); ok {
			return t.UTC(), nil
		}
		str, ok := raw.(string)
		if ok {
			str = strings.TrimSpace(str)
			for _, layout := range f.Layouts {
				if t, ok := parseDate(layout, str); ok {
					return t, nil
				}
			}
		}
		hint := f.Hint
		if hint == "" {
			hint = "YYYY-MM-DD"
		}
		return nil, s.invalid(f, s.Messages.Date, path, hint)

	case ObjectID:
		switch v := raw.(type) {
		case primitive.ObjectID:
			return v, nil
		case string:
			oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(v))
			if err == nil {
				return oid, nil
			}
		}
		return nil, s.invalid(f, s.Messages.ObjectID, path)

	case Object:
		m, ok := ToMap(raw)
		if !ok {
			return nil, s.invalid(f, s.Messages.Object, path)
		}
		if f.Fields == nil {
			return bson.M(m), nil
		}
		return s.object(f.Fields, m, path, mode, false)

	case List:
		items, ok := ToList(raw)
		if !ok {
			return nil, s.invalid(f, s.Messages.List, path)
		}
		if f.MaxItems > 0 && len(items) > f.MaxItems {
			return nil, s.invalid(f, s.Messages.MaxItems, path, f.MaxItems)
		}
		out := make([]any, 0, len(items))
		for i, item := range items {
			if f.Items == nil {
				out = append(out, item)
				continue
			}
			elemPath := fmt.Sprintf("%s[%d]", path, i)
			if item == nil {
				return nil, s.invalid(*f.Items, s.Messages.Object, elemPath)
			}
			v, err := s.coerce(*f.Items, item, elemPath, mode)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}

	return raw, nil
}

func (s *Schema) checkRange(f Field, x float64, path string) error {
	switch {
	case f.Min != nil && f.Max != nil:
		if x < *f.Min || x > *f.Max {
			return s.invalid(f, s.Messages.Range, path, *f.Min, *f.Max)
		}
	case f.Min != nil:
		if x < *f.Min {
			return s.invalid(f, s.Messages.Min, path, *f.Min)
		}
	case f.Max != nil:
		if x > *f.Max {
			return s.invalid(f, s.Messages.Range, path, "-inf", *f.Max)
		}
	}
	return nil
}

func (s *Schema) toBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		w := strings.ToLower(strings.TrimSpace(v))
		if b, ok := s.BoolWords[w]; ok {
			return b, true
		}
		switch w {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
	default:
		if n, ok := toInt(raw); ok && (n == 0 || n == 1) {
			return n == 1, true
		}
	}
	return false, false
}

func toInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) || v < -(1<<63) || v >= 1<<63 {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	}
	return 0, false
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		x, err := v.Float64()
		return x, err == nil
	case string:
		x, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return x, err == nil && !math.IsNaN(x) && !math.IsInf(x, 0)
	}
	return 0, false
}
