package schema

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ToMap accepts the map shapes produced by encoding/json and the mongo driver.
func ToMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case bson.M:
		return map[string]any(m), true
	case bson.D:
		out := make(map[string]any, len(m))
		for _, e := range m {
			out[e.Key] = e.Value
		}
		return out, true
	}
	return nil, false
}

func ToList(v any) ([]any, bool) {
	switch l := v.(type) {
	case []any:
		return l, true
	case bson.A:
		return []any(l), true
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

func ToTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time().UTC(), true
	}
	return time.Time{}, false
}

func ToInt(v any) (int64, bool) { return toInt(v) }

func ToFloat(v any) (float64, bool) { return toFloat(v) }

func ToObjectID(v any) (primitive.ObjectID, bool) {
	switch id := v.(type) {
	case primitive.ObjectID:
		return id, true
	case string:
		oid, err := primitive.ObjectIDFromHex(id)
		return oid, err == nil
	}
	return primitive.NilObjectID, false
}

// Lookup resolves a dotted path inside nested documents.
func Lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := ToMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Merge overlays changes on a copy of base. Nested objects are replaced, not
// merged.
func Merge(base, changes map[string]any) bson.M {
	out := bson.M{}
	for k, v := range base {
		out[k] = v
	}
	for k, v := range changes {
		out[k] = v
	}
	return out
}
