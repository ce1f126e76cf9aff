package schema

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TimestampLayout renders audit timestamps such as created_at.
const TimestampLayout = time.RFC3339

// Serialize renders a stored document for JSON output. Dates declared in the
// schema use their output layout; "_id" is exposed as "id".
func (s *Schema) Serialize(doc map[string]any) map[string]any {
	if doc == nil {
		return nil
	}
	out := renderObject(s.Fields, doc)
	if id, ok := out["_id"]; ok {
		out["id"] = id
		delete(out, "_id")
	}
	return out
}

// Render converts driver types (ObjectID, DateTime, D, A) into plain JSON
// friendly values.
func Render(v any) any {
	return renderValue(nil, v)
}

func renderObject(fields []Field, doc map[string]any) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		var f *Field
		for i := range fields {
			if fields[i].Name == k {
				f = &fields[i]
				break
			}
		}
		out[k] = renderValue(f, v)
	}
	return out
}

func renderValue(f *Field, v any) any {
	if v == nil {
		return nil
	}
	if t, ok := ToTime(v); ok {
		if f != nil && f.Kind == Date {
			return t.UTC().Format(f.outputLayout())
		}
		return t.UTC().Format(TimestampLayout)
	}
	switch x := v.(type) {
	case primitive.ObjectID:
		return x.Hex()
	}
	if m, ok := ToMap(v); ok {
		var fields []Field
		if f != nil {
			fields = f.Fields
		}
		return renderObject(fields, m)
	}
	if l, ok := ToList(v); ok {
		var item *Field
		if f != nil {
			item = f.Items
		}
		out := make([]any, len(l))
		for i, e := range l {
			out[i] = renderValue(item, e)
		}
		return out
	}
	return v
}
