// Package schema validates and coerces loosely typed JSON payloads against a
// declarative field list, producing documents ready to be stored in MongoDB.
package schema

// Kind is the type a field value is coerced to.
type Kind int

const (
	// Any keeps the value as given.
	Any Kind = iota
	// String accepts any scalar and stores its trimmed text.
	String
	// Text accepts only JSON strings.
	Text
	Bool
	Int
	Float
	Enum
	Date
	ObjectID
	Object
	List
)

// Field describes one key of a payload.
type Field struct {
	Name     string
	Kind     Kind
	Required bool
	Nullable bool

	// Enum options and matching.
	Options []string
	Fold    bool
	NoTrim  bool

	Min *float64
	Max *float64

	// Date parsing. Output defaults to the first layout.
	Layouts []string
	Output  string
	Hint    string

	// Object members; nil keeps the object untouched.
	Fields []Field
	// List element description and size limit.
	Items    *Field
	MaxItems int

	Default any
	Pre     func(any) any

	// Msg replaces every invalid-value message for this field.
	Msg string
}

func Str(name string) Field     { return Field{Name: name, Kind: String} }
func Txt(name string) Field     { return Field{Name: name, Kind: Text} }
func Boolean(name string) Field { return Field{Name: name, Kind: Bool} }
func Integer(name string) Field { return Field{Name: name, Kind: Int} }
func Number(name string) Field  { return Field{Name: name, Kind: Float} }
func Raw(name string) Field     { return Field{Name: name, Kind: Any} }
func OID(name string) Field     { return Field{Name: name, Kind: ObjectID} }

func OneOf(name string, options ...string) Field {
	return Field{Name: name, Kind: Enum, Options: options}
}

// DateOf parses with the given Go layouts, trying them in order.
func DateOf(name string, layouts ...string) Field {
	return Field{Name: name, Kind: Date, Layouts: layouts}
}

func Obj(name string, fields ...Field) Field {
	return Field{Name: name, Kind: Object, Fields: fields}
}

func ListOf(name string, item Field) Field {
	return Field{Name: name, Kind: List, Items: &item}
}

func (f Field) Req() Field { f.Required = true; return f }

func (f Field) Null() Field { f.Nullable = true; return f }

func (f Field) Lower() Field { f.Fold = true; return f }

func (f Field) Exact() Field { f.NoTrim = true; return f }

func (f Field) AtLeast(lo float64) Field { f.Min = &lo; return f }

func (f Field) AtMost(hi float64) Field { f.Max = &hi; return f }

func (f Field) Between(lo, hi float64) Field {
	f.Min, f.Max = &lo, &hi
	return f
}

func (f Field) Limit(n int) Field { f.MaxItems = n; return f }

func (f Field) Out(layout string) Field { f.Output = layout; return f }

func (f Field) Hinted(h string) Field { f.Hint = h; return f }

func (f Field) Def(v any) Field { f.Default = v; return f }

func (f Field) Map(fn func(any) any) Field { f.Pre = fn; return f }

func (f Field) Message(m string) Field { f.Msg = m; return f }

func (f Field) outputLayout() string {
	if f.Output != "" {
		return f.Output
	}
	if len(f.Layouts) > 0 {
		return f.Layouts[0]
	}
	return "2006-01-02"
}
