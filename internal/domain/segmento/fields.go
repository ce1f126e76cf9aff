package segmento

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

var (
	siNo   = []string{"si", "no"}
	siNoNC = []string{"si", "no", "nc"}
)

const layoutYMD = "2006-01-02"

func ymd(name string) schema.Field {
	return schema.DateOf(name, layoutYMD)
}

func nonneg(name string) schema.Field {
	return schema.Integer(name).AtLeast(0)
}

func intOf(doc bson.M, key string) (int64, bool) {
	v, ok := doc[key]
	if !ok || v == nil {
		return 0, false
	}
	return schema.ToInt(v)
}

func strOf(doc bson.M, key string) string {
	s, _ := doc[key].(string)
	return s
}

// objOf returns a nested object of doc as a mutable bson.M.
func objOf(doc bson.M, key string) (bson.M, bool) {
	m, ok := schema.ToMap(doc[key])
	if !ok {
		return nil, false
	}
	return bson.M(m), true
}

func present(doc map[string]any, key string) bool {
	v, ok := doc[key]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return s != ""
	}
	return true
}
