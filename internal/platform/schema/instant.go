package schema

import (
	"strings"
	"time"

	"github.com/sigepren/sigepren/internal/platform/apperr"
)

var instantLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
}

// unpadded turns the zero-padded month and day of a layout into their
// one-or-two digit forms, so 2024-1-5 reads like 2024-01-05.
var unpadded = strings.NewReplacer("01", "1", "02", "2")

// parseDate reads str with layout, then with its unpadded form.
func parseDate(layout, str string) (time.Time, bool) {
	if t, err := time.ParseInLocation(layout, str, time.UTC); err == nil {
		return t, true
	}
	if relaxed := unpadded.Replace(layout); relaxed != layout {
		if t, err := time.ParseInLocation(relaxed, str, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseISO reads an ISO 8601 instant for field. Values without an offset
// are taken as UTC and a bare date means midnight; the result is always UTC.
func ParseISO(v any, field string) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t.UTC(), nil
	}
	s, ok := v.(string)
	if !ok {
		return time.Time{}, apperr.Validationf("%s debe ser un string ISO 8601", field)
	}
	s = strings.TrimSpace(s)
	for _, layout := range instantLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperr.Validationf("%s no es un ISO 8601 válido", field)
}
