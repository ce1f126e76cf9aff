// Package mensaje stores messages and reminders addressed to a patient.
package mensaje

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "mensajes"

const (
	TypeMessage  = "message"
	TypeReminder = "reminder"
)

type Mensaje struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	PacienteID  primitive.ObjectID  `bson:"paciente_id"`
	Title       *string             `bson:"title"`
	Description string              `bson:"description"`
	Type        string              `bson:"type"`
	Read        bool                `bson:"read"`
	ScheduledAt *time.Time          `bson:"scheduled_at"`
	SentAt      *time.Time          `bson:"sent_at"`
	CreatedBy   *primitive.ObjectID `bson:"created_by"`
	CreatedAt   time.Time           `bson:"created_at"`
	Deleted     bool                `bson:"deleted,omitempty"`
	DeletedAt   *time.Time          `bson:"deleted_at,omitempty"`
}

func optTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return schema.Render(*t)
}

func (m *Mensaje) Render() map[string]any {
	out := map[string]any{
		"id":           m.ID.Hex(),
		"paciente_id":  m.PacienteID.Hex(),
		"title":        m.Title,
		"description":  m.Description,
		"type":         m.Type,
		"read":         m.Read,
		"scheduled_at": optTime(m.ScheduledAt),
		"sent_at":      optTime(m.SentAt),
		"created_by":   nil,
		"created_at":   schema.Render(m.CreatedAt),
	}
	if m.CreatedBy != nil {
		out["created_by"] = m.CreatedBy.Hex()
	}
	return out
}

var nonHex = regexp.MustCompile(`[^0-9a-fA-F]`)

// parseID accepts an ObjectId with stray separators or invisible
// characters around the hex digits.
func parseID(s string) (primitive.ObjectID, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return primitive.NilObjectID, false
	}
	if oid, err := primitive.ObjectIDFromHex(s); err == nil {
		return oid, true
	}
	clean := nonHex.ReplaceAllString(s, "")
	if len(clean) != 24 {
		return primitive.NilObjectID, false
	}
	oid, err := primitive.ObjectIDFromHex(clean)
	return oid, err == nil
}

// Hace renders the age of a message the way the inbox shows it.
func Hace(d time.Duration) string {
	secs := int64(d / time.Second)
	switch {
	case secs < 60:
		return "Hace unos segundos"
	case secs < 3600:
		return plural(secs/60, "minuto")
	case secs < 86400:
		return plural(secs/3600, "hora")
	default:
		return fmt.Sprintf("Hace %d dias", secs/86400)
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("Hace 1 %s", unit)
	}
	return fmt.Sprintf("Hace %d %ss", n, unit)
}
