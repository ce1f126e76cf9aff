// Package cita schedules prenatal appointments and keeps a provider from
// being double-booked.
package cita

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "citas"

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

var validStatuses = map[string]bool{
	StatusScheduled: true, StatusCompleted: true, StatusCancelled: true,
}

// DefaultDuration is used when a cita has no end_at.
const DefaultDuration = 30 * time.Minute

type Cita struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	PacienteID  primitive.ObjectID `bson:"paciente_id"`
	Title       string             `bson:"title,omitempty"`
	Description string             `bson:"description,omitempty"`
	// Provider is left out when empty so the partial unique index on
	// (provider, start_at) only covers assigned citas.
	Provider  string    `bson:"provider,omitempty"`
	Location  string    `bson:"location,omitempty"`
	Status    string    `bson:"status"`
	StartAt   time.Time `bson:"start_at"`
	EndAt     time.Time `bson:"end_at"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (c *Cita) Render() map[string]any {
	return map[string]any{
		"id":          c.ID.Hex(),
		"paciente_id": c.PacienteID.Hex(),
		"title":       nullable(c.Title),
		"description": nullable(c.Description),
		"provider":    nullable(c.Provider),
		"location":    nullable(c.Location),
		"status":      c.Status,
		"start_at":    schema.Render(c.StartAt),
		"end_at":      schema.Render(c.EndAt),
		"created_at":  schema.Render(c.CreatedAt),
		"updated_at":  schema.Render(c.UpdatedAt),
	}
}

// Overlaps reports whether [start, end) intersects the cita.
func (c *Cita) Overlaps(start, end time.Time) bool {
	return c.StartAt.Before(end) && c.EndAt.After(start)
}

func parseStatus(v any) (string, error) {
	st := strings.ToLower(strings.TrimSpace(fmt.Sprint(v)))
	if !validStatuses[st] {
		return "", apperr.Validation("status inválido")
	}
	return st, nil
}

// checkTransition allows only scheduled to move; completed and cancelled
// are final.
func checkTransition(from, to string) error {
	if from == to || from == StatusScheduled {
		return nil
	}
	return apperr.Conflict(fmt.Sprintf("Transición de estado no permitida: %s -> %s", from, to))
}
