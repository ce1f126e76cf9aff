// Package usuario manages system accounts and issues login tokens.
package usuario

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "usuarios"

// MinPassword is the shortest accepted password, in characters.
const MinPassword = 8

type Usuario struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Nombre    string             `bson:"nombre"`
	Apellido  string             `bson:"apellido"`
	Correo    string             `bson:"correo"`
	Telefono  *string            `bson:"telefono"`
	Username  string             `bson:"username"`
	Password  string             `bson:"password"`
	Rol       string             `bson:"rol"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// Render never includes the password hash.
func (u *Usuario) Render() map[string]any {
	out := map[string]any{
		"id":         u.ID.Hex(),
		"nombre":     u.Nombre,
		"apellido":   u.Apellido,
		"correo":     u.Correo,
		"telefono":   nil,
		"username":   u.Username,
		"rol":        u.Rol,
		"created_at": schema.Render(u.CreatedAt),
		"updated_at": schema.Render(u.UpdatedAt),
	}
	if u.Telefono != nil {
		out["telefono"] = *u.Telefono
	}
	return out
}
