// Package setting keeps configuration values scoped globally, per tenant or
// per user.
package setting

import (
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/db"
	"github.com/sigepren/sigepren/internal/platform/schema"
)

const Collection = "settings"

const (
	ScopeGlobal = "global"
	ScopeTenant = "tenant"
	ScopeUser   = "user"
)

// Keys with dedicated handling.
const (
	KeyPrimaryEmail = "notifications.primary_email"
	KeyAutoAlerts   = "notifications.auto_alerts"
	KeyWebhook      = "integrations.webhook"
	KeyToken        = "integrations.token"
)

type Setting struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	Key         string              `bson:"key"`
	Scope       string              `bson:"scope"`
	TenantID    *primitive.ObjectID `bson:"tenant_id"`
	UserID      *primitive.ObjectID `bson:"user_id"`
	Value       any                 `bson:"value"`
	Description *string             `bson:"description"`
	CreatedAt   time.Time           `bson:"created_at"`
	UpdatedAt   time.Time           `bson:"updated_at"`
	UpdatedBy   *primitive.ObjectID `bson:"updated_by"`
}

func hex(id *primitive.ObjectID) any {
	if id == nil {
		return nil
	}
	return id.Hex()
}

// Render returns the setting as JSON, with secret values masked.
func (s *Setting) Render() map[string]any {
	value := schema.Render(s.Value)
	if str, ok := value.(string); ok && s.Key == KeyToken {
		value = Mask(str)
	}
	return map[string]any{
		"id":          s.ID.Hex(),
		"key":         s.Key,
		"scope":       s.Scope,
		"tenant_id":   hex(s.TenantID),
		"user_id":     hex(s.UserID),
		"value":       value,
		"description": s.Description,
		"created_at":  schema.Render(s.CreatedAt),
		"updated_at":  schema.Render(s.UpdatedAt),
		"updated_by":  hex(s.UpdatedBy),
	}
}

// Mask keeps the first and last two characters of a secret.
func Mask(v string) string {
	r := []rune(v)
	if len(r) < 4 {
		return "••••"
	}
	return string(r[:2]) + "••••" + string(r[len(r)-2:])
}

// Ident is the identity of a setting: key and scope, plus the tenant or
// user the scope refers to.
type Ident struct {
	Key      string
	Scope    string
	TenantID *primitive.ObjectID
	UserID   *primitive.ObjectID
}

func optionalID(value, field string) (*primitive.ObjectID, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	oid, err := db.ParseObjectID(value, field)
	if err != nil {
		return nil, err
	}
	return &oid, nil
}

// NewIdent validates scope and keeps only the owner id the scope uses. An
// empty scope means global.
func NewIdent(key, scope, tenantID, userID string) (Ident, error) {
	id := Ident{Key: strings.TrimSpace(key), Scope: strings.TrimSpace(scope)}
	if id.Scope == "" {
		id.Scope = ScopeGlobal
	}
	var err error
	switch id.Scope {
	case ScopeGlobal:
	case ScopeTenant:
		if id.TenantID, err = optionalID(tenantID, "tenant_id"); err != nil {
			return Ident{}, err
		}
	case ScopeUser:
		if id.UserID, err = optionalID(userID, "user_id"); err != nil {
			return Ident{}, err
		}
	default:
		return Ident{}, apperr.Validation("scope inválido")
	}
	return id, nil
}

// Filter matches the stored setting with this identity.
func (id Ident) Filter() bson.M {
	return bson.M{"key": id.Key, "scope": id.Scope, "tenant_id": id.TenantID, "user_id": id.UserID}
}

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	urlRe   = regexp.MustCompile(`(?i)^https?://\S+$`)
)

// validators check the value of well-known keys. Other keys take any value.
var validators = map[string]func(v any) error{
	KeyPrimaryEmail: func(v any) error {
		if s, ok := v.(string); ok && emailRe.MatchString(s) {
			return nil
		}
		return apperr.Validation("Correo inválido para notifications.primary_email")
	},
	KeyAutoAlerts: func(v any) error {
		if _, ok := v.(bool); ok {
			return nil
		}
		return apperr.Validation("notifications.auto_alerts debe ser booleano (true/false)")
	},
	KeyWebhook: func(v any) error {
		if s, ok := v.(string); ok && urlRe.MatchString(s) {
			return nil
		}
		return apperr.Validation("URL inválida para integrations.webhook")
	},
}

func Validate(key string, value any) error {
	if check, ok := validators[key]; ok {
		return check(value)
	}
	return nil
}
