package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/metrics"
)

// AuditEntry records one write made through the API.
type AuditEntry struct {
	UsuarioID  string    `bson:"usuario_id" json:"usuario_id"`
	Rol        string    `bson:"rol" json:"rol"`
	Resource   string    `bson:"resource" json:"resource"`
	ResourceID string    `bson:"resource_id,omitempty" json:"resource_id,omitempty"`
	Action     string    `bson:"action" json:"action"`
	Method     string    `bson:"method" json:"method"`
	Path       string    `bson:"path" json:"path"`
	Status     int       `bson:"status" json:"status"`
	RemoteIP   string    `bson:"remote_ip" json:"remote_ip"`
	UserAgent  string    `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	RequestID  string    `bson:"request_id" json:"request_id"`
	Timestamp  time.Time `bson:"timestamp" json:"timestamp"`
}

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	RecordAccess(ctx context.Context, entry AuditEntry) error
}

// AuditRecorderFunc is a function adapter for AuditRecorder.
type AuditRecorderFunc func(ctx context.Context, entry AuditEntry) error

func (f AuditRecorderFunc) RecordAccess(ctx context.Context, entry AuditEntry) error {
	return f(ctx, entry)
}

// Audit logs every write under /api/ and hands it to the recorder, when one
// is given. A recorder failure is logged and does not change the response.
func Audit(logger zerolog.Logger, recorder AuditRecorder) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if !isAuditable(req.Method, req.URL.Path) {
				return next(c)
			}

			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			resource, resourceID := splitResource(req.URL.Path)
			ctx := req.Context()
			entry := AuditEntry{
				UsuarioID:  auth.UserIDFromContext(ctx),
				Rol:        auth.RoleFromContext(ctx),
				Resource:   resource,
				ResourceID: resourceID,
				Action:     methodToAction(req.Method),
				Method:     req.Method,
				Path:       req.URL.Path,
				Status:     status,
				RemoteIP:   c.RealIP(),
				UserAgent:  req.UserAgent(),
				Timestamp:  time.Now().UTC(),
			}
			entry.RequestID, _ = c.Get("request_id").(string)

			if recorder != nil {
				// The request context may already be cancelled or past its deadline.
				recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
				if recErr := recorder.RecordAccess(recCtx, entry); recErr != nil {
					logger.Error().Err(recErr).
						Str("request_id", entry.RequestID).
						Msg("failed to record audit entry")
				}
				cancel()
			}
			metrics.RecordAuditEntry()

			logger.Info().
				Str("type", "audit").
				Str("request_id", entry.RequestID).
				Str("usuario_id", entry.UsuarioID).
				Str("rol", entry.Rol).
				Str("resource", entry.Resource).
				Str("resource_id", entry.ResourceID).
				Str("action", entry.Action).
				Int("status", entry.Status).
				Str("remote_ip", entry.RemoteIP).
				Msg("write")

			return err
		}
	}
}

func isAuditable(method, path string) bool {
	if !strings.HasPrefix(path, "/api/") || path == "/api/login" {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func methodToAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut, http.MethodPatch:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return "read"
	}
}

// splitResource returns the collection and, when the next path element looks
// like an ObjectId, the document id.
//
//	/api/citas                      -> citas, ""
//	/api/citas/65f0...0001/cancel   -> citas, 65f0...0001
//	/api/pacientes/full             -> pacientes, ""
func splitResource(path string) (string, string) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(path, "/api/"), "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		return "unknown", ""
	}
	if len(parts) > 1 && isHexID(parts[1]) {
		return parts[0], parts[1]
	}
	return parts[0], ""
}

func isHexID(s string) bool {
	if len(s) != 24 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f' || r >= 'A' && r <= 'F') {
			return false
		}
	}
	return true
}
