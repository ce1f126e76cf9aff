package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	RoleAdmin      = "admin"
	RoleMedico     = "medico"
	RoleEnfermeria = "enfermeria"
	RoleRecepcion  = "recepcion"
)

// Roles lists every role a usuario may hold.
var Roles = []string{RoleAdmin, RoleMedico, RoleEnfermeria, RoleRecepcion}

// ClinicalRoles may read and write clinical records and schedules.
var ClinicalRoles = []string{RoleMedico, RoleEnfermeria, RoleRecepcion}

func IsValidRole(rol string) bool {
	for _, r := range Roles {
		if r == rol {
			return true
		}
	}
	return false
}

// RequireRole returns middleware that checks if the user has one of the
// specified roles. Admins always pass.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			has := RoleFromContext(c.Request().Context())
			if has == RoleAdmin {
				return next(c)
			}
			for _, required := range roles {
				if has == required {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden,
				fmt.Sprintf("Rol requerido: %s", strings.Join(roles, " o ")))
		}
	}
}
