package auth

import (
	"github.com/labstack/echo/v4"
)

// publicRoutes are the method and route template pairs served without a
// token: the liveness banner, the health checks, prometheus and login.
var publicRoutes = map[string]bool{
	"GET /":           true,
	"GET /api/health": true,
	"GET /health/db":  true,
	"GET /metrics":    true,
	"POST /api/login": true,
}

// AuthSkipper checks the route template echo matched, never the raw URL.
func AuthSkipper(c echo.Context) bool {
	return IsPublicRoute(c.Request().Method, c.Path())
}

func IsPublicRoute(method, route string) bool {
	return publicRoutes[method+" "+route]
}
