package backup

import (
	"fmt"
	"net/http"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	admin := auth.RequireRole(auth.RoleAdmin)
	api.GET("/backup", h.Descargar, admin)
	api.GET("/backup/", h.Descargar, admin)
}

func (h *Handler) Descargar(c echo.Context) error {
	a, err := h.svc.Generar(c.Request().Context(), c.QueryParam("format"))
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := os.Open(a.Path)
	if err != nil {
		return apperr.Internal(err)
	}
	defer f.Close()
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", a.Name))
	return c.Stream(http.StatusOK, a.Mime, f)
}
