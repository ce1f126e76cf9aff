package mensaje

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/response"
	"github.com/sigepren/sigepren/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/mensajes", auth.RequireRole(auth.ClinicalRoles...))
	g.GET("", h.Listar)
	g.POST("", h.Crear)
	g.PUT("/:id/read", h.MarcarLeido)
	g.PATCH("/:id/read", h.MarcarLeido)
	g.PUT("/:id", h.Actualizar)
	g.PATCH("/:id", h.Actualizar)
	g.DELETE("/:id", h.Eliminar)
}

func (h *Handler) Listar(c echo.Context) error {
	hint := HintFrom(func(k string) string { return strings.TrimSpace(c.QueryParam(k)) })
	page, err := h.svc.Listar(c.Request().Context(), hint, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, page)
}

func (h *Handler) Crear(c echo.Context) error {
	body, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.svc.Crear(ctx, body, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, map[string]any{"id": m.ID.Hex()})
}

func (h *Handler) MarcarLeido(c echo.Context) error {
	out, err := h.svc.MarcarLeido(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Actualizar(c echo.Context) error {
	body, err := response.Payload(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Actualizar(c.Request().Context(), c.Param("id"), body)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Eliminar(c echo.Context) error {
	var hard bool
	switch strings.ToLower(strings.TrimSpace(c.QueryParam("hard"))) {
	case "1", "true", "t", "yes", "y":
		hard = true
	}
	out, err := h.svc.Eliminar(c.Request().Context(), c.Param("id"), hard)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}
