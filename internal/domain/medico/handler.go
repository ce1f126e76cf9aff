package medico

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes exposes the directory to clinical staff; changes are
// admin only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/medicos", auth.RequireRole(auth.ClinicalRoles...))
	admin := auth.RequireRole(auth.RoleAdmin)
	g.GET("", h.Listar)
	g.GET("/:id", h.Obtener)
	g.POST("", h.Crear, admin)
	g.PUT("/:id", h.Actualizar, admin)
	g.PATCH("/:id", h.Actualizar, admin)
	g.DELETE("/:id", h.Eliminar, admin)
}

func (h *Handler) Crear(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.svc.Crear(ctx, payload, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, m.Render())
}

func (h *Handler) Listar(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	out, err := h.svc.Listar(c.Request().Context(), ListParams{
		Filter: Filter{
			Q:            c.QueryParam("q"),
			Estado:       c.QueryParam("estado"),
			Especialidad: c.QueryParam("especialidad"),
			Sexo:         c.QueryParam("sexo"),
		},
		Page:  page,
		Limit: limit,
		Sort:  c.QueryParam("sort"),
	})
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Obtener(c echo.Context) error {
	m, err := h.svc.Obtener(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, m.Render())
}

func (h *Handler) Actualizar(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	m, err := h.svc.Actualizar(ctx, c.Param("id"), payload, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, m.Render())
}

func (h *Handler) Eliminar(c echo.Context) error {
	ctx := c.Request().Context()
	m, err := h.svc.Eliminar(ctx, c.Param("id"), auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, map[string]any{"mensaje": "Médico inactivado", "medico": m.Render()})
}
