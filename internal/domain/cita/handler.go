package cita

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

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/citas", auth.RequireRole(auth.ClinicalRoles...))
	g.GET("", h.PorPaciente)
	g.GET("/hoy", h.Hoy)
	g.GET("/proximas", h.Proximas)
	g.GET("/activas", h.Activas)
	g.GET("/historicas", h.Historicas)
	g.GET("/:id", h.Obtener)
	g.POST("", h.Crear)
	g.PATCH("/:id", h.Actualizar)
	g.DELETE("/:id", h.Eliminar)
}

func filterFrom(c echo.Context) Filter {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	return Filter{PacienteID: c.QueryParam("paciente_id"), Limit: limit}
}

func (h *Handler) listing(c echo.Context, out *Listing, err error) error {
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Hoy(c echo.Context) error {
	out, err := h.svc.Hoy(c.Request().Context(), filterFrom(c))
	return h.listing(c, out, err)
}

func (h *Handler) Proximas(c echo.Context) error {
	days, _ := strconv.Atoi(c.QueryParam("days"))
	out, err := h.svc.Proximas(c.Request().Context(), days, filterFrom(c))
	return h.listing(c, out, err)
}

func (h *Handler) Activas(c echo.Context) error {
	out, err := h.svc.Activas(c.Request().Context(), filterFrom(c))
	return h.listing(c, out, err)
}

func (h *Handler) Historicas(c echo.Context) error {
	out, err := h.svc.Historicas(c.Request().Context(), filterFrom(c))
	return h.listing(c, out, err)
}

func (h *Handler) PorPaciente(c echo.Context) error {
	out, err := h.svc.PorPaciente(c.Request().Context(), filterFrom(c))
	return h.listing(c, out, err)
}

func (h *Handler) Obtener(c echo.Context) error {
	cita, err := h.svc.Obtener(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, cita.Render())
}

func (h *Handler) Crear(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	cita, err := h.svc.Crear(c.Request().Context(), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, cita.Render())
}

func (h *Handler) Actualizar(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	cita, err := h.svc.Actualizar(c.Request().Context(), c.Param("id"), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, cita.Render())
}

// Eliminar deletes by default; hard=0 only cancels the cita.
func (h *Handler) Eliminar(c echo.Context) error {
	hard := true
	switch c.QueryParam("hard") {
	case "0", "false", "False":
		hard = false
	}
	msg, err := h.svc.Eliminar(c.Request().Context(), c.Param("id"), hard)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(msg))
}
