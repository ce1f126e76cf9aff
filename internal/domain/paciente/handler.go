package paciente

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
	g := api.Group("/pacientes", auth.RequireRole(auth.ClinicalRoles...))
	g.POST("", h.Crear)
	g.POST("/create", h.CrearConHistorial)
	g.POST("/full", h.CrearFull)
	g.GET("", h.Listar)
	g.GET("/search", h.Buscar)
	g.GET("/expediente/:codigo", h.BuscarPorCodigo)
	g.GET("/:id", h.Obtener)
	g.PATCH("/:id", h.Actualizar)
	g.DELETE("/:id", h.Eliminar)
}

func flag(v string) bool {
	switch v {
	case "1", "true", "True":
		return true
	}
	return false
}

func (h *Handler) Crear(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	p, err := h.svc.Crear(c.Request().Context(), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, p.Render())
}

func (h *Handler) CrearConHistorial(c echo.Context) error {
	body, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	out, err := h.svc.CrearConHistorial(ctx, body, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, out)
}

func (h *Handler) CrearFull(c echo.Context) error {
	body, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	out, err := h.svc.CrearFull(ctx, body, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, out)
}

// Listar lists active patients unless solo_activos=false.
func (h *Handler) Listar(c echo.Context) error {
	soloActivos := !strings.EqualFold(c.QueryParam("solo_activos"), "false")
	page, err := h.svc.Listar(c.Request().Context(), c.QueryParam("q"), soloActivos, pagination.FromContext(c))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, page)
}

func (h *Handler) Buscar(c echo.Context) error {
	out, err := h.svc.BuscarPorIdentificacion(c.Request().Context(), c.QueryParam("identificacion"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) BuscarPorCodigo(c echo.Context) error {
	out, err := h.svc.BuscarPorCodigoExpediente(c.Request().Context(), c.Param("codigo"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Obtener(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		out map[string]any
		err error
	)
	if flag(c.QueryParam("agregado")) {
		out, err = h.svc.ObtenerAgregado(ctx, c.Param("id"))
	} else {
		out, err = h.svc.Obtener(ctx, c.Param("id"), c.QueryParam("identificacion_id"))
	}
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Actualizar(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Actualizar(c.Request().Context(), c.Param("id"), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Eliminar(c echo.Context) error {
	msg, err := h.svc.Eliminar(c.Request().Context(), c.Param("id"), flag(c.QueryParam("hard")))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(msg))
}
