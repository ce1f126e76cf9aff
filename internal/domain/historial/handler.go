package historial

import (
	"net/http"

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
	g := api.Group("/historiales", auth.RequireRole(auth.ClinicalRoles...))
	g.POST("", h.Crear)
	g.POST("/create", h.CrearCompleto)
	g.GET("", h.Listar)
	g.GET("/:id", h.Obtener)
	g.GET("/por-paciente/:paciente_id", h.ObtenerPorPaciente)
	g.GET("/por-paciente/:paciente_id/gesta/:numero_gesta", h.ObtenerPorPacienteYGesta)
	g.PATCH("/:id", h.Actualizar)
	g.PUT("/:id", h.Actualizar)
	g.DELETE("/:id", h.Eliminar)
	g.PUT("/:id/segmentos/:campo", h.Vincular)
	g.DELETE("/:id/segmentos/:campo", h.Desvincular)
}

// truthy accepts the query flag spellings used by the clients.
func truthy(v string) bool {
	switch v {
	case "1", "true", "True", "si", "yes":
		return true
	}
	return false
}

func (h *Handler) Crear(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	id, err := h.svc.Crear(c.Request().Context(), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, map[string]string{"id": id.Hex()})
}

func (h *Handler) CrearCompleto(c echo.Context) error {
	body, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	out, err := h.svc.CrearCompleto(ctx, body, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, map[string]any{
		"historial_id":      out.HistorialID.Hex(),
		"paciente_id":       out.PacienteID.Hex(),
		"secciones_creadas": out.SeccionesHex(),
	})
}

func (h *Handler) Listar(c echo.Context) error {
	page, err := h.svc.Listar(c.Request().Context(),
		c.QueryParam("paciente_id"), truthy(c.QueryParam("solo_activos")), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, page)
}

func (h *Handler) Obtener(c echo.Context) error {
	out, err := h.svc.Obtener(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) ObtenerPorPaciente(c echo.Context) error {
	out, err := h.svc.ObtenerPorPaciente(c.Request().Context(), c.Param("paciente_id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) ObtenerPorPacienteYGesta(c echo.Context) error {
	out, err := h.svc.ObtenerPorPacienteYGesta(c.Request().Context(), c.Param("paciente_id"), c.Param("numero_gesta"))
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
	msg, err := h.svc.Actualizar(c.Request().Context(), c.Param("id"), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(msg))
}

func (h *Handler) Eliminar(c echo.Context) error {
	msg, err := h.svc.Eliminar(c.Request().Context(), c.Param("id"), truthy(c.QueryParam("hard")))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(msg))
}

func (h *Handler) Vincular(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	docID, _ := payload["id"].(string)
	msg, err := h.svc.VincularSegmento(c.Request().Context(), c.Param("id"), c.Param("campo"), docID)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(msg))
}

func (h *Handler) Desvincular(c echo.Context) error {
	msg, err := h.svc.DesvincularSegmento(c.Request().Context(), c.Param("id"), c.Param("campo"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(msg))
}
