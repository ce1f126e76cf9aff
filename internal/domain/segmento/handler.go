package segmento

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/response"
)

type Handler struct {
	svcs *Services
}

func NewHandler(svcs *Services) *Handler {
	return &Handler{svcs: svcs}
}

// RegisterRoutes mounts every segment under /<segment>.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	for _, svc := range h.svcs.All() {
		g := api.Group("/"+svc.Definition().Name, auth.RequireRole(auth.ClinicalRoles...))
		sh := &segmentHandler{svc: svc}
		g.POST("", sh.Create)
		g.GET("/:id", sh.Get)
		g.GET("/historial/:historial_id", sh.GetByHistorial)
		g.GET("/paciente/:paciente_id", sh.GetByPaciente)
		g.PUT("/:id", sh.Update)
		g.PATCH("/:id", sh.Update)
		g.DELETE("/:id", sh.Delete)
		g.DELETE("/historial/:historial_id", sh.DeleteByHistorial)
	}
}

type segmentHandler struct {
	svc *Service
}

func (h *segmentHandler) Create(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	historialID, _ := payload["historial_id"].(string)
	ctx := c.Request().Context()
	id, err := h.svc.Create(ctx, historialID, payload, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, map[string]string{"id": id.Hex()})
}

func (h *segmentHandler) Get(c echo.Context) error {
	doc, err := h.svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc)
}

func (h *segmentHandler) GetByHistorial(c echo.Context) error {
	doc, err := h.svc.GetByHistorial(c.Request().Context(), c.Param("historial_id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc)
}

func (h *segmentHandler) GetByPaciente(c echo.Context) error {
	doc, err := h.svc.GetByPaciente(c.Request().Context(), c.Param("paciente_id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, doc)
}

func (h *segmentHandler) Update(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	if err := h.svc.Update(c.Request().Context(), c.Param("id"), payload); err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(h.svc.Definition().Messages.Updated))
}

func (h *segmentHandler) Delete(c echo.Context) error {
	if err := h.svc.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message(h.svc.Definition().Messages.Deleted))
}

func (h *segmentHandler) DeleteByHistorial(c echo.Context) error {
	n, err := h.svc.DeleteByHistorial(c.Request().Context(), c.Param("historial_id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, map[string]any{
		"mensaje":    h.svc.Definition().Messages.Deleted,
		"eliminados": n,
	})
}
