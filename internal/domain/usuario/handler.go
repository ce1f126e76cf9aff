package usuario

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
	api.POST("/login", h.Login)

	g := api.Group("/usuarios")
	admin := auth.RequireRole(auth.RoleAdmin)
	g.GET("", h.Listar, auth.RequireRole(auth.ClinicalRoles...))
	g.GET("/:id", h.Obtener, auth.RequireRole(auth.ClinicalRoles...))
	g.POST("", h.Crear, admin)
	g.PUT("/:id", h.Actualizar, admin)
	g.PATCH("/:id", h.Actualizar, admin)
	g.DELETE("/:id", h.Eliminar, admin)
}

func (h *Handler) Login(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	username, _ := payload["username"].(string)
	password, _ := payload["password"].(string)
	out, err := h.svc.Login(c.Request().Context(), username, password)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Crear(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Crear(c.Request().Context(), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusCreated, map[string]any{
		"mensaje": "Usuario creado exitosamente",
		"id":      u.ID.Hex(),
	})
}

func (h *Handler) Listar(c echo.Context) error {
	page, err := h.svc.Listar(c.Request().Context(), pagination.FromContext(c))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, page)
}

func (h *Handler) Obtener(c echo.Context) error {
	u, err := h.svc.Obtener(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, u.Render())
}

func (h *Handler) Actualizar(c echo.Context) error {
	payload, err := response.Payload(c)
	if err != nil {
		return err
	}
	u, err := h.svc.Actualizar(c.Request().Context(), c.Param("id"), payload)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, u.Render())
}

func (h *Handler) Eliminar(c echo.Context) error {
	if err := h.svc.Eliminar(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, response.Message("Usuario eliminado correctamente"))
}
