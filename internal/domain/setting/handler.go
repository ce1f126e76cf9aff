package setting

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

// RegisterRoutes lets any authenticated usuario read settings; writes are
// admin only.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/settings")
	admin := auth.RequireRole(auth.RoleAdmin)
	g.POST("", h.Upsert, admin)
	g.GET("", h.List)
	g.GET("/:key", h.Get)
	g.DELETE("/:key", h.Delete, admin)
}

func identFrom(c echo.Context) (Ident, error) {
	return NewIdent(c.Param("key"), c.QueryParam("scope"), c.QueryParam("tenant_id"), c.QueryParam("user_id"))
}

func (h *Handler) Upsert(c echo.Context) error {
	body, err := response.Payload(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	id, err := h.svc.Upsert(ctx, body, auth.UserIDFromContext(ctx))
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, map[string]string{"id": id.Hex()})
}

func (h *Handler) List(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	items, err := h.svc.List(c.Request().Context(), ListFilter{
		Scope:    c.QueryParam("scope"),
		TenantID: c.QueryParam("tenant_id"),
		UserID:   c.QueryParam("user_id"),
		Prefix:   c.QueryParam("prefix"),
		Limit:    limit,
	})
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, items)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := identFrom(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := identFrom(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Delete(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}
