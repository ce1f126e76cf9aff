package reporte

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sigepren/sigepren/internal/platform/apperr"
	"github.com/sigepren/sigepren/internal/platform/auth"
	"github.com/sigepren/sigepren/internal/platform/response"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/reportes", auth.RequireRole(auth.ClinicalRoles...))
	g.GET("/dashboard", h.Dashboard)
	g.GET("/dashboard/json", h.JSON)
	g.GET("/dashboard.json", h.JSON)
	g.GET("/dashboard/pdf", h.PDF)
	g.GET("/dashboard.pdf", h.PDF)
	g.GET("/dashboard/excel", h.Excel)
	g.GET("/dashboard.xlsx", h.Excel)
}

func firstOf(c echo.Context, names ...string) string {
	for _, n := range names {
		if v := c.QueryParam(n); v != "" {
			return v
		}
	}
	return ""
}

func (h *Handler) resumen(c echo.Context) (Resumen, Rango, error) {
	return h.svc.GenerarResumenPanel(c.Request().Context(),
		firstOf(c, "from", "start"), firstOf(c, "to", "end"))
}

func attachment(c echo.Context, mime, name string, body []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, mime, body)
}

func (h *Handler) Dashboard(c echo.Context) error {
	out, _, err := h.resumen(c)
	if err != nil {
		return err
	}
	return response.OK(c, http.StatusOK, out)
}

func (h *Handler) JSON(c echo.Context) error {
	out, _, err := h.resumen(c)
	if err != nil {
		return err
	}
	body, err := JSON(out)
	if err != nil {
		return apperr.Internal(err)
	}
	return attachment(c, echo.MIMEApplicationJSONCharsetUTF8, Nombre("json", h.svc.now()), body)
}

func (h *Handler) PDF(c echo.Context) error {
	out, rango, err := h.resumen(c)
	if err != nil {
		return err
	}
	now := h.svc.now()
	body, err := PDF(out, rango, now)
	if err != nil {
		return apperr.Internal(err)
	}
	return attachment(c, "application/pdf", Nombre("pdf", now), body)
}

func (h *Handler) Excel(c echo.Context) error {
	out, rango, err := h.resumen(c)
	if err != nil {
		return err
	}
	now := h.svc.now()
	body, err := Excel(out, rango, now)
	if err != nil {
		return apperr.Internal(err)
	}
	return attachment(c, mimeXLSX, Nombre("xlsx", now), body)
}
