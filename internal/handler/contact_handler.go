package handler

import (
	"net/http"

	"storefront/internal/config"
	"storefront/internal/middleware"
	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

// サポート窓口（チャット宛先）のHTTP
type ContactHandler struct {
	uc *usecase.ContactUsecase
}

func NewContactHandler(uc *usecase.ContactUsecase) *ContactHandler {
	return &ContactHandler{uc: uc}
}

func (h *ContactHandler) RegisterRoutes(e *echo.Echo, cfg config.Config) {
	g := e.Group("/api/contact")
	g.Use(middleware.AuthJWT(cfg))

	g.GET("/admin", h.adminContact)
}

func (h *ContactHandler) adminContact(c echo.Context) error {
	out, err := h.uc.AdminContact(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}
