package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/runtime"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/store"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search"
	imgmodels "github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/models"
)

// LookupHandler serves the enrichment lookups the editor UI uses directly:
// stock image search, tech logo search, and custom logo management.
type LookupHandler struct {
	Store  *store.Store
	Images image_search.ImageSearcher
	Logos  *core.TechLogoResolver
}

func (h *LookupHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("/images", h.searchImages)
	g.GET("/logos", h.searchLogos)
	g.POST("/logos/custom", h.createCustomLogo)
	g.DELETE("/logos/custom/:id", h.deleteCustomLogo)
}

func (h *LookupHandler) searchImages(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	limit := 9
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	images, err := h.Images.Search(c.Request().Context(), query, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if images == nil {
		images = []imgmodels.Image{}
	}
	return c.JSON(http.StatusOK, images)
}

func (h *LookupHandler) searchLogos(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "q is required")
	}
	logos, err := h.Logos.Search(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if logos == nil {
		logos = []core.TechLogo{}
	}
	return c.JSON(http.StatusOK, logos)
}

func (h *LookupHandler) createCustomLogo(c echo.Context) error {
	var req CustomLogoCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.LogoURL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name and logo_url are required")
	}
	id, err := h.Store.CreateCustomLogo(c.Request().Context(), req.Name, req.LogoURL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *LookupHandler) deleteCustomLogo(c echo.Context) error {
	if err := h.Store.DeleteCustomLogo(c.Request().Context(), c.Param("id")); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
