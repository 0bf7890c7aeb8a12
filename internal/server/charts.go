package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/runtime"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/store"
)

type ChartsHandler struct {
	Store    *store.Store
	Diagrams *core.DiagramGenerator
}

func (h *ChartsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("/generate", h.generate)
	g.POST("/fix", h.fix)
	g.POST("/sections/:id", h.updateSection)
}

func (h *ChartsHandler) generate(c echo.Context) error {
	var req ChartGenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	chartType := core.ParseChartType(req.ChartType)
	if chartType == core.ChartNone {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown chart_type")
	}
	if req.Description == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "description is required")
	}

	chart, err := h.Diagrams.Generate(c.Request().Context(), chartType, req.Description)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, ChartResponse{Chart: chart, ChartType: string(chartType)})
}

func (h *ChartsHandler) fix(c echo.Context) error {
	var req ChartFixRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Chart == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "chart is required")
	}
	// Already-valid charts skip the model round trip.
	if res := core.ValidateChart(core.SanitizeChart(req.Chart)); res.Valid {
		return c.JSON(http.StatusOK, ChartResponse{Chart: core.SanitizeChart(req.Chart)})
	}
	chart, err := h.Diagrams.Fix(c.Request().Context(), req.Chart)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	return c.JSON(http.StatusOK, ChartResponse{Chart: chart})
}

// updateSection modifies a section's chart per a natural-language request
// and persists the result.
func (h *ChartsHandler) updateSection(c echo.Context) error {
	sec, err := h.Store.GetSection(c.Request().Context(), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "section not found")
	}
	p, err := h.Store.GetProposal(c.Request().Context(), sec.ProposalID)
	if err != nil || p.UserID != c.Get("user_id").(string) {
		return echo.NewHTTPError(http.StatusNotFound, "section not found")
	}
	var req ChartUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	current := req.Chart
	if current == "" {
		current = sec.MermaidChart
	}
	if current == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "section has no chart to update")
	}

	chart, err := h.Diagrams.Update(c.Request().Context(), req.Modification, current)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err := h.Store.UpdateSectionChart(c.Request().Context(), sec.ID, chart, sec.ChartType); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, ChartResponse{Chart: chart, ChartType: sec.ChartType})
}
