package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/runtime"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/store"
)

type SectionsHandler struct {
	Store     *store.Store
	Assembler *core.Assembler
}

func (h *SectionsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("/:id", h.get)
	g.PATCH("/:id", h.update)
	g.GET("/:id/versions", h.versions)
	g.POST("/:id/enhance", h.enhance)
	g.POST("/reorder/:proposal_id", h.reorder)
}

// owned loads a section and verifies the parent proposal belongs to the
// caller.
func (h *SectionsHandler) owned(c echo.Context) (store.Section, error) {
	sec, err := h.Store.GetSection(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sec, echo.NewHTTPError(http.StatusNotFound, "section not found")
		}
		return sec, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	p, err := h.Store.GetProposal(c.Request().Context(), sec.ProposalID)
	if err != nil || p.UserID != c.Get("user_id").(string) {
		return sec, echo.NewHTTPError(http.StatusNotFound, "section not found")
	}
	return sec, nil
}

func (h *SectionsHandler) get(c echo.Context) error {
	sec, err := h.owned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sec)
}

func (h *SectionsHandler) update(c echo.Context) error {
	sec, err := h.owned(c)
	if err != nil {
		return err
	}
	var req SectionUpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.ContentHTML) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contentHtml is required")
	}
	if err := h.Store.UpdateSectionContent(c.Request().Context(), sec.ID, req.ContentHTML); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (h *SectionsHandler) versions(c echo.Context) error {
	sec, err := h.owned(c)
	if err != nil {
		return err
	}
	versions, err := h.Store.ListSectionVersions(c.Request().Context(), sec.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if versions == nil {
		versions = []store.SectionVersion{}
	}
	return c.JSON(http.StatusOK, versions)
}

// enhance rewrites the section content per an instruction and persists the
// result, snapshotting the old content.
func (h *SectionsHandler) enhance(c echo.Context) error {
	sec, err := h.owned(c)
	if err != nil {
		return err
	}
	var req SectionEnhanceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "instruction is required")
	}

	enhanced, err := h.Assembler.EnhanceSection(c.Request().Context(), sec.ContentHTML, core.EnhanceOptions{
		Instruction: req.Instruction,
		Tone:        req.Tone,
		FocusPoints: req.FocusPoints,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}
	if err := h.Store.UpdateSectionContent(c.Request().Context(), sec.ID, enhanced); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"contentHtml": enhanced})
}

func (h *SectionsHandler) reorder(c echo.Context) error {
	proposalID := c.Param("proposal_id")
	p, err := h.Store.GetProposal(c.Request().Context(), proposalID)
	if err != nil || p.UserID != c.Get("user_id").(string) {
		return echo.NewHTTPError(http.StatusNotFound, "proposal not found")
	}
	var req SectionReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if len(req.SectionIDs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "section_ids is required")
	}
	if err := h.Store.ReorderSections(c.Request().Context(), proposalID, req.SectionIDs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusOK)
}
