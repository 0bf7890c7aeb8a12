package server

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/runtime"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/store"
)

type ProposalsHandler struct {
	Store     *store.Store
	Assembler *core.Assembler
	Logger    *log.Logger
}

func (h *ProposalsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.POST("/:id/generate", h.generate)
	g.GET("/:id/sections", h.sections)
}

// owned loads a proposal and verifies it belongs to the caller. Foreign
// proposals look like missing ones.
func (h *ProposalsHandler) owned(c echo.Context) (store.Proposal, error) {
	p, err := h.Store.GetProposal(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, echo.NewHTTPError(http.StatusNotFound, "proposal not found")
		}
		return p, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if p.UserID != c.Get("user_id").(string) {
		return p, echo.NewHTTPError(http.StatusNotFound, "proposal not found")
	}
	return p, nil
}

func (h *ProposalsHandler) create(c echo.Context) error {
	var req ProposalCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.ClientName) == "" || strings.TrimSpace(req.RFPText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "clientName and rfpText are required")
	}
	id, err := h.Store.CreateProposal(c.Request().Context(), c.Get("user_id").(string), req.ClientName, req.CompanyName, req.RFPText)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id})
}

func (h *ProposalsHandler) list(c echo.Context) error {
	proposals, err := h.Store.ListProposals(c.Request().Context(), c.Get("user_id").(string))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if proposals == nil {
		proposals = []store.Proposal{}
	}
	return c.JSON(http.StatusOK, proposals)
}

func (h *ProposalsHandler) get(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProposalsHandler) update(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	var req ProposalCreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Store.UpdateProposal(c.Request().Context(), p.ID, req.ClientName, req.CompanyName, req.RFPText); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusOK)
}

func (h *ProposalsHandler) delete(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	if err := h.Store.DeleteProposal(c.Request().Context(), p.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// generate runs the full pipeline and replaces the proposal's sections with
// the result.
func (h *ProposalsHandler) generate(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	var req ProposalGenerateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx := c.Request().Context()
	if err := h.Store.UpdateProposalStatus(ctx, p.ID, store.ProposalStatusGenerating); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	sections, err := h.Assembler.Run(ctx, core.ProposalRequest{
		ClientName:    p.ClientName,
		CompanyName:   p.CompanyName,
		RFPText:       p.RFPText,
		SectionTitles: req.SectionTitles,
	})
	if err != nil {
		_ = h.Store.UpdateProposalStatus(ctx, p.ID, store.ProposalStatusFailed)
		h.Logger.Printf("generation failed for proposal %s: %v", p.ID, err)
		var parseErr *core.ParseError
		if errors.As(err, &parseErr) {
			return echo.NewHTTPError(http.StatusBadGateway, "the model returned an invalid format")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	if err := h.Store.ReplaceSections(ctx, p.ID, sections); err != nil {
		_ = h.Store.UpdateProposalStatus(ctx, p.ID, store.ProposalStatusFailed)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if err := h.Store.UpdateProposalStatus(ctx, p.ID, store.ProposalStatusReady); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"sections": sections})
}

func (h *ProposalsHandler) sections(c echo.Context) error {
	p, err := h.owned(c)
	if err != nil {
		return err
	}
	sections, err := h.Store.ListSections(c.Request().Context(), p.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if sections == nil {
		sections = []store.Section{}
	}
	return c.JSON(http.StatusOK, sections)
}
