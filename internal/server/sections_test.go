package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Safwan2003/ai-proposalgenerator-backend/config"
	core "github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/core"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/telemetry"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/store"
)

const sectionSelect = `SELECT id, proposal_id, title, content_html, order_index, image_urls, image_placement, mermaid_chart, chart_type, tech_logos, created_at, updated_at
		 FROM sections WHERE id=$1`

func sectionRow(id, proposalID string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{"id", "proposal_id", "title", "content_html", "order_index", "image_urls", "image_placement", "mermaid_chart", "chart_type", "tech_logos", "created_at", "updated_at"}).
		AddRow(id, proposalID, "About Us", "<p>old content</p>", 1, pq.StringArray{}, "", "", "", []byte("[]"), now, now)
}

// promptRecorder is the provider double for handler tests.
type promptRecorder struct {
	response string

	mu      sync.Mutex
	prompts []string
}

func (p *promptRecorder) Generate(ctx context.Context, prompt, model string, options map[string]interface{}) (string, error) {
	resp, _, _, err := p.GenerateWithTokens(ctx, prompt, model, options)
	return resp, err
}

func (p *promptRecorder) GenerateWithTokens(ctx context.Context, prompt, model string, options map[string]interface{}) (string, int64, int64, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()
	return p.response, 10, 20, nil
}

func (p *promptRecorder) CalculateCost(inputTokens, outputTokens int64, model string) float64 {
	return 0.001
}

func newSectionsHandler(t *testing.T, provider core.LLMProvider) (*SectionsHandler, sqlmock.Sqlmock, func()) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	cfg := &config.Config{Pipeline: config.PipelineConfig{}.Normalize()}
	tele := telemetry.NewTelemetryWithRegistry(cfg.Telemetry, prometheus.NewRegistry())
	h := &SectionsHandler{
		Store:     &store.Store{DB: conn},
		Assembler: core.NewAssembler(cfg, provider, nil, nil, nil, nil, tele),
	}
	return h, mock, func() { conn.Close() }
}

func TestSectionEnhancePassesToneAndFocus(t *testing.T) {
	e := echo.New()
	enhanced := "<p>" + strings.Repeat("polished prose ", 10) + "</p>"
	provider := &promptRecorder{response: enhanced}
	h, mock, cleanup := newSectionsHandler(t, provider)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(sectionSelect)).WithArgs("sec-1").
		WillReturnRows(sectionRow("sec-1", "prop-1"))
	mock.ExpectQuery(regexp.QuoteMeta(proposalSelect)).WithArgs("prop-1").
		WillReturnRows(proposalRow("prop-1", "user-1"))
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO section_versions (section_id, content_html) SELECT id, content_html FROM sections WHERE id=$1`)).
		WithArgs("sec-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE sections SET content_html=$2, updated_at=NOW() WHERE id=$1`)).
		WithArgs("sec-1", enhanced).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	body := `{"instruction":"make it sharper","tone":"confident","focus_points":["delivery speed","local presence"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/sections/sec-1/enhance", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")
	ctx.SetParamNames("id")
	ctx.SetParamValues("sec-1")

	if err := h.enhance(ctx); err != nil {
		t.Fatalf("enhance: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["contentHtml"] != enhanced {
		t.Fatalf("contentHtml = %q", resp["contentHtml"])
	}

	provider.mu.Lock()
	defer provider.mu.Unlock()
	if len(provider.prompts) != 1 {
		t.Fatalf("provider called %d times, want 1", len(provider.prompts))
	}
	for _, want := range []string{"make it sharper", "confident", "delivery speed, local presence"} {
		if !strings.Contains(provider.prompts[0], want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSectionEnhanceRequiresInstruction(t *testing.T) {
	e := echo.New()
	h, mock, cleanup := newSectionsHandler(t, &promptRecorder{})
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(sectionSelect)).WithArgs("sec-1").
		WillReturnRows(sectionRow("sec-1", "prop-1"))
	mock.ExpectQuery(regexp.QuoteMeta(proposalSelect)).WithArgs("prop-1").
		WillReturnRows(proposalRow("prop-1", "user-1"))

	req := httptest.NewRequest(http.MethodPost, "/api/sections/sec-1/enhance", strings.NewReader(`{"tone":"casual"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	ctx.Set("user_id", "user-1")
	ctx.SetParamNames("id")
	ctx.SetParamValues("sec-1")

	err := h.enhance(ctx)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %#v", err)
	}
}
