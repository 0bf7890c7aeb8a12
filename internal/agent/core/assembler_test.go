package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Safwan2003/ai-proposalgenerator-backend/config"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/telemetry"
	imgmodels "github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search/models"
)

type stubSearcher struct {
	mu      sync.Mutex
	queries []string
	images  []imgmodels.Image
	err     error
}

func (s *stubSearcher) Search(ctx context.Context, query string, limit int) ([]imgmodels.Image, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()
	return s.images, s.err
}

type stubCatalog struct {
	icons []CatalogIcon
	err   error
}

func (s *stubCatalog) Icons(ctx context.Context) ([]CatalogIcon, error) { return s.icons, s.err }

func testConfig() *config.Config {
	return &config.Config{
		General: config.GeneralConfig{DefaultTimeout: 5 * time.Second},
		LLM: config.LLMConfig{Routing: config.LLMRoutingConfig{
			Drafting:       "main",
			Classification: "fast",
			Diagram:        "diagram",
			Enhancement:    "main",
			Fallback:       "main",
		}},
		Pipeline: config.PipelineConfig{
			DiagramBaseDelay:      time.Millisecond,
			DiagramRateLimitDelay: time.Millisecond,
		}.Normalize(),
		Sources: config.SourcesConfig{MaxResults: 9},
	}
}

func newTestAssembler(cfg *config.Config, llm *stubLLM, searcher *stubSearcher, catalog IconCatalog) *Assembler {
	tele := telemetry.NewTelemetryWithRegistry(cfg.Telemetry, prometheus.NewRegistry())
	logos := NewTechLogoResolver(catalog, nil, "https://cdn.example.com/icons")
	diagrams := NewDiagramGenerator(llm, "diagram", RetryPolicy{
		MaxAttempts:    cfg.Pipeline.DiagramMaxAttempts,
		BaseDelay:      cfg.Pipeline.DiagramBaseDelay,
		RateLimitDelay: cfg.Pipeline.DiagramRateLimitDelay,
	}, tele)
	classifier := NewClassifier(llm, "fast")
	return NewAssembler(cfg, llm, classifier, searcher, logos, diagrams, tele)
}

// pipelineStub answers each pipeline stage by recognizing its prompt.
func pipelineStub() *stubLLM {
	return &stubLLM{respond: func(prompt, model string) (string, error) {
		switch {
		case strings.Contains(prompt, "expert business proposal strategist"):
			return "```json\n" + `[
				{"title":"Executive Summary","contentHtml":"<p>We will deliver a platform.</p>"},
				{"title":"Technology Stack","contentHtml":"<p>React and Go.</p>"},
				{"title":"Development Plan","contentHtml":"<p>Three phases.</p>"}
			]` + "\n```", nil
		case strings.Contains(prompt, "senior solution architect"):
			return "```json\n[{\"name\":\"React\",\"description\":\"Frontend framework.\"}]\n```", nil
		case strings.Contains(prompt, "image search query"):
			return "team collaborating office", nil
		case strings.Contains(prompt, "Gantt"):
			return "```mermaid\ngantt\ndateFormat YYYY-MM-DD\nsection Phase 1\nBuild :a1, 2026-09-01, 30d\n```", nil
		default:
			return "", errors.New("unexpected prompt")
		}
	}}
}

func TestAssemblerRunSingleShot(t *testing.T) {
	cfg := testConfig()
	searcher := &stubSearcher{images: []imgmodels.Image{{URL: "https://img.example.com/1.jpg"}, {URL: "https://img.example.com/2.jpg"}}}
	catalog := &stubCatalog{icons: []CatalogIcon{{Title: "React", Slug: "react"}}}
	a := newTestAssembler(cfg, pipelineStub(), searcher, catalog)

	titles := []string{"Executive Summary", "Technology Stack", "Development Plan"}
	sections, err := a.Run(context.Background(), ProposalRequest{
		ClientName:    "Acme",
		CompanyName:   "BuildCo",
		RFPText:       "Build a platform",
		SectionTitles: titles,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sections) != len(titles) {
		t.Fatalf("got %d sections, want %d", len(sections), len(titles))
	}
	for i, sec := range sections {
		if sec.Order != i+1 {
			t.Errorf("section %d order = %d", i, sec.Order)
		}
	}

	summary := sections[0]
	if len(summary.ImageURLs) != 1 || summary.ImageURLs[0] != "https://img.example.com/1.jpg" {
		t.Fatalf("summary images = %v", summary.ImageURLs)
	}
	if summary.ImagePlacement != PlacementFullWidthTop {
		t.Fatalf("summary placement = %q", summary.ImagePlacement)
	}

	tech := sections[1]
	if len(tech.TechLogos) != 1 || tech.TechLogos[0].Name != "React" {
		t.Fatalf("tech logos = %+v", tech.TechLogos)
	}
	if tech.TechLogos[0].LogoURL != "https://cdn.example.com/icons/react.svg" {
		t.Fatalf("logo url = %q", tech.TechLogos[0].LogoURL)
	}
	if len(tech.ImageURLs) != 0 || tech.MermaidChart != "" {
		t.Fatalf("tech section should only carry logos: %+v", tech)
	}

	plan := sections[2]
	if plan.ChartType != ChartGantt || !strings.HasPrefix(plan.MermaidChart, "gantt") {
		t.Fatalf("plan chart = %q (%q)", plan.ChartType, plan.MermaidChart)
	}
	if len(plan.ImageURLs) != 0 {
		t.Fatalf("plan section should not carry images: %v", plan.ImageURLs)
	}
}

func TestAssemblerRunImageFailureIsSoft(t *testing.T) {
	cfg := testConfig()
	searcher := &stubSearcher{err: errors.New("image provider down")}
	a := newTestAssembler(cfg, pipelineStub(), searcher, &stubCatalog{})

	sections, err := a.Run(context.Background(), ProposalRequest{
		ClientName:    "Acme",
		RFPText:       "Build a platform",
		SectionTitles: []string{"Executive Summary", "Technology Stack", "Development Plan"},
	})
	if err != nil {
		t.Fatalf("Run should tolerate enrichment failures: %v", err)
	}
	if len(sections[0].ImageURLs) != 0 {
		t.Fatalf("expected no images, got %v", sections[0].ImageURLs)
	}
	if sections[0].ContentHTML == "" {
		t.Fatal("content lost on enrichment failure")
	}
}

func TestAssemblerRunParseErrorAborts(t *testing.T) {
	cfg := testConfig()
	a := newTestAssembler(cfg, &stubLLM{response: "I cannot produce JSON today."}, &stubSearcher{}, &stubCatalog{})

	_, err := a.Run(context.Background(), ProposalRequest{ClientName: "Acme", RFPText: "rfp"})
	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestAssemblerRunPadsMissingSections(t *testing.T) {
	cfg := testConfig()
	stub := &stubLLM{respond: func(prompt, model string) (string, error) {
		if strings.Contains(prompt, "expert business proposal strategist") {
			return "```json\n[{\"title\":\"Executive Summary\",\"contentHtml\":\"<p>only one</p>\"}]\n```", nil
		}
		return "", errors.New("down")
	}}
	a := newTestAssembler(cfg, stub, &stubSearcher{err: errors.New("down")}, &stubCatalog{})

	titles := []string{"Executive Summary", "About Us", "Path to Partnership"}
	sections, err := a.Run(context.Background(), ProposalRequest{ClientName: "Acme", RFPText: "rfp", SectionTitles: titles})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sections) != 3 {
		t.Fatalf("got %d sections, want 3", len(sections))
	}
	if sections[1].Title != "About Us" {
		t.Fatalf("padded title = %q", sections[1].Title)
	}
	if sections[1].ContentHTML != "<p>Error: Content not generated.</p>" {
		t.Fatalf("padded content = %q", sections[1].ContentHTML)
	}
}

func TestAssemblerPerSectionRejectsShortContent(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Strategy = "per_section"
	stub := &stubLLM{response: "<p>tiny</p>"}
	a := newTestAssembler(cfg, stub, &stubSearcher{}, &stubCatalog{})

	_, err := a.Run(context.Background(), ProposalRequest{ClientName: "Acme", RFPText: "rfp", SectionTitles: []string{"About Us"}})
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short content error, got %v", err)
	}
	if stub.callCount() != cfg.Pipeline.ContentMaxAttempts {
		t.Fatalf("provider called %d times, want %d", stub.callCount(), cfg.Pipeline.ContentMaxAttempts)
	}
}

func TestAssemblerPerSectionDrafting(t *testing.T) {
	cfg := testConfig()
	cfg.Pipeline.Strategy = "per_section"
	long := "<p>" + strings.Repeat("detailed professional prose ", 10) + "</p>"
	stub := &stubLLM{response: long}
	a := newTestAssembler(cfg, stub, &stubSearcher{err: errors.New("down")}, &stubCatalog{})

	sections, err := a.Run(context.Background(), ProposalRequest{ClientName: "Acme", RFPText: "rfp", SectionTitles: []string{"About Us", "Path to Partnership"}})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sections) != 2 || sections[0].ContentHTML != long {
		t.Fatalf("unexpected sections: %+v", sections)
	}
}

func TestEnhanceSection(t *testing.T) {
	cfg := testConfig()
	enhanced := "<p>" + strings.Repeat("much better now ", 10) + "</p>"
	var mu sync.Mutex
	var sawPrompt string
	stub := &stubLLM{respond: func(prompt, model string) (string, error) {
		mu.Lock()
		sawPrompt = prompt
		mu.Unlock()
		return enhanced, nil
	}}
	a := newTestAssembler(cfg, stub, &stubSearcher{}, &stubCatalog{})

	out, err := a.EnhanceSection(context.Background(), "<p>meh</p>", EnhanceOptions{
		Instruction: "make it persuasive",
		Tone:        "formal",
		FocusPoints: []string{"security", "scalability"},
	})
	if err != nil {
		t.Fatalf("EnhanceSection: %v", err)
	}
	if out != enhanced {
		t.Fatalf("enhanced = %q", out)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, want := range []string{"make it persuasive", "formal", "security, scalability"} {
		if !strings.Contains(sawPrompt, want) {
			t.Fatalf("prompt missing %q: %q", want, sawPrompt)
		}
	}
}

func TestEnhanceSectionRetriesShortOutput(t *testing.T) {
	cfg := testConfig()
	stub := &stubLLM{response: "<p>tiny</p>"}
	a := newTestAssembler(cfg, stub, &stubSearcher{}, &stubCatalog{})

	_, err := a.EnhanceSection(context.Background(), "<p>meh</p>", EnhanceOptions{Instruction: "expand"})
	if err == nil || !strings.Contains(err.Error(), "too short") {
		t.Fatalf("expected short content error, got %v", err)
	}
	if stub.callCount() != cfg.Pipeline.ContentMaxAttempts {
		t.Fatalf("provider called %d times, want %d", stub.callCount(), cfg.Pipeline.ContentMaxAttempts)
	}
}

// gateSearcher holds its first caller inside Search until released, letting
// a test interleave two pipeline runs deterministically.
type gateSearcher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gateSearcher) Search(ctx context.Context, query string, limit int) ([]imgmodels.Image, error) {
	s.once.Do(func() { close(s.entered) })
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil, nil
}

func TestAssemblerRunsKeepSeparateUsage(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry = config.TelemetryConfig{Enabled: true, CostTracking: true}
	tele := telemetry.NewTelemetryWithRegistry(cfg.Telemetry, prometheus.NewRegistry())

	stub := &stubLLM{respond: func(prompt, model string) (string, error) {
		if !strings.Contains(prompt, "expert business proposal strategist") {
			return "", errors.New("unexpected prompt")
		}
		if strings.Contains(prompt, "About Us") {
			return "```json\n[{\"title\":\"About Us\",\"contentHtml\":\"<p>us</p>\"}]\n```", nil
		}
		return "```json\n[{\"title\":\"Executive Summary\",\"contentHtml\":\"<p>summary</p>\"}]\n```", nil
	}}
	searcher := &gateSearcher{entered: make(chan struct{}), release: make(chan struct{})}
	logos := NewTechLogoResolver(&stubCatalog{}, nil, "https://cdn.example.com/icons")
	diagrams := NewDiagramGenerator(stub, "diagram", fastPolicy(), tele)
	a := NewAssembler(cfg, stub, NewClassifier(stub, "fast"), searcher, logos, diagrams, tele)

	done := make(chan error, 1)
	go func() {
		_, err := a.Run(context.Background(), ProposalRequest{ClientName: "Acme", RFPText: "rfp", SectionTitles: []string{"Executive Summary"}})
		done <- err
	}()
	<-searcher.entered

	// The second run starts and finishes while the first is mid-enrichment.
	if _, err := a.Run(context.Background(), ProposalRequest{ClientName: "Beta", RFPText: "rfp", SectionTitles: []string{"About Us"}}); err != nil {
		t.Fatalf("second run: %v", err)
	}
	close(searcher.release)
	if err := <-done; err != nil {
		t.Fatalf("first run: %v", err)
	}

	// One drafting call per run at 30 tokens each; interleaving must not
	// drop or double-count either run's usage.
	if got := tele.Costs().TotalTokens; got != 60 {
		t.Fatalf("total tokens = %d, want 60", got)
	}
}

func TestAnalyzeTechStackResolvesLogos(t *testing.T) {
	cfg := testConfig()
	stub := &stubLLM{response: "```json\n[{\"name\":\"PostgreSQL\",\"description\":\"Primary datastore.\"},{\"name\":\"Obscurium\",\"description\":\"Unknown tool.\"}]\n```"}
	catalog := &stubCatalog{icons: []CatalogIcon{{Title: "PostgreSQL", Slug: "postgresql"}}}
	a := newTestAssembler(cfg, stub, &stubSearcher{}, catalog)

	logos, err := a.AnalyzeTechStack(context.Background(), "rfp", "content")
	if err != nil {
		t.Fatalf("AnalyzeTechStack: %v", err)
	}
	if len(logos) != 2 {
		t.Fatalf("got %d logos, want 2", len(logos))
	}
	if logos[0].LogoURL != "https://cdn.example.com/icons/postgresql.svg" {
		t.Fatalf("resolved url = %q", logos[0].LogoURL)
	}
	if logos[1].LogoURL != "" {
		t.Fatalf("unknown tech should have no url, got %q", logos[1].LogoURL)
	}
}
