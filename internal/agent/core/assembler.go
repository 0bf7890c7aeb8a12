package core

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Safwan2003/ai-proposalgenerator-backend/config"
	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/telemetry"
	"github.com/Safwan2003/ai-proposalgenerator-backend/tools/image_search"
	"github.com/Safwan2003/ai-proposalgenerator-backend/utils"
)

// Assembler runs the full proposal pipeline: drafting, classification and
// per-section enrichment. Drafting failures abort the run; enrichment
// failures degrade only the section they belong to.
type Assembler struct {
	cfg       *config.Config
	provider  LLMProvider
	classify  *Classifier
	images    image_search.ImageSearcher
	logos     *TechLogoResolver
	diagrams  *DiagramGenerator
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// runUsage accumulates cost and token counts for one pipeline run. Each Run
// carries its own accumulator so concurrent runs cannot mix their totals.
type runUsage struct {
	mu       sync.Mutex
	cost     float64
	inTokens int64
	outTok   int64
}

func (u *runUsage) add(cost float64, inTok, outTok int64) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.cost += cost
	u.inTokens += inTok
	u.outTok += outTok
	u.mu.Unlock()
}

func NewAssembler(
	cfg *config.Config,
	provider LLMProvider,
	classifier *Classifier,
	images image_search.ImageSearcher,
	logos *TechLogoResolver,
	diagrams *DiagramGenerator,
	tel *telemetry.Telemetry,
) *Assembler {
	return &Assembler{
		cfg:       cfg,
		provider:  provider,
		classify:  classifier,
		images:    images,
		logos:     logos,
		diagrams:  diagrams,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[ASSEMBLER] ", log.LstdFlags),
	}
}

// Run generates a complete proposal. The result always has exactly one
// enriched section per requested title, in request order.
func (a *Assembler) Run(ctx context.Context, req ProposalRequest) ([]EnrichedSection, error) {
	start := time.Now()
	runID := uuid.NewString()
	usage := &runUsage{}

	titles := req.SectionTitles
	if len(titles) == 0 {
		titles = DefaultSectionTitles
	}

	var drafts []SectionDraft
	var err error
	switch a.cfg.Pipeline.Strategy {
	case "per_section":
		drafts, err = a.draftPerSection(ctx, usage, req, titles)
	default:
		drafts, err = a.draftSingleShot(ctx, usage, req, titles)
	}
	if err != nil {
		a.recordRun(runID, req, start, 0, false, usage)
		return nil, err
	}
	drafts = alignDrafts(drafts, titles)

	// Full proposal text gives enrichment calls their context.
	var full strings.Builder
	for _, d := range drafts {
		fmt.Fprintf(&full, "\n\n## %s\n\n%s", d.Title, d.ContentHTML)
	}
	fullContent := full.String()

	sections := make([]EnrichedSection, len(drafts))
	sem := make(chan struct{}, a.cfg.Pipeline.MaxConcurrentSections)
	var wg sync.WaitGroup
	for i, draft := range drafts {
		wg.Add(1)
		go func(i int, draft SectionDraft) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			sections[i] = a.enrichSection(ctx, usage, i, draft, req, fullContent)
		}(i, draft)
	}
	wg.Wait()

	a.recordRun(runID, req, start, len(sections), true, usage)
	a.logger.Printf("run %s: proposal complete, %d sections in %v", runID, len(sections), time.Since(start))
	return sections, nil
}

// draftSingleShot asks for every section in one completion.
func (a *Assembler) draftSingleShot(ctx context.Context, usage *runUsage, req ProposalRequest, titles []string) ([]SectionDraft, error) {
	model := a.cfg.LLM.Routing.Model(a.cfg.LLM.Routing.Drafting)
	resp, err := a.generate(ctx, usage, OneShotProposalPrompt(req, titles), model, nil)
	if err != nil {
		return nil, fmt.Errorf("drafting: %w", err)
	}
	return ExtractSectionDrafts(resp)
}

// draftPerSection generates each section separately, retrying short output.
func (a *Assembler) draftPerSection(ctx context.Context, usage *runUsage, req ProposalRequest, titles []string) ([]SectionDraft, error) {
	model := a.cfg.LLM.Routing.Model(a.cfg.LLM.Routing.Drafting)
	drafts := make([]SectionDraft, len(titles))
	sem := make(chan struct{}, a.cfg.Pipeline.MaxConcurrentSections)
	errCh := make(chan error, len(titles))
	var wg sync.WaitGroup
	for i, title := range titles {
		wg.Add(1)
		go func(i int, title string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			content, err := a.draftSectionContent(ctx, usage, req, title, model)
			if err != nil {
				errCh <- fmt.Errorf("drafting %q: %w", title, err)
				return
			}
			drafts[i] = SectionDraft{Title: title, ContentHTML: content}
		}(i, title)
	}
	wg.Wait()
	close(errCh)
	if err := <-errCh; err != nil {
		return nil, err
	}
	return drafts, nil
}

// draftSectionContent generates one section, rejecting output shorter than
// the configured minimum.
func (a *Assembler) draftSectionContent(ctx context.Context, usage *runUsage, req ProposalRequest, title, model string) (string, error) {
	prompt := SectionContentPrompt(req, title)
	var lastErr error
	for attempt := 1; attempt <= a.cfg.Pipeline.ContentMaxAttempts; attempt++ {
		resp, err := a.generate(ctx, usage, prompt, model, nil)
		if err != nil {
			if !IsRetryable(err) {
				return "", err
			}
			lastErr = err
			continue
		}
		content := NormalizeContentHTML(resp)
		if len(content) >= a.cfg.Pipeline.ContentMinLength {
			return content, nil
		}
		lastErr = fmt.Errorf("content too short (%d chars) on attempt %d", len(content), attempt)
		a.logger.Printf("section %q: %v", title, lastErr)
	}
	return "", lastErr
}

// enrichSection attaches the section's diagram, logos or image. Every
// failure here is soft: the section comes back with the enrichment missing.
func (a *Assembler) enrichSection(ctx context.Context, usage *runUsage, i int, draft SectionDraft, req ProposalRequest, fullContent string) EnrichedSection {
	section := EnrichedSection{
		Title:       draft.Title,
		ContentHTML: draft.ContentHTML,
		Order:       i + 1,
		ImageURLs:   []string{},
		TechLogos:   []TechLogo{},
	}

	cls := a.classify.Classify(draft.Title)

	switch {
	case cls.DiagramType != ChartNone:
		callCtx, cancel := a.callContext(ctx)
		chart, err := a.diagrams.Generate(callCtx, cls.DiagramType, draft.ContentHTML)
		cancel()
		if err != nil {
			a.telemetry.RecordEnrichmentFailure("diagram")
			a.logger.Printf("%v", &EnrichmentError{Stage: "diagram", Section: draft.Title, Err: err})
		} else {
			section.MermaidChart = chart
			section.ChartType = cls.DiagramType
		}

	case cls.NeedsTechLogos:
		callCtx, cancel := a.callContext(ctx)
		logos, err := a.analyzeTechStack(callCtx, usage, req.RFPText, fullContent)
		cancel()
		if err != nil {
			a.telemetry.RecordEnrichmentFailure("logos")
			a.logger.Printf("%v", &EnrichmentError{Stage: "logos", Section: draft.Title, Err: err})
		} else {
			section.TechLogos = logos
		}

	case cls.NeedsImage:
		callCtx, cancel := a.callContext(ctx)
		urls, err := a.findSectionImage(callCtx, usage, draft)
		cancel()
		if err != nil {
			a.telemetry.RecordEnrichmentFailure("image")
			a.logger.Printf("%v", &EnrichmentError{Stage: "image", Section: draft.Title, Err: err})
		} else if len(urls) > 0 {
			section.ImageURLs = urls[:1]
			section.ImagePlacement = PlacementFullWidthTop
		}
	}

	return section
}

// findSectionImage builds a visual query from the section and searches the
// configured providers.
func (a *Assembler) findSectionImage(ctx context.Context, usage *runUsage, draft SectionDraft) ([]string, error) {
	query := draft.ImageQuery
	if query == "" {
		keywords := a.imageQueryFromText(ctx, usage, draft.ContentHTML)
		query = strings.TrimSpace(draft.Title + " " + keywords)
	}
	query = utils.Truncate(query, 100)
	if query == "" {
		return nil, nil
	}

	limit := a.cfg.Sources.MaxResults
	if limit <= 0 {
		limit = 9
	}
	images, err := a.images.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(images))
	for _, img := range images {
		urls = append(urls, img.URL)
	}
	return urls, nil
}

// imageQueryFromText extracts a 3-5 word visual query from section text.
// Anything that does not look like a keyword list is discarded.
func (a *Assembler) imageQueryFromText(ctx context.Context, usage *runUsage, text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	model := a.cfg.LLM.Routing.Model(a.cfg.LLM.Routing.Classification)
	resp, err := a.generate(ctx, usage, ImageQueryPrompt(text), model, map[string]interface{}{"temperature": 0.0})
	if err != nil {
		return ""
	}
	query := strings.ToLower(strings.TrimSpace(strings.Trim(resp, `"`)))
	if query == "" || len(query) > 75 || strings.Contains(query, "\n") {
		return ""
	}
	return query
}

// AnalyzeTechStack extracts the proposed technologies and resolves each to
// a logo. Technologies without a logo are kept, just without a URL.
func (a *Assembler) AnalyzeTechStack(ctx context.Context, rfpText, proposalContent string) ([]TechLogo, error) {
	return a.analyzeTechStack(ctx, nil, rfpText, proposalContent)
}

func (a *Assembler) analyzeTechStack(ctx context.Context, usage *runUsage, rfpText, proposalContent string) ([]TechLogo, error) {
	model := a.cfg.LLM.Routing.Model(a.cfg.LLM.Routing.Classification)
	resp, err := a.generate(ctx, usage, TechStackPrompt(rfpText, proposalContent), model, nil)
	if err != nil {
		return nil, err
	}

	payload := extractJSONPayload(resp)
	if payload == "" {
		return nil, fmt.Errorf("no JSON in tech stack response")
	}
	var techs []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := unmarshalRepaired(payload, &techs); err != nil {
		return nil, fmt.Errorf("tech stack parse: %w", err)
	}

	logos := make([]TechLogo, 0, len(techs))
	for _, t := range techs {
		if strings.TrimSpace(t.Name) == "" {
			continue
		}
		entry := TechLogo{Name: t.Name, Description: t.Description}
		if resolved, err := a.logos.Resolve(ctx, t.Name); err == nil && resolved != nil {
			entry.LogoURL = resolved.LogoURL
			entry.Source = resolved.Source
		}
		logos = append(logos, entry)
	}
	return logos, nil
}

// EnhanceSection rewrites section content per the given instructions, tone
// and focus points. Output shorter than the configured minimum is retried up
// to the content attempt budget.
func (a *Assembler) EnhanceSection(ctx context.Context, content string, opts EnhanceOptions) (string, error) {
	model := a.cfg.LLM.Routing.Model(a.cfg.LLM.Routing.Enhancement)
	prompt := EnhanceSectionPrompt(content, opts)
	var lastErr error
	for attempt := 1; attempt <= a.cfg.Pipeline.ContentMaxAttempts; attempt++ {
		resp, err := a.generate(ctx, nil, prompt, model, nil)
		if err != nil {
			if !IsRetryable(err) {
				return "", err
			}
			lastErr = err
			continue
		}
		enhanced := NormalizeContentHTML(resp)
		if len(enhanced) >= a.cfg.Pipeline.ContentMinLength {
			return enhanced, nil
		}
		lastErr = fmt.Errorf("enhanced content too short (%d chars) on attempt %d", len(enhanced), attempt)
		a.logger.Printf("enhance: %v", lastErr)
	}
	return "", lastErr
}

// generate wraps the provider call with telemetry and cost accounting.
func (a *Assembler) generate(ctx context.Context, usage *runUsage, prompt, model string, options map[string]interface{}) (string, error) {
	resp, inTok, outTok, err := a.provider.GenerateWithTokens(ctx, prompt, model, options)
	cost := a.provider.CalculateCost(inTok, outTok, model)
	a.telemetry.RecordLLMCall(model, inTok, outTok, cost, err)
	usage.add(cost, inTok, outTok)
	return resp, err
}

func (a *Assembler) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := a.cfg.General.DefaultTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func (a *Assembler) recordRun(runID string, req ProposalRequest, start time.Time, sections int, success bool, usage *runUsage) {
	usage.mu.Lock()
	cost := usage.cost
	tokens := usage.inTokens + usage.outTok
	usage.mu.Unlock()
	a.telemetry.RecordRun(telemetry.RunEvent{
		RunID:      runID,
		ProposalID: req.ClientName,
		Duration:   time.Since(start),
		Sections:   sections,
		Success:    success,
		Cost:       cost,
		Tokens:     tokens,
	})
}

// alignDrafts forces the draft list to match the requested titles: extras
// are dropped, gaps are filled with placeholder content.
func alignDrafts(drafts []SectionDraft, titles []string) []SectionDraft {
	out := make([]SectionDraft, len(titles))
	for i := range titles {
		if i < len(drafts) {
			out[i] = drafts[i]
		} else {
			out[i] = SectionDraft{
				Title:       titles[i],
				ContentHTML: "<p>Error: Content not generated.</p>",
			}
		}
	}
	return out
}

// unmarshalRepaired parses JSON, repairing it on first failure.
func unmarshalRepaired(payload string, v interface{}) error {
	if err := jsonUnmarshal(payload, v); err != nil {
		return jsonUnmarshal(RepairJSON(payload), v)
	}
	return nil
}
