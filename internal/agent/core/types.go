package core

import "context"

// ProposalRequest is the immutable input to the generation pipeline.
type ProposalRequest struct {
	ClientName    string   `json:"clientName"`
	CompanyName   string   `json:"companyName"`
	RFPText       string   `json:"rfpText"`
	SectionTitles []string `json:"sectionTitles,omitempty"`
}

// EnhanceOptions directs a section rewrite. Tone defaults to professional
// when empty.
type EnhanceOptions struct {
	Instruction string   `json:"instruction"`
	Tone        string   `json:"tone,omitempty"`
	FocusPoints []string `json:"focus_points,omitempty"`
}

// DefaultSectionTitles is used when a request does not name its sections.
var DefaultSectionTitles = []string{
	"Executive Summary",
	"Product Vision and Overview",
	"Core Functionality and Key Features",
	"User Journey / Workflow",
	"Technology Stack",
	"Development Plan",
	"Payment Milestones",
	"Product Cost & Pricing Breakdown",
	"Timeline & Roadmap",
	"About Us",
	"Path to Partnership",
}

// SectionDraft is the raw, unenriched section produced from model output.
type SectionDraft struct {
	Title       string `json:"title"`
	ContentHTML string `json:"contentHtml"`
	ImageQuery  string `json:"image_query,omitempty"`
}

// ImagePlacement describes where a section image is rendered.
type ImagePlacement string

const (
	PlacementNone            ImagePlacement = ""
	PlacementFullWidthTop    ImagePlacement = "full-width-top"
	PlacementFullWidthBottom ImagePlacement = "full-width-bottom"
)

// ChartType identifies the kind of Mermaid diagram attached to a section.
type ChartType string

const (
	ChartNone        ChartType = ""
	ChartFlowchart   ChartType = "flowchart"
	ChartGantt       ChartType = "gantt"
	ChartSequence    ChartType = "sequence"
	ChartMindmap     ChartType = "mindmap"
	ChartPie         ChartType = "pie"
	ChartUserJourney ChartType = "user_journey"
	ChartC4          ChartType = "c4"
)

// ChartTypes lists every chart type the classifier may emit.
var ChartTypes = []ChartType{
	ChartFlowchart, ChartGantt, ChartSequence, ChartMindmap, ChartPie, ChartUserJourney, ChartC4,
}

// ParseChartType maps a string to a known chart type, ChartNone otherwise.
func ParseChartType(s string) ChartType {
	for _, t := range ChartTypes {
		if string(t) == s {
			return t
		}
	}
	return ChartNone
}

// TechLogo is a resolved technology name with its icon URL.
type TechLogo struct {
	Name        string `json:"name"`
	LogoURL     string `json:"logo_url"`
	Description string `json:"description,omitempty"`
	Source      string `json:"source,omitempty"` // custom or catalog
}

// EnrichedSection is a section draft plus its enrichment, the unit persisted
// and consumed by the exporters.
type EnrichedSection struct {
	Title          string         `json:"title"`
	ContentHTML    string         `json:"contentHtml"`
	Order          int            `json:"order"` // 1-indexed, matches draft order
	ImageURLs      []string       `json:"image_urls"`
	ImagePlacement ImagePlacement `json:"image_placement,omitempty"`
	MermaidChart   string         `json:"mermaid_chart,omitempty"` // empty when no diagram
	ChartType      ChartType      `json:"chart_type,omitempty"`
	TechLogos      []TechLogo     `json:"tech_logos"`
}

// Classification is the per-section enrichment routing decision.
type Classification struct {
	NeedsImage     bool
	NeedsTechLogos bool
	DiagramType    ChartType
}

// ChartValidationResult reports Mermaid syntax validation.
type ChartValidationResult struct {
	Valid  bool
	Errors []string
}

// CatalogIcon is one entry of the technology icon catalog.
type CatalogIcon struct {
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

// IconCatalog lists the icons available for tech logo resolution.
type IconCatalog interface {
	Icons(ctx context.Context) ([]CatalogIcon, error)
}

// CustomLogoStore lists user-curated logos, matched before the catalog.
type CustomLogoStore interface {
	ListCustomLogos(ctx context.Context) ([]TechLogo, error)
}

// LLMProvider abstracts a chat-completion backend.
type LLMProvider interface {
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
	GenerateWithTokens(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, int64, int64, error)
	CalculateCost(inputTokens, outputTokens int64, model string) float64
}
