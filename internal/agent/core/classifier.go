package core

import (
	"context"
	"strings"
)

// imageExclusionKeywords mark section titles that never receive a stock
// image: either the section gets a diagram or logos instead, or a photo
// would be noise (company blurbs, pricing tables).
var imageExclusionKeywords = []string{
	"user journey", "workflow", "technology stack", "about us", "company",
	"logo", "payment milestone", "cost", "pricing", "development plan",
}

// diagramRule maps title keywords to a chart type. Rules are checked in
// order and the first match wins, except the pie rule which overrides.
type diagramRule struct {
	keywords []string
	chart    ChartType
}

var diagramRules = []diagramRule{
	{[]string{"user journey", "workflow", "process", "architecture"}, ChartFlowchart},
	{[]string{"development plan", "schedule"}, ChartGantt},
	{[]string{"system", "integration", "api"}, ChartSequence},
	{[]string{"structure", "organization", "hierarchy"}, ChartMindmap},
}

var pieKeywords = []string{"distribution", "breakdown"}

// Classifier decides per-section enrichment: which sections get a diagram,
// which get technology logos, and which get a stock image. The three are
// mutually exclusive. Classification is keyword driven; SuggestChartType
// consults the model for content without a title match.
type Classifier struct {
	provider LLMProvider
	model    string
}

func NewClassifier(provider LLMProvider, model string) *Classifier {
	return &Classifier{provider: provider, model: model}
}

// Classify routes a section by its title.
func (c *Classifier) Classify(title string) Classification {
	lower := strings.ToLower(title)

	if strings.Contains(lower, "technology") || strings.Contains(lower, "tech stack") {
		return Classification{NeedsTechLogos: true}
	}

	chart := ChartNone
	for _, rule := range diagramRules {
		if containsAny(lower, rule.keywords) {
			chart = rule.chart
			break
		}
	}
	if containsAny(lower, pieKeywords) {
		chart = ChartPie
	}
	// Cost and pricing sections already carry an HTML table; a pie chart of
	// the same numbers would be redundant.
	if chart == ChartPie && containsAny(lower, []string{"cost", "pricing"}) {
		chart = ChartNone
	}

	if chart != ChartNone {
		return Classification{DiagramType: chart}
	}
	if containsAny(lower, imageExclusionKeywords) {
		return Classification{}
	}
	return Classification{NeedsImage: true}
}

// SuggestChartType asks the model which diagram fits the given content.
// Any failure or out-of-vocabulary answer yields ChartNone.
func (c *Classifier) SuggestChartType(ctx context.Context, content string) ChartType {
	if c.provider == nil {
		return ChartNone
	}
	resp, err := c.provider.Generate(ctx, SuggestChartTypePrompt(content), c.model, map[string]interface{}{
		"temperature": 0.0,
	})
	if err != nil {
		return ChartNone
	}
	return ParseChartType(strings.ToLower(strings.TrimSpace(resp)))
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
