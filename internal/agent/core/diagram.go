package core

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/Safwan2003/ai-proposalgenerator-backend/internal/agent/telemetry"
)

// chartStartKeywords are the top-level keywords a sanitized chart may start
// with. Matching is by prefix, so "sequenceDiagram" and "flowchart TD" pass.
var chartStartKeywords = []string{
	"graph", "flowchart", "gantt", "pie", "sequence", "mindmap", "journey", "c4",
}

var (
	mermaidFenceRe = regexp.MustCompile("(?s)```mermaid\\s*(.*?)```")
	badArrowRe     = regexp.MustCompile(`\|>+`)
	longDashRe     = regexp.MustCompile(`-{3,}`)
	graphHeaderRe  = regexp.MustCompile(`^graph\s+\w+`)
)

// DiagramGenerator produces Mermaid charts from section content. Every
// model response goes through extraction, sanitization and validation;
// invalid output costs one attempt of the retry budget.
type DiagramGenerator struct {
	provider  LLMProvider
	model     string
	policy    RetryPolicy
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

func NewDiagramGenerator(provider LLMProvider, model string, policy RetryPolicy, tel *telemetry.Telemetry) *DiagramGenerator {
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &DiagramGenerator{
		provider:  provider,
		model:     model,
		policy:    policy,
		telemetry: tel,
		logger:    log.New(log.Writer(), "[DIAGRAM] ", log.LstdFlags),
	}
}

// Generate synthesizes a chart of the given type from a description.
func (g *DiagramGenerator) Generate(ctx context.Context, chartType ChartType, description string) (string, error) {
	return g.run(ctx, chartType, ChartPrompt(chartType, description))
}

// Update modifies an existing chart per a natural-language request.
func (g *DiagramGenerator) Update(ctx context.Context, modification, currentChart string) (string, error) {
	return g.run(ctx, ChartNone, ChartUpdatePrompt(modification, currentChart))
}

// Fix repairs broken Mermaid syntax.
func (g *DiagramGenerator) Fix(ctx context.Context, brokenChart string) (string, error) {
	return g.run(ctx, ChartNone, ChartFixPrompt(brokenChart))
}

func (g *DiagramGenerator) run(ctx context.Context, chartType ChartType, prompt string) (string, error) {
	var lastErr error
	attempts := 0
	defer func() { g.recordAttempts(attempts) }()
	for attempt := 1; attempt <= g.policy.MaxAttempts; attempt++ {
		attempts = attempt
		resp, err := g.provider.Generate(ctx, prompt, g.model, map[string]interface{}{
			"temperature": 0.5,
			"max_tokens":  1024,
		})
		if err != nil {
			if !IsRetryable(err) {
				return "", &ChartGenerationError{ChartType: chartType, Attempts: attempt, LastErr: err}
			}
			lastErr = err
		} else {
			chart := ExtractMermaidBlock(resp)
			if chart == "" {
				lastErr = fmt.Errorf("no mermaid block in response")
			} else {
				chart = SanitizeChart(chart)
				if res := ValidateChart(chart); res.Valid {
					return chart, nil
				} else {
					lastErr = fmt.Errorf("invalid chart: %s", strings.Join(res.Errors, "; "))
				}
			}
		}

		g.logger.Printf("chart attempt %d/%d failed: %v", attempt, g.policy.MaxAttempts, lastErr)
		if attempt < g.policy.MaxAttempts {
			if err := g.policy.Sleep(ctx, attempt, lastErr); err != nil {
				return "", err
			}
		}
	}
	return "", &ChartGenerationError{ChartType: chartType, Attempts: g.policy.MaxAttempts, LastErr: lastErr}
}

func (g *DiagramGenerator) recordAttempts(n int) {
	if g.telemetry == nil || n == 0 {
		return
	}
	g.telemetry.RecordDiagramAttempts(n)
}

// ExtractMermaidBlock pulls the chart code out of a ```mermaid fence. If no
// fence is present but the text itself starts with a chart keyword, the
// whole text is taken as the chart.
func ExtractMermaidBlock(s string) string {
	if m := mermaidFenceRe.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	trimmed := strings.TrimSpace(s)
	if hasChartKeyword(trimmed) {
		return trimmed
	}
	return ""
}

// SanitizeChart fixes the Mermaid mistakes models make most often: invalid
// arrow artifacts, over-long dashes, and mixed graph/gantt headers.
func SanitizeChart(chart string) string {
	chart = badArrowRe.ReplaceAllString(chart, "|")
	chart = longDashRe.ReplaceAllString(chart, "--")

	// A graph header over a gantt body renders as neither.
	if strings.HasPrefix(chart, "graph") &&
		(strings.Contains(chart, "gantt") || strings.Contains(chart, "section ")) {
		chart = graphHeaderRe.ReplaceAllString(chart, "gantt")
	}

	if !hasChartKeyword(chart) {
		chart = "graph TD\n" + chart
	}
	return chart
}

// ValidateChart checks the chart starts with a recognized keyword and that
// its brackets balance. Errors carry 1-based line numbers.
func ValidateChart(chart string) ChartValidationResult {
	var errs []string
	if strings.TrimSpace(chart) == "" {
		return ChartValidationResult{Errors: []string{"empty chart"}}
	}
	if !hasChartKeyword(chart) {
		errs = append(errs, fmt.Sprintf("line 1: unknown chart type %q", firstWord(chart)))
	}

	type open struct {
		ch   byte
		line int
	}
	var stack []open
	line := 1
	inString := false
	for i := 0; i < len(chart); i++ {
		c := chart[i]
		switch {
		case c == '\n':
			line++
			inString = false
		case c == '"':
			inString = !inString
		case inString:
		case c == '(' || c == '[' || c == '{':
			stack = append(stack, open{c, line})
		case c == ')' || c == ']' || c == '}':
			want := map[byte]byte{')': '(', ']': '[', '}': '{'}[c]
			if len(stack) == 0 || stack[len(stack)-1].ch != want {
				errs = append(errs, fmt.Sprintf("line %d: unmatched %q", line, string(c)))
			} else {
				stack = stack[:len(stack)-1]
			}
		}
	}
	for _, o := range stack {
		errs = append(errs, fmt.Sprintf("line %d: unclosed %q", o.line, string(o.ch)))
	}

	return ChartValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func hasChartKeyword(chart string) bool {
	lower := strings.ToLower(strings.TrimSpace(chart))
	for _, k := range chartStartKeywords {
		if strings.HasPrefix(lower, k) {
			return true
		}
	}
	return false
}

func firstWord(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
