package core

import (
	"fmt"
	"strings"

	"github.com/Safwan2003/ai-proposalgenerator-backend/utils"
)

// OneShotProposalPrompt asks the model for every section of the proposal in
// one completion, returned as a JSON array inside a ```json fence.
func OneShotProposalPrompt(req ProposalRequest, titles []string) string {
	var list strings.Builder
	for _, t := range titles {
		list.WriteString("- " + t + "\n")
	}

	return fmt.Sprintf(`As an expert business proposal strategist, generate a complete, professional business proposal based on the following details.

**Client:** %s
**Company:** %s
**RFP:** `+"```%s```"+`

**Instructions:**
1.  **Generate All Sections:** Create content for all of the following mandatory sections:
%s
2.  **Content & Formatting:** The "contentHtml" must be well-structured, using paragraphs (<p>), lists (<ul>, <ol>), and bold text (<strong>) to improve readability. For sections requiring tables (like "Payment Milestones" or "Product Cost"), the content MUST be a detailed HTML <table>.
3.  **Output Format:** Return a single, valid JSON array inside a `+"```json ... ```"+` block. Each object in the array must represent a section and have the keys "title" (string), "contentHtml" (string) and "image_query" (a short image description for the section).
4.  **Tone:** The tone must be professional, confident, and persuasive.
5.  **Content Quality:** The content must be detailed, well-written, and directly address the RFP.`,
		req.ClientName, req.CompanyName, req.RFPText, list.String())
}

// SectionContentPrompt asks for one section's HTML content. Milestone and
// cost sections demand an HTML table instead of prose.
func SectionContentPrompt(req ProposalRequest, title string) string {
	lower := strings.ToLower(title)
	format := "The content should be detailed, professional, and formatted in HTML (<p>, <ul>, <strong>, etc.)."
	if strings.Contains(lower, "payment milestone") || strings.Contains(lower, "cost") || strings.Contains(lower, "pricing") {
		format = "The content MUST be a detailed HTML <table> with clear rows for each milestone or cost item, plus a short <p> introduction."
	}

	return fmt.Sprintf(`Generate the content for the section titled '%s' within the context of this proposal:
**Client:** %s
**Company:** %s
**RFP:** `+"```%s```"+`
%s
Return only the HTML content, without any additional commentary.`,
		title, req.ClientName, req.CompanyName, req.RFPText, format)
}

// TechStackPrompt extracts the technologies that make up the proposed
// solution as a JSON array of {name, description} objects.
func TechStackPrompt(rfpText, proposalContent string) string {
	return fmt.Sprintf(`As a senior solution architect, your task is to analyze the provided RFP and proposal content to identify the key technologies that form the proposed solution.

**Context:**
- **RFP:** `+"```%s```"+`
- **Proposal Content:** `+"```%s```"+`

**Instructions:**
1.  **Identify Core Technologies:** From the documents, extract only the specific technologies (languages, frameworks, databases, platforms, tools) that are actively part of the proposed technical solution.
2.  **Exclude Mentions:** Do NOT include technologies that are merely mentioned or part of the client's existing infrastructure unless they are being integrated with.
3.  **Provide Descriptions:** For each technology, write a concise, one-sentence description of its role in the project.
4.  **Output Format:** Return a valid JSON array of objects inside a `+"```json ... ```"+` block. Each object must have two keys: "name" (string) and "description" (string).

**Example:**
`+"```json"+`
[
  {
    "name": "React",
    "description": "The primary frontend framework for building a responsive and interactive user interface."
  }
]
`+"```", rfpText, proposalContent)
}

// imageQueryMaxInput caps the text handed to the keyword extractor.
const imageQueryMaxInput = 500

// ImageQueryPrompt asks for a short visual search query for a block of text.
func ImageQueryPrompt(text string) string {
	text = utils.Truncate(text, imageQueryMaxInput)
	return fmt.Sprintf(`Analyze the following text and extract a concise, 3-5 word image search query that visually represents the core concepts.

**Instructions:**
1.  **Think Visually:** Focus on concrete objects, actions, and metaphors described in the text.
2.  **Be Specific:** Instead of "business", think "team collaborating office". Instead of "data", think "glowing data network".
3.  **Format:** Return ONLY the keywords as a single, lowercase, space-separated string. Do not use punctuation.

**Text to Analyze:**
"%s"

**Search Query:**`, text)
}

// ChartPrompt builds the generation prompt for a chart type.
func ChartPrompt(chartType ChartType, description string) string {
	switch chartType {
	case ChartGantt:
		return fmt.Sprintf(`You are an expert in creating **valid and simple Mermaid.js Gantt charts**.
Create a valid Gantt chart for this project description:
%s

**CRITICAL RULES:**
1.  The syntax MUST be simple.
2.  Each task line must follow this exact format: Task Name :[optional_id], yyyy-mm-dd, DURATION.
3.  **DO NOT** use any other syntax like taskData, functions, or complex IDs. The format is strict.
4.  Start with gantt and include dateFormat YYYY-MM-DD.
5.  Use section for grouping tasks.

Return ONLY the valid Mermaid code inside `+"```mermaid ... ```"+` blocks.`, description)
	case ChartSequence:
		return fmt.Sprintf(`You are an expert in Mermaid.js sequence diagrams.
Create a valid diagram showing interactions for this scenario:
%s

Rules:
- Use standard arrows like A->>B: Message.
- Ensure clear participants and logical flow.
- Return only valid Mermaid code in `+"```mermaid ... ```"+` blocks.`, description)
	case ChartMindmap:
		return fmt.Sprintf(`You are an expert in Mermaid.js mindmaps.
Create a clear mindmap showing hierarchy and relationships:
%s

Rules:
- Use indentation to represent hierarchy.
- Keep node names concise.
- Return only valid Mermaid mindmap code in `+"```mermaid ... ```"+` blocks.`, description)
	case ChartPie:
		return fmt.Sprintf(`You are an expert in Mermaid.js pie charts.
Create a valid pie chart for the following data:
%s

Example:
`+"```mermaid"+`
pie
    title Resource Allocation
    "Design" : 40
    "Development" : 35
    "Testing" : 25
`+"```"+`
Return only valid Mermaid code in `+"```mermaid ... ```"+` blocks.`, description)
	case ChartUserJourney:
		return fmt.Sprintf(`You are an expert in Mermaid.js user journey diagrams.
Create a valid user journey for this scenario:
%s

Rules:
- Use proper syntax for journey diagrams.
- Map emotions, stages, and interactions logically.
- Return only valid Mermaid code in `+"```mermaid ... ```"+` blocks.`, description)
	case ChartC4:
		return fmt.Sprintf(`You are an expert in creating **C4-style system diagrams** using Mermaid.js.
Generate a valid Mermaid C4-style diagram for this system:
%s

Rules:
- Use graph TD, subgraphs, and arrows like A --> B : uses.
- Avoid unsupported C4 syntax like rel() or SystemContext.
- Use descriptive labels.
- Return only valid Mermaid code in `+"```mermaid ... ```"+` blocks.`, description)
	default: // flowchart
		return fmt.Sprintf(`You are an expert in creating **valid Mermaid.js flowcharts**.
Generate a graph TD diagram for the following process:
%s

Rules:
- Use valid Mermaid syntax only.
- Use --> for connections, never |> or nonstandard arrows.
- Avoid special characters in node IDs.
- Return ONLY the Mermaid code inside `+"```mermaid ... ```"+` blocks.`, description)
	}
}

// ChartUpdatePrompt rewrites an existing chart per a modification request.
func ChartUpdatePrompt(modification, currentChart string) string {
	return fmt.Sprintf(`You are an expert in editing Mermaid.js diagrams.
Modify the chart below according to this request:
"%s"

Current chart:
`+"```mermaid"+`
%s
`+"```"+`

Return the UPDATED diagram in valid Mermaid syntax inside `+"```mermaid ... ```"+` blocks.`, modification, currentChart)
}

// ChartFixPrompt asks the model to repair broken Mermaid syntax.
func ChartFixPrompt(brokenChart string) string {
	return fmt.Sprintf(`The following Mermaid syntax is broken and will not render. Please fix it.

Broken Syntax:
`+"```mermaid"+`
%s
`+"```"+`

Return the UPDATED diagram in valid Mermaid syntax inside `+"```mermaid ... ```"+` blocks.`, brokenChart)
}

// SuggestChartTypePrompt asks the model to classify content into one of the
// supported diagram types.
func SuggestChartTypePrompt(content string) string {
	return fmt.Sprintf(`You are a diagram classifier.
Based on the following content, suggest the most suitable Mermaid.js diagram type.
Content: %s
Choose one: flowchart, gantt, sequence, mindmap, pie, user_journey, c4.
Reply ONLY with the type name.`, content)
}

// EnhanceSectionPrompt rewrites section content per instructions, tone and
// focus points.
func EnhanceSectionPrompt(content string, opts EnhanceOptions) string {
	tone := opts.Tone
	if tone == "" {
		tone = "professional"
	}
	focus := "None specified."
	if len(opts.FocusPoints) > 0 {
		focus = strings.Join(opts.FocusPoints, ", ")
	}

	return fmt.Sprintf(`You are an expert proposal writer. Your task is to enhance and refine the provided section of a business proposal.

**Current Section Content:**
`+"```"+`
%s
`+"```"+`

**Enhancement Instructions:** %s
**Desired Tone:** %s
**Key Focus Points:** %s

**Guidelines for Enhancement:**
- Improve clarity, conciseness, and persuasiveness.
- Ensure the content aligns with the specified tone.
- Incorporate the key focus points naturally and effectively.
- Maintain the core message and factual accuracy of the original content.
- The output must be HTML, returned as a single block of text.

Return ONLY the enhanced content.`, content, opts.Instruction, tone, focus)
}
