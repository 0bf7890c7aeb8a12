package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
)

var jsonFenceRe = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")

// defaultImageQuery stands in when the model omits a section's image_query.
const defaultImageQuery = "business technology"

func jsonUnmarshal(s string, v interface{}) error { return json.Unmarshal([]byte(s), v) }

// ExtractSectionDrafts turns raw model output into section drafts. It pulls
// the JSON payload out of a ```json fence (or falls back to the outermost
// array), repairs common model mistakes, and fills defaults for missing
// fields. A ParseError means the output is unusable.
func ExtractSectionDrafts(raw string) ([]SectionDraft, error) {
	payload := extractJSONPayload(raw)
	if payload == "" {
		return nil, &ParseError{Reason: "no JSON payload found in model output", Raw: raw}
	}

	var drafts []SectionDraft
	if err := json.Unmarshal([]byte(payload), &drafts); err != nil {
		repaired := RepairJSON(payload)
		if err2 := json.Unmarshal([]byte(repaired), &drafts); err2 != nil {
			// Some models return a single object instead of an array.
			var one SectionDraft
			if err3 := json.Unmarshal([]byte(repaired), &one); err3 == nil && (one.Title != "" || one.ContentHTML != "") {
				drafts = []SectionDraft{one}
			} else {
				return nil, &ParseError{Reason: fmt.Sprintf("invalid JSON after repair: %v", err), Raw: raw}
			}
		}
	}
	if len(drafts) == 0 {
		return nil, &ParseError{Reason: "model returned an empty section list", Raw: raw}
	}

	for i := range drafts {
		if strings.TrimSpace(drafts[i].Title) == "" {
			drafts[i].Title = fmt.Sprintf("Section %d", i+1)
		}
		drafts[i].ContentHTML = NormalizeContentHTML(drafts[i].ContentHTML)
		if strings.TrimSpace(drafts[i].ImageQuery) == "" {
			drafts[i].ImageQuery = defaultImageQuery
		}
	}
	return drafts, nil
}

// extractJSONPayload locates the JSON text inside raw model output.
// Preference order: fenced ```json block, outermost array, outermost object.
func extractJSONPayload(raw string) string {
	if m := jsonFenceRe.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}
	if start := strings.Index(raw, "["); start >= 0 {
		if end := strings.LastIndex(raw, "]"); end > start {
			return strings.TrimSpace(raw[start : end+1])
		}
		// Unterminated array, let the repairer balance it.
		return strings.TrimSpace(raw[start:])
	}
	if start := strings.Index(raw, "{"); start >= 0 {
		end := strings.LastIndex(raw, "}")
		if end > start {
			return strings.TrimSpace(raw[start : end+1])
		}
		return strings.TrimSpace(raw[start:])
	}
	return ""
}

// RepairJSON fixes the JSON mistakes LLMs make most often: raw newlines and
// tabs inside string literals, trailing commas, and unbalanced brackets. The
// scanner tracks string state so structural characters inside strings are
// left alone. Valid JSON passes through unchanged.
func RepairJSON(s string) string {
	var out bytes.Buffer
	var stack []byte
	inString := false
	escaped := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
				out.WriteByte(c)
			case c == '\\':
				escaped = true
				out.WriteByte(c)
			case c == '"':
				inString = false
				out.WriteByte(c)
			case c == '\n':
				out.WriteString("\\n")
			case c == '\r':
				// dropped, \n following it handles the escape
			case c == '\t':
				out.WriteString("\\t")
			default:
				out.WriteByte(c)
			}
			continue
		}

		switch c {
		case '"':
			inString = true
			out.WriteByte(c)
		case '{', '[':
			stack = append(stack, c)
			out.WriteByte(c)
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
			out.WriteByte(c)
		case ',':
			// Drop trailing commas before a closing bracket.
			j := i + 1
			for j < len(s) && (s[j] == ' ' || s[j] == '\n' || s[j] == '\r' || s[j] == '\t') {
				j++
			}
			if j < len(s) && (s[j] == '}' || s[j] == ']') {
				continue
			}
			out.WriteByte(c)
		default:
			out.WriteByte(c)
		}
	}

	if inString {
		out.WriteByte('"')
	}
	for i := len(stack) - 1; i >= 0; i-- {
		// Trailing comma may be exposed by truncation.
		trimmed := strings.TrimRight(out.String(), " \n\r\t")
		if strings.HasSuffix(trimmed, ",") {
			out.Reset()
			out.WriteString(strings.TrimSuffix(trimmed, ","))
		}
		if stack[i] == '{' {
			out.WriteByte('}')
		} else {
			out.WriteByte(']')
		}
	}
	return out.String()
}

// NormalizeContentHTML ensures section content is HTML. Models occasionally
// ignore formatting instructions and return markdown; that gets rendered to
// HTML, plain text gets wrapped in a paragraph.
func NormalizeContentHTML(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "<p>Error: Content not generated.</p>"
	}
	if strings.Contains(trimmed, "<") {
		return trimmed
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(trimmed), &buf); err != nil {
		return "<p>" + trimmed + "</p>"
	}
	return strings.TrimSpace(buf.String())
}
