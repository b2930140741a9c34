package analysis

import (
	"encoding/json"
	"strings"

	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/glimpse/pkg/model"
)

// Parser turns free-form analyzer output into a structured result. It never fails.
type Parser struct {
	catalog *catalog.Catalog
}

func NewParser(c *catalog.Catalog) *Parser {
	if c == nil {
		c = catalog.Default()
	}
	return &Parser{catalog: c}
}

var defaultParser = NewParser(nil)

// Parse interprets raw with the built-in catalog.
func Parse(raw string) *model.AnalysisResult {
	return defaultParser.Parse(raw)
}

// extractor tries to find a JSON object in text.
type extractor func(text string) (map[string]any, bool)

// extractors are tried in order; the first success wins.
var extractors = []extractor{
	extractWhole,
	extractFenced,
	extractBraced,
}

func (p *Parser) Parse(raw string) *model.AnalysisResult {
	for _, extract := range extractors {
		if obj, ok := extract(raw); ok {
			return p.fromObject(obj)
		}
	}
	return p.fromText(raw)
}

func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

func extractWhole(text string) (map[string]any, bool) {
	return decodeObject(strings.TrimSpace(text))
}

func extractFenced(text string) (map[string]any, bool) {
	body, ok := fenceBody(text)
	if !ok {
		return nil, false
	}
	return decodeObject(body)
}

// fenceBody returns the body of the first ```json fence, or of the first fence of any kind.
func fenceBody(text string) (string, bool) {
	var rest string
	if idx := strings.Index(text, "```json"); idx >= 0 {
		rest = text[idx+len("```json"):]
	} else if idx := strings.Index(text, "```"); idx >= 0 {
		rest = text[idx+len("```"):]
	} else {
		return "", false
	}

	end := strings.Index(rest, "```")
	if end < 0 {
		return "", false
	}
	body := strings.TrimSpace(rest[:end])
	if stripped, ok := strings.CutPrefix(body, "json"); ok {
		body = strings.TrimLeft(stripped, " \t\r\n")
	}
	return body, true
}

func extractBraced(text string) (map[string]any, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, false
	}
	return decodeObject(text[start : end+1])
}

// firstString returns the first key holding a string value.
func firstString(obj map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := obj[k].(string); ok {
			return s
		}
	}
	return ""
}

func firstBool(obj map[string]any, keys ...string) (value, ok bool) {
	for _, k := range keys {
		if b, found := obj[k].(bool); found {
			return b, true
		}
	}
	return false, false
}

func (p *Parser) fromObject(obj map[string]any) *model.AnalysisResult {
	result := &model.AnalysisResult{
		Summary:      firstString(obj, "summary"),
		App:          strings.TrimSpace(firstString(obj, "app")),
		Detail:       firstString(obj, "detail", "detail_description", "image_detail", "image_description", "screen_detail"),
		IssueType:    firstString(obj, "issue_type", "error_type"),
		IssueMessage: firstString(obj, "issue_summary", "issue_message", "error_message"),
		Suggestion:   firstString(obj, "suggestion"),
	}
	if result.App == "" {
		result.App = model.UnknownApp
	}

	hasIssue, explicit := firstBool(obj, "has_issue", "has_error")
	if !explicit && (result.IssueType != "" || result.IssueMessage != "" || result.Suggestion != "") {
		hasIssue = true
	}
	result.HasIssue = hasIssue
	result.Confidence = parseConfidence(obj["confidence"], hasIssue)

	return result
}

func parseConfidence(v any, hasIssue bool) float64 {
	value := 0.2
	if hasIssue {
		value = 0.5
	}

	switch c := v.(type) {
	case float64:
		value = c
	case string:
		switch strings.ToLower(strings.TrimSpace(c)) {
		case "high":
			value = 0.9
		case "medium":
			value = 0.6
		case "low":
			value = 0.3
		}
	}

	return clamp01(value)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func (p *Parser) fromText(raw string) *model.AnalysisResult {
	firstLine, _, _ := strings.Cut(raw, "\n")
	app := p.catalog.FindApp(raw)
	if app == "" {
		app = model.UnknownApp
	}

	result := &model.AnalysisResult{
		Summary:    strings.TrimRight(firstLine, "\r"),
		App:        app,
		Detail:     raw,
		Confidence: 0.2,
	}

	if p.catalog.HasTroubleWord(raw) {
		result.HasIssue = true
		result.IssueType = "detected"
		result.IssueMessage = raw
		result.Confidence = 0.4
	}

	return result
}
