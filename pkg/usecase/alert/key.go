package alert

import (
	"strings"
	"unicode"

	"github.com/m-mizutani/glimpse/pkg/catalog"
	"github.com/m-mizutani/glimpse/pkg/model"
)

// BuildKey derives the cooldown key of an issue: the normalized issue type if present,
// otherwise the normalized issue message.
func BuildKey(issueType, issueMessage string) string {
	if k := strings.ToLower(strings.TrimSpace(issueType)); k != "" {
		return k
	}
	return NormalizeIssueText(issueMessage)
}

// NormalizeIssueText lower-cases text and collapses every run of ASCII digits and
// whitespace into a single space, so messages differing only in numbers share a key.
func NormalizeIssueText(text string) string {
	var b strings.Builder
	space := false

	for _, r := range strings.TrimSpace(text) {
		if ('0' <= r && r <= '9') || unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
				space = true
			}
			continue
		}
		b.WriteRune(unicode.ToLower(r))
		space = false
	}

	return strings.TrimSpace(b.String())
}

// ModelErrorKey is the key space for analyzer and transport failures.
func ModelErrorKey(errType model.ModelErrorType, message string) string {
	return "model:" + string(errType) + ":" + message
}

// ShouldSuppress reports whether the result describes this tool's own window. Such a
// result is suppressed unless it carries one of the self-window markers.
func ShouldSuppress(r *model.AnalysisResult, c *catalog.Catalog) bool {
	app := strings.TrimSpace(r.App)
	combined := strings.Join([]string{r.App, r.Summary, r.Detail, r.IssueMessage}, " ")

	self := c.IsSelfApp(app)
	if !self && (app == "" || strings.EqualFold(app, model.UnknownApp)) {
		self = c.MentionsSelf(combined)
	}
	if !self {
		return false
	}

	return !c.HasSelfMarker(combined)
}
