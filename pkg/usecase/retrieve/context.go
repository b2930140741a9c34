package retrieve

import (
	"strings"
	"unicode/utf8"
)

const (
	overviewHeader = "## 操作概要\n\n"
	recordsHeader  = "## 详细记录\n\n"
	moreOmitted    = "...(更多记录已省略)\n"
	detailOmitted  = "  ...(细节已省略)\n"

	// NoRecords is rendered for an empty result.
	NoRecords = "目前没有相关的操作记录。"
)

type line struct {
	text   string
	detail bool
}

// clip returns s[from:to] when s is long enough, otherwise s itself.
func clip(s string, from, to int) string {
	if len(s) < to {
		return s
	}
	return s[from:to]
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

func (r *Result) lines(includeDetail bool) []line {
	var out []line

	if len(r.Aggregated) > 0 {
		out = append(out, line{text: overviewHeader})
		for _, agg := range r.Aggregated {
			out = append(out, line{text: "- [" + clip(agg.StartTime, 11, 16) + " ~ " + clip(agg.EndTime, 11, 16) + "] " + oneLine(agg.Summary) + "\n"})
			if agg.ErrorSummary != nil {
				out = append(out, line{text: "  ⚠️ 错误: " + oneLine(*agg.ErrorSummary) + "\n"})
			}
		}
		out = append(out, line{text: "\n"})
	}

	if len(r.Records) > 0 {
		out = append(out, line{text: recordsHeader})
		for _, rec := range r.Records {
			out = append(out, line{text: "- [" + clip(rec.Timestamp, 11, 19) + "] " + oneLine(rec.Summary) + "\n"})
			if includeDetail && rec.Detail != "" {
				out = append(out, line{text: "  细节: " + oneLine(rec.Detail) + "\n", detail: true})
			}
		}
	}

	return out
}

// BuildContext renders the result, aggregates first, within maxChars characters (runes).
// When the full text does not fit, the longest run of whole lines that leaves room for a
// truncation marker is kept and the marker is appended. The marker names omitted detail
// when the first dropped line is a detail line. If not even the marker fits, the result
// is empty.
func (r *Result) BuildContext(maxChars int, includeDetail bool) string {
	lines := r.lines(includeDetail)
	if len(lines) == 0 {
		if utf8.RuneCountInString(NoRecords) <= maxChars {
			return NoRecords
		}
		return ""
	}

	total := 0
	for _, l := range lines {
		total += utf8.RuneCountInString(l.text)
	}
	if total <= maxChars {
		var b strings.Builder
		for _, l := range lines {
			b.WriteString(l.text)
		}
		return b.String()
	}

	var b strings.Builder
	used := 0
	for i, l := range lines {
		n := utf8.RuneCountInString(l.text)
		// lines[i] is dropped unless the line after it still leaves room for a marker
		next := moreOmitted
		if i+1 < len(lines) && lines[i+1].detail {
			next = detailOmitted
		}
		if used+n+utf8.RuneCountInString(next) > maxChars {
			marker := moreOmitted
			if l.detail {
				marker = detailOmitted
			}
			if used+utf8.RuneCountInString(marker) > maxChars {
				return ""
			}
			b.WriteString(marker)
			return b.String()
		}
		b.WriteString(l.text)
		used += n
	}

	// unreachable: total > maxChars guarantees a break above
	return b.String()
}
