// Package retrieve selects stored records for a time range and renders them into a
// character-budgeted context block for the analyzer.
package retrieve

import (
	"strings"

	"github.com/m-mizutani/glimpse/pkg/model"
)

type RangeKind int

const (
	// RangeRecent covers the last N minutes of raw records.
	RangeRecent RangeKind = iota
	// RangeToday covers the current day.
	RangeToday
	// RangeDays covers the aggregates of the last N days, today included.
	RangeDays
)

func (k RangeKind) String() string {
	switch k {
	case RangeRecent:
		return "recent"
	case RangeToday:
		return "today"
	case RangeDays:
		return "days"
	default:
		return "unknown"
	}
}

type TimeRange struct {
	Kind RangeKind
	N    int
}

func Recent(minutes int) TimeRange { return TimeRange{Kind: RangeRecent, N: minutes} }
func Today() TimeRange             { return TimeRange{Kind: RangeToday} }
func Days(n int) TimeRange         { return TimeRange{Kind: RangeDays, N: n} }

type Query struct {
	Range         TimeRange
	Keywords      []string
	IncludeDetail bool
}

// Matches reports whether any keyword occurs, case-insensitively, in the record's
// summary, app, detail or keyword tags. A query without keywords matches everything.
func (q *Query) Matches(r *model.SummaryRecord) bool {
	if len(q.Keywords) == 0 {
		return true
	}

	text := strings.ToLower(strings.Join([]string{
		r.Summary, r.App, r.Detail, strings.Join(r.Keywords, " "),
	}, " "))

	for _, kw := range q.Keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// Source tells which tier a Result came from.
type Source string

const (
	SourceRecent     Source = "recent"
	SourceKeyword    Source = "keyword"
	SourceAggregated Source = "aggregated"
	SourceHistory    Source = "history"
)

type Result struct {
	Records    []model.SummaryRecord
	Aggregated []model.AggregatedRecord
	Source     Source
}
