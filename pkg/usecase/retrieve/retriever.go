package retrieve

import (
	"context"
	"strings"
	"time"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	// todayRecentLimit is how many raw records a keyword-less Today query returns.
	todayRecentLimit = 20

	recentContextWindow = 3 * time.Minute
	maxRecentItems      = 100

	// NoRecentContext is returned by RecentContext when the window is empty.
	NoRecentContext = "（无）"
)

// DayLoader reads both tiers of a day. *record.Store implements it.
type DayLoader interface {
	LoadDaily(ctx context.Context, date string) (*model.DailySummary, error)
}

type Retriever struct {
	loader DayLoader
	now    func() time.Time
}

type Option func(*Retriever)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Retriever) {
		r.now = now
	}
}

func New(loader DayLoader, opts ...Option) *Retriever {
	r := &Retriever{
		loader: loader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Search answers q against the stored tiers.
func (r *Retriever) Search(ctx context.Context, q *Query) (*Result, error) {
	now := r.now()

	switch q.Range.Kind {
	case RangeRecent:
		return r.searchRecent(ctx, q, now)
	case RangeToday:
		return r.searchToday(ctx, q, now)
	case RangeDays:
		return r.searchDays(ctx, q.Range.N, now), nil
	default:
		return nil, goerr.New("unknown time range", goerr.V("kind", int(q.Range.Kind)))
	}
}

// recordsSince returns raw records at or after cutoff, loading every day from the
// cutoff's day through today.
func (r *Retriever) recordsSince(ctx context.Context, cutoff, now time.Time) ([]model.SummaryRecord, error) {
	today := model.FormatDate(now)
	from := model.FormatTimestamp(cutoff)

	var out []model.SummaryRecord
	for day := cutoff; model.FormatDate(day) <= today; day = day.AddDate(0, 0, 1) {
		date := model.FormatDate(day)
		daily, err := r.loader.LoadDaily(ctx, date)
		if err != nil {
			return nil, err
		}
		for _, rec := range daily.Records {
			if rec.Timestamp >= from {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (r *Retriever) searchRecent(ctx context.Context, q *Query, now time.Time) (*Result, error) {
	minutes := q.Range.N
	if minutes < 0 {
		minutes = 0
	}

	records, err := r.recordsSince(ctx, now.Add(-time.Duration(minutes)*time.Minute), now)
	if err != nil {
		return nil, err
	}

	result := &Result{Source: SourceRecent}
	for i := range records {
		if q.Matches(&records[i]) {
			result.Records = append(result.Records, records[i])
		}
	}
	return result, nil
}

func (r *Retriever) searchToday(ctx context.Context, q *Query, now time.Time) (*Result, error) {
	daily, err := r.loader.LoadDaily(ctx, model.FormatDate(now))
	if err != nil {
		return nil, err
	}

	if len(q.Keywords) > 0 {
		result := &Result{Source: SourceKeyword}
		for i := range daily.Records {
			if q.Matches(&daily.Records[i]) {
				result.Records = append(result.Records, daily.Records[i])
			}
		}
		return result, nil
	}

	result := &Result{
		Source:     SourceAggregated,
		Aggregated: daily.Aggregated,
	}
	for i := len(daily.Records) - 1; i >= 0 && len(result.Records) < todayRecentLimit; i-- {
		result.Records = append(result.Records, daily.Records[i])
	}
	return result, nil
}

// searchDays collects aggregates for today and the n-1 days before it. A day that cannot
// be read contributes nothing.
func (r *Retriever) searchDays(ctx context.Context, n int, now time.Time) *Result {
	result := &Result{Source: SourceHistory}

	for i := 0; i < n; i++ {
		date := model.FormatDate(now.AddDate(0, 0, -i))
		daily, err := r.loader.LoadDaily(ctx, date)
		if err != nil {
			logging.From(ctx).Warn("skip unreadable day", "date", date, "error", err)
			continue
		}
		result.Aggregated = append(result.Aggregated, daily.Aggregated...)
	}
	return result
}

// RecentContext renders the last few minutes of records for the next analyzer prompt.
// At most maxItems (clamped to [1, 100]) of the most recent records are listed in
// chronological order; only the last detailLimit of them carry their detail text.
func (r *Retriever) RecentContext(ctx context.Context, maxItems, detailLimit int) string {
	now := r.now()
	records, err := r.recordsSince(ctx, now.Add(-recentContextWindow), now)
	if err != nil {
		logging.From(ctx).Warn("failed to load recent records", "error", err)
		return NoRecentContext
	}
	if len(records) == 0 {
		return NoRecentContext
	}

	maxItems = min(max(maxItems, 1), maxRecentItems)
	detailLimit = min(max(detailLimit, 0), maxItems)

	if len(records) > maxItems {
		records = records[len(records)-maxItems:]
	}
	detailStart := len(records) - detailLimit

	lines := make([]string, 0, len(records))
	for i, rec := range records {
		var b strings.Builder
		b.WriteString("- ")
		b.WriteString(clip(rec.Timestamp, 11, 19))
		if rec.App != "" && rec.App != model.UnknownApp {
			b.WriteString(" [" + rec.App + "]")
		}
		b.WriteString(" " + rec.Summary)
		if i >= detailStart && rec.Detail != "" {
			b.WriteString("\n  细节: " + oneLine(rec.Detail))
		}
		lines = append(lines, b.String())
	}

	return strings.Join(lines, "\n")
}
