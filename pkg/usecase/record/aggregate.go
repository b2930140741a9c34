package record

import (
	"sort"
	"strings"

	"github.com/m-mizutani/glimpse/pkg/model"
)

const (
	topApps       = 3
	topKeywords   = 10
	maxActivities = 5
)

// counter counts occurrences and remembers first-seen order for tie breaking.
type counter struct {
	order  []string
	counts map[string]int
}

func newCounter() *counter {
	return &counter{counts: make(map[string]int)}
}

func (c *counter) add(v string) {
	if _, ok := c.counts[v]; !ok {
		c.order = append(c.order, v)
	}
	c.counts[v]++
}

// top returns up to k values by count descending; equal counts keep first-seen order.
func (c *counter) top(k int) []string {
	ranked := append([]string{}, c.order...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return c.counts[ranked[i]] > c.counts[ranked[j]]
	})
	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// Aggregate folds records, given in chronological order, into one AggregatedRecord.
func Aggregate(records []model.SummaryRecord) model.AggregatedRecord {
	apps := newCounter()
	keywords := newCounter()
	activities := []string{}
	seen := map[string]bool{}
	var errs []string

	for _, r := range records {
		apps.add(r.App)
		for _, kw := range r.Keywords {
			keywords.add(kw)
		}
		if r.Action.IsTrouble() {
			errs = append(errs, r.Summary)
		}
		if !seen[r.Summary] && len(activities) < maxActivities {
			seen[r.Summary] = true
			activities = append(activities, r.Summary)
		}
	}

	agg := model.AggregatedRecord{
		Apps:           apps.top(topApps),
		MainActivities: activities,
		Keywords:       keywords.top(topKeywords),
		RecordCount:    len(records),
		HasErrors:      len(errs) > 0,
	}
	if len(records) > 0 {
		agg.StartTime = records[0].Timestamp
		agg.EndTime = records[len(records)-1].Timestamp
	}

	first := "未知"
	if len(activities) > 0 {
		first = activities[0]
	}
	agg.Summary = "使用 " + strings.Join(agg.Apps, "、") + " 进行了 " + first + " 等操作"

	if agg.HasErrors {
		s := strings.Join(errs, "; ")
		agg.ErrorSummary = &s
	}

	return agg
}
