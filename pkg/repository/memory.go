package repository

import (
	"context"
	"sync"

	"github.com/m-mizutani/glimpse/pkg/model"
)

// Memory keeps days in a map. Stored values are copied on the way in and out.
type Memory struct {
	mu   sync.RWMutex
	days map[string]*model.DailySummary
}

func NewMemory() *Memory {
	return &Memory{days: make(map[string]*model.DailySummary)}
}

func (r *Memory) GetDaily(ctx context.Context, date string) (*model.DailySummary, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if d, ok := r.days[date]; ok {
		return cloneDaily(d), nil
	}
	return model.NewDailySummary(date), nil
}

func (r *Memory) PutDaily(ctx context.Context, daily *model.DailySummary) error {
	if err := validateDate(daily.Date); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.days[daily.Date] = cloneDaily(daily)
	return nil
}

func cloneDaily(d *model.DailySummary) *model.DailySummary {
	out := &model.DailySummary{
		Date:       d.Date,
		Records:    append([]model.SummaryRecord{}, d.Records...),
		Aggregated: append([]model.AggregatedRecord{}, d.Aggregated...),
	}
	if d.DaySummary != nil {
		s := *d.DaySummary
		out.DaySummary = &s
	}
	return out
}
