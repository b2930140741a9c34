// Package record appends analyzed samples to their day partition and folds every full
// batch of samples into an aggregated record.
package record

import (
	"context"
	"sync"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/repository"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultBatchSize is the number of raw records folded into one aggregate.
const DefaultBatchSize = 300

type Store struct {
	repo      repository.Repository
	batchSize int

	// serializes load-modify-write of a day
	mu sync.Mutex
}

type Option func(*Store)

// WithBatchSize overrides DefaultBatchSize. Values below 1 are ignored.
func WithBatchSize(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

func New(repo repository.Repository, opts ...Option) *Store {
	s := &Store{
		repo:      repo,
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append adds rec to the day named by its timestamp. When the day's record count reaches
// an exact multiple of the batch size, the most recent batch is aggregated before the day
// is written back; that aggregate is returned, otherwise nil.
func (s *Store) Append(ctx context.Context, rec *model.SummaryRecord) (*model.AggregatedRecord, error) {
	date, err := rec.Date()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	daily, err := s.repo.GetDaily(ctx, date)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load day", goerr.V("date", date))
	}

	daily.Records = append(daily.Records, *rec)

	var agg *model.AggregatedRecord
	if n := len(daily.Records); n%s.batchSize == 0 {
		a := Aggregate(daily.Records[n-s.batchSize:])
		daily.Aggregated = append(daily.Aggregated, a)
		agg = &a

		logging.From(ctx).Debug("aggregated batch",
			"date", date,
			"records", n,
			"start", a.StartTime,
			"end", a.EndTime,
		)
	}

	if err := s.repo.PutDaily(ctx, daily); err != nil {
		return nil, goerr.Wrap(err, "failed to save day", goerr.V("date", date))
	}

	return agg, nil
}

// ReadDay returns the raw records of date in append order.
func (s *Store) ReadDay(ctx context.Context, date string) ([]model.SummaryRecord, error) {
	daily, err := s.LoadDaily(ctx, date)
	if err != nil {
		return nil, err
	}
	return daily.Records, nil
}

// LoadDaily returns both tiers of date.
func (s *Store) LoadDaily(ctx context.Context, date string) (*model.DailySummary, error) {
	daily, err := s.repo.GetDaily(ctx, date)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load day", goerr.V("date", date))
	}
	return daily, nil
}
