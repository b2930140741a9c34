package record_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/repository"
	"github.com/m-mizutani/glimpse/pkg/usecase/record"
	"github.com/m-mizutani/gt"
)

func newRecord(ts time.Time, summary, app string, action model.Action, keywords ...string) *model.SummaryRecord {
	return &model.SummaryRecord{
		Timestamp: model.FormatTimestamp(ts),
		Summary:   summary,
		App:       app,
		Action:    action,
		Keywords:  keywords,
	}
}

func appendN(t *testing.T, s *record.Store, start time.Time, n int) []*model.AggregatedRecord {
	t.Helper()
	ctx := context.Background()
	var aggs []*model.AggregatedRecord
	for i := 0; i < n; i++ {
		agg, err := s.Append(ctx, newRecord(start.Add(time.Duration(i)*time.Second),
			fmt.Sprintf("activity %d", i%7), "Terminal", model.ActionActive))
		gt.NoError(t, err)
		if agg != nil {
			aggs = append(aggs, agg)
		}
	}
	return aggs
}

func TestAppendTriggersAggregation(t *testing.T) {
	ctx := context.Background()
	start := time.Date(2025, 4, 1, 9, 0, 0, 0, time.UTC)

	t.Run("one batch produces one aggregate", func(t *testing.T) {
		s := record.New(repository.NewMemory())
		aggs := appendN(t, s, start, record.DefaultBatchSize)
		gt.A(t, aggs).Length(1)

		daily, err := s.LoadDaily(ctx, "2025-04-01")
		gt.NoError(t, err)
		gt.A(t, daily.Aggregated).Length(1)
		gt.V(t, daily.Aggregated[0].RecordCount).Equal(record.DefaultBatchSize)
		gt.V(t, daily.Aggregated[0].StartTime).Equal("2025-04-01T09:00:00")
		gt.V(t, daily.Aggregated[0].EndTime).Equal("2025-04-01T09:04:59")
	})

	t.Run("one fewer produces none", func(t *testing.T) {
		s := record.New(repository.NewMemory())
		aggs := appendN(t, s, start, record.DefaultBatchSize-1)
		gt.A(t, aggs).Length(0)

		daily, err := s.LoadDaily(ctx, "2025-04-01")
		gt.NoError(t, err)
		gt.A(t, daily.Aggregated).Length(0)
		gt.A(t, daily.Records).Length(record.DefaultBatchSize - 1)
	})

	t.Run("second batch covers only the most recent records", func(t *testing.T) {
		s := record.New(repository.NewMemory(), record.WithBatchSize(4))
		aggs := appendN(t, s, start, 9)
		gt.A(t, aggs).Length(2)
		gt.V(t, aggs[1].StartTime).Equal("2025-04-01T09:00:04")
		gt.V(t, aggs[1].EndTime).Equal("2025-04-01T09:00:07")
	})
}

func TestAppendPartitionsByDate(t *testing.T) {
	ctx := context.Background()
	s := record.New(repository.NewMemory())

	_, err := s.Append(ctx, newRecord(time.Date(2025, 4, 1, 23, 59, 59, 0, time.UTC), "late", "Edge", model.ActionActive))
	gt.NoError(t, err)
	_, err = s.Append(ctx, newRecord(time.Date(2025, 4, 2, 0, 0, 1, 0, time.UTC), "early", "Edge", model.ActionActive))
	gt.NoError(t, err)

	day1, err := s.ReadDay(ctx, "2025-04-01")
	gt.NoError(t, err)
	gt.A(t, day1).Length(1)
	gt.V(t, day1[0].Summary).Equal("late")

	day2, err := s.ReadDay(ctx, "2025-04-02")
	gt.NoError(t, err)
	gt.A(t, day2).Length(1)
}

func TestAppendRejectsBadTimestamp(t *testing.T) {
	s := record.New(repository.NewMemory())
	_, err := s.Append(context.Background(), &model.SummaryRecord{Timestamp: "yesterday"})
	gt.Error(t, err)
}

func TestReadDayMissing(t *testing.T) {
	s := record.New(repository.NewFile(t.TempDir()))
	records, err := s.ReadDay(context.Background(), "2020-01-01")
	gt.NoError(t, err)
	gt.A(t, records).Length(0)
}
