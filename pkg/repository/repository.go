package repository

import (
	"context"
	"time"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// Repository persists one DailySummary per calendar day.
type Repository interface {
	// GetDaily returns the day's summary, or an empty one when nothing was stored for
	// date. A missing day is not an error.
	GetDaily(ctx context.Context, date string) (*model.DailySummary, error)

	// PutDaily replaces the stored summary of daily.Date.
	PutDaily(ctx context.Context, daily *model.DailySummary) error
}

// ErrInvalidDate is returned for partition keys that are not YYYY-MM-DD.
var ErrInvalidDate = goerr.New("invalid date")

func validateDate(date string) error {
	if _, err := time.Parse(model.DateLayout, date); err != nil {
		return goerr.Wrap(ErrInvalidDate, "date must be YYYY-MM-DD", goerr.V("date", date))
	}
	return nil
}
