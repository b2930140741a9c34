package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const summariesCollection = "summaries"

// Firestore stores each day as one document in the "summaries" collection, keyed by
// date. A document is limited to 1 MiB, which bounds how much detail a day can hold.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID, databaseID string, opts ...option.ClientOption) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client",
			goerr.V("project", projectID),
			goerr.V("database", databaseID))
	}
	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) GetDaily(ctx context.Context, date string) (*model.DailySummary, error) {
	if err := validateDate(date); err != nil {
		return nil, err
	}

	snap, err := r.client.Collection(summariesCollection).Doc(date).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return model.NewDailySummary(date), nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get daily summary", goerr.V("date", date))
	}

	daily := model.NewDailySummary(date)
	if err := snap.DataTo(daily); err != nil {
		return nil, goerr.Wrap(err, "failed to decode daily summary", goerr.V("date", date))
	}
	if daily.Records == nil {
		daily.Records = []model.SummaryRecord{}
	}
	if daily.Aggregated == nil {
		daily.Aggregated = []model.AggregatedRecord{}
	}
	return daily, nil
}

func (r *Firestore) PutDaily(ctx context.Context, daily *model.DailySummary) error {
	if err := validateDate(daily.Date); err != nil {
		return err
	}

	if _, err := r.client.Collection(summariesCollection).Doc(daily.Date).Set(ctx, daily); err != nil {
		return goerr.Wrap(err, "failed to put daily summary", goerr.V("date", daily.Date))
	}
	return nil
}
