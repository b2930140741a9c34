package adapter

import (
	"context"

	"cloud.google.com/go/bigquery"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/option"
)

// RecordSink receives every persisted record for analytics.
type RecordSink interface {
	Put(ctx context.Context, records ...*model.SummaryRecord) error
}

// BigQuerySink streams records into a BigQuery table. The table schema is inferred from
// model.SummaryRecord when the table does not exist yet.
type BigQuerySink struct {
	client *bigquery.Client
	table  *bigquery.Table
}

func NewBigQuerySink(ctx context.Context, projectID, datasetID, tableID string, opts ...option.ClientOption) (*BigQuerySink, error) {
	client, err := bigquery.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create BigQuery client", goerr.V("project", projectID))
	}

	return &BigQuerySink{
		client: client,
		table:  client.Dataset(datasetID).Table(tableID),
	}, nil
}

// EnsureTable creates the table with the inferred schema if it is missing.
func (x *BigQuerySink) EnsureTable(ctx context.Context) error {
	if _, err := x.table.Metadata(ctx); err == nil {
		return nil
	}

	schema, err := bigquery.InferSchema(model.SummaryRecord{})
	if err != nil {
		return goerr.Wrap(err, "failed to infer schema")
	}
	if err := x.table.Create(ctx, &bigquery.TableMetadata{Schema: schema}); err != nil {
		return goerr.Wrap(err, "failed to create table",
			goerr.V("dataset", x.table.DatasetID),
			goerr.V("table", x.table.TableID))
	}
	return nil
}

func (x *BigQuerySink) Put(ctx context.Context, records ...*model.SummaryRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := x.table.Inserter().Put(ctx, records); err != nil {
		return goerr.Wrap(err, "failed to insert records",
			goerr.V("dataset", x.table.DatasetID),
			goerr.V("table", x.table.TableID),
			goerr.V("count", len(records)))
	}
	return nil
}

func (x *BigQuerySink) Close() error {
	return x.client.Close()
}
