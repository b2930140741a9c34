package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func showCommand() *cli.Command {
	var (
		cfg    config
		date   string
		asJSON bool
		issues bool
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "date",
			Usage:       "Day to show (YYYY-MM-DD, defaults to today)",
			Destination: &date,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "Print the stored day as JSON",
			Destination: &asJSON,
		},
		&cli.BoolFlag{
			Name:        "issues",
			Usage:       "Only list records with a detected issue",
			Destination: &issues,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "show",
		Usage: "Show the records and aggregates of one day",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, rt, err := cfg.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			if date == "" {
				date = model.FormatDate(time.Now())
			}

			daily, err := rt.store.LoadDaily(ctx, date)
			if err != nil {
				return goerr.Wrap(err, "failed to load day", goerr.V("date", date))
			}

			w := c.Root().Writer
			if asJSON {
				data, err := json.MarshalIndent(daily, "", "  ")
				if err != nil {
					return goerr.Wrap(err, "failed to marshal day")
				}
				fmt.Fprintf(w, "%s\n", string(data))
				return nil
			}

			fmt.Fprintf(w, "%s: %d records, %d aggregates\n\n", daily.Date, len(daily.Records), len(daily.Aggregated))
			for _, agg := range daily.Aggregated {
				fmt.Fprintf(w, "[%s ~ %s] %s (%d records)\n", agg.StartTime, agg.EndTime, agg.Summary, agg.RecordCount)
				if agg.ErrorSummary != nil {
					fmt.Fprintf(w, "   Errors: %s\n", *agg.ErrorSummary)
				}
			}
			if len(daily.Aggregated) > 0 {
				fmt.Fprintf(w, "\n")
			}

			for _, rec := range daily.Records {
				if issues && !rec.HasIssue {
					continue
				}
				fmt.Fprintf(w, "%s [%s] %s\n", rec.Timestamp, rec.App, rec.Summary)
				if rec.HasIssue {
					fmt.Fprintf(w, "   Issue: %s %s (confidence %.2f)\n", rec.IssueType, rec.IssueSummary, rec.Confidence)
					if rec.Suggestion != "" {
						fmt.Fprintf(w, "   Suggestion: %s\n", rec.Suggestion)
					}
				}
			}
			return nil
		},
	}
}
