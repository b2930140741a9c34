package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/m-mizutani/glimpse/pkg/usecase/retrieve"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func parseRange(name string, n int64) (retrieve.TimeRange, error) {
	switch strings.ToLower(name) {
	case "recent":
		if n <= 0 {
			n = 10
		}
		return retrieve.Recent(int(n)), nil
	case "today":
		return retrieve.Today(), nil
	case "days":
		if n <= 0 {
			n = 3
		}
		return retrieve.Days(int(n)), nil
	default:
		return retrieve.TimeRange{}, goerr.New("unknown range, use recent, today or days", goerr.V("range", name))
	}
}

func searchCommand() *cli.Command {
	var (
		cfg       config
		rangeName string
		n         int64
		keywords  []string
		detail    bool
		maxChars  int64
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "range",
			Aliases:     []string{"r"},
			Usage:       "Time range: recent, today or days",
			Value:       "today",
			Destination: &rangeName,
		},
		&cli.IntFlag{
			Name:        "n",
			Usage:       "Minutes for recent, days for days",
			Destination: &n,
		},
		&cli.StringSliceFlag{
			Name:        "keyword",
			Aliases:     []string{"k"},
			Usage:       "Keyword filter (any match, case-insensitive)",
			Destination: &keywords,
		},
		&cli.BoolFlag{
			Name:        "detail",
			Usage:       "Include detailed screen descriptions",
			Destination: &detail,
		},
		&cli.IntFlag{
			Name:        "max-chars",
			Usage:       "Output budget in characters (defaults to storage.max_context_chars)",
			Destination: &maxChars,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "search",
		Usage: "Search recorded activity and print a digest",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			tr, err := parseRange(rangeName, n)
			if err != nil {
				return err
			}

			ctx, rt, err := cfg.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			result, err := rt.retriever.Search(ctx, &retrieve.Query{
				Range:         tr,
				Keywords:      keywords,
				IncludeDetail: detail,
			})
			if err != nil {
				return goerr.Wrap(err, "failed to search history")
			}

			budget := int(maxChars)
			if budget <= 0 {
				budget = rt.conf.Storage.MaxContextChars
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", result.BuildContext(budget, detail))
			return nil
		},
	}
}
