package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func newSpinner(suffix string) *spinner.Spinner {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = " " + suffix
	return s
}

func snapCommand() *cli.Command {
	var (
		cfg     config
		display int64
	)

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:        "display",
			Usage:       "Index of the display to capture",
			Value:       0,
			Destination: &display,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "snap",
		Usage: "Capture and analyze the screen once, then print the stored record",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, rt, err := cfg.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			pipeline, err := cfg.newPipeline(ctx, rt, rt.conf.Capture, display, adapter.NewStreamEmitter(os.Stderr))
			if err != nil {
				return err
			}

			sp := newSpinner("analyzing screen...")
			sp.Start()
			analyzed, err := pipeline.Tick(ctx)
			sp.Stop()
			if err != nil {
				return err
			}
			if !analyzed {
				return goerr.New("frame was not analyzed")
			}

			records, err := rt.store.ReadDay(ctx, model.FormatDate(time.Now()))
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return goerr.New("no record stored")
			}

			data, err := json.MarshalIndent(records[len(records)-1], "", "  ")
			if err != nil {
				return goerr.Wrap(err, "failed to marshal record")
			}
			fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
			return nil
		},
	}
}
