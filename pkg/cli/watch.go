package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/glimpse/pkg/usecase/capture"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// newPipeline wires one capture pipeline against the given display.
func (cfg *config) newPipeline(ctx context.Context, rt *runtime, capCfg model.CaptureConfig, display int64, events *adapter.StreamEmitter) (*capture.Pipeline, error) {
	analyzer, err := adapter.NewAnalyzer(ctx, rt.conf.Model)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create analyzer")
	}

	artifacts, err := cfg.newArtifacts(ctx, rt)
	if err != nil {
		return nil, err
	}

	gate, err := cfg.newGate(ctx, rt)
	if err != nil {
		return nil, err
	}

	opts := []capture.Option{
		capture.WithArtifacts(artifacts),
		capture.WithEmitter(events),
		capture.WithCatalog(rt.catalog),
	}

	sink, err := cfg.newSink(ctx, rt)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create record export")
	}
	if sink != nil {
		opts = append(opts, capture.WithSink(sink))
	}

	return capture.NewPipeline(
		adapter.NewScreen(int(display)),
		analyzer,
		rt.store,
		rt.retriever,
		gate,
		capCfg,
		opts...,
	), nil
}

func watchCommand() *cli.Command {
	var (
		cfg      config
		interval time.Duration
		duration time.Duration
		display  int64
	)

	flags := []cli.Flag{
		&cli.DurationFlag{
			Name:        "interval",
			Aliases:     []string{"i"},
			Usage:       "Sampling interval (overrides capture.interval_ms)",
			Sources:     cli.EnvVars("GLIMPSE_WATCH_INTERVAL"),
			Destination: &interval,
		},
		&cli.DurationFlag{
			Name:        "duration",
			Usage:       "Stop after this long (0 runs until interrupted)",
			Destination: &duration,
		},
		&cli.IntFlag{
			Name:        "display",
			Usage:       "Index of the display to capture",
			Value:       0,
			Destination: &display,
		},
	}
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "watch",
		Usage: "Sample the screen periodically, record activity and raise alerts",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, rt, err := cfg.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			capCfg := rt.conf.Capture
			if !capCfg.Enabled {
				return goerr.New("capture is disabled in config", goerr.V("data_dir", cfg.dataDir))
			}
			if interval > 0 {
				capCfg.IntervalMS = interval.Milliseconds()
			}

			pipeline, err := cfg.newPipeline(ctx, rt, capCfg, display, adapter.NewStreamEmitter(c.Root().Writer))
			if err != nil {
				return err
			}

			waitCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				waitCtx, cancel = context.WithTimeout(waitCtx, duration)
				defer cancel()
			}

			sched := capture.NewScheduler()
			if err := sched.Start(ctx, pipeline, capCfg.Interval()); err != nil {
				return err
			}

			<-waitCtx.Done()
			sched.Stop()
			<-sched.Done()

			logging.From(ctx).Info("watch finished",
				"count", sched.Count(),
				"skip_count", sched.SkipCount(),
				"fail_count", sched.FailCount(),
			)
			return nil
		},
	}
}
