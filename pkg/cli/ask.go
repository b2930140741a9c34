package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/m-mizutani/glimpse/pkg/adapter"
	"github.com/m-mizutani/glimpse/pkg/usecase/retrieve"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const askHistoryFile = "ask_history"

// askBackground renders today's activity plus the last few minutes in detail.
func askBackground(ctx context.Context, rt *runtime) (string, error) {
	result, err := rt.retriever.Search(ctx, &retrieve.Query{
		Range:         retrieve.Today(),
		IncludeDetail: true,
	})
	if err != nil {
		return "", goerr.Wrap(err, "failed to search today's activity")
	}

	c := rt.conf.Capture
	var b strings.Builder
	b.WriteString("以下是用户今天的屏幕操作记录。\n\n")
	b.WriteString(result.BuildContext(rt.conf.Storage.MaxContextChars, true))
	b.WriteString("\n\n最近几分钟:\n")
	b.WriteString(rt.retriever.RecentContext(ctx, c.RecentSummaryLimit, c.RecentDetailLimit))
	return b.String(), nil
}

func answer(ctx context.Context, w io.Writer, rt *runtime, analyzer adapter.Analyzer, question string) error {
	background, err := askBackground(ctx, rt)
	if err != nil {
		return err
	}

	sp := newSpinner("thinking...")
	sp.Start()
	resp, err := analyzer.Chat(ctx, background, question)
	sp.Stop()
	if err != nil {
		return goerr.Wrap(err, "failed to ask analyzer")
	}

	fmt.Fprintf(w, "%s\n", strings.TrimSpace(resp))
	return nil
}

func askCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:      "ask",
		Usage:     "Ask questions about recorded activity (interactive when no question is given)",
		ArgsUsage: "[question]",
		Flags:     globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, rt, err := cfg.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			analyzer, err := adapter.NewAnalyzer(ctx, rt.conf.Model)
			if err != nil {
				return goerr.Wrap(err, "failed to create analyzer")
			}

			w := c.Root().Writer
			if c.Args().Len() > 0 {
				return answer(ctx, w, rt, analyzer, strings.Join(c.Args().Slice(), " "))
			}

			if err := os.MkdirAll(cfg.dataDir, 0755); err != nil {
				return goerr.Wrap(err, "failed to create data directory")
			}
			rl, err := readline.NewEx(&readline.Config{
				Prompt:      "> ",
				HistoryFile: filepath.Join(cfg.dataDir, askHistoryFile),
			})
			if err != nil {
				return goerr.Wrap(err, "failed to initialize readline")
			}
			defer rl.Close()

			fmt.Fprintf(w, "Ask about your screen activity. Type 'exit' to quit.\n")
			for {
				line, err := rl.Readline()
				if errors.Is(err, readline.ErrInterrupt) {
					if line == "" {
						break
					}
					continue
				}
				if errors.Is(err, io.EOF) {
					break
				}
				if err != nil {
					return goerr.Wrap(err, "failed to read input")
				}

				question := strings.TrimSpace(line)
				if question == "exit" || question == "quit" {
					break
				}
				if question == "" {
					continue
				}

				if err := answer(ctx, w, rt, analyzer, question); err != nil {
					fmt.Fprintf(w, "error: %v\n", err)
				}
			}
			return nil
		},
	}
}
