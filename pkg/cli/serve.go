package cli

import (
	"context"

	"github.com/m-mizutani/glimpse/pkg/service/mcp"
	"github.com/urfave/cli/v3"
)

func serveMCPCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "serve-mcp",
		Usage: "Serve the activity history as MCP tools over stdio",
		Flags: globalFlags(&cfg),
		Action: func(ctx context.Context, c *cli.Command) error {
			ctx, rt, err := cfg.open(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()

			return mcp.NewServer(rt.retriever, rt.conf.Storage.MaxContextChars, mcp.WithVersion(version)).Run(ctx)
		},
	}
}
