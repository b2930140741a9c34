package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/glimpse/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

// masked returns a copy of conf safe to print.
func masked(conf *model.Config) *model.Config {
	out := *conf
	if key := out.Model.API.APIKey; key != "" {
		if len(key) > 8 {
			out.Model.API.APIKey = key[:4] + "****"
		} else {
			out.Model.API.APIKey = "****"
		}
	}
	return &out
}

func configCommand() *cli.Command {
	var (
		cfg   config
		force bool
	)

	return &cli.Command{
		Name:  "config",
		Usage: "Inspect or initialize config.json",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the effective configuration (config.json or profile plus environment)",
				Flags: globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					conf, err := cfg.loadConfig()
					if err != nil {
						return err
					}
					data, err := json.MarshalIndent(masked(conf), "", "  ")
					if err != nil {
						return goerr.Wrap(err, "failed to marshal config")
					}
					fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "Write the default config.json",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:        "force",
						Aliases:     []string{"f"},
						Usage:       "Overwrite an existing config.json",
						Destination: &force,
					},
				}, globalFlags(&cfg)...),
				Action: func(ctx context.Context, c *cli.Command) error {
					m := cfg.settings()
					_, found, err := m.LoadConfigFile()
					if err != nil && !force {
						return err
					}
					if found && !force {
						return goerr.New("config.json already exists, use --force to overwrite", goerr.V("path", m.ConfigPath()))
					}
					if err := m.SaveConfig(model.DefaultConfig()); err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "Wrote %s\n", m.ConfigPath())
					return nil
				},
			},
		},
	}
}
