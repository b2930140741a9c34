package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func profileName(c *cli.Command) (string, error) {
	if c.Args().Len() != 1 {
		return "", goerr.New("exactly one profile name is required")
	}
	return c.Args().First(), nil
}

func profileCommand() *cli.Command {
	var cfg config

	return &cli.Command{
		Name:  "profile",
		Usage: "Manage named configuration profiles",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List saved profiles",
				Flags: globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					names, err := cfg.settings().ListProfiles()
					if err != nil {
						return err
					}
					if len(names) == 0 {
						fmt.Fprintf(c.Root().Writer, "No profiles found\n")
						return nil
					}
					for _, name := range names {
						fmt.Fprintf(c.Root().Writer, "%s\n", name)
					}
					return nil
				},
			},
			{
				Name:      "save",
				Usage:     "Save the current config.json as a profile",
				ArgsUsage: "<name>",
				Flags:     globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					name, err := profileName(c)
					if err != nil {
						return err
					}
					m := cfg.settings()
					// environment overrides are not persisted
					conf, _, err := m.LoadConfigFile()
					if err != nil {
						return err
					}
					if err := m.SaveProfile(name, conf); err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "Profile %s saved\n", name)
					return nil
				},
			},
			{
				Name:      "load",
				Usage:     "Print a profile",
				ArgsUsage: "<name>",
				Flags:     globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					name, err := profileName(c)
					if err != nil {
						return err
					}
					conf, err := cfg.settings().LoadProfile(name)
					if err != nil {
						return err
					}
					data, err := json.MarshalIndent(masked(conf), "", "  ")
					if err != nil {
						return goerr.Wrap(err, "failed to marshal profile")
					}
					fmt.Fprintf(c.Root().Writer, "%s\n", string(data))
					return nil
				},
			},
			{
				Name:      "delete",
				Usage:     "Delete a profile",
				ArgsUsage: "<name>",
				Flags:     globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					name, err := profileName(c)
					if err != nil {
						return err
					}
					if err := cfg.settings().DeleteProfile(name); err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "Profile %s deleted\n", name)
					return nil
				},
			},
			{
				Name:      "apply",
				Usage:     "Replace config.json with a profile",
				ArgsUsage: "<name>",
				Flags:     globalFlags(&cfg),
				Action: func(ctx context.Context, c *cli.Command) error {
					name, err := profileName(c)
					if err != nil {
						return err
					}
					if _, err := cfg.settings().ApplyProfile(name); err != nil {
						return err
					}
					fmt.Fprintf(c.Root().Writer, "Profile %s applied\n", name)
					return nil
				},
			},
		},
	}
}
