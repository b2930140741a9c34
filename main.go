package main

import (
	"context"
	"fmt"
	"os"

	"github.com/m-mizutani/glimpse/pkg/cli"
)

func main() {
	ctx := context.Background()
	if err := cli.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err.Message)
		os.Exit(err.Code)
	}
}
