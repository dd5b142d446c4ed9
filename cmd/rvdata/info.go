package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/eprvstd/rvdata/internal/logger"
	"github.com/eprvstd/rvdata/pkg/level2"
)

func infoCmd() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "Summarize the extensions of a standard Level 2 product",
		ArgsUsage: "<file.rvf>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("info needs a file path")
			}
			c, err := level2.ReadContainer(cmd.Args().Get(0), nil, logger.FromContext(ctx))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(os.Stdout, c.Info())
			return err
		},
	}
}
