package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/eprvstd/rvdata/internal/instruments"
	_ "github.com/eprvstd/rvdata/internal/instruments/harps"
	_ "github.com/eprvstd/rvdata/internal/instruments/harpsn"
	_ "github.com/eprvstd/rvdata/internal/instruments/neid"
	"github.com/eprvstd/rvdata/internal/logger"
	"github.com/eprvstd/rvdata/internal/version"
	"github.com/eprvstd/rvdata/pkg/level2"
)

func convertCmd() *cli.Command {
	var instrument string

	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a raw instrument product to the standard Level 2 format",
		ArgsUsage: "<in.rvf> <out.rvf>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "instrument",
				Aliases:     []string{"i"},
				Usage:       "instrument name (" + strings.Join(instruments.Names(), ", ") + ")",
				Required:    true,
				Destination: &instrument,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 2 {
				return fmt.Errorf("convert needs an input and an output path")
			}
			in, out := cmd.Args().Get(0), cmd.Args().Get(1)
			log := logger.FromContext(ctx)

			convert, err := instruments.ForName(instrument)
			if err != nil {
				return err
			}
			c, err := convert(in, nil, log)
			if err != nil {
				return err
			}
			if hdr, ok := c.Header(level2.ExtNamePrimary); ok {
				hdr.Set("PIPELINE", version.String(), "Conversion pipeline version")
			}
			if err := level2.WriteContainer(c, out); err != nil {
				return err
			}
			log.Info("wrote standard product", "path", out, "extensions", len(c.Extensions()))
			return nil
		},
	}
}
