package main

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"

	"github.com/eprvstd/rvdata/pkg/rvf"
)

type segmentJSON struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	HeaderSize  uint64 `json:"header_size"`
	PayloadSize uint64 `json:"payload_size"`
	PayloadOff  uint64 `json:"payload_offset"`
}

type fileJSON struct {
	Path     string        `json:"path"`
	Version  string        `json:"version"`
	FileSize uint64        `json:"file_size"`
	Segments []segmentJSON `json:"segments"`
}

func inspectCmd() *cli.Command {
	var asJSON bool

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Dump the segment directory of a file",
		ArgsUsage: "<file.rvf>",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "emit machine-readable output",
				Destination: &asJSON,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				return fmt.Errorf("inspect needs a file path")
			}
			path := cmd.Args().Get(0)

			f, err := rvf.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			if asJSON {
				return printJSON(path, f)
			}
			printDirectory(path, f)
			return nil
		},
	}
}

func printJSON(path string, f *rvf.File) error {
	out := fileJSON{
		Path:     path,
		Version:  fmt.Sprintf("%d.%d", f.Header.Major, f.Header.Minor),
		FileSize: f.Header.FileSize,
	}
	for _, seg := range f.Segments {
		out.Segments = append(out.Segments, segmentJSON{
			Name:        seg.Name,
			Kind:        seg.Kind.String(),
			HeaderSize:  seg.HeaderSize,
			PayloadSize: seg.PayloadSize,
			PayloadOff:  seg.PayloadOff,
		})
	}
	buf, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(buf))
	return err
}

func printDirectory(path string, f *rvf.File) {
	fmt.Printf("%s: rvf %d.%d, %d bytes, %d segments\n\n",
		path, f.Header.Major, f.Header.Minor, f.Header.FileSize, len(f.Segments))

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Name", "Kind", "Header", "Payload", "Offset"})
	for i, seg := range f.Segments {
		t.AppendRow(table.Row{i, seg.Name, seg.Kind.String(), seg.HeaderSize, seg.PayloadSize, seg.PayloadOff})
	}
	t.Render()
}
