package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/go-logr/zapr"
	"github.com/klauspost/compress/zip"
	"github.com/urfave/cli/v3"
	"github.com/wuxianggujun/FastExcel-sub003/internal/archive"
	"github.com/wuxianggujun/FastExcel-sub003/pkg/fastexcel"
)

type entryInfo struct {
	Name             string  `json:"name"`
	Method           string  `json:"method"`
	CompressedSize   uint64  `json:"compressedSize"`
	UncompressedSize uint64  `json:"uncompressedSize"`
	Ratio            float64 `json:"ratio"`
	CRC32            string  `json:"crc32"`
}

func compressionRatio(compressed, uncompressed uint64) float64 {
	if uncompressed == 0 {
		return 0
	}
	return float64(compressed) / float64(uncompressed)
}

var inspectCommand = &cli.Command{
	Name:  "inspect",
	Usage: "List the entries of an archive with their methods, sizes, and checksums",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print machine-readable JSON instead of a table",
		},
		&cli.BoolFlag{
			Name:  "sheets",
			Usage: "Also list the sheet names of a spreadsheet package",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to inspect",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		archivePath := command.StringArg("archive")
		if archivePath == "" {
			return fmt.Errorf("no archive provided")
		}

		reader, err := zip.OpenReader(archivePath)
		if err != nil {
			return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
		}
		defer reader.Close()

		infos := make([]entryInfo, 0, len(reader.File))
		for _, f := range reader.File {
			infos = append(infos, entryInfo{
				Name:             f.Name,
				Method:           archive.MethodName(f.Method),
				CompressedSize:   f.CompressedSize64,
				UncompressedSize: f.UncompressedSize64,
				Ratio:            compressionRatio(f.CompressedSize64, f.UncompressedSize64),
				CRC32:            fmt.Sprintf("%08x", f.CRC32),
			})
		}

		var sheets []string
		if command.Bool("sheets") {
			sheets, err = listSheets(ctx, archivePath)
			if err != nil {
				return err
			}
		}

		if command.Bool("json") {
			return printJSON(infos, sheets)
		}

		w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tMETHOD\tCOMPRESSED\tUNCOMPRESSED\tRATIO\tCRC32")
		for _, info := range infos {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.2f\t%s\n",
				info.Name, info.Method, info.CompressedSize, info.UncompressedSize, info.Ratio, info.CRC32)
		}
		if err := w.Flush(); err != nil {
			return err
		}

		for _, sheet := range sheets {
			fmt.Printf("sheet: %s\n", sheet)
		}

		return nil
	},
}

func listSheets(ctx context.Context, archivePath string) ([]string, error) {
	logger := getLogger(ctx)

	pkg, err := fastexcel.OpenFile(archivePath, fastexcel.WithLogger(zapr.NewLogger(logger.Named("package"))))
	if err != nil {
		return nil, fmt.Errorf("failed to open package %s: %w", archivePath, err)
	}
	defer pkg.Close()

	sheets, err := pkg.SheetNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet names: %w", err)
	}
	return sheets, nil
}

func printJSON(infos []entryInfo, sheets []string) error {
	out := struct {
		Entries []entryInfo `json:"entries"`
		Sheets  []string    `json:"sheets,omitempty"`
	}{Entries: infos, Sheets: sheets}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
