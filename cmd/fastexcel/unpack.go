package main

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/urfave/cli/v3"
	"github.com/wuxianggujun/FastExcel-sub003/internal/archive"
	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
	"go.uber.org/zap"
)

// chunkPattern matches entry names the writer emits when splitting oversized
// inputs, capturing the original name's stem, the part number, and the
// extension.
var chunkPattern = regexp.MustCompile(`^(.*)_part(\d+)(\.[^./]*)?$`)

var unpackCommand = &cli.Command{
	Name:  "unpack",
	Usage: "Extract every entry of an archive, reassembling chunked files",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Value:   ".",
			Usage:   "Directory to extract into",
		},
		&cli.IntFlag{
			Name:  "threads",
			Usage: "Extraction worker count (0 means the hardware concurrency)",
		},
		&cli.IntFlag{
			Name:  "handles",
			Usage: "Concurrent read sessions on the archive (0 means one per worker)",
		},
		&cli.IntFlag{
			Name:  "cache-limit",
			Usage: "Extraction cache limit in bytes (negative disables caching)",
		},
	},
	Arguments: []cli.Argument{
		&cli.StringArg{
			Name:      "archive",
			UsageText: "The archive to extract",
		},
	},
	Action: func(ctx context.Context, command *cli.Command) error {
		logger := getLogger(ctx)

		archivePath := command.StringArg("archive")
		if archivePath == "" {
			return fmt.Errorf("no archive provided")
		}

		fs := afero.NewOsFs()

		pool := executor.NewPool(int(command.Int("threads")))
		extractor, err := archive.NewExtractor(logger.Named("extract"), pool, fs, archivePath, archive.ExtractorOptions{
			Handles:    int(command.Int("handles")),
			CacheLimit: int64(command.Int("cache-limit")),
		})
		if err != nil {
			pool.Close()
			return fmt.Errorf("failed to open archive %s: %w", archivePath, err)
		}
		defer extractor.Close()
		defer pool.Close()

		entries := extractor.Entries()
		contents, err := extractor.ExtractMany(ctx, entries)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", archivePath, err)
		}

		files, err := reassembleChunks(entries, contents)
		if err != nil {
			return err
		}

		outDir := command.String("output")
		for _, name := range sortedKeys(files) {
			target, err := safeJoin(outDir, name)
			if err != nil {
				return err
			}
			if dir := filepath.Dir(target); dir != "." {
				if err := fs.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("failed to create directory %s: %w", dir, err)
				}
			}
			if err := afero.WriteFile(fs, target, files[name], 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", target, err)
			}
		}

		logger.Info("archive extracted",
			zap.String("archive", archivePath),
			zap.String("output", outDir),
			zap.Int("entries", len(entries)),
			zap.Int("files", len(files)),
		)

		return nil
	},
}

// reassembleChunks merges _partN entries back into their original files and
// passes plain entries through untouched.
func reassembleChunks(entries []string, contents map[string][]byte) (map[string][]byte, error) {
	type chunk struct {
		part int
		name string
	}
	chunked := make(map[string][]chunk)
	files := make(map[string][]byte)

	for _, name := range entries {
		m := chunkPattern.FindStringSubmatch(name)
		if m == nil {
			files[name] = contents[name]
			continue
		}

		part, err := strconv.Atoi(m[2])
		if err != nil {
			files[name] = contents[name]
			continue
		}
		original := m[1] + m[3]
		chunked[original] = append(chunked[original], chunk{part: part, name: name})
	}

	for original, chunks := range chunked {
		sort.Slice(chunks, func(i, j int) bool { return chunks[i].part < chunks[j].part })

		var data []byte
		for i, c := range chunks {
			if c.part != i {
				return nil, fmt.Errorf("archive is missing part %d of %s", i, original)
			}
			data = append(data, contents[c.name]...)
		}
		files[original] = data
	}

	return files, nil
}

func sortedKeys(m map[string][]byte) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// safeJoin joins an entry name under dir, rejecting names that would escape
// it.
func safeJoin(dir, name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("refusing to extract unsafe entry path %q", name)
	}
	return filepath.Join(dir, cleaned), nil
}
