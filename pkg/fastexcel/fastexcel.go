// Package fastexcel is the public surface of the library: build a workbook in
// memory, save it as an .xlsx package compressed in parallel, and open an
// existing package for concurrent part extraction.
package fastexcel

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"

	"github.com/wuxianggujun/FastExcel-sub003/internal/archive"
	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
	"github.com/wuxianggujun/FastExcel-sub003/internal/sheetml"
)

// Sheet is one worksheet of a workbook under construction.
type Sheet = sheetml.Sheet

// CellRef builds an A1-style reference from 1-based column and row.
func CellRef(col, row int) string {
	return sheetml.CellRef(col, row)
}

type options struct {
	logger  logr.Logger
	fs      afero.Fs
	threads int
	level   int
	method  archive.Method
	handles int
	cache   int64
}

// Option customizes workbook construction and package opening.
type Option func(*options)

// WithLogger routes library logging to the given logr sink. The default
// discards everything.
func WithLogger(logger logr.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithFilesystem redirects all file access, typically to a memory filesystem
// in tests.
func WithFilesystem(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithThreads sets the compression and extraction worker count. The default
// is the hardware concurrency.
func WithThreads(n int) Option {
	return func(o *options) { o.threads = n }
}

// WithCompressionLevel sets the 0-9 deflate level used by SaveFile.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.level = level }
}

// WithMethod selects the compression backend used by SaveFile.
func WithMethod(m archive.Method) Option {
	return func(o *options) { o.method = m }
}

// WithReadHandles sets the number of concurrent read sessions OpenFile keeps.
// The default matches the worker count.
func WithReadHandles(n int) Option {
	return func(o *options) { o.handles = n }
}

// WithCacheLimit bounds the extraction cache in bytes for OpenFile. Negative
// disables caching.
func WithCacheLimit(limit int64) Option {
	return func(o *options) { o.cache = limit }
}

func buildOptions(opts []Option) options {
	o := options{
		logger: logr.Discard(),
		level:  archive.DefaultLevel,
		method: archive.Deflate,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Workbook is a spreadsheet under construction.
type Workbook struct {
	*sheetml.Workbook
	opts options
}

// New creates an empty workbook.
func New(opts ...Option) *Workbook {
	return &Workbook{
		Workbook: sheetml.NewWorkbook(),
		opts:     buildOptions(opts),
	}
}

// SaveFile generates the package parts and writes them as an .xlsx container
// at path, compressing parts in parallel. Chunking is disabled on this path:
// every package part must stay a single archive entry for the package to be
// readable.
func (w *Workbook) SaveFile(ctx context.Context, path string) (archive.Statistics, error) {
	parts, err := sheetml.Generate(w.Workbook, time.Now())
	if err != nil {
		return archive.Statistics{}, fmt.Errorf("failed to generate package parts: %w", err)
	}

	files := make([]archive.File, len(parts))
	for i, part := range parts {
		files[i] = archive.File{Name: part.Name, Content: part.Content}
	}

	pool := executor.NewPool(w.opts.threads)
	defer pool.Close()

	writer, err := archive.NewWriter(pool, w.opts.fs, archive.Options{
		Method:         w.opts.method,
		Level:          w.opts.level,
		ChunkThreshold: -1,
	})
	if err != nil {
		return archive.Statistics{}, err
	}

	stats, err := writer.WriteArchive(ctx, path, files)
	if err != nil {
		return stats, fmt.Errorf("failed to write package %s: %w", path, err)
	}

	w.opts.logger.V(1).Info("package written",
		"path", path,
		"entries", stats.CompletedTasks,
		"ratio", stats.CompressionRatio,
		"duration_ms", stats.TotalTimeMs(),
	)
	return stats, nil
}
