package archive

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
)

// Options configures a Writer. Zero values select the documented defaults.
type Options struct {
	// Method selects the compression backend for every entry. Empty means
	// Deflate.
	Method Method
	// Level is the 0-9 compression level. It is honored as given;
	// defaulting to DefaultLevel is the caller's concern so that an
	// explicit 0 stays meaningful.
	Level int
	// ChunkThreshold is the content size above which one input becomes
	// several chunk entries. Zero selects DefaultLargeFileThreshold; a
	// negative value disables chunking, which package writers rely on to
	// keep every part a single entry.
	ChunkThreshold int
	// ChunkSize bounds each chunk. Zero selects DefaultChunkSize.
	ChunkSize int
}

// Writer drives the write path: task building, parallel compression across
// the executor, then ordered single-threaded assembly.
type Writer struct {
	opts       Options
	pool       *executor.Pool
	ownPool    bool
	compressor *Compressor
	assembler  *Assembler
}

// NewWriter creates a writer compressing on pool and writing through fs. A
// nil pool makes the writer own a pool sized to the host, closed by Close; a
// shared pool stays the caller's to close. A nil fs selects the
// operating-system filesystem.
func NewWriter(pool *executor.Pool, fs afero.Fs, opts Options) (*Writer, error) {
	if opts.Level < 0 || opts.Level > 9 {
		return nil, fmt.Errorf("compression level %d out of range 0-9", opts.Level)
	}
	if opts.Method == "" {
		opts.Method = Deflate
	}
	if _, err := opts.Method.zipMethod(); err != nil {
		return nil, err
	}
	if opts.ChunkThreshold == 0 {
		opts.ChunkThreshold = DefaultLargeFileThreshold
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}

	ownPool := false
	if pool == nil {
		pool = executor.NewPool(0)
		ownPool = true
	}

	return &Writer{
		opts:       opts,
		pool:       pool,
		ownPool:    ownPool,
		compressor: NewCompressor(opts.Method),
		assembler:  NewAssembler(fs),
	}, nil
}

// WriteArchive compresses files in parallel and assembles them at path in
// input order. The call blocks until every compression task has been
// collected; assembly then runs on the calling goroutine. The returned
// statistics are populated on failure too, as far as the run got.
func (w *Writer) WriteArchive(ctx context.Context, path string, files []File) (Statistics, error) {
	start := time.Now()

	tasks := buildTasks(files, w.opts.ChunkThreshold, w.opts.ChunkSize)

	futures := make([]*executor.Future[CompressedEntry], len(tasks))
	for i, task := range tasks {
		futures[i] = executor.Submit(w.pool, func() (CompressedEntry, error) {
			return w.compressor.Compress(task, w.opts.Level), nil
		})
	}

	stats := Statistics{ThreadCount: w.pool.Workers()}
	entries := make([]CompressedEntry, len(tasks))
	var firstErr error

	// Gather by original task index, not completion order: the archive must
	// list entries exactly as the inputs were given.
	for i, future := range futures {
		entry, err := future.Wait(ctx)
		if err != nil {
			entry = CompressedEntry{Filename: tasks[i].Filename, Err: err}
		}
		entries[i] = entry

		if entry.Err != nil {
			stats.FailedTasks++
			if firstErr == nil {
				firstErr = &EntryError{Name: entry.Filename, Err: entry.Err}
			}
			continue
		}
		stats.CompletedTasks++
		stats.UncompressedBytes += entry.UncompressedSize
		stats.CompressedBytes += entry.CompressedSize
	}

	taskSizes := lo.Map(tasks, func(t CompressionTask, _ int) int { return len(t.Content) })
	stats.ParallelEfficiencyPct = 100 * parallelEfficiency(taskSizes, stats.ThreadCount)
	if stats.UncompressedBytes > 0 {
		stats.CompressionRatio = float64(stats.CompressedBytes) / float64(stats.UncompressedBytes)
	}

	if firstErr != nil {
		stats.TotalTime = time.Since(start)
		return stats, fmt.Errorf("failed to compress archive %s: %w", path, firstErr)
	}

	err := w.assembler.Write(path, entries)
	stats.TotalTime = time.Since(start)
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// Close releases the writer's own executor pool, when it owns one. Writers
// sharing a caller-provided pool leave it untouched.
func (w *Writer) Close() error {
	if w.ownPool {
		return w.pool.Close()
	}
	return nil
}
