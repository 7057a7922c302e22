package runner

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
	"github.com/spf13/afero"
	v1 "github.com/wuxianggujun/FastExcel-sub003/apis/v1"
	"github.com/wuxianggujun/FastExcel-sub003/internal/archive"
	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
	"github.com/wuxianggujun/FastExcel-sub003/internal/sheetml"
	"github.com/wuxianggujun/FastExcel-sub003/internal/sinks"
	"github.com/wuxianggujun/FastExcel-sub003/internal/source"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Runner executes one pack job: collect the inputs, generate the optional
// inline workbook, compress everything into an archive, and deliver it to
// the configured sink.
type Runner struct {
	logger     *zap.Logger
	job        v1.PackJob
	fs         afero.Fs
	stdout     io.Writer
	sources    []source.Source
	sink       sinks.Sink
	writerOpts archive.Options
	threads    int
	failFast   bool
}

var defaultValidator = validator.New(validator.WithRequiredStructEnabled())

// ParsePackJob parses a YAML or JSON job document and validates it against
// the v1.PackJob struct rules. It returns a validated PackJob or an error if
// parsing or validation fails.
func ParsePackJob(data []byte) (v1.PackJob, error) {
	var job v1.PackJob
	if err := yaml.Unmarshal(data, &job); err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to unmarshal job data: %w", err)
	}

	if err := defaultValidator.Struct(job); err != nil {
		return v1.PackJob{}, fmt.Errorf("failed to validate job: %w", err)
	}

	return job, nil
}

// Option customizes a Runner, typically in tests.
type Option func(*Runner)

// WithFilesystem replaces the filesystem file inputs read from.
func WithFilesystem(fs afero.Fs) Option {
	return func(r *Runner) {
		r.fs = fs
	}
}

// WithStdout replaces the writer the default stdout sink streams to.
func WithStdout(w io.Writer) Option {
	return func(r *Runner) {
		r.stdout = w
	}
}

// WithSink replaces the sink resolved from the job spec.
func WithSink(sink sinks.Sink) Option {
	return func(r *Runner) {
		r.sink = sink
	}
}

func New(ctx context.Context, logger *zap.Logger, job v1.PackJob, opts ...Option) (*Runner, error) {
	logger.Info("creating runner", zap.String("job_name", job.Metadata.Name))

	r := &Runner{
		logger:   logger,
		job:      job,
		fs:       afero.NewOsFs(),
		stdout:   os.Stdout,
		failFast: job.Spec.FailFast == nil || *job.Spec.FailFast,
	}
	for _, opt := range opts {
		opt(r)
	}

	sources, err := buildSources(r.fs, job)
	if err != nil {
		return nil, fmt.Errorf("failed to build sources: %w", err)
	}
	r.sources = sources

	writerOpts, threads, err := buildWriterOptions(job.Spec)
	if err != nil {
		return nil, fmt.Errorf("failed to build codec options: %w", err)
	}
	r.writerOpts = writerOpts
	r.threads = threads

	if r.sink == nil {
		sink, err := buildSink(ctx, job, r.stdout)
		if err != nil {
			return nil, fmt.Errorf("failed to build sink: %w", err)
		}
		r.sink = sink
	}

	return r, nil
}

func (r *Runner) Run(ctx context.Context) error {
	items, err := r.collect(ctx)
	if err != nil {
		return fmt.Errorf("failed to collect inputs: %w", err)
	}

	files := make([]archive.File, 0, len(items))

	if r.job.Spec.Workbook != nil {
		parts, err := r.generateWorkbook()
		if err != nil {
			return fmt.Errorf("failed to generate workbook: %w", err)
		}
		files = append(files, parts...)
	}

	for _, item := range items {
		files = append(files, archive.File{Name: item.Name, Content: item.Content})
	}

	if len(files) == 0 {
		return fmt.Errorf("job %q produced no archive entries", r.job.Metadata.Name)
	}

	data, stats, err := r.pack(ctx, files)
	if err != nil {
		return fmt.Errorf("failed to pack archive: %w", err)
	}

	r.logger.Info("archive packed",
		zap.String("path", r.job.Spec.Output.Path),
		zap.Int("entries", len(files)),
		zap.Int("threads", stats.ThreadCount),
		zap.Uint64("uncompressed_bytes", stats.UncompressedBytes),
		zap.Uint64("compressed_bytes", stats.CompressedBytes),
		zap.Float64("compression_ratio", stats.CompressionRatio),
		zap.Float64("parallel_efficiency_pct", stats.ParallelEfficiencyPct),
		zap.Int64("total_time_ms", stats.TotalTimeMs()),
	)

	if err := r.deliver(ctx, data); err != nil {
		return fmt.Errorf("failed to deliver archive: %w", err)
	}

	return nil
}

// collect runs every source concurrently and returns the items in input
// order. With failFast the first failure cancels the remaining sources;
// otherwise failures are logged and their inputs skipped.
func (r *Runner) collect(ctx context.Context) ([]source.Item, error) {
	collected := make([][]source.Item, len(r.sources))

	group, ctx := errgroup.WithContext(ctx)
	for i, src := range r.sources {
		group.Go(func() error {
			items, err := src.Collect(ctx)
			if err != nil {
				if r.failFast {
					return fmt.Errorf("source %s: %w", src.Name(), err)
				}
				r.logger.Warn("skipping failed source", zap.String("source", src.Name()), zap.Error(err))
				return nil
			}
			collected[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var items []source.Item
	for _, batch := range collected {
		items = append(items, batch...)
	}
	return items, nil
}

func (r *Runner) generateWorkbook() ([]archive.File, error) {
	wb, err := buildWorkbook(r.job.Spec.Workbook)
	if err != nil {
		return nil, err
	}

	parts, err := sheetml.Generate(wb, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	files := make([]archive.File, len(parts))
	for i, part := range parts {
		files[i] = archive.File{Name: part.Name, Content: part.Content}
	}
	return files, nil
}

// pack compresses the files into an in-memory staging filesystem and returns
// the raw archive bytes.
func (r *Runner) pack(ctx context.Context, files []archive.File) ([]byte, archive.Statistics, error) {
	pool := executor.NewPool(r.threads)
	defer pool.Close()

	staging := afero.NewMemMapFs()
	writer, err := archive.NewWriter(pool, staging, r.writerOpts)
	if err != nil {
		return nil, archive.Statistics{}, err
	}

	stagingPath := path.Base(r.job.Spec.Output.Path)
	stats, err := writer.WriteArchive(ctx, stagingPath, files)
	if err != nil {
		return nil, stats, err
	}

	data, err := afero.ReadFile(staging, stagingPath)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to read staged archive: %w", err)
	}
	return data, stats, nil
}

func (r *Runner) deliver(ctx context.Context, data []byte) error {
	if err := r.sink.Write(ctx, r.job.Spec.Output.Path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write to sink %s: %w", r.sink.Name(), err)
	}

	if err := r.sink.Close(ctx); err != nil {
		return fmt.Errorf("failed to close sink %s: %w", r.sink.Name(), err)
	}

	return nil
}
