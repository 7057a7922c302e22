package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/afero"
	v1 "github.com/wuxianggujun/FastExcel-sub003/apis/v1"
	"github.com/wuxianggujun/FastExcel-sub003/internal/archive"
	"github.com/wuxianggujun/FastExcel-sub003/internal/sheetml"
	"github.com/wuxianggujun/FastExcel-sub003/internal/sinks"
	"github.com/wuxianggujun/FastExcel-sub003/internal/source"
)

// ISO8601Basic is the compact timestamp layout offered to job templates.
const ISO8601Basic = "20060102T150405Z"

// buildSources turns the job inputs into collectable sources, in input order.
func buildSources(fs afero.Fs, job v1.PackJob) ([]source.Source, error) {
	sources := make([]source.Source, 0, len(job.Spec.Inputs))
	for i, input := range job.Spec.Inputs {
		resolved, err := ResolveInputSpec(input)
		if err != nil {
			return nil, err
		}

		var src source.Source
		switch spec := resolved.Spec.(type) {
		case *v1.FileInput:
			src, err = source.NewFileSource(fs, spec.Glob, input.As)
		case *v1.HTTPInput:
			src, err = source.NewHTTPSource(buildHTTPConfig(input.As, spec))
		case *v1.ExecInput:
			var cfg source.ExecConfig
			cfg, err = buildExecConfig(input.As, spec)
			if err == nil {
				src, err = source.NewExecSource(cfg)
			}
		default:
			err = fmt.Errorf("unknown source kind %q", resolved.Kind)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build input %d (%s): %w", i, resolved.Kind, err)
		}

		sources = append(sources, src)
	}
	return sources, nil
}

func buildHTTPConfig(as string, spec *v1.HTTPInput) source.HTTPConfig {
	cfg := source.HTTPConfig{
		URL:     spec.URL,
		As:      as,
		Headers: spec.Headers,
	}

	if spec.Auth != nil && spec.Auth.Basic != nil {
		cfg.Auth = &source.BasicAuth{
			Username: spec.Auth.Basic.Username,
			Password: spec.Auth.Basic.Password,
		}
	}

	if spec.Timeout != nil {
		cfg.Timeout = time.Duration(*spec.Timeout) * time.Second
	}

	return cfg
}

func buildExecConfig(as string, spec *v1.ExecInput) (source.ExecConfig, error) {
	cfg := source.ExecConfig{
		Program: spec.Program,
		As:      as,
		Env:     spec.Env,
	}

	if spec.WorkingDir != nil {
		cfg.WorkingDir = *spec.WorkingDir
	}

	if spec.Timeout != nil {
		timeout, err := time.ParseDuration(*spec.Timeout)
		if err != nil {
			return source.ExecConfig{}, fmt.Errorf("failed to parse exec timeout: %w", err)
		}
		cfg.Timeout = timeout
	}

	return cfg, nil
}

// buildWorkbook constructs the in-memory workbook from the inline spec. Rows
// fill top-down from A1; nil cells leave gaps.
func buildWorkbook(spec *v1.WorkbookSpec) (*sheetml.Workbook, error) {
	wb := sheetml.NewWorkbook()
	wb.Title = spec.Title
	wb.Creator = spec.Creator

	for _, sheetSpec := range spec.Sheets {
		sheet, err := wb.AddSheet(sheetSpec.Name)
		if err != nil {
			return nil, fmt.Errorf("failed to add sheet: %w", err)
		}

		for r, row := range sheetSpec.Rows {
			for c, value := range row {
				if value == nil {
					continue
				}
				ref := sheetml.CellRef(c+1, r+1)
				if err := sheet.SetCell(ref, normalizeCellValue(value)); err != nil {
					return nil, fmt.Errorf("failed to set cell %s on sheet %q: %w", ref, sheetSpec.Name, err)
				}
			}
		}
	}

	return wb, nil
}

// normalizeCellValue maps the types YAML decoding produces onto the cell
// types the sheet model accepts. Unknown types pass through so SetCell
// reports them.
func normalizeCellValue(value any) any {
	switch v := value.(type) {
	case int64:
		return int(v)
	case uint64:
		return float64(v)
	case float32:
		return float64(v)
	default:
		return value
	}
}

// buildWriterOptions maps the compression spec onto codec options. Chunking
// defaults on for raw inputs and off when an inline workbook is present, so
// package parts stay whole entries.
func buildWriterOptions(spec v1.PackJobSpec) (archive.Options, int, error) {
	opts := archive.Options{Level: archive.DefaultLevel}
	threads := 0

	if spec.Workbook != nil {
		opts.ChunkThreshold = -1
	}

	comp := spec.Output.Compression
	if comp == nil {
		return opts, threads, nil
	}

	method, err := archive.ParseMethod(comp.Method)
	if err != nil {
		return archive.Options{}, 0, fmt.Errorf("failed to parse compression method: %w", err)
	}
	opts.Method = method

	if comp.Level != nil {
		opts.Level = *comp.Level
	}

	if comp.Chunking != nil {
		if *comp.Chunking {
			opts.ChunkThreshold = 0
		} else {
			opts.ChunkThreshold = -1
		}
	}

	threads = comp.Threads
	return opts, threads, nil
}

// buildSink creates the delivery sink from the job spec.
//
// Default behavior:
//   - No sink specified: stdout sink
//   - Explicit stdout sink: stdout sink
//   - Explicit filesystem sink: filesystem sink
//   - Explicit s3 sink: S3 sink
func buildSink(ctx context.Context, job v1.PackJob, stdout io.Writer) (sinks.Sink, error) {
	spec := job.Spec.Output.Sink
	if spec == nil || spec.Stdout != nil {
		return sinks.NewStreamSink(stdout), nil
	}

	if spec.Filesystem != nil {
		path := spec.Filesystem.Path
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get working directory: %w", err)
			}
			path = wd
		}
		return sinks.NewFilesystemSinkFromPath(path)
	}

	if spec.S3 != nil {
		return buildS3Sink(ctx, spec.S3)
	}

	return nil, fmt.Errorf("invalid sink configuration: no sink type specified")
}

func buildS3Sink(ctx context.Context, s3Spec *v1.S3SinkSpec) (sinks.Sink, error) {
	cfg := sinks.S3Config{
		Bucket:         s3Spec.Bucket,
		ForcePathStyle: s3Spec.ForcePathStyle,
	}

	if s3Spec.Region != nil {
		cfg.Region = *s3Spec.Region
	}

	if s3Spec.Endpoint != nil {
		cfg.Endpoint = *s3Spec.Endpoint
	}

	if s3Spec.Prefix != nil {
		cfg.Prefix = *s3Spec.Prefix
	}

	if s3Spec.Credentials != nil {
		cfg.AccessKeyID = s3Spec.Credentials.AccessKeyID
		cfg.SecretAccessKey = s3Spec.Credentials.SecretAccessKey
	}

	return sinks.NewS3Sink(ctx, cfg)
}

// BuildVariables creates the variables map for template expansion. It
// includes built-in variables, reads allowed environment variables, and
// applies explicit overrides last. If an allowed variable is not set, an
// error is returned.
func BuildVariables(job v1.PackJob, allowedEnv []string, overrides map[string]string) (map[string]string, error) {
	date := time.Now().UTC()
	variables := map[string]string{
		"JOB_NAME":         job.Metadata.Name,
		"JOB_DATE_ISO8601": date.Format(ISO8601Basic),
		"JOB_DATE_RFC3339": date.Format(time.RFC3339),
	}

	var errs error
	for _, envName := range allowedEnv {
		val, ok := os.LookupEnv(envName)
		if !ok {
			errs = errors.Join(errs, fmt.Errorf("environment variable %q is not set", envName))
			continue
		}
		variables[envName] = val
	}

	if errs != nil {
		return nil, errs
	}

	for k, v := range overrides {
		variables[k] = v
	}

	return variables, nil
}
