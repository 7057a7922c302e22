package fastexcel

import (
	"context"
	"encoding/xml"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/wuxianggujun/FastExcel-sub003/internal/archive"
	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
	"github.com/wuxianggujun/FastExcel-sub003/internal/opc"
)

// Package is an opened .xlsx container ready for concurrent part extraction.
type Package struct {
	logger    logr.Logger
	pool      *executor.Pool
	extractor *archive.Extractor
}

// OpenFile opens the package at path with a pool of independent read
// sessions and an extraction cache. Close releases everything.
func OpenFile(path string, opts ...Option) (*Package, error) {
	o := buildOptions(opts)

	pool := executor.NewPool(o.threads)
	extractor, err := archive.NewExtractor(nil, pool, o.fs, path, archive.ExtractorOptions{
		Handles:    o.handles,
		CacheLimit: o.cache,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open package %s: %w", path, err)
	}

	return &Package{logger: o.logger, pool: pool, extractor: extractor}, nil
}

// Parts lists the package's part names in container order.
func (p *Package) Parts() []string {
	return p.extractor.Entries()
}

// Part extracts one part's bytes. Repeated reads of the same part are served
// from the cache.
func (p *Package) Part(ctx context.Context, name string) ([]byte, error) {
	return p.extractor.ExtractAsync(ctx, name).Wait(ctx)
}

// PartsContent extracts the named parts concurrently. Failed parts are
// absent from the result; an error is returned only when every part failed.
func (p *Package) PartsContent(ctx context.Context, names []string) (map[string][]byte, error) {
	return p.extractor.ExtractMany(ctx, names)
}

// SheetNames parses the workbook part and returns the sheet names in
// workbook order.
func (p *Package) SheetNames(ctx context.Context) ([]string, error) {
	data, err := p.Part(ctx, opc.WorkbookName)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook part: %w", err)
	}

	var doc struct {
		Sheets []struct {
			Name string `xml:"name,attr"`
		} `xml:"sheets>sheet"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse workbook part: %w", err)
	}

	names := make([]string, len(doc.Sheets))
	for i, sheet := range doc.Sheets {
		names[i] = sheet.Name
	}
	return names, nil
}

// CacheStats reports extraction-cache effectiveness for this package.
func (p *Package) CacheStats() archive.CacheStats {
	return p.extractor.Cache().Stats()
}

// Close drains in-flight extractions and releases the read sessions.
func (p *Package) Close() error {
	perr := p.pool.Close()
	if err := p.extractor.Close(); err != nil {
		return err
	}
	return perr
}
