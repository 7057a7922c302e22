package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
)

// ExtractorOptions configures an Extractor. Zero values select the
// documented defaults.
type ExtractorOptions struct {
	// Handles is the reader-pool size. Zero means one session per
	// executor worker.
	Handles int
	// CacheLimit bounds the extraction cache in bytes. Zero selects
	// DefaultCacheLimit; a negative value disables caching.
	CacheLimit int64
	// CachePacking turns on LZ4 packing of large cached entries, trading
	// hit-path CPU for cache density.
	CachePacking bool
}

// Extractor schedules concurrent entry extraction over a ReaderPool with a
// byte cache in front. Cache hits resolve immediately; misses run on the
// executor, borrow a read session, and populate the cache on the way out.
type Extractor struct {
	logger  *zap.Logger
	pool    *executor.Pool
	ownPool bool
	readers *ReaderPool
	cache   *Cache
}

// NewExtractor opens the archive at path for concurrent extraction. A nil
// pool makes the extractor own a pool sized to the host, closed by Close; a
// shared pool stays the caller's to close. A nil logger disables logging.
func NewExtractor(logger *zap.Logger, pool *executor.Pool, fs afero.Fs, path string, opts ExtractorOptions) (*Extractor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	ownPool := false
	if pool == nil {
		pool = executor.NewPool(0)
		ownPool = true
	}

	handles := opts.Handles
	if handles <= 0 {
		handles = pool.Workers()
	}

	readers, err := NewReaderPool(fs, path, handles)
	if err != nil {
		if ownPool {
			pool.Close()
		}
		return nil, fmt.Errorf("failed to create reader pool: %w", err)
	}

	return &Extractor{
		logger:  logger,
		pool:    pool,
		ownPool: ownPool,
		readers: readers,
		cache:   NewCache(opts.CacheLimit, opts.CachePacking),
	}, nil
}

// Entries lists the archive's entry names in central-directory order.
func (e *Extractor) Entries() []string {
	return e.readers.Entries()
}

// Cache exposes the extraction cache for stats and manual invalidation.
func (e *Extractor) Cache() *Cache {
	return e.cache
}

// ExtractAsync resolves the bytes of one entry. A cache hit returns an
// already-resolved future without touching the executor; a miss runs on a
// worker. ctx bounds waiting (queue and session acquisition), not work
// already running.
func (e *Extractor) ExtractAsync(ctx context.Context, path string) *executor.Future[[]byte] {
	if data, ok := e.cache.Get(path); ok {
		return executor.Resolved(data, nil)
	}

	return executor.Submit(e.pool, func() ([]byte, error) {
		return e.extract(ctx, path)
	})
}

func (e *Extractor) extract(ctx context.Context, path string) ([]byte, error) {
	handle, err := e.readers.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire read session: %w", err)
	}
	defer e.readers.Release(handle)

	data, err := handle.extract(path)
	if err != nil {
		return nil, err
	}

	e.cache.Put(path, data)
	return data, nil
}

// ExtractMany resolves every path concurrently. One path's failure does not
// cancel its siblings: each failure is logged and the path is simply absent
// from the result. The returned error is non-nil only when every path
// failed.
func (e *Extractor) ExtractMany(ctx context.Context, paths []string) (map[string][]byte, error) {
	futures := make([]*executor.Future[[]byte], len(paths))
	for i, path := range paths {
		futures[i] = e.ExtractAsync(ctx, path)
	}

	results := make(map[string][]byte, len(paths))
	var errs error
	for i, future := range futures {
		data, err := future.Wait(ctx)
		if err != nil {
			e.logger.Warn("extraction failed",
				zap.String("entry", paths[i]),
				zap.Error(err),
			)
			errs = errors.Join(errs, &EntryError{Name: paths[i], Err: err})
			continue
		}
		results[paths[i]] = data
	}

	if len(results) == 0 && len(paths) > 0 {
		return nil, fmt.Errorf("failed to extract all %d entries: %w", len(paths), errs)
	}
	return results, nil
}

// Each extracts every path and invokes fn once per completion, on whichever
// worker finished it — completion order, not submission order. Cache hits
// run the callback inline. Each returns after every callback has run.
func (e *Extractor) Each(ctx context.Context, paths []string, fn func(path string, data []byte, err error)) {
	type pending struct {
		path   string
		future *executor.Future[struct{}]
	}

	waits := make([]pending, 0, len(paths))
	for _, path := range paths {
		if data, ok := e.cache.Get(path); ok {
			fn(path, data, nil)
			continue
		}

		future := executor.Submit(e.pool, func() (struct{}, error) {
			data, err := e.extract(ctx, path)
			fn(path, data, err)
			return struct{}{}, nil
		})
		waits = append(waits, pending{path: path, future: future})
	}

	for _, w := range waits {
		if _, err := w.future.Wait(context.Background()); err != nil {
			// The closure never ran (closed pool) or died mid-flight
			// (panic); the callback is still owed its invocation.
			fn(w.path, nil, err)
		}
	}
}

// Close releases the extractor's own executor pool when it owns one, then
// closes the read sessions and clears the cache. With a shared pool the
// caller drains it first so no extraction is left in flight.
func (e *Extractor) Close() error {
	var errs error
	if e.ownPool {
		errs = errors.Join(errs, e.pool.Close())
	}
	errs = errors.Join(errs, e.readers.Close())
	e.cache.Clear()
	return errs
}
