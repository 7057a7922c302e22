package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"github.com/spf13/afero"
)

// ErrClosed is returned when a read session is requested from a closed pool.
var ErrClosed = errors.New("archive: reader pool closed")

// ErrNoEntry is returned when an archive has no entry under the requested
// path.
var ErrNoEntry = errors.New("archive: entry not found")

// readerHandle is one independent read session over the backing archive: its
// own file descriptor and central-directory view, so concurrent extractions
// never share a file offset.
type readerHandle struct {
	file    afero.File
	zr      *zip.Reader
	entries map[string]*zip.File
}

// extract reads and decompresses one entry. The CRC recorded in the entry
// header is verified as a side effect of reading to EOF.
func (h *readerHandle) extract(name string) ([]byte, error) {
	zf, ok := h.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEntry, name)
	}

	rc, err := zf.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open entry %s: %w", name, err)
	}

	data, err := io.ReadAll(rc)
	if cerr := rc.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entry %s: %w", name, err)
	}

	return data, nil
}

// ReaderPool owns a fixed set of archive read sessions. Acquire borrows one
// for a single extraction and Release returns it; the pool never grows, and
// a session is never held by two extractions at once.
type ReaderPool struct {
	mu      sync.Mutex
	closed  bool
	handles chan *readerHandle
	names   []string
	size    int
}

// NewReaderPool opens up to size independent sessions against the archive at
// path. Opening fewer sessions than requested shrinks the pool; opening none
// is a construction error and the pool is unusable. A nil fs selects the
// operating-system filesystem.
func NewReaderPool(fs afero.Fs, path string, size int) (*ReaderPool, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if size <= 0 {
		size = 1
	}

	handles := make(chan *readerHandle, size)
	opened := 0
	var names []string
	var lastErr error

	for range size {
		h, err := openHandle(fs, path)
		if err != nil {
			lastErr = err
			continue
		}
		if names == nil {
			names = make([]string, 0, len(h.zr.File))
			for _, zf := range h.zr.File {
				names = append(names, zf.Name)
			}
		}
		handles <- h
		opened++
	}

	if opened == 0 {
		return nil, fmt.Errorf("failed to open any read session for %s: %w", path, lastErr)
	}

	return &ReaderPool{handles: handles, names: names, size: opened}, nil
}

func openHandle(fs afero.Fs, path string) (*readerHandle, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to stat archive: %w", err), f.Close())
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, errors.Join(fmt.Errorf("failed to read archive directory: %w", err), f.Close())
	}

	zr.RegisterDecompressor(zstdZipMethod, zstdDecompressor)

	entries := make(map[string]*zip.File, len(zr.File))
	for _, zf := range zr.File {
		entries[zf.Name] = zf
	}

	return &readerHandle{file: f, zr: zr, entries: entries}, nil
}

func zstdDecompressor(r io.Reader) io.ReadCloser {
	zd, err := zstd.NewReader(r, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return errReadCloser{err: err}
	}
	return zd.IOReadCloser()
}

type errReadCloser struct{ err error }

func (e errReadCloser) Read([]byte) (int, error) { return 0, e.err }
func (e errReadCloser) Close() error             { return nil }

// Size reports how many sessions the pool owns.
func (p *ReaderPool) Size() int {
	return p.size
}

// Entries lists the archive's entry names in central-directory order.
func (p *ReaderPool) Entries() []string {
	out := make([]string, len(p.names))
	copy(out, p.names)
	return out
}

// Acquire borrows a session, blocking until one is released or ctx is done.
func (p *ReaderPool) Acquire(ctx context.Context) (*readerHandle, error) {
	select {
	case h := <-p.handles:
		if h == nil {
			return nil, ErrClosed
		}
		return h, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a borrowed session. After Close, the session is closed
// instead of being pooled again.
func (p *ReaderPool) Release(h *readerHandle) {
	if h == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		h.file.Close()
		return
	}
	p.handles <- h
}

// Close closes every pooled session. Sessions still checked out are closed
// when they come back through Release. Close is idempotent.
func (p *ReaderPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	close(p.handles)

	var errs error
	for h := range p.handles {
		errs = errors.Join(errs, h.file.Close())
	}
	return errs
}
