package archive

import (
	"errors"
	"fmt"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
)

// EntryError reports which archive entry a failure belongs to.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %s: %v", e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

// Assembler writes compressed entries into a ZIP container. It runs strictly
// single-threaded after the worker stage: entries arrive already compressed
// with their CRC and sizes, and are written raw so the archive library never
// recompresses anything.
type Assembler struct {
	fs afero.Fs
}

// NewAssembler creates an assembler writing through fs. A nil fs selects the
// operating-system filesystem.
func NewAssembler(fs afero.Fs) *Assembler {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Assembler{fs: fs}
}

// Write creates the archive at path from entries, in input order. It fails
// fast on any entry carrying a compression error, before the file is
// created. The file handle is closed on every exit path, and on failure the
// partial output is removed.
func (a *Assembler) Write(path string, entries []CompressedEntry) (err error) {
	for i := range entries {
		if entries[i].Err != nil {
			return fmt.Errorf("refusing to assemble %s: %w", path, &EntryError{
				Name: entries[i].Filename,
				Err:  entries[i].Err,
			})
		}
	}

	f, err := a.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive %s: %w", path, err)
	}
	defer func() {
		err = errors.Join(err, f.Close())
		if err != nil {
			// A failed write must not leave a truncated container behind.
			a.fs.Remove(path)
		}
	}()

	zw := zip.NewWriter(f)
	modified := time.Now()

	for i := range entries {
		if err = writeRawEntry(zw, &entries[i], modified); err != nil {
			err = errors.Join(err, zw.Close())
			return err
		}
	}

	if err = zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive %s: %w", path, err)
	}

	return nil
}

// writeRawEntry writes one entry header with the precomputed CRC and sizes,
// then the already-compressed payload.
func writeRawEntry(zw *zip.Writer, entry *CompressedEntry, modified time.Time) error {
	id, err := entry.Method.zipMethod()
	if err != nil {
		return &EntryError{Name: entry.Filename, Err: err}
	}

	header := &zip.FileHeader{
		Name:               entry.Filename,
		Method:             id,
		Modified:           modified,
		CRC32:              entry.CRC32,
		CompressedSize64:   entry.CompressedSize,
		UncompressedSize64: entry.UncompressedSize,
	}

	w, err := zw.CreateRaw(header)
	if err != nil {
		return &EntryError{Name: entry.Filename, Err: fmt.Errorf("failed to create entry: %w", err)}
	}

	if _, err := w.Write(entry.Compressed); err != nil {
		return &EntryError{Name: entry.Filename, Err: fmt.Errorf("failed to write payload: %w", err)}
	}

	return nil
}
