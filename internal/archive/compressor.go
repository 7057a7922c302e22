package archive

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"sync"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zstd"
)

// CompressedEntry is the result of compressing one task. Err carries the
// per-task failure; the gather stage inspects it before assembly starts.
type CompressedEntry struct {
	Filename         string
	Compressed       []byte
	CRC32            uint32
	UncompressedSize uint64
	CompressedSize   uint64
	Method           Method
	Err              error
}

// compressorState is the reusable per-worker compression context: one
// deflate stream, one zstd encoder, and one scratch buffer, all retained
// across tasks so the hot path never locks and rarely allocates.
type compressorState struct {
	fw     *flate.Writer
	level  int
	zw     *zstd.Encoder
	zlevel zstd.EncoderLevel
	buf    bytes.Buffer
}

// Compressor turns tasks into compressed entries. Safe for concurrent use:
// each call borrows private state from an internal pool, so concurrent
// workers never share a stream or a buffer.
type Compressor struct {
	method Method
	states sync.Pool
}

// NewCompressor creates a compressor for the given method. An empty method
// selects Deflate.
func NewCompressor(method Method) *Compressor {
	if method == "" {
		method = Deflate
	}
	return &Compressor{
		method: method,
		states: sync.Pool{New: func() any { return new(compressorState) }},
	}
}

// Compress compresses one task at the given level. Failures are reported on
// the returned entry, never by panicking: CRC32 and UncompressedSize are
// valid either way, Compressed is set only on success.
func (c *Compressor) Compress(task CompressionTask, level int) CompressedEntry {
	entry := CompressedEntry{
		Filename:         task.Filename,
		CRC32:            crc32.ChecksumIEEE(task.Content),
		UncompressedSize: uint64(len(task.Content)),
		Method:           c.method,
	}

	state := c.states.Get().(*compressorState)
	defer c.states.Put(state)

	compressed, err := state.compress(c.method, task.Content, level)
	if err != nil {
		entry.Err = fmt.Errorf("failed to compress: %w", err)
		return entry
	}

	entry.Compressed = compressed
	entry.CompressedSize = uint64(len(compressed))
	return entry
}

func (s *compressorState) compress(method Method, content []byte, level int) ([]byte, error) {
	switch method {
	case Store:
		return bytes.Clone(content), nil
	case Deflate:
		return s.deflate(content, level)
	case Zstd:
		return s.zstdEncode(content, level)
	default:
		return nil, &UnsupportedMethodError{Method: method}
	}
}

// deflate runs a single-shot raw deflate of content: one Write that must
// consume all input and one Close that must finish the stream. The stream is
// reinitialized only when the level changed since the last call on this
// state; otherwise it is reset, which is cheaper.
func (s *compressorState) deflate(content []byte, level int) ([]byte, error) {
	s.growScratch(len(content))

	if s.fw == nil || s.level != level {
		fw, err := flate.NewWriter(&s.buf, level)
		if err != nil {
			return nil, fmt.Errorf("failed to init deflate stream at level %d: %w", level, err)
		}
		s.fw = fw
		s.level = level
	} else {
		s.fw.Reset(&s.buf)
	}

	n, err := s.fw.Write(content)
	if err != nil {
		s.fw = nil
		return nil, fmt.Errorf("failed to write deflate stream: %w", err)
	}
	if n != len(content) {
		s.fw = nil
		return nil, fmt.Errorf("deflate stream consumed %d of %d bytes", n, len(content))
	}
	if err := s.fw.Close(); err != nil {
		s.fw = nil
		return nil, fmt.Errorf("failed to finish deflate stream: %w", err)
	}

	return bytes.Clone(s.buf.Bytes()), nil
}

func (s *compressorState) zstdEncode(content []byte, level int) ([]byte, error) {
	zlevel := zstdLevel(level)
	if s.zw == nil || s.zlevel != zlevel {
		zw, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zlevel),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to init zstd encoder: %w", err)
		}
		s.zw = zw
		s.zlevel = zlevel
	}

	return s.zw.EncodeAll(content, nil), nil
}

// growScratch resets the scratch buffer and ensures capacity for the
// worst-case deflate expansion of n input bytes. The buffer is retained on
// the state between calls, so steady-state compression does not allocate.
func (s *compressorState) growScratch(n int) {
	s.buf.Reset()
	if bound := n + n/256 + 64; s.buf.Cap() < bound {
		s.buf.Grow(bound)
	}
}

// zstdLevel buckets the 0-9 deflate scale onto zstd's named speed levels.
func zstdLevel(level int) zstd.EncoderLevel {
	switch {
	case level <= 2:
		return zstd.SpeedFastest
	case level <= 5:
		return zstd.SpeedDefault
	case level <= 7:
		return zstd.SpeedBetterCompression
	default:
		return zstd.SpeedBestCompression
	}
}
