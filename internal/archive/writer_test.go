package archive

import (
	"fmt"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wuxianggujun/FastExcel-sub003/internal/executor"
)

func newTestWriter(t *testing.T, fs afero.Fs, threads int, opts Options) *Writer {
	t.Helper()

	pool := executor.NewPool(threads)
	t.Cleanup(func() { require.NoError(t, pool.Close()) })

	w, err := NewWriter(pool, fs, opts)
	require.NoError(t, err)
	return w
}

func TestWriteArchive_RoundTripAcrossThreadCounts(t *testing.T) {
	files := []File{
		{Name: "[Content_Types].xml", Content: []byte("<Types/>")},
		{Name: "xl/workbook.xml", Content: []byte("<workbook/>")},
		{Name: "xl/worksheets/sheet1.xml", Content: repeatBytes("<row r=\"1\"/>", 8_000)},
		{Name: "xl/sharedStrings.xml", Content: repeatBytes("<si><t>s</t></si>", 3_000)},
		{Name: "docProps/core.xml", Content: []byte("<coreProperties/>")},
	}

	for _, threads := range []int{1, 2, 4, 8} {
		t.Run(fmt.Sprintf("threads=%d", threads), func(t *testing.T) {
			fs := afero.NewMemMapFs()
			w := newTestWriter(t, fs, threads, Options{Level: 6})

			stats, err := w.WriteArchive(t.Context(), "book.xlsx", files)
			require.NoError(t, err)
			assert.Equal(t, threads, stats.ThreadCount)
			assert.Equal(t, len(files), stats.CompletedTasks)
			assert.Zero(t, stats.FailedTasks)

			e, err := NewExtractor(nil, nil, fs, "book.xlsx", ExtractorOptions{})
			require.NoError(t, err)
			defer e.Close()

			names := make([]string, len(files))
			for i, f := range files {
				names[i] = f.Name
			}
			results, err := e.ExtractMany(t.Context(), names)
			require.NoError(t, err)
			for _, f := range files {
				assert.Equal(t, f.Content, results[f.Name])
			}
		})
	}
}

func TestWriteArchive_EntryOrderMatchesInputOrder(t *testing.T) {
	// Wildly uneven sizes make completion order differ from submission order
	// under parallelism; the archive must list entries by input order anyway.
	files := make([]File, 30)
	for i := range files {
		size := 100
		if i%3 == 0 {
			size = 200_000
		}
		files[i] = File{
			Name:    fmt.Sprintf("part%02d.xml", i),
			Content: repeatBytes(fmt.Sprintf("%d", i), size),
		}
	}

	fs := afero.NewMemMapFs()
	w := newTestWriter(t, fs, 8, Options{Level: 9})

	_, err := w.WriteArchive(t.Context(), "ordered.zip", files)
	require.NoError(t, err)

	parsed := readArchive(t, fs, "ordered.zip")
	require.Len(t, parsed, len(files))
	for i, zf := range parsed {
		assert.Equal(t, files[i].Name, zf.Name)
	}
}

func TestWriteArchive_StoredCRCMatchesOriginalBytes(t *testing.T) {
	files := []File{
		{Name: "a.xml", Content: repeatBytes("alpha", 10_000)},
		{Name: "b.xml", Content: repeatBytes("beta", 20_000)},
	}

	fs := afero.NewMemMapFs()
	w := newTestWriter(t, fs, 4, Options{Level: 6})

	_, err := w.WriteArchive(t.Context(), "crc.zip", files)
	require.NoError(t, err)

	for i, zf := range readArchive(t, fs, "crc.zip") {
		assert.Equal(t, crc32.ChecksumIEEE(files[i].Content), zf.CRC32)
	}
}

func TestWriteArchive_CorruptedPayloadFailsChecksum(t *testing.T) {
	files := []File{{Name: "victim.xml", Content: repeatBytes("payload", 50_000)}}

	fs := afero.NewMemMapFs()
	w := newTestWriter(t, fs, 2, Options{Level: 6})
	_, err := w.WriteArchive(t.Context(), "tamper.zip", files)
	require.NoError(t, err)

	// Flip one byte of the stored compressed payload, past the local header.
	data, err := afero.ReadFile(fs, "tamper.zip")
	require.NoError(t, err)
	offset := 80
	data[offset] ^= 0xFF
	require.NoError(t, afero.WriteFile(fs, "tamper.zip", data, 0644))

	pool, err := NewReaderPool(fs, "tamper.zip", 1)
	require.NoError(t, err)
	defer pool.Close()

	h, err := pool.Acquire(t.Context())
	require.NoError(t, err)
	defer pool.Release(h)

	_, err = h.extract("victim.xml")
	require.Error(t, err, "a conformant reader must reject the tampered entry")
}

func TestWriteArchive_ScenarioChunkedMixedLoad(t *testing.T) {
	// 12 files of 100 KB plus one 5 MB file chunked into 10 tasks of 512 KiB:
	// 22 tasks total, extracted back with a 4-session pool.
	files := make([]File, 0, 13)
	for i := range 12 {
		files = append(files, File{
			Name:    fmt.Sprintf("data/file%02d.bin", i),
			Content: repeatBytes(fmt.Sprintf("file-%d ", i), 100*1024),
		})
	}
	big := repeatBytes("big-file-pattern ", 5*1024*1024)
	files = append(files, File{Name: "data/big.bin", Content: big})

	fs := afero.NewMemMapFs()
	w := newTestWriter(t, fs, 4, Options{Level: 1})

	stats, err := w.WriteArchive(t.Context(), "mixed.zip", files)
	require.NoError(t, err)
	assert.Equal(t, 22, stats.CompletedTasks)
	assert.Zero(t, stats.FailedTasks)
	assert.Positive(t, stats.CompressionRatio)
	assert.Positive(t, stats.ParallelEfficiencyPct)

	e, err := NewExtractor(nil, nil, fs, "mixed.zip", ExtractorOptions{Handles: 4})
	require.NoError(t, err)
	defer e.Close()

	names := e.Entries()
	require.Len(t, names, 22)
	results, err := e.ExtractMany(t.Context(), names)
	require.NoError(t, err)

	for i := range 12 {
		assert.Equal(t, files[i].Content, results[fmt.Sprintf("data/file%02d.bin", i)])
	}

	// Chunk reassembly is the caller's concern: concatenate the parts in
	// order and compare to the original logical file.
	var reassembled []byte
	for i := range 10 {
		part := results[fmt.Sprintf("data/big_part%d.bin", i)]
		require.NotNilf(t, part, "chunk %d missing", i)
		reassembled = append(reassembled, part...)
	}
	assert.Equal(t, big, reassembled)
}

func TestWriteArchive_CompressionFailureAbortsBeforeAssembly(t *testing.T) {
	fs := afero.NewMemMapFs()

	pool := executor.NewPool(2)
	t.Cleanup(func() { require.NoError(t, pool.Close()) })

	w, err := NewWriter(pool, fs, Options{Method: Method("bogus")})
	require.Error(t, err, "an unknown method is rejected at construction")

	// Force the failure path through a writer built with a valid method and
	// then a compressor that cannot succeed.
	w, err = NewWriter(pool, fs, Options{Level: 6})
	require.NoError(t, err)
	w.compressor = NewCompressor(Method("bogus"))

	stats, err := w.WriteArchive(t.Context(), "never.zip", []File{
		{Name: "a.xml", Content: []byte("x")},
		{Name: "b.xml", Content: []byte("y")},
	})

	var entryErr *EntryError
	require.ErrorAs(t, err, &entryErr)
	assert.Equal(t, 2, stats.FailedTasks)
	assert.Zero(t, stats.CompletedTasks)

	exists, statErr := afero.Exists(fs, "never.zip")
	require.NoError(t, statErr)
	assert.False(t, exists, "no file may be created when compression failed")
}

func TestNewWriter_RejectsBadLevel(t *testing.T) {
	_, err := NewWriter(nil, afero.NewMemMapFs(), Options{Level: 12})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestNewWriter_OwnedPoolClosedByClose(t *testing.T) {
	w, err := NewWriter(nil, afero.NewMemMapFs(), Options{Level: 1})
	require.NoError(t, err)

	_, err = w.WriteArchive(t.Context(), "own.zip", []File{{Name: "a", Content: []byte("1")}})
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

func TestWriteArchive_EfficiencyReflectsGranularity(t *testing.T) {
	fs := afero.NewMemMapFs()
	w := newTestWriter(t, fs, 4, Options{Level: 1})

	// A single small file on four threads leaves three idle.
	stats, err := w.WriteArchive(t.Context(), "one.zip", []File{
		{Name: "only.xml", Content: []byte(strings.Repeat("x", 100))},
	})
	require.NoError(t, err)
	assert.InDelta(t, 25.0, stats.ParallelEfficiencyPct, 1e-6)
}
