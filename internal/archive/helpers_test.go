package archive

import (
	"bytes"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// writeFixtureArchive writes a plain ZIP at path so read-path tests do not
// depend on the write path under test.
func writeFixtureArchive(t *testing.T, fs afero.Fs, path string, files []File) {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range files {
		w, err := zw.Create(f.Name)
		require.NoError(t, err)
		_, err = w.Write(f.Content)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, path, buf.Bytes(), 0644))
}

// readArchive opens the archive at path and returns its entries in
// central-directory order.
func readArchive(t *testing.T, fs afero.Fs, path string) []*zip.File {
	t.Helper()

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return zr.File
}

// readEntry decompresses one parsed entry.
func readEntry(t *testing.T, zf *zip.File) []byte {
	t.Helper()

	rc, err := zf.Open()
	require.NoError(t, err)
	defer rc.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(rc)
	require.NoError(t, err)
	return buf.Bytes()
}

// repeatBytes builds n bytes cycling over pattern, compressible and easy to
// verify by position.
func repeatBytes(pattern string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = pattern[i%len(pattern)]
	}
	return out
}
