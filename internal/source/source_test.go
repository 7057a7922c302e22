package source

import (
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0644))
	}
	return fs
}

func TestFileSource_SingleMatchUsesAsName(t *testing.T) {
	fs := newMemFs(t, map[string]string{"reports/q3.csv": "a,b,c"})

	src, err := NewFileSource(fs, "reports/q3.csv", "data/quarterly.csv")
	require.NoError(t, err)

	items, err := src.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "data/quarterly.csv", items[0].Name)
	assert.Equal(t, []byte("a,b,c"), items[0].Content)
}

func TestFileSource_GlobKeepsBaseNamesUnderPrefix(t *testing.T) {
	fs := newMemFs(t, map[string]string{
		"logs/b.log": "bbb",
		"logs/a.log": "aaa",
		"logs/skip":  "not matched",
	})

	src, err := NewFileSource(fs, "logs/*.log", "archive/logs")
	require.NoError(t, err)

	items, err := src.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 2)
	// Matches are sorted for deterministic entry order.
	assert.Equal(t, "archive/logs/a.log", items[0].Name)
	assert.Equal(t, "archive/logs/b.log", items[1].Name)
}

func TestFileSource_NoAsKeepsMatchedPath(t *testing.T) {
	fs := newMemFs(t, map[string]string{"conf/app.yaml": "x: 1"})

	src, err := NewFileSource(fs, "conf/*.yaml", "")
	require.NoError(t, err)

	items, err := src.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "conf/app.yaml", items[0].Name)
}

func TestFileSource_NoMatchFails(t *testing.T) {
	src, err := NewFileSource(afero.NewMemMapFs(), "missing/*.txt", "")
	require.NoError(t, err)

	_, err = src.Collect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "matched no files")
}

func TestHTTPSource_CollectsBody(t *testing.T) {
	var gotAuth, gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	src, err := NewHTTPSource(HTTPConfig{
		URL:  server.URL,
		As:   "api/status.json",
		Auth: &BasicAuth{Username: "user", Password: "pass"},
	})
	require.NoError(t, err)

	items, err := src.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "api/status.json", items[0].Name)
	assert.Equal(t, []byte(`{"status":"ok"}`), items[0].Content)
	assert.Equal(t, "Basic dXNlcjpwYXNz", gotAuth)
	assert.Contains(t, gotUA, "fastexcel")
}

func TestHTTPSource_NonSuccessStatusFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	src, err := NewHTTPSource(HTTPConfig{URL: server.URL, As: "x"})
	require.NoError(t, err)

	_, err = src.Collect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestNewHTTPSource_Validation(t *testing.T) {
	_, err := NewHTTPSource(HTTPConfig{URL: "", As: "x"})
	assert.Error(t, err)

	_, err = NewHTTPSource(HTTPConfig{URL: "ftp://example.com", As: "x"})
	assert.Error(t, err)

	_, err = NewHTTPSource(HTTPConfig{URL: "https://example.com", As: ""})
	assert.Error(t, err)
}

func TestExecSource_CapturesStdout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}

	src, err := NewExecSource(ExecConfig{
		Program: []string{"sh", "-c", "printf hello"},
		As:      "out.txt",
	})
	require.NoError(t, err)

	items, err := src.Collect(t.Context())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "out.txt", items[0].Name)
	assert.Equal(t, []byte("hello"), items[0].Content)
}

func TestExecSource_FailureIncludesStderr(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on a POSIX shell")
	}

	src, err := NewExecSource(ExecConfig{
		Program: []string{"sh", "-c", "echo broken >&2; exit 3"},
		As:      "out.txt",
	})
	require.NoError(t, err)

	_, err = src.Collect(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestNewExecSource_Validation(t *testing.T) {
	_, err := NewExecSource(ExecConfig{As: "x"})
	assert.Error(t, err)

	_, err = NewExecSource(ExecConfig{Program: []string{"true"}})
	assert.Error(t, err)
}
