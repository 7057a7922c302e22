package archive

import (
	"fmt"
	"path"
)

// Defaults for the write path. Each is a constructor parameter on Options;
// these values apply only when the caller leaves the field zero.
const (
	// DefaultLargeFileThreshold is the content size above which one input
	// is split into multiple chunk entries.
	DefaultLargeFileThreshold = 2 * 1024 * 1024
	// DefaultChunkSize bounds each chunk emitted for an oversized input.
	DefaultChunkSize = 512 * 1024
	// DefaultLevel favors speed; packages tend to be written far more
	// often than their size matters.
	DefaultLevel = 1
)

// File is one logical input to the write path: an archive entry name and its
// full content.
type File struct {
	Name    string
	Content []byte
}

// CompressionTask is the unit handed to one compression worker. Content is
// never mutated after construction and is consumed exactly once.
type CompressionTask struct {
	Filename string
	Content  []byte
}

// buildTasks splits the ordered inputs into compression tasks. An input
// larger than threshold is cut into chunks of at most chunkSize, each named
// with a _part{N} suffix before the extension. Emitted order preserves input
// order and chunk order. threshold <= 0 disables chunking. Pure; never
// fails.
func buildTasks(files []File, threshold, chunkSize int) []CompressionTask {
	tasks := make([]CompressionTask, 0, len(files))

	for _, f := range files {
		if threshold <= 0 || chunkSize <= 0 || len(f.Content) <= threshold {
			tasks = append(tasks, CompressionTask{Filename: f.Name, Content: f.Content})
			continue
		}

		chunks := (len(f.Content) + chunkSize - 1) / chunkSize
		if chunks <= 1 {
			tasks = append(tasks, CompressionTask{Filename: f.Name, Content: f.Content})
			continue
		}

		for i := range chunks {
			off := i * chunkSize
			end := min(off+chunkSize, len(f.Content))
			tasks = append(tasks, CompressionTask{
				Filename: chunkName(f.Name, i),
				Content:  f.Content[off:end],
			})
		}
	}

	return tasks
}

// chunkName inserts _part{n} before the final extension of name, so
// "xl/worksheets/sheet1.xml" becomes "xl/worksheets/sheet1_part0.xml".
func chunkName(name string, n int) string {
	ext := path.Ext(name)
	return fmt.Sprintf("%s_part%d%s", name[:len(name)-len(ext)], n, ext)
}
