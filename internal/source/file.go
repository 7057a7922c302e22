package source

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// FileSource collects local files matching a glob pattern.
type FileSource struct {
	fs      afero.Fs
	pattern string
	as      string
}

// NewFileSource collects files matching pattern on fs. A nil fs selects the
// operating-system filesystem. When as is set, a single match is stored
// under exactly that name and multiple matches keep their base name under
// the as prefix; otherwise the matched path is the entry name.
func NewFileSource(fs afero.Fs, pattern, as string) (*FileSource, error) {
	if pattern == "" {
		return nil, fmt.Errorf("glob pattern is required")
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &FileSource{fs: fs, pattern: pattern, as: as}, nil
}

func (s *FileSource) Name() string {
	return fmt.Sprintf("file(%s)", s.pattern)
}

func (s *FileSource) Collect(ctx context.Context) ([]Item, error) {
	matches, err := afero.Glob(s.fs, s.pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to expand glob %s: %w", s.pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("glob %s matched no files", s.pattern)
	}
	sort.Strings(matches)

	items := make([]Item, 0, len(matches))
	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := s.fs.Stat(match)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", match, err)
		}
		if info.IsDir() {
			continue
		}

		content, err := afero.ReadFile(s.fs, match)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", match, err)
		}
		items = append(items, Item{Name: s.entryName(match, len(matches)), Content: content})
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("glob %s matched only directories", s.pattern)
	}
	return items, nil
}

func (s *FileSource) entryName(match string, matchCount int) string {
	name := filepath.ToSlash(match)
	if s.as == "" {
		return name
	}
	if matchCount == 1 {
		return s.as
	}
	return path.Join(s.as, path.Base(name))
}
