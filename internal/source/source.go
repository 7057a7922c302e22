// Package source collects job input bytes: local files, HTTP responses, and
// command output. Each source resolves to named items the runner packs as
// archive entries.
package source

import "context"

// Item is one collected archive entry.
type Item struct {
	Name    string
	Content []byte
}

// Source produces zero or more items.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]Item, error)
}
