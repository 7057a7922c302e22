// Package sinks delivers finished archives: to a stream, the filesystem, or
// S3-compatible object storage.
package sinks

import (
	"context"
	"io"
)

// Sink writes named payloads to a destination.
type Sink interface {
	Name() string
	Write(ctx context.Context, path string, data io.Reader) error
	Close(ctx context.Context) error
}
