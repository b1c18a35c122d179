// Package backend defines the media backend contract the execution engine
// and batch orchestrator dispatch against. The ffmpeg subpackage provides
// the production implementation; tests substitute fakes.
package backend

import (
	"context"
	"errors"
	"fmt"

	"clipforge/internal/params"
)

// MediaInfo is the probe result for a media file.
type MediaInfo struct {
	Width    int
	Height   int
	Duration float64
	HasAudio bool
	Format   string
}

// Handle is an opaque editable media session produced by Open. Operations
// accumulate on the handle; nothing touches disk until Export.
type Handle interface {
	Source() string
}

// Backend applies operations to media files.
type Backend interface {
	// Probe inspects a file without opening an edit session.
	Probe(ctx context.Context, path string) (MediaInfo, error)

	Open(ctx context.Context, path string) (Handle, error)

	// Signature reports the parameter set the named operation accepts, for
	// parameter normalization ahead of Apply.
	Signature(operation string) (params.Signature, bool)

	// Apply records one operation on the handle. Unknown operations and
	// un-buildable parameters return an error without side effects.
	Apply(ctx context.Context, h Handle, operation string, p params.Map) error

	// Export runs the accumulated operations and writes the result to
	// destination. Returns the output size in bytes.
	Export(ctx context.Context, h Handle, destination, quality string) (int64, error)

	Close(h Handle) error

	// DefaultEdit runs the fixed fallback pipeline: edge-blur background with
	// a 110% zoomed foreground, plus a voice-isolation audio chain when
	// withAudio is set.
	DefaultEdit(ctx context.Context, source, destination, quality string, withAudio bool) error

	// RunFilterGraph invokes the transcoder with raw arguments and returns
	// the exit code and captured stderr.
	RunFilterGraph(ctx context.Context, args []string) (int, string, error)
}

// FilterError reports a transcode rejected because of its filter arguments,
// as opposed to I/O or timeout failures. The batch orchestrator retries these
// with a degraded graph.
type FilterError struct {
	Operation string
	Stderr    string
	Err       error
}

func (e *FilterError) Error() string {
	if e.Operation != "" {
		return fmt.Sprintf("filter arguments rejected (%s): %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("filter arguments rejected: %v", e.Err)
}

func (e *FilterError) Unwrap() error { return e.Err }

// IsFilterArgumentError reports whether err stems from rejected filter
// arguments.
func IsFilterArgumentError(err error) bool {
	var fe *FilterError
	return errors.As(err, &fe)
}
