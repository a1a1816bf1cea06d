// Package camera defines the frame-source boundary the collector binds to.
// Device acquisition itself is an external collaborator; this package only
// fixes the contract and ships a still-image source for development and
// tests.
package camera

import (
	"context"
	"image"
)

// Mode describes the capture geometry a source produces.
type Mode struct {
	Width  int
	Height int
	FPS    float64
}

// Source supplies frames for preview and commit. A commit always reads the
// most recent frame once, at the instant of commit; frames are single-owner
// snapshots and must not be mutated after Frame returns them.
type Source interface {
	// Start begins frame acquisition. Must be called before Frame.
	Start(ctx context.Context) error

	// Frame returns the most recently acquired frame, or ok=false when no
	// frame has been produced yet.
	Frame() (frame image.Image, ok bool)

	// Mode reports the source's capture geometry.
	Mode() Mode

	// Close releases the underlying device or file handles. Idempotent.
	Close() error
}
