// Package sample defines the committed labeling event record and persists it
// as an image file plus a JSON sidecar sharing one timestamp-derived stem.
package sample

import (
	"time"

	"github.com/ecosort/collector-go/internal/schema"
)

// CaptureInfo records the source geometry at commit time.
type CaptureInfo struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	FPS    float64 `json:"fps"`
}

// Sample is one committed labeling event. It is immutable once written; the
// attributes map is a snapshot taken at commit time and never shared with the
// live label state.
type Sample struct {
	Timestamp  string                   `json:"timestamp"`
	Class      string                   `json:"class"`
	Attributes schema.AttributeValueMap `json:"attributes"`
	Capture    CaptureInfo              `json:"capture"`
	SessionID  string                   `json:"session_id,omitempty"`

	// stem is the shared filename stem of the image and sidecar files.
	stem string
}

// New creates a Sample for the given class with an attribute snapshot and the
// commit wall-clock time. Microsecond resolution in the stem makes collisions
// practically impossible within one process.
func New(class string, attributes schema.AttributeValueMap, capture CaptureInfo, sessionID string, now time.Time) *Sample {
	return &Sample{
		Timestamp:  now.Format(time.RFC3339Nano),
		Class:      class,
		Attributes: attributes,
		Capture:    capture,
		SessionID:  sessionID,
		stem:       now.Format("20060102_150405") + "_" + now.Format(".000000")[1:],
	}
}

// Stem returns the timestamp-derived filename stem shared by the sample's
// image file and JSON sidecar.
func (s *Sample) Stem() string {
	return s.stem
}
