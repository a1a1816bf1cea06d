// Package export flattens committed samples into CSV rows. The appender and
// the bulk exporter share one flattening rule so per-class CSVs and
// consolidated exports never diverge on column content or boolean rendering.
package export

import (
	"fmt"
	"sort"

	"github.com/ecosort/collector-go/internal/sample"
)

// Record is an ordered set of CSV columns. Key order is preserved as
// inserted; it becomes the header order when a record is the first written to
// a file.
type Record struct {
	keys   []string
	values map[string]string
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// Set stores a column value, appending the key on first use.
func (r *Record) Set(key, value string) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Keys returns the column names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Get returns the value for a column, or the empty string when absent.
func (r *Record) Get(key string) string {
	return r.values[key]
}

// Has reports whether the record carries the column.
func (r *Record) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// FlattenOptions control the projection from sample to CSV row.
type FlattenOptions struct {
	Date             string // value for a leading date column, omitted when empty
	IncludeClass     bool   // per-class CSVs skip the class column, consolidated exports keep it
	IncludeTimestamp bool
	AttrPrefix       string // column prefix for attributes, "attr_" in consolidated exports
	BoolTrue         string // token for boolean true
	BoolFalse        string // token for boolean false
}

// Flatten projects a sample into one CSV record. Attribute columns appear in
// sorted name order so the projection is deterministic regardless of which
// path produced it. Boolean values render as the configured token pair,
// never as a raw boolean.
func Flatten(s *sample.Sample, imageFile string, opts *FlattenOptions) *Record {
	rec := NewRecord()

	if opts.Date != "" {
		rec.Set("date", opts.Date)
	}
	rec.Set("image_file", imageFile)
	if opts.IncludeClass {
		rec.Set("class", s.Class)
	}
	if opts.IncludeTimestamp {
		rec.Set("timestamp", s.Timestamp)
	}

	names := make([]string, 0, len(s.Attributes))
	for name := range s.Attributes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rec.Set(opts.AttrPrefix+name, opts.renderValue(s.Attributes[name]))
	}

	rec.Set("capture_width", fmt.Sprintf("%d", s.Capture.Width))
	rec.Set("capture_height", fmt.Sprintf("%d", s.Capture.Height))
	rec.Set("capture_fps", formatFPS(s.Capture.FPS))

	return rec
}

func (opts *FlattenOptions) renderValue(value any) string {
	switch v := value.(type) {
	case bool:
		if v {
			return opts.BoolTrue
		}
		return opts.BoolFalse
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// formatFPS renders fps without a trailing ".0" for whole numbers.
func formatFPS(fps float64) string {
	if fps == float64(int64(fps)) {
		return fmt.Sprintf("%d", int64(fps))
	}
	return fmt.Sprintf("%g", fps)
}
