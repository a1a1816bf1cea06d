// Package collector implements the labeling core: one
// facade every front-end (web, desktop overlay, future TUI) binds to. State
// mutation, sample persistence and statistics all flow through here so the
// front-ends stay thin input translators.
package collector

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/datastore"
	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/export"
	"github.com/ecosort/collector-go/internal/labelstate"
	"github.com/ecosort/collector-go/internal/logging"
	"github.com/ecosort/collector-go/internal/sample"
	"github.com/ecosort/collector-go/internal/schema"
	"github.com/ecosort/collector-go/internal/stats"
)

// CommitResult reports what one commit produced. A commit whose image and
// sidecar were written is a success even if the CSV append failed; CSVError
// carries that degraded outcome for the operator to see.
type CommitResult struct {
	Sample      *sample.Sample
	ImagePath   string
	SidecarPath string
	CSVError    error
}

// Collector binds the schema store, label state, sample writer, CSV appender,
// optional sample index and statistics tracker behind the six front-end
// operations. One mutex serializes all operations: the process has a single
// active writer, web handlers just need to not interleave.
type Collector struct {
	mu sync.Mutex

	settings *conf.Settings
	state    *labelstate.State
	writer   *sample.Writer
	appender *export.Appender
	tracker  *stats.Tracker
	store    datastore.Interface

	rootDir    string // dataset root, per-class CSVs live here
	datasetDir string // where images/ and meta/ go, equals rootDir in flat layout
	sessionID  string

	logger *slog.Logger
}

// New loads the class schemas, prepares the dataset directory for the
// configured layout, opens the optional sample index and seeds statistics
// from existing CSVs. Schema errors are fatal: no schema, no usable class.
func New(settings *conf.Settings) (*Collector, error) {
	schemas, err := schema.LoadAll(settings.Classes.Pet, settings.Classes.Can, settings.Classes.Foreign)
	if err != nil {
		return nil, fmt.Errorf("loading class schemas: %w", err)
	}

	rootDir := settings.Data.OutputDir
	var datasetDir string
	switch settings.Data.Layout {
	case "session":
		datasetDir, err = sample.EnsureSessionDir(rootDir, time.Now())
	default:
		datasetDir, err = sample.EnsureDatasetDir(rootDir)
	}
	if err != nil {
		return nil, fmt.Errorf("preparing dataset directory: %w", err)
	}

	csvOpts := export.CSVOptions{
		Delimiter:    rune(settings.Export.CSV.Delimiter[0]),
		BOM:          settings.Export.CSV.BOM,
		HeaderPolicy: settings.Export.CSV.HeaderPolicy,
	}

	c := &Collector{
		settings:   settings,
		state:      labelstate.New(schemas),
		writer:     sample.NewWriter(settings.Data.Image.Quality),
		appender:   export.NewAppender(csvOpts),
		tracker:    stats.NewTracker(labelsOf(schemas)),
		store:      datastore.New(settings),
		rootDir:    rootDir,
		datasetDir: datasetDir,
		sessionID:  uuid.New().String(),
		logger:     logging.ForService("collector"),
	}

	if c.store != nil {
		if err := c.store.Open(); err != nil {
			return nil, fmt.Errorf("opening sample index: %w", err)
		}
	}

	c.tracker.Rebuild(rootDir)

	c.logger.Info("collector initialized",
		"session", c.sessionID,
		"dataset", datasetDir,
		"classes", c.state.Labels())
	return c, nil
}

func labelsOf(schemas map[string]*schema.ClassSchema) []string {
	labels := make([]string, 0, len(schemas))
	for label := range schemas {
		labels = append(labels, label)
	}
	return labels
}

// Labels returns the loaded class labels in sorted order.
func (c *Collector) Labels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Labels()
}

// ActiveClass returns the currently active class label.
func (c *Collector) ActiveClass() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.ActiveClass()
}

// Schema returns the attribute schema for a class label.
func (c *Collector) Schema(label string) (*schema.ClassSchema, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Schema(label)
}

// SetActiveClass switches the active class without touching any class's
// attribute values.
func (c *Collector) SetActiveClass(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.SetActiveClass(label); err != nil {
		return err
	}
	c.logger.Info("class changed", "class", label)
	return nil
}

// Update overwrites one attribute value for a class.
func (c *Collector) Update(label, attrName string, value any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.Update(label, attrName, value); err != nil {
		return err
	}
	c.logger.Debug("attribute updated", "class", label, "attribute", attrName, "value", value)
	return nil
}

// Reset restores one class's attributes to their schema defaults.
func (c *Collector) Reset(label string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.state.Reset(label); err != nil {
		return err
	}
	c.logger.Info("attributes reset", "class", label)
	return nil
}

// Snapshot returns an independent copy of a class's current attribute values.
func (c *Collector) Snapshot(label string) (schema.AttributeValueMap, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Snapshot(label)
}

// Commit persists the frame and the active class's attribute snapshot as a
// new sample: image file, JSON sidecar, per-class CSV row, optional index
// row, statistics increment. A CSV or index failure is reported in the
// result but does not fail the commit; a failed image or sidecar write does.
func (c *Collector) Commit(frame image.Image, capture sample.CaptureInfo) (*CommitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if frame == nil {
		return nil, errors.New(errors.ErrNoFrame).
			Component("collector").
			Category(errors.CategoryCapture).
			Build()
	}

	label := c.state.ActiveClass()
	attrs, err := c.state.Snapshot(label)
	if err != nil {
		return nil, err
	}

	s := sample.New(label, attrs, capture, c.sessionID, time.Now())

	imagePath, sidecarPath, err := c.writer.Write(c.datasetDir, frame, s)
	if err != nil {
		return nil, err
	}

	result := &CommitResult{
		Sample:      s,
		ImagePath:   imagePath,
		SidecarPath: sidecarPath,
	}

	rec := export.Flatten(s, filepath.Base(imagePath), c.flattenOptions())
	csvPath := export.ClassCSVPath(c.rootDir, label)
	if err := c.appender.Append(csvPath, rec); err != nil {
		// The sample itself is durable, losing one CSV row is recoverable
		// via bulk export. Report and keep the session alive.
		c.logger.Error("CSV append failed", "path", csvPath, "error", err)
		result.CSVError = err
	}

	if c.store != nil {
		if dbRec, err := datastore.NewRecord(s, imagePath, sidecarPath); err != nil {
			c.logger.Error("sample index record failed", "error", err)
		} else if err := c.store.Save(dbRec); err != nil {
			c.logger.Error("sample index save failed", "error", err)
		}
	}

	c.tracker.Increment(label)

	c.logger.Info("sample committed",
		"class", label,
		"image", filepath.Base(imagePath),
		"csv", filepath.Base(csvPath))
	return result, nil
}

// Statistics returns the current per-class counts.
func (c *Collector) Statistics() stats.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tracker.Snapshot()
}

// ExportAll consolidates every persisted sidecar under the dataset root into
// one CSV and returns its path.
func (c *Collector) ExportAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	exporter := export.NewExporter(export.FlattenOptions{
		IncludeTimestamp: c.settings.Export.CSV.IncludeTimestamp,
		BoolTrue:         c.settings.Export.CSV.BoolTrue,
		BoolFalse:        c.settings.Export.CSV.BoolFalse,
	}, export.CSVOptions{
		Delimiter: rune(c.settings.Export.CSV.Delimiter[0]),
		BOM:       c.settings.Export.CSV.BOM,
	})

	records, err := exporter.Export(c.rootDir)
	if err != nil {
		return "", err
	}

	csvPath := filepath.Join(c.rootDir, "export_"+time.Now().Format("20060102_150405")+".csv")
	if err := exporter.WriteCSV(records, csvPath); err != nil {
		return "", err
	}
	return csvPath, nil
}

// SessionID returns the unique identifier of this collecting session.
func (c *Collector) SessionID() string {
	return c.sessionID
}

// DatasetDir returns the directory samples are written into.
func (c *Collector) DatasetDir() string {
	return c.datasetDir
}

// Close releases the sample index connection when one is open.
func (c *Collector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

func (c *Collector) flattenOptions() *export.FlattenOptions {
	return &export.FlattenOptions{
		IncludeTimestamp: c.settings.Export.CSV.IncludeTimestamp,
		AttrPrefix:       c.settings.Export.CSV.AttrPrefix,
		BoolTrue:         c.settings.Export.CSV.BoolTrue,
		BoolFalse:        c.settings.Export.CSV.BoolFalse,
	}
}
