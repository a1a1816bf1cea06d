package export

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/logging"
	"github.com/ecosort/collector-go/internal/sample"
)

var dateDirPattern = regexp.MustCompile(`^\d{8}$`)

// Exporter walks every JSON sidecar under a dataset root and flattens them
// into one consolidated record sequence. It is read-only over the storage the
// sample writer produces and tolerates individual corrupt sidecars.
type Exporter struct {
	flatten FlattenOptions
	csv     CSVOptions
	logger  *slog.Logger
}

// NewExporter creates an Exporter. The consolidated export always carries the
// class column and prefixes attribute columns with "attr_" so rows from
// different classes stay distinguishable in one file.
func NewExporter(flatten FlattenOptions, csvOpts CSVOptions) *Exporter {
	flatten.IncludeClass = true
	if flatten.AttrPrefix == "" {
		flatten.AttrPrefix = "attr_"
	}
	if csvOpts.Delimiter == 0 {
		csvOpts.Delimiter = ','
	}
	return &Exporter{
		flatten: flatten,
		csv:     csvOpts,
		logger:  logging.ForService("bulk-exporter"),
	}
}

// Export walks rootDir, both flat and date/session-bucketed trees, and
// returns the flattened records in walk order. Corrupt or unreadable
// sidecars are logged and skipped; only a fully empty result is an error.
func (e *Exporter) Export(rootDir string) ([]*Record, error) {
	var records []*Record
	skipped := 0

	err := filepath.WalkDir(rootDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			e.logger.Warn("cannot access path during export", "path", path, "error", err)
			return nil
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".json") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) != "meta" {
			return nil
		}

		s, err := sample.ReadSidecar(path)
		if err != nil {
			e.logger.Warn("skipping unreadable sidecar", "path", path, "error", err)
			skipped++
			return nil
		}

		opts := e.flatten
		opts.Date = dateBucket(rootDir, path)
		imageFile := strings.TrimSuffix(filepath.Base(path), ".json") + ".jpg"
		records = append(records, Flatten(s, imageFile, &opts))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking dataset %s: %w", rootDir, err)
	}

	if len(records) == 0 {
		return nil, errors.New(fmt.Errorf("%w: %s", errors.ErrExportEmpty, rootDir)).
			Component("bulk-exporter").
			Category(errors.CategoryCSV).
			Context("root", rootDir).
			Build()
	}

	e.logger.Info("export collected records", "count", len(records), "skipped", skipped)
	return records, nil
}

// WriteCSV persists the consolidated records to one CSV file. The header is
// the union of record keys in first-appearance order, so samples whose
// schemas evolved over time still land in one file without losing columns.
func (e *Exporter) WriteCSV(records []*Record, csvPath string) error {
	header := unionHeader(records)

	f, err := os.Create(csvPath)
	if err != nil {
		return e.wrap(csvPath, err)
	}
	defer f.Close()

	if e.csv.BOM {
		if _, err := f.Write(utf8BOM); err != nil {
			return e.wrap(csvPath, err)
		}
	}

	w := csv.NewWriter(f)
	w.Comma = e.csv.Delimiter
	if err := w.Write(header); err != nil {
		return e.wrap(csvPath, err)
	}
	for _, rec := range records {
		if err := w.Write(rowFor(header, rec)); err != nil {
			return e.wrap(csvPath, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return e.wrap(csvPath, err)
	}

	e.logger.Info("exported records", "count", len(records), "path", csvPath)
	return nil
}

func (e *Exporter) wrap(csvPath string, err error) error {
	return errors.New(fmt.Errorf("%w: %s: %v", errors.ErrWrite, csvPath, err)).
		Component("bulk-exporter").
		Category(errors.CategoryCSV).
		Context("path", csvPath).
		Build()
}

// dateBucket returns the YYYYMMDD directory a sidecar lives under, or the
// empty string for flat layouts.
func dateBucket(rootDir, path string) string {
	rel, err := filepath.Rel(rootDir, path)
	if err != nil {
		return ""
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && dateDirPattern.MatchString(parts[0]) {
		return parts[0]
	}
	return ""
}

func unionHeader(records []*Record) []string {
	var header []string
	seen := make(map[string]bool)
	for _, rec := range records {
		for _, key := range rec.Keys() {
			if !seen[key] {
				seen[key] = true
				header = append(header, key)
			}
		}
	}
	return header
}
