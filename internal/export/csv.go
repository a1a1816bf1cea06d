package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/logging"
)

// Header policies for CSV files whose existing header differs from an
// incoming record.
const (
	// HeaderPolicyFixed keeps the original header authoritative: extra keys
	// are dropped, missing keys render empty. This is a deliberate
	// compatibility boundary so historical columns never silently reorder
	// for downstream consumers.
	HeaderPolicyFixed = "fixed"
	// HeaderPolicyRewrite widens the header by rewriting the whole file,
	// preserving existing column order and appending new columns at the end.
	HeaderPolicyRewrite = "rewrite"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// CSVOptions configure file-level CSV behavior shared by the appender and the
// bulk exporter.
type CSVOptions struct {
	Delimiter    rune
	BOM          bool // prepend a UTF-8 byte-order mark so spreadsheet tools detect encoding
	HeaderPolicy string
}

// Appender appends flattened records to CSV files, creating the header lazily
// from the first record written. It owns no state between calls.
type Appender struct {
	opts   CSVOptions
	logger *slog.Logger
}

// NewAppender creates an Appender with the given options. A zero delimiter
// falls back to a comma and an empty policy to HeaderPolicyFixed.
func NewAppender(opts CSVOptions) *Appender {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	if opts.HeaderPolicy == "" {
		opts.HeaderPolicy = HeaderPolicyFixed
	}
	return &Appender{
		opts:   opts,
		logger: logging.ForService("csv-appender"),
	}
}

// ClassCSVPath returns the per-class CSV path inside the dataset root,
// pet.csv / can.csv / foreign.csv.
func ClassCSVPath(rootDir, classLabel string) string {
	return filepath.Join(rootDir, strings.ToLower(classLabel)+".csv")
}

// Append writes one record to csvPath. If the file does not exist it is
// created with a header in the record's key order. An existing file's header
// is authoritative (see HeaderPolicyFixed); with HeaderPolicyRewrite a record
// carrying new keys triggers a file rewrite with a widened header first.
// Filesystem errors are returned, never raised past this boundary, so a
// failed append must not end the labeling session.
func (a *Appender) Append(csvPath string, rec *Record) error {
	header, err := readHeader(csvPath, a.opts.Delimiter)
	switch {
	case os.IsNotExist(err):
		return a.createWithRecord(csvPath, rec)
	case err != nil:
		return a.wrap(csvPath, err)
	}
	if len(header) == 0 {
		// Existing but empty file, claim it as fresh.
		return a.createWithRecord(csvPath, rec)
	}

	if a.opts.HeaderPolicy == HeaderPolicyRewrite {
		if missing := missingKeys(header, rec); len(missing) > 0 {
			header = append(header, missing...)
			if err := a.rewriteWithHeader(csvPath, header); err != nil {
				return a.wrap(csvPath, err)
			}
			a.logger.Info("widened CSV header", "path", csvPath, "added", missing)
		}
	}

	return a.appendRow(csvPath, header, rec)
}

func (a *Appender) createWithRecord(csvPath string, rec *Record) error {
	f, err := os.Create(csvPath)
	if err != nil {
		return a.wrap(csvPath, err)
	}
	defer f.Close()

	if a.opts.BOM {
		if _, err := f.Write(utf8BOM); err != nil {
			return a.wrap(csvPath, err)
		}
	}

	w := csv.NewWriter(f)
	w.Comma = a.opts.Delimiter
	header := rec.Keys()
	if err := w.Write(header); err != nil {
		return a.wrap(csvPath, err)
	}
	if err := w.Write(rowFor(header, rec)); err != nil {
		return a.wrap(csvPath, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return a.wrap(csvPath, err)
	}

	a.logger.Info("created new CSV", "path", csvPath, "columns", len(header))
	return nil
}

func (a *Appender) appendRow(csvPath string, header []string, rec *Record) error {
	f, err := os.OpenFile(csvPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return a.wrap(csvPath, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = a.opts.Delimiter
	if err := w.Write(rowFor(header, rec)); err != nil {
		return a.wrap(csvPath, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return a.wrap(csvPath, err)
	}

	a.logger.Debug("appended record", "path", csvPath)
	return nil
}

// rewriteWithHeader rewrites the file under the widened header, padding
// existing rows with empty cells for the new columns.
func (a *Appender) rewriteWithHeader(csvPath string, header []string) error {
	data, err := os.ReadFile(csvPath)
	if err != nil {
		return err
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = a.opts.Delimiter
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return err
	}

	tmpPath := csvPath + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return err
	}

	writeErr := func() error {
		if a.opts.BOM {
			if _, err := f.Write(utf8BOM); err != nil {
				return err
			}
		}
		w := csv.NewWriter(f)
		w.Comma = a.opts.Delimiter
		if err := w.Write(header); err != nil {
			return err
		}
		for i, row := range rows {
			if i == 0 {
				continue // old header
			}
			padded := make([]string, len(header))
			copy(padded, row)
			if err := w.Write(padded); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	}()

	closeErr := f.Close()
	if writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return writeErr
	}
	return os.Rename(tmpPath, csvPath)
}

func (a *Appender) wrap(csvPath string, err error) error {
	return errors.New(fmt.Errorf("%w: %s: %v", errors.ErrWrite, csvPath, err)).
		Component("csv-appender").
		Category(errors.CategoryCSV).
		Context("path", csvPath).
		Build()
}

// rowFor projects a record onto a header, dropping keys the header does not
// carry and rendering missing keys as empty cells.
func rowFor(header []string, rec *Record) []string {
	row := make([]string, len(header))
	for i, key := range header {
		row[i] = rec.Get(key)
	}
	return row
}

func missingKeys(header []string, rec *Record) []string {
	known := make(map[string]bool, len(header))
	for _, key := range header {
		known[key] = true
	}
	var missing []string
	for _, key := range rec.Keys() {
		if !known[key] {
			missing = append(missing, key)
		}
	}
	return missing
}

// readHeader reads the header row of an existing CSV file, stripping the
// UTF-8 BOM if present.
func readHeader(csvPath string, delimiter rune) ([]string, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, 3)
	n, err := f.Read(buf)
	if err != nil && n == 0 {
		// Empty file, treat as headerless.
		return nil, nil
	}
	if !bytes.Equal(buf[:n], utf8BOM) {
		if _, err := f.Seek(0, 0); err != nil {
			return nil, err
		}
	}

	r := csv.NewReader(f)
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	return header, nil
}
