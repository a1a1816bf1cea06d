package sample

import (
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/logging"
)

const (
	imagesSubdir = "images"
	metaSubdir   = "meta"
)

// Writer persists samples into a dataset directory. It owns no state beyond
// its configuration; both file writes are independent and a failure in either
// is surfaced to the caller rather than swallowed.
type Writer struct {
	quality int
	logger  *slog.Logger
}

// NewWriter creates a Writer encoding images at the given JPEG quality.
func NewWriter(quality int) *Writer {
	return &Writer{
		quality: quality,
		logger:  logging.ForService("sample-writer"),
	}
}

// Write persists the frame and sidecar under dir, creating the images/ and
// meta/ subdirectories if absent. Both files share the sample's stem. The
// returned paths are valid for whichever writes succeeded; a half-written
// sample (image without sidecar) is a reported degraded outcome.
func (w *Writer) Write(dir string, frame image.Image, s *Sample) (imagePath, sidecarPath string, err error) {
	imagesDir := filepath.Join(dir, imagesSubdir)
	metaDir := filepath.Join(dir, metaSubdir)
	for _, d := range []string{imagesDir, metaDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return "", "", errors.New(fmt.Errorf("%w: creating %s: %v", errors.ErrWrite, d, err)).
				Component("sample-writer").
				Category(errors.CategoryFileIO).
				Context("dir", d).
				Build()
		}
	}

	imagePath = filepath.Join(imagesDir, s.Stem()+".jpg")
	sidecarPath = filepath.Join(metaDir, s.Stem()+".json")

	if err := w.writeImage(imagePath, frame); err != nil {
		return imagePath, "", err
	}

	if err := w.writeSidecar(sidecarPath, s); err != nil {
		w.logger.Error("sidecar write failed after image write, sample is degraded",
			"image", imagePath, "sidecar", sidecarPath, "error", err)
		return imagePath, sidecarPath, err
	}

	w.logger.Debug("sample written", "image", imagePath, "sidecar", sidecarPath, "class", s.Class)
	return imagePath, sidecarPath, nil
}

func (w *Writer) writeImage(path string, frame image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(fmt.Errorf("%w: %s: %v", errors.ErrWrite, path, err)).
			Component("sample-writer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	encodeErr := jpeg.Encode(f, frame, &jpeg.Options{Quality: w.quality})
	closeErr := f.Close()

	if encodeErr != nil {
		// Remove the partial file, the sidecar was never written so the
		// sample simply does not exist.
		_ = os.Remove(path)
		return errors.New(fmt.Errorf("%w: %s: %v", errors.ErrEncode, path, encodeErr)).
			Component("sample-writer").
			Category(errors.CategoryImageIO).
			Context("path", path).
			Build()
	}
	if closeErr != nil {
		return errors.New(fmt.Errorf("%w: closing %s: %v", errors.ErrWrite, path, closeErr)).
			Component("sample-writer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

// writeSidecar serializes the sample as indented UTF-8 JSON. HTML escaping is
// disabled so non-ASCII attribute text survives the round-trip byte for byte.
func (w *Writer) writeSidecar(path string, s *Sample) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(fmt.Errorf("%w: %s: %v", errors.ErrWrite, path, err)).
			Component("sample-writer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	encodeErr := enc.Encode(s)
	closeErr := f.Close()

	if encodeErr == nil {
		encodeErr = closeErr
	}
	if encodeErr != nil {
		return errors.New(fmt.Errorf("%w: %s: %v", errors.ErrWrite, path, encodeErr)).
			Component("sample-writer").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return nil
}

// ReadSidecar loads a sample back from its JSON sidecar.
func ReadSidecar(path string) (*Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading sidecar %s: %w", path, err)
	}
	s := &Sample{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing sidecar %s: %w", path, err)
	}
	return s, nil
}
