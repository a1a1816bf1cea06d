package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg" // register decoders for still files
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// StillSource cycles through the image files of a directory at the configured
// frame cadence. It stands in for a live camera during development and in
// tests.
type StillSource struct {
	dir      string
	mode     Mode
	interval time.Duration

	mu      sync.RWMutex
	current image.Image
	closed  bool

	files []string
	next  int
}

// NewStillSource creates a source over the .jpg/.jpeg/.png files in dir.
func NewStillSource(dir string, mode Mode) (*StillSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading still directory %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	sort.Strings(files)

	fps := mode.FPS
	if fps <= 0 {
		fps = 1
	}

	return &StillSource{
		dir:      dir,
		mode:     mode,
		interval: time.Duration(float64(time.Second) / fps),
		files:    files,
	}, nil
}

// Start loads the first frame synchronously, so a commit issued right after
// Start never finds an empty source, then advances through the remaining
// files on a ticker until ctx is done.
func (s *StillSource) Start(ctx context.Context) error {
	if err := s.advance(); err != nil {
		return err
	}

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = s.advance()
			}
		}
	}()
	return nil
}

func (s *StillSource) advance() error {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return nil
	}

	path := s.files[s.next%len(s.files)]
	s.next++

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening still %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decoding still %s: %w", path, err)
	}

	s.mu.Lock()
	s.current = img
	s.mu.Unlock()
	return nil
}

// Frame returns the most recently loaded still.
func (s *StillSource) Frame() (image.Image, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.current != nil
}

// Mode reports the configured capture geometry.
func (s *StillSource) Mode() Mode {
	return s.mode
}

// Close stops frame updates. Idempotent.
func (s *StillSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
