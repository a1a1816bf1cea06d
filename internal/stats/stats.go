// Package stats maintains running per-class sample counts, seeded from the
// per-class CSV files at startup. Counts are derived data: they can always be
// rebuilt by recounting CSV rows and are never authoritative on their own.
package stats

import (
	"bufio"
	"log/slog"
	"os"

	"github.com/ecosort/collector-go/internal/export"
	"github.com/ecosort/collector-go/internal/logging"
)

// Snapshot is a point-in-time view of per-class counts plus the total.
type Snapshot struct {
	Classes map[string]int `json:"classes"`
	Total   int            `json:"total"`
}

// Tracker holds in-memory per-class counts. Not safe for concurrent use; the
// collector facade serializes access.
type Tracker struct {
	counts map[string]int
	total  int
	logger *slog.Logger
}

// NewTracker creates a Tracker with zero counts for the given labels.
func NewTracker(labels []string) *Tracker {
	counts := make(map[string]int, len(labels))
	for _, label := range labels {
		counts[label] = 0
	}
	return &Tracker{
		counts: counts,
		logger: logging.ForService("stats"),
	}
}

// Rebuild recounts data rows in each class's CSV file under rootDir: line
// count minus one header line for non-empty files, zero for missing files.
// The in-memory counts are replaced with the result.
func (t *Tracker) Rebuild(rootDir string) {
	t.total = 0
	for label := range t.counts {
		count, err := countDataRows(export.ClassCSVPath(rootDir, label))
		if err != nil {
			t.logger.Warn("could not count CSV rows", "class", label, "error", err)
			count = 0
		}
		t.counts[label] = count
		t.total += count
	}
	t.logger.Info("statistics rebuilt", "total", t.total)
}

// Increment adds one to a class's count and to the total. Called exactly once
// per successful commit.
func (t *Tracker) Increment(label string) {
	t.counts[label]++
	t.total++
}

// Snapshot returns an independent copy of the current counts.
func (t *Tracker) Snapshot() Snapshot {
	classes := make(map[string]int, len(t.counts))
	for label, count := range t.counts {
		classes[label] = count
	}
	return Snapshot{Classes: classes, Total: t.total}
}

// countDataRows returns the number of lines minus the header for a non-empty
// CSV file. A missing file counts zero.
func countDataRows(csvPath string) (int, error) {
	f, err := os.Open(csvPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	lines := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			lines++
		}
	}
	if err := scanner.Err(); err != nil {
		return 0, err
	}

	if lines <= 1 {
		return 0, nil
	}
	return lines - 1, nil
}
