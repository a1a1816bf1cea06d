package sample

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// EnsureDatasetDir creates the flat dataset layout: root/images and root/meta.
// Creation is idempotent.
func EnsureDatasetDir(root string) (string, error) {
	for _, sub := range []string{imagesSubdir, metaSubdir} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return "", fmt.Errorf("creating dataset directory: %w", err)
		}
	}
	return root, nil
}

// EnsureSessionDir creates a date-bucketed session directory
// root/YYYYMMDD/session_NN with images/ and meta/ inside. Each call within
// one day allocates the next unused session number.
func EnsureSessionDir(root string, now time.Time) (string, error) {
	base := filepath.Join(root, now.Format("20060102"))
	if err := os.MkdirAll(base, 0o755); err != nil {
		return "", fmt.Errorf("creating date directory: %w", err)
	}

	for sid := 1; ; sid++ {
		sess := filepath.Join(base, fmt.Sprintf("session_%02d", sid))
		if _, err := os.Stat(sess); err == nil {
			continue
		}
		return EnsureDatasetDir(sess)
	}
}
