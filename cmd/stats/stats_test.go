package stats

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/datastore"
	"github.com/ecosort/collector-go/internal/sample"
	"github.com/ecosort/collector-go/internal/schema"
)

func testSettings(t *testing.T, sqliteEnabled bool) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	return &conf.Settings{
		Data: conf.DataSettings{OutputDir: dir},
		Output: conf.OutputSettings{SQLite: conf.SQLiteSettings{
			Enabled: sqliteEnabled,
			Path:    filepath.Join(dir, "index.db"),
		}},
	}
}

func seedCSV(t *testing.T, settings *conf.Settings, name string, rows int) {
	t.Helper()
	content := "image_file,fill\n"
	for i := 0; i < rows; i++ {
		content += "img.jpg,empty\n"
	}
	require.NoError(t, os.WriteFile(filepath.Join(settings.Data.OutputDir, name), []byte(content), 0o644))
}

func seedIndex(t *testing.T, settings *conf.Settings, classes ...string) {
	t.Helper()
	store := datastore.New(settings)
	require.NotNil(t, store)
	require.NoError(t, store.Open())
	defer store.Close()

	now := time.Now()
	for i, class := range classes {
		s := sample.New(class, schema.AttributeValueMap{"fill": "empty"},
			sample.CaptureInfo{Width: 1280, Height: 720, FPS: 30}, "session-1",
			now.Add(time.Duration(i)*time.Second))
		rec, err := datastore.NewRecord(s, s.Stem()+".jpg", s.Stem()+".json")
		require.NoError(t, err)
		require.NoError(t, store.Save(rec))
	}
}

func runCommand(t *testing.T, settings *conf.Settings, args ...string) (string, error) {
	t.Helper()
	cmd := Command(settings)
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestStatsWithoutIndex(t *testing.T) {
	settings := testSettings(t, false)
	seedCSV(t, settings, "pet.csv", 3)

	out, err := runCommand(t, settings)
	require.NoError(t, err)
	assert.Contains(t, out, "CLASS")
	assert.Contains(t, out, "PET")
	assert.NotContains(t, out, "INDEXED")
	assert.Contains(t, out, "3")
}

func TestStatsWithIndexedColumn(t *testing.T) {
	settings := testSettings(t, true)
	seedCSV(t, settings, "pet.csv", 2)
	seedIndex(t, settings, "PET", "PET", "CAN")

	out, err := runCommand(t, settings)
	require.NoError(t, err)
	assert.Contains(t, out, "INDEXED")

	lines := bytes.Split([]byte(out), []byte("\n"))
	var petLine string
	for _, line := range lines {
		if bytes.HasPrefix(bytes.TrimSpace(line), []byte("PET")) {
			petLine = string(line)
		}
	}
	require.NotEmpty(t, petLine)
	assert.Contains(t, petLine, "2")
}

func TestStatsRecentListing(t *testing.T) {
	settings := testSettings(t, true)
	seedIndex(t, settings, "PET", "CAN", "FOREIGN")

	out, err := runCommand(t, settings, "--recent", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "TIMESTAMP")
	// Only the two newest of the three indexed samples are listed.
	assert.Equal(t, 2, bytes.Count([]byte(out), []byte(".jpg")))
}

func TestStatsRecentRequiresIndex(t *testing.T) {
	settings := testSettings(t, false)

	_, err := runCommand(t, settings, "--recent", "5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.sqlite.enabled")
}
