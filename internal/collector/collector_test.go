package collector

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/collector-go/internal/conf"
	"github.com/ecosort/collector-go/internal/errors"
	"github.com/ecosort/collector-go/internal/sample"
)

const petSchema = `label: "ПЭТ бутылка"
attributes:
  - name: fill
    type: enum
    options: [empty, full]
    default: empty
  - name: cap
    type: bool
    default: true
`

const canSchema = `label: "Алюминиевая банка"
attributes:
  - name: crushed
    type: bool
    default: false
`

const foreignSchema = `label: "Посторонний предмет"
attributes:
  - name: description
    type: text
`

func testSettings(t *testing.T) *conf.Settings {
	t.Helper()
	dir := t.TempDir()
	schemaDir := filepath.Join(dir, "states")
	require.NoError(t, os.MkdirAll(schemaDir, 0o755))
	for name, content := range map[string]string{
		"pet.yaml":     petSchema,
		"can.yaml":     canSchema,
		"foreign.yaml": foreignSchema,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(schemaDir, name), []byte(content), 0o644))
	}

	return &conf.Settings{
		Data: conf.DataSettings{
			OutputDir: filepath.Join(dir, "dataset"),
			Layout:    "flat",
			Image:     conf.ImageSettings{Format: "jpg", Quality: 95},
		},
		Classes: conf.ClassSettings{
			Pet:     filepath.Join(schemaDir, "pet.yaml"),
			Can:     filepath.Join(schemaDir, "can.yaml"),
			Foreign: filepath.Join(schemaDir, "foreign.yaml"),
		},
		Export: conf.ExportSettings{
			CSV: conf.CSVSettings{
				Delimiter:        ",",
				BOM:              false,
				IncludeTimestamp: true,
				HeaderPolicy:     "fixed",
				BoolTrue:         "да",
				BoolFalse:        "нет",
			},
		},
	}
}

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 32), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	return img
}

var testCapture = sample.CaptureInfo{Width: 8, Height: 8, FPS: 30}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestNewSeedsDefaults(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, "PET", c.ActiveClass())
	assert.Equal(t, []string{"CAN", "FOREIGN", "PET"}, c.Labels())

	attrs, err := c.Snapshot("PET")
	require.NoError(t, err)
	assert.Equal(t, "empty", attrs["fill"])
	assert.Equal(t, true, attrs["cap"])

	snap := c.Statistics()
	assert.Equal(t, 0, snap.Total)
}

func TestCommitPersistsSample(t *testing.T) {
	settings := testSettings(t)
	c, err := New(settings)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Update("PET", "fill", "full"))

	result, err := c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	require.NoError(t, result.CSVError)

	assert.FileExists(t, result.ImagePath)
	assert.FileExists(t, result.SidecarPath)
	assert.Equal(t, "PET", result.Sample.Class)
	assert.Equal(t, "full", result.Sample.Attributes["fill"])

	lines := readLines(t, filepath.Join(settings.Data.OutputDir, "pet.csv"))
	require.Len(t, lines, 2)
	assert.Equal(t, "image_file,timestamp,cap,fill,capture_width,capture_height,capture_fps", lines[0])
	assert.Contains(t, lines[1], "full")
	assert.Contains(t, lines[1], "да")

	snap := c.Statistics()
	assert.Equal(t, 1, snap.Classes["PET"])
	assert.Equal(t, 1, snap.Total)
}

func TestCommitDoesNotMutateState(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Update("PET", "fill", "full"))
	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)

	// The committed snapshot is independent of the live state.
	attrs, err := c.Snapshot("PET")
	require.NoError(t, err)
	assert.Equal(t, "full", attrs["fill"], "commit must not reset attributes")

	require.NoError(t, c.Reset("PET"))
	attrs, err = c.Snapshot("PET")
	require.NoError(t, err)
	assert.Equal(t, "empty", attrs["fill"])
}

func TestRepeatedCommitsSingleHeader(t *testing.T) {
	settings := testSettings(t)
	c, err := New(settings)
	require.NoError(t, err)
	defer c.Close()

	for i := 0; i < 3; i++ {
		_, err := c.Commit(testFrame(), testCapture)
		require.NoError(t, err)
	}

	lines := readLines(t, filepath.Join(settings.Data.OutputDir, "pet.csv"))
	require.Len(t, lines, 4, "one header plus three data rows")
	assert.Equal(t, 3, c.Statistics().Classes["PET"])
}

func TestCommitAgainstNarrowerExistingHeader(t *testing.T) {
	settings := testSettings(t)
	require.NoError(t, os.MkdirAll(settings.Data.OutputDir, 0o755))

	// A CSV left over from an earlier schema without the cap column. Its
	// header stays authoritative under the fixed policy.
	csvPath := filepath.Join(settings.Data.OutputDir, "pet.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("image_file,timestamp,fill\nold.jpg,2024-01-01T00:00:00Z,empty\n"), 0o644))

	c, err := New(settings)
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	require.NoError(t, result.CSVError)

	lines := readLines(t, csvPath)
	require.Len(t, lines, 3)
	assert.Equal(t, "image_file,timestamp,fill", lines[0])
	assert.NotContains(t, lines[2], "да", "columns missing from the header are dropped")
}

func TestCommitNilFrame(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Commit(nil, testCapture)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNoFrame))
	assert.Equal(t, 0, c.Statistics().Total)
}

func TestCommitPerClassRouting(t *testing.T) {
	settings := testSettings(t)
	c, err := New(settings)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)

	require.NoError(t, c.SetActiveClass("CAN"))
	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(settings.Data.OutputDir, "pet.csv"))
	assert.FileExists(t, filepath.Join(settings.Data.OutputDir, "can.csv"))

	snap := c.Statistics()
	assert.Equal(t, 1, snap.Classes["PET"])
	assert.Equal(t, 1, snap.Classes["CAN"])
	assert.Equal(t, 2, snap.Total)
}

func TestStatisticsSeededFromExistingCSVs(t *testing.T) {
	settings := testSettings(t)

	c, err := New(settings)
	require.NoError(t, err)
	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	require.NoError(t, c.Close())

	// A fresh collector over the same dataset rebuilds counts from the CSVs.
	c2, err := New(settings)
	require.NoError(t, err)
	defer c2.Close()
	assert.Equal(t, 2, c2.Statistics().Classes["PET"])
}

func TestSetActiveClassUnknown(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	err = c.SetActiveClass("GLASS")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownClass))
	assert.Equal(t, "PET", c.ActiveClass())
}

func TestUpdateUnknownAttribute(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	err = c.Update("PET", "volume", "0.5")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownAttribute))
}

func TestExportAll(t *testing.T) {
	settings := testSettings(t)
	c, err := New(settings)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	require.NoError(t, c.SetActiveClass("CAN"))
	_, err = c.Commit(testFrame(), testCapture)
	require.NoError(t, err)

	csvPath, err := c.ExportAll()
	require.NoError(t, err)
	assert.FileExists(t, csvPath)

	lines := readLines(t, csvPath)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "class")
	assert.Contains(t, lines[0], "attr_fill")
	assert.Contains(t, lines[0], "attr_crushed")
}

func TestExportAllEmptyDataset(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.ExportAll()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrExportEmpty))
}

func TestSessionLayout(t *testing.T) {
	settings := testSettings(t)
	settings.Data.Layout = "session"

	c, err := New(settings)
	require.NoError(t, err)
	defer c.Close()

	result, err := c.Commit(testFrame(), testCapture)
	require.NoError(t, err)

	rel, err := filepath.Rel(settings.Data.OutputDir, result.ImagePath)
	require.NoError(t, err)
	parts := strings.Split(filepath.ToSlash(rel), "/")
	require.Len(t, parts, 4)
	assert.Regexp(t, `^\d{8}$`, parts[0])
	assert.Regexp(t, `^session_\d{2}$`, parts[1])
	assert.Equal(t, "images", parts[2])

	// The consolidated export picks up the date-bucketed sidecar.
	csvPath, err := c.ExportAll()
	require.NoError(t, err)
	lines := readLines(t, csvPath)
	assert.True(t, strings.HasPrefix(lines[0], "date,"))
}

func TestSessionIDStable(t *testing.T) {
	c, err := New(testSettings(t))
	require.NoError(t, err)
	defer c.Close()

	require.NotEmpty(t, c.SessionID())

	r1, err := c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	r2, err := c.Commit(testFrame(), testCapture)
	require.NoError(t, err)
	assert.Equal(t, c.SessionID(), r1.Sample.SessionID)
	assert.Equal(t, r1.Sample.SessionID, r2.Sample.SessionID)
}
