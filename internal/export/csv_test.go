package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecosort/collector-go/internal/sample"
	"github.com/ecosort/collector-go/internal/schema"
)

var testFlatten = &FlattenOptions{
	IncludeTimestamp: true,
	BoolTrue:         "да",
	BoolFalse:        "нет",
}

func testRecord(attrs schema.AttributeValueMap) *Record {
	s := sample.New("PET", attrs, sample.CaptureInfo{Width: 1280, Height: 720, FPS: 30}, "", time.Now())
	return Flatten(s, "img.jpg", testFlatten)
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	return strings.Split(text, "\n")
}

func TestAppendCreatesHeaderOnce(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ',', BOM: false})

	// N identical-key records produce exactly one header plus N data rows.
	const n = 3
	for i := 0; i < n; i++ {
		require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "empty"})))
	}

	lines := readLines(t, csvPath)
	require.Len(t, lines, n+1)
	assert.Equal(t, "image_file,timestamp,fill,capture_width,capture_height,capture_fps", lines[0])
}

func TestAppendWritesBOM(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ',', BOM: true})

	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "empty"})))

	data, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"), "file must start with a UTF-8 BOM")

	// A second append must not add another BOM.
	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "full"})))
	data, err = os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "\xEF\xBB\xBF"))
}

func TestAppendBooleanLocalization(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ','})

	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"cap": true})))
	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"cap": false})))

	lines := readLines(t, csvPath)
	assert.Contains(t, lines[1], "да")
	assert.Contains(t, lines[2], "нет")
	assert.NotContains(t, lines[1], "true")
	assert.NotContains(t, lines[2], "false")
}

func TestAppendFixedHeaderDropsUnknownColumns(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ',', HeaderPolicy: HeaderPolicyFixed})

	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "empty"})))

	// A record with an attribute the original header never declared still
	// appends, the unknown column is dropped rather than raising.
	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "full", "sticker": true})))

	lines := readLines(t, csvPath)
	require.Len(t, lines, 3)
	assert.NotContains(t, lines[0], "sticker")
	assert.NotContains(t, lines[2], "да")
}

func TestAppendFixedHeaderRendersMissingAsEmpty(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ',', HeaderPolicy: HeaderPolicyFixed})

	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "empty", "cap": true})))
	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "full"})))

	lines := readLines(t, csvPath)
	header := strings.Split(lines[0], ",")
	row := strings.Split(lines[2], ",")
	require.Len(t, row, len(header))

	capIdx := -1
	for i, col := range header {
		if col == "cap" {
			capIdx = i
		}
	}
	require.GreaterOrEqual(t, capIdx, 0)
	assert.Equal(t, "", row[capIdx])
}

func TestAppendRewritePolicyWidensHeader(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ',', BOM: true, HeaderPolicy: HeaderPolicyRewrite})

	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "empty"})))
	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "full", "sticker": true})))

	lines := readLines(t, csvPath)
	require.Len(t, lines, 3)

	// Existing column order preserved, the new column appended at the end.
	assert.True(t, strings.HasSuffix(lines[0], ",sticker"), "header %q must end with the new column", lines[0])

	// The old row gains an empty trailing cell, the new row carries a value.
	header := strings.Split(strings.TrimPrefix(lines[0], "\xEF\xBB\xBF"), ",")
	firstRow := strings.Split(lines[1], ",")
	secondRow := strings.Split(lines[2], ",")
	require.Len(t, firstRow, len(header))
	assert.Equal(t, "", firstRow[len(firstRow)-1])
	assert.Equal(t, "да", secondRow[len(secondRow)-1])
}

func TestAppendCustomDelimiter(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "pet.csv")
	a := NewAppender(CSVOptions{Delimiter: ';'})

	require.NoError(t, a.Append(csvPath, testRecord(schema.AttributeValueMap{"fill": "empty"})))

	lines := readLines(t, csvPath)
	assert.Contains(t, lines[0], "image_file;timestamp")
}

func TestClassCSVPath(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "pet.csv"), ClassCSVPath("data", "PET"))
	assert.Equal(t, filepath.Join("data", "foreign.csv"), ClassCSVPath("data", "FOREIGN"))
}

func TestFlattenColumnOrder(t *testing.T) {
	rec := testRecord(schema.AttributeValueMap{"fill": "empty", "cap": true, "zzz": "x"})
	assert.Equal(t,
		[]string{"image_file", "timestamp", "cap", "fill", "zzz", "capture_width", "capture_height", "capture_fps"},
		rec.Keys(),
		"identity fields, sorted attributes, capture fields")
}

func TestFlattenFPSFormatting(t *testing.T) {
	s := sample.New("PET", schema.AttributeValueMap{}, sample.CaptureInfo{FPS: 29.97}, "", time.Now())
	rec := Flatten(s, "img.jpg", testFlatten)
	assert.Equal(t, "29.97", rec.Get("capture_fps"))

	s = sample.New("PET", schema.AttributeValueMap{}, sample.CaptureInfo{FPS: 30}, "", time.Now())
	rec = Flatten(s, "img.jpg", testFlatten)
	assert.Equal(t, "30", rec.Get("capture_fps"))
}
