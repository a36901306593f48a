package textenc

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
)

// A realistic slice of a daily price file: Chinese product names in the
// name column, which is what makes encoding detection matter at all.
const sampleCSV = "product_id,category_id,name,price,change_date\n" +
	"p1,c1,大米,3.50,2025-05-20\n" +
	"p2,c1,面粉,2.80,2025-05-20\n" +
	"p3,c2,食用油,12.40,2025-05-20\n"

func gbkBytes(t *testing.T, s string) []byte {
	t.Helper()
	b, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func TestNewUTF8ReaderTranscodesGBK(t *testing.T) {
	raw := gbkBytes(t, sampleCSV)

	reader, _, err := NewUTF8Reader(strings.NewReader(string(raw)))
	require.NoError(t, err)

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))
}

func TestNewUTF8ReaderPassesThroughUTF8(t *testing.T) {
	reader, _, err := NewUTF8Reader(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))
}

func TestConvertFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.csv")
	outPath := filepath.Join(dir, "out.csv")
	require.NoError(t, os.WriteFile(inPath, gbkBytes(t, sampleCSV), 0o644))

	_, err := ConvertFile(inPath, outPath)
	require.NoError(t, err)

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))
}

func TestConvertDir(t *testing.T) {
	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "utf")

	require.NoError(t, os.WriteFile(filepath.Join(inDir, "a.csv"), gbkBytes(t, sampleCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "b.CSV"), []byte(sampleCSV), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(inDir, "skip.txt"), []byte("x"), 0o644))

	n, err := ConvertDir(inDir, outDir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, err := os.ReadFile(filepath.Join(outDir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, sampleCSV, string(got))

	_, err = os.Stat(filepath.Join(outDir, "skip.txt"))
	assert.True(t, os.IsNotExist(err))
}
