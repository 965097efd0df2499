package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileScanYieldsOneRowPerNonBlankLine(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.json"), []byte("{\"x\":1}\n\n{\"x\":2}\n"), 0o644))

	scan := NewFileScan(dir)
	rows, freqs := drain(t, scan)
	require.Len(t, rows, 2)
	assert.Equal(t, []int64{1, 1}, freqs)
	for _, row := range rows {
		require.Len(t, row, 3)
		assert.Equal(t, filepath.Join(dir, "a.json"), row[0].AsText())
		assert.NotEmpty(t, row[2].AsJSONTape())
	}
	assert.Equal(t, int64(1), rows[0][1].AsBigInt())
	assert.Equal(t, int64(3), rows[1][1].AsBigInt())
}

func TestFileScanOverEmptyDirectoryYieldsNoRows(t *testing.T) {
	scan := NewFileScan(t.TempDir())
	rows, _ := drain(t, scan)
	assert.Empty(t, rows)
}

func TestFileScanColumnCountIsThree(t *testing.T) {
	assert.Equal(t, 3, NewFileScan(t.TempDir()).ColumnCount())
}
