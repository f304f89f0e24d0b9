package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, rows []string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "digits.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	return path
}

func row(label int, pixel int) string {
	parts := make([]string, NumPixels+1)
	parts[0] = fmt.Sprintf("%d", label)
	for i := 1; i <= NumPixels; i++ {
		parts[i] = fmt.Sprintf("%d", pixel)
	}
	return strings.Join(parts, ",")
}

func TestLoadNormalizesPixels(t *testing.T) {
	path := writeCSV(t, []string{row(3, 255), row(7, 0)})

	X, y, err := Load(path)
	require.NoError(t, err)
	require.Len(t, X, 2)
	assert.Equal(t, []int{3, 7}, y)
	assert.Equal(t, 1.0, X[0][0])
	assert.Equal(t, 0.0, X[1][0])
	assert.Len(t, X[0], NumPixels)
}

func TestLoadSkipsHeader(t *testing.T) {
	header := "label"
	for i := 0; i < NumPixels; i++ {
		header += fmt.Sprintf(",pixel%d", i)
	}
	path := writeCSV(t, []string{header, row(5, 128)})

	X, y, err := Load(path)
	require.NoError(t, err)
	require.Len(t, X, 1)
	assert.Equal(t, 5, y[0])
	assert.InDelta(t, 128.0/255.0, X[0][0], 1e-12)
}

func TestLoadRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"label out of range": row(12, 10),
		"pixel out of range": row(1, 300),
	}
	for name, bad := range cases {
		t.Run(name, func(t *testing.T) {
			path := writeCSV(t, []string{bad})
			_, _, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadRejectsWrongWidth(t *testing.T) {
	path := writeCSV(t, []string{"1,2,3"})
	_, _, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestCounts(t *testing.T) {
	counts := Counts([]int{0, 0, 9, 3, 3, 3})
	assert.Equal(t, 2, counts[0])
	assert.Equal(t, 3, counts[3])
	assert.Equal(t, 1, counts[9])
	assert.Equal(t, 0, counts[5])
}
