package render

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"digitlab/internal/dataset"
)

func decodePNG(t *testing.T, path string) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	_, err = png.Decode(f)
	assert.NoError(t, err, "output should be a valid PNG")
}

func TestSaveDigitPNG(t *testing.T) {
	X, _ := dataset.GenerateSet(1, 1)
	path := filepath.Join(t.TempDir(), "digit.png")
	require.NoError(t, SaveDigitPNG(X[0], "label 5", path))
	decodePNG(t, path)
}

func TestSaveDigitPNGRejectsWrongSize(t *testing.T) {
	err := SaveDigitPNG(make([]float64, 10), "bad", filepath.Join(t.TempDir(), "x.png"))
	assert.Error(t, err)
}

func TestSaveMeanDigits(t *testing.T) {
	X, y := dataset.GenerateSet(100, 2)
	dir := t.TempDir()
	require.NoError(t, SaveMeanDigits(X, y, dir))

	counts := dataset.Counts(y)
	for label, c := range counts {
		path := filepath.Join(dir, "mean_"+string(rune('0'+label))+".png")
		if c > 0 {
			decodePNG(t, path)
		}
	}
}

func TestSaveLabelBar(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.png")
	require.NoError(t, SaveLabelBar([]int{5, 2, 8, 1, 0, 3, 9, 4, 7, 6}, path))
	decodePNG(t, path)
}
