// Package dataset loads and generates labeled 28x28 greyscale digit
// images in the usual CSV layout: one row per example, first column the
// label (0-9), remaining 784 columns pixel intensities (0-255).
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

const (
	// ImgSize is the side length of one digit image.
	ImgSize = 28
	// NumPixels is the flattened image length.
	NumPixels = ImgSize * ImgSize
	// NumClasses is the number of digit labels.
	NumClasses = 10
)

// Load reads a digit CSV and returns pixel vectors normalized to [0,1]
// and integer labels. A header row is skipped when the first cell is not
// numeric. Rows with the wrong width, labels outside 0-9 or pixels
// outside 0-255 are rejected.
func Load(path string) ([][]float64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("read %s: empty file", path)
	}

	start := 0
	if _, err := strconv.Atoi(rows[0][0]); err != nil {
		start = 1
	}
	if len(rows) == start {
		return nil, nil, fmt.Errorf("read %s: no data rows", path)
	}

	X := make([][]float64, 0, len(rows)-start)
	y := make([]int, 0, len(rows)-start)
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) != NumPixels+1 {
			return nil, nil, fmt.Errorf("row %d: got %d columns, want %d", i+1, len(row), NumPixels+1)
		}
		label, err := strconv.Atoi(row[0])
		if err != nil || label < 0 || label >= NumClasses {
			return nil, nil, fmt.Errorf("row %d: bad label %q", i+1, row[0])
		}
		v := make([]float64, NumPixels)
		for j := 0; j < NumPixels; j++ {
			px, err := strconv.ParseFloat(row[j+1], 64)
			if err != nil || px < 0 || px > 255 {
				return nil, nil, fmt.Errorf("row %d: bad pixel %q at column %d", i+1, row[j+1], j+2)
			}
			v[j] = px / 255.0
		}
		X = append(X, v)
		y = append(y, label)
	}
	return X, y, nil
}

// Counts returns the number of examples per label.
func Counts(y []int) []int {
	counts := make([]int, NumClasses)
	for _, label := range y {
		if label >= 0 && label < NumClasses {
			counts[label]++
		}
	}
	return counts
}
