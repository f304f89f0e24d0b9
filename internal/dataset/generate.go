package dataset

import (
	"encoding/csv"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
)

// Seven-segment layout per digit: A top, B top-right, C bottom-right,
// D bottom, E bottom-left, F top-left, G middle.
var segmentsByDigit = [NumClasses][7]bool{
	0: {true, true, true, true, true, true, false},
	1: {false, true, true, false, false, false, false},
	2: {true, true, false, true, true, false, true},
	3: {true, true, true, true, false, false, true},
	4: {false, true, true, false, false, true, true},
	5: {true, false, true, true, false, true, true},
	6: {true, false, true, true, true, true, true},
	7: {true, true, true, false, false, false, false},
	8: {true, true, true, true, true, true, true},
	9: {true, true, true, true, false, true, true},
}

// RenderDigit rasterizes one synthetic digit image with random position
// jitter, stroke intensity and pixel noise. Values are raw 0-255.
func RenderDigit(digit int, rng *rand.Rand) []float64 {
	img := make([]float64, NumPixels)

	dx := rng.Intn(5) - 2
	dy := rng.Intn(5) - 2
	left, right := 8+dx, 19+dx
	top, mid, bottom := 5+dy, 13+dy, 22+dy
	ink := 180 + rng.Float64()*75
	const thick = 2

	hseg := func(row, x0, x1 int) {
		for r := row; r < row+thick; r++ {
			for c := x0; c <= x1; c++ {
				set(img, r, c, ink)
			}
		}
	}
	vseg := func(col, y0, y1 int) {
		for c := col; c < col+thick; c++ {
			for r := y0; r <= y1; r++ {
				set(img, r, c, ink)
			}
		}
	}

	seg := segmentsByDigit[digit]
	if seg[0] {
		hseg(top, left, right)
	}
	if seg[1] {
		vseg(right-thick+1, top, mid)
	}
	if seg[2] {
		vseg(right-thick+1, mid, bottom)
	}
	if seg[3] {
		hseg(bottom-thick+1, left, right)
	}
	if seg[4] {
		vseg(left, mid, bottom)
	}
	if seg[5] {
		vseg(left, top, mid)
	}
	if seg[6] {
		hseg(mid, left, right)
	}

	for i := range img {
		img[i] += rng.NormFloat64() * 8
		if img[i] < 0 {
			img[i] = 0
		}
		if img[i] > 255 {
			img[i] = 255
		}
	}
	return img
}

func set(img []float64, row, col int, v float64) {
	if row < 0 || row >= ImgSize || col < 0 || col >= ImgSize {
		return
	}
	img[row*ImgSize+col] = v
}

// GenerateSet produces n synthetic examples in memory, pixels normalized
// to [0,1], labels drawn uniformly.
func GenerateSet(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		y[i] = rng.Intn(NumClasses)
		raw := RenderDigit(y[i], rng)
		v := make([]float64, NumPixels)
		for j, px := range raw {
			v[j] = px / 255.0
		}
		X[i] = v
	}
	return X, y
}

// Generate writes n synthetic examples to a digit CSV at outPath, in the
// same layout Load expects.
func Generate(n int, outPath string, seed int64) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := make([]string, NumPixels+1)
	header[0] = "label"
	for j := 0; j < NumPixels; j++ {
		header[j+1] = "pixel" + strconv.Itoa(j)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(seed))
	rec := make([]string, NumPixels+1)
	for i := 0; i < n; i++ {
		digit := rng.Intn(NumClasses)
		raw := RenderDigit(digit, rng)
		rec[0] = strconv.Itoa(digit)
		for j, px := range raw {
			rec[j+1] = strconv.Itoa(int(px))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
