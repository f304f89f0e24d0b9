// Package render draws digit images and dataset charts with gonum/plot.
package render

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"digitlab/internal/dataset"
)

// pixelGrid adapts a flattened image to plotter.GridXYZ. Rows are flipped
// so pixel row 0 renders at the top, the way the CSV stores it.
type pixelGrid struct {
	pixels []float64
	side   int
}

func (g pixelGrid) Dims() (c, r int)   { return g.side, g.side }
func (g pixelGrid) X(c int) float64    { return float64(c) }
func (g pixelGrid) Y(r int) float64    { return float64(r) }
func (g pixelGrid) Z(c, r int) float64 { return g.pixels[(g.side-1-r)*g.side+c] }

// SaveDigitPNG renders one digit image (pixels in [0,1]) as a heatmap.
func SaveDigitPNG(pixels []float64, title, path string) error {
	if len(pixels) != dataset.NumPixels {
		return fmt.Errorf("render: got %d pixels, want %d", len(pixels), dataset.NumPixels)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(plotter.NewHeatMap(pixelGrid{pixels: pixels, side: dataset.ImgSize}, palette.Heat(16, 1)))
	return p.Save(4*vg.Inch, 4*vg.Inch, path)
}

// SaveMeanDigits writes one heatmap per label holding the mean image of
// that label's examples.
func SaveMeanDigits(X [][]float64, y []int, outDir string) error {
	sums := make([][]float64, dataset.NumClasses)
	counts := make([]int, dataset.NumClasses)
	for i := range sums {
		sums[i] = make([]float64, dataset.NumPixels)
	}
	for i, label := range y {
		counts[label]++
		for j, v := range X[i] {
			sums[label][j] += v
		}
	}
	for label := 0; label < dataset.NumClasses; label++ {
		if counts[label] == 0 {
			continue
		}
		for j := range sums[label] {
			sums[label][j] /= float64(counts[label])
		}
		path := filepath.Join(outDir, fmt.Sprintf("mean_%d.png", label))
		title := fmt.Sprintf("Mean image, label %d (%d examples)", label, counts[label])
		if err := SaveDigitPNG(sums[label], title, path); err != nil {
			return err
		}
	}
	return nil
}

// SaveLabelBar renders the label distribution as a bar chart.
func SaveLabelBar(counts []int, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	vals := make(plotter.Values, len(counts))
	labels := make([]string, len(counts))
	for i, c := range counts {
		vals[i] = float64(c)
		labels[i] = fmt.Sprintf("%d", i)
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Label distribution"
	p.X.Label.Text = "Digit"
	p.Y.Label.Text = "Examples"
	p.Add(bars)
	p.NominalX(labels...)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
