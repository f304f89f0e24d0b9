package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"digitlab/internal/dataset"
	"digitlab/internal/render"
	"digitlab/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	data := flag.String("data", "data/digits.csv", "Input digit CSV")
	outDir := flag.String("out_dir", "data/exploration", "Output directory for charts and summaries")
	samples := flag.Int("samples", 12, "Sample digits to render")
	report := flag.Bool("report", true, "Write an HTML report of the dataset")
	flag.Parse()

	X, y, err := dataset.Load(*data)
	if err != nil {
		logger.Fatal("Failed to load dataset", zap.Error(err))
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Fatal("mkdir out_dir", zap.Error(err))
	}

	counts := dataset.Counts(y)
	logger.Info("Dataset loaded", zap.Int("examples", len(X)), zap.Ints("per_label", counts))

	all := make([]float64, 0, len(X)*dataset.NumPixels)
	for _, v := range X {
		all = append(all, v...)
	}
	pixelMean := stat.Mean(all, nil)
	pixelStd := stat.StdDev(all, nil)
	logger.Info("Pixel statistics", zap.Float64("mean", pixelMean), zap.Float64("stddev", pixelStd))

	// Mean ink per label: average summed intensity of one image.
	inkSums := make([]float64, dataset.NumClasses)
	for i, v := range X {
		s := 0.0
		for _, px := range v {
			s += px
		}
		inkSums[y[i]] += s
	}
	meanInk := make([]float64, dataset.NumClasses)
	for label := range meanInk {
		if counts[label] > 0 {
			meanInk[label] = inkSums[label] / float64(counts[label])
		}
	}

	if err := writeSummaryCSV(filepath.Join(*outDir, "summary.csv"), counts, meanInk, pixelMean, pixelStd); err != nil {
		logger.Warn("Failed to write summary CSV", zap.Error(err))
	}
	if err := render.SaveLabelBar(counts, filepath.Join(*outDir, "label_distribution.png")); err != nil {
		logger.Warn("Failed to render label distribution", zap.Error(err))
	}
	if err := render.SaveMeanDigits(X, y, *outDir); err != nil {
		logger.Warn("Failed to render mean digits", zap.Error(err))
	}
	for i := 0; i < *samples && i < len(X); i++ {
		path := filepath.Join(*outDir, fmt.Sprintf("sample_%02d_label%d.png", i, y[i]))
		title := fmt.Sprintf("label %d", y[i])
		if err := render.SaveDigitPNG(X[i], title, path); err != nil {
			logger.Warn("Failed to render sample", zap.Int("index", i), zap.Error(err))
			break
		}
	}

	if *report {
		path := filepath.Join(*outDir, "report.html")
		if err := writeReport(path, counts, meanInk, len(X), pixelMean, pixelStd); err != nil {
			logger.Warn("Failed to write HTML report", zap.Error(err))
		} else {
			logger.Info("Report written", zap.String("path", path))
		}
	}
}

func writeSummaryCSV(path string, counts []int, meanInk []float64, pixelMean, pixelStd float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{"label", "count", "mean_ink", "pixel_mean", "pixel_stddev"}); err != nil {
		return err
	}
	for label := range counts {
		rec := []string{
			strconv.Itoa(label),
			strconv.Itoa(counts[label]),
			fmt.Sprintf("%.4f", meanInk[label]),
			fmt.Sprintf("%.6f", pixelMean),
			fmt.Sprintf("%.6f", pixelStd),
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}
