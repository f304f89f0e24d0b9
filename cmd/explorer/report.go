package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"digitlab/internal/dataset"
)

// writeReport renders a standalone HTML page with the label distribution
// and the mean ink per label.
func writeReport(path string, counts []int, meanInk []float64, examples int, pixelMean, pixelStd float64) error {
	labels := make([]string, dataset.NumClasses)
	barData := make([]opts.BarData, dataset.NumClasses)
	lineData := make([]opts.LineData, dataset.NumClasses)
	for i := 0; i < dataset.NumClasses; i++ {
		labels[i] = strconv.Itoa(i)
		barData[i] = opts.BarData{Value: counts[i]}
		lineData[i] = opts.LineData{Value: meanInk[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    "Label distribution",
		Subtitle: fmt.Sprintf("%d examples, pixel mean %.4f, stddev %.4f", examples, pixelMean, pixelStd),
	}))
	bar.SetXAxis(labels).AddSeries("examples", barData)

	line := charts.NewLine()
	line.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
		Title:    "Mean ink per label",
		Subtitle: "summed normalized intensity of an average image",
	}))
	line.SetXAxis(labels).AddSeries("mean ink", lineData)

	page := components.NewPage()
	page.AddCharts(bar, line)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}
