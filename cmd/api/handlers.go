package main

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"errors"
	"image/color"
	"image/png"
	"math/rand"
	"net/http"
	"os"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"digitlab/internal/dataset"
)

type predictReq struct {
	Pixels   []float64 `json:"pixels"`
	ImagePNG string    `json:"image_png"`
}

// toVector turns a request into a normalized pixel vector. Exactly one of
// pixels/image_png must be set.
func (r *predictReq) toVector() ([]float64, error) {
	switch {
	case len(r.Pixels) > 0 && r.ImagePNG != "":
		return nil, errors.New("set either pixels or image_png, not both")
	case len(r.Pixels) > 0:
		if len(r.Pixels) != dataset.NumPixels {
			return nil, errors.New("pixels must hold 784 values")
		}
		v := make([]float64, dataset.NumPixels)
		for i, px := range r.Pixels {
			if px < 0 || px > 255 {
				return nil, errors.New("pixel values must be in 0..255")
			}
			v[i] = px / 255.0
		}
		return v, nil
	case r.ImagePNG != "":
		raw, err := base64.StdEncoding.DecodeString(r.ImagePNG)
		if err != nil {
			return nil, errors.New("image_png is not valid base64")
		}
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return nil, errors.New("image_png is not a valid PNG")
		}
		b := img.Bounds()
		if b.Dx() != dataset.ImgSize || b.Dy() != dataset.ImgSize {
			return nil, errors.New("image must be 28x28")
		}
		v := make([]float64, dataset.NumPixels)
		for y := 0; y < dataset.ImgSize; y++ {
			for x := 0; x < dataset.ImgSize; x++ {
				g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
				v[y*dataset.ImgSize+x] = float64(g.Y) / 255.0
			}
		}
		return v, nil
	default:
		return nil, errors.New("one of pixels or image_png is required")
	}
}

func record(digit int, confidence float64, source string) {
	if predStore == nil {
		return
	}
	if _, err := predStore.RecordPrediction(digit, confidence, model.Name(), source); err != nil {
		logger.Warn("Failed to record prediction", zap.Error(err))
	}
}

func handlePredict(c *gin.Context) {
	var req predictReq
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	v, err := req.toVector()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p := model.PredictProba([][]float64{v})[0]
	digit := argmax(p)
	record(digit, p[digit], "api")
	c.JSON(http.StatusOK, gin.H{
		"digit":      digit,
		"confidence": p[digit],
		"proba":      p,
		"model":      model.Name(),
	})
}

func handleBatch(c *gin.Context) {
	var items []predictReq
	if err := c.BindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	X := make([][]float64, 0, len(items))
	for i := range items {
		v, err := items[i].toVector()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "index": i})
			return
		}
		X = append(X, v)
	}
	ps := model.PredictProba(X)
	out := make([]gin.H, len(items))
	for i, p := range ps {
		digit := argmax(p)
		record(digit, p[digit], "batch")
		out[i] = gin.H{"digit": digit, "confidence": p[digit]}
	}
	c.JSON(http.StatusOK, out)
}

var (
	holdoutOnce sync.Once
	holdoutX    [][]float64
	holdoutY    []int
)

// handleRandom picks a random example from the dataset and reports the
// model's guess next to the actual label.
func handleRandom(c *gin.Context) {
	holdoutOnce.Do(func() {
		X, y, err := dataset.Load(dataPath)
		if err != nil {
			logger.Warn("Failed to load holdout data", zap.String("path", dataPath), zap.Error(err))
			return
		}
		holdoutX, holdoutY = X, y
	})
	if len(holdoutX) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no dataset available"})
		return
	}
	i := rand.Intn(len(holdoutX))
	p := model.PredictProba([][]float64{holdoutX[i]})[0]
	digit := argmax(p)
	record(digit, p[digit], "random")
	c.JSON(http.StatusOK, gin.H{
		"index":      i,
		"digit":      digit,
		"actual":     holdoutY[i],
		"confidence": p[digit],
		"model":      model.Name(),
	})
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "model": model.Name()})
}

func dashboardData(c *gin.Context) {
	if predStore == nil {
		c.JSON(http.StatusOK, gin.H{"items": []gin.H{}})
		return
	}
	items, err := predStore.RecentPredictions(200)
	if err != nil {
		logger.Warn("Failed to read prediction log", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"items": []gin.H{}})
		return
	}
	counts, err := predStore.CountByDigit()
	if err != nil {
		counts = nil
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "counts": counts})
}

func dashboardMetrics(c *gin.Context) {
	f, err := os.Open(curvePath)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"metrics": gin.H{}})
		return
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil || len(rows) < 2 {
		c.JSON(http.StatusOK, gin.H{"metrics": gin.H{}})
		return
	}
	hdr := rows[0]
	last := rows[len(rows)-1]
	out := gin.H{}
	for i := range hdr {
		if i < len(last) {
			out[hdr[i]] = last[i]
		}
	}
	c.JSON(http.StatusOK, gin.H{"metrics": out})
}
