package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"digitlab/internal/dataset"
	"digitlab/internal/store"
)

func setupAPI(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger = zap.NewNop()
	model = inkModel{}

	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "predictions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	predStore = s

	curvePath = filepath.Join(dir, "learning_curve.csv")
	return newRouter()
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func somePixels() []float64 {
	px := make([]float64, dataset.NumPixels)
	for i := 300; i < 400; i++ {
		px[i] = 200
	}
	return px
}

func TestPredictWithPixels(t *testing.T) {
	r := setupAPI(t)

	w := postJSON(t, r, "/predict", gin.H{"pixels": somePixels()}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Digit      int       `json:"digit"`
		Confidence float64   `json:"confidence"`
		Proba      []float64 `json:"proba"`
		Model      string    `json:"model"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Digit, 0)
	assert.Less(t, resp.Digit, dataset.NumClasses)
	assert.Len(t, resp.Proba, dataset.NumClasses)
	assert.Equal(t, "InkHeuristic", resp.Model)

	items, err := predStore.RecentPredictions(10)
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, "api", items[0].Source)
}

func TestPredictWithPNG(t *testing.T) {
	r := setupAPI(t)

	img := image.NewGray(image.Rect(0, 0, dataset.ImgSize, dataset.ImgSize))
	for y := 10; y < 18; y++ {
		for x := 10; x < 18; x++ {
			img.SetGray(x, y, color.Gray{Y: 220})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	b64 := base64.StdEncoding.EncodeToString(buf.Bytes())

	w := postJSON(t, r, "/predict", gin.H{"image_png": b64}, nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestPredictRejectsBadPayloads(t *testing.T) {
	r := setupAPI(t)

	cases := map[string]gin.H{
		"empty":            {},
		"both sources":     {"pixels": somePixels(), "image_png": "aGk="},
		"wrong width":      {"pixels": []float64{1, 2, 3}},
		"pixel over range": {"pixels": append(somePixels()[:dataset.NumPixels-1], 999)},
		"bad base64":       {"image_png": "!!!"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			w := postJSON(t, r, "/predict", body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestBatch(t *testing.T) {
	r := setupAPI(t)

	w := postJSON(t, r, "/batch", []gin.H{
		{"pixels": somePixels()},
		{"pixels": somePixels()},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []struct {
		Digit int `json:"digit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestRandomUsesDataset(t *testing.T) {
	r := setupAPI(t)
	dataPath = filepath.Join(t.TempDir(), "digits.csv")
	require.NoError(t, dataset.Generate(30, dataPath, 1))

	req := httptest.NewRequest(http.MethodGet, "/random", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Digit  int `json:"digit"`
		Actual int `json:"actual"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.GreaterOrEqual(t, resp.Actual, 0)
	assert.Less(t, resp.Actual, dataset.NumClasses)
}

func TestAPIKeyMiddleware(t *testing.T) {
	r := setupAPI(t)
	t.Setenv("API_KEY", "sesame")

	w := postJSON(t, r, "/predict", gin.H{"pixels": somePixels()}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = postJSON(t, r, "/predict", gin.H{"pixels": somePixels()},
		map[string]string{"X-API-Key": "sesame"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDashboardMetrics(t *testing.T) {
	r := setupAPI(t)
	csv := "size,train_acc,test_acc\n100,0.9,0.8\n200,0.95,0.85\n"
	require.NoError(t, os.WriteFile(curvePath, []byte(csv), 0o644))

	req := httptest.NewRequest(http.MethodGet, "/dashboard/metrics", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Metrics map[string]string `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "200", resp.Metrics["size"])
	assert.Equal(t, "0.85", resp.Metrics["test_acc"])
}

func TestHealthz(t *testing.T) {
	r := setupAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
